package models

import "time"

// ItemCorrelation records how often two item names have appeared together
// on the same list for a user. The pair is stored once in canonical order
// (ItemA < ItemB) and incremented atomically, so both directions always
// report the same frequency.
type ItemCorrelation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID uint   `gorm:"not null;uniqueIndex:idx_item_correlations_user_pair" json:"user_id"`
	ItemA  string `gorm:"not null;uniqueIndex:idx_item_correlations_user_pair" json:"item_a"`
	ItemB  string `gorm:"not null;uniqueIndex:idx_item_correlations_user_pair" json:"item_b"`

	Frequency   int       `gorm:"not null;default:1" json:"frequency"`
	LastUpdated time.Time `gorm:"not null;index" json:"last_updated"`
}

// CanonicalPair orders two item names so equal pairs map to the same row
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}
