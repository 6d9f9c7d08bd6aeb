package models

import "time"

// GroceryItem is a single entry on a list. Items are hard-deleted (no
// soft-delete column) so a removed list leaves no item rows behind.
// CompletedBy and CompletedAt are set together and cleared together.
type GroceryItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ListID   uint   `gorm:"not null;index" json:"list_id"`
	Name     string `gorm:"not null" json:"name"`
	Quantity int    `gorm:"default:1" json:"quantity"`

	Unit     string `json:"unit,omitempty"`
	Category string `json:"category,omitempty"`
	Note     string `json:"note,omitempty"`
	Favorite bool   `gorm:"default:false" json:"favorite"`

	Completed   bool       `gorm:"default:false;index" json:"completed"`
	CreatedBy   uint       `gorm:"not null" json:"created_by"`
	CompletedBy *uint      `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Sort key, assigned monotonically per list
	Position int `gorm:"not null;default:0" json:"position"`
}
