package models

import (
	"time"

	"gorm.io/gorm"
)

// GroceryList is a named collection of items shared among members.
// CreatedBy is the owner and is immutable; the owner is always a member.
type GroceryList struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	CreatedBy uint   `gorm:"not null;index" json:"created_by"`

	// Relations
	Members []ListMember  `gorm:"foreignKey:ListID" json:"members,omitempty"`
	Items   []GroceryItem `gorm:"foreignKey:ListID" json:"items,omitempty"`
}

// IsOwner reports whether userID owns the list
func (l *GroceryList) IsOwner(userID uint) bool {
	return l.CreatedBy == userID
}

// ListMember grants a user access to a list. Rows are hard-deleted so a
// removed user can rejoin without tripping the unique (list, user) index.
type ListMember struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ListID uint `gorm:"not null;uniqueIndex:idx_list_members_list_user" json:"list_id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_list_members_list_user" json:"user_id"`

	// Relations
	List GroceryList `json:"-"`
	User User        `json:"user,omitempty"`
}

// Invitation lifecycle: pending -> accepted | declined, exactly once
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// ListInvitation is a request for a user (by email) to join a list.
// ListName and InvitedByEmail are denormalized snapshots taken at creation.
type ListInvitation struct {
	gorm.Model
	ListID         uint       `gorm:"not null;index" json:"list_id"`
	ListName       string     `gorm:"not null" json:"list_name"`
	InvitedEmail   string     `gorm:"not null;index" json:"invited_email"`
	InvitedBy      uint       `gorm:"not null" json:"invited_by"`
	InvitedByEmail string     `gorm:"not null" json:"invited_by_email"`
	Token          string     `gorm:"uniqueIndex;not null" json:"-"`
	Status         string     `gorm:"default:'pending';index" json:"status"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	ReminderSentAt *time.Time `json:"-"`
}

// IsPending reports whether the invitation can still be responded to
func (i *ListInvitation) IsPending() bool {
	return i.Status == InvitationPending
}
