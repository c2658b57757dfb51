package ticket

import "time"

// Status represents the lifecycle state of a support ticket
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Category classifies what a ticket is about
type Category string

const (
	CategoryQuestion Category = "question"
	CategoryTrouble  Category = "trouble"
	CategoryOther    Category = "other"
)

// Ticket is one support request and its private channel. The primary key is
// the Discord ID of the channel opened for it.
type Ticket struct {
	ID          string   `gorm:"primaryKey;size:32"`
	UserID      string   `gorm:"size:32;not null;index"`
	UserName    string   `gorm:"size:100;not null"`
	Category    Category `gorm:"size:32;not null"`
	Description string   `gorm:"size:1000;not null"`
	Status      Status   `gorm:"size:16;not null;default:open;index"`

	ClosedBy *string    `gorm:"size:32"`
	ClosedAt *time.Time

	// ScheduledDeletionAt marks when the channel should be removed. It is
	// set at close time and survives restarts; a periodic sweep acts on it.
	ScheduledDeletionAt *time.Time `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Ticket) TableName() string {
	return "tickets"
}
