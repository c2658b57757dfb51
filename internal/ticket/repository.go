package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository handles ticket persistence
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ticket repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new ticket
func (r *Repository) Create(ctx context.Context, t *Ticket) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// GetByID retrieves a ticket by its channel ID, nil without error when absent
func (r *Repository) GetByID(ctx context.Context, id string) (*Ticket, error) {
	var t Ticket
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &t, nil
}

// GetOpenByUser retrieves a user's open ticket, nil without error when absent
func (r *Repository) GetOpenByUser(ctx context.Context, userID string) (*Ticket, error) {
	var t Ticket
	err := r.db.WithContext(ctx).
		First(&t, "user_id = ? AND status = ?", userID, StatusOpen).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open ticket: %w", err)
	}
	return &t, nil
}

// ListOpen lists open tickets oldest first
func (r *Repository) ListOpen(ctx context.Context) ([]*Ticket, error) {
	var ts []*Ticket
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusOpen).
		Order("created_at").
		Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open tickets: %w", err)
	}
	return ts, nil
}

// Close transitions an open ticket to closed and schedules the channel
// deletion in the same write. Returns false when the ticket was already
// closed, so double presses collapse into one close.
func (r *Repository) Close(ctx context.Context, id, closedBy string, at, deleteAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Ticket{}).
		Where("id = ? AND status = ?", id, StatusOpen).
		Updates(map[string]any{
			"status":                StatusClosed,
			"closed_by":             closedBy,
			"closed_at":             at,
			"scheduled_deletion_at": deleteAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to close ticket: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DueForDeletion lists closed tickets whose deletion time has passed
func (r *Repository) DueForDeletion(ctx context.Context, now time.Time) ([]*Ticket, error) {
	var ts []*Ticket
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_deletion_at IS NOT NULL AND scheduled_deletion_at <= ?",
			StatusClosed, now).
		Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for deletion: %w", err)
	}
	return ts, nil
}

// ClearDeletion unsets the deletion schedule once the channel is gone
func (r *Repository) ClearDeletion(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&Ticket{}).Where("id = ?", id).
		Update("scheduled_deletion_at", nil).Error
	if err != nil {
		return fmt.Errorf("failed to clear ticket deletion schedule: %w", err)
	}
	return nil
}

// CountOpen returns the number of open tickets
func (r *Repository) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Ticket{}).
		Where("status = ?", StatusOpen).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count open tickets: %w", err)
	}
	return n, nil
}
