package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository handles invitation and participant persistence
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new invitation repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new invitation
func (r *Repository) Create(ctx context.Context, inv *Invitation) error {
	if err := r.db.WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetByID retrieves an invitation by its announcement message ID.
// Returns nil without error when no row exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*Invitation, error) {
	var inv Invitation
	err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}

// GetByThreadID retrieves an invitation by its discussion thread ID
func (r *Repository) GetByThreadID(ctx context.Context, threadID string) (*Invitation, error) {
	var inv Invitation
	err := r.db.WithContext(ctx).First(&inv, "thread_id = ?", threadID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation by thread: %w", err)
	}
	return &inv, nil
}

// Update applies the non-nil fields of upd to an invitation
func (r *Repository) Update(ctx context.Context, id string, upd *UpdateInput) error {
	fields := map[string]any{}
	if upd.EventName != nil {
		fields["event_name"] = *upd.EventName
	}
	if upd.StartTime != nil {
		fields["start_time"] = *upd.StartTime
	}
	if upd.EndTime != nil {
		fields["end_time"] = *upd.EndTime
	}
	if upd.WorldName != nil {
		fields["world_name"] = *upd.WorldName
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if len(fields) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Model(&Invitation{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

// UpdateStatus sets the invitation status unconditionally
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	err := r.db.WithContext(ctx).Model(&Invitation{}).Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	return nil
}

// UpdateStatusFrom sets the status only when the current status matches from.
// Returns false when the row was not in the expected state.
func (r *Repository) UpdateStatusFrom(ctx context.Context, id string, from, to Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Invitation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("failed to transition invitation status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AssignStaff claims an invitation for a staff member. The predicate on
// staff_id makes the first-come-first-served claim a single atomic write;
// a false return means someone else won the race.
func (r *Repository) AssignStaff(ctx context.Context, id, staffID, staffName string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Invitation{}).
		Where("id = ? AND staff_id IS NULL", id).
		Updates(map[string]any{"staff_id": staffID, "staff_name": staffName})
	if res.Error != nil {
		return false, fmt.Errorf("failed to assign staff: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetInstanceLink stores the staff-provisioned instance link
func (r *Repository) SetInstanceLink(ctx context.Context, id, link string) error {
	err := r.db.WithContext(ctx).Model(&Invitation{}).Where("id = ?", id).
		Update("instance_link", link).Error
	if err != nil {
		return fmt.Errorf("failed to set instance link: %w", err)
	}
	return nil
}

// SetStaffMessageID records the staff notification message once posted
func (r *Repository) SetStaffMessageID(ctx context.Context, id, messageID string) error {
	err := r.db.WithContext(ctx).Model(&Invitation{}).Where("id = ?", id).
		Update("staff_message_id", messageID).Error
	if err != nil {
		return fmt.Errorf("failed to set staff message id: %w", err)
	}
	return nil
}

// DueForAutoClose lists invitations still open whose end time has passed
func (r *Repository) DueForAutoClose(ctx context.Context, now time.Time) ([]*Invitation, error) {
	var invs []*Invitation
	err := r.db.WithContext(ctx).
		Where("status IN ? AND end_time < ?", []Status{StatusRecruiting, StatusFull}, now).
		Order("end_time").
		Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations for auto-close: %w", err)
	}
	return invs, nil
}

// DueForReminder lists open invitations starting within the lead window that
// have not been reminded yet
func (r *Repository) DueForReminder(ctx context.Context, now time.Time, lead time.Duration) ([]*Invitation, error) {
	var invs []*Invitation
	err := r.db.WithContext(ctx).
		Where("status IN ? AND reminded_at IS NULL AND start_time > ? AND start_time <= ?",
			[]Status{StatusRecruiting, StatusFull}, now, now.Add(lead)).
		Order("start_time").
		Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations for reminder: %w", err)
	}
	return invs, nil
}

// MarkReminded records that reminder notifications went out
func (r *Repository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&Invitation{}).Where("id = ?", id).
		Update("reminded_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark invitation reminded: %w", err)
	}
	return nil
}

// CountOpen returns the number of invitations still recruiting or full
func (r *Repository) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Invitation{}).
		Where("status IN ?", []Status{StatusRecruiting, StatusFull}).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count open invitations: %w", err)
	}
	return n, nil
}

// GetParticipants lists all participants of an invitation in registration order
func (r *Repository) GetParticipants(ctx context.Context, invitationID string) ([]*Participant, error) {
	var parts []*Participant
	err := r.db.WithContext(ctx).
		Where("invitation_id = ?", invitationID).
		Order("created_at").
		Find(&parts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	return parts, nil
}

// GetParticipant retrieves one user's participation record, nil when absent
func (r *Repository) GetParticipant(ctx context.Context, invitationID, userID string) (*Participant, error) {
	var p Participant
	err := r.db.WithContext(ctx).
		First(&p, "invitation_id = ? AND user_id = ?", invitationID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

// AddParticipant inserts a participation record without a capacity guard.
// Used for the interested status, which has no cap.
func (r *Repository) AddParticipant(ctx context.Context, p *Participant) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// AddJoinedIfBelowCap inserts a joined participant only while the joined count
// is below cap. The count predicate lives inside the INSERT, so the capacity
// check and the write are one statement; a false return means the event filled
// up first.
func (r *Repository) AddJoinedIfBelowCap(ctx context.Context, p *Participant, cap int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO participants (invitation_id, user_id, user_name, status, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM participants
		       WHERE invitation_id = ? AND status = ?) < ?`,
		p.InvitationID, p.UserID, p.UserName, ParticipantJoined, time.Now(),
		p.InvitationID, ParticipantJoined, cap)
	if res.Error != nil {
		return false, fmt.Errorf("failed to add participant: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RemoveParticipant deletes a user's participation record.
// Returns false when no record existed.
func (r *Repository) RemoveParticipant(ctx context.Context, invitationID, userID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("invitation_id = ? AND user_id = ?", invitationID, userID).
		Delete(&Participant{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove participant: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountParticipants tallies joined and interested independently
func (r *Repository) CountParticipants(ctx context.Context, invitationID string) (Counts, error) {
	type row struct {
		Status ParticipantStatus
		N      int
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&Participant{}).
		Select("status, COUNT(*) AS n").
		Where("invitation_id = ?", invitationID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count participants: %w", err)
	}

	var counts Counts
	for _, r := range rows {
		switch r.Status {
		case ParticipantJoined:
			counts.Joined = r.N
		case ParticipantInterested:
			counts.Interested = r.N
		}
	}
	return counts, nil
}
