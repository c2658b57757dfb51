package invitation

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrNotFound          = errors.New("invitation not found")
	ErrNotRecruiting     = errors.New("invitation is not accepting participants")
	ErrClosed            = errors.New("invitation is no longer active")
	ErrAlreadyJoined     = errors.New("user is already joined")
	ErrAlreadyInterested = errors.New("user is already marked as interested")
	ErrCapacityReached   = errors.New("invitation is at capacity")
	ErrNotParticipant    = errors.New("user is not a participant")
	ErrNotHost           = errors.New("only the host may perform this action")
	ErrTerminal          = errors.New("invitation is completed or cancelled")
	ErrNotGroupInstance  = errors.New("invitation is not a group instance")
	ErrStaffAssigned     = errors.New("staff is already assigned")
	ErrNotAssignedStaff  = errors.New("only the assigned staff may perform this action")
	ErrInvalidLink       = errors.New("instance link does not match the required format")
	ErrScheduleOrder     = errors.New("end time must be after the start time")
)

// Service handles invitation business logic
type Service struct {
	repo     *Repository
	validate *validator.Validate
	log      *zap.Logger
}

// NewService creates a new invitation service
func NewService(repo *Repository, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: NewValidator(),
		log:      log.Named("invitation"),
	}
}

// ValidateInput checks a create input against the field and cross-field rules.
// The returned error is a validator.ValidationErrors suitable for
// ValidationMessages.
func (s *Service) ValidateInput(in *CreateInput) error {
	return s.validate.Struct(in)
}

// Create persists a new invitation in the recruiting state. The message and
// thread IDs come from the already-created announcement post.
func (s *Service) Create(ctx context.Context, messageID, threadID, hostID, hostName string, in *CreateInput) (*Invitation, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	inv := &Invitation{
		ID:              messageID,
		ThreadID:        threadID,
		HostID:          hostID,
		HostName:        hostName,
		EventName:       in.EventName,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		WorldName:       in.WorldName,
		Tag:             in.Tag,
		Description:     in.Description,
		InstanceType:    in.InstanceType,
		MaxParticipants: in.MaxParticipants,
		Status:          StatusRecruiting,
	}
	if in.WorldLink != "" {
		inv.WorldLink = &in.WorldLink
	}
	if in.VRChatProfile != "" {
		inv.VRChatProfile = &in.VRChatProfile
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.log.Info("invitation created",
		zap.String("invitationId", inv.ID),
		zap.String("eventName", inv.EventName),
		zap.String("hostId", inv.HostID))

	return inv, nil
}

// Get retrieves an invitation, translating absence into ErrNotFound
func (s *Service) Get(ctx context.Context, id string) (*Invitation, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	return inv, nil
}

// Participants lists all participants in registration order
func (s *Service) Participants(ctx context.Context, id string) ([]*Participant, error) {
	return s.repo.GetParticipants(ctx, id)
}

// Counts tallies joined and interested for an invitation
func (s *Service) Counts(ctx context.Context, id string) (Counts, error) {
	return s.repo.CountParticipants(ctx, id)
}

// JoinResult reports the outcome of a successful join
type JoinResult struct {
	Invitation *Invitation
	BecameFull bool
}

// Join registers a user as a confirmed participant. A previous interested
// record is replaced rather than flipped in place, so registration order
// resets. Filling the last slot transitions the invitation to full.
func (s *Service) Join(ctx context.Context, id, userID, userName string) (*JoinResult, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status != StatusRecruiting {
		return nil, ErrNotRecruiting
	}

	existing, err := s.repo.GetParticipant(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == ParticipantJoined {
			return nil, ErrAlreadyJoined
		}
		if _, err := s.repo.RemoveParticipant(ctx, id, userID); err != nil {
			return nil, err
		}
	}

	inserted, err := s.repo.AddJoinedIfBelowCap(ctx, &Participant{
		InvitationID: id,
		UserID:       userID,
		UserName:     userName,
		Status:       ParticipantJoined,
	}, inv.MaxParticipants)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrCapacityReached
	}

	counts, err := s.repo.CountParticipants(ctx, id)
	if err != nil {
		return nil, err
	}

	becameFull := inv.IsFull(counts.Joined)
	if becameFull {
		if _, err := s.repo.UpdateStatusFrom(ctx, id, StatusRecruiting, StatusFull); err != nil {
			return nil, err
		}
	}

	s.log.Info("user joined invitation",
		zap.String("invitationId", id),
		zap.String("userId", userID),
		zap.Bool("becameFull", becameFull))

	inv, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JoinResult{Invitation: inv, BecameFull: becameFull}, nil
}

// MarkInterested registers a user's interest. Full invitations still accept
// interest markers; joined users cannot downgrade.
func (s *Service) MarkInterested(ctx context.Context, id, userID, userName string) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if inv.Status != StatusRecruiting && inv.Status != StatusFull {
		return ErrClosed
	}

	existing, err := s.repo.GetParticipant(ctx, id, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Status == ParticipantInterested {
			return ErrAlreadyInterested
		}
		return ErrAlreadyJoined
	}

	if err := s.repo.AddParticipant(ctx, &Participant{
		InvitationID: id,
		UserID:       userID,
		UserName:     userName,
		Status:       ParticipantInterested,
	}); err != nil {
		return err
	}

	s.log.Info("user marked as interested",
		zap.String("invitationId", id),
		zap.String("userId", userID))
	return nil
}

// CancelParticipation removes a user's participation record. When the removal
// frees a slot on a full invitation, the status reverts to recruiting.
// Returns true when the status reverted.
func (s *Service) CancelParticipation(ctx context.Context, id, userID string) (bool, error) {
	existing, err := s.repo.GetParticipant(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, ErrNotParticipant
	}

	if _, err := s.repo.RemoveParticipant(ctx, id, userID); err != nil {
		return false, err
	}

	reverted := false
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if inv != nil && inv.Status == StatusFull {
		counts, err := s.repo.CountParticipants(ctx, id)
		if err != nil {
			return false, err
		}
		if counts.Joined < inv.MaxParticipants {
			reverted, err = s.repo.UpdateStatusFrom(ctx, id, StatusFull, StatusRecruiting)
			if err != nil {
				return false, err
			}
		}
	}

	s.log.Info("user cancelled participation",
		zap.String("invitationId", id),
		zap.String("userId", userID),
		zap.Bool("reopened", reverted))
	return reverted, nil
}

// Edit applies a host's field changes to a non-terminal invitation
func (s *Service) Edit(ctx context.Context, id, actorID string, upd *UpdateInput) (*Invitation, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.HostID != actorID {
		s.log.Warn("non-host attempted to edit invitation",
			zap.String("invitationId", id),
			zap.String("userId", actorID),
			zap.String("hostId", inv.HostID))
		return nil, ErrNotHost
	}
	if inv.Status.Terminal() {
		return nil, ErrTerminal
	}

	if err := s.validate.Struct(upd); err != nil {
		return nil, err
	}
	start, end := inv.StartTime, inv.EndTime
	if upd.StartTime != nil {
		start = *upd.StartTime
	}
	if upd.EndTime != nil {
		end = *upd.EndTime
	}
	if !start.Before(end) {
		return nil, ErrScheduleOrder
	}

	if err := s.repo.Update(ctx, id, upd); err != nil {
		return nil, err
	}

	s.log.Info("invitation updated",
		zap.String("invitationId", id),
		zap.String("userId", actorID))
	return s.Get(ctx, id)
}

// CancelEvent transitions a non-terminal invitation to cancelled. Only the
// host may cancel, and the caller is expected to have collected an explicit
// confirmation first.
func (s *Service) CancelEvent(ctx context.Context, id, actorID string) (*Invitation, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.HostID != actorID {
		s.log.Warn("non-host attempted to cancel invitation",
			zap.String("invitationId", id),
			zap.String("userId", actorID),
			zap.String("hostId", inv.HostID))
		return nil, ErrNotHost
	}
	if inv.Status.Terminal() {
		return nil, ErrTerminal
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}

	s.log.Info("invitation cancelled",
		zap.String("invitationId", id),
		zap.String("userId", actorID))
	return s.Get(ctx, id)
}

// AssignStaff claims a group-instance invitation for a staff member,
// first-come-first-served. Losing the race returns ErrStaffAssigned together
// with the current record so callers can name the winner.
func (s *Service) AssignStaff(ctx context.Context, id, staffID, staffName string) (*Invitation, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.InstanceType != InstanceGroup {
		return nil, ErrNotGroupInstance
	}
	if inv.Status.Terminal() {
		return nil, ErrTerminal
	}

	claimed, err := s.repo.AssignStaff(ctx, id, staffID, staffName)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return current, ErrStaffAssigned
	}

	s.log.Info("staff assigned to invitation",
		zap.String("invitationId", id),
		zap.String("staffId", staffID),
		zap.String("staffName", staffName))
	return s.Get(ctx, id)
}

// SetInstanceLink stores the instance link submitted by the assigned staff
// member and returns the joined participants to notify.
func (s *Service) SetInstanceLink(ctx context.Context, id, actorID, link string) (*Invitation, []*Participant, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if inv.StaffID == nil || *inv.StaffID != actorID {
		s.log.Warn("non-assigned user attempted to set instance link",
			zap.String("invitationId", id),
			zap.String("userId", actorID))
		return nil, nil, ErrNotAssignedStaff
	}
	if !ValidInstanceLink(link) {
		return nil, nil, ErrInvalidLink
	}

	if err := s.repo.SetInstanceLink(ctx, id, link); err != nil {
		return nil, nil, err
	}

	parts, err := s.repo.GetParticipants(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	joined := make([]*Participant, 0, len(parts))
	for _, p := range parts {
		if p.Status == ParticipantJoined {
			joined = append(joined, p)
		}
	}

	s.log.Info("instance link set",
		zap.String("invitationId", id),
		zap.Int("notifyCount", len(joined)))

	inv, err = s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return inv, joined, nil
}

// RecordStaffMessage persists the staff notification message ID
func (s *Service) RecordStaffMessage(ctx context.Context, id, messageID string) error {
	return s.repo.SetStaffMessageID(ctx, id, messageID)
}

// AutoCloseDue transitions every open invitation past its end time to
// completed. A failure on one item is logged and does not abort the batch;
// the successfully closed invitations are returned for re-rendering.
func (s *Service) AutoCloseDue(ctx context.Context, now time.Time) ([]*Invitation, error) {
	due, err := s.repo.DueForAutoClose(ctx, now)
	if err != nil {
		return nil, err
	}

	closed := make([]*Invitation, 0, len(due))
	for _, inv := range due {
		if err := s.repo.UpdateStatus(ctx, inv.ID, StatusCompleted); err != nil {
			s.log.Error("failed to auto-close invitation",
				zap.String("invitationId", inv.ID),
				zap.Error(err))
			continue
		}
		inv.Status = StatusCompleted
		closed = append(closed, inv)
	}

	if len(closed) > 0 {
		s.log.Info("auto-close batch completed",
			zap.Int("due", len(due)),
			zap.Int("closed", len(closed)))
	}
	return closed, nil
}

// RemindersDue lists open invitations entering the reminder window
func (s *Service) RemindersDue(ctx context.Context, now time.Time, lead time.Duration) ([]*Invitation, error) {
	return s.repo.DueForReminder(ctx, now, lead)
}

// MarkReminded records that reminders for an invitation were sent
func (s *Service) MarkReminded(ctx context.Context, id string, at time.Time) error {
	return s.repo.MarkReminded(ctx, id, at)
}

// OpenCount reports how many invitations are still recruiting or full
func (s *Service) OpenCount(ctx context.Context) (int64, error) {
	return s.repo.CountOpen(ctx)
}
