package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrNotFound      = errors.New("ticket not found")
	ErrAlreadyClosed = errors.New("ticket is already closed")
	ErrNotPermitted  = errors.New("only the requester or staff may close a ticket")
	ErrAlreadyOpen   = errors.New("user already has an open ticket")
)

// CreateInput represents the request to open a ticket
type CreateInput struct {
	Category    Category `validate:"required,oneof=question trouble other"`
	Description string   `validate:"required,max=1000"`
}

// Service handles ticket business logic
type Service struct {
	repo          *Repository
	validate      *validator.Validate
	deletionDelay time.Duration
	log           *zap.Logger
}

// NewService creates a new ticket service
func NewService(repo *Repository, deletionDelay time.Duration, log *zap.Logger) *Service {
	return &Service{
		repo:          repo,
		validate:      validator.New(),
		deletionDelay: deletionDelay,
		log:           log.Named("ticket"),
	}
}

// ValidateInput checks a create input against the field rules
func (s *Service) ValidateInput(in *CreateInput) error {
	return s.validate.Struct(in)
}

// Create persists a new open ticket. The channel ID comes from the already
// created private channel. One open ticket per user.
func (s *Service) Create(ctx context.Context, channelID, userID, userName string, in *CreateInput) (*Ticket, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrAlreadyOpen
	}

	t := &Ticket{
		ID:          channelID,
		UserID:      userID,
		UserName:    userName,
		Category:    in.Category,
		Description: in.Description,
		Status:      StatusOpen,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info("ticket opened",
		zap.String("ticketId", t.ID),
		zap.String("userId", userID),
		zap.String("category", string(t.Category)))
	return t, nil
}

// HasOpenTicket reports whether the user already has an open ticket
func (s *Service) HasOpenTicket(ctx context.Context, userID string) (bool, error) {
	t, err := s.repo.GetOpenByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// Get retrieves a ticket, translating absence into ErrNotFound
func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// Close closes a ticket on behalf of actorID. Only the requester or a staff
// member may close; the channel deletion time is persisted so it survives a
// restart. Returns the closed ticket.
func (s *Service) Close(ctx context.Context, id, actorID string, actorIsStaff bool) (*Ticket, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != actorID && !actorIsStaff {
		s.log.Warn("unpermitted ticket close attempt",
			zap.String("ticketId", id),
			zap.String("userId", actorID))
		return nil, ErrNotPermitted
	}
	if t.Status == StatusClosed {
		return nil, ErrAlreadyClosed
	}

	now := time.Now()
	closed, err := s.repo.Close(ctx, id, actorID, now, now.Add(s.deletionDelay))
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, ErrAlreadyClosed
	}

	s.log.Info("ticket closed",
		zap.String("ticketId", id),
		zap.String("closedBy", actorID))
	return s.Get(ctx, id)
}

// DeletionsDue lists closed tickets whose channel should now be removed
func (s *Service) DeletionsDue(ctx context.Context, now time.Time) ([]*Ticket, error) {
	return s.repo.DueForDeletion(ctx, now)
}

// MarkDeleted records that a ticket's channel was removed
func (s *Service) MarkDeleted(ctx context.Context, id string) error {
	return s.repo.ClearDeletion(ctx, id)
}

// OpenTickets lists open tickets oldest first
func (s *Service) OpenTickets(ctx context.Context) ([]*Ticket, error) {
	return s.repo.ListOpen(ctx)
}

// OpenCount reports how many tickets are open
func (s *Service) OpenCount(ctx context.Context) (int64, error) {
	return s.repo.CountOpen(ctx)
}
