package invitation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vrcmeet/meetbot/internal/config"
)

// pendingTTL bounds how long a half-finished creation flow is kept.
const pendingTTL = 10 * time.Minute

// Notifier receives domain events that other features react to. The staff
// feature implements it to post assignment notifications.
type Notifier interface {
	NotifyNewInvitation(ctx context.Context, s *discordgo.Session, inv *Invitation) error
}

type pendingCreate struct {
	input     CreateInput
	createdAt time.Time
}

// Handler wires the invitation service to Discord interactions
type Handler struct {
	svc      *Service
	cfg      *config.Config
	notifier Notifier
	log      *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingCreate // keyed by user ID
}

// NewHandler creates a new invitation handler
func NewHandler(svc *Service, cfg *config.Config, notifier Notifier, log *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		cfg:      cfg,
		notifier: notifier,
		log:      log.Named("invitation.handler"),
		pending:  map[string]*pendingCreate{},
	}
}

// SetNotifier installs the notifier after construction. The staff handler
// needs the invitation handler to exist first, so wiring happens in two
// steps.
func (h *Handler) SetNotifier(n Notifier) {
	h.notifier = n
}

// HandleCreateButton opens the first creation modal. Hosting is limited to
// holders of the member role.
func (h *Handler) HandleCreateButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.isMember(i.Member) {
		h.respondEphemeral(s, i, "Only community members can host events.")
		return
	}
	h.respondModal(s, i, CreateModal())
}

func (h *Handler) isMember(m *discordgo.Member) bool {
	if h.cfg.MemberRoleID == "" {
		return true
	}
	if m == nil {
		return false
	}
	for _, role := range m.Roles {
		if role == h.cfg.MemberRoleID {
			return true
		}
	}
	return false
}

// HandleCreateModal stores the core fields and offers the details step.
// The two-step flow exists because a modal holds at most five inputs.
func (h *Handler) HandleCreateModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()

	start, err := ParseScheduleTime(modalValue(data, "start_time"))
	if err != nil {
		h.respondEphemeral(s, i, "Start time must look like 2026-01-01T20:00")
		return
	}
	end, err := ParseScheduleTime(modalValue(data, "end_time"))
	if err != nil {
		h.respondEphemeral(s, i, "End time must look like 2026-01-01T23:00")
		return
	}
	if !start.After(time.Now()) {
		h.respondEphemeral(s, i, "Start time must be in the future")
		return
	}
	if !end.After(start) {
		h.respondEphemeral(s, i, "End time must be after the start time")
		return
	}

	h.mu.Lock()
	h.prunePendingLocked()
	h.pending[interactionUserID(i)] = &pendingCreate{
		input: CreateInput{
			EventName:   strings.TrimSpace(modalValue(data, "event_name")),
			StartTime:   start,
			EndTime:     end,
			WorldName:   strings.TrimSpace(modalValue(data, "world_name")),
			Description: strings.TrimSpace(modalValue(data, "description")),
		},
		createdAt: time.Now(),
	}
	h.mu.Unlock()

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Almost there. Press the button to fill in the event details.",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Enter details",
							Style:    discordgo.PrimaryButton,
							CustomID: CustomIDDetailsButton,
						},
					},
				},
			},
		},
	})
	if err != nil {
		h.log.Error("failed to respond with details prompt", zap.Error(err))
	}
}

// HandleDetailsButton opens the second creation modal
func (h *Handler) HandleDetailsButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.mu.Lock()
	_, ok := h.pending[interactionUserID(i)]
	h.mu.Unlock()
	if !ok {
		h.respondEphemeral(s, i, "Your draft expired. Please start over from the create button.")
		return
	}
	h.respondModal(s, i, DetailsModal())
}

// HandleDetailsModal finishes creation: validates the combined input, opens
// the forum post, and persists the invitation keyed by the post's message ID.
func (h *Handler) HandleDetailsModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	h.mu.Lock()
	draft, ok := h.pending[userID]
	h.mu.Unlock()
	if !ok {
		h.respondEphemeral(s, i, "Your draft expired. Please start over from the create button.")
		return
	}

	data := i.ModalSubmitData()
	in := draft.input
	in.WorldLink = strings.TrimSpace(modalValue(data, "world_link"))
	in.Tag = Tag(strings.ToLower(strings.TrimSpace(modalValue(data, "tag"))))
	in.InstanceType = InstanceType(strings.ToLower(strings.TrimSpace(modalValue(data, "instance_type"))))
	in.VRChatProfile = strings.TrimSpace(modalValue(data, "vrchat_profile"))

	maxRaw := strings.TrimSpace(modalValue(data, "max_participants"))
	maxParticipants, err := strconv.Atoi(maxRaw)
	if err != nil {
		h.respondEphemeral(s, i, "Max participants must be a number between 1 and 100")
		return
	}
	in.MaxParticipants = maxParticipants

	if err := h.svc.ValidateInput(&in); err != nil {
		h.respondEphemeral(s, i, strings.Join(ValidationMessages(err), "\n"))
		return
	}

	// The announcement needs a message to exist before the invitation row,
	// so defer the reply and create the forum post first.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		h.log.Error("failed to defer details submit", zap.Error(err))
		return
	}

	hostName := interactionUserName(i)
	preview := &Invitation{
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
		CreatedAt:       time.Now(),
	}
	if in.WorldLink != "" {
		preview.WorldLink = &in.WorldLink
	}

	thread, err := s.ForumThreadStartComplex(h.cfg.InvitationForumChannelID,
		&discordgo.ThreadStart{
			Name:                in.EventName,
			AutoArchiveDuration: 1440,
			AppliedTags:         h.forumTagIDs(s, in.Tag),
		},
		&discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{Embed(preview, nil)},
			Components: MessageComponents("pending", StatusRecruiting, false),
		})
	if err != nil {
		h.log.Error("failed to create forum post", zap.Error(err))
		h.followUpEphemeral(s, i, "Could not create the forum post. Please try again.")
		return
	}

	// A forum post's starter message shares the thread's ID.
	inv, err := h.svc.Create(context.Background(), thread.ID, thread.ID, userID, hostName, &in)
	if err != nil {
		h.log.Error("failed to persist invitation",
			zap.String("threadId", thread.ID), zap.Error(err))
		h.followUpEphemeral(s, i, "Could not save the event. Please try again.")
		return
	}

	h.mu.Lock()
	delete(h.pending, userID)
	h.mu.Unlock()

	// Re-render with the real ID in the button custom IDs.
	h.Refresh(s, inv.ID)

	if inv.InstanceType == InstanceGroup && h.notifier != nil {
		if err := h.notifier.NotifyNewInvitation(context.Background(), s, inv); err != nil {
			h.log.Error("failed to notify staff of new invitation",
				zap.String("invitationId", inv.ID), zap.Error(err))
		}
	}

	h.audit(s, fmt.Sprintf("📅 %s created **%s** (<#%s>)", hostName, inv.EventName, thread.ID))
	h.followUpEphemeral(s, i, fmt.Sprintf("Your event is live: <#%s>", thread.ID))
}

// HandleJoin registers the user as a confirmed participant
func (h *Handler) HandleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDJoinPrefix)

	res, err := h.svc.Join(context.Background(), id, interactionUserID(i), interactionUserName(i))
	if err != nil {
		h.respondEphemeral(s, i, userMessage(err))
		return
	}

	h.respondEphemeral(s, i, joinConfirmation(res.Invitation))
	h.Refresh(s, id)
}

// joinConfirmation tells a new participant how they will get in.
func joinConfirmation(inv *Invitation) string {
	var b strings.Builder
	b.WriteString("You're in! 🎉")
	switch {
	case inv.InstanceLink != nil:
		fmt.Fprintf(&b, "\nInstance link: %s", *inv.InstanceLink)
	case inv.InstanceType == InstanceGroup:
		b.WriteString("\nThe instance link will be sent to you by DM once staff open the instance.")
	case inv.InstanceType.RequiresProfile() && inv.VRChatProfile != nil:
		fmt.Fprintf(&b, "\nSend the host a friend request so they can invite you: %s", *inv.VRChatProfile)
	}
	return b.String()
}

// HandleInterested marks the user as interested
func (h *Handler) HandleInterested(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDInterestedPrefix)

	err := h.svc.MarkInterested(context.Background(), id, interactionUserID(i), interactionUserName(i))
	if err != nil {
		h.respondEphemeral(s, i, userMessage(err))
		return
	}

	h.respondEphemeral(s, i, "Marked as interested. 💭 You can still join while slots are open.")
	h.Refresh(s, id)
}

// HandleCancelParticipation removes the user's participation record
func (h *Handler) HandleCancelParticipation(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDCancelPrefix)

	_, err := h.svc.CancelParticipation(context.Background(), id, interactionUserID(i))
	if err != nil {
		h.respondEphemeral(s, i, userMessage(err))
		return
	}

	h.respondEphemeral(s, i, "Your participation was cancelled.")
	h.Refresh(s, id)
}

// HandleEdit opens the edit modal for the host
func (h *Handler) HandleEdit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDEditPrefix)

	inv, err := h.svc.Get(context.Background(), id)
	if err != nil {
		h.respondEphemeral(s, i, userMessage(err))
		return
	}
	if inv.HostID != interactionUserID(i) {
		h.respondEphemeral(s, i, userMessage(ErrNotHost))
		return
	}
	if inv.Status.Terminal() {
		h.respondEphemeral(s, i, userMessage(ErrTerminal))
		return
	}

	h.respondModal(s, i, EditModal(id))
}

// HandleEditModal applies the host's changes. Blank fields keep their
// current values.
func (h *Handler) HandleEditModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	id := strings.TrimPrefix(data.CustomID, CustomIDEditModalPrefix)

	upd := &UpdateInput{}
	if v := strings.TrimSpace(modalValue(data, "event_name")); v != "" {
		upd.EventName = &v
	}
	if v := strings.TrimSpace(modalValue(data, "start_time")); v != "" {
		t, err := ParseScheduleTime(v)
		if err != nil {
			h.respondEphemeral(s, i, "Start time must look like 2026-01-01T20:00")
			return
		}
		upd.StartTime = &t
	}
	if v := strings.TrimSpace(modalValue(data, "end_time")); v != "" {
		t, err := ParseScheduleTime(v)
		if err != nil {
			h.respondEphemeral(s, i, "End time must look like 2026-01-01T23:00")
			return
		}
		upd.EndTime = &t
	}
	if v := strings.TrimSpace(modalValue(data, "world_name")); v != "" {
		upd.WorldName = &v
	}
	if v := strings.TrimSpace(modalValue(data, "description")); v != "" {
		upd.Description = &v
	}

	inv, err := h.svc.Edit(context.Background(), id, interactionUserID(i), upd)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.respondEphemeral(s, i, strings.Join(ValidationMessages(err), "\n"))
			return
		}
		h.respondEphemeral(s, i, userMessage(err))
		return
	}

	if upd.EventName != nil {
		if _, err := s.ChannelEdit(inv.ThreadID, &discordgo.ChannelEdit{Name: *upd.EventName}); err != nil {
			h.log.Warn("failed to rename thread",
				zap.String("invitationId", id), zap.Error(err))
		}
	}

	h.respondEphemeral(s, i, "Event updated.")
	h.Refresh(s, id)
}

// HandleCancelEvent asks the host to confirm before cancelling
func (h *Handler) HandleCancelEvent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDCancelEventPrefix)

	inv, err := h.svc.Get(context.Background(), id)
	if err != nil {
		h.respondEphemeral(s, i, userMessage(err))
		return
	}
	if inv.HostID != interactionUserID(i) {
		h.respondEphemeral(s, i, userMessage(ErrNotHost))
		return
	}
	if inv.Status.Terminal() {
		h.respondEphemeral(s, i, userMessage(ErrTerminal))
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    fmt.Sprintf("Cancel **%s**? Participants will be notified by DM.", inv.EventName),
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: ConfirmCancelComponents(id),
		},
	})
	if err != nil {
		h.log.Error("failed to respond with cancel confirmation", zap.Error(err))
	}
}

// HandleConfirmCancel cancels the event and notifies joined participants
func (h *Handler) HandleConfirmCancel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDConfirmCancelPrefix)

	ctx := context.Background()
	parts, err := h.svc.Participants(ctx, id)
	if err != nil {
		h.respondEphemeral(s, i, userMessage(err))
		return
	}

	inv, err := h.svc.CancelEvent(ctx, id, interactionUserID(i))
	if err != nil {
		h.respondEphemeral(s, i, userMessage(err))
		return
	}

	h.updateEphemeral(s, i, "The event was cancelled.")
	h.Refresh(s, id)

	for _, p := range parts {
		if p.Status != ParticipantJoined {
			continue
		}
		h.dm(s, p.UserID, fmt.Sprintf("**%s** on <t:%d:F> was cancelled by the host. Sorry!",
			inv.EventName, inv.StartTime.Unix()))
	}

	if _, err := s.ChannelEdit(inv.ThreadID, &discordgo.ChannelEdit{
		Archived: boolPtr(true),
		Locked:   boolPtr(true),
	}); err != nil {
		h.log.Warn("failed to archive cancelled thread",
			zap.String("invitationId", id), zap.Error(err))
	}

	h.audit(s, fmt.Sprintf("🗑️ **%s** was cancelled by its host", inv.EventName))
}

// HandleDenyCancel keeps the event
func (h *Handler) HandleDenyCancel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.updateEphemeral(s, i, "The event was kept.")
}

// Refresh re-renders an invitation's announcement message from the database
func (h *Handler) Refresh(s *discordgo.Session, id string) {
	ctx := context.Background()
	inv, err := h.svc.Get(ctx, id)
	if err != nil {
		h.log.Error("failed to load invitation for refresh",
			zap.String("invitationId", id), zap.Error(err))
		return
	}
	parts, err := h.svc.Participants(ctx, id)
	if err != nil {
		h.log.Error("failed to load participants for refresh",
			zap.String("invitationId", id), zap.Error(err))
		return
	}

	joined := 0
	for _, p := range parts {
		if p.Status == ParticipantJoined {
			joined++
		}
	}

	embed := Embed(inv, parts)
	components := MessageComponents(inv.ID, inv.Status, inv.IsFull(joined))
	_, err = s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    inv.ThreadID,
		ID:         inv.ID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	if err != nil {
		h.log.Error("failed to edit announcement message",
			zap.String("invitationId", id), zap.Error(err))
	}
}

// forumTagIDs resolves the forum's tag matching the event category, if the
// forum defines one with the same name.
func (h *Handler) forumTagIDs(s *discordgo.Session, tag Tag) []string {
	ch, err := s.Channel(h.cfg.InvitationForumChannelID)
	if err != nil {
		h.log.Warn("failed to fetch forum channel for tags", zap.Error(err))
		return nil
	}
	for _, t := range ch.AvailableTags {
		if strings.EqualFold(t.Name, string(tag)) {
			return []string{t.ID}
		}
	}
	return nil
}

func (h *Handler) prunePendingLocked() {
	cutoff := time.Now().Add(-pendingTTL)
	for userID, p := range h.pending {
		if p.createdAt.Before(cutoff) {
			delete(h.pending, userID)
		}
	}
}

// audit posts a one-line activity note to the log channel, when configured
func (h *Handler) audit(s *discordgo.Session, content string) {
	if h.cfg.LogChannelID == "" {
		return
	}
	if _, err := s.ChannelMessageSend(h.cfg.LogChannelID, content); err != nil {
		h.log.Warn("failed to post audit message", zap.Error(err))
	}
}

func (h *Handler) dm(s *discordgo.Session, userID, content string) {
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		h.log.Warn("failed to open DM channel",
			zap.String("userId", userID), zap.Error(err))
		return
	}
	if _, err := s.ChannelMessageSend(ch.ID, content); err != nil {
		h.log.Warn("failed to send DM",
			zap.String("userId", userID), zap.Error(err))
	}
}

func (h *Handler) respondModal(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
	if err != nil {
		h.log.Error("failed to open modal", zap.Error(err))
	}
}

func (h *Handler) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.log.Error("failed to respond to interaction", zap.Error(err))
	}
}

// updateEphemeral replaces the originating ephemeral message, dropping its
// buttons.
func (h *Handler) updateEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		h.log.Error("failed to update interaction message", zap.Error(err))
	}
}

func (h *Handler) followUpEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		h.log.Error("failed to send follow-up", zap.Error(err))
	}
}

// userMessage translates service errors into the text shown to the user
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "This event no longer exists."
	case errors.Is(err, ErrNotRecruiting):
		return "This event is not accepting participants."
	case errors.Is(err, ErrClosed):
		return "This event is no longer active."
	case errors.Is(err, ErrAlreadyJoined):
		return "You have already joined this event."
	case errors.Is(err, ErrAlreadyInterested):
		return "You are already marked as interested."
	case errors.Is(err, ErrCapacityReached):
		return "Sorry, the event filled up just now."
	case errors.Is(err, ErrNotParticipant):
		return "You have not joined this event."
	case errors.Is(err, ErrNotHost):
		return "Only the host can do that."
	case errors.Is(err, ErrTerminal):
		return "This event is already completed or cancelled."
	case errors.Is(err, ErrNotGroupInstance):
		return "This event is not a group instance."
	case errors.Is(err, ErrStaffAssigned):
		return "Another staff member already took this event."
	case errors.Is(err, ErrNotAssignedStaff):
		return "Only the assigned staff member can do that."
	case errors.Is(err, ErrInvalidLink):
		return "The instance link must start with " + InstanceLinkPrefix
	case errors.Is(err, ErrScheduleOrder):
		return "End time must be after the start time."
	default:
		return "Something went wrong. Please try again."
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func interactionUserName(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			return displayName(i.Member.User)
		}
	}
	if i.User != nil {
		return displayName(i.User)
	}
	return "unknown"
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if in, ok := c.(*discordgo.TextInput); ok && in.CustomID == customID {
				return in.Value
			}
		}
	}
	return ""
}

func boolPtr(b bool) *bool { return &b }
