package staff

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/vrcmeet/meetbot/internal/config"
	"github.com/vrcmeet/meetbot/internal/invitation"
)

// Refresher re-renders an invitation's announcement message. Implemented by
// the invitation handler.
type Refresher interface {
	Refresh(s *discordgo.Session, id string)
}

// Handler wires the staff assignment flow to Discord interactions
type Handler struct {
	svc       *invitation.Service
	cfg       *config.Config
	refresher Refresher
	log       *zap.Logger
}

// NewHandler creates a new staff handler
func NewHandler(svc *invitation.Service, cfg *config.Config, refresher Refresher, log *zap.Logger) *Handler {
	return &Handler{
		svc:       svc,
		cfg:       cfg,
		refresher: refresher,
		log:       log.Named("staff"),
	}
}

// NotifyNewInvitation posts the assignment card to the staff channel when a
// group-instance event is created
func (h *Handler) NotifyNewInvitation(ctx context.Context, s *discordgo.Session, inv *invitation.Invitation) error {
	if !h.cfg.StaffNotificationEnabled || h.cfg.StaffChannelID == "" {
		return nil
	}

	msg, err := s.ChannelMessageSendComplex(h.cfg.StaffChannelID, &discordgo.MessageSend{
		Content:    fmt.Sprintf("<@&%s>", h.cfg.StaffRoleID),
		Embeds:     []*discordgo.MessageEmbed{NotificationEmbed(inv)},
		Components: NotificationComponents(inv),
	})
	if err != nil {
		return fmt.Errorf("failed to post staff notification: %w", err)
	}

	if err := h.svc.RecordStaffMessage(ctx, inv.ID, msg.ID); err != nil {
		h.log.Error("failed to record staff message id",
			zap.String("invitationId", inv.ID), zap.Error(err))
	}

	h.log.Info("staff notification posted",
		zap.String("invitationId", inv.ID),
		zap.String("messageId", msg.ID))
	return nil
}

// HandleAssign claims the event for the pressing staff member. The claim is
// first-come-first-served; losers are told who won.
func (h *Handler) HandleAssign(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDAssignPrefix)

	if !h.isStaff(i.Member) {
		h.respondEphemeral(s, i, "Only staff members can take events.")
		return
	}

	inv, err := h.svc.AssignStaff(context.Background(), id, memberUserID(i), memberName(i))
	if err != nil {
		if errors.Is(err, invitation.ErrStaffAssigned) && inv != nil && inv.StaffName != nil {
			h.respondEphemeral(s, i, fmt.Sprintf("%s beat you to it.", *inv.StaffName))
			h.updateNotification(s, i, inv)
			return
		}
		h.respondEphemeral(s, i, assignErrorMessage(err))
		return
	}

	h.respondEphemeral(s, i, "The event is yours. Press \"Add instance link\" once the instance is open.")
	h.dm(s, memberUserID(i), fmt.Sprintf(
		"You are now in charge of the group instance for **%s** (<t:%d:F>). Event post: <#%s>",
		inv.EventName, inv.StartTime.Unix(), inv.ThreadID))
	h.updateNotification(s, i, inv)
	h.refresher.Refresh(s, id)
}

// HandleAddLink opens the instance link modal for the assigned staff member
func (h *Handler) HandleAddLink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDAddLinkPrefix)

	inv, err := h.svc.Get(context.Background(), id)
	if err != nil {
		h.respondEphemeral(s, i, "This event no longer exists.")
		return
	}
	if inv.StaffID == nil || *inv.StaffID != memberUserID(i) {
		h.respondEphemeral(s, i, "Only the assigned staff member can add the link.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: LinkModal(id),
	})
	if err != nil {
		h.log.Error("failed to open link modal", zap.Error(err))
	}
}

// HandleLinkSubmit stores the instance link and DMs it to every joined
// participant. DM failures are logged and do not fail the submission.
func (h *Handler) HandleLinkSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	id := strings.TrimPrefix(data.CustomID, CustomIDLinkModal)

	link := strings.TrimSpace(linkValue(data))
	inv, joined, err := h.svc.SetInstanceLink(context.Background(), id, memberUserID(i), link)
	if err != nil {
		h.respondEphemeral(s, i, assignErrorMessage(err))
		return
	}

	sent := 0
	for _, p := range joined {
		if h.dm(s, p.UserID, fmt.Sprintf("The instance for **%s** is open! Join here:\n%s",
			inv.EventName, link)) {
			sent++
		}
	}

	h.respondEphemeral(s, i, fmt.Sprintf("Link saved. Sent it to %d of %d participants by DM.",
		sent, len(joined)))
	h.updateNotification(s, i, inv)
	h.refresher.Refresh(s, id)

	h.log.Info("instance link distributed",
		zap.String("invitationId", id),
		zap.Int("sent", sent),
		zap.Int("joined", len(joined)))
}

// updateNotification re-renders the staff-channel card the interaction came
// from
func (h *Handler) updateNotification(s *discordgo.Session, i *discordgo.InteractionCreate, inv *invitation.Invitation) {
	if inv.StaffMessageID == nil {
		return
	}
	components := NotificationComponents(inv)
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    i.ChannelID,
		ID:         *inv.StaffMessageID,
		Embeds:     &[]*discordgo.MessageEmbed{NotificationEmbed(inv)},
		Components: &components,
	})
	if err != nil {
		h.log.Warn("failed to update staff notification",
			zap.String("invitationId", inv.ID), zap.Error(err))
	}
}

func (h *Handler) isStaff(m *discordgo.Member) bool {
	return m != nil && slices.Contains(m.Roles, h.cfg.StaffRoleID)
}

func (h *Handler) dm(s *discordgo.Session, userID, content string) bool {
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		h.log.Warn("failed to open DM channel",
			zap.String("userId", userID), zap.Error(err))
		return false
	}
	if _, err := s.ChannelMessageSend(ch.ID, content); err != nil {
		h.log.Warn("failed to send instance link DM",
			zap.String("userId", userID), zap.Error(err))
		return false
	}
	return true
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

func assignErrorMessage(err error) string {
	switch {
	case errors.Is(err, invitation.ErrNotFound):
		return "This event no longer exists."
	case errors.Is(err, invitation.ErrNotGroupInstance):
		return "This event is not a group instance."
	case errors.Is(err, invitation.ErrTerminal):
		return "This event is already completed or cancelled."
	case errors.Is(err, invitation.ErrStaffAssigned):
		return "Another staff member already took this event."
	case errors.Is(err, invitation.ErrNotAssignedStaff):
		return "Only the assigned staff member can do that."
	case errors.Is(err, invitation.ErrInvalidLink):
		return "The instance link must start with " + invitation.InstanceLinkPrefix
	default:
		return "Something went wrong. Please try again."
	}
}

func memberUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	return ""
}

func memberName(i *discordgo.InteractionCreate) string {
	if i.Member == nil {
		return "unknown"
	}
	if i.Member.Nick != "" {
		return i.Member.Nick
	}
	if i.Member.User != nil {
		if i.Member.User.GlobalName != "" {
			return i.Member.User.GlobalName
		}
		return i.Member.User.Username
	}
	return "unknown"
}

func linkValue(data discordgo.ModalSubmitInteractionData) string {
	for _, row := range data.Components {
		if ar, ok := row.(*discordgo.ActionsRow); ok {
			for _, c := range ar.Components {
				if in, ok := c.(*discordgo.TextInput); ok && in.CustomID == "instance_link" {
					return in.Value
				}
			}
		}
	}
	return ""
}
