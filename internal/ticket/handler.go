package ticket

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/vrcmeet/meetbot/internal/config"
)

// Handler wires the ticket workflow to Discord interactions
type Handler struct {
	svc *Service
	cfg *config.Config
	log *zap.Logger
}

// NewHandler creates a new ticket handler
func NewHandler(svc *Service, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{
		svc: svc,
		cfg: cfg,
		log: log.Named("ticket.handler"),
	}
}

// HandleCreateButton opens the ticket modal
func (h *Handler) HandleCreateButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	open, err := h.svc.HasOpenTicket(context.Background(), interactionUserID(i))
	if err != nil {
		h.respondEphemeral(s, i, "Something went wrong. Please try again.")
		return
	}
	if open {
		h.respondEphemeral(s, i, "You already have an open ticket. Please use that one.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: CreateModal(),
	})
	if err != nil {
		h.log.Error("failed to open ticket modal", zap.Error(err))
	}
}

// HandleCreateModal opens the private channel and persists the ticket.
// The channel is visible only to the requester, staff, and the bot.
func (h *Handler) HandleCreateModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	in := &CreateInput{
		Category:    Category(strings.ToLower(strings.TrimSpace(modalValue(data, "category")))),
		Description: strings.TrimSpace(modalValue(data, "description")),
	}

	if err := h.svc.ValidateInput(in); err != nil {
		h.respondEphemeral(s, i, "Category must be one of: question, trouble, other. Description is required (max 1000 characters).")
		return
	}

	userID := interactionUserID(i)
	userName := interactionUserName(i)

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		h.log.Error("failed to defer ticket submit", zap.Error(err))
		return
	}

	ch, err := s.GuildChannelCreateComplex(h.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:     fmt.Sprintf("ticket-%s", strings.ToLower(userName)),
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: h.cfg.TicketCategoryID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				ID:   h.cfg.GuildID, // @everyone shares the guild ID
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			{
				ID:    userID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
			},
			{
				ID:    h.cfg.StaffRoleID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
			},
			{
				ID:    s.State.User.ID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels,
			},
		},
	})
	if err != nil {
		h.log.Error("failed to create ticket channel", zap.Error(err))
		h.followUpEphemeral(s, i, "Could not open a ticket channel. Please contact staff directly.")
		return
	}

	t, err := h.svc.Create(context.Background(), ch.ID, userID, userName, in)
	if err != nil {
		if errors.Is(err, ErrAlreadyOpen) {
			// Lost a race with the user's own double submit. Drop the
			// extra channel.
			if _, derr := s.ChannelDelete(ch.ID); derr != nil {
				h.log.Warn("failed to delete duplicate ticket channel", zap.Error(derr))
			}
			h.followUpEphemeral(s, i, fmt.Sprintf("You already have an open ticket: <#%s>", t.ID))
			return
		}
		h.log.Error("failed to persist ticket", zap.String("channelId", ch.ID), zap.Error(err))
		h.followUpEphemeral(s, i, "Could not save the ticket. Please try again.")
		return
	}

	_, err = s.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content:    fmt.Sprintf("<@%s> <@&%s>", userID, h.cfg.StaffRoleID),
		Embeds:     []*discordgo.MessageEmbed{OpeningEmbed(t)},
		Components: CloseComponents(t.ID),
	})
	if err != nil {
		h.log.Error("failed to post ticket opening message",
			zap.String("ticketId", t.ID), zap.Error(err))
	}

	h.followUpEphemeral(s, i, fmt.Sprintf("Your ticket is open: <#%s>", ch.ID))
}

// HandleClose closes the ticket and schedules the channel for deletion
func (h *Handler) HandleClose(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := strings.TrimPrefix(i.MessageComponentData().CustomID, CustomIDClosePrefix)

	t, err := h.svc.Close(context.Background(), id, interactionUserID(i), h.isStaff(i.Member))
	if err != nil {
		h.respondEphemeral(s, i, closeErrorMessage(err))
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("🔒 Ticket closed by <@%s>. This channel will be deleted in a few minutes.",
				interactionUserID(i)),
		},
	})
	if err != nil {
		h.log.Error("failed to respond to ticket close", zap.Error(err))
	}

	if _, err := s.ChannelEdit(t.ID, &discordgo.ChannelEdit{
		Name: "closed-" + strings.ToLower(t.UserName),
	}); err != nil {
		h.log.Warn("failed to rename closed ticket channel",
			zap.String("ticketId", t.ID), zap.Error(err))
	}
}

// SweepDeletions removes the channels of tickets whose deletion time has
// passed. Called periodically by the scheduler; an already-deleted channel
// is treated as done.
func (h *Handler) SweepDeletions(ctx context.Context, s *discordgo.Session) {
	due, err := h.svc.DeletionsDue(ctx, time.Now())
	if err != nil {
		h.log.Error("failed to list ticket deletions", zap.Error(err))
		return
	}

	for _, t := range due {
		if _, err := s.ChannelDelete(t.ID); err != nil {
			var rerr *discordgo.RESTError
			if !errors.As(err, &rerr) || rerr.Response == nil || rerr.Response.StatusCode != 404 {
				h.log.Error("failed to delete ticket channel",
					zap.String("ticketId", t.ID), zap.Error(err))
				continue
			}
		}
		if err := h.svc.MarkDeleted(ctx, t.ID); err != nil {
			h.log.Error("failed to mark ticket channel deleted",
				zap.String("ticketId", t.ID), zap.Error(err))
			continue
		}
		h.log.Info("ticket channel deleted", zap.String("ticketId", t.ID))
	}
}

func (h *Handler) isStaff(m *discordgo.Member) bool {
	return m != nil && slices.Contains(m.Roles, h.cfg.StaffRoleID)
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

func (h *Handler) followUpEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		h.log.Error("failed to send follow-up", zap.Error(err))
	}
}

func closeErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "This ticket no longer exists."
	case errors.Is(err, ErrAlreadyClosed):
		return "This ticket is already closed."
	case errors.Is(err, ErrNotPermitted):
		return "Only the requester or staff can close a ticket."
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
			return userDisplayName(i.Member.User)
		}
	}
	if i.User != nil {
		return userDisplayName(i.User)
	}
	return "unknown"
}

func userDisplayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		if ar, ok := row.(*discordgo.ActionsRow); ok {
			for _, c := range ar.Components {
				if in, ok := c.(*discordgo.TextInput); ok && in.CustomID == customID {
					return in.Value
				}
			}
		}
	}
	return ""
}
