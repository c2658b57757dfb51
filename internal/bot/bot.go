package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/vrcmeet/meetbot/internal/config"
	"github.com/vrcmeet/meetbot/internal/invitation"
	"github.com/vrcmeet/meetbot/internal/staff"
	"github.com/vrcmeet/meetbot/internal/ticket"
)

// Bot owns the Discord session and routes interactions to the feature
// handlers
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config
	log     *zap.Logger

	invH    *invitation.Handler
	staffH  *staff.Handler
	ticketH *ticket.Handler
	tickets *ticket.Service
}

// New builds the session and wires the interaction router. The session is
// not opened yet; call Open.
func New(
	cfg *config.Config,
	invH *invitation.Handler,
	staffH *staff.Handler,
	ticketH *ticket.Handler,
	tickets *ticket.Service,
	log *zap.Logger,
) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages

	b := &Bot{
		session: session,
		cfg:     cfg,
		log:     log.Named("bot"),
		invH:    invH,
		staffH:  staffH,
		ticketH: ticketH,
		tickets: tickets,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)

	return b, nil
}

// Session exposes the underlying Discord session
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Open connects the gateway
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	return nil
}

// Close disconnects the gateway
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("gateway ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
}

// onInteraction dispatches every interaction by type and custom ID
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in interaction handler",
				zap.Any("panic", r),
				zap.Uint8("type", uint8(i.Type)))
			b.respondEphemeral(s, i, "Something went wrong. Please try again.")
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.routeCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.routeComponent(s, i, i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		b.routeModal(s, i, i.ModalSubmitData().CustomID)
	}
}

func (b *Bot) routeCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "setup":
		if len(data.Options) == 0 {
			return
		}
		sub := data.Options[0]
		target := i.ChannelID
		for _, opt := range sub.Options {
			if opt.Name == "channel" {
				target = opt.ChannelValue(nil).ID
			}
		}
		switch sub.Name {
		case "invite":
			b.handleSetupInvite(s, i, target)
		case "ticket":
			b.handleSetupTicket(s, i, target)
		}
	case "tickets":
		b.handleListTickets(s, i)
	}
}

// routeComponent matches button custom IDs. Longer prefixes are matched
// before prefixes they contain, so invite_cancel_event_ must come before
// invite_cancel_.
func (b *Bot) routeComponent(s *discordgo.Session, i *discordgo.InteractionCreate, id string) {
	switch {
	case id == invitation.CustomIDCreateButton:
		if b.invitationEnabled(s, i) {
			b.invH.HandleCreateButton(s, i)
		}
	case id == invitation.CustomIDDetailsButton:
		if b.invitationEnabled(s, i) {
			b.invH.HandleDetailsButton(s, i)
		}
	case id == ticket.CustomIDCreateButton:
		if b.ticketEnabled(s, i) {
			b.ticketH.HandleCreateButton(s, i)
		}
	case strings.HasPrefix(id, invitation.CustomIDCancelEventPrefix):
		b.invH.HandleCancelEvent(s, i)
	case strings.HasPrefix(id, invitation.CustomIDJoinPrefix):
		b.invH.HandleJoin(s, i)
	case strings.HasPrefix(id, invitation.CustomIDInterestedPrefix):
		b.invH.HandleInterested(s, i)
	case strings.HasPrefix(id, invitation.CustomIDCancelPrefix):
		b.invH.HandleCancelParticipation(s, i)
	case strings.HasPrefix(id, invitation.CustomIDEditPrefix):
		b.invH.HandleEdit(s, i)
	case strings.HasPrefix(id, invitation.CustomIDConfirmCancelPrefix):
		b.invH.HandleConfirmCancel(s, i)
	case strings.HasPrefix(id, invitation.CustomIDDenyCancelPrefix):
		b.invH.HandleDenyCancel(s, i)
	case strings.HasPrefix(id, staff.CustomIDAssignPrefix):
		b.staffH.HandleAssign(s, i)
	case strings.HasPrefix(id, staff.CustomIDAddLinkPrefix):
		b.staffH.HandleAddLink(s, i)
	case strings.HasPrefix(id, ticket.CustomIDClosePrefix):
		b.ticketH.HandleClose(s, i)
	default:
		b.log.Debug("unrouted component interaction", zap.String("customId", id))
	}
}

func (b *Bot) routeModal(s *discordgo.Session, i *discordgo.InteractionCreate, id string) {
	switch {
	case id == invitation.CustomIDCreateModal:
		b.invH.HandleCreateModal(s, i)
	case id == invitation.CustomIDDetailsModal:
		b.invH.HandleDetailsModal(s, i)
	case id == ticket.CustomIDCreateModal:
		b.ticketH.HandleCreateModal(s, i)
	case strings.HasPrefix(id, invitation.CustomIDEditModalPrefix):
		b.invH.HandleEditModal(s, i)
	case strings.HasPrefix(id, staff.CustomIDLinkModal):
		b.staffH.HandleLinkSubmit(s, i)
	default:
		b.log.Debug("unrouted modal interaction", zap.String("customId", id))
	}
}

// handleSetupInvite posts the persistent event creation button
func (b *Bot) handleSetupInvite(s *discordgo.Session, i *discordgo.InteractionCreate, channelID string) {
	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "📅 Host an event",
			Description: "Press the button below to schedule a meetup. You will be asked for the event details in two short forms.",
			Color:       0x5865F2,
		}},
		Components: invitation.SetupButton(),
	})
	if err != nil {
		b.log.Error("failed to post invite setup message", zap.Error(err))
		b.respondEphemeral(s, i, "Could not post the setup message here.")
		return
	}
	b.respondEphemeral(s, i, fmt.Sprintf("Event creation button posted in <#%s>.", channelID))
}

// handleSetupTicket posts the persistent ticket creation button
func (b *Bot) handleSetupTicket(s *discordgo.Session, i *discordgo.InteractionCreate, channelID string) {
	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🎫 Need help?",
			Description: "Press the button below to open a private support ticket with the staff team.",
			Color:       0x5865F2,
		}},
		Components: ticket.SetupButton(),
	})
	if err != nil {
		b.log.Error("failed to post ticket setup message", zap.Error(err))
		b.respondEphemeral(s, i, "Could not post the setup message here.")
		return
	}
	b.respondEphemeral(s, i, fmt.Sprintf("Ticket creation button posted in <#%s>.", channelID))
}

// handleListTickets shows staff the open tickets, oldest first
func (b *Bot) handleListTickets(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isStaff(i.Member) {
		b.respondEphemeral(s, i, "Only staff members can list tickets.")
		return
	}

	open, err := b.tickets.OpenTickets(context.Background())
	if err != nil {
		b.log.Error("failed to list open tickets", zap.Error(err))
		b.respondEphemeral(s, i, "Could not load the ticket list.")
		return
	}
	if len(open) == 0 {
		b.respondEphemeral(s, i, "No open tickets. 🎉")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%d open ticket(s):**\n", len(open))
	for _, t := range open {
		fmt.Fprintf(&sb, "• <#%s> — %s by %s, opened <t:%d:R>\n",
			t.ID, t.Category, t.UserName, t.CreatedAt.Unix())
	}
	b.respondEphemeral(s, i, sb.String())
}

func (b *Bot) invitationEnabled(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if b.cfg.InvitationEnabled {
		return true
	}
	b.respondEphemeral(s, i, "Event creation is temporarily disabled.")
	return false
}

func (b *Bot) ticketEnabled(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if b.cfg.TicketEnabled {
		return true
	}
	b.respondEphemeral(s, i, "Tickets are temporarily disabled.")
	return false
}

func (b *Bot) isStaff(m *discordgo.Member) bool {
	if m == nil {
		return false
	}
	for _, role := range m.Roles {
		if role == b.cfg.StaffRoleID {
			return true
		}
	}
	return false
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Error("failed to respond to interaction", zap.Error(err))
	}
}
