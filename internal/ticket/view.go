package ticket

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Custom ID prefixes for the ticket interaction surface
const (
	CustomIDCreateButton = "ticket_create"
	CustomIDCreateModal  = "ticket_create_modal"
	CustomIDClosePrefix  = "ticket_close_"
)

var categoryDisplay = map[Category]string{
	CategoryQuestion: "❓ Question",
	CategoryTrouble:  "⚠️ Trouble",
	CategoryOther:    "📝 Other",
}

// SetupButton builds the persistent "open a ticket" button posted by the
// setup command.
func SetupButton() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Open a ticket",
					Style:    discordgo.PrimaryButton,
					CustomID: CustomIDCreateButton,
					Emoji:    &discordgo.ComponentEmoji{Name: "📩"},
				},
			},
		},
	}
}

// CreateModal builds the ticket entry form
func CreateModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: CustomIDCreateModal,
		Title:    "Open a support ticket",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "category",
						Label:       "Category",
						Style:       discordgo.TextInputShort,
						Placeholder: "question / trouble / other",
						Required:    true,
						MaxLength:   20,
					},
				},
			},
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "description",
						Label:       "What do you need help with?",
						Style:       discordgo.TextInputParagraph,
						Required:    true,
						MaxLength:   1000,
					},
				},
			},
		},
	}
}

// OpeningEmbed renders the first message of a ticket channel
func OpeningEmbed(t *Ticket) *discordgo.MessageEmbed {
	category, ok := categoryDisplay[t.Category]
	if !ok {
		category = string(t.Category)
	}
	return &discordgo.MessageEmbed{
		Title:       "🎫 Support ticket",
		Description: "Staff will be with you shortly. Close the ticket when your issue is resolved.",
		Color:       0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Requester", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
			{Name: "Category", Value: category, Inline: true},
			{Name: "Details", Value: t.Description},
		},
		Timestamp: t.CreatedAt.Format(time.RFC3339),
	}
}

// CloseComponents builds the close button for a ticket channel
func CloseComponents(id string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Close ticket",
					Style:    discordgo.DangerButton,
					CustomID: CustomIDClosePrefix + id,
					Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
				},
			},
		},
	}
}
