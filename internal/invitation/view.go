package invitation

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Embed colors per status
const (
	colorRecruiting = 0x5865F2 // blurple
	colorFull       = 0xED4245 // red
	colorCompleted  = 0x57F287 // green
	colorCancelled  = 0x747F8D // gray
)

var tagEmoji = map[Tag]string{
	TagTourism:    "🗺️",
	TagGame:       "🎮",
	TagRelax:      "☕",
	TagPhotoshoot: "📸",
	TagEvent:      "🎉",
	TagOther:      "📝",
}

var instanceTypeDisplay = map[InstanceType]string{
	InstanceGroup:      "Group",
	InstanceFriend:     "Friend",
	InstanceFriendPlus: "Friend+",
	InstancePublic:     "Public",
}

var statusDisplay = map[Status]string{
	StatusRecruiting: "🟢 Recruiting",
	StatusFull:       "🔴 Full",
	StatusCompleted:  "⚫ Completed",
	StatusCancelled:  "❌ Cancelled",
}

// Custom ID prefixes for the invitation interaction surface
const (
	CustomIDJoinPrefix          = "invite_join_"
	CustomIDInterestedPrefix    = "invite_interested_"
	CustomIDCancelPrefix        = "invite_cancel_"
	CustomIDEditPrefix          = "invite_edit_"
	CustomIDCancelEventPrefix   = "invite_cancel_event_"
	CustomIDConfirmCancelPrefix = "confirm_cancel_"
	CustomIDDenyCancelPrefix    = "cancel_cancel_"
	CustomIDCreateButton        = "invitation_create"
	CustomIDCreateModal         = "invitation_create_modal"
	CustomIDDetailsButton       = "invitation_details"
	CustomIDDetailsModal        = "invitation_details_modal"
	CustomIDEditModalPrefix     = "invitation_edit_modal_"
)

// Embed renders an invitation and its participants into the announcement
// embed. Pure function: no session, no side effects.
func Embed(inv *Invitation, participants []*Participant) *discordgo.MessageEmbed {
	emoji, ok := tagEmoji[inv.Tag]
	if !ok {
		emoji = "📝"
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", emoji, inv.EventName),
		Description: inv.Description,
		Color:       embedColor(inv.Status),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Hosted by " + inv.HostName},
		Timestamp:   inv.CreatedAt.Format(time.RFC3339),
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: "⏰ Schedule",
		Value: fmt.Sprintf("<t:%d:F> ~ <t:%d:t>",
			inv.StartTime.Unix(), inv.EndTime.Unix()),
	})

	world := inv.WorldName
	if inv.WorldLink != nil {
		world = fmt.Sprintf("[%s](%s)", inv.WorldName, *inv.WorldLink)
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "🌍 World",
		Value: world,
	})

	var joined, interested []string
	for _, p := range participants {
		switch p.Status {
		case ParticipantJoined:
			joined = append(joined, p.UserName)
		case ParticipantInterested:
			interested = append(interested, p.UserName)
		}
	}

	display, ok := instanceTypeDisplay[inv.InstanceType]
	if !ok {
		display = string(inv.InstanceType)
	}
	status, ok := statusDisplay[inv.Status]
	if !ok {
		status = string(inv.Status)
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{
			Name:   "🔒 Instance",
			Value:  display,
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name:   "👥 Participants",
			Value:  fmt.Sprintf("%d/%d", len(joined), inv.MaxParticipants),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name:   "📊 Status",
			Value:  status,
			Inline: true,
		},
	)

	if len(joined) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "✅ Joined",
			Value: nameList(joined),
		})
	}
	if len(interested) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "💭 Interested",
			Value: nameList(interested),
		})
	}

	if inv.InstanceType == InstanceGroup && inv.StaffName != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "👤 Staff",
			Value: *inv.StaffName,
		})
	}
	if inv.InstanceLink != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🔗 Instance link",
			Value: fmt.Sprintf("[Click to join](%s)", *inv.InstanceLink),
		})
	}

	return embed
}

func embedColor(status Status) int {
	switch status {
	case StatusFull:
		return colorFull
	case StatusCompleted:
		return colorCompleted
	case StatusCancelled:
		return colorCancelled
	default:
		return colorRecruiting
	}
}

// nameList bullets names and truncates at the embed field value limit.
func nameList(names []string) string {
	list := "• " + strings.Join(names, "\n• ")
	if len(list) > 1024 {
		list = list[:1021] + "..."
	}
	return list
}

// ParticipantButtons builds the join/interested/cancel row. Join is disabled
// at capacity; everything is disabled once the invitation is terminal.
func ParticipantButtons(id string, status Status, isFull bool) discordgo.ActionsRow {
	disabled := status.Terminal()
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Join",
				Style:    discordgo.SuccessButton,
				CustomID: CustomIDJoinPrefix + id,
				Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
				Disabled: disabled || isFull,
			},
			discordgo.Button{
				Label:    "Interested",
				Style:    discordgo.PrimaryButton,
				CustomID: CustomIDInterestedPrefix + id,
				Emoji:    &discordgo.ComponentEmoji{Name: "💭"},
				Disabled: disabled,
			},
			discordgo.Button{
				Label:    "Cancel",
				Style:    discordgo.DangerButton,
				CustomID: CustomIDCancelPrefix + id,
				Emoji:    &discordgo.ComponentEmoji{Name: "❌"},
				Disabled: disabled,
			},
		},
	}
}

// HostButtons builds the edit/cancel-event row shown under every invitation
func HostButtons(id string, status Status) discordgo.ActionsRow {
	disabled := status.Terminal()
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Edit",
				Style:    discordgo.SecondaryButton,
				CustomID: CustomIDEditPrefix + id,
				Emoji:    &discordgo.ComponentEmoji{Name: "✏️"},
				Disabled: disabled,
			},
			discordgo.Button{
				Label:    "Cancel event",
				Style:    discordgo.DangerButton,
				CustomID: CustomIDCancelEventPrefix + id,
				Emoji:    &discordgo.ComponentEmoji{Name: "🗑️"},
				Disabled: disabled,
			},
		},
	}
}

// MessageComponents builds both button rows for an announcement message
func MessageComponents(id string, status Status, isFull bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		ParticipantButtons(id, status, isFull),
		HostButtons(id, status),
	}
}

// ConfirmCancelComponents builds the confirm/deny row for event cancellation
func ConfirmCancelComponents(id string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Yes, cancel it",
					Style:    discordgo.DangerButton,
					CustomID: CustomIDConfirmCancelPrefix + id,
				},
				discordgo.Button{
					Label:    "No",
					Style:    discordgo.SecondaryButton,
					CustomID: CustomIDDenyCancelPrefix + id,
				},
			},
		},
	}
}

func textInputRow(input discordgo.TextInput) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{input}}
}

// CreateModal builds the first creation page: the core event fields.
func CreateModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: CustomIDCreateModal,
		Title:    "Create a new event",
		Components: []discordgo.MessageComponent{
			textInputRow(discordgo.TextInput{
				CustomID:    "event_name",
				Label:       "Event name",
				Style:       discordgo.TextInputShort,
				Placeholder: "e.g. World hopping night",
				Required:    true,
				MaxLength:   200,
			}),
			textInputRow(discordgo.TextInput{
				CustomID:    "start_time",
				Label:       "Start time",
				Style:       discordgo.TextInputShort,
				Placeholder: "e.g. 2026-01-01T20:00",
				Required:    true,
			}),
			textInputRow(discordgo.TextInput{
				CustomID:    "end_time",
				Label:       "End time",
				Style:       discordgo.TextInputShort,
				Placeholder: "e.g. 2026-01-01T23:00",
				Required:    true,
			}),
			textInputRow(discordgo.TextInput{
				CustomID:    "world_name",
				Label:       "World name",
				Style:       discordgo.TextInputShort,
				Placeholder: "e.g. The Great Pug",
				Required:    true,
				MaxLength:   200,
			}),
			textInputRow(discordgo.TextInput{
				CustomID:    "description",
				Label:       "Description",
				Style:       discordgo.TextInputParagraph,
				Placeholder: "Tell people what to expect",
				Required:    true,
				MaxLength:   2000,
			}),
		},
	}
}

// DetailsModal builds the second creation page: world link, category,
// instance settings and capacity.
func DetailsModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: CustomIDDetailsModal,
		Title:    "Event details",
		Components: []discordgo.MessageComponent{
			textInputRow(discordgo.TextInput{
				CustomID:    "world_link",
				Label:       "World link (optional)",
				Style:       discordgo.TextInputShort,
				Placeholder: "https://vrchat.com/home/world/wrld_...",
				MaxLength:   500,
			}),
			textInputRow(discordgo.TextInput{
				CustomID:    "tag",
				Label:       "Category",
				Style:       discordgo.TextInputShort,
				Placeholder: "tourism / game / relax / photoshoot / event / other",
				Required:    true,
				MaxLength:   50,
			}),
			textInputRow(discordgo.TextInput{
				CustomID:    "instance_type",
				Label:       "Instance type",
				Style:       discordgo.TextInputShort,
				Placeholder: "group / friend / friendplus / public",
				Required:    true,
				MaxLength:   20,
			}),
			textInputRow(discordgo.TextInput{
				CustomID:    "vrchat_profile",
				Label:       "VRChat profile URL (friend/friend+ only)",
				Style:       discordgo.TextInputShort,
				Placeholder: "https://vrchat.com/home/user/usr_...",
				MaxLength:   500,
			}),
			textInputRow(discordgo.TextInput{
				CustomID:    "max_participants",
				Label:       "Max participants",
				Style:       discordgo.TextInputShort,
				Placeholder: "e.g. 20 (1-100)",
				Required:    true,
				MaxLength:   3,
			}),
		},
	}
}

// EditModal builds the edit page. Discord cannot pre-fill modal inputs, so
// the host re-enters the core fields.
func EditModal(id string) *discordgo.InteractionResponseData {
	data := CreateModal()
	data.CustomID = CustomIDEditModalPrefix + id
	data.Title = "Edit event"
	return data
}

// SetupButton builds the persistent "create invitation" button posted by
// the setup command.
func SetupButton() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Create invitation",
					Style:    discordgo.PrimaryButton,
					CustomID: CustomIDCreateButton,
					Emoji:    &discordgo.ComponentEmoji{Name: "📝"},
				},
			},
		},
	}
}
