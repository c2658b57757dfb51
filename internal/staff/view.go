package staff

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/vrcmeet/meetbot/internal/invitation"
)

// Custom ID prefixes for the staff interaction surface
const (
	CustomIDAssignPrefix  = "staff_assign_"
	CustomIDAddLinkPrefix = "staff_add_link_"
	CustomIDLinkModal     = "instance_link_modal_"
)

const (
	colorPending     = 0xFEE75C // yellow
	colorAssigned    = 0x5865F2 // blurple
	colorProvisioned = 0x57F287 // green
)

// NotificationEmbed renders the staff-channel card for a group-instance
// event. Its color tracks the provisioning progress.
func NotificationEmbed(inv *invitation.Invitation) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🔔 Group instance needed",
		Description: fmt.Sprintf("**%s** needs a staff member to open a group instance.\nEvent post: <#%s>",
			inv.EventName, inv.ThreadID),
		Color: colorPending,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "⏰ Schedule",
				Value: fmt.Sprintf("<t:%d:F> ~ <t:%d:t>",
					inv.StartTime.Unix(), inv.EndTime.Unix()),
			},
			{Name: "🌍 World", Value: inv.WorldName, Inline: true},
			{Name: "👥 Capacity", Value: fmt.Sprintf("%d", inv.MaxParticipants), Inline: true},
			{Name: "🙋 Host", Value: inv.HostName, Inline: true},
		},
	}

	switch {
	case inv.InstanceLink != nil:
		embed.Color = colorProvisioned
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "✅ Instance",
			Value: fmt.Sprintf("Opened by %s\n%s", staffName(inv), *inv.InstanceLink),
		})
	case inv.StaffName != nil:
		embed.Color = colorAssigned
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "👤 Assigned",
			Value: *inv.StaffName,
		})
	}

	return embed
}

func staffName(inv *invitation.Invitation) string {
	if inv.StaffName != nil {
		return *inv.StaffName
	}
	return "staff"
}

// NotificationComponents builds the action row matching the provisioning
// state: claim first, then add the link, then nothing.
func NotificationComponents(inv *invitation.Invitation) []discordgo.MessageComponent {
	if inv.InstanceLink != nil {
		return []discordgo.MessageComponent{}
	}

	var button discordgo.Button
	if inv.StaffID == nil {
		button = discordgo.Button{
			Label:    "Take this",
			Style:    discordgo.PrimaryButton,
			CustomID: CustomIDAssignPrefix + inv.ID,
			Emoji:    &discordgo.ComponentEmoji{Name: "🙋"},
		}
	} else {
		button = discordgo.Button{
			Label:    "Add instance link",
			Style:    discordgo.SuccessButton,
			CustomID: CustomIDAddLinkPrefix + inv.ID,
			Emoji:    &discordgo.ComponentEmoji{Name: "🔗"},
		}
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{button}},
	}
}

// LinkModal builds the instance link entry form
func LinkModal(id string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: CustomIDLinkModal + id,
		Title:    "Instance link",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "instance_link",
						Label:       "Instance link",
						Style:       discordgo.TextInputShort,
						Placeholder: invitation.InstanceLinkPrefix + "wrld_...",
						Required:    true,
						MaxLength:   500,
					},
				},
			},
		},
	}
}
