package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Commands describes the guild slash commands the bot serves
func Commands() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	channelOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionChannel,
		Name:        "channel",
		Description: "Channel to post in (defaults to the current one)",
		ChannelTypes: []discordgo.ChannelType{
			discordgo.ChannelTypeGuildText,
		},
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "setup",
			Description:              "Post the persistent entry buttons",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "invite",
					Description: "Post the event creation button",
					Options:     []*discordgo.ApplicationCommandOption{channelOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "ticket",
					Description: "Post the ticket creation button",
					Options:     []*discordgo.ApplicationCommandOption{channelOption},
				},
			},
		},
		{
			Name:        "tickets",
			Description: "List open support tickets",
		},
	}
}

// RegisterCommands overwrites the guild's command set with the bot's commands
func RegisterCommands(s *discordgo.Session, appID, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}
