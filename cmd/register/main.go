package main

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/vrcmeet/meetbot/internal/bot"
	"github.com/vrcmeet/meetbot/internal/config"
)

// One-shot registration of the guild slash commands. Run it once after
// deploying a command change; the gateway is not opened.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	if err := bot.RegisterCommands(session, cfg.AppID, cfg.GuildID); err != nil {
		log.Fatalf("register: %v", err)
	}

	fmt.Printf("registered %d commands for guild %s\n", len(bot.Commands()), cfg.GuildID)
}
