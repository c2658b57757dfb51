package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration
type Config struct {
	// Discord credentials and target guild
	BotToken string `validate:"required"`
	AppID    string `validate:"required"`
	GuildID  string `validate:"required"`

	// Channel and role identifiers
	InvitationForumChannelID string `validate:"required"`
	TicketCategoryID         string `validate:"required"`
	StaffRoleID              string `validate:"required"`
	MemberRoleID             string `validate:"required"`
	StaffChannelID           string
	LogChannelID             string

	// Database
	DatabaseURL      string `validate:"required"`
	DBPoolMin        int    `validate:"min=0"`
	DBPoolMax        int    `validate:"min=1"`
	DBConnectTimeout time.Duration

	// Feature toggles
	InvitationEnabled        bool
	TicketEnabled            bool
	AutoCloseEnabled         bool
	ReminderEnabled          bool
	StaffNotificationEnabled bool

	// Scheduling
	AutoCloseSchedule string `validate:"required"`
	ReminderSchedule  string `validate:"required"`
	AutoCloseWindow   time.Duration
	ReminderLead      time.Duration

	// Rate limiting
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	// Validation limits
	EventNameMaxLength   int `validate:"min=1"`
	WorldNameMaxLength   int `validate:"min=1"`
	DescriptionMaxLength int `validate:"min=1"`

	// Ticket channel deletion delay after close
	TicketDeletionDelay time.Duration

	// Logging
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFilePath string
	LogMaxSize  int
	LogMaxFiles int

	// Ops HTTP server
	OpsPort string
}

// Load reads configuration from environment variables and validates it.
// Missing required variables or out-of-range values fail startup.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken: getEnv("DISCORD_BOT_TOKEN", ""),
		AppID:    getEnv("DISCORD_CLIENT_ID", ""),
		GuildID:  getEnv("DISCORD_GUILD_ID", ""),

		InvitationForumChannelID: getEnv("INVITATION_FORUM_CHANNEL_ID", ""),
		TicketCategoryID:         getEnv("TICKET_CATEGORY_ID", ""),
		StaffRoleID:              getEnv("STAFF_ROLE_ID", ""),
		MemberRoleID:             getEnv("MEMBER_ROLE_ID", ""),
		StaffChannelID:           getEnv("DISCORD_STAFF_CHANNEL_ID", ""),
		LogChannelID:             getEnv("DISCORD_LOG_CHANNEL_ID", ""),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBPoolMin:        getEnvInt("DATABASE_POOL_MIN", 2),
		DBPoolMax:        getEnvInt("DATABASE_POOL_MAX", 10),
		DBConnectTimeout: time.Duration(getEnvInt("DATABASE_CONNECTION_TIMEOUT", 30000)) * time.Millisecond,

		InvitationEnabled:        getEnvBool("FEATURE_INVITATION_ENABLED", true),
		TicketEnabled:            getEnvBool("FEATURE_TICKET_ENABLED", true),
		AutoCloseEnabled:         getEnvBool("FEATURE_AUTO_CLOSE_ENABLED", true),
		ReminderEnabled:          getEnvBool("FEATURE_REMINDER_ENABLED", true),
		StaffNotificationEnabled: getEnvBool("FEATURE_STAFF_NOTIFICATION_ENABLED", true),

		AutoCloseSchedule: getEnv("CRON_AUTO_CLOSE_SCHEDULE", "0 * * * *"),
		ReminderSchedule:  getEnv("CRON_REMINDER_SCHEDULE", "0 9 * * *"),
		AutoCloseWindow:   time.Duration(getEnvInt("INVITATION_AUTO_CLOSE_HOURS", 24)) * time.Hour,
		ReminderLead:      time.Duration(getEnvInt("REMINDER_HOURS_BEFORE", 24)) * time.Hour,

		RateLimitWindow:      time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		RateLimitMaxRequests: getEnvInt("RATE_LIMIT_MAX_REQUESTS", 10),

		EventNameMaxLength:   getEnvInt("VALIDATION_EVENT_NAME_MAX_LENGTH", 200),
		WorldNameMaxLength:   getEnvInt("VALIDATION_WORLD_NAME_MAX_LENGTH", 200),
		DescriptionMaxLength: getEnvInt("VALIDATION_DESCRIPTION_MAX_LENGTH", 2000),

		TicketDeletionDelay: time.Duration(getEnvInt("TICKET_DELETION_DELAY_SECONDS", 300)) * time.Second,

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFilePath: getEnv("LOG_FILE_PATH", "./logs/bot.log"),
		LogMaxSize:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 14),

		OpsPort: getEnv("OPS_PORT", "8080"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
