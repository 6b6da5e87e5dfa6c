package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// ZenChannelID is the secondary (Zen mirror) channel. It is intentionally a
// constant: the channel is owned by the project and never changes per
// deployment.
const ZenChannelID int64 = -1002587431906

type Config struct {
	Bot_Token      string
	Channel_ID     int64
	Gemini_API_Key string
	Timezone       string
	Webhook_URL    string
	Webhook_Addr   string
	Review_Chat_ID int64

	BugSink_Enabled     bool
	BugSink_DSN         string
	BugSink_Environment string
	BugSink_Release     string
}

var config Config

func C() *Config {
	return &config
}

// Init loads configuration from environment variables. It returns an error
// when a mandatory variable is missing so that main can exit non-zero.
func Init() error {
	log.Println("[CONFIG] Loading configuration from environment")

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("WEBHOOK_ADDR", ":8080")
	v.SetDefault("BUGSINK_ENABLED", false)
	v.SetDefault("BUGSINK_ENVIRONMENT", "production")
	v.SetDefault("BUGSINK_RELEASE", "hrpulse@dev")

	config = Config{
		Bot_Token:      v.GetString("BOT_TOKEN"),
		Channel_ID:     v.GetInt64("CHANNEL_ID"),
		Gemini_API_Key: v.GetString("GEMINI_API_KEY"),
		Timezone:       v.GetString("TIMEZONE"),
		Webhook_URL:    v.GetString("WEBHOOK_URL"),
		Webhook_Addr:   v.GetString("WEBHOOK_ADDR"),
		Review_Chat_ID: v.GetInt64("REVIEW_CHAT_ID"),

		BugSink_Enabled:     v.GetBool("BUGSINK_ENABLED"),
		BugSink_DSN:         v.GetString("BUGSINK_DSN"),
		BugSink_Environment: v.GetString("BUGSINK_ENVIRONMENT"),
		BugSink_Release:     v.GetString("BUGSINK_RELEASE"),
	}

	if config.Bot_Token == "" {
		return fmt.Errorf("BOT_TOKEN environment variable is not set")
	}
	if config.Channel_ID == 0 {
		return fmt.Errorf("CHANNEL_ID environment variable is not set")
	}
	if config.Gemini_API_Key == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	if _, err := time.LoadLocation(config.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", config.Timezone, err)
	}

	log.Printf("[CONFIG] Configuration loaded successfully")
	log.Printf("[CONFIG] Primary channel: %d, timezone: %s", config.Channel_ID, config.Timezone)
	if config.Review_Chat_ID != 0 {
		log.Printf("[CONFIG] Review mode enabled, review chat: %d", config.Review_Chat_ID)
	}
	if config.Webhook_URL != "" {
		log.Printf("[CONFIG] Webhook URL configured")
	}

	return nil
}
