package channel

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// TelegramConfig configures the source transport.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	PollTimeout int    `yaml:"pollTimeout"` // seconds
	// AllowFrom restricts relaying to these channels, given as numeric chat
	// ids or public usernames. Empty relays every channel the bot is in.
	AllowFrom []string `yaml:"allowFrom"`
	Debug     bool     `yaml:"debug"`

	// Bot API endpoints, printf patterns taking the token and the method or
	// file path. Overridden for self-hosted Bot API servers.
	APIEndpoint  string `yaml:"apiEndpoint"`
	FileEndpoint string `yaml:"fileEndpoint"`
}

func DefaultTelegramConfig() TelegramConfig {
	return TelegramConfig{
		PollTimeout:  30,
		AllowFrom:    []string{},
		APIEndpoint:  tgbotapi.APIEndpoint,
		FileEndpoint: tgbotapi.FileEndpoint,
	}
}
