package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/kavya5cloud/studyroom/internal/config"
)

type envConfig struct {
	Env                      string   `env:"ENV" envDefault:"production"`
	HTTPAddr                 string   `env:"HTTP_ADDR" envDefault:":8080"`
	AllowedOrigins           []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	DatabaseURL              string   `env:"DATABASE_URL,required"`
	NATSURL                  string   `env:"NATS_URL"`
	HeartbeatIntervalSec     int      `env:"HEARTBEAT_INTERVAL_SEC" envDefault:"30"`
	AssistantFunctionURL     string   `env:"ASSISTANT_FUNCTION_URL"`
	GeminiAPIKey             string   `env:"GEMINI_API_KEY"`
	GeminiModel              string   `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	AssistantTimeoutSec      int      `env:"ASSISTANT_TIMEOUT_SEC" envDefault:"30"`
	DiscordToken             string   `env:"DISCORD_TOKEN"`
	DiscordAnnounceChannelID string   `env:"DISCORD_ANNOUNCE_CHANNEL_ID"`
	AnnounceWebhookURL       string   `env:"ANNOUNCE_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                      raw.Env,
		HTTPAddr:                 raw.HTTPAddr,
		AllowedOrigins:           raw.AllowedOrigins,
		DatabaseURL:              raw.DatabaseURL,
		NATSURL:                  raw.NATSURL,
		HeartbeatIntervalSec:     raw.HeartbeatIntervalSec,
		AssistantFunctionURL:     raw.AssistantFunctionURL,
		GeminiAPIKey:             raw.GeminiAPIKey,
		GeminiModel:              raw.GeminiModel,
		AssistantTimeoutSec:      raw.AssistantTimeoutSec,
		DiscordToken:             raw.DiscordToken,
		DiscordAnnounceChannelID: raw.DiscordAnnounceChannelID,
		AnnounceWebhookURL:       raw.AnnounceWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
