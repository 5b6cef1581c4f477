package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env                      string
	HTTPAddr                 string
	AllowedOrigins           []string
	DatabaseURL              string
	NATSURL                  string
	HeartbeatIntervalSec     int
	AssistantFunctionURL     string
	GeminiAPIKey             string
	GeminiModel              string
	AssistantTimeoutSec      int
	DiscordToken             string
	DiscordAnnounceChannelID string
	AnnounceWebhookURL       string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.HeartbeatIntervalSec <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL_SEC must be positive, got %d", c.HeartbeatIntervalSec)
	}
	if c.AssistantTimeoutSec <= 0 {
		return fmt.Errorf("ASSISTANT_TIMEOUT_SEC must be positive, got %d", c.AssistantTimeoutSec)
	}
	if c.AssistantFunctionURL == "" && c.GeminiAPIKey == "" {
		return fmt.Errorf("either ASSISTANT_FUNCTION_URL or GEMINI_API_KEY is required")
	}
	if (c.DiscordToken == "") != (c.DiscordAnnounceChannelID == "") {
		return fmt.Errorf("DISCORD_TOKEN and DISCORD_ANNOUNCE_CHANNEL_ID must be set together")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSec) * time.Second
}

func (c *Config) AssistantTimeout() time.Duration {
	return time.Duration(c.AssistantTimeoutSec) * time.Second
}

// UsesNATS reports whether room broadcasts go through a NATS server instead of the
// in-process hub.
func (c *Config) UsesNATS() bool {
	return c.NATSURL != ""
}
