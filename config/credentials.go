package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const baseCredPath = "feeddigest/creds.toml"

// DefaultOpenRouterBaseURL points the OpenAI-compatible client at OpenRouter.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Credentials holds all application credentials
type Credentials struct {
	OpenRouter OpenRouterCredentials `toml:"openrouter"`
	Discord    DiscordCredentials    `toml:"discord"`
}

// OpenRouterCredentials holds the summarization API credentials
type OpenRouterCredentials struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"` // defaults to OpenRouter
	Model   string `toml:"model"`    // e.g., "openai/gpt-4o-mini"
}

// IsValid checks if summarizer credentials are fully populated
func (oc OpenRouterCredentials) IsValid() bool {
	return oc.APIKey != "" && oc.Model != ""
}

// DiscordCredentials holds the bot token and the DM destination
type DiscordCredentials struct {
	BotToken string `toml:"bot_token"`
	UserID   string `toml:"user_id"` // Discord snowflake of the user to DM
}

// IsValid checks if Discord credentials are fully populated
func (dc DiscordCredentials) IsValid() bool {
	return dc.BotToken != "" && dc.UserID != ""
}

// ReadCredentials reads credentials from the specified path
func ReadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, err
	}

	if _, err := toml.Decode(string(data), &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials at %s: %w", path, err)
	}

	return creds, nil
}

// WriteCredentials writes credentials to the specified path
func WriteCredentials(path string, creds Credentials) error {
	blob, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	basePath := filepath.Dir(path)
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return fmt.Errorf("failed to create credentials directory at '%s': %w", basePath, err)
	}

	// Write with restrictive permissions (only owner can read/write)
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file at '%s': %w", path, err)
	}

	return nil
}

// ApplyEnv overlays credentials from environment variables. Environment
// values win over the creds file so that .env deployments work without
// any creds.toml at all.
func (c *Credentials) ApplyEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.OpenRouter.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" {
		c.OpenRouter.BaseURL = v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		c.OpenRouter.Model = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Discord.BotToken = v
	}
	if v := os.Getenv("DISCORD_USER_ID"); v != "" {
		c.Discord.UserID = v
	}
	if c.OpenRouter.BaseURL == "" {
		c.OpenRouter.BaseURL = DefaultOpenRouterBaseURL
	}
}

// Validate reports every missing credential at once.
func (c Credentials) Validate() error {
	var errs []error
	if c.OpenRouter.APIKey == "" {
		errs = append(errs, errors.New("openrouter api_key is required (OPENROUTER_API_KEY)"))
	}
	if c.OpenRouter.Model == "" {
		errs = append(errs, errors.New("openrouter model is required (OPENROUTER_MODEL)"))
	}
	if c.Discord.BotToken == "" {
		errs = append(errs, errors.New("discord bot_token is required (DISCORD_BOT_TOKEN)"))
	}
	if c.Discord.UserID == "" {
		errs = append(errs, errors.New("discord user_id is required (DISCORD_USER_ID)"))
	}
	return errors.Join(errs...)
}

// DefaultCredentialsPath returns the default path for credentials file
func DefaultCredentialsPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return filepath.Join(xdgHome, baseCredPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", baseCredPath)
	}

	panic("unable to determine credentials file path")
}
