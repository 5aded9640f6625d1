package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// MissingFieldsError reports every mandatory setting absent from the
// configuration, so a single failed startup names all of them at once.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Fields, ", "))
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/inbox-digest/")
	v.AddConfigPath("$HOME/.inbox-digest")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("INBOX_DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	cfg := &Config{v: v}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewFromViper creates a new configuration instance from an existing Viper
// instance. No validation is applied; intended for tests and tooling.
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Fetch defaults
	v.SetDefault("fetch.max_per_account", 10)
	v.SetDefault("fetch.lookback", "15m")
	v.SetDefault("fetch.timeout", "30s")

	// Filter defaults (empty means pass-through)
	v.SetDefault("filters.from", []string{})
	v.SetDefault("filters.subject_keywords", []string{})
	v.SetDefault("filters.skip", false)

	// RSS defaults
	v.SetDefault("rss.enabled", false)
	v.SetDefault("rss.feeds", []string{})
	v.SetDefault("rss.timeout", "30s")

	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.per_item", true)
	v.SetDefault("llm.timeout", "60s")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.2)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.2)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.2)

	// Twilio defaults
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from_number", "")
	v.SetDefault("twilio.to_number", "")

	// Notification defaults
	v.SetDefault("notify.method", "sms")
	v.SetDefault("notify.email", "")
	v.SetDefault("notify.send_from", "")
	v.SetDefault("notify.smtp_host", "")
	v.SetDefault("notify.smtp_port", 0)
	v.SetDefault("notify.timeout", "30s")

	// Ledger defaults
	v.SetDefault("ledger.type", "sqlite")
	v.SetDefault("ledger.sqlite_path", "/data/inbox_digest.db")
	v.SetDefault("ledger.mysql_dsn", "user:password@tcp(localhost:3306)/inbox_digest")

	// Scheduler defaults (cron drives runs; the jitter gate is opt-in)
	v.SetDefault("scheduler.jitter_enabled", false)
	v.SetDefault("scheduler.min_gap", "30m")
	v.SetDefault("scheduler.max_gap", "120m")

	// Admin server defaults
	v.SetDefault("admin.listen_address", "0.0.0.0:8085")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that every mandatory field is present, collecting all
// missing ones into a single MissingFieldsError.
func (c *Config) Validate() error {
	var missing []string

	accounts := c.GetAccounts()
	if len(accounts) == 0 {
		missing = append(missing, "accounts (at least one monitored mailbox)")
	}
	for i, acc := range accounts {
		if acc.Username == "" {
			missing = append(missing, fmt.Sprintf("accounts[%d].username", i))
		}
		if acc.Password == "" {
			missing = append(missing, fmt.Sprintf("accounts[%d].password", i))
		}
	}

	if c.GetString("notify.method") == "sms" {
		tw := c.GetTwilio()
		if tw.AccountSID == "" {
			missing = append(missing, "twilio.account_sid")
		}
		if tw.AuthToken == "" {
			missing = append(missing, "twilio.auth_token")
		}
		if tw.FromNumber == "" {
			missing = append(missing, "twilio.from_number")
		}
		if tw.ToNumber == "" {
			missing = append(missing, "twilio.to_number")
		}
	}

	switch c.GetString("llm.provider") {
	case "openai":
		if c.GetString("openai.api_key") == "" {
			missing = append(missing, "openai.api_key")
		}
	case "gemini":
		if c.GetString("gemini.api_key") == "" {
			missing = append(missing, "gemini.api_key")
		}
	}

	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
