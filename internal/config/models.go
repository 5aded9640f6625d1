package config

import (
	"fmt"
	"strings"
)

// AccountConfig holds the connection parameters for one monitored
// mailbox. Host, port, SSL and folder fall back to deterministic
// defaults when omitted; empty host is inferred from the address domain.
type AccountConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	UseSSL   bool   `mapstructure:"use_ssl"`
	Folder   string `mapstructure:"folder"`
}

// Addr returns the host:port dial address.
func (a AccountConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// FilterConfig holds the shared sender/subject filter rules. Skip
// digests every unread email regardless of the configured lists.
type FilterConfig struct {
	FromFilters     []string
	SubjectKeywords []string
	Skip            bool
}

// FetchConfig bounds one run's mailbox fetches.
type FetchConfig struct {
	MaxPerAccount int
	Lookback      string
	Timeout       string
}

// RSSConfig represents the feed polling configuration.
type RSSConfig struct {
	Enabled bool
	Feeds   []string
	Timeout string
}

// LLMConfig selects the completion provider and summarization mode.
type LLMConfig struct {
	Provider string
	PerItem  bool
	Timeout  string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// TwilioConfig represents the SMS provider credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	ToNumber   string
}

// NotifyConfig represents the delivery routing configuration.
type NotifyConfig struct {
	Method   string // "sms" or "email"
	Email    string // recipient for email delivery and SMS fallback
	SendFrom string // account to send summaries from; empty means first monitored
	SMTPHost string // explicit override of the IMAP→SMTP inference
	SMTPPort int
	Timeout  string
}

// LedgerConfig selects the seen-item store backend.
type LedgerConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// SchedulerConfig holds the optional jitter gate bounds.
type SchedulerConfig struct {
	JitterEnabled bool
	MinGap        string
	MaxGap        string
}

// GetAccounts returns every monitored mailbox with defaults applied.
func (c *Config) GetAccounts() []AccountConfig {
	var accounts []AccountConfig
	if err := c.v.UnmarshalKey("accounts", &accounts); err != nil {
		return nil
	}
	for i := range accounts {
		applyAccountDefaults(&accounts[i])
	}
	return accounts
}

func applyAccountDefaults(a *AccountConfig) {
	if a.Host == "" {
		a.Host = InferIMAPHost(a.Username)
	}
	if a.Port == 0 {
		a.Port = 993
		a.UseSSL = true
	}
	if a.Folder == "" {
		a.Folder = "INBOX"
	}
	// App passwords are often pasted with spaces (Yahoo formats them in
	// groups of four); servers reject them verbatim.
	a.Password = strings.ReplaceAll(a.Password, " ", "")
}

// InferIMAPHost maps a mailbox address to its provider's IMAP host.
// Known consumer domains map directly; anything else gets imap.<domain>.
func InferIMAPHost(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	domain := strings.ToLower(address[at+1:])
	switch domain {
	case "gmail.com":
		return "imap.gmail.com"
	case "outlook.com", "hotmail.com", "live.com":
		return "outlook.office365.com"
	case "yahoo.com", "yahoo.co.uk", "yahoo.co.jp", "ymail.com", "rocketmail.com":
		return "imap.mail.yahoo.com"
	default:
		return "imap." + domain
	}
}

// GetFilters returns the shared filter rules.
func (c *Config) GetFilters() FilterConfig {
	return FilterConfig{
		FromFilters:     c.GetStringSlice("filters.from"),
		SubjectKeywords: c.GetStringSlice("filters.subject_keywords"),
		Skip:            c.GetBool("filters.skip"),
	}
}

// GetFetch returns the fetch bounds.
func (c *Config) GetFetch() FetchConfig {
	return FetchConfig{
		MaxPerAccount: c.GetInt("fetch.max_per_account"),
		Lookback:      c.GetString("fetch.lookback"),
		Timeout:       c.GetString("fetch.timeout"),
	}
}

// GetRSS returns the feed polling configuration.
func (c *Config) GetRSS() RSSConfig {
	return RSSConfig{
		Enabled: c.GetBool("rss.enabled"),
		Feeds:   c.GetStringSlice("rss.feeds"),
		Timeout: c.GetString("rss.timeout"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		PerItem:  c.GetBool("llm.per_item"),
		Timeout:  c.GetString("llm.timeout"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
	}
}

// GetTwilio returns the Twilio configuration.
func (c *Config) GetTwilio() TwilioConfig {
	return TwilioConfig{
		AccountSID: c.GetString("twilio.account_sid"),
		AuthToken:  c.GetString("twilio.auth_token"),
		FromNumber: c.GetString("twilio.from_number"),
		ToNumber:   c.GetString("twilio.to_number"),
	}
}

// GetNotify returns the delivery routing configuration.
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		Method:   c.GetString("notify.method"),
		Email:    c.GetString("notify.email"),
		SendFrom: c.GetString("notify.send_from"),
		SMTPHost: c.GetString("notify.smtp_host"),
		SMTPPort: c.GetInt("notify.smtp_port"),
		Timeout:  c.GetString("notify.timeout"),
	}
}

// GetLedger returns the seen-item store configuration.
func (c *Config) GetLedger() LedgerConfig {
	return LedgerConfig{
		Type:       c.GetString("ledger.type"),
		SQLitePath: c.GetString("ledger.sqlite_path"),
		MySQLDSN:   c.GetString("ledger.mysql_dsn"),
	}
}

// GetScheduler returns the jitter gate configuration.
func (c *Config) GetScheduler() SchedulerConfig {
	return SchedulerConfig{
		JitterEnabled: c.GetBool("scheduler.jitter_enabled"),
		MinGap:        c.GetString("scheduler.min_gap"),
		MaxGap:        c.GetString("scheduler.max_gap"),
	}
}
