package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig                 `yaml:"app"`
	Server     ServerConfig              `yaml:"server"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Oracle     OracleConfig              `yaml:"oracle"`
	Engine     EngineConfig              `yaml:"engine"`
	Messaging  MessagingConfig           `yaml:"messaging"`
	Twilio     TwilioConfig              `yaml:"twilio"`
	Calendar   CalendarConfig            `yaml:"calendar"`
	Memory     MemoryConfig              `yaml:"memory"`
	Governance GovernanceConfig          `yaml:"governance"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	DocsDir string `yaml:"docs_dir"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type OracleConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PromptsDir     string `yaml:"prompts_dir"`
}

type EngineConfig struct {
	StepDelayMS      int `yaml:"step_delay_ms"`
	SimulatedDelayMS int `yaml:"simulated_delay_ms"`
}

type MessagingConfig struct {
	Backend       string `yaml:"backend"` // slack, telegram or discord
	SlackToken    string `yaml:"slack_token"`
	TelegramToken string `yaml:"telegram_token"`
	DiscordToken  string `yaml:"discord_token"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type CalendarConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	Timezone        string `yaml:"timezone"`
}

type MemoryConfig struct {
	Path string `yaml:"path"`
}

type GovernanceConfig struct {
	DenyCapabilities []string `yaml:"deny_capabilities"`
	DenyActions      []string `yaml:"deny_actions"`
}

func DefaultConfig() *Config {
	return &Config{
		App:    AppConfig{Name: "sutra", DocsDir: "docs"},
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Providers: map[string]ProviderConfig{
			"gemini": {Model: "gemini-2.0-flash", Enabled: true},
		},
		Oracle:    OracleConfig{TimeoutSeconds: 60},
		Engine:    EngineConfig{StepDelayMS: 1000, SimulatedDelayMS: 2000},
		Messaging: MessagingConfig{Backend: "slack"},
		Calendar: CalendarConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			Timezone:        "Asia/Kolkata",
		},
		Memory: MemoryConfig{Path: "sutra.db"},
	}
}

// LoadConfig reads path over the defaults. A missing file is fine; secrets
// always come from the environment when set.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("Config file %s not found, using defaults", path)
		applyEnv(cfg)
		return cfg
	}
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	setProviderKey := func(name, env string) {
		if v := os.Getenv(env); v != "" {
			p := cfg.Providers[name]
			p.APIKey = v
			cfg.Providers[name] = p
		}
	}
	setProviderKey("gemini", "GEMINI_API_KEY")
	setProviderKey("openai", "OPENAI_API_KEY")
	setProviderKey("openrouter", "OPENROUTER_API_KEY")

	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Messaging.SlackToken = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Messaging.TelegramToken = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		cfg.Messaging.DiscordToken = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_FROM_NUMBER"); v != "" {
		cfg.Twilio.FromNumber = v
	}
}

// GetDefaultProvider returns the first enabled provider, preferring gemini.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for _, name := range []string{"gemini", "openai", "openrouter"} {
		if p, ok := c.Providers[name]; ok && p.Enabled {
			return name, p
		}
	}
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// ListenAddr is the host:port the API server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
