package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Oracle.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d", cfg.Oracle.TimeoutSeconds)
	}
	if cfg.Calendar.Timezone != "Asia/Kolkata" {
		t.Errorf("Timezone = %q", cfg.Calendar.Timezone)
	}
	if cfg.Engine.StepDelayMS != 1000 || cfg.Engine.SimulatedDelayMS != 2000 {
		t.Errorf("Engine = %+v", cfg.Engine)
	}

	name, p := cfg.GetDefaultProvider()
	if name != "gemini" || !p.Enabled {
		t.Errorf("default provider = %q %+v", name, p)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9100
oracle:
  timeout_seconds: 15
providers:
  gemini:
    enabled: false
  openai:
    model: gpt-4o-mini
    enabled: true
governance:
  deny_capabilities:
    - communication
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfig(path)
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Oracle.TimeoutSeconds != 15 {
		t.Errorf("TimeoutSeconds = %d", cfg.Oracle.TimeoutSeconds)
	}
	if len(cfg.Governance.DenyCapabilities) != 1 || cfg.Governance.DenyCapabilities[0] != "communication" {
		t.Errorf("DenyCapabilities = %v", cfg.Governance.DenyCapabilities)
	}

	name, p := cfg.GetDefaultProvider()
	if name != "openai" || p.Model != "gpt-4o-mini" {
		t.Errorf("default provider = %q %+v", name, p)
	}
}

func TestApplyEnvSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gm-test-key")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg.Providers["gemini"].APIKey != "gm-test-key" {
		t.Errorf("gemini key = %q", cfg.Providers["gemini"].APIKey)
	}
	if cfg.Messaging.SlackToken != "xoxb-test" {
		t.Errorf("slack token = %q", cfg.Messaging.SlackToken)
	}
	if cfg.Twilio.AccountSID != "AC123" {
		t.Errorf("twilio sid = %q", cfg.Twilio.AccountSID)
	}
}

func TestGetDefaultProviderNoneEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = map[string]ProviderConfig{
		"gemini": {Enabled: false},
	}
	name, _ := cfg.GetDefaultProvider()
	if name != "" {
		t.Errorf("name = %q", name)
	}
}
