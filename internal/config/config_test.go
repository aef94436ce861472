package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCapabilities(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantAI    bool
		wantVoice bool
		wantMail  bool
	}{
		{
			name:   "empty config disables everything",
			mutate: func(c *Config) {},
		},
		{
			name:   "real llm key enables ai",
			mutate: func(c *Config) { c.LLM.APIKey = "sk-real-key" },
			wantAI: true,
		},
		{
			name:   "placeholder llm key stays disabled",
			mutate: func(c *Config) { c.LLM.APIKey = "your-openai-api-key-here" },
		},
		{
			name:      "valid agent id enables voice",
			mutate:    func(c *Config) { c.Voice.AgentID = "agent_abc123" },
			wantVoice: true,
		},
		{
			name:   "agent id without prefix stays disabled",
			mutate: func(c *Config) { c.Voice.AgentID = "abc123" },
		},
		{
			name:   "placeholder agent id stays disabled",
			mutate: func(c *Config) { c.Voice.AgentID = "your-agent-id-here" },
		},
		{
			name: "mail requires host and from",
			mutate: func(c *Config) {
				c.Mail.Host = "smtp.example.com"
				c.Mail.From = "no-reply@example.com"
			},
			wantMail: true,
		},
		{
			name:   "mail host alone is not enough",
			mutate: func(c *Config) { c.Mail.Host = "smtp.example.com" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			tt.mutate(&cfg)
			caps := cfg.ResolveCapabilities()
			assert.Equal(t, tt.wantAI, caps.AIEnabled)
			assert.Equal(t, tt.wantVoice, caps.VoiceEnabled)
			assert.Equal(t, tt.wantMail, caps.MailEnabled)
		})
	}
}
