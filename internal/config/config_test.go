package config

import (
	"testing"
	"time"
)

func baseConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:         "gemini",
			Model:            "gemini-2.0-flash",
			Timeout:          60 * time.Second,
			APIKey:           "global-key",
			MaxRetries:       3,
			Temperature:      0.7,
			UseSystemPrompts: true,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
			TLS:  TLSConfig{Mode: "disabled"},
		},
		App: AppConfig{
			LogLevel:      "info",
			MaxUploadSize: 10 * 1024 * 1024,
		},
		Session: SessionConfig{
			Backend:     "file",
			StorageRoot: "/tmp/resumelift-test",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing server port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: true,
		},
		{
			name:    "zero AI timeout",
			mutate:  func(c *Config) { c.AI.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "unknown session backend",
			mutate:  func(c *Config) { c.Session.Backend = "redis" },
			wantErr: true,
		},
		{
			name: "file backend without storage root",
			mutate: func(c *Config) {
				c.Session.Backend = "file"
				c.Session.StorageRoot = ""
			},
			wantErr: true,
		},
		{
			name: "memory backend without storage root",
			mutate: func(c *Config) {
				c.Session.Backend = "memory"
				c.Session.StorageRoot = ""
			},
			wantErr: false,
		},
		{
			name:    "non-positive upload size",
			mutate:  func(c *Config) { c.App.MaxUploadSize = 0 },
			wantErr: true,
		},
		{
			name: "tls server mode without cert",
			mutate: func(c *Config) {
				c.Server.TLS.Mode = "server"
			},
			wantErr: true,
		},
		{
			name: "tls server mode with cert and key",
			mutate: func(c *Config) {
				c.Server.TLS.Mode = "server"
				c.Server.TLS.CertFile = "/etc/certs/server.pem"
				c.Server.TLS.KeyFile = "/etc/certs/server.key"
			},
			wantErr: false,
		},
		{
			name:    "invalid tls mode",
			mutate:  func(c *Config) { c.Server.TLS.Mode = "mutual" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOperationConfigFallbacks(t *testing.T) {
	cfg := baseConfig()

	analyze := cfg.GetAnalyzeConfig()
	if analyze.Provider != "gemini" {
		t.Errorf("Provider = %q, want global fallback", analyze.Provider)
	}
	if analyze.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q, want global fallback", analyze.Model)
	}
	if analyze.APIKey != "global-key" {
		t.Errorf("APIKey = %q, want global fallback", analyze.APIKey)
	}
	if analyze.Timeout == nil || *analyze.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s fallback", analyze.Timeout)
	}
	if analyze.MaxRetries == nil || *analyze.MaxRetries != 3 {
		t.Errorf("MaxRetries = %v, want 3 fallback", analyze.MaxRetries)
	}
	if analyze.UseSystemPrompts == nil || !*analyze.UseSystemPrompts {
		t.Errorf("UseSystemPrompts = %v, want true fallback", analyze.UseSystemPrompts)
	}
}

func TestOperationConfigOverrides(t *testing.T) {
	cfg := baseConfig()
	opTimeout := 90 * time.Second
	opTemp := float32(0.2)
	cfg.AI.Optimize = OperationAIConfig{
		Model:       "gemini-2.5-pro",
		APIKey:      "op-key",
		Timeout:     &opTimeout,
		Temperature: &opTemp,
	}

	optimize := cfg.GetOptimizeConfig()
	if optimize.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q, want operation override", optimize.Model)
	}
	if optimize.APIKey != "op-key" {
		t.Errorf("APIKey = %q, want operation override", optimize.APIKey)
	}
	if *optimize.Timeout != opTimeout {
		t.Errorf("Timeout = %v, want operation override", *optimize.Timeout)
	}
	if *optimize.Temperature != opTemp {
		t.Errorf("Temperature = %v, want operation override", *optimize.Temperature)
	}
	// Unset fields still fall back.
	if optimize.Provider != "gemini" {
		t.Errorf("Provider = %q, want global fallback", optimize.Provider)
	}
	if optimize.MaxRetries == nil || *optimize.MaxRetries != 3 {
		t.Errorf("MaxRetries = %v, want global fallback", optimize.MaxRetries)
	}
}
