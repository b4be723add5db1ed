package config

import (
	"testing"

	"github.com/grovetools/traceport/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "negative probe interval", mutate: func(c *Config) { c.Viewer.ProbeIntervalMs = -5 }, wantErr: true},
		{name: "origin without scheme", mutate: func(c *Config) { c.Viewer.Origin = "ui.perfetto.dev" }, wantErr: true},
		{name: "origin with path", mutate: func(c *Config) { c.Viewer.Origin = "https://ui.perfetto.dev/v1" }, wantErr: true},
		{name: "http endpoint", mutate: func(c *Config) { c.Viewer.Endpoint = "http://localhost:9100" }, wantErr: true},
		{name: "websocket endpoint", mutate: func(c *Config) { c.Viewer.Endpoint = "wss://bridge.local/ws" }},
		{name: "zero cores", mutate: func(c *Config) { c.Trace.CoreCount = -1 }, wantErr: true},
		{name: "unknown mode", mutate: func(c *Config) { c.Trace.Mode = "zephyr" }, wantErr: true},
		{name: "unknown format", mutate: func(c *Config) { c.Trace.Format = "octal" }, wantErr: true},
		{name: "binary alias", mutate: func(c *Config) { c.Trace.Format = "bin" }},
		{name: "blank encoder", mutate: func(c *Config) { c.Encoder.Command = "  " }, wantErr: true},
		{name: "filename with directory", mutate: func(c *Config) { c.Output.Filename = "out/trace.pftrace" }, wantErr: true},
		{name: "negative grace", mutate: func(c *Config) { c.Serve.TemporaryGraceMs = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, errors.ErrCodeConfigInvalid) {
					t.Errorf("expected CONFIG_INVALID, got %v", errors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
