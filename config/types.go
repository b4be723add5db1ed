package config

import (
	"fmt"
	"time"

	"github.com/grovetools/traceport/pkg/trace"
	"github.com/mitchellh/mapstructure"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// Defaults applied by SetDefaults.
const (
	DefaultVersion          = "1.0"
	DefaultViewerOrigin     = "https://ui.perfetto.dev"
	DefaultProbeIntervalMs  = 50
	DefaultTitle            = "FreeRTOS Trace"
	DefaultURL              = "-"
	DefaultMode             = "freertos"
	DefaultCoreCount        = 1
	DefaultFormat           = "hex"
	DefaultEncoderCommand   = "tband-cli"
	DefaultEncoderTimeout   = 60
	DefaultOutputFilename   = "trace.pftrace"
	DefaultServeAddr        = "127.0.0.1:9001"
	DefaultTemporaryGraceMs = 250
	DefaultDebounceMs       = 100
)

// ViewerConfig configures the trace viewer handoff.
type ViewerConfig struct {
	Origin          string `yaml:"origin,omitempty" toml:"origin,omitempty" jsonschema:"description=Origin of the trace viewer (default: https://ui.perfetto.dev)"`
	Endpoint        string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty" jsonschema:"description=WebSocket bridge URL used to reach the viewer window"`
	ProbeIntervalMs int    `yaml:"probe_interval_ms,omitempty" toml:"probe_interval_ms,omitempty" jsonschema:"description=Milliseconds between readiness probes (default: 50),minimum=1"`
	Title           string `yaml:"title,omitempty" toml:"title,omitempty" jsonschema:"description=Title shown by the viewer for the delivered trace"`
	URL             string `yaml:"url,omitempty" toml:"url,omitempty" jsonschema:"description=Source URL reported to the viewer (default: -)"`
}

// ProbeInterval returns the probe interval as a duration.
func (v ViewerConfig) ProbeInterval() time.Duration {
	return time.Duration(v.ProbeIntervalMs) * time.Millisecond
}

// TraceConfig holds the default capture settings.
type TraceConfig struct {
	Mode      string `yaml:"mode,omitempty" toml:"mode,omitempty" jsonschema:"description=Trace dialect,enum=freertos,enum=free-rtos,enum=bare-metal,enum=baremetal"`
	CoreCount int    `yaml:"core_count,omitempty" toml:"core_count,omitempty" jsonschema:"description=Number of cores captured (default: 1),minimum=1"`
	Format    string `yaml:"format,omitempty" toml:"format,omitempty" jsonschema:"description=Input encoding,enum=hex,enum=base64,enum=binary,enum=bin"`
}

// ParsedMode parses Mode.
func (t TraceConfig) ParsedMode() (trace.Mode, error) {
	return trace.ParseMode(t.Mode)
}

// ParsedFormat parses Format.
func (t TraceConfig) ParsedFormat() (trace.Format, error) {
	return trace.ParseFormat(t.Format)
}

// EncoderConfig names the external converter binary.
type EncoderConfig struct {
	Command        string   `yaml:"command,omitempty" toml:"command,omitempty" jsonschema:"description=Converter executable (default: tband-cli)"`
	Args           []string `yaml:"args,omitempty" toml:"args,omitempty" jsonschema:"description=Arguments passed before the generated ones"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty" jsonschema:"description=Conversion timeout in seconds (default: 60),minimum=1"`
}

// Timeout returns the conversion timeout.
func (e EncoderConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// OutputConfig controls where converted traces are saved.
type OutputConfig struct {
	Filename string `yaml:"filename,omitempty" toml:"filename,omitempty" jsonschema:"description=Name of the saved trace (default: trace.pftrace)"`
	Location string `yaml:"location,omitempty" toml:"location,omitempty" jsonschema:"description=Directory or bucket URL (file://, s3://, gs://) for saved traces"`
}

// ServeConfig configures the trace provider server.
type ServeConfig struct {
	Addr             string `yaml:"addr,omitempty" toml:"addr,omitempty" jsonschema:"description=Listen address (default: 127.0.0.1:9001)"`
	TemporaryGraceMs int    `yaml:"temporary_grace_ms,omitempty" toml:"temporary_grace_ms,omitempty" jsonschema:"description=Delay before a temporary server stops after the first download,minimum=0"`
}

// Grace returns the temporary-mode shutdown delay.
func (s ServeConfig) Grace() time.Duration {
	return time.Duration(s.TemporaryGraceMs) * time.Millisecond
}

// WatchConfig configures input watching.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms,omitempty" toml:"debounce_ms,omitempty" jsonschema:"description=Quiet period before a changed input is reconverted,minimum=1"`
}

// Debounce returns the debounce window.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Config is the traceport configuration.
type Config struct {
	Version string        `yaml:"version,omitempty" toml:"version,omitempty" jsonschema:"description=Configuration version (e.g. 1.0)"`
	Viewer  ViewerConfig  `yaml:"viewer,omitempty" toml:"viewer,omitempty" jsonschema:"description=Trace viewer handoff settings"`
	Trace   TraceConfig   `yaml:"trace,omitempty" toml:"trace,omitempty" jsonschema:"description=Default capture settings"`
	Encoder EncoderConfig `yaml:"encoder,omitempty" toml:"encoder,omitempty" jsonschema:"description=External converter settings"`
	Output  OutputConfig  `yaml:"output,omitempty" toml:"output,omitempty" jsonschema:"description=Saved trace settings"`
	Serve   ServeConfig   `yaml:"serve,omitempty" toml:"serve,omitempty" jsonschema:"description=Trace provider server settings"`
	Watch   WatchConfig   `yaml:"watch,omitempty" toml:"watch,omitempty" jsonschema:"description=Input watcher settings"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`

	// Sources lists the files merged into this configuration, lowest precedence first.
	Sources []string `yaml:"-" toml:"-" jsonschema:"-"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}

	if c.Viewer.Origin == "" {
		c.Viewer.Origin = DefaultViewerOrigin
	}
	if c.Viewer.ProbeIntervalMs == 0 {
		c.Viewer.ProbeIntervalMs = DefaultProbeIntervalMs
	}
	if c.Viewer.Title == "" {
		c.Viewer.Title = DefaultTitle
	}
	if c.Viewer.URL == "" {
		c.Viewer.URL = DefaultURL
	}

	if c.Trace.Mode == "" {
		c.Trace.Mode = DefaultMode
	}
	if c.Trace.CoreCount == 0 {
		c.Trace.CoreCount = DefaultCoreCount
	}
	if c.Trace.Format == "" {
		c.Trace.Format = DefaultFormat
	}

	if c.Encoder.Command == "" {
		c.Encoder.Command = DefaultEncoderCommand
	}
	if c.Encoder.TimeoutSeconds == 0 {
		c.Encoder.TimeoutSeconds = DefaultEncoderTimeout
	}

	if c.Output.Filename == "" {
		c.Output.Filename = DefaultOutputFilename
	}

	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultServeAddr
	}
	if c.Serve.TemporaryGraceMs == 0 {
		c.Serve.TemporaryGraceMs = DefaultTemporaryGraceMs
	}

	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = DefaultDebounceMs
	}
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded traceport.yml into the provided target struct. The target must be a
// pointer. A missing key leaves the target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
