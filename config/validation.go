package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/grovetools/traceport/errors"
)

// Validate checks the semantic rules the schema cannot express. It expects
// SetDefaults to have run.
func (c *Config) Validate() error {
	if c.Viewer.ProbeIntervalMs <= 0 {
		return errors.ConfigInvalid("viewer.probe_interval_ms must be positive").
			WithDetail("probe_interval_ms", c.Viewer.ProbeIntervalMs)
	}
	if err := validateOrigin(c.Viewer.Origin); err != nil {
		return err
	}
	if c.Viewer.Endpoint != "" {
		u, err := url.Parse(c.Viewer.Endpoint)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return errors.ConfigInvalid("viewer.endpoint must be a ws:// or wss:// URL").
				WithDetail("endpoint", c.Viewer.Endpoint)
		}
	}

	if c.Trace.CoreCount < 1 {
		return errors.ConfigInvalid("trace.core_count must be at least 1").
			WithDetail("core_count", c.Trace.CoreCount)
	}
	if _, err := c.Trace.ParsedMode(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid trace.mode").
			WithDetail("mode", c.Trace.Mode)
	}
	if _, err := c.Trace.ParsedFormat(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid trace.format").
			WithDetail("format", c.Trace.Format)
	}

	if strings.TrimSpace(c.Encoder.Command) == "" {
		return errors.ConfigInvalid("encoder.command cannot be empty")
	}
	if c.Encoder.TimeoutSeconds < 0 {
		return errors.ConfigInvalid("encoder.timeout_seconds cannot be negative").
			WithDetail("timeout_seconds", c.Encoder.TimeoutSeconds)
	}

	if strings.ContainsAny(c.Output.Filename, `/\`) {
		return errors.ConfigInvalid(fmt.Sprintf("output.filename must be a bare file name, got %q", c.Output.Filename))
	}

	if c.Serve.TemporaryGraceMs < 0 {
		return errors.ConfigInvalid("serve.temporary_grace_ms cannot be negative")
	}
	if c.Watch.DebounceMs < 0 {
		return errors.ConfigInvalid("watch.debounce_ms cannot be negative")
	}

	return nil
}

func validateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigInvalid("viewer.origin must be an absolute URL such as https://ui.perfetto.dev").
			WithDetail("origin", origin)
	}
	if u.Path != "" && u.Path != "/" {
		return errors.ConfigInvalid("viewer.origin must not contain a path").
			WithDetail("origin", origin)
	}
	return nil
}
