package config

// mergeConfigs merges override configuration into base. Zero values in
// override leave the base value in place.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Viewer = mergeViewer(result.Viewer, override.Viewer)
	result.Trace = mergeTrace(result.Trace, override.Trace)
	result.Encoder = mergeEncoder(result.Encoder, override.Encoder)
	result.Output = mergeOutput(result.Output, override.Output)

	if override.Serve.Addr != "" {
		result.Serve.Addr = override.Serve.Addr
	}
	if override.Serve.TemporaryGraceMs != 0 {
		result.Serve.TemporaryGraceMs = override.Serve.TemporaryGraceMs
	}
	if override.Watch.DebounceMs != 0 {
		result.Watch.DebounceMs = override.Watch.DebounceMs
	}

	result.Sources = append(append([]string(nil), base.Sources...), override.Sources...)

	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(base.Extensions)+len(override.Extensions))
		for k, v := range base.Extensions {
			merged[k] = v
		}
		for key, value := range override.Extensions {
			// If both base and override have the same extension key, merge them
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					mergedMap := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						mergedMap[k] = v
					}
					for k, v := range overrideMap {
						mergedMap[k] = v
					}
					merged[key] = mergedMap
					continue
				}
			}
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}

func mergeViewer(base, override ViewerConfig) ViewerConfig {
	result := base
	if override.Origin != "" {
		result.Origin = override.Origin
	}
	if override.Endpoint != "" {
		result.Endpoint = override.Endpoint
	}
	if override.ProbeIntervalMs != 0 {
		result.ProbeIntervalMs = override.ProbeIntervalMs
	}
	if override.Title != "" {
		result.Title = override.Title
	}
	if override.URL != "" {
		result.URL = override.URL
	}
	return result
}

func mergeTrace(base, override TraceConfig) TraceConfig {
	result := base
	if override.Mode != "" {
		result.Mode = override.Mode
	}
	if override.CoreCount != 0 {
		result.CoreCount = override.CoreCount
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	return result
}

func mergeEncoder(base, override EncoderConfig) EncoderConfig {
	result := base
	if override.Command != "" {
		result.Command = override.Command
	}
	if len(override.Args) > 0 {
		result.Args = override.Args
	}
	if override.TimeoutSeconds != 0 {
		result.TimeoutSeconds = override.TimeoutSeconds
	}
	return result
}

func mergeOutput(base, override OutputConfig) OutputConfig {
	result := base
	if override.Filename != "" {
		result.Filename = override.Filename
	}
	if override.Location != "" {
		result.Location = override.Location
	}
	return result
}
