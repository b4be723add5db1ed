package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names an explicit configuration file, bypassing the search.
const EnvConfigFile = "TRACEPORT_CONFIG"

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are searched, in order, in each directory from the start
// directory up to the filesystem root.
var configNames = []string{
	"traceport.yml",
	"traceport.yaml",
	".traceport.yml",
	"traceport.toml",
}

var overrideNames = []string{
	"traceport.override.yml",
	"traceport.override.yaml",
}

// Load reads, validates and defaults a single configuration file.
func Load(path string) (*Config, error) {
	cfg, err := loadRaw(path)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// LoadDefault loads the configuration for the current directory. When
// TRACEPORT_CONFIG is set that file is loaded instead.
func LoadDefault() (*Config, error) {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return Load(path)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger merges, in increasing precedence:
// 1. Global config ($XDG_CONFIG_HOME/traceport/traceport.yml)
// 2. Project config (first traceport.yml found upward from startDir)
// 3. Local override (traceport.override.yml next to the project config)
//
// Finding no file at all is not an error: the defaults are returned.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	finalConfig := &Config{}

	globalPath := paths.GlobalConfigFile()
	if globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			globalConfig, err := loadRaw(globalPath)
			if err != nil {
				logger.WithError(err).Warn("Failed to load global configuration, continuing without it")
			} else {
				finalConfig = mergeConfigs(finalConfig, globalConfig)
			}
		}
	}

	projectPath, err := findProjectFile(startDir)
	if err == nil && !samePath(projectPath, globalPath) {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		projectConfig, err := loadRaw(projectPath)
		if err != nil {
			return nil, err
		}
		finalConfig = mergeConfigs(finalConfig, projectConfig)

		projectDir := filepath.Dir(projectPath)
		for _, name := range overrideNames {
			overridePath := filepath.Join(projectDir, name)
			if _, err := os.Stat(overridePath); err != nil {
				continue
			}
			logger.WithField("path", overridePath).Debug("Loading local override configuration")
			overrideConfig, err := loadRaw(overridePath)
			if err != nil {
				logger.WithError(err).Warn("Failed to load override file, skipping")
				continue
			}
			finalConfig = mergeConfigs(finalConfig, overrideConfig)
		}
	}

	cfg, err := finalize(finalConfig)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}
	return cfg, nil
}

// LoadFromBytes parses, validates and defaults a YAML document.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg, err := parse(data, false)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// LoadFromTOMLBytes is LoadFromBytes for TOML documents.
func LoadFromTOMLBytes(data []byte) (*Config, error) {
	cfg, err := parse(data, true)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// FindConfigFile searches for traceport configuration files with the following precedence:
// 1. Current directory up to filesystem root
// 2. XDG config directory (~/.config/traceport/traceport.yml)
func FindConfigFile(startDir string) (string, error) {
	if path, err := findProjectFile(startDir); err == nil {
		return path, nil
	}

	if global := paths.GlobalConfigFile(); global != "" {
		if info, err := os.Stat(global); err == nil && !info.IsDir() {
			return global, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func findProjectFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.ConfigNotFound(startDir)
}

// loadRaw reads and schema-validates one file without applying defaults.
func loadRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		if te, ok := errors.As(err); ok {
			return nil, te.WithDetail("path", path)
		}
		return nil, err
	}
	cfg.Sources = []string{path}
	return cfg, nil
}

// parse expands environment variables, validates the document against the
// schema and decodes it. TOML documents are normalised through YAML so both
// formats share the inline extension handling.
func parse(data []byte, isTOML bool) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var raw map[string]interface{}
	if isTOML {
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		converted, err := yaml.Marshal(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to normalise TOML configuration")
		}
		expanded = converted
	} else if err := yaml.Unmarshal(expanded, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}

	if raw != nil {
		validator, err := NewSchemaValidator()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
		}
		if err := validator.Validate(raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}
	return &cfg, nil
}

func finalize(cfg *Config) (*Config, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
