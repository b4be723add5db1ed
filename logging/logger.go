package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/traceport/config"
	"github.com/grovetools/traceport/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// file sinks are shared between components writing to the same path
	files   = make(map[string]*os.File)
	filesMu sync.Mutex
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	logCfg := loadConfig()

	levelStr := "info"
	if env := os.Getenv("TRACEPORT_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("TRACEPORT_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	if file := openLogFile(logCfg.File); file != nil {
		logger.AddHook(newFileHook(file, logCfg.File.Format, logCfg.Format))
	}

	if shouldLogToStderr(logCfg.Format.StructuredToStderr, logger.GetLevel()) {
		logger.SetOutput(GetGlobalOutput())
	} else {
		// Interactive use shows the pretty UI output only.
		logger.SetOutput(io.Discard)
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// loadConfig reads the `logging` extension of traceport.yml, if any.
func loadConfig() Config {
	var logCfg Config
	cfg, err := config.LoadDefault()
	if err != nil {
		return logCfg
	}
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		logrus.Warnf("Failed to parse 'logging' config: %v", err)
	}
	return logCfg
}

func shouldLogToStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		// "auto": log to stderr if debug is enabled, or if not in an interactive terminal
		isDebug := os.Getenv("TRACEPORT_DEBUG") == "1" || level >= logrus.DebugLevel
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		return isDebug || !isInteractive
	}
}

// openLogFile opens (or reuses) the file sink. The default file lives in the
// state directory; failures there are silent, failures on an explicitly
// configured path are reported once on stderr.
func openLogFile(cfg FileSinkConfig) *os.File {
	path := ""
	if cfg.Enabled && cfg.Path != "" {
		path = expandPath(cfg.Path)
	} else if state := paths.StateDir(); state != "" {
		path = filepath.Join(state, "logs", fmt.Sprintf("traceport-%s.log", time.Now().Format("2006-01-02")))
	}
	if path == "" {
		return nil
	}

	filesMu.Lock()
	defer filesMu.Unlock()
	if f, ok := files[path]; ok {
		return f
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		if cfg.Enabled {
			fmt.Fprintf(os.Stderr, "Failed to create log directory %s: %v\n", filepath.Dir(path), err)
		}
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		if cfg.Enabled {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", path, err)
		}
		return nil
	}
	files[path] = f
	return f
}

// fileHook writes every entry to the log file with its own formatter, so the
// file never receives terminal styling.
type fileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
}

func newFileHook(w io.Writer, format string, text FormatConfig) *fileHook {
	var f logrus.Formatter
	if format == "json" {
		f = &logrus.JSONFormatter{}
	} else {
		f = &TextFormatter{Config: FormatConfig{DisableComponent: text.DisableComponent}, NoColor: true}
	}
	return &fileHook{w: w, formatter: f}
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
