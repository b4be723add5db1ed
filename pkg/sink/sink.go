// Package sink stores converted traces as named files, either on the local
// filesystem or in a blob bucket.
package sink

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/logging"
	"github.com/grovetools/traceport/pkg/uilog"
)

var log = logging.NewLogger("sink")

// Store writes data under filename and returns where it ended up.
type Store interface {
	Write(ctx context.Context, data []byte, filename string) (string, error)
	Close() error
}

// Open picks a Store for location. An empty location or a plain path writes
// to the local filesystem; URLs such as file://, s3:// and gs:// open a
// bucket.
func Open(ctx context.Context, location string) (Store, error) {
	if location == "" {
		return NewFileStore(".")
	}
	if u, err := url.Parse(location); err == nil && len(u.Scheme) > 1 && strings.Contains(location, "://") {
		return OpenBucket(ctx, location)
	}
	return NewFileStore(location)
}

// Sink is the best-effort "save bytes as file" primitive. Failures are
// reported on the UI log, never returned.
type Sink struct {
	store Store
	ui    uilog.Emitter
}

// New wraps store.
func New(store Store, ui uilog.Emitter) *Sink {
	if ui == nil {
		ui = uilog.Discard
	}
	return &Sink{store: store, ui: ui}
}

// Save writes data as filename.
func (s *Sink) Save(ctx context.Context, data []byte, filename string) {
	if _, err := s.SaveTo(ctx, data, filename); err != nil {
		log.WithError(err).WithField("filename", filename).Warn("Failed to save trace")
	}
}

// SaveTo is Save for callers that need the outcome, such as the CLI exit code.
func (s *Sink) SaveTo(ctx context.Context, data []byte, filename string) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		s.ui.Emit(uilog.LevelError, err.Error())
		return "", err
	}

	where, err := s.store.Write(ctx, data, name)
	if err != nil {
		s.ui.Emit(uilog.LevelError, fmt.Sprintf("Could not save %s: %v", name, err))
		return "", errors.StorageFailed(name, err)
	}

	log.WithField("location", where).WithField("bytes", len(data)).Info("Trace saved")
	s.ui.Emit(uilog.LevelSuccess, fmt.Sprintf("Saved %s (%d bytes).", where, len(data)))
	return where, nil
}

// cleanName keeps filenames inside the store root.
func cleanName(filename string) (string, error) {
	name := filepath.ToSlash(filepath.Clean(filename))
	if filename == "" || name == "." || name == "/" || strings.HasPrefix(name, "../") || name == ".." || filepath.IsAbs(filename) {
		return "", errors.New(errors.ErrCodeValidation, fmt.Sprintf("invalid output filename %q", filename))
	}
	return name, nil
}
