// Package handoff pushes a converted trace into an externally hosted viewer.
//
// A Session opens the viewer context, probes it with "PING" on a fixed
// interval until it answers "PONG" from the expected origin, then posts
// exactly one payload message. The transport is abstracted behind Opener and
// Target so the state machine runs unchanged against a WebSocket bridge or a
// test double.
package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/logging"
	"github.com/grovetools/traceport/pkg/metrics"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/sirupsen/logrus"
)

var log = logging.NewLogger("handoff")

const (
	// ProbeToken is sent on every interval tick while waiting for the viewer.
	ProbeToken = "PING"
	// AckToken is the viewer's readiness answer.
	AckToken = "PONG"

	DefaultOrigin        = "https://ui.perfetto.dev"
	DefaultProbeInterval = 50 * time.Millisecond
	DefaultTitle         = "FreeRTOS Trace"
	DefaultURL           = "-"

	msgBlocked = "Popups disabled. Enable or download trace and upload manually to ui.perfetto.dev."
	msgWaiting = "Waiting for perfetto.."
	msgOpened  = "Trace opened."
)

// State is a handoff session's position in the handshake.
type State int

const (
	Idle State = iota
	Opening
	AwaitingReady
	Delivering
	Done
	BlockedPopup
	Cancelled
	Failed
)

var stateNames = map[State]string{
	Idle:          "idle",
	Opening:       "opening",
	AwaitingReady: "awaiting_ready",
	Delivering:    "delivering",
	Done:          "done",
	BlockedPopup:  "blocked_popup",
	Cancelled:     "cancelled",
	Failed:        "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Done || s == BlockedPopup || s == Cancelled || s == Failed
}

// Payload is the single message delivered after the handshake.
type Payload struct {
	Perfetto WrappedPayload `json:"perfetto"`
}

// WrappedPayload carries the trace bytes and how the viewer should label them.
type WrappedPayload struct {
	Buffer []byte `json:"buffer"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// Inbound is a message received from the viewer context.
type Inbound struct {
	Origin string
	Data   any
}

// Target is an opened viewer context.
type Target interface {
	// PostMessage sends msg, restricted to receivers at targetOrigin.
	PostMessage(msg any, targetOrigin string) error
	// AddListener installs fn for inbound messages and returns its removal.
	AddListener(fn func(Inbound)) (remove func())
}

// Opener opens or focuses a viewer context at origin. A nil Target means the
// context could not be reached.
type Opener interface {
	Open(ctx context.Context, origin string) (Target, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, origin string) (Target, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, origin string) (Target, error) {
	return f(ctx, origin)
}

// Clock creates tickers. The returned stop function must be idempotent.
type Clock interface {
	NewTicker(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	var once sync.Once
	return t.C, func() { once.Do(t.Stop) }
}

// Config controls one handoff.
type Config struct {
	Origin        string
	ProbeInterval time.Duration
	Title         string
	URL           string
}

// DefaultConfig targets the public Perfetto UI.
func DefaultConfig() Config {
	return Config{
		Origin:        DefaultOrigin,
		ProbeInterval: DefaultProbeInterval,
		Title:         DefaultTitle,
		URL:           DefaultURL,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Origin == "" {
		c.Origin = d.Origin
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = d.ProbeInterval
	}
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.URL == "" {
		c.URL = d.URL
	}
	return c
}

// Handoff starts sessions against one opener.
type Handoff struct {
	opener Opener
	cfg    Config
	ui     uilog.Emitter
	clock  Clock
}

// Option customizes a Handoff.
type Option func(*Handoff)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(h *Handoff) { h.clock = c }
}

// New creates a Handoff. Zero Config fields take their defaults.
func New(opener Opener, cfg Config, ui uilog.Emitter, opts ...Option) *Handoff {
	if ui == nil {
		ui = uilog.Discard
	}
	h := &Handoff{
		opener: opener,
		cfg:    cfg.withDefaults(),
		ui:     ui,
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start begins a handoff of payload and returns immediately. The session
// starts Idle and runs until it reaches a terminal state; cancelling ctx is
// the same as calling Cancel.
func (h *Handoff) Start(ctx context.Context, payload []byte) *Session {
	openCtx, stopOpen := context.WithCancel(ctx)
	s := &Session{
		id:       uuid.NewString(),
		h:        h,
		payload:  payload,
		state:    Idle,
		stopOpen: stopOpen,
		cancel:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.log = log.WithField("session", s.id)
	go s.run(ctx, openCtx)
	return s
}

// Session is one handoff attempt. At most one ticker and one listener exist
// per session and both are released on every exit path.
type Session struct {
	id      string
	h       *Handoff
	payload []byte
	log     *logrus.Entry

	mu    sync.Mutex
	state State
	err   error

	// stopOpen aborts an Open still in progress.
	stopOpen   context.CancelFunc
	cancelOnce sync.Once
	cancel     chan struct{}
	done       chan struct{}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel tears the session down. Safe to call any number of times, including
// after the session has finished.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.cancel)
		s.stopOpen()
	})
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session finishes or ctx ends. It returns nil when the
// payload was delivered.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"from": prev.String(), "to": st.String()}).Debug("Handoff state changed")
}

func (s *Session) finish(st State, err error) {
	s.mu.Lock()
	s.state = st
	s.err = err
	s.mu.Unlock()

	metrics.Handoffs.WithLabelValues(st.String()).Inc()
	entry := s.log.WithField("state", st.String())
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("Handoff finished")
	close(s.done)
}

func (s *Session) cancelled(ctx context.Context) bool {
	select {
	case <-s.cancel:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *Session) run(ctx, openCtx context.Context) {
	defer s.stopOpen()
	cfg := s.h.cfg
	ui := s.h.ui

	s.setState(Opening)
	target, err := s.h.opener.Open(openCtx, cfg.Origin)
	if s.cancelled(ctx) {
		closeTarget(target)
		s.finish(Cancelled, errors.HandoffCancelled())
		return
	}
	if err != nil || target == nil {
		closeTarget(target)
		ui.Emit(uilog.LevelError, msgBlocked)
		s.finish(BlockedPopup, errors.HandoffBlocked(cfg.Origin, err))
		return
	}

	// released is closed during teardown so a listener callback racing with
	// removal never blocks.
	released := make(chan struct{})
	inbound := make(chan Inbound, 8)
	remove := target.AddListener(func(m Inbound) {
		select {
		case inbound <- m:
		case <-released:
		}
	})
	ticks, stopTicker := s.h.clock.NewTicker(cfg.ProbeInterval)

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			stopTicker()
			remove()
			close(released)
		})
	}
	end := func(st State, err error) {
		release()
		closeTarget(target)
		s.finish(st, err)
	}

	s.setState(AwaitingReady)
	ui.Emit(uilog.LevelInfo, msgWaiting)

	for {
		select {
		case <-ticks:
			if err := target.PostMessage(ProbeToken, cfg.Origin); err != nil {
				ui.Emit(uilog.LevelError, "Lost connection to viewer: "+err.Error())
				end(Failed, errors.HandoffFailed(cfg.Origin, err))
				return
			}

		case m := <-inbound:
			if !isAck(m, cfg.Origin) {
				s.log.WithField("origin", m.Origin).Debug("Ignoring unexpected viewer message")
				continue
			}
			release()
			s.setState(Delivering)

			msg := Payload{Perfetto: WrappedPayload{Buffer: s.payload, Title: cfg.Title, URL: cfg.URL}}
			if err := target.PostMessage(msg, cfg.Origin); err != nil {
				ui.Emit(uilog.LevelError, "Failed to send trace to viewer: "+err.Error())
				end(Failed, errors.HandoffFailed(cfg.Origin, err))
				return
			}
			ui.Emit(uilog.LevelSuccess, msgOpened)
			end(Done, nil)
			return

		case <-s.cancel:
			end(Cancelled, errors.HandoffCancelled())
			return

		case <-ctx.Done():
			end(Cancelled, errors.Wrap(ctx.Err(), errors.ErrCodeHandoffCancelled, "viewer handoff cancelled"))
			return
		}
	}
}

func isAck(m Inbound, origin string) bool {
	if m.Origin != origin {
		return false
	}
	token, ok := m.Data.(string)
	return ok && token == AckToken
}

func closeTarget(t Target) {
	if c, ok := t.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
