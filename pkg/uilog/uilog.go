// Package uilog is the in-process broadcast channel for human-readable status
// notifications. Producers emit leveled messages; presentation code subscribes.
package uilog

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a UI log event.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "Error"
	case LevelWarn:
		return "Warn"
	case LevelSuccess:
		return "Success"
	case LevelInfo:
		return "Info"
	case LevelDebug:
		return "Debug"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel accepts the level names case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "success":
		return LevelSuccess, nil
	case "info":
		return LevelInfo, nil
	case "debug", "trace":
		return LevelDebug, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Event is a single notification.
type Event struct {
	Level   Level
	Message string
	Time    time.Time
}

// Handler receives events. Handlers run synchronously on the emitting goroutine
// and must not block.
type Handler func(Event)

// Emitter is the producer side of the channel.
type Emitter interface {
	Emit(level Level, msg string)
}

// Channel fans events out to subscribers. Delivery is best effort: a handler
// that panics is dropped from that delivery without affecting the others.
type Channel struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
	now      func() time.Time
}

// NewChannel creates an empty channel.
func NewChannel() *Channel {
	return &Channel{
		handlers: make(map[int]Handler),
		now:      time.Now,
	}
}

// Subscribe registers h and returns a function that removes it. The returned
// function is safe to call more than once.
func (c *Channel) Subscribe(h Handler) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.handlers[id] = h
	c.order = append(c.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.handlers, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit broadcasts msg to every subscriber in subscription order.
func (c *Channel) Emit(level Level, msg string) {
	if c == nil {
		return
	}
	evt := Event{Level: level, Message: msg, Time: c.now()}

	c.mu.RLock()
	handlers := make([]Handler, 0, len(c.order))
	for _, id := range c.order {
		handlers = append(handlers, c.handlers[id])
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		deliver(h, evt)
	}
}

func deliver(h Handler, evt Event) {
	defer func() { _ = recover() }()
	h(evt)
}

func (c *Channel) Error(msg string)   { c.Emit(LevelError, msg) }
func (c *Channel) Warn(msg string)    { c.Emit(LevelWarn, msg) }
func (c *Channel) Success(msg string) { c.Emit(LevelSuccess, msg) }
func (c *Channel) Info(msg string)    { c.Emit(LevelInfo, msg) }
func (c *Channel) Debug(msg string)   { c.Emit(LevelDebug, msg) }

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Level, string) {}

// Emitf formats and emits through e, tolerating a nil emitter.
func Emitf(e Emitter, level Level, format string, args ...interface{}) {
	if e == nil {
		return
	}
	e.Emit(level, fmt.Sprintf(format, args...))
}

// Recorder is an Emitter that keeps every event. It is used by tests and by
// commands that replay notifications after a run.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records the event.
func (r *Recorder) Emit(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Message: msg, Time: time.Now()})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events were recorded at level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Level == level {
			n++
		}
	}
	return n
}
