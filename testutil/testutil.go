package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireBinary skips the test if name is not on PATH
func RequireBinary(t *testing.T, name string) {
	t.Helper()

	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

// RandomBytes returns n random bytes
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomHex returns n random bytes as a hex dump, 16 bytes per line
func RandomHex(n int) (string, []byte) {
	raw := RandomBytes(n)
	digits := hex.EncodeToString(raw)
	out := make([]byte, 0, len(digits)+len(digits)/32+1)
	for i := 0; i < len(digits); i += 32 {
		end := min(i+32, len(digits))
		out = append(out, digits[i:end]...)
		out = append(out, '\n')
	}
	return string(out), raw
}

// WriteFile creates a file under dir and returns its path
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0600), "failed to create %s", name)
	return path
}

// CreateTestConfigYAML returns a minimal traceport.yml pointing the viewer at origin
func CreateTestConfigYAML(origin string) string {
	return `viewer:
  origin: ` + origin + `
  probe_interval_ms: 5
trace:
  mode: bare-metal
  core_count: 2
  format: hex
`
}

// WaitFor polls cond until it returns true or timeout elapses
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// FakeClock hands out tickers that only fire when Tick is called.
type FakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

type fakeTicker struct {
	interval time.Duration
	c        chan time.Time
	stopped  chan struct{}
	once     sync.Once
}

// NewTicker returns a manually driven ticker channel and its stop function.
func (f *FakeClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	ft := &fakeTicker{
		interval: d,
		c:        make(chan time.Time),
		stopped:  make(chan struct{}),
	}
	f.mu.Lock()
	f.tickers = append(f.tickers, ft)
	f.mu.Unlock()

	return ft.c, func() { ft.once.Do(func() { close(ft.stopped) }) }
}

// Tick delivers one tick to the most recent ticker. It blocks until the tick
// is received and returns false if the ticker is (or becomes) stopped first.
func (f *FakeClock) Tick() bool {
	f.mu.Lock()
	if len(f.tickers) == 0 {
		f.mu.Unlock()
		return false
	}
	ft := f.tickers[len(f.tickers)-1]
	f.mu.Unlock()

	select {
	case <-ft.stopped:
		return false
	default:
	}
	select {
	case ft.c <- time.Now():
		return true
	case <-ft.stopped:
		return false
	}
}

// Tickers reports how many tickers were ever created.
func (f *FakeClock) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// Active reports how many tickers have not been stopped.
func (f *FakeClock) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ft := range f.tickers {
		select {
		case <-ft.stopped:
		default:
			n++
		}
	}
	return n
}

// Interval returns the period requested for the most recent ticker.
func (f *FakeClock) Interval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return 0
	}
	return f.tickers[len(f.tickers)-1].interval
}
