package profiling

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock advances by one millisecond per reading.
type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func TestRecorderNestsSpans(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	r := NewRecorder()
	r.now = clock.now
	r.Enable()

	load := r.Start("load")
	r.Start("decode core0").Stop()
	load.Stop()
	r.Start("convert").Stop()

	var buf bytes.Buffer
	r.Summarize(&buf)
	out := buf.String()

	assert.Contains(t, out, "--- Timing ---")
	assert.Contains(t, out, "  - load ")
	assert.Contains(t, out, "    - decode core0 ")
	assert.Contains(t, out, "  - convert ")
}

func TestDisabledRecorderIsSilent(t *testing.T) {
	r := NewRecorder()
	r.Start("load").Stop()

	var buf bytes.Buffer
	r.Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestCobraProfilerWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	p := NewCobraProfiler()
	cmd := &cobra.Command{
		Use:               "traceport",
		PersistentPreRunE: p.PreRun,
		PersistentPostRun: p.PostRun,
		Run:               func(*cobra.Command, []string) {},
	}
	p.AddFlags(cmd)

	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{
		"--cpu-profile", filepath.Join(dir, "cpu.pprof"),
		"--mem-profile", filepath.Join(dir, "mem.pprof"),
	})
	require.NoError(t, cmd.Execute())

	for _, name := range []string{"cpu.pprof", "mem.pprof"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Contains(t, stderr.String(), "CPU profile written")
	assert.Contains(t, stderr.String(), "Memory profile written")
}
