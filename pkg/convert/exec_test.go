package convert

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptExecutor runs a shell script in place of the encoder binary.
type scriptExecutor struct {
	script  string
	missing bool
}

func (s scriptExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "sh", append([]string{"-c", s.script, name}, args...)...)
}

func (s scriptExecutor) LookPath(name string) (string, error) {
	if s.missing {
		return "", exec.ErrNotFound
	}
	return "/usr/local/bin/" + name, nil
}

const concatScript = `
echo "DEBUG $*"
out=""
files=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output) out="$2"; shift ;;
    --format|--core-count|--mode) shift ;;
    *@*) files="$files ${1%@*}" ;;
  esac
  shift
done
echo "INFO encoding pieces"
echo "WARNING: missing task names" 1>&2
cat $files > "$out"
`

func TestExecEncoderRunsBinary(t *testing.T) {
	enc := NewExecEncoder("tband-cli", []string{"--quiet"}, 10*time.Second, scriptExecutor{script: concatScript})
	enc.WorkDir = t.TempDir()
	rec := &uilog.Recorder{}
	enc.SetupLog(rec)

	out, err := enc.Convert(context.Background(), 2, []Input{
		{CoreID: 1, Data: []byte("ab")},
		{CoreID: 0, Data: []byte("cd")},
	}, trace.ModeBareMetal)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(out))

	byLevel := map[uilog.Level][]string{}
	for _, e := range rec.Events() {
		byLevel[e.Level] = append(byLevel[e.Level], e.Message)
	}
	require.Len(t, byLevel[uilog.LevelDebug], 1)
	args := byLevel[uilog.LevelDebug][0]
	assert.Contains(t, args, "--quiet --format bin --core-count 2 --mode bare-metal --output")
	assert.Regexp(t, `piece-000\.bin@1 .*piece-001\.bin@0$`, args)
	assert.Equal(t, []string{"encoding pieces"}, byLevel[uilog.LevelInfo])
	assert.Equal(t, []string{"missing task names"}, byLevel[uilog.LevelWarn])
}

func TestExecEncoderFailureReportsStderr(t *testing.T) {
	script := `echo "ERROR core 3 out of range" 1>&2; exit 3`
	enc := NewExecEncoder("tband-cli", nil, 0, scriptExecutor{script: script})
	enc.WorkDir = t.TempDir()

	_, err := enc.Convert(context.Background(), 1, []Input{{CoreID: 0, Data: []byte{1}}}, trace.ModeFreeRTOS)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "core 3 out of range")
}

func TestExecEncoderMissingBinary(t *testing.T) {
	enc := NewExecEncoder("tband-cli", nil, 0, scriptExecutor{missing: true})

	_, err := enc.Convert(context.Background(), 1, nil, trace.ModeFreeRTOS)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeEncoderNotFound))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel uilog.Level
		wantMsg   string
	}{
		{"ERROR: bad", uilog.LevelError, "bad"},
		{"[WARN] slow", uilog.LevelWarn, "slow"},
		{"DEBUG x", uilog.LevelDebug, "x"},
		{"plain text", uilog.LevelInfo, "plain text"},
	}
	for _, tt := range tests {
		level, msg := classify(tt.line, uilog.LevelInfo)
		assert.Equal(t, tt.wantLevel, level, tt.line)
		assert.Equal(t, tt.wantMsg, msg, tt.line)
	}
}

func TestModeFlag(t *testing.T) {
	assert.Equal(t, "bare-metal", ModeFlag(trace.ModeBareMetal))
	assert.Equal(t, "free-rtos", ModeFlag(trace.ModeFreeRTOS))
}
