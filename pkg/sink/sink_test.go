package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkSave(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), dir)
	require.NoError(t, err)
	rec := &uilog.Recorder{}

	where, err := New(store, rec).SaveTo(context.Background(), []byte("pftrace"), "trace.pftrace")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "trace.pftrace"), where)

	got, err := os.ReadFile(where)
	require.NoError(t, err)
	assert.Equal(t, "pftrace", string(got))
	assert.Equal(t, 1, rec.Count(uilog.LevelSuccess))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files may be left behind")
}

func TestFileSinkOverwrites(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	s := New(store, nil)

	s.Save(context.Background(), []byte("first"), "out/trace.pftrace")
	s.Save(context.Background(), []byte("second"), "out/trace.pftrace")

	got, err := os.ReadFile(filepath.Join(dir, "out", "trace.pftrace"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestSaveRejectsEscapingNames(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	rec := &uilog.Recorder{}
	s := New(store, rec)

	for _, name := range []string{"", "../trace.pftrace", "/etc/trace", ".."} {
		_, err := s.SaveTo(context.Background(), []byte{1}, name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, errors.ErrCodeValidation), name)
	}
	assert.Equal(t, 4, rec.Count(uilog.LevelError))
}

type failingStore struct{}

func (failingStore) Write(context.Context, []byte, string) (string, error) {
	return "", fmt.Errorf("disk full")
}

func (failingStore) Close() error { return nil }

func TestSaveReportsFailureOnUILog(t *testing.T) {
	rec := &uilog.Recorder{}
	s := New(failingStore{}, rec)

	s.Save(context.Background(), []byte{1}, "trace.pftrace")

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, uilog.LevelError, events[0].Level)
	assert.Contains(t, events[0].Message, "disk full")

	_, err := s.SaveTo(context.Background(), []byte{1}, "trace.pftrace")
	assert.True(t, errors.Is(err, errors.ErrCodeStorageFailed))
}

func TestBucketStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(ctx, "file://"+filepath.ToSlash(dir))
	require.NoError(t, err)
	defer store.Close()
	_, isBucket := store.(*BucketStore)
	require.True(t, isBucket)

	where, err := New(store, nil).SaveTo(ctx, []byte("bucket trace"), "nightly/trace.pftrace")
	require.NoError(t, err)
	assert.Contains(t, where, "nightly/trace.pftrace")

	got, err := os.ReadFile(filepath.Join(dir, "nightly", "trace.pftrace"))
	require.NoError(t, err)
	assert.Equal(t, "bucket trace", string(got))
}
