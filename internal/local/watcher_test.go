package local

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitChanged(t *testing.T, w *Watcher) bool {
	t.Helper()
	select {
	case <-w.Changed():
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestWatcherSignalsCreate(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Watch(dir))
	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("x"), 0o644))
	assert.True(t, waitChanged(t, w), "expected a change signal")
}

func TestWatcherRetarget(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Watch(first))
	require.NoError(t, w.Watch(second))
	assert.Equal(t, second, w.Dir())
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(second, "boot.py"), []byte("x"), 0o644))
	assert.True(t, waitChanged(t, w))
}

func TestWatcherRejectsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.py")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Watch(file))
	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
	assert.Equal(t, "", w.Dir())
}

func TestWatcherStopReleasesWaiters(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Watch(t.TempDir()))
	require.NoError(t, w.Start())

	released := make(chan struct{})
	go func() {
		select {
		case <-w.Changed():
		case <-w.Done():
		}
		close(released)
	}()

	w.Stop()
	w.Stop()
	assert.False(t, w.IsRunning())
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter still blocked after Stop")
	}
}
