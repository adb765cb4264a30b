package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/scanner"
)

func startWatch(t *testing.T, dir string) <-chan scanner.File {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WatchDebounce = 50 * time.Millisecond

	w, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	files, err := w.Watch(ctx, dir)
	require.NoError(t, err)
	return files
}

func receive(t *testing.T, files <-chan scanner.File) scanner.File {
	t.Helper()
	select {
	case f, ok := <-files:
		require.True(t, ok, "канал закрыт")
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("файл не пришёл")
		return scanner.File{}
	}
}

func TestWatch_EmitsSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	files := startWatch(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "._photo.jpg"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte("abc"), 0644))

	f := receive(t, files)
	assert.Equal(t, "photo.jpg", f.RelPath)
	assert.Equal(t, int64(3), f.Size)

	select {
	case extra := <-files:
		t.Fatalf("лишний файл: %s", extra.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	files := startWatch(t, dir)

	sub := filepath.Join(dir, "incoming")
	require.NoError(t, os.Mkdir(sub, 0755))
	// даём циклу событий подписаться на новую директорию
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "scan.tif"), []byte("x"), 0644))

	f := receive(t, files)
	assert.Equal(t, filepath.Join("incoming", "scan.tif"), f.RelPath)
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	w, err := New(config.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	files, err := w.Watch(ctx, t.TempDir())
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-files:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("канал не закрылся")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	w, err := New(config.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Watch(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
