// Package watcher следит за «горячей» папкой и сообщает о новых изображениях.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/scanner"
)

// Watcher следит за директорией и отправляет дописанные файлы в канал.
type Watcher struct {
	cfg     *config.Config
	watcher *fsnotify.Watcher

	// debounce - сколько файл должен не меняться, прежде чем считаться записанным.
	debounce time.Duration

	// pending - последнее событие по каждому файлу. Доступ только из цикла событий.
	pending map[string]time.Time
}

// New создаёт Watcher.
func New(cfg *config.Config) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}

	debounce := cfg.WatchDebounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		cfg:      cfg,
		watcher:  w,
		debounce: debounce,
		pending:  make(map[string]time.Time),
	}, nil
}

// SetDebounce устанавливает задержку debounce.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Watch начинает слежение за dir и его поддиректориями.
// Канал закрывается при отмене контекста.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan scanner.File, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить абсолютный путь %s: %w", dir, err)
	}
	if err := w.addRecursive(root); err != nil {
		return nil, err
	}

	files := make(chan scanner.File, 100)
	go w.loop(ctx, root, files)
	return files, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && scanner.Skip(d.Name(), true) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("не удалось добавить директорию %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context, root string, files chan<- scanner.File) {
	defer close(files)
	defer func() { _ = w.watcher.Close() }()

	logger := zerolog.Ctx(ctx)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event, logger)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("ошибка watcher")

		case now := <-ticker.C:
			for _, f := range w.ready(root, now) {
				select {
				case files <- f:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, logger *zerolog.Logger) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	name := filepath.Base(event.Name)
	if info.IsDir() {
		if event.Has(fsnotify.Create) && !scanner.Skip(name, true) {
			if err := w.addRecursive(event.Name); err != nil {
				logger.Warn().Err(err).Str("path", event.Name).Msg("не удалось следить за директорией")
			}
		}
		return
	}

	if scanner.Skip(name, false) || !w.cfg.HasInputExtension(filepath.Ext(name)) {
		return
	}

	w.pending[event.Name] = time.Now()
}

// ready возвращает файлы, которые не менялись дольше debounce, в порядке путей.
func (w *Watcher) ready(root string, now time.Time) []scanner.File {
	var out []scanner.File
	for path, at := range w.pending {
		if now.Sub(at) < w.debounce {
			continue
		}
		delete(w.pending, path)

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		out = append(out, scanner.File{
			Path:    path,
			RelPath: rel,
			Size:    info.Size(),
			Mtime:   info.ModTime().Unix(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Close закрывает watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
