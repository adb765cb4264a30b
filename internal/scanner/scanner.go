// Package scanner отвечает за поиск изображений в директориях.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/artemshloyda/printprep/internal/config"
)

// File представляет найденное изображение.
type File struct {
	// Path - абсолютный путь к файлу.
	Path string

	// RelPath - относительный путь от корня сканирования.
	RelPath string

	// Size - размер в байтах.
	Size int64

	// Mtime - время модификации (unix).
	Mtime int64
}

// Scanner ищет поддерживаемые изображения.
type Scanner struct {
	cfg *config.Config
}

// New создаёт новый Scanner.
func New(cfg *config.Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// Skip сообщает, что файл или директорию с таким именем нужно пропустить:
// скрытые директории и служебные файлы macOS (._*).
func Skip(name string, isDir bool) bool {
	if isDir {
		return len(name) > 1 && name[0] == '.'
	}
	return strings.HasPrefix(name, "._")
}

// Scan обходит root и отправляет найденные файлы в канал.
// Оба канала закрываются после завершения обхода.
func (s *Scanner) Scan(ctx context.Context, root string) (<-chan File, <-chan error) {
	files := make(chan File, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		if err := s.walk(ctx, root, func(f File) error {
			select {
			case files <- f:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}); err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// Collect возвращает все найденные файлы, отсортированные по пути.
func (s *Scanner) Collect(ctx context.Context, root string) ([]File, error) {
	var out []File
	err := s.walk(ctx, root, func(f File) error {
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Scanner) walk(ctx context.Context, root string, emit func(File) error) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("не удалось получить абсолютный путь %s: %w", root, err)
	}

	logger := zerolog.Ctx(ctx)

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == absRoot {
				return fmt.Errorf("не удалось прочитать %s: %w", root, err)
			}
			logger.Warn().Err(err).Str("path", path).Msg("не удалось прочитать")
			return nil
		}

		if d.IsDir() {
			if path != absRoot && Skip(d.Name(), true) {
				return filepath.SkipDir
			}
			return nil
		}

		if Skip(d.Name(), false) || !s.cfg.HasInputExtension(filepath.Ext(path)) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("не удалось получить info")
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = d.Name()
		}

		return emit(File{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
			Mtime:   info.ModTime().Unix(),
		})
	})
}
