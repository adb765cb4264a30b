// Package renamer переименовывает пакет файлов в "{категория}-{номер}_{отпечаток}.{расширение}".
//
// Пакет обрабатывается строго по порядку: номер - позиция запроса (с 1), включая
// пропущенные записи. Исчезнувший исходник пропускается молча, любая другая ошибка
// прерывает пакет.
package renamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/fingerprint"
	"github.com/artemshloyda/printprep/internal/storage"
)

var (
	// ErrEmptyCategory - категория пустая.
	ErrEmptyCategory = errors.New("категория не может быть пустой")
	// ErrCollision - имя занято при политике fingerprint.
	ErrCollision = errors.New("целевое имя уже занято")
)

// Request - один файл пакета.
type Request struct {
	Path     string
	Category string
}

// Result - итог переименования одного файла.
type Result struct {
	OriginalPath string
	FinalPath    string
	FinalName    string

	// Index - номер в пакете (с 1).
	Index int

	// Fingerprint - отпечаток исходника.
	Fingerprint string
}

// Normalizer переписывает src в dst с разрешением 300 ppi.
type Normalizer interface {
	Normalize(ctx context.Context, src, dst string) error
}

// Journal принимает записи о выполненных переименованиях.
type Journal interface {
	RecordRename(ctx context.Context, rec *storage.RenameRecord) error
}

// Options - настройки Renamer.
type Options struct {
	// Collision - политика уникальности; пустая означает suffix.
	Collision config.CollisionPolicy

	// Normalizer - нормализация разрешения при переименовании (опционально).
	// Работает с путями ОС, поэтому имеет смысл только с afero.OsFs.
	Normalizer Normalizer

	// Journal - журнал (опционально).
	Journal Journal

	// BatchID - идентификатор пакета для журнала; пустой генерируется.
	BatchID string
}

// Renamer выполняет пакетное переименование.
type Renamer struct {
	fs   afero.Fs
	opts Options
}

// New создаёт Renamer. nil fsys означает файловую систему ОС.
func New(fsys afero.Fs, opts Options) *Renamer {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if opts.Collision == "" {
		opts.Collision = config.CollisionSuffix
	}
	if opts.BatchID == "" {
		opts.BatchID = uuid.NewString()
	}
	return &Renamer{fs: fsys, opts: opts}
}

// BatchID возвращает идентификатор пакета.
func (r *Renamer) BatchID() string {
	return r.opts.BatchID
}

// RenameBatch переименовывает файлы по порядку.
// При фатальной ошибке возвращает nil и ошибку.
func (r *Renamer) RenameBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("batch", r.opts.BatchID).Logger()

	categories := make([]string, len(reqs))
	for i, req := range reqs {
		cat, err := SanitizeCategory(req.Category)
		if err != nil {
			return nil, fmt.Errorf("запрос %d (%s): %w", i+1, req.Path, err)
		}
		categories[i] = cat
	}

	results := make([]Result, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index := i + 1
		// кандидаты строятся через filepath.Join, поэтому сравниваются с очищенным путём
		src := filepath.Clean(req.Path)

		st, err := r.fs.Stat(src)
		if err != nil || st.IsDir() {
			logger.Debug().Str("path", req.Path).Int("index", index).Msg("исходник отсутствует, пропуск")
			continue
		}

		fp := fingerprint.OfFs(r.fs, src)
		finalPath, err := r.resolveTarget(src, categories[i], index, fp)
		if err != nil {
			return nil, err
		}

		if err := r.place(ctx, src, finalPath); err != nil {
			return nil, err
		}

		res := Result{
			OriginalPath: req.Path,
			FinalPath:    finalPath,
			FinalName:    filepath.Base(finalPath),
			Index:        index,
			Fingerprint:  fp,
		}
		results = append(results, res)

		logger.Info().
			Str("from", req.Path).
			Str("to", res.FinalName).
			Msg("переименован")

		r.record(ctx, res, categories[i], st.Size())
	}

	return results, nil
}

// SanitizeCategory проверяет категорию и заменяет разделители пути на "_".
func SanitizeCategory(category string) (string, error) {
	c := strings.TrimSpace(category)
	if c == "" {
		return "", ErrEmptyCategory
	}
	c = strings.NewReplacer("/", "_", "\\", "_").Replace(c)
	return c, nil
}

// BuildName возвращает "{category}-{index}_{fp}.{ext}". Пустое расширение заменяется на jpg.
func BuildName(category string, index int, fp, ext string) string {
	return fmt.Sprintf("%s-%d_%s.%s", category, index, fp, normalizeExt(ext))
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}

// resolveTarget подбирает свободное имя в каталоге исходника.
func (r *Renamer) resolveTarget(src, category string, index int, fp string) (string, error) {
	dir := filepath.Dir(src)
	ext := normalizeExt(filepath.Ext(src))
	stem := fmt.Sprintf("%s-%d_%s", category, index, fp)

	candidate := filepath.Join(dir, stem+"."+ext)
	if candidate == src {
		return candidate, nil
	}

	taken, err := afero.Exists(r.fs, candidate)
	if err != nil {
		return "", fmt.Errorf("не удалось проверить %s: %w", candidate, err)
	}
	if !taken {
		return candidate, nil
	}

	if r.opts.Collision == config.CollisionFingerprint {
		return "", fmt.Errorf("%w: %s", ErrCollision, candidate)
	}

	for n := 1; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", stem, n, ext))
		if candidate == src {
			return candidate, nil
		}
		taken, err := afero.Exists(r.fs, candidate)
		if err != nil {
			return "", fmt.Errorf("не удалось проверить %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

// place переносит src в dst, при наличии Normalizer - через нормализацию.
func (r *Renamer) place(ctx context.Context, src, dst string) error {
	if r.opts.Normalizer != nil {
		err := r.normalize(ctx, src, dst)
		if err == nil {
			return nil
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", src).Msg("нормализация разрешения не удалась, обычный перенос")
	}

	if src == dst {
		return nil
	}
	return r.move(ctx, src, dst)
}

// normalize пишет нормализованную копию во временный файл рядом с dst,
// переименовывает её в dst и удаляет исходник.
func (r *Renamer) normalize(ctx context.Context, src, dst string) error {
	ext := filepath.Ext(dst)
	tmp := strings.TrimSuffix(dst, ext) + ".normalizing" + ext

	if err := r.opts.Normalizer.Normalize(ctx, src, tmp); err != nil {
		_ = r.fs.Remove(tmp)
		return err
	}
	if st, err := r.fs.Stat(tmp); err != nil || st.Size() == 0 {
		_ = r.fs.Remove(tmp)
		return fmt.Errorf("нормализация не создала файл %s", tmp)
	}
	if err := r.fs.Rename(tmp, dst); err != nil {
		_ = r.fs.Remove(tmp)
		return err
	}
	if src != dst {
		if err := r.fs.Remove(src); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", src).Msg("не удалось удалить исходник после нормализации")
		}
	}
	return nil
}

// move переименовывает файл, а если это невозможно (другое устройство, права) -
// копирует и удаляет исходник. Фатальна только ошибка копирования.
func (r *Renamer) move(ctx context.Context, src, dst string) error {
	renameErr := r.fs.Rename(src, dst)
	if renameErr == nil {
		return nil
	}

	zerolog.Ctx(ctx).Debug().Err(renameErr).Str("path", src).Msg("rename не удался, копирование")

	if err := r.copyExclusive(src, dst); err != nil {
		return fmt.Errorf("не удалось перенести %s -> %s: %w", src, dst, err)
	}
	if err := r.fs.Remove(src); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", src).Msg("копия создана, но исходник не удалён")
	}
	return nil
}

func (r *Renamer) copyExclusive(src, dst string) (err error) {
	in, err := r.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	mode := os.FileMode(0644)
	if st, statErr := in.Stat(); statErr == nil {
		mode = st.Mode().Perm()
	}

	out, err := r.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = r.fs.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

func (r *Renamer) record(ctx context.Context, res Result, category string, size int64) {
	if r.opts.Journal == nil {
		return
	}
	rec := &storage.RenameRecord{
		BatchID:      r.opts.BatchID,
		OriginalPath: res.OriginalPath,
		FinalPath:    res.FinalPath,
		Category:     category,
		BatchIndex:   res.Index,
		Fingerprint:  res.Fingerprint,
		SizeBytes:    size,
		RenamedAt:    time.Now(),
	}
	if err := r.opts.Journal.RecordRename(ctx, rec); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", res.FinalPath).Msg("не удалось записать в журнал")
	}
}
