package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/engine"
	"github.com/artemshloyda/printprep/internal/enginefinder"
	"github.com/artemshloyda/printprep/internal/progress"
	"github.com/artemshloyda/printprep/internal/storage"
)

// openEngine выбирает растровый движок согласно cfg.Engine.
func openEngine(ctx context.Context) (engine.Engine, error) {
	if cfg.Engine == config.EngineBuiltin {
		return engine.NewBuiltin(), nil
	}

	info, err := enginefinder.NewFinder(cfg.EnginePath).Find()
	if err != nil {
		if cfg.Engine == config.EngineMagick {
			return nil, err
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("ImageMagick не найден, используется встроенный движок (только JPEG)")
		return engine.NewBuiltin(), nil
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", info.Path).
		Str("version", info.Version).
		Str("strategy", info.Strategy).
		Msg("найден ImageMagick")
	return engine.NewMagick(info.Path, info.Legacy), nil
}

// openJournal открывает журнал операций. Возвращает nil, если журнал отключён.
func openJournal(ctx context.Context) (*storage.Storage, error) {
	if cfg.NoJournal {
		return nil, nil
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть журнал: %w", err)
	}

	cleaned, err := store.CleanupInProgress(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("не удалось очистить прерванные трансформации")
	} else if cleaned > 0 {
		fmt.Printf("🧹 Отмечено прерванных трансформаций: %d\n", cleaned)
	}
	return store, nil
}

// requireJournal открывает журнал для команд, которые без него не имеют смысла.
func requireJournal(ctx context.Context) (*storage.Storage, error) {
	if cfg.NoJournal {
		return nil, errors.New("журнал отключён (--no-journal)")
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("журнал не найден: %s", cfg.DBPath)
	}
	return openJournal(ctx)
}

// newBar создаёт прогресс-бар для n файлов.
func newBar(n int, description string) *progress.Bar {
	return progress.New(progress.Options{
		Total:       int64(n),
		Description: description,
		Disabled:    cfg.NoProgress || n < 2,
	})
}

// say выводит сообщение через прогресс-бар, если он есть.
func say(bar *progress.Bar, format string, args ...any) {
	if bar != nil {
		bar.WriteMessage(format, args...)
		return
	}
	fmt.Printf(format, args...)
}
