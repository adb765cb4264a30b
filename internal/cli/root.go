// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/logging"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// cfg содержит глобальную конфигурацию.
var cfg = config.DefaultConfig()

// configPath - явный путь к конфигурационному файлу.
var configPath string

// closeLog закрывает файл лога после выполнения команды.
var closeLog = func() error { return nil }

// NewRootCmd создаёт корневую команду CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "printprep",
		Short: "Подготовка изображений к печати",
		Long: `printprep - CLI утилита подготовки изображений к печати.

Определяет физический размер по DPI из EXIF/JFIF/PSD, переименовывает пакеты
файлов по категории материала с отпечатком содержимого и приводит изображения
к заданному формату печати (crop, resize, pad, border, mirror) через ImageMagick
или встроенный движок.

Примеры:
  # Физический размер файлов
  printprep probe ./scans

  # Переименовать пакет в glossy-1_XXXXXX.jpg, glossy-2_XXXXXX.jpg, ...
  printprep rename --category glossy --dir ./order-42

  # Вписать изображение в A4 с полями
  printprep transform photo.tif --mode pad --paper A4

  # Добавить зеркальные поля 2 см под натяжку холста
  printprep transform canvas.jpg --mode mirror --border 2`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLog()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Путь к конфигурационному файлу YAML")
	flags.StringVar((*string)(&cfg.Engine), "engine", string(cfg.Engine), "Растровый движок: auto, magick или builtin")
	flags.StringVar(&cfg.EnginePath, "engine-path", cfg.EnginePath, "Путь к бинарнику ImageMagick")
	flags.DurationVar(&cfg.EngineTimeout, "engine-timeout", cfg.EngineTimeout, "Таймаут одного вызова движка")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Путь к SQLite журналу операций")
	flags.BoolVar(&cfg.NoJournal, "no-journal", cfg.NoJournal, "Не вести журнал операций")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Файл лога с ротацией")
	flags.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Отключить прогресс-бар")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Подробный вывод")

	rootCmd.AddCommand(newProbeCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newTransformCmd())
	rootCmd.AddCommand(newLayoutsCmd())
	rootCmd.AddCommand(newPapersCmd())
	rootCmd.AddCommand(newCategoriesCmd())
	rootCmd.AddCommand(newEngineCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup загружает конфигурационный файл, проверяет конфигурацию и настраивает лог.
func setup(cmd *cobra.Command, args []string) error {
	fc, path, err := config.FindAndLoadConfig(configPath)
	if err != nil {
		return err
	}
	if fc != nil {
		if err := applyFileConfig(cmd.Flags(), fc); err != nil {
			return fmt.Errorf("ошибка в %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	closer, err := logging.Setup(logging.Options{Verbose: cfg.Verbose, File: cfg.LogFile})
	if err != nil {
		return err
	}
	closeLog = closer

	if path != "" {
		log.Debug().Str("path", path).Msg("загружен конфигурационный файл")
	}
	cmd.SetContext(log.Logger.WithContext(cmd.Context()))
	return nil
}

// applyFileConfig применяет файл конфигурации к cfg. Явно заданные флаги
// приоритетнее файла: их значения запоминаются до применения и восстанавливаются после.
func applyFileConfig(flags *pflag.FlagSet, fc *config.FileConfig) error {
	explicit := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := fc.ApplyToConfig(cfg); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("флаг --%s: %w", name, err)
		}
	}
	return nil
}

// newVersionCmd создаёт команду version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("printprep %s (built %s)\n", Version, BuildTime)
		},
	}
}

// Execute запускает CLI.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		// cobra уже вывела ошибку
		stop()
		os.Exit(1)
	}
}
