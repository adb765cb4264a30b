// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Константы предметной области. Алгоритмы используют только их, а не литералы.
const (
	// DefaultDPI - разрешение по умолчанию, если в файле нет ни EXIF, ни JFIF.
	DefaultDPI = 300.0

	// OutputDPI - разрешение, которым помечаются все выходные файлы.
	OutputDPI = 300

	// CmPerInch - сантиметров в дюйме.
	CmPerInch = 2.54

	// FingerprintWindow - сколько первых байт файла участвует в отпечатке (256 KiB).
	FingerprintWindow = 256 * 1024

	// FingerprintWidth - фиксированная длина отпечатка в символах.
	FingerprintWidth = 6

	// FingerprintAlphabet - алфавит base62: цифры, заглавные, строчные.
	FingerprintAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// MissingFingerprint - отпечаток файла, который не удалось открыть.
	MissingFingerprint = "000000"

	// HeaderScanLimit - сколько байт читать при поиске JFIF/PSD заголовков.
	HeaderScanLimit = 4 * 1024 * 1024

	// DefaultEngineTimeout - таймаут одного вызова растрового движка.
	DefaultEngineTimeout = 5 * time.Minute

	// DefaultBackground - цвет заливки полей и подложки при сведении слоёв.
	DefaultBackground = "white"
)

// CollisionPolicy определяет, как переименование обеспечивает уникальность имён.
type CollisionPolicy string

const (
	// CollisionSuffix - отпечаток плюс счётчик _1, _2, ... при занятом имени.
	CollisionSuffix CollisionPolicy = "suffix"
	// CollisionFingerprint - полагаться только на отпечаток, без счётчика.
	CollisionFingerprint CollisionPolicy = "fingerprint"
)

// EngineKind определяет, какой растровый движок использовать.
type EngineKind string

const (
	// EngineAuto - ImageMagick, если найден, иначе встроенный движок.
	EngineAuto EngineKind = "auto"
	// EngineMagick - только внешний ImageMagick.
	EngineMagick EngineKind = "magick"
	// EngineBuiltin - встроенный движок на imaging (только JPEG на выходе).
	EngineBuiltin EngineKind = "builtin"
)

// Config содержит все настройки приложения.
type Config struct {
	// InputExtensions - расширения поддерживаемых файлов (без точки, lowercase).
	InputExtensions []string

	// Workers - количество параллельных воркеров при пакетном probe.
	Workers int

	// Engine - выбор растрового движка.
	Engine EngineKind

	// EnginePath - путь к бинарнику ImageMagick (опционально).
	EnginePath string

	// EngineTimeout - таймаут одного вызова движка.
	EngineTimeout time.Duration

	// Collision - политика уникальности имён при переименовании.
	Collision CollisionPolicy

	// NormalizeDPI - переписывать разрешение в 300 ppi при переименовании.
	NormalizeDPI bool

	// Background - цвет заливки для pad/border и сведения слоёв.
	Background string

	// KeepSource - не заменять исходник, а писать результат рядом ({stem}_{mode}.{ext}).
	KeepSource bool

	// DBPath - путь к SQLite журналу операций.
	DBPath string

	// NoJournal - отключить журнал операций.
	NoJournal bool

	// LogFile - путь к файлу лога с ротацией (пусто = только stderr).
	LogFile string

	// Verbose - подробный вывод.
	Verbose bool

	// NoProgress - отключить прогресс-бар.
	NoProgress bool

	// Papers - дополнительные форматы бумаги из конфигурационного файла.
	Papers map[string]Paper

	// Categories - список категорий (материалов) для подсказки.
	Categories []string

	// WatchDebounce - задержка перед обработкой файла в режиме watch.
	WatchDebounce time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		InputExtensions: []string{"jpg", "jpeg", "tif", "tiff", "psd", "psb", "png"},
		Workers:         runtime.NumCPU(),
		Engine:          EngineAuto,
		EngineTimeout:   DefaultEngineTimeout,
		Collision:       CollisionSuffix,
		Background:      DefaultBackground,
		Papers:          map[string]Paper{},
		Categories:      append([]string(nil), DefaultCategories...),
		WatchDebounce:   500 * time.Millisecond,
	}
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if len(c.InputExtensions) == 0 {
		return fmt.Errorf("не указаны расширения входных файлов")
	}
	if c.Workers < 1 {
		return fmt.Errorf("количество воркеров должно быть >= 1, получено: %d", c.Workers)
	}
	switch c.Engine {
	case EngineAuto, EngineMagick, EngineBuiltin:
	default:
		return fmt.Errorf("неизвестный движок: %s (доступны: auto, magick, builtin)", c.Engine)
	}
	switch c.Collision {
	case CollisionSuffix, CollisionFingerprint:
	default:
		return fmt.Errorf("неизвестная политика коллизий: %s (доступны: suffix, fingerprint)", c.Collision)
	}
	if c.EngineTimeout <= 0 {
		return fmt.Errorf("таймаут движка должен быть > 0, получено: %s", c.EngineTimeout)
	}
	if strings.TrimSpace(c.Background) == "" {
		c.Background = DefaultBackground
	}

	// Путь к журналу по умолчанию
	if c.DBPath == "" && !c.NoJournal {
		c.DBPath = DefaultDBPath()
	}

	return nil
}

// DefaultDBPath возвращает путь к журналу в пользовательском каталоге состояния.
func DefaultDBPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "printprep", "journal.sqlite")
}

// HasInputExtension проверяет, поддерживается ли расширение файла.
func (c *Config) HasInputExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range c.InputExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
