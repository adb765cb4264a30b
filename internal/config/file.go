// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Engine - настройки растрового движка.
	Engine *EngineConfig `yaml:"engine,omitempty"`

	// Rename - настройки переименования.
	Rename *RenameConfig `yaml:"rename,omitempty"`

	// Transform - настройки трансформаций.
	Transform *TransformConfig `yaml:"transform,omitempty"`

	// Processing - настройки обработки.
	Processing *ProcessingConfig `yaml:"processing,omitempty"`

	// Input - настройки входных данных.
	Input *InputConfig `yaml:"input,omitempty"`

	// Paths - настройки путей.
	Paths *PathsConfig `yaml:"paths,omitempty"`
}

// EngineConfig содержит настройки растрового движка.
type EngineConfig struct {
	// Kind - auto, magick или builtin.
	Kind string `yaml:"kind,omitempty"`

	// Path - путь к бинарнику ImageMagick.
	Path string `yaml:"path,omitempty"`

	// Timeout - таймаут вызова, например "2m".
	Timeout string `yaml:"timeout,omitempty"`
}

// RenameConfig содержит настройки переименования.
type RenameConfig struct {
	// Collision - suffix или fingerprint.
	Collision string `yaml:"collision,omitempty"`

	// NormalizeDPI - переписывать разрешение в 300 ppi.
	NormalizeDPI bool `yaml:"normalize_dpi,omitempty"`

	// Categories - список категорий (материалов).
	Categories []string `yaml:"categories,omitempty"`
}

// TransformConfig содержит настройки трансформаций.
type TransformConfig struct {
	// Background - цвет заливки.
	Background string `yaml:"background,omitempty"`

	// KeepSource - писать результат рядом с исходником.
	KeepSource *bool `yaml:"keep_source,omitempty"`

	// Papers - дополнительные форматы бумаги.
	Papers map[string]Paper `yaml:"papers,omitempty"`
}

// ProcessingConfig содержит настройки обработки.
type ProcessingConfig struct {
	// Workers - количество параллельных воркеров.
	Workers int `yaml:"workers,omitempty"`

	// Verbose - подробный вывод.
	Verbose bool `yaml:"verbose,omitempty"`

	// NoProgress - отключить прогресс-бар.
	NoProgress bool `yaml:"no_progress,omitempty"`
}

// InputConfig содержит настройки входных данных.
type InputConfig struct {
	// Extensions - список расширений входных файлов.
	Extensions []string `yaml:"extensions,omitempty"`
}

// PathsConfig содержит настройки путей.
type PathsConfig struct {
	// DB - путь к SQLite журналу.
	DB string `yaml:"db,omitempty"`

	// LogFile - путь к файлу лога.
	LogFile string `yaml:"log_file,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла.
// Поиск выполняется в следующем порядке:
// 1. ./printprep.yaml (текущая директория)
// 2. ./printprep.yml
// 3. ~/.config/printprep/config.yaml
// 4. ~/.config/printprep/config.yml
func DefaultConfigPaths() []string {
	paths := []string{
		"printprep.yaml",
		"printprep.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "printprep", "config.yaml"),
			filepath.Join(home, ".config", "printprep", "config.yml"),
		)
	}

	return paths
}

// LoadFromFile загружает конфигурацию из указанного файла.
// Возвращает nil, nil если файл не существует.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML в %s: %w", path, err)
	}

	return &fc, nil
}

// FindAndLoadConfig ищет и загружает конфигурационный файл из стандартных путей.
// Если configPath указан явно, использует только его.
// Возвращает nil, "", nil если файл не найден.
func FindAndLoadConfig(configPath string) (*FileConfig, string, error) {
	if configPath != "" {
		fc, err := LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if fc == nil {
			return nil, "", fmt.Errorf("файл конфигурации не найден: %s", configPath)
		}
		return fc, configPath, nil
	}

	for _, path := range DefaultConfigPaths() {
		fc, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		if fc != nil {
			return fc, path, nil
		}
	}

	return nil, "", nil
}

// ApplyToConfig применяет настройки из файла к основной конфигурации.
// CLI флаги имеют приоритет, поэтому вызывать до парсинга флагов.
func (fc *FileConfig) ApplyToConfig(cfg *Config) error {
	if fc == nil {
		return nil
	}

	if fc.Engine != nil {
		if fc.Engine.Kind != "" {
			cfg.Engine = EngineKind(fc.Engine.Kind)
		}
		if fc.Engine.Path != "" {
			cfg.EnginePath = fc.Engine.Path
		}
		if fc.Engine.Timeout != "" {
			d, err := time.ParseDuration(fc.Engine.Timeout)
			if err != nil {
				return fmt.Errorf("engine.timeout: %w", err)
			}
			cfg.EngineTimeout = d
		}
	}

	if fc.Rename != nil {
		if fc.Rename.Collision != "" {
			cfg.Collision = CollisionPolicy(fc.Rename.Collision)
		}
		if fc.Rename.NormalizeDPI {
			cfg.NormalizeDPI = true
		}
		if len(fc.Rename.Categories) > 0 {
			cfg.Categories = fc.Rename.Categories
		}
	}

	if fc.Transform != nil {
		if fc.Transform.Background != "" {
			cfg.Background = fc.Transform.Background
		}
		if fc.Transform.KeepSource != nil {
			cfg.KeepSource = *fc.Transform.KeepSource
		}
		for name, p := range fc.Transform.Papers {
			if p.WidthCm <= 0 || p.HeightCm <= 0 {
				return fmt.Errorf("transform.papers.%s: размеры должны быть > 0", name)
			}
			if cfg.Papers == nil {
				cfg.Papers = map[string]Paper{}
			}
			p.Name = name
			cfg.Papers[name] = p
		}
	}

	if fc.Processing != nil {
		if fc.Processing.Workers > 0 {
			cfg.Workers = fc.Processing.Workers
		}
		if fc.Processing.Verbose {
			cfg.Verbose = true
		}
		if fc.Processing.NoProgress {
			cfg.NoProgress = true
		}
	}

	if fc.Input != nil && len(fc.Input.Extensions) > 0 {
		cfg.InputExtensions = fc.Input.Extensions
	}

	if fc.Paths != nil {
		if fc.Paths.DB != "" {
			cfg.DBPath = fc.Paths.DB
		}
		if fc.Paths.LogFile != "" {
			cfg.LogFile = fc.Paths.LogFile
		}
	}

	return nil
}

// GenerateExampleConfig генерирует пример конфигурационного файла.
func GenerateExampleConfig() string {
	return `# printprep configuration file
# Все параметры опциональны - если не указаны, используются значения по умолчанию.
# CLI флаги имеют приоритет над этим файлом.

engine:
  # auto (ImageMagick, если найден, иначе встроенный), magick или builtin
  kind: auto
  # Путь к magick (по умолчанию автопоиск)
  path: ""
  # Таймаут одного вызова движка
  timeout: 5m

rename:
  # suffix: отпечаток + _1, _2 при коллизии; fingerprint: только отпечаток
  collision: suffix
  # Переписывать разрешение в 300 ppi при переименовании
  normalize_dpi: false
  categories:
    - glossy
    - matte
    - canvas

transform:
  # Цвет полей для pad/border
  background: white
  # false: заменить исходник; true: писать {имя}_{режим}.{расширение} рядом
  keep_source: false
  papers:
    postcard:
      width_cm: 10
      height_cm: 15

processing:
  workers: 4
  verbose: false
  no_progress: false

input:
  extensions: [jpg, jpeg, tif, tiff, psd, psb, png]

paths:
  # Путь к SQLite журналу операций
  db: ""
  # Файл лога с ротацией
  log_file: ""
`
}
