// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Layout - сохранённый рецепт трансформации: режим, размер, кадр и поля.
type Layout struct {
	// Name - имя раскладки (не сохраняется в файл).
	Name string `yaml:"-"`

	// Mode - crop, resize, pad, border или mirror.
	Mode string `yaml:"mode"`

	// Paper - имя формата бумаги (альтернатива WidthCm/HeightCm).
	Paper string `yaml:"paper,omitempty"`

	// Landscape - перевернуть формат бумаги.
	Landscape bool `yaml:"landscape,omitempty"`

	// WidthCm - целевая ширина в сантиметрах.
	WidthCm float64 `yaml:"width_cm,omitempty"`

	// HeightCm - целевая высота в сантиметрах.
	HeightCm float64 `yaml:"height_cm,omitempty"`

	// Crop - прямоугольник кадрирования в процентах.
	Crop *LayoutRect `yaml:"crop,omitempty"`

	// Border - поля по краям в сантиметрах (отрицательные - подрезка).
	Border *LayoutInsets `yaml:"border,omitempty"`
}

// LayoutRect - прямоугольник в процентах от размеров исходника.
type LayoutRect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// LayoutInsets - поля по четырём краям в сантиметрах.
type LayoutInsets struct {
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
}

// LayoutStore хранит раскладки в виде YAML файлов в одной директории.
type LayoutStore struct {
	// Dir - директория с файлами раскладок.
	Dir string
}

// NewLayoutStore создаёт хранилище раскладок в dir.
func NewLayoutStore(dir string) *LayoutStore {
	return &LayoutStore{Dir: dir}
}

// DefaultLayoutsDir возвращает ~/.config/printprep/layouts.
func DefaultLayoutsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("не удалось получить домашнюю директорию: %w", err)
	}
	return filepath.Join(homeDir, ".config", "printprep", "layouts"), nil
}

// path возвращает путь к файлу раскладки по имени.
func (s *LayoutStore) path(name string) (string, error) {
	safeName := sanitizeLayoutName(name)
	if safeName == "" {
		return "", fmt.Errorf("некорректное имя раскладки: %q", name)
	}
	return filepath.Join(s.Dir, safeName+".yaml"), nil
}

// sanitizeLayoutName оставляет только буквы, цифры, дефисы и подчёркивания.
func sanitizeLayoutName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Save сохраняет раскладку под именем name и возвращает путь к файлу.
func (s *LayoutStore) Save(name string, l Layout) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("не удалось создать директорию раскладок: %w", err)
	}

	data, err := yaml.Marshal(&l)
	if err != nil {
		return "", fmt.Errorf("не удалось сериализовать раскладку: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("не удалось сохранить раскладку: %w", err)
	}
	return p, nil
}

// Load загружает раскладку по имени.
func (s *LayoutStore) Load(name string) (*Layout, string, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("раскладка '%s' не найдена", name)
		}
		return nil, "", fmt.Errorf("не удалось загрузить раскладку '%s': %w", name, err)
	}

	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, "", fmt.Errorf("ошибка парсинга YAML в %s: %w", p, err)
	}
	l.Name = sanitizeLayoutName(name)
	return &l, p, nil
}

// List возвращает все сохранённые раскладки, отсортированные по имени.
// Файлы, которые не удалось разобрать, пропускаются.
func (s *LayoutStore) List() ([]Layout, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Layout{}, nil
		}
		return nil, fmt.Errorf("не удалось прочитать директорию раскладок: %w", err)
	}

	layouts := []Layout{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		l, _, err := s.Load(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			continue
		}
		layouts = append(layouts, *l)
	}

	sort.Slice(layouts, func(i, j int) bool {
		return layouts[i].Name < layouts[j].Name
	})
	return layouts, nil
}

// Delete удаляет раскладку по имени.
func (s *LayoutStore) Delete(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("раскладка '%s' не найдена", name)
		}
		return fmt.Errorf("не удалось удалить раскладку: %w", err)
	}
	return nil
}

// Exists проверяет существование раскладки.
func (s *LayoutStore) Exists(name string) bool {
	p, err := s.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}
