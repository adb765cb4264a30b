// Package config содержит конфигурацию приложения.
package config

import (
	"sort"
	"strings"
)

// Paper описывает физический формат печати в сантиметрах.
type Paper struct {
	// Name - имя формата (A4, 6in, ...).
	Name string `yaml:"name,omitempty"`
	// WidthCm - ширина в сантиметрах.
	WidthCm float64 `yaml:"width_cm"`
	// HeightCm - высота в сантиметрах.
	HeightCm float64 `yaml:"height_cm"`
}

// Landscape возвращает тот же формат с переставленными сторонами.
func (p Paper) Landscape() Paper {
	return Paper{Name: p.Name, WidthCm: p.HeightCm, HeightCm: p.WidthCm}
}

// Papers содержит встроенные форматы бумаги.
var Papers = map[string]Paper{
	"A4":   {Name: "A4", WidthCm: 21.0, HeightCm: 29.7},
	"A3":   {Name: "A3", WidthCm: 29.7, HeightCm: 42.0},
	"6in":  {Name: "6in", WidthCm: 10.2, HeightCm: 15.2},
	"10in": {Name: "10in", WidthCm: 20.3, HeightCm: 25.4},
}

// DefaultCategories - типовые материалы печати, используемые как категории имён.
var DefaultCategories = []string{
	"etching-210", "etching-315", "watercolor", "baryta", "museum-etching",
	"glossy", "velvet", "matte", "rough-watercolor", "cotton-smooth",
	"metallic", "rice-paper", "canvas", "backlit-film", "pp-adhesive",
}

// LookupPaper ищет формат сначала среди пользовательских, затем среди встроенных.
// Регистр имени не учитывается.
func (c *Config) LookupPaper(name string) (Paper, bool) {
	for _, set := range []map[string]Paper{c.Papers, Papers} {
		for key, p := range set {
			if strings.EqualFold(key, name) {
				if p.Name == "" {
					p.Name = key
				}
				return p, true
			}
		}
	}
	return Paper{}, false
}

// ValidPapers возвращает отсортированный список всех доступных форматов.
func (c *Config) ValidPapers() []Paper {
	seen := make(map[string]bool)
	var out []Paper
	for _, set := range []map[string]Paper{c.Papers, Papers} {
		for key, p := range set {
			k := strings.ToLower(key)
			if seen[k] {
				continue
			}
			seen[k] = true
			if p.Name == "" {
				p.Name = key
			}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
