// Package asset описывает исходное изображение: размеры, разрешение, физический размер
// и отпечаток содержимого.
package asset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/engine"
	"github.com/artemshloyda/printprep/internal/fingerprint"
	"github.com/artemshloyda/printprep/internal/metadata"
)

var (
	// ErrNotFound - файла нет.
	ErrNotFound = errors.New("файл не найден")
	// ErrNoDimensions - размеры не удалось определить ни одним способом.
	ErrNoDimensions = errors.New("не удалось определить размеры")
)

// ImageAsset - исходное изображение.
type ImageAsset struct {
	// Path - путь к файлу.
	Path string

	// Ext - расширение без точки в нижнем регистре.
	Ext string

	// Width, Height - размеры в пикселях.
	Width  int
	Height int

	// Resolution - разрешение и его источник.
	Resolution metadata.Resolution

	mu     sync.Mutex
	fp     string
	fpSize int64
	fpMod  time.Time
}

// Fingerprint возвращает отпечаток содержимого.
// Значение кэшируется и пересчитывается, если изменился размер или время модификации.
func (a *ImageAsset) Fingerprint() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, err := os.Stat(a.Path)
	if err != nil {
		return config.MissingFingerprint
	}
	if a.fp != "" && st.Size() == a.fpSize && st.ModTime().Equal(a.fpMod) {
		return a.fp
	}

	a.fp = fingerprint.Of(a.Path)
	a.fpSize = st.Size()
	a.fpMod = st.ModTime()
	return a.fp
}

// PhysicalSize возвращает размер отпечатка в сантиметрах при текущем разрешении.
func (a *ImageAsset) PhysicalSize() (widthCm, heightCm float64) {
	dpi := a.Resolution.DPI
	if dpi <= 0 {
		dpi = config.DefaultDPI
	}
	return float64(a.Width) / dpi * config.CmPerInch, float64(a.Height) / dpi * config.CmPerInch
}

// SizeLabel возвращает физический размер в виде "W.W x H.H cm".
func (a *ImageAsset) SizeLabel() string {
	w, h := a.PhysicalSize()
	return fmt.Sprintf("%.1f x %.1f cm", w, h)
}

// Identifier - то, что умеет сообщить размеры и разрешение файла.
type Identifier interface {
	Identify(ctx context.Context, path string) (*engine.Info, error)
}

// Prober собирает ImageAsset по пути.
type Prober struct {
	// Engine - запасной источник размеров и разрешения (может быть nil).
	Engine Identifier
}

// NewProber создаёт Prober.
func NewProber(e Identifier) *Prober {
	return &Prober{Engine: e}
}

// Probe определяет размеры и разрешение файла.
func (p *Prober) Probe(ctx context.Context, path string) (*ImageAsset, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("не удалось прочитать %s: %w", path, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s - директория", path)
	}

	a := &ImageAsset{
		Path:       path,
		Ext:        strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")),
		Resolution: metadata.ProbeFile(path),
	}

	w, h, decErr := engine.DecodeDimensions(path)

	var info *engine.Info
	if decErr != nil || !a.Resolution.Confident() {
		info = p.identify(ctx, path)
	}

	switch {
	case decErr == nil:
		a.Width, a.Height = w, h
	case info != nil:
		a.Width, a.Height = info.Width, info.Height
	default:
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDimensions, filepath.Base(path), decErr)
	}

	// Без единицы (ImageMagick сообщает "72 Undefined") значение движка не используется.
	if !a.Resolution.Confident() && info != nil && info.Resolution > 0 && info.Unit != metadata.UnitUnspecified {
		a.Resolution = metadata.Resolution{DPI: info.DPI(), Source: metadata.SourceEngine}
	}

	return a, nil
}

func (p *Prober) identify(ctx context.Context, path string) *engine.Info {
	if p.Engine == nil {
		return nil
	}
	info, err := p.Engine.Identify(ctx, path)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("identify не удался")
		return nil
	}
	return info
}
