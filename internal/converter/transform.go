// Package converter выполняет трансформации раскладки через растровый движок.
package converter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artemshloyda/printprep/internal/asset"
	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/engine"
	"github.com/artemshloyda/printprep/internal/geometry"
	"github.com/artemshloyda/printprep/internal/storage"
)

// ErrSourceMissing - исходного файла нет.
var ErrSourceMissing = errors.New("исходный файл не найден")

// Request описывает одну трансформацию.
type Request struct {
	// Path - исходный файл.
	Path string `json:"-"`

	// Mode - режим; пустой означает pad.
	Mode geometry.Mode `json:"mode"`

	// TargetWidthCm, TargetHeightCm - целевой размер (crop/resize/pad).
	TargetWidthCm  float64 `json:"width_cm,omitempty"`
	TargetHeightCm float64 `json:"height_cm,omitempty"`

	// Crop - кадр в процентах (crop).
	Crop geometry.PercentRect `json:"crop"`

	// Border - поля в сантиметрах (border/mirror).
	Border geometry.InsetsCm `json:"border"`
}

// Result содержит результат трансформации.
type Result struct {
	// FinalPath - путь к результату.
	FinalPath string

	// FinalName - имя файла результата.
	FinalName string

	// Geometry - скомпилированная геометрия.
	Geometry *geometry.Geometry

	// Duration - время трансформации.
	Duration time.Duration
}

// Prober определяет размеры и разрешение исходника.
type Prober interface {
	Probe(ctx context.Context, path string) (*asset.ImageAsset, error)
}

// Journal принимает записи о трансформациях.
type Journal interface {
	StartTransform(ctx context.Context, start storage.TransformStart) (int64, error)
	FinalizeTransformOK(ctx context.Context, id int64, dstPath string) error
	FinalizeTransformFailed(ctx context.Context, id int64, errMsg string) error
}

// Converter выполняет трансформации через растровый движок.
type Converter struct {
	// engine - растровый движок.
	engine engine.Engine

	// prober - источник размеров и разрешения.
	prober Prober

	// journal - журнал (может быть nil).
	journal Journal

	// timeout - таймаут на трансформацию одного файла.
	timeout time.Duration

	// background - цвет заливки.
	background string

	// keepSource - писать {stem}_{mode}{ext} рядом вместо замены исходника.
	keepSource bool
}

// New создаёт новый Converter.
func New(eng engine.Engine, prober Prober, cfg *config.Config) *Converter {
	c := &Converter{
		engine:     eng,
		prober:     prober,
		timeout:    config.DefaultEngineTimeout,
		background: config.DefaultBackground,
	}
	if cfg != nil {
		if cfg.EngineTimeout > 0 {
			c.timeout = cfg.EngineTimeout
		}
		if cfg.Background != "" {
			c.background = cfg.Background
		}
		c.keepSource = cfg.KeepSource
	}
	return c
}

// SetTimeout устанавливает таймаут на трансформацию.
func (c *Converter) SetTimeout(d time.Duration) {
	c.timeout = d
}

// SetJournal подключает журнал.
func (c *Converter) SetJournal(j Journal) {
	c.journal = j
}

// Plan проверяет исходник и компилирует геометрию без запуска движка.
func (c *Converter) Plan(ctx context.Context, req Request) (*asset.ImageAsset, *geometry.Geometry, error) {
	if _, err := os.Stat(req.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSourceMissing, req.Path)
		}
		return nil, nil, fmt.Errorf("не удалось прочитать %s: %w", req.Path, err)
	}

	a, err := c.prober.Probe(ctx, req.Path)
	if err != nil {
		return nil, nil, err
	}

	g, err := geometry.Compile(a.Width, a.Height, a.Resolution.DPI, geometry.Spec{
		Mode:           req.Mode,
		TargetWidthCm:  req.TargetWidthCm,
		TargetHeightCm: req.TargetHeightCm,
		Crop:           req.Crop,
		Border:         req.Border,
		Background:     c.background,
	})
	if err != nil {
		return nil, nil, err
	}
	return a, g, nil
}

// Transform выполняет трансформацию: движок пишет во временный файл рядом
// с исходником, который затем атомарно переименовывается в итоговый путь.
func (c *Converter) Transform(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	a, g, err := c.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	finalPath := req.Path
	if c.keepSource {
		finalPath = BuildKeepPath(req.Path, g.Mode)
	}
	tmpPath := BuildTempPath(req.Path)

	logger := zerolog.Ctx(ctx).With().
		Str("path", req.Path).
		Str("mode", string(g.Mode)).
		Logger()
	logger.Debug().
		Str("source", a.SizeLabel()).
		Float64("dpi", a.Resolution.DPI).
		Str("ops", geometry.Describe(g.Ops)).
		Msg("геометрия скомпилирована")

	jobID, err := c.startJournal(ctx, req, g.Mode)
	if err != nil {
		return nil, err
	}

	if err := c.run(ctx, req.Path, tmpPath, finalPath, g.Ops); err != nil {
		_ = os.Remove(tmpPath)
		c.finishJournal(ctx, jobID, "", err)
		return nil, err
	}

	c.finishJournal(ctx, jobID, finalPath, nil)

	res := &Result{
		FinalPath: finalPath,
		FinalName: filepath.Base(finalPath),
		Geometry:  g,
		Duration:  time.Since(start),
	}
	logger.Info().
		Str("to", res.FinalName).
		Int("width", g.Size.W).
		Int("height", g.Size.H).
		Dur("duration", res.Duration).
		Msg("трансформация завершена")
	return res, nil
}

func (c *Converter) run(ctx context.Context, src, tmp, dst string, ops []geometry.Op) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.engine.Transform(ctx, src, tmp, ops); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", engine.ErrTimeout, err)
		}
		return fmt.Errorf("%s: %w", c.engine.Name(), err)
	}

	st, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("%s не создал результат: %w", c.engine.Name(), err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("%s создал пустой файл", c.engine.Name())
	}

	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("не удалось переименовать %s -> %s: %w", tmp, dst, err)
	}
	return nil
}

func (c *Converter) startJournal(ctx context.Context, req Request, mode geometry.Mode) (int64, error) {
	if c.journal == nil {
		return 0, nil
	}

	req.Mode = mode
	params, _ := json.Marshal(req)
	id, err := c.journal.StartTransform(ctx, storage.TransformStart{
		SrcPath: req.Path,
		Mode:    string(mode),
		Params:  string(params),
		Engine:  c.engine.Name(),
	})
	if errors.Is(err, storage.ErrBusy) {
		return 0, err
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("не удалось записать в журнал")
		return 0, nil
	}
	return id, nil
}

func (c *Converter) finishJournal(ctx context.Context, id int64, dst string, runErr error) {
	if c.journal == nil || id == 0 {
		return
	}

	var err error
	if runErr != nil {
		err = c.journal.FinalizeTransformFailed(ctx, id, runErr.Error())
	} else {
		err = c.journal.FinalizeTransformOK(ctx, id, dst)
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("id", id).Msg("не удалось обновить журнал")
	}
}

// BuildTempPath возвращает путь временного файла: {stem}.transforming{ext}.
// Расширение сохраняется, потому что движок определяет формат по нему.
func BuildTempPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + ".transforming" + ext
}

// BuildKeepPath возвращает путь результата рядом с исходником: {stem}_{mode}{ext}.
func BuildKeepPath(src string, mode geometry.Mode) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + "_" + string(mode) + ext
}
