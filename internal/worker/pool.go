// Package worker содержит пул для параллельного probe многих файлов.
package worker

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/artemshloyda/printprep/internal/asset"
	"github.com/artemshloyda/printprep/internal/progress"
	"github.com/artemshloyda/printprep/internal/scanner"
)

// Prober определяет размеры и разрешение одного файла.
type Prober interface {
	Probe(ctx context.Context, path string) (*asset.ImageAsset, error)
}

// Report - результат probe одного файла.
type Report struct {
	// File - исходный файл.
	File scanner.File

	// Asset - результат (nil при ошибке).
	Asset *asset.ImageAsset

	// Err - ошибка probe.
	Err error
}

// Stats содержит статистику пакета.
type Stats struct {
	// Total - сколько файлов передано.
	Total int64

	// Probed - сколько определено успешно.
	Probed int64

	// Failed - сколько с ошибкой.
	Failed int64

	// LowConfidence - сколько получили разрешение по умолчанию.
	LowConfidence int64

	// Bytes - суммарный размер файлов.
	Bytes int64
}

// Pool выполняет probe с ограниченным параллелизмом.
// Сам probe остаётся синхронным, параллельность только на уровне вызывающего.
type Pool struct {
	prober   Prober
	workers  int
	progress *progress.Bar
	stats    Stats
}

// New создаёт пул.
func New(prober Prober, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{prober: prober, workers: workers}
}

// SetProgressBar устанавливает прогресс-бар.
func (p *Pool) SetProgressBar(bar *progress.Bar) {
	p.progress = bar
}

// Process обрабатывает файлы и возвращает отчёты в порядке входа.
// Ошибка одного файла не останавливает остальные; отмена контекста прерывает пакет.
func (p *Pool) Process(ctx context.Context, files []scanner.File) ([]Report, error) {
	reports := make([]Report, len(files))

	// gctx отменяется после Wait, поэтому итог проверяется по родительскому ctx.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = p.probeOne(gctx, f)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, ctx.Err()
}

func (p *Pool) probeOne(ctx context.Context, f scanner.File) Report {
	atomic.AddInt64(&p.stats.Total, 1)
	atomic.AddInt64(&p.stats.Bytes, f.Size)

	r := Report{File: f}
	r.Asset, r.Err = p.prober.Probe(ctx, f.Path)

	if r.Err != nil {
		atomic.AddInt64(&p.stats.Failed, 1)
		if p.progress != nil {
			p.progress.Failed()
		}
		return r
	}

	atomic.AddInt64(&p.stats.Probed, 1)
	if !r.Asset.Resolution.Confident() {
		atomic.AddInt64(&p.stats.LowConfidence, 1)
	}
	if p.progress != nil {
		p.progress.Done()
	}
	return r
}

// GetStats возвращает текущую статистику.
func (p *Pool) GetStats() Stats {
	return Stats{
		Total:         atomic.LoadInt64(&p.stats.Total),
		Probed:        atomic.LoadInt64(&p.stats.Probed),
		Failed:        atomic.LoadInt64(&p.stats.Failed),
		LowConfidence: atomic.LoadInt64(&p.stats.LowConfidence),
		Bytes:         atomic.LoadInt64(&p.stats.Bytes),
	}
}
