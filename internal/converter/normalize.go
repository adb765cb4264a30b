package converter

import (
	"context"
	"time"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/engine"
	"github.com/artemshloyda/printprep/internal/geometry"
)

// DensityNormalizer переписывает файл с разрешением 300 ppi без изменения пикселей.
type DensityNormalizer struct {
	engine  engine.Engine
	timeout time.Duration
}

// NewDensityNormalizer создаёт нормализатор поверх движка.
func NewDensityNormalizer(eng engine.Engine, timeout time.Duration) *DensityNormalizer {
	if timeout <= 0 {
		timeout = config.DefaultEngineTimeout
	}
	return &DensityNormalizer{engine: eng, timeout: timeout}
}

// Normalize пишет src в dst с меткой 300 ppi.
func (n *DensityNormalizer) Normalize(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return n.engine.Transform(ctx, src, dst, []geometry.Op{geometry.Density{DPI: config.OutputDPI}})
}
