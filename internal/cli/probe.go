package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/printprep/internal/asset"
	"github.com/artemshloyda/printprep/internal/scanner"
	"github.com/artemshloyda/printprep/internal/worker"
)

// newProbeCmd создаёт команду probe.
func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe PATH...",
		Short: "Показать размеры, разрешение и физический размер файлов",
		Long: `Показывает размеры в пикселях, разрешение и физический размер печати.

Разрешение берётся из EXIF, затем из JFIF, затем из PSD. Если его нет ни в одном
источнике, используется 300 dpi, и результат помечается как неуверенный.
Директории обходятся рекурсивно.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProbe,
	}

	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "Количество параллельных воркеров")

	return cmd
}

// collectFiles раскрывает аргументы: файлы берутся как есть, директории сканируются.
func collectFiles(ctx context.Context, args []string) ([]scanner.File, error) {
	scan := scanner.New(cfg)

	var files []scanner.File
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			// отсутствующий файл обработает вызывающий
			files = append(files, scanner.File{Path: arg, RelPath: arg})
			continue
		}
		if !st.IsDir() {
			files = append(files, scanner.File{Path: arg, RelPath: arg, Size: st.Size(), Mtime: st.ModTime().Unix()})
			continue
		}

		found, err := scan.Collect(ctx, arg)
		if err != nil {
			return nil, err
		}
		for i := range found {
			found[i].RelPath = filepath.Join(arg, found[i].RelPath)
		}
		files = append(files, found...)
	}
	return files, nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}

	files, err := collectFiles(ctx, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("📭 Подходящих файлов не найдено")
		return nil
	}

	pool := worker.New(asset.NewProber(eng), cfg.Workers)
	bar := newBar(len(files), "Анализ")
	pool.SetProgressBar(bar)

	reports, err := pool.Process(ctx, files)
	bar.Finish()
	if err != nil {
		return err
	}

	for _, r := range reports {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", r.File.RelPath, r.Err)
			continue
		}
		fmt.Println(formatAsset(r.File.RelPath, r.Asset))
	}

	stats := pool.GetStats()
	if len(reports) > 1 {
		fmt.Println()
		fmt.Printf("📊 Файлов: %d, определено: %d, без разрешения: %d, ошибок: %d\n",
			stats.Total, stats.Probed, stats.LowConfidence, stats.Failed)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("не удалось определить %d файлов", stats.Failed)
	}
	return nil
}

// formatAsset возвращает строку вида "📐 a.jpg: 1181x1181 px, 300 dpi (exif), 10.0 x 10.0 cm".
func formatAsset(name string, a *asset.ImageAsset) string {
	line := fmt.Sprintf("📐 %s: %dx%d px, %g dpi (%s), %s",
		name, a.Width, a.Height, a.Resolution.DPI, a.Resolution.Source, a.SizeLabel())
	if !a.Resolution.Confident() {
		line += " ⚠️  разрешение не указано в файле"
	}
	return line
}
