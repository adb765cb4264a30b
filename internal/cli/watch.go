package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/printprep/internal/asset"
	"github.com/artemshloyda/printprep/internal/watcher"
)

// newWatchCmd создаёт команду watch.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Следить за папкой и показывать размер печати новых файлов",
		Long: `Следит за папкой и её поддиректориями. Каждый новый файл после того,
как он перестал меняться (--debounce), анализируется так же, как в probe.
Остановка - Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, err := openEngine(ctx)
			if err != nil {
				return err
			}
			prober := asset.NewProber(eng)

			w, err := watcher.New(cfg)
			if err != nil {
				return err
			}
			files, err := w.Watch(ctx, args[0])
			if err != nil {
				_ = w.Close()
				return err
			}

			fmt.Printf("👀 Слежение за %s (Ctrl+C для выхода)\n", args[0])
			for f := range files {
				a, err := prober.Probe(ctx, f.Path)
				if err != nil {
					fmt.Printf("❌ %s: %v\n", f.RelPath, err)
					continue
				}
				fmt.Println(formatAsset(f.RelPath, a))
			}
			fmt.Println("👋 Слежение остановлено")
			return nil
		},
	}

	cmd.Flags().DurationVar(&cfg.WatchDebounce, "debounce", cfg.WatchDebounce, "Задержка после последнего изменения файла")

	return cmd
}
