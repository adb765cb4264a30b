package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/enginefinder"
	"github.com/artemshloyda/printprep/internal/geometry"
)

// newPapersCmd создаёт команду papers.
func newPapersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "papers",
		Short: "Показать доступные форматы бумаги",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ФОРМАТ\tСМ\tPX @300")
			fmt.Fprintln(w, "------\t--\t-------")
			for _, p := range cfg.ValidPapers() {
				size, err := geometry.TargetSize(p.WidthCm, p.HeightCm)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "%s\t%g x %g\t%dx%d\n", p.Name, p.WidthCm, p.HeightCm, size.W, size.H)
			}
			return w.Flush()
		},
	}
}

// newCategoriesCmd создаёт команду categories.
func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Показать типовые категории материалов",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("🏷️  Категории (можно указать любую непустую):")
			for _, c := range cfg.Categories {
				fmt.Printf("   %s\n", c)
			}
		},
	}
}

// newEngineCmd создаёт команду engine.
func newEngineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engine",
		Short: "Показать, какой растровый движок будет использован",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Engine == config.EngineBuiltin {
				fmt.Println("📦 Встроенный движок (выбран явно, только JPEG на выходе)")
				return nil
			}

			info, err := enginefinder.NewFinder(cfg.EnginePath).Find()
			if err != nil {
				if cfg.Engine == config.EngineMagick {
					return err
				}
				fmt.Println("⚠️  ImageMagick не найден, будет использован встроенный движок (только JPEG на выходе)")
				return nil
			}

			name := "magick"
			if info.Legacy {
				name = "convert (ImageMagick 6)"
			}
			fmt.Printf("📦 Найден %s: %s (версия %s, источник: %s)\n", name, info.Path, info.Version, info.Strategy)
			return nil
		},
	}
}

// newConfigCmd создаёт команду config.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с конфигурационным файлом",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Создать пример конфигурационного файла",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "printprep.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("файл %s уже существует (используйте --force)", path)
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("не удалось создать директорию: %w", err)
				}
			}
			if err := os.WriteFile(path, []byte(config.GenerateExampleConfig()), 0644); err != nil {
				return fmt.Errorf("не удалось записать %s: %w", path, err)
			}

			fmt.Printf("✅ Создан %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Перезаписать существующий файл")

	cmd.AddCommand(initCmd)
	return cmd
}
