package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/printprep/internal/config"
)

// newLayoutsCmd создаёт команду для управления раскладками.
func newLayoutsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "Управление сохранёнными раскладками",
		Long: `Управление сохранёнными раскладками.

Раскладка - рецепт трансформации (режим, формат, кадр, поля), хранится в
~/.config/printprep/layouts/.

Примеры:
  # Сохранить параметры как раскладку
  printprep transform photo.jpg --mode mirror --paper A3 --border 3 --save-layout canvas-a3

  # Применить раскладку
  printprep transform next.jpg --layout canvas-a3

  # Список раскладок
  printprep layouts list`,
	}

	cmd.AddCommand(newLayoutsListCmd())
	cmd.AddCommand(newLayoutsShowCmd())
	cmd.AddCommand(newLayoutsDeleteCmd())

	return cmd
}

// newLayoutsListCmd создаёт команду для списка раскладок.
func newLayoutsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Показать список раскладок",
		RunE: func(cmd *cobra.Command, args []string) error {
			layouts, err := layoutStore().List()
			if err != nil {
				return fmt.Errorf("ошибка получения списка раскладок: %w", err)
			}

			if len(layouts) == 0 {
				fmt.Println("Раскладки не найдены.")
				fmt.Println()
				fmt.Println("Сохраните раскладку командой:")
				fmt.Println("  printprep transform photo.jpg --mode pad --paper A4 --save-layout a4")
				return nil
			}

			fmt.Printf("📐 Сохранённые раскладки (%d):\n\n", len(layouts))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ИМЯ\tРЕЖИМ\tФОРМАТ")
			fmt.Fprintln(w, "---\t-----\t------")
			for _, l := range layouts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.Name, l.Mode, layoutFormat(l))
			}
			return w.Flush()
		},
	}
}

// newLayoutsShowCmd создаёт команду для отображения раскладки.
func newLayoutsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Показать содержимое раскладки",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, path, err := layoutStore().Load(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("📐 Раскладка: %s\n", l.Name)
			fmt.Printf("📁 Путь: %s\n\n", path)
			fmt.Printf("  mode: %s\n", l.Mode)
			fmt.Printf("  format: %s\n", layoutFormat(*l))
			if l.Crop != nil {
				fmt.Printf("  crop: %g,%g,%g,%g %%\n", l.Crop.X, l.Crop.Y, l.Crop.W, l.Crop.H)
			}
			if l.Border != nil {
				fmt.Printf("  border: %g,%g,%g,%g cm\n", l.Border.Top, l.Border.Right, l.Border.Bottom, l.Border.Left)
			}
			return nil
		},
	}
}

// newLayoutsDeleteCmd создаёт команду для удаления раскладки.
func newLayoutsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Удалить раскладку",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			store := layoutStore()

			if !store.Exists(name) {
				return fmt.Errorf("раскладка '%s' не найдена", name)
			}
			if err := store.Delete(name); err != nil {
				return err
			}

			fmt.Printf("✅ Раскладка '%s' удалена\n", name)
			return nil
		},
	}
}

// layoutFormat описывает размер раскладки: имя бумаги или "W x H cm".
func layoutFormat(l config.Layout) string {
	switch {
	case l.Paper != "" && l.Landscape:
		return l.Paper + " (альбом)"
	case l.Paper != "":
		return l.Paper
	case l.WidthCm > 0 || l.HeightCm > 0:
		return fmt.Sprintf("%g x %g cm", l.WidthCm, l.HeightCm)
	default:
		return "-"
	}
}
