package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/printprep/internal/storage"
)

// newHistoryCmd создаёт команду history.
func newHistoryCmd() *cobra.Command {
	var (
		limit int
		fp    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Показать журнал переименований",
		Long: `Показывает журнал переименований.

С --fingerprint ищет все файлы с данным отпечатком: так по имени
glossy-3_1aB2cD.jpg можно найти исходный файл и все его копии.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := requireJournal(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var recs []storage.RenameRecord
			if fp != "" {
				recs, err = store.FindByFingerprint(ctx, fp)
			} else {
				recs, err = store.ListRenames(ctx, limit)
			}
			if err != nil {
				return fmt.Errorf("не удалось прочитать журнал: %w", err)
			}

			if len(recs) == 0 {
				fmt.Println("📭 Записей нет")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ВРЕМЯ\tПАКЕТ\t№\tОТПЕЧАТОК\tБЫЛО\tСТАЛО")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					r.RenamedAt.Local().Format("2006-01-02 15:04"),
					shortID(r.BatchID), r.BatchIndex, r.Fingerprint, r.OriginalPath, r.FinalPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Сколько последних записей показать (0 = все)")
	cmd.Flags().StringVar(&fp, "fingerprint", "", "Найти файлы с отпечатком")

	return cmd
}

// newStatsCmd создаёт команду stats.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Показать статистику журнала",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := requireJournal(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			st, err := store.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("не удалось получить статистику: %w", err)
			}

			fmt.Printf("📊 Статистика журнала (%s):\n", cfg.DBPath)
			fmt.Printf("   Переименований: %d (пакетов: %d)\n", st.Renames, st.Batches)
			fmt.Printf("   Трансформаций: %d\n", st.Transforms)
			fmt.Printf("   Успешно: %d\n", st.TransformsOK)
			fmt.Printf("   Ошибок: %d\n", st.TransformsFailed)
			fmt.Printf("   В процессе: %d\n", st.TransformsInProgress)
			return nil
		},
	}
}

// shortID возвращает первые 8 символов идентификатора пакета.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
