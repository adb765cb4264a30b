package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/artemshloyda/printprep/internal/converter"
	"github.com/artemshloyda/printprep/internal/renamer"
)

// newRenameCmd создаёт команду rename.
func newRenameCmd() *cobra.Command {
	var (
		category string
		dir      string
	)

	cmd := &cobra.Command{
		Use:   "rename --category C [--dir D] [PATH...]",
		Short: "Переименовать пакет файлов по категории материала",
		Long: `Переименовывает файлы в "{категория}-{номер}_{отпечаток}.{расширение}".

Номер - позиция файла в пакете (с 1): сначала PATH в указанном порядке, затем
файлы из --dir, отсортированные по пути. Отпечаток - 6 символов base62 от CRC-32
первых 256 КиБ содержимого. Исчезнувшие файлы пропускаются, но номер
сохраняет их позицию.

При --collision fingerprint занятое целевое имя не перезаписывается: пакет
прерывается с ошибкой коллизии, уже переименованные файлы остаются.

Примеры:
  printprep rename --category glossy a.jpg b.jpg
  printprep rename --category canvas --dir ./order-42 --normalize-dpi`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if dir != "" {
				found, err := collectFiles(ctx, []string{dir})
				if err != nil {
					return err
				}
				for _, f := range found {
					args = append(args, f.Path)
				}
			}
			if len(args) == 0 {
				return errors.New("не указаны файлы: передайте PATH или --dir")
			}

			opts := renamer.Options{Collision: cfg.Collision}

			store, err := openJournal(ctx)
			if err != nil {
				return err
			}
			if store != nil {
				defer func() { _ = store.Close() }()
				opts.Journal = store
			}

			if cfg.NormalizeDPI {
				eng, err := openEngine(ctx)
				if err != nil {
					return err
				}
				opts.Normalizer = converter.NewDensityNormalizer(eng, cfg.EngineTimeout)
			}

			reqs := make([]renamer.Request, len(args))
			for i, p := range args {
				reqs[i] = renamer.Request{Path: p, Category: category}
			}

			r := renamer.New(afero.NewOsFs(), opts)
			results, err := r.RenameBatch(ctx, reqs)
			if err != nil {
				return err
			}

			for _, res := range results {
				fmt.Printf("✅ %s -> %s\n", res.OriginalPath, res.FinalName)
			}
			if skipped := len(reqs) - len(results); skipped > 0 {
				fmt.Printf("⏭️  Пропущено отсутствующих файлов: %d\n", skipped)
			}
			fmt.Printf("📦 Пакет %s: переименовано %d\n", r.BatchID(), len(results))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&category, "category", "", "Категория (материал печати), например glossy")
	flags.StringVar(&dir, "dir", "", "Директория, файлы которой добавляются в пакет")
	flags.StringVar((*string)(&cfg.Collision), "collision", string(cfg.Collision), "Политика уникальности: suffix (занятое имя получает счётчик _N) или fingerprint (занятое имя - ошибка пакета, файлы не перезаписываются)")
	flags.BoolVar(&cfg.NormalizeDPI, "normalize-dpi", cfg.NormalizeDPI, "Переписать разрешение в 300 ppi")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
