package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/artemshloyda/printprep/internal/asset"
	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/converter"
	"github.com/artemshloyda/printprep/internal/geometry"
)

// transformOptions - флаги команды transform.
type transformOptions struct {
	mode       string
	paper      string
	landscape  bool
	width      float64
	height     float64
	crop       string
	border     string
	layout     string
	saveLayout string
	dryRun     bool
}

// newTransformCmd создаёт команду transform.
func newTransformCmd() *cobra.Command {
	o := &transformOptions{}

	cmd := &cobra.Command{
		Use:   "transform PATH...",
		Short: "Привести изображения к формату печати",
		Long: `Приводит изображения к формату печати одним из режимов:

  crop    - вырезать кадр (--crop x,y,w,h в процентах) и заполнить формат
  resize  - растянуть до формата без сохранения пропорций
  pad     - вписать в формат с полями цвета --background (по умолчанию)
  border  - добавить поля в сантиметрах (--border t,r,b,l), размер растёт
  mirror  - как border, но поля заполняются зеркальным отражением краёв

Размер задаётся через --width/--height в сантиметрах или --paper. Результат
помечается разрешением 300 ppi и заменяет исходник (или пишется рядом с
--keep-source).

Примеры:
  printprep transform photo.jpg --mode pad --paper A4
  printprep transform photo.jpg --mode crop --width 10 --height 15 --crop 10,0,80,100
  printprep transform canvas.tif --mode mirror --border 3 --keep-source
  printprep transform scan.psd --layout gallery-a3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, o, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.mode, "mode", string(geometry.ModePad), "Режим: crop, resize, pad, border, mirror")
	flags.StringVar(&o.paper, "paper", "", "Формат бумаги (см. printprep papers)")
	flags.BoolVar(&o.landscape, "landscape", false, "Альбомная ориентация формата")
	flags.Float64Var(&o.width, "width", 0, "Целевая ширина в см")
	flags.Float64Var(&o.height, "height", 0, "Целевая высота в см")
	flags.StringVar(&o.crop, "crop", "", "Кадр x,y,w,h в процентах (crop)")
	flags.StringVar(&o.border, "border", "", "Поля в см: a | v,h | t,r,b,l (border, mirror)")
	flags.StringVar(&cfg.Background, "background", cfg.Background, "Цвет заливки полей")
	flags.BoolVar(&cfg.KeepSource, "keep-source", cfg.KeepSource, "Не заменять исходник, писать {имя}_{режим} рядом")
	flags.StringVar(&o.layout, "layout", "", "Загрузить сохранённую раскладку")
	flags.StringVar(&o.saveLayout, "save-layout", "", "Сохранить параметры как раскладку")
	flags.BoolVar(&o.dryRun, "dry-run", false, "Показать геометрию без выполнения")

	return cmd
}

func runTransform(cmd *cobra.Command, o *transformOptions, args []string) error {
	ctx := cmd.Context()

	store := layoutStore()
	if o.layout != "" {
		l, _, err := store.Load(o.layout)
		if err != nil {
			return err
		}
		o.applyLayout(l, cmd.Flags())
	}

	req, err := o.request()
	if err != nil {
		return err
	}

	if o.saveLayout != "" {
		path, err := store.Save(o.saveLayout, o.toLayout())
		if err != nil {
			return err
		}
		fmt.Printf("💾 Раскладка '%s' сохранена: %s\n", o.saveLayout, path)
	}

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	conv := converter.New(eng, asset.NewProber(eng), cfg)

	if o.dryRun {
		for _, path := range args {
			req.Path = path
			a, g, err := conv.Plan(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("🔄 [dry-run] %s (%s) -> %dx%d px\n", path, a.SizeLabel(), g.Size.W, g.Size.H)
			fmt.Printf("   %s\n", geometry.Describe(g.Ops))
		}
		return nil
	}

	journal, err := openJournal(ctx)
	if err != nil {
		return err
	}
	if journal != nil {
		defer func() { _ = journal.Close() }()
		conv.SetJournal(journal)
	}

	bar := newBar(len(args), "Трансформация")
	var failed int
	for _, path := range args {
		req.Path = path
		res, err := conv.Transform(ctx, req)
		if err != nil {
			failed++
			bar.Failed()
			say(bar, "❌ %s: %v\n", path, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		bar.Done()
		say(bar, "✅ %s -> %s (%dx%d px, %.2fs)\n",
			path, res.FinalName, res.Geometry.Size.W, res.Geometry.Size.H, res.Duration.Seconds())
	}
	bar.Finish()

	if failed > 0 {
		return fmt.Errorf("завершено с %d ошибками", failed)
	}
	return nil
}

// applyLayout заполняет параметры из раскладки; явно заданные флаги не меняются.
func (o *transformOptions) applyLayout(l *config.Layout, flags *pflag.FlagSet) {
	set := func(name string) bool { return !flags.Changed(name) }

	if set("mode") && l.Mode != "" {
		o.mode = l.Mode
	}
	if set("paper") && set("width") && set("height") {
		o.paper = l.Paper
		o.landscape = o.landscape || l.Landscape
		o.width = l.WidthCm
		o.height = l.HeightCm
	}
	if set("crop") && l.Crop != nil {
		o.crop = fmt.Sprintf("%g,%g,%g,%g", l.Crop.X, l.Crop.Y, l.Crop.W, l.Crop.H)
	}
	if set("border") && l.Border != nil {
		o.border = formatInsets(geometry.InsetsCm{
			Top: l.Border.Top, Right: l.Border.Right, Bottom: l.Border.Bottom, Left: l.Border.Left,
		})
	}
}

// request собирает запрос трансформации из флагов.
func (o *transformOptions) request() (converter.Request, error) {
	mode, err := geometry.ParseMode(o.mode)
	if err != nil {
		return converter.Request{}, err
	}

	req := converter.Request{Mode: mode, TargetWidthCm: o.width, TargetHeightCm: o.height}

	if o.paper != "" {
		p, ok := cfg.LookupPaper(o.paper)
		if !ok {
			return converter.Request{}, fmt.Errorf("неизвестный формат бумаги: %s (см. printprep papers)", o.paper)
		}
		if o.landscape {
			p = p.Landscape()
		}
		req.TargetWidthCm, req.TargetHeightCm = p.WidthCm, p.HeightCm
	}

	if req.Crop, err = ParseRect(o.crop); err != nil {
		return converter.Request{}, err
	}
	if req.Border, err = ParseInsets(o.border); err != nil {
		return converter.Request{}, err
	}
	return req, nil
}

// toLayout возвращает раскладку с текущими параметрами.
func (o *transformOptions) toLayout() config.Layout {
	l := config.Layout{
		Mode:      o.mode,
		Paper:     o.paper,
		Landscape: o.landscape,
	}
	if o.paper == "" {
		l.WidthCm, l.HeightCm = o.width, o.height
	}
	if r, err := ParseRect(o.crop); err == nil && !r.IsZero() {
		l.Crop = &config.LayoutRect{X: r.X, Y: r.Y, W: r.W, H: r.H}
	}
	if b, err := ParseInsets(o.border); err == nil && b != (geometry.InsetsCm{}) {
		l.Border = &config.LayoutInsets{Top: b.Top, Right: b.Right, Bottom: b.Bottom, Left: b.Left}
	}
	return l
}

// layoutStore возвращает хранилище раскладок в каталоге пользователя.
func layoutStore() *config.LayoutStore {
	dir, err := config.DefaultLayoutsDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  %v, раскладки хранятся в ./layouts\n", err)
		dir = "layouts"
	}
	return config.NewLayoutStore(dir)
}
