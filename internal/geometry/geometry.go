// Package geometry переводит процентные кадры, поля в сантиметрах и целевой
// физический размер в точную пиксельную геометрию для растрового движка.
//
// Компиляция - чистая функция: ни диска, ни движка. Результат всегда
// нормализуется к 300 DPI, поля border/mirror считаются по DPI исходника.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/artemshloyda/printprep/internal/config"
)

var (
	// ErrInvalidSource - размеры исходника не положительные.
	ErrInvalidSource = errors.New("некорректные размеры исходника")
	// ErrInvalidTarget - целевой размер не положительный.
	ErrInvalidTarget = errors.New("некорректный целевой размер")
)

// Mode - режим трансформации.
type Mode string

const (
	ModeCrop   Mode = "crop"
	ModeResize Mode = "resize"
	ModePad    Mode = "pad"
	ModeBorder Mode = "border"
	ModeMirror Mode = "mirror"
)

// Modes возвращает все режимы в порядке отображения.
func Modes() []Mode {
	return []Mode{ModeCrop, ModeResize, ModePad, ModeBorder, ModeMirror}
}

// ParseMode разбирает имя режима. Пустая строка означает pad.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModePad, nil
	}
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("неизвестный режим: %s (доступны: crop, resize, pad, border, mirror)", s)
}

// Size - размер в пикселях.
type Size struct {
	W int
	H int
}

// Point - смещение в пикселях.
type Point struct {
	X int
	Y int
}

// Rect - прямоугольник в пикселях.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// PercentRect - прямоугольник в процентах (0..100) от размеров исходника.
type PercentRect struct {
	X float64
	Y float64
	W float64
	H float64
}

// FullFrame - весь кадр.
func FullFrame() PercentRect {
	return PercentRect{X: 0, Y: 0, W: 100, H: 100}
}

// IsZero возвращает true для незаданного прямоугольника.
func (r PercentRect) IsZero() bool {
	return r == PercentRect{}
}

// Insets - поля по четырём краям в пикселях.
type Insets struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// IsZero возвращает true, если все поля нулевые.
func (i Insets) IsZero() bool {
	return i == Insets{}
}

// InsetsCm - поля по четырём краям в сантиметрах. Отрицательные значения подрезают край.
type InsetsCm struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Spec - описание трансформации.
type Spec struct {
	// Mode - режим; пустой означает pad.
	Mode Mode

	// TargetWidthCm, TargetHeightCm - целевой физический размер (crop/resize/pad).
	TargetWidthCm  float64
	TargetHeightCm float64

	// Crop - кадр в процентах (crop). Нулевой означает весь кадр.
	Crop PercentRect

	// Border - поля в сантиметрах (border/mirror).
	Border InsetsCm

	// Background - цвет заливки; пустой означает config.DefaultBackground.
	Background string
}

// Geometry - скомпилированная пиксельная геометрия.
type Geometry struct {
	// Mode - режим.
	Mode Mode

	// Source - размеры исходника.
	Source Size

	// SourceDPI - разрешение исходника, использованное при расчёте полей.
	SourceDPI float64

	// Size - итоговый размер холста.
	Size Size

	// CropRect - область исходника, подаваемая на масштабирование.
	CropRect Rect

	// Scaled - размер после масштабирования.
	Scaled Size

	// Offset - позиция масштабированного изображения на холсте.
	Offset Point

	// Expand - наращивание холста (border/mirror).
	Expand Insets

	// Trim - подрезка после наращивания (border/mirror).
	Trim Insets

	// Edge - политика заполнения полей.
	Edge EdgePolicy

	// BackgroundVisible - останется ли на результате видимая заливка.
	BackgroundVisible bool

	// Background - цвет заливки.
	Background string

	// OutputDPI - разрешение, которым помечается результат.
	OutputDPI int

	// Ops - инструкции движку по порядку.
	Ops []Op
}

// PixelsFromCm переводит сантиметры в пиксели при разрешении dpi: round(cm / 2.54 * dpi).
func PixelsFromCm(cm, dpi float64) int {
	return roundInt(cm / config.CmPerInch * dpi)
}

// TargetSize переводит целевой физический размер в пиксели при 300 DPI.
func TargetSize(widthCm, heightCm float64) (Size, error) {
	if !(widthCm > 0) || !(heightCm > 0) || math.IsInf(widthCm, 0) || math.IsInf(heightCm, 0) {
		return Size{}, fmt.Errorf("%w: %.2fx%.2f см", ErrInvalidTarget, widthCm, heightCm)
	}
	s := Size{
		W: PixelsFromCm(widthCm, config.OutputDPI),
		H: PixelsFromCm(heightCm, config.OutputDPI),
	}
	if s.W < 1 || s.H < 1 {
		return Size{}, fmt.Errorf("%w: %.2fx%.2f см меньше пикселя", ErrInvalidTarget, widthCm, heightCm)
	}
	return s, nil
}

// Compile строит геометрию для исходника srcW x srcH с разрешением srcDPI.
// Неположительный srcDPI заменяется на config.DefaultDPI.
func Compile(srcW, srcH int, srcDPI float64, spec Spec) (*Geometry, error) {
	if srcW < 1 || srcH < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSource, srcW, srcH)
	}
	if !(srcDPI > 0) || math.IsInf(srcDPI, 0) {
		srcDPI = config.DefaultDPI
	}

	mode := spec.Mode
	if mode == "" {
		mode = ModePad
	}
	bg := spec.Background
	if bg == "" {
		bg = config.DefaultBackground
	}

	g := &Geometry{
		Mode:       mode,
		Source:     Size{W: srcW, H: srcH},
		SourceDPI:  srcDPI,
		CropRect:   Rect{X: 0, Y: 0, W: srcW, H: srcH},
		Scaled:     Size{W: srcW, H: srcH},
		Edge:       EdgeSolid,
		Background: bg,
		OutputDPI:  config.OutputDPI,
		Ops:        []Op{Flatten{Background: bg}},
	}

	var err error
	switch mode {
	case ModeCrop:
		err = g.compileCrop(spec)
	case ModeResize:
		err = g.compileResize(spec)
	case ModePad:
		err = g.compilePad(spec)
	case ModeBorder:
		g.compileBorder(spec, EdgeSolid)
	case ModeMirror:
		g.compileBorder(spec, EdgeMirror)
	default:
		err = fmt.Errorf("неизвестный режим: %s", mode)
	}
	if err != nil {
		return nil, err
	}

	g.Ops = append(g.Ops, Density{DPI: config.OutputDPI})
	return g, nil
}

// compileCrop: кадр в процентах -> пиксели, заполнение холста по короткой стороне,
// центрированная обрезка лишнего. Фона не видно.
func (g *Geometry) compileCrop(spec Spec) error {
	target, err := TargetSize(spec.TargetWidthCm, spec.TargetHeightCm)
	if err != nil {
		return err
	}

	pr := spec.Crop
	if pr.IsZero() {
		pr = FullFrame()
	}
	srcW, srcH := g.Source.W, g.Source.H

	x := clampInt(roundInt(clampPercent(pr.X)/100*float64(srcW)), 0, srcW-1)
	y := clampInt(roundInt(clampPercent(pr.Y)/100*float64(srcH)), 0, srcH-1)
	w := clampInt(roundInt(clampPercent(pr.W)/100*float64(srcW)), 1, srcW-x)
	h := clampInt(roundInt(clampPercent(pr.H)/100*float64(srcH)), 1, srcH-y)
	g.CropRect = Rect{X: x, Y: y, W: w, H: h}

	scale := math.Max(float64(target.W)/float64(w), float64(target.H)/float64(h))
	g.Scaled = Size{
		W: max(target.W, roundInt(float64(w)*scale)),
		H: max(target.H, roundInt(float64(h)*scale)),
	}
	g.Offset = Point{X: -(g.Scaled.W - target.W) / 2, Y: -(g.Scaled.H - target.H) / 2}
	g.Size = target

	g.Ops = append(g.Ops,
		Crop{Rect: g.CropRect},
		Resize{Width: g.Scaled.W, Height: g.Scaled.H},
		Extent{Width: target.W, Height: target.H, OffsetX: g.Offset.X, OffsetY: g.Offset.Y, Background: g.Background},
	)
	return nil
}

// compileResize: неравномерное масштабирование точно в целевой размер.
func (g *Geometry) compileResize(spec Spec) error {
	target, err := TargetSize(spec.TargetWidthCm, spec.TargetHeightCm)
	if err != nil {
		return err
	}

	g.Scaled = target
	g.Size = target
	g.Ops = append(g.Ops, Resize{Width: target.W, Height: target.H})
	return nil
}

// compilePad: равномерное вписывание без обрезки и центрирование на холсте с заливкой.
func (g *Geometry) compilePad(spec Spec) error {
	target, err := TargetSize(spec.TargetWidthCm, spec.TargetHeightCm)
	if err != nil {
		return err
	}

	srcW, srcH := g.Source.W, g.Source.H
	scale := math.Min(float64(target.W)/float64(srcW), float64(target.H)/float64(srcH))
	g.Scaled = Size{
		W: clampInt(roundInt(float64(srcW)*scale), 1, target.W),
		H: clampInt(roundInt(float64(srcH)*scale), 1, target.H),
	}
	g.Offset = Point{X: (target.W - g.Scaled.W) / 2, Y: (target.H - g.Scaled.H) / 2}
	g.Size = target
	g.BackgroundVisible = g.Scaled.W < target.W || g.Scaled.H < target.H

	g.Ops = append(g.Ops,
		Resize{Width: g.Scaled.W, Height: g.Scaled.H},
		Extent{Width: target.W, Height: target.H, OffsetX: g.Offset.X, OffsetY: g.Offset.Y, Background: g.Background},
	)
	return nil
}

// compileBorder: поля по DPI исходника. Положительные наращивают холст,
// отрицательные подрезают край; размер никогда не падает ниже 1 пикселя.
func (g *Geometry) compileBorder(spec Spec, edge EdgePolicy) {
	top := PixelsFromCm(spec.Border.Top, g.SourceDPI)
	right := PixelsFromCm(spec.Border.Right, g.SourceDPI)
	bottom := PixelsFromCm(spec.Border.Bottom, g.SourceDPI)
	left := PixelsFromCm(spec.Border.Left, g.SourceDPI)

	g.Expand = Insets{Top: max(0, top), Right: max(0, right), Bottom: max(0, bottom), Left: max(0, left)}
	expW := g.Source.W + g.Expand.Left + g.Expand.Right
	expH := g.Source.H + g.Expand.Top + g.Expand.Bottom

	trim := Insets{Top: max(0, -top), Right: max(0, -right), Bottom: max(0, -bottom), Left: max(0, -left)}
	trim.Left = min(trim.Left, expW-1)
	trim.Right = min(trim.Right, expW-1-trim.Left)
	trim.Top = min(trim.Top, expH-1)
	trim.Bottom = min(trim.Bottom, expH-1-trim.Top)
	g.Trim = trim

	g.Edge = edge
	g.Size = Size{W: expW - trim.Left - trim.Right, H: expH - trim.Top - trim.Bottom}
	g.BackgroundVisible = edge == EdgeSolid && !g.Expand.IsZero()

	if !g.Expand.IsZero() {
		g.Ops = append(g.Ops, Expand{Insets: g.Expand, Edge: edge, Background: g.Background})
	}
	if !trim.IsZero() {
		g.Ops = append(g.Ops, Crop{Rect: Rect{X: trim.Left, Y: trim.Top, W: g.Size.W, H: g.Size.H}})
	}
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
