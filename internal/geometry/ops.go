package geometry

import (
	"fmt"
	"strings"
)

// Op - одна инструкция растровому движку. Движки выполняют инструкции строго по порядку.
type Op interface {
	// Kind возвращает короткое имя инструкции.
	Kind() string
}

// EdgePolicy определяет, чем заполняются расширенные поля холста.
type EdgePolicy string

const (
	// EdgeSolid - сплошной цвет фона.
	EdgeSolid EdgePolicy = "solid"
	// EdgeMirror - зеркальное отражение краевых пикселей.
	EdgeMirror EdgePolicy = "mirror"
)

// Flatten сводит все слои на сплошную подложку. Всегда первая инструкция.
type Flatten struct {
	Background string
}

// Crop вырезает прямоугольник в текущих координатах изображения.
type Crop struct {
	Rect Rect
}

// Resize масштабирует до точного размера без сохранения пропорций.
type Resize struct {
	Width  int
	Height int
}

// Extent кладёт изображение на холст Width x Height со смещением (OffsetX, OffsetY).
// Отрицательное смещение обрезает выступающую часть.
type Extent struct {
	Width      int
	Height     int
	OffsetX    int
	OffsetY    int
	Background string
}

// Expand наращивает холст по краям на Insets, заполняя поля согласно Edge.
type Expand struct {
	Insets     Insets
	Edge       EdgePolicy
	Background string
}

// Density помечает результат разрешением DPI пикселей на дюйм. Всегда последняя инструкция.
type Density struct {
	DPI int
}

func (Flatten) Kind() string { return "flatten" }
func (Crop) Kind() string    { return "crop" }
func (Resize) Kind() string  { return "resize" }
func (Extent) Kind() string  { return "extent" }
func (Expand) Kind() string  { return "expand" }
func (Density) Kind() string { return "density" }

// Describe возвращает человекочитаемое описание списка инструкций.
func Describe(ops []Op) string {
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		switch o := op.(type) {
		case Flatten:
			parts = append(parts, fmt.Sprintf("flatten(%s)", o.Background))
		case Crop:
			parts = append(parts, fmt.Sprintf("crop(%dx%d+%d+%d)", o.Rect.W, o.Rect.H, o.Rect.X, o.Rect.Y))
		case Resize:
			parts = append(parts, fmt.Sprintf("resize(%dx%d)", o.Width, o.Height))
		case Extent:
			parts = append(parts, fmt.Sprintf("extent(%dx%d@%d,%d)", o.Width, o.Height, o.OffsetX, o.OffsetY))
		case Expand:
			parts = append(parts, fmt.Sprintf("expand(%d,%d,%d,%d %s)",
				o.Insets.Top, o.Insets.Right, o.Insets.Bottom, o.Insets.Left, o.Edge))
		case Density:
			parts = append(parts, fmt.Sprintf("density(%d)", o.DPI))
		default:
			parts = append(parts, op.Kind())
		}
	}
	return strings.Join(parts, " -> ")
}
