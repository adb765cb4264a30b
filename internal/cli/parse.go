package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/artemshloyda/printprep/internal/geometry"
)

// parseFloats разбирает список чисел через запятую.
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("некорректное число %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseRect разбирает кадр "x,y,w,h" в процентах. Пустая строка - весь кадр.
func ParseRect(s string) (geometry.PercentRect, error) {
	if strings.TrimSpace(s) == "" {
		return geometry.PercentRect{}, nil
	}
	v, err := parseFloats(s)
	if err != nil {
		return geometry.PercentRect{}, fmt.Errorf("--crop: %w", err)
	}
	if len(v) != 4 {
		return geometry.PercentRect{}, fmt.Errorf("--crop: ожидается x,y,w,h, получено %d чисел", len(v))
	}
	return geometry.PercentRect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// ParseInsets разбирает поля в сантиметрах по правилам CSS:
// "a" - все стороны, "v,h" - верх/низ и лево/право, "t,r,b,l" - каждая сторона.
func ParseInsets(s string) (geometry.InsetsCm, error) {
	if strings.TrimSpace(s) == "" {
		return geometry.InsetsCm{}, nil
	}
	v, err := parseFloats(s)
	if err != nil {
		return geometry.InsetsCm{}, fmt.Errorf("--border: %w", err)
	}
	switch len(v) {
	case 1:
		return geometry.InsetsCm{Top: v[0], Right: v[0], Bottom: v[0], Left: v[0]}, nil
	case 2:
		return geometry.InsetsCm{Top: v[0], Right: v[1], Bottom: v[0], Left: v[1]}, nil
	case 4:
		return geometry.InsetsCm{Top: v[0], Right: v[1], Bottom: v[2], Left: v[3]}, nil
	default:
		return geometry.InsetsCm{}, fmt.Errorf("--border: ожидается 1, 2 или 4 числа, получено %d", len(v))
	}
}

// formatInsets возвращает поля в виде "t,r,b,l".
func formatInsets(in geometry.InsetsCm) string {
	return fmt.Sprintf("%g,%g,%g,%g", in.Top, in.Right, in.Bottom, in.Left)
}
