package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/artemshloyda/printprep/internal/geometry"
	"github.com/artemshloyda/printprep/internal/metadata"
)

// BuiltinQuality - качество JPEG встроенного движка.
const BuiltinQuality = 95

// Builtin - движок в процессе на disintegration/imaging. Пишет только JPEG.
type Builtin struct{}

// NewBuiltin создаёт встроенный движок.
func NewBuiltin() *Builtin {
	return &Builtin{}
}

// Name возвращает имя движка.
func (b *Builtin) Name() string {
	return "builtin"
}

// Identify читает размеры через image.DecodeConfig (или заголовок PSD)
// и разрешение через metadata.ProbeFile.
func (b *Builtin) Identify(ctx context.Context, path string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h, err := DecodeDimensions(path)
	if err != nil {
		return nil, err
	}

	info := &Info{Width: w, Height: h}
	if res := metadata.ProbeFile(path); res.Confident() {
		info.Resolution = res.DPI
		info.Unit = metadata.UnitPerInch
	}
	return info, nil
}

// DecodeDimensions возвращает размеры изображения без декодирования растра.
func DecodeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err == nil && cfg.Width > 0 && cfg.Height > 0 {
		return cfg.Width, cfg.Height, nil
	}

	head := make([]byte, 64)
	if _, serr := f.Seek(0, io.SeekStart); serr == nil {
		n, _ := io.ReadFull(f, head)
		if w, h, ok := metadata.PSDDimensions(head[:n]); ok {
			return w, h, nil
		}
	}

	if err == nil {
		err = fmt.Errorf("нулевые размеры")
	}
	return 0, 0, fmt.Errorf("не удалось определить размеры %s: %w", filepath.Base(path), err)
}

// Transform декодирует src, выполняет ops и пишет JPEG с плотностью из Density.
func (b *Builtin) Transform(ctx context.Context, src, dst string, ops []geometry.Op) error {
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".jpg", ".jpeg":
	default:
		return fmt.Errorf("%w: встроенный движок пишет только JPEG, запрошено %s", ErrUnsupported, filepath.Ext(dst))
	}

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("не удалось декодировать %s: %w", filepath.Base(src), err)
	}

	out, dpi, err := Apply(ctx, img, ops)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(BuiltinQuality)); err != nil {
		return fmt.Errorf("ошибка кодирования JPEG: %w", err)
	}

	data := buf.Bytes()
	if dpi > 0 {
		data = metadata.StampJFIF(data, dpi)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("не удалось записать %s: %w", dst, err)
	}
	return nil
}

// Apply выполняет ops над изображением в памяти.
// Возвращает результат и плотность из последней инструкции Density (0, если её нет).
func Apply(ctx context.Context, img image.Image, ops []geometry.Op) (*image.NRGBA, int, error) {
	cur := imaging.Clone(img)
	dpi := 0

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		switch o := op.(type) {
		case geometry.Flatten:
			bg, err := ParseColor(o.Background)
			if err != nil {
				return nil, 0, err
			}
			b := cur.Bounds()
			cur = imaging.Overlay(imaging.New(b.Dx(), b.Dy(), bg), cur, image.Pt(0, 0), 1.0)

		case geometry.Crop:
			r := o.Rect
			cur = imaging.Crop(cur, image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H))

		case geometry.Resize:
			cur = imaging.Resize(cur, o.Width, o.Height, imaging.Lanczos)

		case geometry.Extent:
			bg, err := ParseColor(o.Background)
			if err != nil {
				return nil, 0, err
			}
			cur = imaging.Paste(imaging.New(o.Width, o.Height, bg), cur, image.Pt(o.OffsetX, o.OffsetY))

		case geometry.Expand:
			if o.Edge == geometry.EdgeMirror {
				cur = mirrorExpand(cur, o.Insets)
				continue
			}
			bg, err := ParseColor(o.Background)
			if err != nil {
				return nil, 0, err
			}
			b := cur.Bounds()
			in := o.Insets
			canvas := imaging.New(b.Dx()+in.Left+in.Right, b.Dy()+in.Top+in.Bottom, bg)
			cur = imaging.Paste(canvas, cur, image.Pt(in.Left, in.Top))

		case geometry.Density:
			dpi = o.DPI

		default:
			return nil, 0, fmt.Errorf("%w: инструкция %s", ErrUnsupported, op.Kind())
		}
	}

	return cur, dpi, nil
}

// mirrorExpand наращивает холст, отражая края как виртуальные пиксели Mirror в ImageMagick.
func mirrorExpand(src *image.NRGBA, in geometry.Insets) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	ow, oh := w+in.Left+in.Right, h+in.Top+in.Bottom
	out := image.NewNRGBA(image.Rect(0, 0, ow, oh))

	for y := 0; y < oh; y++ {
		sy := reflect(y-in.Top, h)
		srow := src.Pix[sy*src.Stride:]
		drow := out.Pix[y*out.Stride:]
		for x := 0; x < ow; x++ {
			sx := reflect(x-in.Left, w)
			copy(drow[x*4:x*4+4], srow[sx*4:sx*4+4])
		}
	}
	return out
}

// reflect отображает индекс i в [0, n) зеркально с периодом 2n: -1 -> 0, n -> n-1.
func reflect(i, n int) int {
	period := 2 * n
	m := i % period
	if m < 0 {
		m += period
	}
	if m >= n {
		m = period - 1 - m
	}
	return m
}

var namedColors = map[string]color.NRGBA{
	"white":       {R: 255, G: 255, B: 255, A: 255},
	"black":       {A: 255},
	"gray":        {R: 128, G: 128, B: 128, A: 255},
	"grey":        {R: 128, G: 128, B: 128, A: 255},
	"red":         {R: 255, A: 255},
	"green":       {G: 128, A: 255},
	"blue":        {B: 255, A: 255},
	"transparent": {},
	"none":        {},
}

// ParseColor разбирает имя цвета или #RGB / #RRGGBB / #RRGGBBAA.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("%w: цвет %q", ErrUnsupported, s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: цвет %q", ErrUnsupported, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: цвет %q", ErrUnsupported, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
