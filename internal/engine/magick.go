package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artemshloyda/printprep/internal/geometry"
	"github.com/artemshloyda/printprep/internal/metadata"
)

// identifyFormat - ширина, высота, разрешение и единица первого кадра.
const identifyFormat = "%w %h %x %U"

// Magick выполняет инструкции через внешний ImageMagick.
type Magick struct {
	// path - путь к magick (IM7) или convert (IM6).
	path string

	// legacy - IM6: convert + отдельный identify.
	legacy bool

	// waitDelay - сколько ждать закрытия пайпов после убийства процесса.
	waitDelay time.Duration
}

// NewMagick создаёт движок ImageMagick. legacy=true для пары convert/identify.
func NewMagick(path string, legacy bool) *Magick {
	return &Magick{
		path:      path,
		legacy:    legacy,
		waitDelay: 2 * time.Second,
	}
}

// Name возвращает имя движка.
func (m *Magick) Name() string {
	if m.legacy {
		return "imagemagick6"
	}
	return "imagemagick"
}

// Path возвращает путь к бинарнику.
func (m *Magick) Path() string {
	return m.path
}

// Identify вызывает identify с форматом "%w %h %x %U".
func (m *Magick) Identify(ctx context.Context, path string) (*Info, error) {
	bin, args := m.identifyCommand(path)
	out, err := m.run(ctx, bin, args)
	if err != nil {
		return nil, err
	}
	return parseIdentify(out)
}

// Transform собирает аргументы через BuildArgs и запускает движок.
func (m *Magick) Transform(ctx context.Context, src, dst string, ops []geometry.Op) error {
	args := BuildArgs(src, dst, ops)
	zerolog.Ctx(ctx).Debug().
		Str("engine", m.Name()).
		Strs("args", args).
		Msg("запуск трансформации")

	_, err := m.run(ctx, m.path, args)
	return err
}

func (m *Magick) identifyCommand(path string) (string, []string) {
	args := []string{"-format", identifyFormat, firstFrame(path)}
	if !m.legacy {
		return m.path, append([]string{"identify"}, args...)
	}
	return m.identifyPath(), args
}

// identifyPath - identify рядом с convert, а если его там нет - из PATH.
func (m *Magick) identifyPath() string {
	name := "identify"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	sibling := filepath.Join(filepath.Dir(m.path), name)
	if _, err := os.Stat(sibling); err == nil {
		return sibling
	}
	return name
}

func (m *Magick) run(ctx context.Context, bin string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = m.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s", ErrTimeout, filepath.Base(bin))
		}
		return "", ctxErr
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return "", &Error{
		Engine:   m.Name(),
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr.String(),
		Err:      err,
	}
}

// BuildArgs переводит инструкции в аргументы командной строки ImageMagick.
func BuildArgs(src, dst string, ops []geometry.Op) []string {
	args := []string{firstFrame(src)}

	for _, op := range ops {
		switch o := op.(type) {
		case geometry.Flatten:
			args = append(args, "-background", o.Background, "-flatten")

		case geometry.Crop:
			args = append(args,
				"-crop", fmt.Sprintf("%dx%d+%d+%d", o.Rect.W, o.Rect.H, o.Rect.X, o.Rect.Y),
				"+repage")

		case geometry.Resize:
			args = append(args, "-resize", fmt.Sprintf("%dx%d!", o.Width, o.Height))

		case geometry.Extent:
			// -extent задаёт положение холста относительно изображения, поэтому знак меняется
			args = append(args,
				"-gravity", "northwest",
				"-background", o.Background,
				"-extent", fmt.Sprintf("%dx%d%+d%+d", o.Width, o.Height, -o.OffsetX, -o.OffsetY),
				"+repage")

		case geometry.Expand:
			args = append(args, expandArgs(o)...)

		case geometry.Density:
			args = append(args,
				"-units", "PixelsPerInch",
				"-density", strconv.Itoa(o.DPI))
		}
	}

	switch strings.ToLower(filepath.Ext(dst)) {
	case ".tif", ".tiff":
		args = append(args, "-compress", "LZW")
	case ".jpg", ".jpeg":
		args = append(args, "-quality", "95")
	}

	return append(args, dst)
}

func expandArgs(o geometry.Expand) []string {
	in := o.Insets
	if o.Edge == geometry.EdgeMirror {
		viewport := fmt.Sprintf("%%[fx:w+%d]x%%[fx:h+%d]-%d-%d",
			in.Left+in.Right, in.Top+in.Bottom, in.Left, in.Top)
		return []string{
			"-virtual-pixel", "Mirror",
			"-set", "option:distort:viewport", viewport,
			"-distort", "SRT", "0",
			"+repage",
		}
	}

	args := []string{"-background", o.Background}
	if in.Left > 0 || in.Top > 0 {
		args = append(args, "-gravity", "northwest", "-splice", fmt.Sprintf("%dx%d", in.Left, in.Top))
	}
	if in.Right > 0 || in.Bottom > 0 {
		args = append(args, "-gravity", "southeast", "-splice", fmt.Sprintf("%dx%d", in.Right, in.Bottom))
	}
	return append(args, "-gravity", "northwest", "+repage")
}

// firstFrame - у PSD/PSB читается только сведённый композит.
func firstFrame(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".psd", ".psb":
		return path + "[0]"
	}
	return path
}

// parseIdentify разбирает вывод "%w %h %x %U".
func parseIdentify(out string) (*Info, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return nil, fmt.Errorf("неожиданный вывод identify: %q", strings.TrimSpace(out))
	}

	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("неожиданные размеры в выводе identify: %q", strings.TrimSpace(out))
	}

	info := &Info{Width: w, Height: h}
	if len(fields) >= 3 {
		// IM6 иногда печатает "%x" вместе с единицей: "72 PixelsPerInch"
		if v, err := strconv.ParseFloat(fields[2], 64); err == nil && v > 0 {
			info.Resolution = v
		}
	}
	if len(fields) >= 4 {
		info.Unit = parseUnit(fields[len(fields)-1])
	}
	if info.Resolution == 0 {
		info.Unit = metadata.UnitUnspecified
	}
	return info, nil
}

func parseUnit(s string) metadata.ResolutionUnit {
	switch strings.ToLower(s) {
	case "pixelsperinch":
		return metadata.UnitPerInch
	case "pixelspercentimeter":
		return metadata.UnitPerCentimeter
	default:
		return metadata.UnitUnspecified
	}
}

