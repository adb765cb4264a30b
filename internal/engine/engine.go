// Package engine описывает растровый движок, исполняющий скомпилированную геометрию.
//
// Есть две реализации: Magick вызывает внешний ImageMagick, Builtin работает
// в процессе на disintegration/imaging и пишет только JPEG.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artemshloyda/printprep/internal/geometry"
	"github.com/artemshloyda/printprep/internal/metadata"
)

var (
	// ErrTimeout - вызов движка не уложился в таймаут.
	ErrTimeout = errors.New("движок не уложился в таймаут")
	// ErrUnsupported - движок не умеет выполнить запрошенное (формат, цвет, инструкция).
	ErrUnsupported = errors.New("не поддерживается движком")
)

// Engine - растровый движок.
type Engine interface {
	// Name возвращает имя движка для логов и журнала.
	Name() string

	// Identify сообщает размеры и разрешение файла.
	Identify(ctx context.Context, path string) (*Info, error)

	// Transform читает src, выполняет ops по порядку и пишет результат в dst.
	// Формат результата определяется расширением dst.
	Transform(ctx context.Context, src, dst string, ops []geometry.Op) error
}

// Info - то, что движок знает о файле.
type Info struct {
	// Width, Height - размеры в пикселях.
	Width  int
	Height int

	// Resolution - разрешение в единицах Unit (0, если неизвестно).
	Resolution float64

	// Unit - единица разрешения.
	Unit metadata.ResolutionUnit
}

// DPI возвращает разрешение в пикселях на дюйм.
func (i *Info) DPI() float64 {
	return i.Unit.ToDPI(i.Resolution)
}

// Error - ненулевой код возврата внешнего движка.
type Error struct {
	// Engine - имя движка.
	Engine string

	// Args - аргументы вызова.
	Args []string

	// ExitCode - код возврата (-1, если процесс не запустился).
	ExitCode int

	// Stderr - вывод stderr без изменений.
	Stderr string

	// Err - исходная ошибка exec.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s завершился с кодом %d", e.Engine, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
