// Package metadata извлекает физическое разрешение (DPI) прямо из байтов EXIF,
// JFIF и ресурсов PSD, без декодирования растра.
//
// Чтение никогда не завершается ошибкой: цепочка EXIF -> JFIF -> PSD -> 300 DPI
// всегда даёт пригодное значение. Значение по умолчанию помечается как
// неуверенное (Resolution.Confident() == false).
package metadata

import (
	"bytes"
	"io"
	"os"

	"github.com/artemshloyda/printprep/internal/config"
)

// ResolutionUnit - единица, в которой записано разрешение в файле.
type ResolutionUnit int

const (
	// UnitUnspecified - единица не указана (трактуется как дюймы).
	UnitUnspecified ResolutionUnit = iota
	// UnitPerInch - пикселей на дюйм.
	UnitPerInch
	// UnitPerCentimeter - пикселей на сантиметр.
	UnitPerCentimeter
)

// String возвращает имя единицы.
func (u ResolutionUnit) String() string {
	switch u {
	case UnitPerInch:
		return "PixelsPerInch"
	case UnitPerCentimeter:
		return "PixelsPerCentimeter"
	default:
		return "Undefined"
	}
}

// ToDPI приводит значение в единице u к пикселям на дюйм.
func (u ResolutionUnit) ToDPI(v float64) float64 {
	if u == UnitPerCentimeter {
		return v * config.CmPerInch
	}
	return v
}

// Source - откуда получено разрешение.
type Source string

const (
	SourceEXIF    Source = "exif"
	SourceJFIF    Source = "jfif"
	SourcePSD     Source = "psd"
	SourceEngine  Source = "engine"
	SourceDefault Source = "default"
)

// Resolution - каноническое разрешение в пикселях на дюйм и его источник.
type Resolution struct {
	// DPI - пикселей на дюйм.
	DPI float64

	// Source - источник значения.
	Source Source
}

// Confident возвращает false, если значение взято по умолчанию.
func (r Resolution) Confident() bool {
	return r.Source != SourceDefault
}

// Default возвращает разрешение по умолчанию (300 DPI, неуверенное).
func Default() Resolution {
	return Resolution{DPI: config.DefaultDPI, Source: SourceDefault}
}

// Probe определяет разрешение по содержимому r.
// EXIF читается из всего потока, JFIF и PSD - из первых HeaderScanLimit байт.
func Probe(r io.ReadSeeker) Resolution {
	if dpi, ok := dpiFromEXIF(r); ok {
		return Resolution{DPI: dpi, Source: SourceEXIF}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Default()
	}
	head, err := io.ReadAll(io.LimitReader(r, config.HeaderScanLimit))
	if err != nil && len(head) == 0 {
		return Default()
	}

	if dpi, ok := dpiFromJFIF(head); ok {
		return Resolution{DPI: dpi, Source: SourceJFIF}
	}
	if dpi, ok := dpiFromPSD(head); ok {
		return Resolution{DPI: dpi, Source: SourcePSD}
	}
	return Default()
}

// ProbeBytes определяет разрешение по байтам файла.
func ProbeBytes(data []byte) Resolution {
	return Probe(bytes.NewReader(data))
}

// ProbeFile определяет разрешение файла по пути.
// Если файл не открывается, возвращается значение по умолчанию.
func ProbeFile(path string) Resolution {
	f, err := os.Open(path)
	if err != nil {
		return Default()
	}
	defer func() { _ = f.Close() }()

	return Probe(f)
}
