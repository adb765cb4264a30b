package metadata

import (
	"io"

	"github.com/rwcarlsen/goexif/exif"
)

// exifUnitCentimeter - код ResolutionUnit для сантиметров.
const exifUnitCentimeter = 3

// dpiFromEXIF читает XResolution и ResolutionUnit из EXIF (JPEG APP1 или TIFF IFD0).
func dpiFromEXIF(r io.Reader) (dpi float64, ok bool) {
	// goexif паникует на части повреждённых IFD
	defer func() {
		if recover() != nil {
			dpi, ok = 0, false
		}
	}()

	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return 0, false
	}

	tag, err := x.Get(exif.XResolution)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || num <= 0 || den <= 0 {
		return 0, false
	}

	unit := UnitPerInch
	if u, err := x.Get(exif.ResolutionUnit); err == nil {
		if code, err := u.Int(0); err == nil && code == exifUnitCentimeter {
			unit = UnitPerCentimeter
		}
	}

	return unit.ToDPI(float64(num) / float64(den)), true
}
