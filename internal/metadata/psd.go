package metadata

import (
	"bytes"
	"encoding/binary"
)

const (
	psdHeaderSize        = 26
	psdResolutionInfoID  = 0x03ED
	psdFixedPointDivisor = 65536.0
)

var (
	psdSignature      = []byte("8BPS")
	psdResourceMarker = []byte("8BIM")
)

// PSDDimensions читает ширину и высоту из заголовка PSD/PSB.
func PSDDimensions(data []byte) (width, height int, ok bool) {
	if len(data) < psdHeaderSize || !bytes.Equal(data[:4], psdSignature) {
		return 0, 0, false
	}
	height = int(binary.BigEndian.Uint32(data[14:18]))
	width = int(binary.BigEndian.Uint32(data[18:22]))
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// dpiFromPSD ищет ресурс ResolutionInfo (0x03ED) в секции Image Resources.
// hRes хранится как 16.16 fixed в пикселях на дюйм независимо от единицы отображения.
func dpiFromPSD(data []byte) (float64, bool) {
	if _, _, ok := PSDDimensions(data); !ok {
		return 0, false
	}

	pos := psdHeaderSize
	// секция Color Mode Data
	if pos+4 > len(data) {
		return 0, false
	}
	pos += 4 + int(binary.BigEndian.Uint32(data[pos:pos+4]))

	// секция Image Resources
	if pos+4 > len(data) {
		return 0, false
	}
	end := pos + 4 + int(binary.BigEndian.Uint32(data[pos:pos+4]))
	pos += 4
	if end > len(data) {
		end = len(data)
	}

	for pos+6 <= end {
		if !bytes.Equal(data[pos:pos+4], psdResourceMarker) {
			return 0, false
		}
		id := binary.BigEndian.Uint16(data[pos+4 : pos+6])
		pos += 6

		// Pascal-строка имени, выровненная до чётной длины
		if pos >= end {
			return 0, false
		}
		nameLen := 1 + int(data[pos])
		if nameLen%2 != 0 {
			nameLen++
		}
		pos += nameLen

		if pos+4 > end {
			return 0, false
		}
		size := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if size < 0 || pos+size > end {
			return 0, false
		}

		if id == psdResolutionInfoID && size >= 4 {
			hRes := float64(binary.BigEndian.Uint32(data[pos:pos+4])) / psdFixedPointDivisor
			if hRes > 0 {
				return hRes, true
			}
			return 0, false
		}

		pos += size
		if size%2 != 0 {
			pos++
		}
	}
	return 0, false
}
