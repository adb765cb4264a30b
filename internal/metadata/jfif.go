package metadata

import (
	"bytes"
	"encoding/binary"
)

// Маркеры JPEG.
const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerSOS    = 0xDA
	markerAPP0   = 0xE0
	markerTEM    = 0x01
	markerRST0   = 0xD0
	markerRST7   = 0xD7
)

// Коды единиц плотности JFIF.
const (
	jfifUnitInch       = 1
	jfifUnitCentimeter = 2
)

var jfifIdent = []byte("JFIF\x00")

// dpiFromJFIF сканирует сегменты JPEG до SOS и читает плотность из APP0 JFIF.
// Плотность 0 или единица 0 (только соотношение сторон) не считаются ответом,
// сканирование продолжается.
func dpiFromJFIF(data []byte) (float64, bool) {
	i := 0
	for i+1 < len(data) {
		if data[i] != markerPrefix {
			i++
			continue
		}

		marker := data[i+1]
		switch {
		case marker == markerPrefix, marker == 0x00:
			// заполнитель или байт-стаффинг
			i++
			continue
		case marker == markerSOI, marker == markerTEM, marker >= markerRST0 && marker <= markerRST7:
			// маркеры без поля длины
			i += 2
			continue
		case marker == markerSOS, marker == markerEOI:
			return 0, false
		}

		if i+4 > len(data) {
			return 0, false
		}
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if length < 2 {
			return 0, false
		}

		if marker == markerAPP0 {
			payload := data[i+4 : min(len(data), i+2+length)]
			if dpi, ok := parseJFIF(payload); ok {
				return dpi, true
			}
		}

		i += 2 + length
	}
	return 0, false
}

// parseJFIF разбирает полезную нагрузку APP0: "JFIF\0", версия (2), единицы (1), Xdensity (2).
func parseJFIF(payload []byte) (float64, bool) {
	if len(payload) < 10 || !bytes.Equal(payload[:5], jfifIdent) {
		return 0, false
	}

	units := payload[7]
	density := float64(binary.BigEndian.Uint16(payload[8:10]))
	if density == 0 {
		return 0, false
	}

	switch units {
	case jfifUnitInch:
		return density, true
	case jfifUnitCentimeter:
		return UnitPerCentimeter.ToDPI(density), true
	default:
		return 0, false
	}
}
