package metadata

import (
	"bytes"
	"encoding/binary"
)

// StampJFIF записывает в JPEG сегмент APP0 JFIF с плотностью dpi пикселей на дюйм.
// Существующий APP0 JFIF сразу после SOI заменяется, иначе новый вставляется после SOI.
// Данные, не начинающиеся с SOI, возвращаются без изменений.
func StampJFIF(jpeg []byte, dpi int) []byte {
	if len(jpeg) < 2 || jpeg[0] != markerPrefix || jpeg[1] != markerSOI || dpi <= 0 || dpi > 0xFFFF {
		return jpeg
	}

	segment := make([]byte, 0, 18)
	segment = append(segment, markerPrefix, markerAPP0, 0x00, 0x10)
	segment = append(segment, jfifIdent...)
	segment = append(segment, 0x01, 0x02, jfifUnitInch)
	segment = binary.BigEndian.AppendUint16(segment, uint16(dpi))
	segment = binary.BigEndian.AppendUint16(segment, uint16(dpi))
	segment = append(segment, 0x00, 0x00)

	rest := jpeg[2:]
	if len(rest) >= 4+len(jfifIdent) && rest[0] == markerPrefix && rest[1] == markerAPP0 &&
		bytes.Equal(rest[4:4+len(jfifIdent)], jfifIdent) {
		length := int(binary.BigEndian.Uint16(rest[2:4]))
		if 2+length <= len(rest) {
			rest = rest[2+length:]
		}
	}

	out := make([]byte, 0, len(jpeg)+len(segment))
	out = append(out, markerPrefix, markerSOI)
	out = append(out, segment...)
	return append(out, rest...)
}
