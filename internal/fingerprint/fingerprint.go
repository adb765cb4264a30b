// Package fingerprint вычисляет короткий детерминированный идентификатор
// содержимого файла по его размеру и первым 256 KiB.
//
// Отпечаток не криптографический: совпадение отпечатков означает лишь
// вероятное совпадение содержимого.
package fingerprint

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/spf13/afero"

	"github.com/artemshloyda/printprep/internal/config"
)

// chunkSize - размер блока чтения.
const chunkSize = 64 * 1024

// Of возвращает отпечаток файла на локальной файловой системе.
func Of(path string) string {
	return OfFs(afero.NewOsFs(), path)
}

// OfFs возвращает отпечаток файла в fsys.
// Если файл не открывается, возвращается config.MissingFingerprint.
func OfFs(fsys afero.Fs, path string) string {
	f, err := fsys.Open(path)
	if err != nil {
		return config.MissingFingerprint
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return config.MissingFingerprint
	}

	return Encode(Sum(f, info.Size()))
}

// Sum возвращает 32-битную контрольную сумму: CRC-32 (IEEE), засеянная
// размером файла в little-endian, затем до FingerprintWindow байт из r.
func Sum(r io.Reader, size int64) uint32 {
	h := crc32.NewIEEE()

	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], uint64(size))
	_, _ = h.Write(seed[:])

	buf := make([]byte, chunkSize)
	_, _ = io.CopyBuffer(h, io.LimitReader(r, config.FingerprintWindow), buf)

	return h.Sum32()
}

// Encode кодирует v в base62 фиксированной ширины, старший разряд первым.
func Encode(v uint32) string {
	const base = uint32(len(config.FingerprintAlphabet))

	out := make([]byte, config.FingerprintWidth)
	for i := range out {
		out[i] = config.FingerprintAlphabet[0]
	}

	// младшие разряды заполняются с конца, что эквивалентно развороту
	for i := len(out) - 1; i >= 0 && v > 0; i-- {
		out[i] = config.FingerprintAlphabet[v%base]
		v /= base
	}
	return string(out)
}
