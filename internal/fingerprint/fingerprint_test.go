package fingerprint

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/printprep/internal/config"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		in   uint32
		want string
	}{
		{0, "000000"},
		{1, "000001"},
		{9, "000009"},
		{10, "00000A"},
		{35, "00000Z"},
		{36, "00000a"},
		{61, "00000z"},
		{62, "000010"},
		{62*62 + 1, "000101"},
		{^uint32(0), "4gfFC3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.in))
		})
	}
}

func TestSum_MatchesSeededCRC(t *testing.T) {
	data := []byte("print file contents")

	h := crc32.NewIEEE()
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], uint64(len(data)))
	h.Write(seed[:])
	h.Write(data)

	assert.Equal(t, h.Sum32(), Sum(bytes.NewReader(data), int64(len(data))))
}

func TestSum_OnlyPrefixMatters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	prefix := make([]byte, config.FingerprintWindow)
	rng.Read(prefix)

	a := append(append([]byte{}, prefix...), bytes.Repeat([]byte{0xAA}, 1000)...)
	b := append(append([]byte{}, prefix...), bytes.Repeat([]byte{0x55}, 1000)...)

	assert.Equal(t,
		Sum(bytes.NewReader(a), int64(len(a))),
		Sum(bytes.NewReader(b), int64(len(b))),
		"bytes after the window must not affect the checksum")
}

func TestSum_SizeDisambiguates(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, 100)
	assert.NotEqual(t,
		Sum(bytes.NewReader(data), 100),
		Sum(bytes.NewReader(data), 200))
}

func TestOfFs_IndependentOfPath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	content := []byte("identical content")
	require.NoError(t, afero.WriteFile(fsys, "/a/one.jpg", content, 0644))
	require.NoError(t, afero.WriteFile(fsys, "/b/two.tif", content, 0644))
	require.NoError(t, afero.WriteFile(fsys, "/c/other.jpg", []byte("different content"), 0644))

	one := OfFs(fsys, "/a/one.jpg")
	assert.Len(t, one, config.FingerprintWidth)
	assert.Equal(t, one, OfFs(fsys, "/b/two.tif"))
	assert.NotEqual(t, one, OfFs(fsys, "/c/other.jpg"))
}

func TestOfFs_Missing(t *testing.T) {
	assert.Equal(t, "000000", OfFs(afero.NewMemMapFs(), "/absent.jpg"))
}

func TestOf_OsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	content := []byte("on disk")
	require.NoError(t, os.WriteFile(path, content, 0644))

	want := Encode(Sum(bytes.NewReader(content), int64(len(content))))
	assert.Equal(t, want, Of(path))
}
