package renamer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/fingerprint"
	"github.com/artemshloyda/printprep/internal/storage"
)

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0644))
	}
	return fs
}

func exists(t *testing.T, fs afero.Fs, p string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, p)
	require.NoError(t, err)
	return ok
}

// crossDeviceFs изображает перенос между устройствами: Rename всегда падает.
type crossDeviceFs struct {
	afero.Fs
}

func (crossDeviceFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: syscall.EXDEV}
}

type fakeJournal struct {
	records []*storage.RenameRecord
	err     error
}

func (j *fakeJournal) RecordRename(_ context.Context, rec *storage.RenameRecord) error {
	j.records = append(j.records, rec)
	return j.err
}

func TestRenameBatch_OrderAndNames(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/in/a.jpg": "alpha",
		"/in/b.tif": "bravo!",
		"/in/c":     "charlie",
	})
	fps := map[string]string{}
	for _, p := range []string{"/in/a.jpg", "/in/b.tif", "/in/c"} {
		fps[p] = fingerprint.OfFs(fs, p)
	}

	r := New(fs, Options{})
	got, err := r.RenameBatch(context.Background(), []Request{
		{Path: "/in/a.jpg", Category: "glossy"},
		{Path: "/in/b.tif", Category: "glossy"},
		{Path: "/in/c", Category: "matte"},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := []string{
		"glossy-1_" + fps["/in/a.jpg"] + ".jpg",
		"glossy-2_" + fps["/in/b.tif"] + ".tif",
		"matte-3_" + fps["/in/c"] + ".jpg",
	}
	for i, res := range got {
		assert.Equal(t, i+1, res.Index)
		assert.Equal(t, want[i], res.FinalName)
		assert.Equal(t, filepath.Join("/in", want[i]), res.FinalPath)
		assert.True(t, exists(t, fs, res.FinalPath))
		assert.False(t, exists(t, fs, res.OriginalPath))
	}

	data, err := afero.ReadFile(fs, got[1].FinalPath)
	require.NoError(t, err)
	assert.Equal(t, "bravo!", string(data))
}

func TestRenameBatch_CollisionsGetSuffixes(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/in/1.jpg": "same",
		"/in/2.jpg": "same",
		"/in/3.jpg": "same",
	})
	fp := fingerprint.OfFs(fs, "/in/1.jpg")

	// занимаем целевые имена заранее
	require.NoError(t, afero.WriteFile(fs, "/in/glossy-1_"+fp+".jpg", []byte("old"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/in/glossy-2_"+fp+".jpg", []byte("old"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/in/glossy-2_"+fp+"_1.jpg", []byte("old"), 0644))

	got, err := New(fs, Options{Collision: config.CollisionSuffix}).RenameBatch(context.Background(), []Request{
		{Path: "/in/1.jpg", Category: "glossy"},
		{Path: "/in/2.jpg", Category: "glossy"},
		{Path: "/in/3.jpg", Category: "glossy"},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "glossy-1_"+fp+"_1.jpg", got[0].FinalName)
	assert.Equal(t, "glossy-2_"+fp+"_2.jpg", got[1].FinalName)
	assert.Equal(t, "glossy-3_"+fp+".jpg", got[2].FinalName)

	seen := map[string]bool{}
	for i, res := range got {
		assert.Equal(t, fmt.Sprintf("/in/%d.jpg", i+1), res.OriginalPath)
		assert.Equal(t, i+1, res.Index)
		assert.False(t, seen[res.FinalPath])
		seen[res.FinalPath] = true
		assert.True(t, exists(t, fs, res.FinalPath))
	}

	old, err := afero.ReadFile(fs, "/in/glossy-1_"+fp+".jpg")
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestRenameBatch_FingerprintPolicyRejectsTakenName(t *testing.T) {
	fs := memFs(t, map[string]string{"/in/a.jpg": "x"})
	fp := fingerprint.OfFs(fs, "/in/a.jpg")
	require.NoError(t, afero.WriteFile(fs, "/in/c-1_"+fp+".jpg", []byte("other"), 0644))

	got, err := New(fs, Options{Collision: config.CollisionFingerprint}).RenameBatch(context.Background(), []Request{
		{Path: "/in/a.jpg", Category: "c"},
	})
	assert.ErrorIs(t, err, ErrCollision)
	assert.Nil(t, got)
	assert.True(t, exists(t, fs, "/in/a.jpg"))

	taken, err := afero.ReadFile(fs, "/in/c-1_"+fp+".jpg")
	require.NoError(t, err)
	assert.Equal(t, "other", string(taken))
}

func TestRenameBatch_FingerprintPolicyFreeName(t *testing.T) {
	fs := memFs(t, map[string]string{"/in/a.jpg": "x"})
	got, err := New(fs, Options{Collision: config.CollisionFingerprint}).RenameBatch(context.Background(), []Request{
		{Path: "/in/a.jpg", Category: "c"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c-1_"+got[0].Fingerprint+".jpg", got[0].FinalName)
}

func TestRenameBatch_MissingSourceSkippedButCounted(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/in/a.jpg": "a",
		"/in/c.jpg": "c",
	})

	got, err := New(fs, Options{}).RenameBatch(context.Background(), []Request{
		{Path: "/in/a.jpg", Category: "k"},
		{Path: "/in/gone.jpg", Category: "k"},
		{Path: "/in/c.jpg", Category: "k"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 3, got[1].Index)
	assert.Contains(t, got[1].FinalName, "k-3_")
}

func TestRenameBatch_CategoryValidatedUpFront(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/in/a.jpg": "a",
		"/in/b.jpg": "b",
	})

	got, err := New(fs, Options{}).RenameBatch(context.Background(), []Request{
		{Path: "/in/a.jpg", Category: "ok"},
		{Path: "/in/b.jpg", Category: "   "},
	})
	assert.ErrorIs(t, err, ErrEmptyCategory)
	assert.Nil(t, got)
	assert.True(t, exists(t, fs, "/in/a.jpg"))
}

func TestRenameBatch_AlreadyFinalNameIsKept(t *testing.T) {
	fs := memFs(t, map[string]string{"/in/tmp.jpg": "content"})
	fp := fingerprint.OfFs(fs, "/in/tmp.jpg")
	final := "/in/glossy-1_" + fp + ".jpg"
	require.NoError(t, fs.Rename("/in/tmp.jpg", final))

	got, err := New(fs, Options{}).RenameBatch(context.Background(), []Request{{Path: final, Category: "glossy"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, final, got[0].FinalPath)
	assert.True(t, exists(t, fs, final))
}

func TestRenameBatch_AlreadyFinalUncleanPathIsKept(t *testing.T) {
	fs := memFs(t, map[string]string{"/in/tmp.jpg": "content"})
	fp := fingerprint.OfFs(fs, "/in/tmp.jpg")
	final := "/in/glossy-1_" + fp + ".jpg"
	require.NoError(t, fs.Rename("/in/tmp.jpg", final))

	tests := []struct {
		name string
		path string
	}{
		{"точка", "/in/./glossy-1_" + fp + ".jpg"},
		{"двойной слэш", "/in//glossy-1_" + fp + ".jpg"},
		{"parent", "/in/sub/../glossy-1_" + fp + ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(fs, Options{}).RenameBatch(context.Background(), []Request{{Path: tt.path, Category: "glossy"}})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, final, got[0].FinalPath)
			assert.Equal(t, tt.path, got[0].OriginalPath)
			assert.True(t, exists(t, fs, final))
			assert.False(t, exists(t, fs, "/in/glossy-1_"+fp+"_1.jpg"))
		})
	}
}

func TestRenameBatch_CrossDeviceFallsBackToCopy(t *testing.T) {
	base := memFs(t, map[string]string{"/in/a.jpg": "payload"})
	fs := crossDeviceFs{Fs: base}

	got, err := New(fs, Options{}).RenameBatch(context.Background(), []Request{{Path: "/in/a.jpg", Category: "x"}})
	require.NoError(t, err)
	require.Len(t, got, 1)

	data, err := afero.ReadFile(base, got[0].FinalPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.False(t, exists(t, base, "/in/a.jpg"))
}

func TestRenameBatch_CopyFailureIsFatal(t *testing.T) {
	base := memFs(t, map[string]string{
		"/in/a.jpg": "a",
		"/in/b.jpg": "b",
	})
	fs := afero.NewReadOnlyFs(base)

	got, err := New(fs, Options{}).RenameBatch(context.Background(), []Request{
		{Path: "/in/a.jpg", Category: "x"},
		{Path: "/in/b.jpg", Category: "x"},
	})
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, exists(t, base, "/in/a.jpg"))
	assert.True(t, exists(t, base, "/in/b.jpg"))
}

func TestRenameBatch_JournalReceivesRecords(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/in/a.jpg": "aaaa",
		"/in/b.jpg": "bb",
	})
	j := &fakeJournal{err: errors.New("disk full")}

	r := New(fs, Options{Journal: j, BatchID: "batch-1"})
	got, err := r.RenameBatch(context.Background(), []Request{
		{Path: "/in/a.jpg", Category: "glossy"},
		{Path: "/in/b.jpg", Category: "glossy"},
	})
	require.NoError(t, err, "ошибка журнала не фатальна")
	require.Len(t, got, 2)
	require.Len(t, j.records, 2)

	rec := j.records[0]
	assert.Equal(t, "batch-1", rec.BatchID)
	assert.Equal(t, "/in/a.jpg", rec.OriginalPath)
	assert.Equal(t, got[0].FinalPath, rec.FinalPath)
	assert.Equal(t, "glossy", rec.Category)
	assert.Equal(t, 1, rec.BatchIndex)
	assert.Equal(t, got[0].Fingerprint, rec.Fingerprint)
	assert.Equal(t, int64(4), rec.SizeBytes)
	assert.Equal(t, 2, j.records[1].BatchIndex)
}

func TestRenameBatch_GeneratesBatchID(t *testing.T) {
	r := New(afero.NewMemMapFs(), Options{})
	assert.Len(t, r.BatchID(), 36)
}

func TestRenameBatch_Cancelled(t *testing.T) {
	fs := memFs(t, map[string]string{"/in/a.jpg": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := New(fs, Options{}).RenameBatch(ctx, []Request{{Path: "/in/a.jpg", Category: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

type fakeNormalizer struct {
	err   error
	calls int
}

func (n *fakeNormalizer) Normalize(_ context.Context, src, dst string) error {
	n.calls++
	if n.err != nil {
		return n.err
	}
	return os.WriteFile(dst, []byte("normalized:"+filepath.Base(src)), 0644)
}

func TestRenameBatch_Normalizer(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(src, []byte("original"), 0644))

	n := &fakeNormalizer{}
	got, err := New(afero.NewOsFs(), Options{Normalizer: n}).RenameBatch(context.Background(), []Request{{Path: src, Category: "x"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, n.calls)

	data, err := os.ReadFile(got[0].FinalPath)
	require.NoError(t, err)
	assert.Equal(t, "normalized:a.jpg", string(data))
	assert.NoFileExists(t, src)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "временный файл не должен оставаться")
}

func TestRenameBatch_NormalizerFailureFallsBackToMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(src, []byte("original"), 0644))

	n := &fakeNormalizer{err: errors.New("engine missing")}
	got, err := New(afero.NewOsFs(), Options{Normalizer: n}).RenameBatch(context.Background(), []Request{{Path: src, Category: "x"}})
	require.NoError(t, err)
	require.Len(t, got, 1)

	data, err := os.ReadFile(got[0].FinalPath)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestSanitizeCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"glossy", "glossy", false},
		{"  matte ", "matte", false},
		{"fine/art", "fine_art", false},
		{`a\b`, "a_b", false},
		{"", "", true},
		{" \t", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeCategory(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyCategory)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildName(t *testing.T) {
	assert.Equal(t, "glossy-7_00abCD.tif", BuildName("glossy", 7, "00abCD", ".tif"))
	assert.Equal(t, "glossy-1_000000.jpg", BuildName("glossy", 1, "000000", ""))
	assert.Equal(t, "x-2_ZZZZZZ.PSD", BuildName("x", 2, "ZZZZZZ", "PSD"))
}
