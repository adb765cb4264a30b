package converter

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/printprep/internal/asset"
	"github.com/artemshloyda/printprep/internal/config"
	"github.com/artemshloyda/printprep/internal/engine"
	"github.com/artemshloyda/printprep/internal/geometry"
	"github.com/artemshloyda/printprep/internal/metadata"
	"github.com/artemshloyda/printprep/internal/storage"
)

// fakeEngine записывает вызовы и ведёт себя согласно write/err/block.
type fakeEngine struct {
	write   []byte
	err     error
	block   bool
	lastOps []geometry.Op
	lastDst string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Identify(context.Context, string) (*engine.Info, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEngine) Transform(ctx context.Context, _, dst string, ops []geometry.Op) error {
	f.lastOps = ops
	f.lastDst = dst
	if f.write != nil {
		if err := os.WriteFile(dst, f.write, 0644); err != nil {
			return err
		}
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type fakeJournal struct {
	started  []storage.TransformStart
	okDst    string
	failMsg  string
	startErr error
}

func (j *fakeJournal) StartTransform(_ context.Context, s storage.TransformStart) (int64, error) {
	j.started = append(j.started, s)
	if j.startErr != nil {
		return 0, j.startErr
	}
	return int64(len(j.started)), nil
}

func (j *fakeJournal) FinalizeTransformOK(_ context.Context, _ int64, dst string) error {
	j.okDst = dst
	return nil
}

func (j *fakeJournal) FinalizeTransformFailed(_ context.Context, _ int64, msg string) error {
	j.failMsg = msg
	return nil
}

func writeSource(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, imaging.Save(imaging.New(w, h, color.NRGBA{G: 200, A: 255}), path))
	return path
}

func newConverter(eng engine.Engine, keep bool) *Converter {
	cfg := config.DefaultConfig()
	cfg.KeepSource = keep
	return New(eng, asset.NewProber(nil), cfg)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTransform_ReplacesSourceInPlace(t *testing.T) {
	src := writeSource(t, 1000, 1000)
	eng := &fakeEngine{write: []byte("result")}
	j := &fakeJournal{}

	c := newConverter(eng, false)
	c.SetJournal(j)

	res, err := c.Transform(context.Background(), Request{
		Path:           src,
		Mode:           geometry.ModeCrop,
		TargetWidthCm:  5,
		TargetHeightCm: 5,
		Crop:           geometry.PercentRect{W: 50, H: 50},
	})
	require.NoError(t, err)

	assert.Equal(t, src, res.FinalPath)
	assert.Equal(t, "photo.jpg", res.FinalName)
	assert.Equal(t, geometry.Size{W: 591, H: 591}, res.Geometry.Size)
	assert.Equal(t, BuildTempPath(src), eng.lastDst)
	assert.Equal(t, res.Geometry.Ops, eng.lastOps)

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "result", string(data))
	assert.Equal(t, []string{"photo.jpg"}, listDir(t, filepath.Dir(src)))

	require.Len(t, j.started, 1)
	assert.Equal(t, "crop", j.started[0].Mode)
	assert.Equal(t, "fake", j.started[0].Engine)
	assert.Contains(t, j.started[0].Params, `"width_cm":5`)
	assert.Equal(t, src, j.okDst)
}

func TestTransform_KeepSourceWritesSibling(t *testing.T) {
	src := writeSource(t, 100, 100)
	eng := &fakeEngine{write: []byte("padded")}

	res, err := newConverter(eng, true).Transform(context.Background(), Request{
		Path:           src,
		TargetWidthCm:  2,
		TargetHeightCm: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "photo_pad.jpg", res.FinalName)
	assert.FileExists(t, src)
	assert.ElementsMatch(t, []string{"photo.jpg", "photo_pad.jpg"}, listDir(t, filepath.Dir(src)))
}

func TestTransform_EngineFailureRemovesTemp(t *testing.T) {
	src := writeSource(t, 100, 100)
	before, err := os.ReadFile(src)
	require.NoError(t, err)

	engErr := &engine.Error{Engine: "fake", ExitCode: 1, Stderr: "magick: unable to open image"}
	eng := &fakeEngine{write: []byte("partial"), err: engErr}
	j := &fakeJournal{}

	c := newConverter(eng, false)
	c.SetJournal(j)

	_, err = c.Transform(context.Background(), Request{Path: src, Mode: geometry.ModeResize, TargetWidthCm: 1, TargetHeightCm: 1})
	require.Error(t, err)

	var got *engine.Error
	assert.ErrorAs(t, err, &got)
	assert.Contains(t, err.Error(), "unable to open image")
	assert.Equal(t, []string{"photo.jpg"}, listDir(t, filepath.Dir(src)))
	assert.Contains(t, j.failMsg, "unable to open image")

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTransform_EmptyOutputIsFailure(t *testing.T) {
	src := writeSource(t, 100, 100)
	eng := &fakeEngine{write: []byte{}}

	_, err := newConverter(eng, false).Transform(context.Background(), Request{Path: src, Mode: geometry.ModeBorder})
	require.Error(t, err)
	assert.Equal(t, []string{"photo.jpg"}, listDir(t, filepath.Dir(src)))
}

func TestTransform_Timeout(t *testing.T) {
	src := writeSource(t, 100, 100)
	eng := &fakeEngine{write: []byte("x"), block: true}

	c := newConverter(eng, false)
	c.SetTimeout(50 * time.Millisecond)

	_, err := c.Transform(context.Background(), Request{Path: src, Mode: geometry.ModeBorder})
	assert.ErrorIs(t, err, engine.ErrTimeout)
	assert.Equal(t, []string{"photo.jpg"}, listDir(t, filepath.Dir(src)))
}

func TestTransform_SourceMissing(t *testing.T) {
	_, err := newConverter(&fakeEngine{}, false).Transform(context.Background(), Request{
		Path: filepath.Join(t.TempDir(), "absent.jpg"),
		Mode: geometry.ModeBorder,
	})
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestTransform_NoDimensions(t *testing.T) {
	src := filepath.Join(t.TempDir(), "junk.jpg")
	require.NoError(t, os.WriteFile(src, []byte("junk"), 0644))

	eng := &fakeEngine{}
	_, err := newConverter(eng, false).Transform(context.Background(), Request{Path: src, Mode: geometry.ModeBorder})
	assert.ErrorIs(t, err, asset.ErrNoDimensions)
	assert.Nil(t, eng.lastOps)
}

func TestTransform_InvalidTarget(t *testing.T) {
	src := writeSource(t, 10, 10)
	_, err := newConverter(&fakeEngine{}, false).Transform(context.Background(), Request{Path: src, Mode: geometry.ModePad})
	assert.ErrorIs(t, err, geometry.ErrInvalidTarget)
}

func TestTransform_JournalBusy(t *testing.T) {
	src := writeSource(t, 10, 10)
	eng := &fakeEngine{write: []byte("x")}
	c := newConverter(eng, false)
	c.SetJournal(&fakeJournal{startErr: storage.ErrBusy})

	_, err := c.Transform(context.Background(), Request{Path: src, Mode: geometry.ModeBorder})
	assert.ErrorIs(t, err, storage.ErrBusy)
	assert.Nil(t, eng.lastOps)
}

func TestTransform_BuiltinEngineEndToEnd(t *testing.T) {
	src := writeSource(t, 900, 900)

	res, err := newConverter(engine.NewBuiltin(), false).Transform(context.Background(), Request{
		Path:   src,
		Mode:   geometry.ModeMirror,
		Border: geometry.InsetsCm{Top: 1, Bottom: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{W: 900, H: 1136}, res.Geometry.Size)

	info, err := engine.NewBuiltin().Identify(context.Background(), res.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, 900, info.Width)
	assert.Equal(t, 1136, info.Height)

	r := metadata.ProbeFile(res.FinalPath)
	assert.Equal(t, 300.0, r.DPI)
	assert.Equal(t, metadata.SourceJFIF, r.Source)
}

func TestDensityNormalizer(t *testing.T) {
	eng := &fakeEngine{write: []byte("x")}
	dst := filepath.Join(t.TempDir(), "out.jpg")

	require.NoError(t, NewDensityNormalizer(eng, 0).Normalize(context.Background(), "in.jpg", dst))
	assert.Equal(t, []geometry.Op{geometry.Density{DPI: 300}}, eng.lastOps)
	assert.Equal(t, dst, eng.lastDst)
}

func TestBuildPaths(t *testing.T) {
	assert.Equal(t, "/a/b/photo.transforming.tif", BuildTempPath("/a/b/photo.tif"))
	assert.Equal(t, "/a/b/photo_mirror.tif", BuildKeepPath("/a/b/photo.tif", geometry.ModeMirror))
	assert.Equal(t, "/a/noext.transforming", BuildTempPath("/a/noext"))
}
