package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"", ModePad, false},
		{"crop", ModeCrop, false},
		{"CROP", ModeCrop, false},
		{" mirror ", ModeMirror, false},
		{"border", ModeBorder, false},
		{"resize", ModeResize, false},
		{"replicate", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPixelsFromCm(t *testing.T) {
	tests := []struct {
		cm   float64
		dpi  float64
		want int
	}{
		{2.54, 300, 300},
		{1, 300, 118},
		{5, 300, 591},
		{-1, 300, -118},
		{0, 300, 0},
		{1, 72, 28},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PixelsFromCm(tt.cm, tt.dpi), "cm=%v dpi=%v", tt.cm, tt.dpi)
	}
}

func TestCompile_CropHalfFrame(t *testing.T) {
	g, err := Compile(1000, 1000, 300, Spec{
		Mode:           ModeCrop,
		TargetWidthCm:  5,
		TargetHeightCm: 5,
		Crop:           PercentRect{X: 0, Y: 0, W: 50, H: 50},
	})
	require.NoError(t, err)

	assert.Equal(t, Rect{X: 0, Y: 0, W: 500, H: 500}, g.CropRect)
	assert.Equal(t, Size{W: 591, H: 591}, g.Size)
	assert.Equal(t, Size{W: 591, H: 591}, g.Scaled)
	assert.Equal(t, Point{}, g.Offset)
	assert.False(t, g.BackgroundVisible)

	require.Len(t, g.Ops, 5)
	assert.Equal(t, Crop{Rect: Rect{W: 500, H: 500}}, g.Ops[1])
	assert.Equal(t, Resize{Width: 591, Height: 591}, g.Ops[2])
	assert.Equal(t, Extent{Width: 591, Height: 591, Background: "white"}, g.Ops[3])
}

func TestCompile_CropFillTrimsCentered(t *testing.T) {
	// 2:1 кадр в квадрат: масштаб по высоте, лишнее по ширине срезается поровну
	g, err := Compile(2000, 1000, 300, Spec{
		Mode:           ModeCrop,
		TargetWidthCm:  2.54,
		TargetHeightCm: 2.54,
	})
	require.NoError(t, err)

	assert.Equal(t, Rect{W: 2000, H: 1000}, g.CropRect)
	assert.Equal(t, Size{W: 600, H: 300}, g.Scaled)
	assert.Equal(t, Point{X: -150, Y: 0}, g.Offset)
	assert.Equal(t, Size{W: 300, H: 300}, g.Size)
	assert.False(t, g.BackgroundVisible)
}

func TestCompile_CropRectClamped(t *testing.T) {
	tests := []struct {
		name string
		rect PercentRect
		want Rect
	}{
		{"outside right", PercentRect{X: 150, Y: 0, W: 50, H: 100}, Rect{X: 99, Y: 0, W: 1, H: 100}},
		{"negative origin", PercentRect{X: -20, Y: -5, W: 40, H: 40}, Rect{X: 0, Y: 0, W: 40, H: 40}},
		{"overflowing size", PercentRect{X: 80, Y: 90, W: 50, H: 50}, Rect{X: 80, Y: 90, W: 20, H: 10}},
		{"zero width", PercentRect{X: 10, Y: 10, W: 0.1, H: 50}, Rect{X: 10, Y: 10, W: 1, H: 50}},
		{"nan", PercentRect{X: math.NaN(), Y: 0, W: 100, H: 100}, Rect{X: 0, Y: 0, W: 100, H: 100}},
		{"unset means full frame", PercentRect{}, Rect{X: 0, Y: 0, W: 100, H: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Compile(100, 100, 300, Spec{
				Mode:           ModeCrop,
				TargetWidthCm:  1,
				TargetHeightCm: 1,
				Crop:           tt.rect,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.CropRect)
			assert.GreaterOrEqual(t, g.Scaled.W, g.Size.W)
			assert.GreaterOrEqual(t, g.Scaled.H, g.Size.H)
		})
	}
}

func TestCompile_Resize(t *testing.T) {
	g, err := Compile(640, 480, 72, Spec{Mode: ModeResize, TargetWidthCm: 10.2, TargetHeightCm: 15.2})
	require.NoError(t, err)

	want := Size{W: PixelsFromCm(10.2, 300), H: PixelsFromCm(15.2, 300)}
	assert.Equal(t, want, g.Size)
	require.Len(t, g.Ops, 3)
	assert.Equal(t, Resize{Width: want.W, Height: want.H}, g.Ops[1])
}

func TestCompile_Pad(t *testing.T) {
	g, err := Compile(3000, 1000, 300, Spec{Mode: ModePad, TargetWidthCm: 10, TargetHeightCm: 10, Background: "black"})
	require.NoError(t, err)

	assert.Equal(t, Size{W: 1181, H: 1181}, g.Size)
	assert.Equal(t, Size{W: 1181, H: 394}, g.Scaled)
	assert.Equal(t, Point{X: 0, Y: 393}, g.Offset)
	assert.True(t, g.BackgroundVisible)

	require.Len(t, g.Ops, 4)
	assert.Equal(t, Flatten{Background: "black"}, g.Ops[0])
	assert.Equal(t, Extent{Width: 1181, Height: 1181, OffsetX: 0, OffsetY: 393, Background: "black"}, g.Ops[2])
}

func TestCompile_PadExactAspectHasNoMargin(t *testing.T) {
	g, err := Compile(600, 600, 300, Spec{TargetWidthCm: 2.54, TargetHeightCm: 2.54})
	require.NoError(t, err)

	assert.Equal(t, ModePad, g.Mode)
	assert.Equal(t, Size{W: 300, H: 300}, g.Scaled)
	assert.False(t, g.BackgroundVisible)
}

func TestCompile_PadTinySourceNeverZero(t *testing.T) {
	g, err := Compile(10000, 1, 300, Spec{Mode: ModePad, TargetWidthCm: 2.54, TargetHeightCm: 2.54})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Scaled.H)
	assert.Equal(t, 300, g.Scaled.W)
}

func TestCompile_BorderTopOnly(t *testing.T) {
	g, err := Compile(900, 900, 300, Spec{Mode: ModeBorder, Border: InsetsCm{Top: 1}})
	require.NoError(t, err)

	assert.Equal(t, Insets{Top: 118}, g.Expand)
	assert.True(t, g.Trim.IsZero())
	assert.Equal(t, Size{W: 900, H: 1018}, g.Size)
	assert.Equal(t, EdgeSolid, g.Edge)
	assert.True(t, g.BackgroundVisible)

	require.Len(t, g.Ops, 3)
	assert.Equal(t, Expand{Insets: Insets{Top: 118}, Edge: EdgeSolid, Background: "white"}, g.Ops[1])
}

func TestCompile_BorderUsesSourceDPI(t *testing.T) {
	g, err := Compile(900, 900, 150, Spec{Mode: ModeBorder, Border: InsetsCm{Left: 2.54, Right: 2.54}})
	require.NoError(t, err)
	assert.Equal(t, Size{W: 1200, H: 900}, g.Size)
}

func TestCompile_BorderMixedInsets(t *testing.T) {
	g, err := Compile(900, 900, 300, Spec{Mode: ModeBorder, Border: InsetsCm{Left: 1, Right: -1}})
	require.NoError(t, err)

	assert.Equal(t, Insets{Left: 118}, g.Expand)
	assert.Equal(t, Insets{Right: 118}, g.Trim)
	assert.Equal(t, Size{W: 900, H: 900}, g.Size)

	require.Len(t, g.Ops, 4)
	assert.Equal(t, Crop{Rect: Rect{X: 0, Y: 0, W: 900, H: 900}}, g.Ops[2])
}

func TestCompile_NegativeInsetsClampToOnePixel(t *testing.T) {
	tests := []struct {
		name   string
		border InsetsCm
		want   Size
	}{
		{"left beyond", InsetsCm{Left: -50}, Size{W: 1, H: 100}},
		{"both sides beyond", InsetsCm{Left: -50, Right: -50, Top: -50, Bottom: -50}, Size{W: 1, H: 1}},
		{"bottom beyond", InsetsCm{Bottom: -100}, Size{W: 100, H: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Compile(100, 100, 300, Spec{Mode: ModeBorder, Border: tt.border})
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.Size)
			assert.GreaterOrEqual(t, g.Size.W, 1)
			assert.GreaterOrEqual(t, g.Size.H, 1)
			assert.False(t, g.BackgroundVisible)
		})
	}
}

func TestCompile_Mirror(t *testing.T) {
	g, err := Compile(900, 600, 300, Spec{Mode: ModeMirror, Border: InsetsCm{Top: 1, Right: 1, Bottom: 1, Left: 1}})
	require.NoError(t, err)

	assert.Equal(t, EdgeMirror, g.Edge)
	assert.False(t, g.BackgroundVisible)
	assert.Equal(t, Size{W: 1136, H: 836}, g.Size)

	exp, ok := g.Ops[1].(Expand)
	require.True(t, ok)
	assert.Equal(t, EdgeMirror, exp.Edge)
}

func TestCompile_ZeroBorderHasOnlyFlattenAndDensity(t *testing.T) {
	g, err := Compile(50, 40, 300, Spec{Mode: ModeBorder})
	require.NoError(t, err)
	assert.Equal(t, Size{W: 50, H: 40}, g.Size)
	assert.Equal(t, []Op{Flatten{Background: "white"}, Density{DPI: 300}}, g.Ops)
}

func TestCompile_DPIFallback(t *testing.T) {
	for _, dpi := range []float64{0, -72, math.NaN(), math.Inf(1)} {
		g, err := Compile(900, 900, dpi, Spec{Mode: ModeBorder, Border: InsetsCm{Top: 1}})
		require.NoError(t, err)
		assert.Equal(t, 300.0, g.SourceDPI)
		assert.Equal(t, 1018, g.Size.H)
	}
}

func TestCompile_OpsOrder(t *testing.T) {
	for _, m := range Modes() {
		t.Run(string(m), func(t *testing.T) {
			g, err := Compile(400, 300, 300, Spec{
				Mode:           m,
				TargetWidthCm:  3,
				TargetHeightCm: 4,
				Border:         InsetsCm{Top: 0.5},
			})
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(g.Ops), 2)
			assert.Equal(t, "flatten", g.Ops[0].Kind())
			assert.Equal(t, Density{DPI: 300}, g.Ops[len(g.Ops)-1])
			assert.Equal(t, 300, g.OutputDPI)
			assert.NotEmpty(t, Describe(g.Ops))
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		spec    Spec
		wantErr error
	}{
		{"zero width", 0, 100, Spec{Mode: ModeBorder}, ErrInvalidSource},
		{"negative height", 100, -1, Spec{Mode: ModeBorder}, ErrInvalidSource},
		{"crop no target", 100, 100, Spec{Mode: ModeCrop}, ErrInvalidTarget},
		{"pad negative target", 100, 100, Spec{Mode: ModePad, TargetWidthCm: -1, TargetHeightCm: 5}, ErrInvalidTarget},
		{"resize nan target", 100, 100, Spec{Mode: ModeResize, TargetWidthCm: math.NaN(), TargetHeightCm: 5}, ErrInvalidTarget},
		{"sub-pixel target", 100, 100, Spec{Mode: ModeResize, TargetWidthCm: 0.001, TargetHeightCm: 5}, ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.w, tt.h, 300, tt.spec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompile_UnknownMode(t *testing.T) {
	_, err := Compile(10, 10, 300, Spec{Mode: "replicate"})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	got := Describe([]Op{
		Flatten{Background: "white"},
		Crop{Rect: Rect{X: 1, Y: 2, W: 3, H: 4}},
		Density{DPI: 300},
	})
	assert.Equal(t, "flatten(white) -> crop(3x4+1+2) -> density(300)", got)
}
