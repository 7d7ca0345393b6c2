package colorspace

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/wudi/pdfcolor/device"
)

func linearTestSetup(t *testing.T, fn func(in, out []uint16)) (*ICCSpace, *State, *device.MemoryDevice) {
	t.Helper()
	st := newTestState(Config{LinkBuilder: &stubBuilder{link: &funcLink{nin: 3, nout: 3, fn: fn}}})
	return srgbSpace(t), st, device.NewMemoryDevice(linearRGBProfile(t))
}

func TestIsLinear(t *testing.T) {
	triangle := [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 1}}
	quad := [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 1}}
	line := [][]float64{{0, 0, 0}, {1, 1, 1}}

	tests := []struct {
		name       string
		fn         func(in, out []uint16)
		corners    [][]float64
		smoothness float64
		want       bool
	}{
		{"affine triangle", halfFn, triangle, 0, true},
		{"affine quad", halfFn, quad, 0, true},
		{"affine line", halfFn, line, 0, true},
		{"curved line", squareFn, line, 0, false},
		{"curved triangle", squareFn, triangle, 0.01, false},
		{"curved within smoothness", squareFn, triangle, 1, true},
		{"curved line within smoothness", squareFn, line, 1, true},
		{"smoothness above full scale", squareFn, line, 1e15, true},
		{"infinite smoothness", squareFn, line, math.Inf(1), true},
		{"NaN smoothness", squareFn, line, math.NaN(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st, dev := linearTestSetup(t, tt.fn)
			got, err := s.IsLinear(context.Background(), st, dev, tt.corners, tt.smoothness)
			if err != nil {
				t.Fatalf("IsLinear failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsLinear = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinearTolerance(t *testing.T) {
	tests := []struct {
		smoothness float64
		want       int
	}{
		{0, 1},
		{-2, 1},
		{math.NaN(), 1},
		{1e-9, 1},
		{0.5, 32768},
		{1, 65535},
		{1e15, 65535},
		{math.Inf(1), 65535},
	}
	for _, tt := range tests {
		if got := linearTolerance(tt.smoothness); got != tt.want {
			t.Errorf("linearTolerance(%g) = %d, want %d", tt.smoothness, got, tt.want)
		}
	}
}

func TestIsLinearShortcuts(t *testing.T) {
	corners := [][]float64{{0, 0, 0}, {1, 1, 1}}
	ctx := context.Background()

	s, st, dev := linearTestSetup(t, squareFn)
	dev.Halftone = true
	if ok, err := s.IsLinear(ctx, st, dev, corners, 0); ok || err != nil {
		t.Errorf("halftone device: %v, %v; want false, nil", ok, err)
	}

	same, _ := srgbDevice(t)
	same.NotSeparable = true
	if ok, err := s.IsLinear(ctx, st, same, corners, 0); !ok || err != nil {
		t.Errorf("identity link: %v, %v; want true, nil", ok, err)
	}
}

func TestIsLinearErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name         string
		notSeparable bool
		corners      [][]float64
	}{
		{"not separable", true, [][]float64{{0, 0, 0}, {1, 1, 1}}},
		{"one corner", false, [][]float64{{0, 0, 0}}},
		{"five corners", false, [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}},
		{"short corner", false, [][]float64{{0, 0}, {1, 1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st, dev := linearTestSetup(t, halfFn)
			dev.NotSeparable = tt.notSeparable
			if _, err := s.IsLinear(ctx, st, dev, tt.corners, 0); !errors.Is(err, ErrDomain) {
				t.Errorf("err = %v, want ErrDomain", err)
			}
		})
	}
}

func TestCIEIsLinearRescalesCorners(t *testing.T) {
	link := &funcLink{nin: 3, nout: 3, fn: halfFn}
	st := newTestState(Config{LinkBuilder: &stubBuilder{link: link}})
	dev, _ := srgbDevice(t)
	s, err := NewCIEABC(CIEABCParams{
		ABC:    ABC{RangeABC: [3]Range{{Min: 0, Max: 2}, {Min: 0, Max: 2}, {Min: 0, Max: 2}}},
		Common: Common{WhitePoint: D50White},
	})
	if err != nil {
		t.Fatalf("NewCIEABC failed: %v", err)
	}

	ok, err := s.IsLinear(context.Background(), st, dev, [][]float64{{0, 0, 0}, {2, 2, 2}}, 0)
	if err != nil {
		t.Fatalf("IsLinear failed: %v", err)
	}
	if !ok {
		t.Error("affine link reported non-linear")
	}
	calls := link.calls()
	if len(calls) == 0 || calls[1][0] != 0xffff {
		t.Errorf("corner inputs = %v, want the second corner at full scale", calls)
	}
}
