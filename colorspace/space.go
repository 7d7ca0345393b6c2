// Package colorspace concretizes client colors given in CIE-based and
// ICC-based color spaces into device colors.
//
// CIE spaces (CIEBasedA, ABC, DEF and DEFG) can be rendered natively through
// a color rendering dictionary, or lazily upgraded to a synthesized ICC
// profile and handed to the CMM. Both paths share the fixed-point lookup
// caches built when a space is constructed.
package colorspace

import (
	"context"
	"sync/atomic"

	"github.com/wudi/pdfcolor/device"
)

// Space is a color space that can be remapped onto a device.
type Space interface {
	Name() string
	// ID is unique per instance and identifies the space in joint caches
	// and saved client colors.
	ID() uint64
	NumComponents() int
	Ranges() []Range
	Polarity() device.Polarity
	// InitColor returns the initial color of the space.
	InitColor() []float64
	// RestrictColor clamps cc to the component ranges.
	RestrictColor(cc []float64) []float64

	Remap(ctx context.Context, cc []float64, st *State, dev device.Device) (device.Color, error)
	Concretize(ctx context.Context, cc []float64, st *State, dev device.Device) ([]Frac, error)
	// IsLinear reports whether mapping the region spanned by corners onto
	// dev stays within smoothness of linear interpolation.
	IsLinear(ctx context.Context, st *State, dev device.Device, corners [][]float64, smoothness float64) (bool, error)
}

var lastSpaceID atomic.Uint64

// spaceBase carries the identity and reference count every space has.
type spaceBase struct {
	id   uint64
	refs atomic.Int32
}

func (b *spaceBase) init() {
	b.id = lastSpaceID.Add(1)
	b.refs.Store(1)
}

func (b *spaceBase) ID() uint64 { return b.id }

// Retain adds a reference.
func (b *spaceBase) Retain() { b.refs.Add(1) }

// Release drops a reference and returns the remaining count.
func (b *spaceBase) Release() int32 { return b.refs.Add(-1) }

// RefCount reports the current reference count.
func (b *spaceBase) RefCount() int32 { return b.refs.Load() }

type retainer interface {
	Retain()
}

func retain(s Space) Space {
	if r, ok := s.(retainer); ok {
		r.Retain()
	}
	return s
}

type releaser interface {
	Release() int32
}

func release(s Space) {
	if r, ok := s.(releaser); ok {
		r.Release()
	}
}

func restrict(ranges []Range, cc []float64) []float64 {
	out := make([]float64, len(cc))
	for i, v := range cc {
		if i < len(ranges) {
			v = ranges[i].Clamp(v)
		}
		out[i] = v
	}
	return out
}

func initColor(ranges []Range) []float64 {
	return restrict(ranges, make([]float64, len(ranges)))
}
