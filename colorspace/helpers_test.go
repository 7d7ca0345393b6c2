package colorspace

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
	"github.com/wudi/pdfcolor/observability"
)

type countingSpan struct{}

func (countingSpan) SetTag(string, interface{}) {}
func (countingSpan) SetError(error)             {}
func (countingSpan) Finish()                    {}

type requestKey struct{}

// countingTracer counts started spans by name and remembers the request
// value of the context each was started from.
type countingTracer struct {
	mu       sync.Mutex
	spans    map[string]int
	requests map[string]any
}

func (t *countingTracer) StartSpan(ctx context.Context, name string) (context.Context, observability.Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spans == nil {
		t.spans = make(map[string]int)
		t.requests = make(map[string]any)
	}
	t.spans[name]++
	t.requests[name] = ctx.Value(requestKey{})
	return ctx, countingSpan{}
}

func (t *countingTracer) request(name string) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests[name]
}

func (t *countingTracer) count(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans[name]
}

var errBufferRejected = errors.New("buffer rejected")

// funcLink applies fn per pixel and records every Apply16 input.
type funcLink struct {
	nin, nout  int
	identity   bool
	failBuffer bool
	fn         func(in, out []uint16)

	mu     sync.Mutex
	inputs [][]uint16
}

func (l *funcLink) IsIdentity() bool { return l.identity }
func (l *funcLink) NumInputs() int   { return l.nin }
func (l *funcLink) NumOutputs() int  { return l.nout }

func (l *funcLink) Apply16(in, out []uint16) error {
	l.mu.Lock()
	l.inputs = append(l.inputs, append([]uint16(nil), in[:l.nin]...))
	l.mu.Unlock()
	l.fn(in, out)
	return nil
}

func (l *funcLink) ApplyBuffer(inDesc cmm.BufferDesc, in []byte, outDesc cmm.BufferDesc, out []byte) error {
	if l.failBuffer {
		return errBufferRejected
	}
	src := make([]uint16, inDesc.NumChannels)
	dst := make([]uint16, max(outDesc.NumChannels, inDesc.NumChannels))
	for row := 0; row < inDesc.NumRows; row++ {
		for col := 0; col < inDesc.PixelsPerRow; col++ {
			inDesc.ReadPixel(in, row, col, src)
			if err := l.Apply16(src, dst); err != nil {
				return err
			}
			outDesc.WritePixel(out, row, col, dst)
		}
	}
	return nil
}

func (l *funcLink) calls() [][]uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]uint16(nil), l.inputs...)
}

// stubBuilder hands out one link for every pair and counts builds.
type stubBuilder struct {
	mu     sync.Mutex
	link   cmm.Link
	err    error
	builds int
}

func (b *stubBuilder) BuildLink(src, dst cmm.Profile, params cmm.RenderingParams) (cmm.Link, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builds++
	if b.err != nil {
		return nil, b.err
	}
	return b.link, nil
}

func copyFn(in, out []uint16) { copy(out, in) }

func halfFn(in, out []uint16) {
	for i, v := range in {
		out[i] = v / 2
	}
}

func squareFn(in, out []uint16) {
	for i, v := range in {
		out[i] = uint16(uint32(v) * uint32(v) / 65535)
	}
}

func srgbDevice(t *testing.T) (*device.MemoryDevice, *cmm.ICCProfile) {
	t.Helper()
	p, err := cmm.SRGBProfile()
	if err != nil {
		t.Fatalf("SRGBProfile failed: %v", err)
	}
	return device.NewMemoryDevice(p), p
}

// grayDevice returns a device whose profile differs from sRGB so links are
// never short-circuited.
func grayDevice(t *testing.T) *device.MemoryDevice {
	t.Helper()
	data, err := cmm.NewGrayProfile("test gray", &cmm.Curve{Gamma: 1})
	if err != nil {
		t.Fatalf("NewGrayProfile failed: %v", err)
	}
	p, err := cmm.NewICCProfile(data)
	if err != nil {
		t.Fatalf("NewICCProfile failed: %v", err)
	}
	return device.NewMemoryDevice(p)
}

func newTestState(cfg Config) *State {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return NewState(cfg)
}

func unitXYZSpace(t *testing.T) *CIEABC {
	t.Helper()
	s, err := NewCIEABC(CIEABCParams{Common: Common{WhitePoint: D50White}})
	if err != nil {
		t.Fatalf("NewCIEABC failed: %v", err)
	}
	return s
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func fracNear(got Frac, want float64, tol int) bool {
	d := int(got) - int(FloatToFrac(want))
	return d >= -tol && d <= tol
}
