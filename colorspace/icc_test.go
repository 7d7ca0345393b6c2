package colorspace

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
)

func linearRGBProfile(t *testing.T) *cmm.ICCProfile {
	t.Helper()
	data, err := cmm.NewMatrixTRCProfile("linear RGB",
		[3]float64{0.4361, 0.2225, 0.0139},
		[3]float64{0.3851, 0.7169, 0.0971},
		[3]float64{0.1431, 0.0606, 0.7141},
		&cmm.Curve{Gamma: 1})
	if err != nil {
		t.Fatalf("NewMatrixTRCProfile failed: %v", err)
	}
	p, err := cmm.NewICCProfile(data)
	if err != nil {
		t.Fatalf("NewICCProfile failed: %v", err)
	}
	return p
}

func srgbSpace(t *testing.T) *ICCSpace {
	t.Helper()
	p, err := cmm.SRGBProfile()
	if err != nil {
		t.Fatalf("SRGBProfile failed: %v", err)
	}
	s, err := NewICCSpace(p, nil)
	if err != nil {
		t.Fatalf("NewICCSpace failed: %v", err)
	}
	return s
}

// fixedReplacer replaces every color with one device color.
type fixedReplacer struct {
	color device.Color
	err   error
	reqs  []device.ReplaceRequest
}

func (r *fixedReplacer) ReplaceColor(req device.ReplaceRequest, dev device.Device) (device.Color, bool, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return device.Color{}, false, r.err
	}
	return r.color, true, nil
}

func TestICCSpaceSameProfileIsIdentity(t *testing.T) {
	builder := &stubBuilder{}
	st := newTestState(Config{LinkBuilder: builder})
	dev, _ := srgbDevice(t)
	s := srgbSpace(t)

	c, err := s.Remap(context.Background(), []float64{1, 0.5, 0}, st, dev)
	if err != nil {
		t.Fatalf("Remap failed: %v", err)
	}
	if builder.builds != 0 {
		t.Errorf("builder called %d times for equal profiles", builder.builds)
	}
	if c.Kind != device.KindPure {
		t.Fatalf("Kind = %v, want pure", c.Kind)
	}
	if got := dev.Decode(c.Pure, 3); got[0] != 255 || got[1] != 128 || got[2] != 0 {
		t.Errorf("device color = %v, want [255 128 0]", got)
	}
	if !c.ClientValid || c.SpaceID != s.ID() {
		t.Errorf("client not saved: %+v", c)
	}
}

func TestICCSpaceIdentityLinkSkipsApply(t *testing.T) {
	link := &funcLink{nin: 3, nout: 3, identity: true, fn: copyFn}
	builder := &stubBuilder{link: link}
	st := newTestState(Config{LinkBuilder: builder})
	dev := device.NewMemoryDevice(linearRGBProfile(t))
	s := srgbSpace(t)

	c, err := s.Remap(context.Background(), []float64{0.25, 0.5, 1}, st, dev)
	if err != nil {
		t.Fatalf("Remap failed: %v", err)
	}
	if builder.builds != 1 {
		t.Errorf("builds = %d, want 1", builder.builds)
	}
	if n := len(link.calls()); n != 0 {
		t.Errorf("identity link applied %d times", n)
	}
	want, _ := dev.EncodeColor(s.encode([]float64{0.25, 0.5, 1}, false))
	if c.Pure != want {
		t.Errorf("Pure = %#x, want %#x", c.Pure, want)
	}

	fr, err := s.Concretize(context.Background(), []float64{0, 1, 0}, st, dev)
	if err != nil {
		t.Fatalf("Concretize failed: %v", err)
	}
	if fr[0] != Frac0 || fr[1] != Frac1 || fr[2] != Frac0 {
		t.Errorf("Concretize = %v", fr)
	}
}

func TestICCSpaceReplacer(t *testing.T) {
	link := &funcLink{nin: 3, nout: 3, fn: halfFn}
	repl := &fixedReplacer{color: device.Color{Kind: device.KindPure, Pure: 0x010203}}
	st := newTestState(Config{LinkBuilder: &stubBuilder{link: link}, Replacer: repl})
	dev := device.NewMemoryDevice(linearRGBProfile(t))
	s := srgbSpace(t)
	s.SpotName = "Gold"

	cc := []float64{0.1, 0.2, 0.3}
	c, err := s.Remap(context.Background(), cc, st, dev)
	if err != nil {
		t.Fatalf("Remap failed: %v", err)
	}
	if c.Pure != 0x010203 {
		t.Errorf("Pure = %#x, replacement ignored", c.Pure)
	}
	if n := len(link.calls()); n != 0 {
		t.Errorf("link applied %d times after replacement", n)
	}
	if !c.ClientValid || c.SpaceID != s.ID() || len(c.Client) != 3 || c.Client[2] != 0.3 {
		t.Errorf("client not saved on replaced color: %+v", c)
	}
	if len(repl.reqs) != 1 || repl.reqs[0].SpotName != "Gold" || repl.reqs[0].SpaceName != "ICCBased" {
		t.Errorf("replace requests = %+v", repl.reqs)
	}

	// The device's own replacer wins over the configured one.
	own := &fixedReplacer{color: device.Color{Kind: device.KindPure, Pure: 0x0a0b0c}}
	dev.Replace = own
	if c, err = s.Remap(context.Background(), cc, st, dev); err != nil {
		t.Fatalf("Remap failed: %v", err)
	}
	if c.Pure != 0x0a0b0c || len(repl.reqs) != 1 {
		t.Errorf("device replacer not preferred: %#x, %d config calls", c.Pure, len(repl.reqs))
	}

	// Concretize bypasses replacement.
	if _, err := s.Concretize(context.Background(), cc, st, dev); err != nil {
		t.Fatalf("Concretize failed: %v", err)
	}
	if n := len(link.calls()); n != 1 {
		t.Errorf("Concretize applied the link %d times, want 1", n)
	}
}

func TestICCSpaceReplacerError(t *testing.T) {
	errBoom := errors.New("boom")
	st := newTestState(Config{Replacer: &fixedReplacer{err: errBoom}})
	dev, _ := srgbDevice(t)
	if _, err := srgbSpace(t).Remap(context.Background(), []float64{0, 0, 0}, st, dev); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want %v", err, errBoom)
	}
}

func TestICCSpaceDeviceComponents(t *testing.T) {
	link := &funcLink{nin: 3, nout: 2, fn: copyFn}
	st := newTestState(Config{LinkBuilder: &stubBuilder{link: link}})
	dev := &device.MemoryDevice{Default: &device.Profile{ICC: linearRGBProfile(t), NumComponents: 2}}
	s := srgbSpace(t)

	if _, err := s.Remap(context.Background(), []float64{1, 0, 0}, st, dev); !errors.Is(err, ErrDomain) {
		t.Fatalf("err = %v, want ErrDomain without DeviceN", err)
	}
	dev.DeviceN = true
	c, err := s.Remap(context.Background(), []float64{1, 0, 0}, st, dev)
	if err != nil {
		t.Fatalf("Remap failed: %v", err)
	}
	if c.Kind != device.KindDeviceN || len(c.Components) != 2 || c.Components[0] != 0xffff || c.Components[1] != 0 {
		t.Errorf("DeviceN color = %+v", c)
	}
}

func TestICCSpaceMissingOutputProfile(t *testing.T) {
	st := newTestState(Config{})
	_, err := srgbSpace(t).Remap(context.Background(), []float64{0, 0, 0}, st, &device.MemoryDevice{})
	if !errors.Is(err, ErrMissingResource) {
		t.Fatalf("err = %v, want ErrMissingResource", err)
	}
}

func TestICCSpaceLinkBuildFailure(t *testing.T) {
	refused := errors.New("link refused")
	st := newTestState(Config{LinkBuilder: &stubBuilder{err: refused}})
	dev := device.NewMemoryDevice(linearRGBProfile(t))
	_, err := srgbSpace(t).Remap(context.Background(), []float64{0, 0, 0}, st, dev)
	if !errors.Is(err, ErrAllocation) || !errors.Is(err, refused) {
		t.Fatalf("err = %v, want ErrAllocation wrapping the builder error", err)
	}
}

func TestNewICCSpaceErrors(t *testing.T) {
	if _, err := NewICCSpace(nil, nil); !errors.Is(err, ErrMissingResource) {
		t.Errorf("nil profile: %v", err)
	}
}

func TestICCSpaceLabEncoding(t *testing.T) {
	data, err := cmm.NewLabProfile()
	if err != nil {
		t.Fatalf("NewLabProfile failed: %v", err)
	}
	p, err := cmm.NewICCProfile(data)
	if err != nil {
		t.Fatalf("NewICCProfile failed: %v", err)
	}
	s, err := NewICCSpace(p, nil)
	if err != nil {
		t.Fatalf("NewICCSpace failed: %v", err)
	}
	if r := s.Ranges(); r[0] != (Range{Min: 0, Max: 100}) || r[1] != (Range{Min: -128, Max: 127}) {
		t.Fatalf("Lab ranges = %v", r)
	}
	got := s.encode([]float64{100, -128, 127}, false)
	if got[0] != 0xffff || got[1] != 0 || got[2] != 0xffff {
		t.Errorf("encode = %v", got)
	}
	raw := s.encode([]float64{0.5, 0, 1}, true)
	if raw[0] != 32768 || raw[1] != 0 || raw[2] != 0xffff {
		t.Errorf("raw encode = %v", raw)
	}
	if init := s.InitColor(); init[0] != 0 || init[1] != 0 || init[2] != 0 {
		t.Errorf("InitColor = %v", init)
	}
}

func TestRestrictColor(t *testing.T) {
	s := srgbSpace(t)
	got := s.RestrictColor([]float64{-1, 0.5, 2})
	if got[0] != 0 || got[1] != 0.5 || got[2] != 1 {
		t.Errorf("RestrictColor = %v", got)
	}
}
