package colorspace

import (
	"context"
	"fmt"
	"math"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
)

var labRanges = []Range{{Min: 0, Max: 100}, {Min: -128, Max: 127}, {Min: -128, Max: 127}}

// ICCSpace is an ICC-based color space. Colors are converted by a CMM link
// to the device output profile.
type ICCSpace struct {
	spaceBase
	profile *cmm.ICCProfile
	n       int
	ranges  []Range
	alt     Space
	isLab   bool

	// SpotName is offered to color replacers with every remap.
	SpotName string
}

// NewICCSpace wraps a profile. The alternate, when given, is retained.
func NewICCSpace(p *cmm.ICCProfile, alt Space) (*ICCSpace, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil profile", ErrMissingResource)
	}
	n := p.NumComponents()
	if n == 0 {
		return nil, fmt.Errorf("%w: profile %q has unknown color space %q", ErrDomain, p.Name(), p.ColorSpace())
	}
	s := &ICCSpace{profile: p, n: n, isLab: p.DataSpace == cmm.DataCIELAB || p.IsLab}
	if s.isLab && n == 3 {
		s.ranges = append([]Range(nil), labRanges...)
	} else {
		s.ranges = unitRanges(n)
	}
	if alt != nil {
		s.alt = retain(alt)
	}
	s.init()
	return s, nil
}

// Release drops a reference; the last one releases the alternate.
func (s *ICCSpace) Release() int32 {
	n := s.spaceBase.Release()
	if n == 0 {
		release(s.alt)
	}
	return n
}

func (s *ICCSpace) Name() string                         { return "ICCBased" }
func (s *ICCSpace) NumComponents() int                   { return s.n }
func (s *ICCSpace) Ranges() []Range                      { return s.ranges }
func (s *ICCSpace) InitColor() []float64                 { return initColor(s.ranges) }
func (s *ICCSpace) RestrictColor(cc []float64) []float64 { return restrict(s.ranges, cc) }
func (s *ICCSpace) Profile() *cmm.ICCProfile             { return s.profile }
func (s *ICCSpace) Alternate() Space                     { return s.alt }

func (s *ICCSpace) Polarity() device.Polarity {
	switch s.profile.DataSpace {
	case cmm.DataGray, cmm.DataRGB, cmm.DataCIELAB, cmm.DataCIEXYZ:
		return device.PolarityAdditive
	case cmm.DataCMYK, cmm.DataNChannel:
		return device.PolaritySubtractive
	}
	return device.PolarityUnknown
}

type remapRequest struct {
	in      []float64
	client  []float64
	name    string
	id      uint64
	raw     bool
	replace bool
}

// Remap converts cc to a device color, consulting the color replacer first.
func (s *ICCSpace) Remap(ctx context.Context, cc []float64, st *State, dev device.Device) (device.Color, error) {
	return s.remap(ctx, remapRequest{in: cc, client: cc, name: s.Name(), id: s.ID(), replace: true}, st, dev)
}

// RemapImageLab is Remap for Lab image samples that are already normalized
// to [0,1].
func (s *ICCSpace) RemapImageLab(ctx context.Context, cc []float64, st *State, dev device.Device) (device.Color, error) {
	return s.remap(ctx, remapRequest{in: cc, client: cc, name: s.Name(), id: s.ID(), raw: true, replace: true}, st, dev)
}

// remapNoReplace skips the replacer; replacers use it for their own
// conversions.
func (s *ICCSpace) remapNoReplace(ctx context.Context, cc []float64, st *State, dev device.Device) (device.Color, error) {
	return s.remap(ctx, remapRequest{in: cc, client: cc, name: s.Name(), id: s.ID()}, st, dev)
}

func (s *ICCSpace) remap(ctx context.Context, req remapRequest, st *State, dev device.Device) (device.Color, error) {
	if req.replace {
		if r := st.replacer(dev); r != nil {
			c, ok, err := r.ReplaceColor(device.ReplaceRequest{
				Client:    req.client,
				SpaceName: req.name,
				SpotName:  s.SpotName,
				SpaceID:   req.id,
			}, dev)
			if err != nil {
				return device.Color{}, fmt.Errorf("color replacement: %w", err)
			}
			if ok {
				c.SaveClient(req.client, req.id)
				return c, nil
			}
		}
	}
	comps, prof, err := s.convert(ctx, req.in, req.raw, st, dev)
	if err != nil {
		return device.Color{}, err
	}
	switch prof.NumComponents {
	case 1, 3, 4:
	default:
		if !dev.SupportsDeviceN() {
			return device.Color{}, fmt.Errorf("%w: device cannot take %d components", ErrDomain, prof.NumComponents)
		}
	}
	c := device.Remap(dev, prof, comps)
	c.SaveClient(req.client, req.id)
	return c, nil
}

// Concretize returns the device fracs for cc.
func (s *ICCSpace) Concretize(ctx context.Context, cc []float64, st *State, dev device.Device) ([]Frac, error) {
	return s.concretize(ctx, cc, false, st, dev)
}

func (s *ICCSpace) concretize(ctx context.Context, cc []float64, raw bool, st *State, dev device.Device) ([]Frac, error) {
	comps, _, err := s.convert(ctx, cc, raw, st, dev)
	if err != nil {
		return nil, err
	}
	out := make([]Frac, len(comps))
	for i, v := range comps {
		out[i] = UshortToFrac(v)
	}
	return out, nil
}

// encode converts client values to the 16-bit link input. Lab values are
// scaled from their natural ranges unless raw is set.
func (s *ICCSpace) encode(cc []float64, raw bool) []uint16 {
	out := make([]uint16, s.n)
	for i := range out {
		v := cc[i]
		if s.isLab && !raw && i < len(s.ranges) {
			v = s.ranges[i].Rescale(s.ranges[i].Clamp(v))
		}
		out[i] = uint16(math.Round(UnitRange.Clamp(v) * 65535))
	}
	return out
}

// convert runs cc through the link and returns one value per device
// component; components the link does not produce are zero.
func (s *ICCSpace) convert(ctx context.Context, cc []float64, raw bool, st *State, dev device.Device) ([]uint16, *device.Profile, error) {
	if len(cc) < s.n {
		return nil, nil, fmt.Errorf("%w: %s needs %d components, got %d", ErrDomain, s.Name(), s.n, len(cc))
	}
	link, prof, err := st.link(ctx, s.profile, dev)
	if err != nil {
		return nil, nil, err
	}
	in := s.encode(cc, raw)
	res := make([]uint16, max(link.NumOutputs(), len(in)))
	if link.IsIdentity() {
		copy(res, in)
	} else if err := link.Apply16(in, res); err != nil {
		return nil, nil, fmt.Errorf("apply link: %w", err)
	}
	out := make([]uint16, prof.NumComponents)
	copy(out, res[:min(len(res), link.NumOutputs())])
	return out, prof, nil
}
