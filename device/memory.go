package device

import (
	"errors"

	"github.com/wudi/pdfcolor/cmm"
)

// MemoryDevice is an in-memory contone device with one default profile and
// optional per-tag profiles. Pure colors pack the top 8 bits of each
// colorant, first colorant in the most significant byte.
type MemoryDevice struct {
	Default  *Profile
	Tagged   map[uint8]*Profile
	Tag      uint8
	Halftone bool
	// NotSeparable clears SeparableAndLinear in ColorInfo.
	NotSeparable bool
	DeviceN      bool
	Custom       bool
	Replace      Replacer
}

// NewMemoryDevice returns a contone device for the given output profile.
func NewMemoryDevice(icc *cmm.ICCProfile) *MemoryDevice {
	return &MemoryDevice{Default: NewProfile(icc)}
}

func (d *MemoryDevice) OutputProfile(tag uint8) (*Profile, error) {
	if p, ok := d.Tagged[tag]; ok {
		return p, nil
	}
	if d.Default == nil {
		return nil, errors.New("device has no output profile")
	}
	return d.Default, nil
}

func (d *MemoryDevice) GraphicsTypeTag() uint8 { return d.Tag }

func (d *MemoryDevice) ColorInfo() ColorInfo {
	info := ColorInfo{SeparableAndLinear: !d.NotSeparable}
	if d.Default != nil {
		info.NumComponents = d.Default.NumComponents
		switch d.Default.DataSpace {
		case cmm.DataCMYK, cmm.DataNChannel:
			info.Polarity = PolaritySubtractive
		default:
			info.Polarity = PolarityAdditive
		}
	}
	return info
}

func (d *MemoryDevice) UsesCustomColorMapping() bool { return d.Custom }
func (d *MemoryDevice) SupportsDeviceN() bool        { return d.DeviceN }
func (d *MemoryDevice) MustHalftone() bool           { return d.Halftone }
func (d *MemoryDevice) Replacer() Replacer           { return d.Replace }

func (d *MemoryDevice) EncodeColor(comps []uint16) (Index, bool) {
	if d.Halftone || len(comps) > 8 {
		return 0, false
	}
	var idx Index
	for _, c := range comps {
		idx = idx<<8 | Index(c>>8)
	}
	return idx, true
}

// Decode unpacks a pure color produced by EncodeColor into 8-bit values.
func (d *MemoryDevice) Decode(idx Index, n int) []uint8 {
	out := make([]uint8, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = uint8(idx)
		idx >>= 8
	}
	return out
}
