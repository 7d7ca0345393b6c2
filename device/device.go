// Package device describes the output side of color conversion: the device
// profile, the encoded device color and the hooks a device may install.
package device

import (
	"github.com/wudi/pdfcolor/cmm"
)

// Polarity tells whether colorants add light or absorb it.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	PolarityAdditive
	PolaritySubtractive
)

func (p Polarity) String() string {
	switch p {
	case PolarityAdditive:
		return "additive"
	case PolaritySubtractive:
		return "subtractive"
	}
	return "unknown"
}

// ColorInfo is the static color model of a device.
type ColorInfo struct {
	NumComponents int
	Polarity      Polarity
	// SeparableAndLinear is required for the linearity sampler; it means
	// each colorant can be encoded independently and encodings add.
	SeparableAndLinear bool
}

// Profile is an output profile together with the rendering conditions the
// device wants applied to it.
type Profile struct {
	ICC           cmm.Profile
	NumComponents int
	DataSpace     cmm.DataColorSpace
	SpotNames     []string
	Intent        cmm.RenderingIntent
	BPC           cmm.BlackPointComp
	PreserveBlack cmm.PreserveBlack
}

// NewProfile wraps an ICC profile with unspecified rendering conditions.
func NewProfile(icc *cmm.ICCProfile) *Profile {
	return &Profile{
		ICC:           icc,
		NumComponents: icc.NumComponents(),
		DataSpace:     icc.DataSpace,
		Intent:        cmm.IntentNotSpecified,
		BPC:           cmm.BPCNotSpecified,
		PreserveBlack: cmm.PreserveBlackNotSpecified,
	}
}

// RenderCond returns the overrides recorded on the profile.
func (p *Profile) RenderCond() cmm.DeviceRenderCond {
	return cmm.DeviceRenderCond{Intent: p.Intent, BPC: p.BPC, PreserveBlack: p.PreserveBlack}
}

// Index is an encoded pure device color.
type Index uint64

// Kind selects the populated form of a Color.
type Kind int

const (
	KindNone Kind = iota
	KindPure
	KindDeviceN
)

// Color is the result of remapping a client color.
type Color struct {
	Kind Kind
	Pure Index
	// Components holds one 16-bit value per device colorant in DeviceN form.
	Components []uint16

	// Client is the unscaled input color, kept for later re-rendering.
	Client      []float64
	ClientValid bool
	SpaceID     uint64
}

// SaveClient records the client color that produced c.
func (c *Color) SaveClient(client []float64, spaceID uint64) {
	c.Client = append(c.Client[:0], client...)
	c.ClientValid = true
	c.SpaceID = spaceID
}

// ReplaceRequest describes a color offered to a Replacer before color
// management runs.
type ReplaceRequest struct {
	Client    []float64
	SpaceName string
	// SpotName is set for named (separation) colors.
	SpotName string
	SpaceID  uint64
}

// Replacer may substitute a device color for a client color. Returning
// false leaves the color to normal color management.
type Replacer interface {
	ReplaceColor(req ReplaceRequest, dev Device) (Color, bool, error)
}

// Device is the output device as seen by color conversion.
type Device interface {
	// OutputProfile returns the profile for a graphics type tag.
	OutputProfile(tag uint8) (*Profile, error)
	GraphicsTypeTag() uint8
	ColorInfo() ColorInfo
	UsesCustomColorMapping() bool
	SupportsDeviceN() bool
	MustHalftone() bool
	// EncodeColor packs 16-bit colorant values into a pure color. The bool
	// is false when the device cannot represent the color exactly.
	EncodeColor(comps []uint16) (Index, bool)
	Replacer() Replacer
}

// Remap turns concrete 16-bit colorant values into a device color. Gray,
// RGB and CMYK devices get a pure color when it encodes; anything else goes
// to DeviceN form.
func Remap(dev Device, prof *Profile, comps []uint16) Color {
	switch prof.NumComponents {
	case 1, 3, 4:
		if idx, ok := dev.EncodeColor(comps); ok {
			return Color{Kind: KindPure, Pure: idx}
		}
	}
	out := make([]uint16, len(comps))
	copy(out, comps)
	return Color{Kind: KindDeviceN, Components: out}
}
