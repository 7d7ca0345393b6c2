package cmm

import (
	"encoding/binary"
	"errors"
	"sync"
)

// ICCProfile implements Profile for ICC data.
type ICCProfile struct {
	data []byte

	// DefaultMatch and DataSpace are not part of the blob; they are recorded
	// by whoever produced the profile.
	DefaultMatch DefaultMatch
	DataSpace    DataColorSpace
	// IsLab marks an ABC-derived profile whose input is CIELAB encoded.
	IsLab bool

	hashOnce sync.Once
	hash     int64

	nameOnce sync.Once
	name     string
}

var errInvalidProfile = errors.New("invalid ICC profile data")

// NewICCProfile creates a new ICCProfile from bytes.
func NewICCProfile(data []byte) (*ICCProfile, error) {
	if len(data) < 128 {
		return nil, errInvalidProfile
	}
	p := &ICCProfile{data: data}
	p.DataSpace = DataColorSpaceFromSignature(p.ColorSpace())
	return p, nil
}

func (p *ICCProfile) Name() string {
	p.nameOnce.Do(func() {
		p.name = "ICC Profile"
		if s, err := p.ReadTextTag("desc"); err == nil && s != "" {
			p.name = s
		}
	})
	return p.name
}

func (p *ICCProfile) ColorSpace() string {
	if len(p.data) > 20 {
		return string(p.data[16:20])
	}
	return ""
}

func (p *ICCProfile) Class() string {
	if len(p.data) > 16 {
		return string(p.data[12:16])
	}
	return ""
}

// PCS returns the profile connection space signature ("XYZ " or "Lab ").
func (p *ICCProfile) PCS() string {
	if len(p.data) > 24 {
		return string(p.data[20:24])
	}
	return ""
}

// Version returns the major and minor version bytes from the header.
func (p *ICCProfile) Version() (major, minor byte) {
	return p.data[8], p.data[9] >> 4
}

// RenderingIntent returns the header rendering intent.
func (p *ICCProfile) RenderingIntent() RenderingIntent {
	return RenderingIntent(binary.BigEndian.Uint32(p.data[64:68]) & 0xffff)
}

// NumComponents returns the channel count of the data color space.
func (p *ICCProfile) NumComponents() int {
	return numChannels(p.ColorSpace())
}

func (p *ICCProfile) Data() []byte {
	return p.data
}

// Hash returns the cached 64-bit hash of the profile bytes.
func (p *ICCProfile) Hash() int64 {
	p.hashOnce.Do(func() {
		p.hash = hashBytes(p.data)
	})
	return p.hash
}
