package cmm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Link is a built transform between two profiles for a fixed set of
// rendering params. Links are safe for concurrent use.
type Link interface {
	IsIdentity() bool
	NumInputs() int
	NumOutputs() int
	// Apply16 converts one pixel of 16-bit samples.
	Apply16(in, out []uint16) error
	// ApplyBuffer converts a buffer of interleaved rows.
	ApplyBuffer(inDesc BufferDesc, in []byte, outDesc BufferDesc, out []byte) error
}

// BufferDesc describes an interleaved row buffer. 16-bit samples are stored
// big-endian.
type BufferDesc struct {
	NumChannels       int
	BytesPerComponent int
	PixelsPerRow      int
	NumRows           int
	// RowStride is the distance in bytes between row starts; zero means
	// tightly packed.
	RowStride int
}

// Stride returns the effective row stride.
func (d BufferDesc) Stride() int {
	if d.RowStride > 0 {
		return d.RowStride
	}
	return d.NumChannels * d.BytesPerComponent * d.PixelsPerRow
}

// Validate checks the descriptor against a buffer length.
func (d BufferDesc) Validate(n int) error {
	if d.BytesPerComponent != 1 && d.BytesPerComponent != 2 {
		return fmt.Errorf("unsupported sample width %d", d.BytesPerComponent)
	}
	if d.NumRows == 0 {
		return nil
	}
	need := (d.NumRows-1)*d.Stride() + d.NumChannels*d.BytesPerComponent*d.PixelsPerRow
	if n < need {
		return fmt.Errorf("buffer holds %d bytes, need %d", n, need)
	}
	return nil
}

// ReadPixel decodes one pixel into 16-bit samples.
func (d BufferDesc) ReadPixel(buf []byte, row, col int, dst []uint16) {
	off := row*d.Stride() + col*d.NumChannels*d.BytesPerComponent
	for c := 0; c < d.NumChannels; c++ {
		if d.BytesPerComponent == 1 {
			v := uint16(buf[off+c])
			dst[c] = v<<8 | v
		} else {
			dst[c] = binary.BigEndian.Uint16(buf[off+2*c:])
		}
	}
}

// WritePixel encodes one pixel of 16-bit samples.
func (d BufferDesc) WritePixel(buf []byte, row, col int, src []uint16) {
	off := row*d.Stride() + col*d.NumChannels*d.BytesPerComponent
	for c := 0; c < d.NumChannels; c++ {
		if d.BytesPerComponent == 1 {
			buf[off+c] = uint8((uint32(src[c])*255 + 32767) / 65535)
		} else {
			binary.BigEndian.PutUint16(buf[off+2*c:], src[c])
		}
	}
}

var errChannelMismatch = errors.New("link channel count mismatch")

// transformLink adapts a float Transform to the Link interface.
type transformLink struct {
	t    Transform
	nin  int
	nout int
}

// NewTransformLink wraps a Transform as a Link with the given channel counts.
func NewTransformLink(t Transform, nin, nout int) Link {
	return &transformLink{t: t, nin: nin, nout: nout}
}

func (l *transformLink) IsIdentity() bool { return false }
func (l *transformLink) NumInputs() int   { return l.nin }
func (l *transformLink) NumOutputs() int  { return l.nout }

func (l *transformLink) Apply16(in, out []uint16) error {
	if len(in) < l.nin || len(out) < l.nout {
		return errChannelMismatch
	}
	f := make([]float64, l.nin)
	for i := range f {
		f[i] = float64(in[i]) / 65535
	}
	res, err := l.t.Convert(f)
	if err != nil {
		return err
	}
	if len(res) < l.nout {
		return errChannelMismatch
	}
	for i := 0; i < l.nout; i++ {
		out[i] = floatToUshort(res[i])
	}
	return nil
}

func (l *transformLink) ApplyBuffer(inDesc BufferDesc, in []byte, outDesc BufferDesc, out []byte) error {
	return applyBufferPerPixel(l, inDesc, in, outDesc, out)
}

func applyBufferPerPixel(l Link, inDesc BufferDesc, in []byte, outDesc BufferDesc, out []byte) error {
	if inDesc.NumChannels != l.NumInputs() || outDesc.NumChannels != l.NumOutputs() {
		return errChannelMismatch
	}
	if inDesc.PixelsPerRow != outDesc.PixelsPerRow || inDesc.NumRows != outDesc.NumRows {
		return errors.New("buffer geometry mismatch")
	}
	if err := inDesc.Validate(len(in)); err != nil {
		return fmt.Errorf("input buffer: %w", err)
	}
	if err := outDesc.Validate(len(out)); err != nil {
		return fmt.Errorf("output buffer: %w", err)
	}
	src := make([]uint16, inDesc.NumChannels)
	dst := make([]uint16, outDesc.NumChannels)
	for row := 0; row < inDesc.NumRows; row++ {
		for col := 0; col < inDesc.PixelsPerRow; col++ {
			inDesc.ReadPixel(in, row, col, src)
			if err := l.Apply16(src, dst); err != nil {
				return fmt.Errorf("row %d pixel %d: %w", row, col, err)
			}
			outDesc.WritePixel(out, row, col, dst)
		}
	}
	return nil
}

// identityLink copies samples. It is returned when source and destination
// hash equal.
type identityLink struct {
	n int
}

// NewIdentityLink returns a Link that copies n channels through.
func NewIdentityLink(n int) Link { return identityLink{n: n} }

func (l identityLink) IsIdentity() bool { return true }
func (l identityLink) NumInputs() int   { return l.n }
func (l identityLink) NumOutputs() int  { return l.n }

func (l identityLink) Apply16(in, out []uint16) error {
	if len(in) < l.n || len(out) < l.n {
		return errChannelMismatch
	}
	copy(out[:l.n], in[:l.n])
	return nil
}

func (l identityLink) ApplyBuffer(inDesc BufferDesc, in []byte, outDesc BufferDesc, out []byte) error {
	return applyBufferPerPixel(l, inDesc, in, outDesc, out)
}

func floatToUshort(v float64) uint16 {
	return uint16(math.Round(clamp01(v) * 65535))
}
