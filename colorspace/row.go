package colorspace

import (
	"context"
	"fmt"
	"math"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
	"github.com/wudi/pdfcolor/observability"
	"github.com/wudi/pdfcolor/recovery"
)

// RowBuffer is a block of decoded image rows and the buffer that receives
// the device samples. Samples are 8 or 16 bits per component.
type RowBuffer struct {
	InDesc  cmm.BufferDesc
	In      []byte
	OutDesc cmm.BufferDesc
	Out     []byte
	// Decode maps the full sample range of each channel onto component
	// values. Nil means the samples span the space's own ranges.
	Decode []Range
}

// iccOf returns the ICC space that converts colors of s.
func iccOf(ctx context.Context, s Space, st *State) (*ICCSpace, error) {
	switch v := s.(type) {
	case *ICCSpace:
		return v, nil
	case CIESpace:
		return v.EnsureICCEquivalent(ctx, st)
	}
	return nil, fmt.Errorf("%w: %s has no ICC representation", ErrDomain, s.Name())
}

// TransformRow converts every row of rb through the link for s. A row the
// link rejects is handed to the state's recovery strategy, which may ask for
// a per-pixel retry. Devices with custom color mapping are always served
// one pixel at a time through Concretize.
func TransformRow(ctx context.Context, s Space, st *State, dev device.Device, rb RowBuffer) error {
	n := s.NumComponents()
	if rb.InDesc.NumChannels != n {
		return fmt.Errorf("%w: row has %d channels, %s has %d", ErrDomain, rb.InDesc.NumChannels, s.Name(), n)
	}
	if rb.InDesc.PixelsPerRow != rb.OutDesc.PixelsPerRow || rb.InDesc.NumRows != rb.OutDesc.NumRows {
		return fmt.Errorf("%w: input and output rows differ in size", ErrDomain)
	}
	if err := rb.InDesc.Validate(len(rb.In)); err != nil {
		return fmt.Errorf("%w: input: %w", ErrDomain, err)
	}
	if err := rb.OutDesc.Validate(len(rb.Out)); err != nil {
		return fmt.Errorf("%w: output: %w", ErrDomain, err)
	}
	if rb.Decode != nil && len(rb.Decode) != n {
		return fmt.Errorf("%w: %d decode ranges for %d channels", ErrDomain, len(rb.Decode), n)
	}

	if dev.UsesCustomColorMapping() {
		return transformCustom(ctx, s, st, dev, rb)
	}
	icc, err := iccOf(ctx, s, st)
	if err != nil {
		return err
	}
	link, _, err := st.link(ctx, icc.profile, dev)
	if err != nil {
		return err
	}
	if rb.OutDesc.NumChannels != link.NumOutputs() {
		return fmt.Errorf("%w: output has %d channels, link produces %d", ErrDomain, rb.OutDesc.NumChannels, link.NumOutputs())
	}

	fallbacks := 0
	for row := 0; row < rb.InDesc.NumRows; row++ {
		inDesc, in := rowInput(s, rb, row)
		outDesc := rb.OutDesc
		outDesc.NumRows, outDesc.RowStride = 1, 0
		out := rb.Out[row*rb.OutDesc.Stride():]

		if link.IsIdentity() {
			copyRow(inDesc, in, outDesc, out)
			continue
		}
		err := link.ApplyBuffer(inDesc, in, outDesc, out)
		if err == nil {
			continue
		}
		loc := recovery.Location{Row: row, Column: -1, Space: s.Name(), Component: "row"}
		switch st.cfg.Recovery.OnError(ctx, err, loc) {
		case recovery.ActionFallback:
			fallbacks++
			if err := perPixel(ctx, st, link, s.Name(), row, inDesc, in, outDesc, out); err != nil {
				return err
			}
		case recovery.ActionSkip:
		default:
			return fmt.Errorf("row %d: %w", row, err)
		}
	}
	if fallbacks > 0 {
		st.log.Warn("row transform fell back to per-pixel conversion",
			observability.String("space", s.Name()),
			observability.Int(observability.MetricRowFallbacks, fallbacks))
	}
	return nil
}

// rowInput returns one row as a single-row buffer, rescaled to 16 bits when
// the decode ranges differ from the space's ranges.
func rowInput(s Space, rb RowBuffer, row int) (cmm.BufferDesc, []byte) {
	desc := rb.InDesc
	desc.NumRows, desc.RowStride = 1, 0
	in := rb.In[row*rb.InDesc.Stride():]
	if rb.Decode == nil || rangesEqual(rb.Decode, s.Ranges()) {
		return desc, in
	}
	scaled := desc
	scaled.BytesPerComponent = 2
	buf := make([]byte, scaled.Stride())
	px := make([]uint16, desc.NumChannels)
	ranges := s.Ranges()
	for col := 0; col < desc.PixelsPerRow; col++ {
		desc.ReadPixel(in, 0, col, px)
		for c, v := range px {
			val := rb.Decode[c].Scale(float64(v) / 65535)
			px[c] = uint16(math.Round(UnitRange.Clamp(ranges[c].Rescale(val)) * 65535))
		}
		scaled.WritePixel(buf, 0, col, px)
	}
	return scaled, buf
}

func rangesEqual(a, b []Range) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyRow(inDesc cmm.BufferDesc, in []byte, outDesc cmm.BufferDesc, out []byte) {
	px := make([]uint16, max(inDesc.NumChannels, outDesc.NumChannels))
	for col := 0; col < inDesc.PixelsPerRow; col++ {
		inDesc.ReadPixel(in, 0, col, px)
		outDesc.WritePixel(out, 0, col, px)
	}
}

func perPixel(ctx context.Context, st *State, link cmm.Link, space string, row int,
	inDesc cmm.BufferDesc, in []byte, outDesc cmm.BufferDesc, out []byte) error {
	src := make([]uint16, inDesc.NumChannels)
	dst := make([]uint16, max(outDesc.NumChannels, inDesc.NumChannels))
	for col := 0; col < inDesc.PixelsPerRow; col++ {
		inDesc.ReadPixel(in, 0, col, src)
		if err := link.Apply16(src, dst); err != nil {
			loc := recovery.Location{Row: row, Column: col, Space: space, Component: "pixel"}
			if st.cfg.Recovery.OnError(ctx, err, loc) == recovery.ActionFail {
				return fmt.Errorf("row %d pixel %d: %w", row, col, err)
			}
			continue
		}
		outDesc.WritePixel(out, 0, col, dst)
	}
	return nil
}

// transformCustom converts pixel by pixel through Concretize so the device
// sees every color.
func transformCustom(ctx context.Context, s Space, st *State, dev device.Device, rb RowBuffer) error {
	ranges := s.Ranges()
	decode := rb.Decode
	if decode == nil {
		decode = ranges
	}
	px := make([]uint16, rb.InDesc.NumChannels)
	cc := make([]float64, rb.InDesc.NumChannels)
	outPx := make([]uint16, rb.OutDesc.NumChannels)
	for row := 0; row < rb.InDesc.NumRows; row++ {
		for col := 0; col < rb.InDesc.PixelsPerRow; col++ {
			rb.InDesc.ReadPixel(rb.In, row, col, px)
			for c, v := range px {
				cc[c] = decode[c].Scale(float64(v) / 65535)
			}
			fr, err := s.Concretize(ctx, cc, st, dev)
			if err != nil {
				return fmt.Errorf("row %d pixel %d: %w", row, col, err)
			}
			clear(outPx)
			for i := 0; i < len(outPx) && i < len(fr); i++ {
				outPx[i] = FracToUshort(fr[i])
			}
			rb.OutDesc.WritePixel(rb.Out, row, col, outPx)
		}
	}
	return nil
}
