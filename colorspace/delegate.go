package colorspace

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wudi/pdfcolor/device"
	"github.com/wudi/pdfcolor/observability"
)

// iccCell holds the ICC equivalent of a CIE space. It is written at most
// once; readers never see a partly built space.
type iccCell struct {
	mu  sync.Mutex
	ptr atomic.Pointer[ICCSpace]
}

// Load returns the published space or nil.
func (c *iccCell) Load() *ICCSpace { return c.ptr.Load() }

func ensureICC(ctx context.Context, cs CIESpace, st *State) (*ICCSpace, error) {
	cell := cs.cell()
	if icc := cell.Load(); icc != nil {
		return icc, nil
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	if icc := cell.Load(); icc != nil {
		return icc, nil
	}

	ctx, span := st.tracer.StartSpan(ctx, observability.SpanProfileSynthesis)
	defer span.Finish()
	span.SetTag("space", cs.Name())

	prof, err := cs.synthesize(ctx, st)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("%w: %s: %w", ErrProfileBuild, cs.Name(), err)
	}
	prof.DefaultMatch = cs.defaultMatch()
	prof.DataSpace = cs.dataSpace()
	icc, err := NewICCSpace(prof, cs.Alternate())
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("%w: %s: %w", ErrProfileBuild, cs.Name(), err)
	}
	span.SetTag(observability.MetricProfileBytes, len(prof.Data()))
	st.log.Debug("ICC equivalent synthesized",
		observability.String("space", cs.Name()),
		observability.Int64("space_id", int64(cs.ID())),
		observability.Int("bytes", len(prof.Data())),
		observability.String("match", prof.DefaultMatch.String()))
	cell.ptr.Store(icc)
	return icc, nil
}

// delegateInput rescales cc onto the unit ranges of the ICC equivalent.
func delegateInput(cs CIESpace, cc []float64) ([]float64, error) {
	n := cs.NumComponents()
	if len(cc) < n {
		return nil, fmt.Errorf("%w: %s needs %d components, got %d", ErrDomain, cs.Name(), n, len(cc))
	}
	if IsUnitRange(cs.Ranges()) {
		return cc[:n], nil
	}
	return RescaleToUnit(cs.Ranges(), cc[:n]), nil
}

func remapDelegated(ctx context.Context, cs CIESpace, cc []float64, st *State, dev device.Device) (device.Color, error) {
	icc, err := cs.EnsureICCEquivalent(ctx, st)
	if err != nil {
		return device.Color{}, err
	}
	in, err := delegateInput(cs, cc)
	if err != nil {
		return device.Color{}, err
	}
	return icc.remap(ctx, remapRequest{
		in:      in,
		client:  cc[:cs.NumComponents()],
		name:    cs.Name(),
		id:      cs.ID(),
		replace: true,
	}, st, dev)
}

func concretizeDelegated(ctx context.Context, cs CIESpace, cc []float64, st *State, dev device.Device) ([]Frac, error) {
	icc, err := cs.EnsureICCEquivalent(ctx, st)
	if err != nil {
		return nil, err
	}
	in, err := delegateInput(cs, cc)
	if err != nil {
		return nil, err
	}
	return icc.concretize(ctx, in, false, st, dev)
}

func isLinearDelegated(ctx context.Context, cs CIESpace, st *State, dev device.Device, corners [][]float64, smoothness float64) (bool, error) {
	icc, err := cs.EnsureICCEquivalent(ctx, st)
	if err != nil {
		return false, err
	}
	scaled := make([][]float64, len(corners))
	for i, c := range corners {
		if scaled[i], err = delegateInput(cs, c); err != nil {
			return false, err
		}
	}
	return icc.IsLinear(ctx, st, dev, scaled, smoothness)
}
