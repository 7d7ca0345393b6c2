package colorspace

import (
	"context"
	"fmt"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
)

// NamedColorReplacer substitutes spot colors listed in a CxF document. The
// recorded L*a*b* value goes straight to the device through a Lab profile,
// bypassing the requesting space.
type NamedColorReplacer struct {
	st     *State
	colors map[string][3]float64
	lab    *ICCSpace
}

// NewNamedColorReplacer indexes the CIELab objects of doc. Links are taken
// from st.
func NewNamedColorReplacer(doc *cmm.CxF, st *State) (*NamedColorReplacer, error) {
	data, err := cmm.NewLabProfile()
	if err != nil {
		return nil, fmt.Errorf("%w: Lab profile: %w", ErrProfileBuild, err)
	}
	prof, err := cmm.NewICCProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: Lab profile: %w", ErrProfileBuild, err)
	}
	prof.DefaultMatch = cmm.MatchLab
	lab, err := NewICCSpace(prof, nil)
	if err != nil {
		return nil, err
	}
	return &NamedColorReplacer{st: st, colors: doc.NamedColors(), lab: lab}, nil
}

// Len reports how many named colors are known.
func (r *NamedColorReplacer) Len() int { return len(r.colors) }

func (r *NamedColorReplacer) ReplaceColor(req device.ReplaceRequest, dev device.Device) (device.Color, bool, error) {
	if req.SpotName == "" {
		return device.Color{}, false, nil
	}
	lab, ok := r.colors[req.SpotName]
	if !ok {
		return device.Color{}, false, nil
	}
	c, err := r.lab.remapNoReplace(context.Background(), lab[:], r.st, dev)
	if err != nil {
		return device.Color{}, false, fmt.Errorf("named color %q: %w", req.SpotName, err)
	}
	return c, true, nil
}
