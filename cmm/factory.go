package cmm

import (
	"bytes"
	"errors"
	"fmt"
)

type factoryImpl struct{}

// NewFactory returns the default CMM factory.
func NewFactory() Factory {
	return &factoryImpl{}
}

func (f *factoryImpl) NewProfile(data []byte) (Profile, error) {
	return NewICCProfile(data)
}

func (f *factoryImpl) NewTransform(src, dst Profile, intent RenderingIntent) (Transform, error) {
	if src == nil || dst == nil {
		return nil, errors.New("source and destination profiles required")
	}
	if bytes.Equal(src.Data(), dst.Data()) {
		return &identityTransform{}, nil
	}
	if srcICC, ok := src.(*ICCProfile); ok {
		if dstICC, ok := dst.(*ICCProfile); ok {
			if t, err := newICCTransform(srcICC, dstICC, intent); err == nil {
				return t, nil
			}
		}
	}
	return &unmanagedTransform{src: src.ColorSpace(), dst: dst.ColorSpace()}, nil
}

// BuildLink builds a link honoring the CMM selection in params. The default
// CMM requires both profiles to be ICC profiles.
func (f *factoryImpl) BuildLink(src, dst Profile, params RenderingParams) (Link, error) {
	if src == nil || dst == nil {
		return nil, errors.New("source and destination profiles required")
	}
	nin := profileComponents(src)
	nout := profileComponents(dst)
	if nin == 0 || nout == 0 {
		return nil, fmt.Errorf("profile %q has no usable color space", src.Name())
	}

	switch params.CMM {
	case CMMNone:
		if nin == nout {
			return NewIdentityLink(nin), nil
		}
		return NewTransformLink(&unmanagedTransform{src: src.ColorSpace(), dst: dst.ColorSpace()}, nin, nout), nil
	case CMMReplace:
		return nil, errors.New("replacement CMM is not registered")
	}

	if bytes.Equal(src.Data(), dst.Data()) {
		return NewIdentityLink(nin), nil
	}
	srcICC, ok := src.(*ICCProfile)
	if !ok {
		return nil, fmt.Errorf("profile %q is not an ICC profile", src.Name())
	}
	dstICC, ok := dst.(*ICCProfile)
	if !ok {
		return nil, fmt.Errorf("profile %q is not an ICC profile", dst.Name())
	}
	t, err := newICCTransform(srcICC, dstICC, params.Intent)
	if err != nil {
		return nil, err
	}
	return NewTransformLink(t, nin, nout), nil
}

func profileComponents(p Profile) int {
	if icc, ok := p.(*ICCProfile); ok {
		return icc.NumComponents()
	}
	return numChannels(p.ColorSpace())
}

type identityTransform struct{}

func (t *identityTransform) Convert(src []float64) ([]float64, error) {
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst, nil
}
