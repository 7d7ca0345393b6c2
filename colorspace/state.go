package colorspace

import (
	"context"
	"fmt"
	"sync"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
	"github.com/wudi/pdfcolor/observability"
	"github.com/wudi/pdfcolor/recovery"
)

// Config holds rendering state options. The zero value is usable.
type Config struct {
	Logger observability.Logger
	Tracer observability.Tracer
	// LinkBuilder builds CMM links; nil uses cmm.NewFactory.
	LinkBuilder cmm.LinkBuilder
	// LinkCacheCapacity is the number of links kept per cache shard.
	LinkCacheCapacity int

	Intent                 cmm.RenderingIntent
	BlackPointCompensation cmm.BlackPointComp
	PreserveBlack          cmm.PreserveBlack
	CMM                    cmm.Selector
	// OverrideICC makes the requested intent, black point compensation and
	// black preservation win over the device profile's choices.
	OverrideICC bool

	// Recovery decides how TransformRow reacts to a failing link. The
	// default fails.
	Recovery recovery.Strategy
	// Replacer is consulted before color management when the device does
	// not install its own.
	Replacer device.Replacer
}

const defaultLinkCacheCapacity = 64

// State is the rendering state shared by every color space: the CRD, the
// joint cache bound to the last CIE space rendered, and the link cache. It
// is safe for concurrent use.
type State struct {
	cfg    Config
	log    observability.Logger
	tracer observability.Tracer
	links  *cmm.LinkCache

	mu       sync.Mutex
	crd      *CRD
	cieToXYZ bool
	joint    *JointCache
}

// NewState fills in defaults for unset Config fields.
func NewState(cfg Config) *State {
	if cfg.Logger == nil {
		cfg.Logger = observability.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NopTracer()
	}
	if cfg.LinkCacheCapacity <= 0 {
		cfg.LinkCacheCapacity = defaultLinkCacheCapacity
	}
	if cfg.Recovery == nil {
		cfg.Recovery = recovery.NewStrictStrategy()
	}
	return &State{
		cfg:    cfg,
		log:    cfg.Logger,
		tracer: cfg.Tracer,
		links:  cmm.NewLinkCache(cfg.LinkBuilder, cfg.LinkCacheCapacity, cfg.Logger, cfg.Tracer),
		joint:  &JointCache{},
	}
}

// xyzState returns a state that shares the link cache but renders CIE
// colors to XYZ. Profile synthesis samples spaces through it.
func (st *State) xyzState() *State {
	return &State{
		cfg:      st.cfg,
		log:      st.log,
		tracer:   st.tracer,
		links:    st.links,
		cieToXYZ: true,
		joint:    &JointCache{},
	}
}

// SetCRD installs a color rendering dictionary and invalidates the joint
// cache. A nil crd removes native rendering.
func (st *State) SetCRD(crd *CRD) error {
	if crd != nil {
		if err := crd.prepare(); err != nil {
			return err
		}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.crd = crd
	st.joint = &JointCache{}
	if crd != nil {
		st.joint.Status = JointBuilt
	}
	return nil
}

// SetCIEToXYZ makes the native pipeline stop at XYZ when no CRD is set.
func (st *State) SetCIEToXYZ(on bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cieToXYZ = on
	st.joint = &JointCache{}
}

// JointCache returns the current joint cache.
func (st *State) JointCache() *JointCache {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.joint
}

// Links exposes the link cache.
func (st *State) Links() *cmm.LinkCache { return st.links }

// CheckRendering makes sure the joint cache is completed for cs. It returns
// StatusNoop when neither a CRD nor XYZ output is set up; the caller then
// renders black.
func (st *State) CheckRendering(ctx context.Context, cs CIESpace) (*JointCache, Status, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.crd == nil && !st.cieToXYZ {
		return nil, StatusNoop, nil
	}
	if st.joint.Status == JointCompleted && st.joint.ColorSpaceID != cs.ID() {
		st.joint = &JointCache{Status: JointBuilt}
	}
	if st.joint.Status != JointCompleted {
		_, span := st.tracer.StartSpan(ctx, observability.SpanJointCache)
		jc, err := completeJointCache(cs, st.crd)
		if err != nil {
			span.SetError(err)
			span.Finish()
			return nil, StatusDone, err
		}
		span.Finish()
		st.joint = jc
		st.log.Debug("joint cache completed",
			observability.String("space", cs.Name()),
			observability.Int64("space_id", int64(cs.ID())),
			observability.Bool("skip_pqr", jc.SkipPQR))
	}
	return st.joint, StatusDone, nil
}

// renderingParams is the request side of a link: the configured choices,
// with override bits when OverrideICC is set.
func (st *State) renderingParams(tag uint8) cmm.RenderingParams {
	p := cmm.RenderingParams{
		BlackPointCompensation: st.cfg.BlackPointCompensation,
		Intent:                 st.cfg.Intent,
		PreserveBlack:          st.cfg.PreserveBlack,
		CMM:                    st.cfg.CMM,
		GraphicsTypeTag:        tag,
		OverrideICC:            st.cfg.OverrideICC,
	}
	if st.cfg.OverrideICC {
		p.Intent |= cmm.IntentOverride
		p.BlackPointCompensation |= cmm.BPCOverride
		p.PreserveBlack |= cmm.PreserveBlackOverride
	}
	return p
}

// link returns the link from src to the device's output profile for the
// device's current graphics type.
func (st *State) link(ctx context.Context, src cmm.Profile, dev device.Device) (cmm.Link, *device.Profile, error) {
	tag := dev.GraphicsTypeTag()
	prof, err := dev.OutputProfile(tag)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: output profile for tag %d: %w", ErrMissingResource, tag, err)
	}
	if prof == nil || prof.ICC == nil {
		return nil, nil, fmt.Errorf("%w: device has no output profile for tag %d", ErrMissingResource, tag)
	}
	params := st.renderingParams(tag).Resolve(prof.RenderCond())
	l, err := st.links.Get(ctx, src, prof.ICC, params)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	return l, prof, nil
}

func (st *State) replacer(dev device.Device) device.Replacer {
	if r := dev.Replacer(); r != nil {
		return r
	}
	return st.cfg.Replacer
}
