package cmm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/gg/cache"
	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfcolor/observability"
)

// Shifts used to fold the rendering params into the link hash.
const (
	bpShift       = 0
	rendShift     = 8
	preserveShift = 16
	cmmShift      = 24
)

// hashBytes folds the first 128 bits of a BLAKE2b-256 digest into 64 bits.
func hashBytes(data []byte) int64 {
	sum := blake2b.Sum256(data)
	lo := binary.LittleEndian.Uint64(sum[0:8])
	hi := binary.LittleEndian.Uint64(sum[8:16])
	return int64(lo ^ hi)
}

// ProfileHash returns the 64-bit content hash of a profile.
func ProfileHash(p Profile) int64 {
	if icc, ok := p.(*ICCProfile); ok {
		return icc.Hash()
	}
	return hashBytes(p.Data())
}

// LinkHash combines the source and destination hashes with the parts of the
// rendering params that change the built link.
func LinkHash(srcHash, dstHash int64, params RenderingParams) uint64 {
	rend := int64(params.BlackPointCompensation)<<bpShift +
		int64(params.Intent)<<rendShift +
		int64(params.PreserveBlack)<<preserveShift +
		int64(params.CMM)<<cmmShift
	return uint64((dstHash >> 1) ^ rend ^ srcHash)
}

// DeviceRenderCond carries the rendering choices recorded on a device
// output profile.
type DeviceRenderCond struct {
	Intent        RenderingIntent
	BPC           BlackPointComp
	PreserveBlack PreserveBlack
}

// Resolve lets the device conditions override the request unless the request
// carries the matching override bit, then strips the override bits.
func (p RenderingParams) Resolve(dev DeviceRenderCond) RenderingParams {
	out := p
	if p.Intent < 0 || p.Intent&IntentOverride == 0 {
		if dev.Intent != IntentNotSpecified {
			out.Intent = dev.Intent
		}
	}
	if p.BlackPointCompensation < 0 || p.BlackPointCompensation&BPCOverride == 0 {
		if dev.BPC != BPCNotSpecified {
			out.BlackPointCompensation = dev.BPC
		}
	}
	if p.PreserveBlack < 0 || p.PreserveBlack&PreserveBlackOverride == 0 {
		if dev.PreserveBlack != PreserveBlackNotSpecified {
			out.PreserveBlack = dev.PreserveBlack
		}
	}
	out.Intent = RenderingIntent(maskParam(int(out.Intent), int(IntentPerceptual)))
	out.BlackPointCompensation = BlackPointComp(maskParam(int(out.BlackPointCompensation), int(BPCOff)))
	out.PreserveBlack = PreserveBlack(maskParam(int(out.PreserveBlack), int(PreserveBlackOff)))
	return out
}

// maskParam strips the override bit; unspecified values become def.
func maskParam(v, def int) int {
	if v < 0 {
		return def
	}
	return v & 0x0f
}

type linkEntry struct {
	link Link
	err  error
}

// LinkCache memoizes links by LinkHash. It is safe for concurrent use; a
// given key is built once while the others wait.
type LinkCache struct {
	builder LinkBuilder
	links   *cache.ShardedCache[uint64, linkEntry]
	log     observability.Logger
	tracer  observability.Tracer
}

// NewLinkCache creates a cache holding up to capacity links per shard. A nil
// builder uses the default factory.
func NewLinkCache(builder LinkBuilder, capacity int, log observability.Logger, tracer observability.Tracer) *LinkCache {
	if builder == nil {
		builder = NewFactory()
	}
	if log == nil {
		log = observability.NopLogger{}
	}
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &LinkCache{
		builder: builder,
		links:   cache.NewSharded[uint64, linkEntry](capacity, cache.Uint64Hasher),
		log:     log,
		tracer:  tracer,
	}
}

// Get returns the link from src to dst for already resolved params.
// Identical profiles yield an identity link without consulting the builder.
func (c *LinkCache) Get(ctx context.Context, src, dst Profile, params RenderingParams) (Link, error) {
	if src == nil || dst == nil {
		return nil, errors.New("link requires source and destination profiles")
	}
	srcHash, dstHash := ProfileHash(src), ProfileHash(dst)
	key := LinkHash(srcHash, dstHash, params)

	var built Link
	entry := c.links.GetOrCreate(key, func() linkEntry {
		if srcHash == dstHash {
			return linkEntry{link: NewIdentityLink(profileComponents(src))}
		}
		_, span := c.tracer.StartSpan(ctx, observability.SpanLinkBuild)
		defer span.Finish()
		span.SetTag("intent", params.Intent.String())

		link, err := c.builder.BuildLink(src, dst, params)
		if err != nil {
			span.SetError(err)
			return linkEntry{err: err}
		}
		built = link
		return linkEntry{link: link}
	})
	if built != nil {
		// Stats takes the shard locks, so it is read after GetOrCreate.
		st := c.links.Stats()
		c.log.Debug("link built",
			observability.String("src", src.Name()),
			observability.String("dst", dst.Name()),
			observability.String("intent", params.Intent.String()),
			observability.Bool("identity", built.IsIdentity()),
			observability.Int64(observability.MetricLinkCacheHits, int64(st.Hits)),
			observability.Int64(observability.MetricLinkCacheMisses, int64(st.Misses)),
			observability.Float("hit_rate", float64(st.Hits)/float64(st.Hits+st.Misses)))
	}
	if entry.err != nil {
		// Failed builds are not cached.
		c.links.Delete(key)
		return nil, fmt.Errorf("build link %q -> %q: %w", src.Name(), dst.Name(), entry.err)
	}
	return entry.link, nil
}

// Len reports the number of cached links.
func (c *LinkCache) Len() int { return c.links.Len() }

// Stats returns hit and miss counters.
func (c *LinkCache) Stats() (hits, misses uint64) {
	s := c.links.Stats()
	return s.Hits, s.Misses
}

// Clear drops every cached link.
func (c *LinkCache) Clear() { c.links.Clear() }
