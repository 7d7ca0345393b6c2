package colorspace

const (
	// CacheSize is the number of samples in every lookup cache.
	CacheSize = 512
	// InterpolateBits is the fraction carried by interpolating indexes.
	InterpolateBits = 4
)

// Proc is a PostScript-style decode or encode procedure. A nil Proc is the
// identity.
type Proc func(float64) float64

func (p Proc) eval(x float64) float64 {
	if p == nil {
		return x
	}
	return p(x)
}

func allNil(procs []Proc) bool {
	for _, p := range procs {
		if p != nil {
			return false
		}
	}
	return true
}

// CacheParams maps an input value onto a cache index: Base goes to index 0,
// Limit to the last index.
type CacheParams struct {
	Base, Limit, Factor CachedValue
}

func newCacheParams(r Range) CacheParams {
	p := CacheParams{Base: FloatToCached(r.Min), Limit: FloatToCached(r.Max)}
	if r.Max > r.Min {
		p.Factor = FloatToCached(float64(CacheSize-1) / (r.Max - r.Min))
	}
	return p
}

// IndexOf returns the cache index of v carrying fbits of fraction. Values
// at or below Base give 0 and values at or above Limit give the last index.
func (p CacheParams) IndexOf(v CachedValue, fbits int) int {
	last := (CacheSize - 1) << fbits
	switch {
	case v <= p.Base:
		return 0
	case v >= p.Limit:
		return last
	}
	if i := cachedProduct2Int(v-p.Base, p.Factor, fbits); i < last {
		return i
	}
	return last
}

// samplePoint is the input value represented by cache index i.
func samplePoint(r Range, i int) float64 {
	return r.Scale(float64(i) / float64(CacheSize-1))
}

// ScalarCache holds one fixed-point value per index.
type ScalarCache struct {
	CacheParams
	Values   [CacheSize]CachedValue
	Identity bool
}

// NewScalarCache samples proc over r.
func NewScalarCache(r Range, proc Proc) *ScalarCache {
	c := &ScalarCache{CacheParams: newCacheParams(r), Identity: proc == nil}
	for i := range c.Values {
		c.Values[i] = FloatToCached(proc.eval(samplePoint(r, i)))
	}
	return c
}

// Lookup returns the nearest entry for v.
func (c *ScalarCache) Lookup(v CachedValue) CachedValue {
	return c.Values[c.IndexOf(v, 0)]
}

// Interpolate returns the value at an index carrying InterpolateBits of
// fraction.
func (c *ScalarCache) Interpolate(i int) CachedValue {
	j := i >> InterpolateBits
	if j >= CacheSize-1 {
		return c.Values[CacheSize-1]
	}
	return interpolateBetween(c.Values[j], c.Values[j+1], i)
}

// FloatCache holds float samples; the table decode stage and profile
// synthesis read it.
type FloatCache struct {
	Domain   Range
	Factor   float64
	Values   [CacheSize]float64
	Identity bool
}

// NewFloatCache samples proc over r.
func NewFloatCache(r Range, proc Proc) *FloatCache {
	c := &FloatCache{Domain: r, Identity: proc == nil}
	if r.Max > r.Min {
		c.Factor = float64(CacheSize-1) / (r.Max - r.Min)
	}
	for i := range c.Values {
		c.Values[i] = proc.eval(samplePoint(r, i))
	}
	return c
}

// Eval clamps v to the domain and interpolates linearly between samples.
func (c *FloatCache) Eval(v float64) float64 {
	var pos float64
	switch {
	case v <= c.Domain.Min:
		pos = 0
	case v >= c.Domain.Max:
		pos = c.Factor * (c.Domain.Max - c.Domain.Min)
	default:
		pos = c.Factor * (v - c.Domain.Min)
	}
	i := int(pos)
	if i >= CacheSize-1 {
		return c.Values[CacheSize-1]
	}
	out := c.Values[i]
	if f := pos - float64(i); f != 0 {
		out += f * (c.Values[i+1] - out)
	}
	return out
}

// Vector3 is a cached 3-vector.
type Vector3 struct {
	U, V, W CachedValue
}

func vectorFromFloats(f [3]float64) Vector3 {
	return Vector3{U: FloatToCached(f[0]), V: FloatToCached(f[1]), W: FloatToCached(f[2])}
}

// Floats converts the vector back to floats.
func (v Vector3) Floats() [3]float64 {
	return [3]float64{CachedToFloat(v.U), CachedToFloat(v.V), CachedToFloat(v.W)}
}

func (v Vector3) add(o Vector3) Vector3 {
	return Vector3{U: v.U + o.U, V: v.V + o.V, W: v.W + o.W}
}

// VectorCache maps one input component to its contribution to a 3-vector:
// the decoded value times one matrix column.
type VectorCache struct {
	CacheParams
	Values [CacheSize]Vector3
}

// NewVectorCache1 samples proc over r and multiplies each sample by col.
func NewVectorCache1(r Range, proc Proc, col [3]float64) *VectorCache {
	c := &VectorCache{}
	c.fill(r, proc, col)
	return c
}

func (c *VectorCache) fill(r Range, proc Proc, col [3]float64) {
	c.CacheParams = newCacheParams(r)
	for i := range c.Values {
		d := proc.eval(samplePoint(r, i))
		c.Values[i] = vectorFromFloats([3]float64{col[0] * d, col[1] * d, col[2] * d})
	}
}

// Entry returns the nearest entry for v without interpolation.
func (c *VectorCache) Entry(v CachedValue) Vector3 {
	return c.Values[c.IndexOf(v, 0)]
}

func (c *VectorCache) interpolated(v CachedValue) Vector3 {
	i := c.IndexOf(v, InterpolateBits)
	j := i >> InterpolateBits
	p := c.Values[j]
	p1 := p
	if i < (CacheSize-1)<<InterpolateBits {
		p1 = c.Values[j+1]
	}
	return Vector3{
		U: interpolateBetween(p.U, p1.U, i),
		V: interpolateBetween(p.V, p1.V, i),
		W: interpolateBetween(p.W, p1.W, i),
	}
}

type cachedRange struct {
	Min, Max CachedValue
}

// VectorCache3 is a Decode+Matrix stage. The matrix is pre-factored into
// one column per axis, so the stage output is the sum of three independent
// per-axis lookups. This is not a trilinear interpolation.
type VectorCache3 struct {
	Caches [3]VectorCache
	// Interpolation holds, per axis, the input interval inside which
	// adjacent entries are interpolated.
	Interpolation [3]cachedRange
}

// NewVectorCache3 samples the three procs over their ranges and folds the
// matching column of m into each axis.
func NewVectorCache3(ranges [3]Range, procs [3]Proc, m Matrix3) *VectorCache3 {
	c := &VectorCache3{}
	for i := 0; i < 3; i++ {
		c.Caches[i].fill(ranges[i], procs[i], m.column(i))
		c.Interpolation[i] = cachedRange{Min: c.Caches[i].Base, Max: c.Caches[i].Limit}
	}
	return c
}

func (c *VectorCache3) axis(i int, v CachedValue) Vector3 {
	r := c.Interpolation[i]
	if v >= r.Min && v < r.Max {
		return c.Caches[i].interpolated(v)
	}
	return c.Caches[i].Entry(v)
}

// Lookup3 maps v through the stage. Contributions are summed in the order
// u, v, w.
func (c *VectorCache3) Lookup3(v Vector3) Vector3 {
	out := c.axis(0, v.U)
	out = out.add(c.axis(1, v.V))
	return out.add(c.axis(2, v.W))
}
