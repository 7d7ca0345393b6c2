package cmm

import (
	"errors"
	"fmt"
	"math"
)

// D50 white point of the profile connection space.
const (
	D50X = 0.9642
	D50Y = 1.0000
	D50Z = 0.8249
)

// XYZScale maps normalized [0,1] LUT values to PCS XYZ (u1Fixed15 range).
const XYZScale = 65535.0 / 32768.0

// iccTransform goes device -> PCS -> device. Both stages work on absolute
// PCS values: XYZ with Y=1 for the white, or L*a*b*.
type iccTransform struct {
	toPCS   Transform
	fromPCS Transform
	srcPCS  string
	dstPCS  string
}

func (t *iccTransform) Convert(in []float64) ([]float64, error) {
	pcs, err := t.toPCS.Convert(in)
	if err != nil {
		return nil, err
	}
	switch {
	case t.srcPCS == t.dstPCS:
	case t.srcPCS == "XYZ " && t.dstPCS == "Lab ":
		pcs = XYZToLab(pcs)
	case t.srcPCS == "Lab " && t.dstPCS == "XYZ ":
		pcs = LabToXYZ(pcs)
	default:
		return nil, fmt.Errorf("unsupported PCS pair %q -> %q", t.srcPCS, t.dstPCS)
	}
	return t.fromPCS.Convert(pcs)
}

func newICCTransform(src, dst *ICCProfile, intent RenderingIntent) (*iccTransform, error) {
	toPCS, err := createToPCS(src, intent)
	if err != nil {
		return nil, fmt.Errorf("source profile %q: %w", src.Name(), err)
	}
	fromPCS, err := createFromPCS(dst, intent)
	if err != nil {
		return nil, fmt.Errorf("destination profile %q: %w", dst.Name(), err)
	}
	return &iccTransform{
		toPCS:   toPCS,
		fromPCS: fromPCS,
		srcPCS:  pcsOf(src),
		dstPCS:  pcsOf(dst),
	}, nil
}

// pcsOf treats Lab identity profiles as Lab PCS regardless of the header.
func pcsOf(p *ICCProfile) string {
	if p.isLabIdentity() {
		return "Lab "
	}
	if p.PCS() == "Lab " {
		return "Lab "
	}
	return "XYZ "
}

func (p *ICCProfile) isLabIdentity() bool {
	if p.ColorSpace() != "Lab " {
		return false
	}
	_, ok := p.GetTag("A2B0")
	return !ok
}

// lutTag picks the intent specific tag, falling back to the perceptual one.
func lutTag(p *ICCProfile, prefix string, intent RenderingIntent) (Transform, error) {
	base := intent.Base()
	if base >= IntentPerceptual && base <= IntentSaturation {
		if t, err := p.ReadLUTTag(fmt.Sprintf("%s%d", prefix, base)); err == nil {
			return t, nil
		}
	}
	return p.ReadLUTTag(prefix + "0")
}

func createToPCS(p *ICCProfile, intent RenderingIntent) (Transform, error) {
	if p.isLabIdentity() {
		return labDecode{}, nil
	}
	if lut, err := lutTag(p, "A2B", intent); err == nil {
		return &pcsDecode{lut: lut, pcs: p.PCS()}, nil
	}
	if p.ColorSpace() == "GRAY" {
		return tryCreateGrayTRC(p)
	}
	return tryCreateMatrixTRC(p)
}

func createFromPCS(p *ICCProfile, intent RenderingIntent) (Transform, error) {
	if p.isLabIdentity() {
		return labEncode{}, nil
	}
	if lut, err := lutTag(p, "B2A", intent); err == nil {
		return &pcsEncode{lut: lut, pcs: p.PCS()}, nil
	}
	if p.ColorSpace() == "GRAY" {
		g, err := tryCreateGrayTRC(p)
		if err != nil {
			return nil, err
		}
		return &inverseGrayTRC{curve: g.curve}, nil
	}
	mat, err := tryCreateMatrixTRC(p)
	if err != nil {
		return nil, err
	}
	return mat.Inverse()
}

// pcsDecode turns a device-to-PCS LUT's normalized output into absolute PCS.
type pcsDecode struct {
	lut Transform
	pcs string
}

func (t *pcsDecode) Convert(in []float64) ([]float64, error) {
	out, err := t.lut.Convert(in)
	if err != nil {
		return nil, err
	}
	if len(out) != 3 {
		return nil, errors.New("PCS LUT must have three outputs")
	}
	if t.pcs == "Lab " {
		return labDecode{}.Convert(out)
	}
	return []float64{out[0] * XYZScale, out[1] * XYZScale, out[2] * XYZScale}, nil
}

// pcsEncode normalizes absolute PCS before a PCS-to-device LUT.
type pcsEncode struct {
	lut Transform
	pcs string
}

func (t *pcsEncode) Convert(in []float64) ([]float64, error) {
	var norm []float64
	if t.pcs == "Lab " {
		norm, _ = labEncode{}.Convert(in)
	} else {
		norm = []float64{clamp01(in[0] / XYZScale), clamp01(in[1] / XYZScale), clamp01(in[2] / XYZScale)}
	}
	return t.lut.Convert(norm)
}

// labDecode maps normalized Lab (L/100, (a+128)/255, (b+128)/255) to L*a*b*.
type labDecode struct{}

func (labDecode) Convert(in []float64) ([]float64, error) {
	if len(in) < 3 {
		return nil, errors.New("input too short")
	}
	return []float64{in[0] * 100, in[1]*255 - 128, in[2]*255 - 128}, nil
}

type labEncode struct{}

func (labEncode) Convert(in []float64) ([]float64, error) {
	if len(in) < 3 {
		return nil, errors.New("input too short")
	}
	return []float64{
		clamp01(in[0] / 100),
		clamp01((in[1] + 128) / 255),
		clamp01((in[2] + 128) / 255),
	}, nil
}

type matrixTRCTransform struct {
	curves [3]*Curve
	matrix [9]float64 // rX, gX, bX, rY, gY, bY, rZ, gZ, bZ
}

func (t *matrixTRCTransform) Convert(in []float64) ([]float64, error) {
	if len(in) < 3 {
		return nil, errors.New("input too short")
	}
	r := t.curves[0].Evaluate(in[0])
	g := t.curves[1].Evaluate(in[1])
	b := t.curves[2].Evaluate(in[2])

	x := t.matrix[0]*r + t.matrix[1]*g + t.matrix[2]*b
	y := t.matrix[3]*r + t.matrix[4]*g + t.matrix[5]*b
	z := t.matrix[6]*r + t.matrix[7]*g + t.matrix[8]*b
	return []float64{x, y, z}, nil
}

func tryCreateMatrixTRC(p *ICCProfile) (*matrixTRCTransform, error) {
	var cols [3][3]float64
	t := &matrixTRCTransform{}
	for i, ch := range []string{"r", "g", "b"} {
		xyz, err := p.ReadXYZTag(ch + "XYZ")
		if err != nil {
			return nil, err
		}
		cols[i] = xyz
		if t.curves[i], err = p.ReadCurve(ch + "TRC"); err != nil {
			return nil, err
		}
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			t.matrix[row*3+col] = cols[col][row]
		}
	}
	return t, nil
}

func (t *matrixTRCTransform) Inverse() (Transform, error) {
	invMat, err := invertMatrix(t.matrix)
	if err != nil {
		return nil, err
	}
	return &inverseMatrixTRCTransform{curves: t.curves, matrix: invMat}, nil
}

type inverseMatrixTRCTransform struct {
	curves [3]*Curve
	matrix [9]float64 // XYZ -> linear RGB
}

func (t *inverseMatrixTRCTransform) Convert(in []float64) ([]float64, error) {
	if len(in) < 3 {
		return nil, errors.New("input too short")
	}
	x, y, z := in[0], in[1], in[2]
	rLin := t.matrix[0]*x + t.matrix[1]*y + t.matrix[2]*z
	gLin := t.matrix[3]*x + t.matrix[4]*y + t.matrix[5]*z
	bLin := t.matrix[6]*x + t.matrix[7]*y + t.matrix[8]*z
	return []float64{
		invertCurve(t.curves[0], rLin),
		invertCurve(t.curves[1], gLin),
		invertCurve(t.curves[2], bLin),
	}, nil
}

// grayTRCTransform maps gray through kTRC onto the D50 neutral axis.
type grayTRCTransform struct {
	curve *Curve
}

func tryCreateGrayTRC(p *ICCProfile) (*grayTRCTransform, error) {
	c, err := p.ReadCurve("kTRC")
	if err != nil {
		return nil, err
	}
	return &grayTRCTransform{curve: c}, nil
}

func (t *grayTRCTransform) Convert(in []float64) ([]float64, error) {
	if len(in) < 1 {
		return nil, errors.New("input too short")
	}
	y := t.curve.Evaluate(in[0])
	return []float64{D50X * y, D50Y * y, D50Z * y}, nil
}

type inverseGrayTRC struct {
	curve *Curve
}

func (t *inverseGrayTRC) Convert(in []float64) ([]float64, error) {
	if len(in) < 3 {
		return nil, errors.New("input too short")
	}
	return []float64{invertCurve(t.curve, in[1])}, nil
}

// invertCurve solves c(x) = y for monotonic curves.
func invertCurve(c *Curve, y float64) float64 {
	y = clamp01(y)
	if c.IsIdentity() {
		return y
	}
	if c.Table == nil && c.Params == nil {
		return math.Pow(y, 1/c.Gamma)
	}
	lo, hi := 0.0, 1.0
	rising := c.Evaluate(1) >= c.Evaluate(0)
	for i := 0; i < 32; i++ {
		mid := (lo + hi) / 2
		if (c.Evaluate(mid) < y) == rising {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func XYZToLab(xyz []float64) []float64 {
	if len(xyz) < 3 {
		return xyz
	}
	f := func(t float64) float64 {
		if t > 0.008856 {
			return math.Cbrt(t)
		}
		return 7.787*t + 16.0/116.0
	}
	fx := f(xyz[0] / D50X)
	fy := f(xyz[1] / D50Y)
	fz := f(xyz[2] / D50Z)
	return []float64{116.0*fy - 16.0, 500.0 * (fx - fy), 200.0 * (fy - fz)}
}

func LabToXYZ(lab []float64) []float64 {
	if len(lab) < 3 {
		return lab
	}
	fy := (lab[0] + 16.0) / 116.0
	fx := lab[1]/500.0 + fy
	fz := fy - lab[2]/200.0

	fInv := func(t float64) float64 {
		if t > 0.206893 {
			return t * t * t
		}
		return (t - 16.0/116.0) / 7.787
	}
	return []float64{D50X * fInv(fx), D50Y * fInv(fy), D50Z * fInv(fz)}
}

func invertMatrix(m [9]float64) ([9]float64, error) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if math.Abs(det) < 1e-10 {
		return [9]float64{}, errors.New("matrix is singular")
	}
	invDet := 1.0 / det

	return [9]float64{
		(e*i - f*h) * invDet, (c*h - b*i) * invDet, (b*f - c*e) * invDet,
		(f*g - d*i) * invDet, (a*i - c*g) * invDet, (c*d - a*f) * invDet,
		(d*h - e*g) * invDet, (g*b - a*h) * invDet, (a*e - b*d) * invDet,
	}, nil
}

func numChannels(cs string) int {
	switch cs {
	case "RGB ", "Lab ", "XYZ ":
		return 3
	case "CMYK":
		return 4
	case "GRAY":
		return 1
	}
	if len(cs) == 4 && cs[1:] == "CLR" {
		if cs[0] >= '2' && cs[0] <= '9' {
			return int(cs[0] - '0')
		}
		if cs[0] >= 'A' && cs[0] <= 'F' {
			return int(cs[0]-'A') + 10
		}
	}
	return 0
}

// unmanagedTransform converts between device spaces without profiles. It
// backs the "none" CMM selection.
type unmanagedTransform struct {
	src, dst string
}

func (t *unmanagedTransform) Convert(in []float64) ([]float64, error) {
	srcCh := numChannels(t.src)
	if len(in) != srcCh {
		return nil, fmt.Errorf("input channels mismatch: expected %d, got %d", srcCh, len(in))
	}
	dstCh := numChannels(t.dst)
	out := make([]float64, dstCh)

	switch {
	case t.src == t.dst || srcCh == dstCh:
		copy(out, in)
	case t.src == "RGB " && t.dst == "CMYK":
		r, g, b := in[0], in[1], in[2]
		k := 1.0 - math.Max(r, math.Max(g, b))
		if k < 1.0 {
			out[0] = (1.0 - r - k) / (1.0 - k)
			out[1] = (1.0 - g - k) / (1.0 - k)
			out[2] = (1.0 - b - k) / (1.0 - k)
		}
		out[3] = k
	case t.src == "CMYK" && t.dst == "RGB ":
		c, m, y, k := in[0], in[1], in[2], in[3]
		out[0] = (1.0 - c) * (1.0 - k)
		out[1] = (1.0 - m) * (1.0 - k)
		out[2] = (1.0 - y) * (1.0 - k)
	case t.src == "GRAY" && t.dst == "RGB ":
		out[0], out[1], out[2] = in[0], in[0], in[0]
	case t.src == "RGB " && t.dst == "GRAY":
		out[0] = 0.299*in[0] + 0.587*in[1] + 0.114*in[2]
	case t.src == "GRAY" && t.dst == "CMYK":
		out[3] = 1.0 - in[0]
	case t.src == "CMYK" && t.dst == "GRAY":
		r := (1.0 - in[0]) * (1.0 - in[3])
		g := (1.0 - in[1]) * (1.0 - in[3])
		b := (1.0 - in[2]) * (1.0 - in[3])
		out[0] = 0.299*r + 0.587*g + 0.114*b
	default:
		return nil, errors.New("unsupported color conversion")
	}
	return out, nil
}
