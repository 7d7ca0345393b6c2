package colorspace

import "math"

// Matrix3 is a 3x3 matrix stored by columns: CU is the contribution of the
// first input component, CV of the second, CW of the third.
type Matrix3 struct {
	CU, CV, CW [3]float64
}

// IdentityMatrix3 is the identity.
var IdentityMatrix3 = Matrix3{
	CU: [3]float64{1, 0, 0},
	CV: [3]float64{0, 1, 0},
	CW: [3]float64{0, 0, 1},
}

// MatrixFromArray builds a matrix from the nine numbers of a PostScript or
// PDF Matrix entry, which lists the matrix column by column.
func MatrixFromArray(a [9]float64) Matrix3 {
	return Matrix3{
		CU: [3]float64{a[0], a[1], a[2]},
		CV: [3]float64{a[3], a[4], a[5]},
		CW: [3]float64{a[6], a[7], a[8]},
	}
}

func (m Matrix3) orIdentity() Matrix3 {
	if m == (Matrix3{}) {
		return IdentityMatrix3
	}
	return m
}

func (m Matrix3) IsIdentity() bool { return m == IdentityMatrix3 }

func (m Matrix3) column(i int) [3]float64 {
	switch i {
	case 0:
		return m.CU
	case 1:
		return m.CV
	}
	return m.CW
}

// Row returns the coefficients producing output component i.
func (m Matrix3) Row(i int) [3]float64 {
	return [3]float64{m.CU[i], m.CV[i], m.CW[i]}
}

// Apply returns m·v.
func (m Matrix3) Apply(v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m.CU[i]*v[0] + m.CV[i]*v[1] + m.CW[i]*v[2]
	}
	return out
}

// Mul returns m·n, the matrix that applies n first.
func (m Matrix3) Mul(n Matrix3) Matrix3 {
	return Matrix3{CU: m.Apply(n.CU), CV: m.Apply(n.CV), CW: m.Apply(n.CW)}
}

// Invert returns the inverse; ok is false for a singular matrix.
func (m Matrix3) Invert() (Matrix3, bool) {
	a, b, c := m.CU[0], m.CV[0], m.CW[0]
	d, e, f := m.CU[1], m.CV[1], m.CW[1]
	g, h, k := m.CU[2], m.CV[2], m.CW[2]
	det := a*(e*k-f*h) - b*(d*k-f*g) + c*(d*h-e*g)
	if math.Abs(det) < 1e-12 {
		return Matrix3{}, false
	}
	inv := 1 / det
	return Matrix3{
		CU: [3]float64{(e*k - f*h) * inv, (f*g - d*k) * inv, (d*h - e*g) * inv},
		CV: [3]float64{(c*h - b*k) * inv, (a*k - c*g) * inv, (b*g - a*h) * inv},
		CW: [3]float64{(b*f - c*e) * inv, (c*d - a*f) * inv, (a*e - b*d) * inv},
	}, true
}

// RowMajor returns the nine coefficients row by row, the layout of an ICC
// matrix element.
func (m Matrix3) RowMajor() []float64 {
	out := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		r := m.Row(i)
		out = append(out, r[:]...)
	}
	return out
}

func diagMatrix(v [3]float64) Matrix3 {
	return Matrix3{
		CU: [3]float64{v[0], 0, 0},
		CV: [3]float64{0, v[1], 0},
		CW: [3]float64{0, 0, v[2]},
	}
}

func (m Matrix3) scale(s float64) Matrix3 {
	for i := 0; i < 3; i++ {
		m.CU[i] *= s
		m.CV[i] *= s
		m.CW[i] *= s
	}
	return m
}

// CAT02 and its inverse.
var (
	cat02 = Matrix3{
		CU: [3]float64{0.7328, -0.7036, 0.0030},
		CV: [3]float64{0.4296, 1.6975, 0.0136},
		CW: [3]float64{-0.1624, 0.0061, 0.9834},
	}
	cat02Inv = Matrix3{
		CU: [3]float64{1.0961, 0.4544, -0.0096},
		CV: [3]float64{-0.2789, 0.4735, -0.0057},
		CW: [3]float64{0.1827, 0.0721, 1.0153},
	}
)

// ChromaticAdaptation returns the CAT02 von Kries matrix taking colors
// relative to white src to colors relative to white dst.
func ChromaticAdaptation(src, dst [3]float64) Matrix3 {
	ls := cat02.Apply(src)
	ld := cat02.Apply(dst)
	var diag [3]float64
	for k := 0; k < 3; k++ {
		if ls[k] > 0 {
			diag[k] = ld[k] / ls[k]
		} else {
			diag[k] = 1
		}
	}
	return cat02Inv.Mul(diagMatrix(diag).Mul(cat02))
}

// nearIdentity tolerates the rounding left by multiplying a matrix with its
// inverse.
func (m Matrix3) nearIdentity() bool {
	for i := 0; i < 3; i++ {
		r, id := m.Row(i), IdentityMatrix3.Row(i)
		for j := 0; j < 3; j++ {
			if math.Abs(r[j]-id[j]) > 1e-9 {
				return false
			}
		}
	}
	return true
}

// boundingBox returns, per output component, the range m maps the box in
// onto.
func (m Matrix3) boundingBox(in [3]Range) [3]Range {
	var out [3]Range
	for i := 0; i < 3; i++ {
		row := m.Row(i)
		for j := 0; j < 3; j++ {
			a, b := row[j]*in[j].Min, row[j]*in[j].Max
			if a > b {
				a, b = b, a
			}
			out[i].Min += a
			out[i].Max += b
		}
	}
	return out
}
