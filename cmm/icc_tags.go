package cmm

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var (
	errTagNotFound    = errors.New("tag not found")
	errTagTruncated   = errors.New("tag data truncated")
	errUnexpectedType = errors.New("unexpected tag type")
)

// GetTag returns the raw data of the tag with the given signature.
func (p *ICCProfile) GetTag(sig string) ([]byte, bool) {
	if len(p.data) < 132 || len(sig) != 4 {
		return nil, false
	}
	want := binary.BigEndian.Uint32([]byte(sig))
	count := int(binary.BigEndian.Uint32(p.data[128:132]))
	for i := 0; i < count; i++ {
		entry := 132 + i*12
		if entry+12 > len(p.data) {
			return nil, false
		}
		if binary.BigEndian.Uint32(p.data[entry:entry+4]) != want {
			continue
		}
		off := int(binary.BigEndian.Uint32(p.data[entry+4 : entry+8]))
		size := int(binary.BigEndian.Uint32(p.data[entry+8 : entry+12]))
		if off < 0 || size < 0 || off+size > len(p.data) {
			return nil, false
		}
		return p.data[off : off+size], true
	}
	return nil, false
}

// TagSignatures lists the tags present in the tag table, in table order.
func (p *ICCProfile) TagSignatures() []string {
	if len(p.data) < 132 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(p.data[128:132]))
	var out []string
	for i := 0; i < count; i++ {
		entry := 132 + i*12
		if entry+12 > len(p.data) {
			break
		}
		out = append(out, string(p.data[entry:entry+4]))
	}
	return out
}

// ReadXYZTag decodes an XYZType tag.
func (p *ICCProfile) ReadXYZTag(sig string) ([3]float64, error) {
	data, ok := p.GetTag(sig)
	if !ok {
		return [3]float64{}, errTagNotFound
	}
	if len(data) < 20 {
		return [3]float64{}, errTagTruncated
	}
	if string(data[0:4]) != "XYZ " {
		return [3]float64{}, errUnexpectedType
	}
	return [3]float64{
		s15Fixed16ToFloat(binary.BigEndian.Uint32(data[8:12])),
		s15Fixed16ToFloat(binary.BigEndian.Uint32(data[12:16])),
		s15Fixed16ToFloat(binary.BigEndian.Uint32(data[16:20])),
	}, nil
}

// ReadCurveTag returns the gamma of a curveType tag. Only the identity and
// single-gamma encodings are accepted.
func (p *ICCProfile) ReadCurveTag(sig string) (float64, error) {
	c, err := p.ReadCurve(sig)
	if err != nil {
		return 0, err
	}
	if c.Table != nil || c.Params != nil {
		return 0, errors.New("curve is not a pure gamma")
	}
	return c.Gamma, nil
}

// ReadCurve decodes a curv or para tag into a Curve.
func (p *ICCProfile) ReadCurve(sig string) (*Curve, error) {
	data, ok := p.GetTag(sig)
	if !ok {
		return nil, errTagNotFound
	}
	c, _, err := decodeCurve(data)
	return c, err
}

// ReadTextTag decodes a textType, textDescriptionType or
// multiLocalizedUnicodeType tag.
func (p *ICCProfile) ReadTextTag(sig string) (string, error) {
	data, ok := p.GetTag(sig)
	if !ok {
		return "", errTagNotFound
	}
	if len(data) < 12 {
		return "", errTagTruncated
	}
	switch string(data[0:4]) {
	case "text":
		return strings.TrimRight(string(data[8:]), "\x00"), nil
	case "desc":
		n := int(binary.BigEndian.Uint32(data[8:12]))
		if 12+n > len(data) {
			return "", errTagTruncated
		}
		return strings.TrimRight(string(data[12:12+n]), "\x00"), nil
	case "mluc":
		return decodeMLUC(data)
	}
	return "", errUnexpectedType
}

func decodeMLUC(data []byte) (string, error) {
	if len(data) < 16 {
		return "", errTagTruncated
	}
	records := int(binary.BigEndian.Uint32(data[8:12]))
	recSize := int(binary.BigEndian.Uint32(data[12:16]))
	if records == 0 || recSize < 12 || 16+recSize > len(data) {
		return "", errTagTruncated
	}
	// First record wins; synthesized profiles only carry en-US.
	n := int(binary.BigEndian.Uint32(data[20:24]))
	off := int(binary.BigEndian.Uint32(data[24:28]))
	if off+n > len(data) {
		return "", errTagTruncated
	}
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(data[off : off+n])
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Curve is a decoded curv or para element.
type Curve struct {
	// Gamma is used when Table and Params are nil; 1 is the identity.
	Gamma    float64
	FuncType int
	Params   []float64
	Table    []uint16
}

// IsIdentity reports whether the curve maps x to x.
func (c *Curve) IsIdentity() bool {
	return c.Table == nil && c.Params == nil && c.Gamma == 1
}

// Evaluate applies the curve to x in [0,1]; the result is clamped to [0,1].
func (c *Curve) Evaluate(x float64) float64 {
	x = clamp01(x)
	var y float64
	switch {
	case c.Table != nil:
		y = interp1DTable(x, c.Table)
	case c.Params != nil:
		y = c.parametric(x)
	case c.Gamma == 1 || c.Gamma == 0:
		y = x
	default:
		y = math.Pow(x, c.Gamma)
	}
	return clamp01(y)
}

func (c *Curve) parametric(x float64) float64 {
	p := c.Params
	g := p[0]
	pow := func(v float64) float64 {
		if v <= 0 {
			return 0
		}
		return math.Pow(v, g)
	}
	switch c.FuncType {
	case 0:
		return pow(x)
	case 1:
		if x >= -p[2]/p[1] {
			return pow(p[1]*x + p[2])
		}
		return 0
	case 2:
		if x >= -p[2]/p[1] {
			return pow(p[1]*x+p[2]) + p[3]
		}
		return p[3]
	case 3:
		if x >= p[4] {
			return pow(p[1]*x + p[2])
		}
		return p[3] * x
	case 4:
		if x >= p[4] {
			return pow(p[1]*x+p[2]) + p[5]
		}
		return p[3]*x + p[6]
	}
	return x
}

func interp1DTable(x float64, table []uint16) float64 {
	n := len(table)
	if n == 1 {
		return float64(table[0]) / 65535
	}
	pos := x * float64(n-1)
	idx := int(pos)
	if idx >= n-1 {
		return float64(table[n-1]) / 65535
	}
	f := pos - float64(idx)
	v0 := float64(table[idx]) / 65535
	v1 := float64(table[idx+1]) / 65535
	return v0 + f*(v1-v0)
}

var paraParamCount = [...]int{1, 3, 4, 5, 7}

// decodeCurve decodes one curve element and returns the number of bytes it
// occupies, padded to a 4-byte boundary.
func decodeCurve(data []byte) (*Curve, int, error) {
	if len(data) < 12 {
		return nil, 0, errTagTruncated
	}
	switch string(data[0:4]) {
	case "curv":
		n := int(binary.BigEndian.Uint32(data[8:12]))
		size := 12 + 2*n
		if size > len(data) {
			return nil, 0, errTagTruncated
		}
		padded := (size + 3) &^ 3
		switch n {
		case 0:
			return &Curve{Gamma: 1}, padded, nil
		case 1:
			return &Curve{Gamma: float64(binary.BigEndian.Uint16(data[12:14])) / 256}, padded, nil
		}
		table := make([]uint16, n)
		for i := range table {
			table[i] = binary.BigEndian.Uint16(data[12+2*i:])
		}
		return &Curve{Table: table}, padded, nil
	case "para":
		ft := int(binary.BigEndian.Uint16(data[8:10]))
		if ft >= len(paraParamCount) {
			return nil, 0, errUnexpectedType
		}
		np := paraParamCount[ft]
		size := 12 + 4*np
		if size > len(data) {
			return nil, 0, errTagTruncated
		}
		params := make([]float64, np)
		for i := range params {
			params[i] = s15Fixed16ToFloat(binary.BigEndian.Uint32(data[12+4*i:]))
		}
		return &Curve{FuncType: ft, Params: params}, (size + 3) &^ 3, nil
	}
	return nil, 0, errUnexpectedType
}

func s15Fixed16ToFloat(v uint32) float64 {
	return float64(int32(v)) / 65536.0
}

func floatToS15Fixed16(f float64) uint32 {
	return uint32(int32(math.Round(f * 65536.0)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
