package cmm

import (
	"encoding/binary"
	"errors"
)

// LUT is a decoded lut8Type (mft1) or lut16Type (mft2) tag. All tables hold
// values normalized to [0,1].
type LUT struct {
	InputChannels  uint8
	OutputChannels uint8
	GridPoints     uint8
	Matrix         [9]float64
	InputTables    [][]float64
	CLUT           []float64
	OutputTables   [][]float64
}

// ReadLUTTag decodes a lookup table tag (mft1, mft2 or mAB ).
func (p *ICCProfile) ReadLUTTag(sig string) (Transform, error) {
	data, ok := p.GetTag(sig)
	if !ok {
		return nil, errTagNotFound
	}
	if len(data) < 8 {
		return nil, errTagTruncated
	}
	switch string(data[0:4]) {
	case "mft1":
		return parseMFT(data, 1)
	case "mft2":
		return parseMFT(data, 2)
	case "mAB ", "mBA ":
		return parseLutAB(data)
	}
	return nil, errors.New("unsupported LUT type")
}

func readSample(data []byte, off, width int) float64 {
	if width == 1 {
		return float64(data[off]) / 255.0
	}
	return float64(binary.BigEndian.Uint16(data[off:off+2])) / 65535.0
}

// parseMFT decodes mft1 (width 1) and mft2 (width 2) tags, which share the
// layout apart from the sample width and the fixed 256-entry tables of mft1.
func parseMFT(data []byte, width int) (*LUT, error) {
	if len(data) < 48 {
		return nil, errTagTruncated
	}
	lut := &LUT{
		InputChannels:  data[8],
		OutputChannels: data[9],
		GridPoints:     data[10],
	}
	if lut.InputChannels == 0 || lut.OutputChannels == 0 || lut.GridPoints < 2 {
		return nil, errors.New("mft tag has empty dimensions")
	}
	for i := 0; i < 9; i++ {
		lut.Matrix[i] = s15Fixed16ToFloat(binary.BigEndian.Uint32(data[12+i*4 : 16+i*4]))
	}

	inputEntries, outputEntries := 256, 256
	offset := 48
	if width == 2 {
		if len(data) < 52 {
			return nil, errTagTruncated
		}
		inputEntries = int(binary.BigEndian.Uint16(data[48:50]))
		outputEntries = int(binary.BigEndian.Uint16(data[50:52]))
		offset = 52
	}

	readTables := func(channels, entries int) ([][]float64, error) {
		if offset+channels*entries*width > len(data) {
			return nil, errTagTruncated
		}
		tables := make([][]float64, channels)
		for c := range tables {
			tables[c] = make([]float64, entries)
			for i := range tables[c] {
				tables[c][i] = readSample(data, offset, width)
				offset += width
			}
		}
		return tables, nil
	}

	var err error
	if lut.InputTables, err = readTables(int(lut.InputChannels), inputEntries); err != nil {
		return nil, err
	}

	n := int(lut.OutputChannels)
	for i := 0; i < int(lut.InputChannels); i++ {
		n *= int(lut.GridPoints)
	}
	if offset+n*width > len(data) {
		return nil, errTagTruncated
	}
	lut.CLUT = make([]float64, n)
	for i := range lut.CLUT {
		lut.CLUT[i] = readSample(data, offset, width)
		offset += width
	}

	if lut.OutputTables, err = readTables(int(lut.OutputChannels), outputEntries); err != nil {
		return nil, err
	}
	return lut, nil
}

// Convert runs matrix, input tables, CLUT and output tables in that order.
// The matrix only applies to three-channel input.
func (lut *LUT) Convert(in []float64) ([]float64, error) {
	if len(in) != int(lut.InputChannels) {
		return nil, errors.New("input channels mismatch")
	}

	temp := make([]float64, len(in))
	copy(temp, in)

	if lut.InputChannels == 3 && !isIdentity3x3(lut.Matrix[:]) {
		x := temp[0]*lut.Matrix[0] + temp[1]*lut.Matrix[1] + temp[2]*lut.Matrix[2]
		y := temp[0]*lut.Matrix[3] + temp[1]*lut.Matrix[4] + temp[2]*lut.Matrix[5]
		z := temp[0]*lut.Matrix[6] + temp[1]*lut.Matrix[7] + temp[2]*lut.Matrix[8]
		temp[0], temp[1], temp[2] = clamp01(x), clamp01(y), clamp01(z)
	}

	for c := range temp {
		temp[c] = interp1D(temp[c], lut.InputTables[c])
	}

	grid := make([]int, lut.InputChannels)
	for i := range grid {
		grid[i] = int(lut.GridPoints)
	}
	clutOut := multilinearInterp(lut.CLUT, grid, int(lut.OutputChannels), temp)

	out := make([]float64, lut.OutputChannels)
	for c := range out {
		out[c] = interp1D(clutOut[c], lut.OutputTables[c])
	}
	return out, nil
}

// LutAB is a decoded lutAtoBType (mAB ) or lutBtoAType (mBA ) tag. An mAB
// runs A curves, CLUT, M curves, matrix, B curves; an mBA runs the same
// elements in reverse. Values are normalized to [0,1].
type LutAB struct {
	BToA           bool
	InputChannels  int
	OutputChannels int
	ACurves        []*Curve
	GridPoints     []int
	CLUT           []float64
	MCurves        []*Curve
	// Matrix is 3x3 row-major followed by three offsets; nil when absent.
	Matrix  []float64
	BCurves []*Curve
}

func parseLutAB(data []byte) (*LutAB, error) {
	if len(data) < 32 {
		return nil, errTagTruncated
	}
	lut := &LutAB{
		BToA:           string(data[0:4]) == "mBA ",
		InputChannels:  int(data[8]),
		OutputChannels: int(data[9]),
	}
	if lut.InputChannels == 0 || lut.OutputChannels == 0 || lut.InputChannels > 15 || lut.OutputChannels > 15 {
		return nil, errors.New("lutAB tag has invalid channel counts")
	}
	aCount, bCount := lut.InputChannels, lut.OutputChannels
	if lut.BToA {
		aCount, bCount = bCount, aCount
	}
	off := func(at int) int { return int(binary.BigEndian.Uint32(data[at : at+4])) }
	bOff, matOff, mOff, clutOff, aOff := off(12), off(16), off(20), off(24), off(28)

	var err error
	if bOff != 0 {
		if lut.BCurves, err = decodeCurvesAt(data, bOff, bCount); err != nil {
			return nil, err
		}
	}
	if matOff != 0 {
		if matOff+48 > len(data) {
			return nil, errTagTruncated
		}
		lut.Matrix = make([]float64, 12)
		for i := range lut.Matrix {
			lut.Matrix[i] = s15Fixed16ToFloat(binary.BigEndian.Uint32(data[matOff+4*i:]))
		}
	}
	if mOff != 0 {
		if lut.MCurves, err = decodeCurvesAt(data, mOff, 3); err != nil {
			return nil, err
		}
	}
	if clutOff != 0 {
		if err := lut.decodeCLUT(data, clutOff); err != nil {
			return nil, err
		}
	}
	if aOff != 0 {
		if lut.ACurves, err = decodeCurvesAt(data, aOff, aCount); err != nil {
			return nil, err
		}
	}
	return lut, nil
}

func (lut *LutAB) decodeCLUT(data []byte, at int) error {
	if at+20 > len(data) {
		return errTagTruncated
	}
	lut.GridPoints = make([]int, lut.InputChannels)
	n := lut.OutputChannels
	for i := range lut.GridPoints {
		g := int(data[at+i])
		if g == 0 {
			g = 1
		}
		lut.GridPoints[i] = g
		n *= g
	}
	width := int(data[at+16])
	if width != 1 && width != 2 {
		return errors.New("lutAB CLUT has invalid precision")
	}
	start := at + 20
	if start+n*width > len(data) {
		return errTagTruncated
	}
	lut.CLUT = make([]float64, n)
	for i := range lut.CLUT {
		lut.CLUT[i] = readSample(data, start+i*width, width)
	}
	return nil
}

func decodeCurvesAt(data []byte, at, count int) ([]*Curve, error) {
	curves := make([]*Curve, count)
	for i := range curves {
		if at >= len(data) {
			return nil, errTagTruncated
		}
		c, n, err := decodeCurve(data[at:])
		if err != nil {
			return nil, err
		}
		curves[i] = c
		at += n
	}
	return curves, nil
}

// Convert evaluates the pipeline. Output is clamped to [0,1].
func (lut *LutAB) Convert(in []float64) ([]float64, error) {
	if len(in) != lut.InputChannels {
		return nil, errors.New("input channels mismatch")
	}
	v := make([]float64, len(in))
	copy(v, in)

	if lut.BToA {
		v = applyCurves(lut.BCurves, v)
		v = lut.applyMatrix(v)
		v = applyCurves(lut.MCurves, v)
		v = lut.applyCLUT(v)
		v = applyCurves(lut.ACurves, v)
	} else {
		v = applyCurves(lut.ACurves, v)
		v = lut.applyCLUT(v)
		v = applyCurves(lut.MCurves, v)
		v = lut.applyMatrix(v)
		v = applyCurves(lut.BCurves, v)
	}
	for i := range v {
		v[i] = clamp01(v[i])
	}
	return v, nil
}

func (lut *LutAB) applyCLUT(v []float64) []float64 {
	if lut.CLUT == nil || len(lut.GridPoints) != len(v) {
		return v
	}
	return multilinearInterp(lut.CLUT, lut.GridPoints, len(lut.CLUT)/gridSize(lut.GridPoints), v)
}

func (lut *LutAB) applyMatrix(v []float64) []float64 {
	if lut.Matrix == nil || len(v) != 3 {
		return v
	}
	m := lut.Matrix
	return []float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[9],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2] + m[10],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2] + m[11],
	}
}

func gridSize(grid []int) int {
	n := 1
	for _, g := range grid {
		n *= g
	}
	return n
}

func applyCurves(curves []*Curve, v []float64) []float64 {
	for i, c := range curves {
		if i < len(v) && c != nil && !c.IsIdentity() {
			v[i] = c.Evaluate(v[i])
		}
	}
	return v
}

func isIdentity3x3(m []float64) bool {
	for i := 0; i < 9; i++ {
		want := 0.0
		if i%4 == 0 {
			want = 1
		}
		if m[i] != want {
			return false
		}
	}
	return true
}

func interp1D(val float64, table []float64) float64 {
	if len(table) == 0 {
		return val
	}
	if val <= 0 {
		return table[0]
	}
	if val >= 1 {
		return table[len(table)-1]
	}
	f := val * float64(len(table)-1)
	idx := int(f)
	frac := f - float64(idx)
	return table[idx]*(1-frac) + table[idx+1]*frac
}

// multilinearInterp interpolates an N-dimensional table whose first
// dimension varies slowest. Each grid point holds outCh values.
func multilinearInterp(clut []float64, grid []int, outCh int, in []float64) []float64 {
	n := len(grid)
	out := make([]float64, outCh)
	if n == 0 || len(in) != n {
		return out
	}

	strides := make([]int, n)
	stride := outCh
	for i := n - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= grid[i]
	}

	base := 0
	fracs := make([]float64, n)
	for i := range grid {
		if grid[i] < 2 {
			continue
		}
		pos := clamp01(in[i]) * float64(grid[i]-1)
		idx := int(pos)
		if idx >= grid[i]-1 {
			idx = grid[i] - 2
		}
		base += idx * strides[i]
		fracs[i] = pos - float64(idx)
	}

	for corner := 0; corner < 1<<n; corner++ {
		offset := base
		weight := 1.0
		for d := 0; d < n; d++ {
			if corner&(1<<d) != 0 {
				if grid[d] < 2 {
					weight = 0
					break
				}
				offset += strides[d]
				weight *= fracs[d]
			} else {
				weight *= 1 - fracs[d]
			}
		}
		if weight == 0 {
			continue
		}
		for c := 0; c < outCh; c++ {
			out[c] += weight * clut[offset+c]
		}
	}
	return out
}
