package cmm

import (
	"math"
	"testing"
)

func TestMultilinearInterp3D(t *testing.T) {
	// 2x2x2 grid; output = x*10 + y*20 + z*40, first dimension slowest.
	table := make([]float64, 8)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				table[x*4+y*2+z] = float64(x*10 + y*20 + z*40)
			}
		}
	}

	tests := []struct {
		in  []float64
		out float64
	}{
		{[]float64{0, 0, 0}, 0},
		{[]float64{1, 0, 0}, 10},
		{[]float64{0, 1, 0}, 20},
		{[]float64{0, 0, 1}, 40},
		{[]float64{1, 1, 1}, 70},
		{[]float64{0.5, 0, 0}, 5},
		{[]float64{0, 0.5, 0}, 10},
		{[]float64{0, 0, 0.5}, 20},
		{[]float64{0.5, 0.5, 0}, 15},
		{[]float64{0.5, 0.5, 0.5}, 35},
	}

	for _, tc := range tests {
		res := multilinearInterp(table, []int{2, 2, 2}, 1, tc.in)
		if len(res) != 1 {
			t.Errorf("Expected 1 output, got %d", len(res))
			continue
		}
		if math.Abs(res[0]-tc.out) > 0.001 {
			t.Errorf("Input %v: expected %v, got %v", tc.in, tc.out, res[0])
		}
	}
}

func TestMultilinearInterpFourInputs(t *testing.T) {
	// 3x3x3x3 grid holding the sum of the normalized coordinates / 4.
	grid := []int{3, 3, 3, 3}
	table := make([]float64, 81)
	i := 0
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			for c := 0; c < 3; c++ {
				for d := 0; d < 3; d++ {
					table[i] = float64(a+b+c+d) / 8
					i++
				}
			}
		}
	}
	in := []float64{0.1, 0.3, 0.7, 0.9}
	got := multilinearInterp(table, grid, 1, in)[0]
	want := (0.1 + 0.3 + 0.7 + 0.9) / 4
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestLutABRoundTrip(t *testing.T) {
	lut := &LutAB{
		InputChannels:  1,
		OutputChannels: 3,
		ACurves:        []*Curve{{Gamma: 2}},
		GridPoints:     []int{2},
		CLUT:           []float64{0, 0, 0, 0.5, 1, 0.25},
		MCurves:        []*Curve{{Gamma: 1}, {Gamma: 1}, {Gamma: 1}},
		Matrix:         []float64{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0},
	}
	w := NewProfileWriter("scnr", "GRAY", "XYZ ")
	if err := w.AddLutAB("A2B0", lut); err != nil {
		t.Fatalf("AddLutAB failed: %v", err)
	}
	data, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	p, err := NewICCProfile(data)
	if err != nil {
		t.Fatalf("NewICCProfile failed: %v", err)
	}
	tr, err := p.ReadLUTTag("A2B0")
	if err != nil {
		t.Fatalf("ReadLUTTag failed: %v", err)
	}
	out, err := tr.Convert([]float64{0.5})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	// gamma 2 maps 0.5 to 0.25, a quarter of the way along the CLUT.
	want := []float64{0.125, 0.25, 0.0625}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 0.001 {
			t.Errorf("channel %d: expected %f, got %f", i, want[i], out[i])
		}
	}
}

func TestLutBAReversesOrder(t *testing.T) {
	lut := &LutAB{
		BToA:           true,
		InputChannels:  3,
		OutputChannels: 1,
		BCurves:        []*Curve{{Gamma: 1}, {Gamma: 1}, {Gamma: 1}},
		GridPoints:     []int{2, 2, 2},
		CLUT:           []float64{0, 0, 0, 0, 1, 1, 1, 1},
		ACurves:        []*Curve{{Gamma: 2}},
	}
	data, err := encodeLutAB(lut)
	if err != nil {
		t.Fatalf("encodeLutAB failed: %v", err)
	}
	back, err := parseLutAB(data)
	if err != nil {
		t.Fatalf("parseLutAB failed: %v", err)
	}
	if !back.BToA {
		t.Fatalf("expected mBA tag")
	}
	out, _ := back.Convert([]float64{0.5, 0.9, 0.1})
	if math.Abs(out[0]-0.25) > 0.001 {
		t.Errorf("expected 0.25, got %f", out[0])
	}
}

func TestParseMFT2(t *testing.T) {
	// 1 input, 1 output, 2 grid points, 2-entry tables, inverted CLUT.
	data := make([]byte, 52+4+4+4)
	copy(data[0:4], "mft2")
	data[8], data[9], data[10] = 1, 1, 2
	for i := 0; i < 9; i += 4 {
		putS15(data[12+4*i:], 1)
	}
	data[49], data[51] = 2, 2
	vals := []uint16{0, 0xffff, 0xffff, 0, 0, 0xffff}
	for i, v := range vals {
		data[52+2*i] = byte(v >> 8)
		data[53+2*i] = byte(v)
	}
	lut, err := parseMFT(data, 2)
	if err != nil {
		t.Fatalf("parseMFT failed: %v", err)
	}
	out, err := lut.Convert([]float64{0.25})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if math.Abs(out[0]-0.75) > 0.001 {
		t.Errorf("expected 0.75, got %f", out[0])
	}
}

func putS15(b []byte, v float64) {
	u := floatToS15Fixed16(v)
	b[0], b[1], b[2], b[3] = byte(u>>24), byte(u>>16), byte(u>>8), byte(u)
}
