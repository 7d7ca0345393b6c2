package cmm

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/text/encoding/unicode"
)

// ProfileWriter assembles an ICC v4 profile. Tags are written in the order
// they were added; the output is deterministic for identical input so equal
// profiles hash equal.
type ProfileWriter struct {
	Class      string
	ColorSpace string
	PCS        string
	Intent     RenderingIntent

	tags []writtenTag
}

type writtenTag struct {
	sig  string
	data []byte
}

const profileVersion = 0x04300000

// NewProfileWriter starts a profile of the given class and spaces.
func NewProfileWriter(class, colorSpace, pcs string) *ProfileWriter {
	return &ProfileWriter{Class: class, ColorSpace: colorSpace, PCS: pcs}
}

// AddTag adds raw tag data, replacing an earlier tag with the same signature.
func (w *ProfileWriter) AddTag(sig string, data []byte) {
	for i := range w.tags {
		if w.tags[i].sig == sig {
			w.tags[i].data = data
			return
		}
	}
	w.tags = append(w.tags, writtenTag{sig: sig, data: data})
}

// AddText adds an en-US multiLocalizedUnicodeType tag.
func (w *ProfileWriter) AddText(sig, text string) error {
	data, err := encodeMLUC(text)
	if err != nil {
		return fmt.Errorf("encode %s: %w", sig, err)
	}
	w.AddTag(sig, data)
	return nil
}

func (w *ProfileWriter) AddXYZ(sig string, xyz [3]float64) {
	w.AddTag(sig, encodeXYZ(xyz))
}

func (w *ProfileWriter) AddCurve(sig string, c *Curve) {
	w.AddTag(sig, encodeCurve(c))
}

// AddLutAB adds an mAB or mBA tag.
func (w *ProfileWriter) AddLutAB(sig string, lut *LutAB) error {
	data, err := encodeLutAB(lut)
	if err != nil {
		return fmt.Errorf("encode %s: %w", sig, err)
	}
	w.AddTag(sig, data)
	return nil
}

// Bytes serializes the profile and stamps the profile ID.
func (w *ProfileWriter) Bytes() ([]byte, error) {
	if len(w.Class) != 4 || len(w.ColorSpace) != 4 || len(w.PCS) != 4 {
		return nil, errors.New("profile class and spaces must be four characters")
	}
	if len(w.tags) == 0 {
		return nil, errors.New("profile has no tags")
	}

	offset := 128 + 4 + 12*len(w.tags)
	offsets := make([]int, len(w.tags))
	for i, t := range w.tags {
		offset = align4(offset)
		offsets[i] = offset
		offset += len(t.data)
	}
	buf := make([]byte, align4(offset))

	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)))
	binary.BigEndian.PutUint32(buf[8:12], profileVersion)
	copy(buf[12:16], w.Class)
	copy(buf[16:20], w.ColorSpace)
	copy(buf[20:24], w.PCS)
	copy(buf[36:40], "acsp")
	binary.BigEndian.PutUint32(buf[64:68], uint32(w.Intent.Base()))
	binary.BigEndian.PutUint32(buf[68:72], floatToS15Fixed16(D50X))
	binary.BigEndian.PutUint32(buf[72:76], floatToS15Fixed16(D50Y))
	binary.BigEndian.PutUint32(buf[76:80], floatToS15Fixed16(D50Z))
	copy(buf[80:84], "wudi")

	binary.BigEndian.PutUint32(buf[128:132], uint32(len(w.tags)))
	for i, t := range w.tags {
		entry := 132 + 12*i
		copy(buf[entry:entry+4], t.sig)
		binary.BigEndian.PutUint32(buf[entry+4:], uint32(offsets[i]))
		binary.BigEndian.PutUint32(buf[entry+8:], uint32(len(t.data)))
		copy(buf[offsets[i]:], t.data)
	}

	id := profileID(buf)
	copy(buf[84:100], id[:])
	return buf, nil
}

// profileID is the MD5 of the profile with flags, intent and ID zeroed.
func profileID(buf []byte) [16]byte {
	tmp := make([]byte, len(buf))
	copy(tmp, buf)
	clear(tmp[44:48])
	clear(tmp[64:68])
	clear(tmp[84:100])
	return md5.Sum(tmp)
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func encodeXYZ(xyz [3]float64) []byte {
	b := make([]byte, 20)
	copy(b[0:4], "XYZ ")
	for i, v := range xyz {
		binary.BigEndian.PutUint32(b[8+4*i:], floatToS15Fixed16(v))
	}
	return b
}

func encodeMLUC(text string) ([]byte, error) {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	str, err := enc.Bytes([]byte(text))
	if err != nil {
		return nil, err
	}
	b := make([]byte, 28+len(str))
	copy(b[0:4], "mluc")
	binary.BigEndian.PutUint32(b[8:12], 1)
	binary.BigEndian.PutUint32(b[12:16], 12)
	copy(b[16:18], "en")
	copy(b[18:20], "US")
	binary.BigEndian.PutUint32(b[20:24], uint32(len(str)))
	binary.BigEndian.PutUint32(b[24:28], 28)
	copy(b[28:], str)
	return b, nil
}

func encodeCurve(c *Curve) []byte {
	switch {
	case c == nil || c.IsIdentity():
		b := make([]byte, 12)
		copy(b[0:4], "curv")
		return b
	case c.Params != nil:
		b := make([]byte, 12+4*len(c.Params))
		copy(b[0:4], "para")
		binary.BigEndian.PutUint16(b[8:10], uint16(c.FuncType))
		for i, p := range c.Params {
			binary.BigEndian.PutUint32(b[12+4*i:], floatToS15Fixed16(p))
		}
		return b
	case c.Table != nil:
		b := make([]byte, 12+2*len(c.Table))
		copy(b[0:4], "curv")
		binary.BigEndian.PutUint32(b[8:12], uint32(len(c.Table)))
		for i, v := range c.Table {
			binary.BigEndian.PutUint16(b[12+2*i:], v)
		}
		return b
	}
	b := make([]byte, 14)
	copy(b[0:4], "curv")
	binary.BigEndian.PutUint32(b[8:12], 1)
	binary.BigEndian.PutUint16(b[12:14], uint16(c.Gamma*256+0.5))
	return b
}

func encodeCurves(curves []*Curve, count int) []byte {
	var buf []byte
	for i := 0; i < count; i++ {
		var c *Curve
		if i < len(curves) {
			c = curves[i]
		}
		data := encodeCurve(c)
		for len(data)%4 != 0 {
			data = append(data, 0)
		}
		buf = append(buf, data...)
	}
	return buf
}

func encodeLutAB(lut *LutAB) ([]byte, error) {
	if lut.InputChannels < 1 || lut.OutputChannels < 1 || lut.InputChannels > 15 || lut.OutputChannels > 15 {
		return nil, errors.New("lutAB channel counts out of range")
	}
	aCount, bCount := lut.InputChannels, lut.OutputChannels
	if lut.BToA {
		aCount, bCount = bCount, aCount
	}

	var (
		parts   [5][]byte
		offsets [5]int
	)
	// Header slots in order: B curves, matrix, M curves, CLUT, A curves.
	if len(lut.BCurves) > 0 {
		parts[0] = encodeCurves(lut.BCurves, bCount)
	}
	if lut.Matrix != nil {
		if len(lut.Matrix) != 12 {
			return nil, errors.New("lutAB matrix must have 12 entries")
		}
		m := make([]byte, 48)
		for i, v := range lut.Matrix {
			binary.BigEndian.PutUint32(m[4*i:], floatToS15Fixed16(v))
		}
		parts[1] = m
	}
	if len(lut.MCurves) > 0 {
		parts[2] = encodeCurves(lut.MCurves, 3)
	}
	if lut.CLUT != nil {
		clut, err := encodeCLUT(lut.GridPoints, lut.OutputChannels, lut.CLUT)
		if err != nil {
			return nil, err
		}
		parts[3] = clut
	}
	if len(lut.ACurves) > 0 {
		parts[4] = encodeCurves(lut.ACurves, aCount)
	}

	offset := 32
	for i, p := range parts {
		if p == nil {
			continue
		}
		offset = align4(offset)
		offsets[i] = offset
		offset += len(p)
	}
	buf := make([]byte, align4(offset))
	if lut.BToA {
		copy(buf[0:4], "mBA ")
	} else {
		copy(buf[0:4], "mAB ")
	}
	buf[8] = byte(lut.InputChannels)
	buf[9] = byte(lut.OutputChannels)
	for i, p := range parts {
		binary.BigEndian.PutUint32(buf[12+4*i:], uint32(offsets[i]))
		if p != nil {
			copy(buf[offsets[i]:], p)
		}
	}
	return buf, nil
}

func encodeCLUT(grid []int, outCh int, clut []float64) ([]byte, error) {
	if len(grid) > 16 {
		return nil, errors.New("CLUT has too many dimensions")
	}
	n := outCh * gridSize(grid)
	if len(clut) != n {
		return nil, fmt.Errorf("CLUT has %d values, grid needs %d", len(clut), n)
	}
	b := make([]byte, 20+2*n)
	for i, g := range grid {
		if g < 1 || g > 255 {
			return nil, fmt.Errorf("CLUT grid size %d out of range", g)
		}
		b[i] = byte(g)
	}
	b[16] = 2
	for i, v := range clut {
		binary.BigEndian.PutUint16(b[20+2*i:], floatToUshort(v))
	}
	return b, nil
}

// NewMatrixTRCProfile builds an RGB display profile from D50 adapted
// primaries and one tone curve shared by the three channels.
func NewMatrixTRCProfile(desc string, red, green, blue [3]float64, trc *Curve) ([]byte, error) {
	w := NewProfileWriter("mntr", "RGB ", "XYZ ")
	if err := w.AddText("desc", desc); err != nil {
		return nil, err
	}
	w.AddXYZ("wtpt", [3]float64{D50X, D50Y, D50Z})
	w.AddXYZ("rXYZ", red)
	w.AddXYZ("gXYZ", green)
	w.AddXYZ("bXYZ", blue)
	w.AddCurve("rTRC", trc)
	w.AddCurve("gTRC", trc)
	w.AddCurve("bTRC", trc)
	return w.Bytes()
}

// NewGrayProfile builds a gray display profile from a kTRC curve.
func NewGrayProfile(desc string, trc *Curve) ([]byte, error) {
	w := NewProfileWriter("mntr", "GRAY", "XYZ ")
	if err := w.AddText("desc", desc); err != nil {
		return nil, err
	}
	w.AddXYZ("wtpt", [3]float64{D50X, D50Y, D50Z})
	w.AddCurve("kTRC", trc)
	return w.Bytes()
}

// NewLabProfile builds the Lab identity profile used for Lab sources.
func NewLabProfile() ([]byte, error) {
	w := NewProfileWriter("abst", "Lab ", "Lab ")
	if err := w.AddText("desc", "Lab identity"); err != nil {
		return nil, err
	}
	w.AddXYZ("wtpt", [3]float64{D50X, D50Y, D50Z})
	return w.Bytes()
}

var (
	srgbOnce sync.Once
	srgbData []byte
	srgbErr  error
)

// SRGBProfile returns a shared sRGB matrix/TRC profile.
func SRGBProfile() (*ICCProfile, error) {
	srgbOnce.Do(func() {
		srgbData, srgbErr = NewMatrixTRCProfile("sRGB IEC61966-2.1",
			[3]float64{0.4361, 0.2225, 0.0139},
			[3]float64{0.3851, 0.7169, 0.0971},
			[3]float64{0.1431, 0.0606, 0.7141},
			&Curve{FuncType: 3, Params: []float64{2.4, 1 / 1.055, 0.055 / 1.055, 1 / 12.92, 0.04045}})
	})
	if srgbErr != nil {
		return nil, srgbErr
	}
	return NewICCProfile(srgbData)
}
