package cmm

import (
	"encoding/xml"
)

// CxF represents the root of a CxF document.
type CxF struct {
	XMLName   xml.Name  `xml:"CxF"`
	Resources Resources `xml:"Resources"`
}

type Resources struct {
	ObjectCollection ObjectCollection `xml:"ObjectCollection"`
}

type ObjectCollection struct {
	Objects []Object `xml:"Object"`
}

type Object struct {
	Name        string      `xml:"Name,attr"`
	ColorValues ColorValues `xml:"ColorValues"`
}

type ColorValues struct {
	ColorCIELab *ColorCIELab `xml:"ColorCIELab"`
}

type ColorCIELab struct {
	L float64 `xml:"L"`
	A float64 `xml:"A"`
	B float64 `xml:"B"`
}

// ParseCxF parses CxF XML data.
func ParseCxF(data []byte) (*CxF, error) {
	var cxf CxF
	if err := xml.Unmarshal(data, &cxf); err != nil {
		return nil, err
	}
	return &cxf, nil
}

// NamedColors maps every object carrying CIELab values to L*a*b*.
func (c *CxF) NamedColors() map[string][3]float64 {
	out := make(map[string][3]float64, len(c.Resources.ObjectCollection.Objects))
	for _, obj := range c.Resources.ObjectCollection.Objects {
		if lab := obj.ColorValues.ColorCIELab; lab != nil && obj.Name != "" {
			out[obj.Name] = [3]float64{lab.L, lab.A, lab.B}
		}
	}
	return out
}

// Lookup returns the L*a*b* value of a named object.
func (c *CxF) Lookup(name string) ([3]float64, bool) {
	for _, obj := range c.Resources.ObjectCollection.Objects {
		if obj.Name == name && obj.ColorValues.ColorCIELab != nil {
			lab := obj.ColorValues.ColorCIELab
			return [3]float64{lab.L, lab.A, lab.B}, true
		}
	}
	return [3]float64{}, false
}
