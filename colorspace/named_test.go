package colorspace

import (
	"context"
	"testing"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
)

const namedCxF = `<?xml version="1.0" encoding="UTF-8"?>
<CxF xmlns="http://colorexchangeformat.com/CxF3-core">
  <Resources>
    <ObjectCollection>
      <Object Name="Signal Red">
        <ColorValues>
          <ColorCIELab><L>54.29</L><A>80.80</A><B>69.89</B></ColorCIELab>
        </ColorValues>
      </Object>
      <Object Name="Paper">
        <ColorValues>
          <ColorCIELab><L>100</L><A>0</A><B>0</B></ColorCIELab>
        </ColorValues>
      </Object>
    </ObjectCollection>
  </Resources>
</CxF>`

func TestNamedColorReplacer(t *testing.T) {
	doc, err := cmm.ParseCxF([]byte(namedCxF))
	if err != nil {
		t.Fatalf("ParseCxF failed: %v", err)
	}
	st := newTestState(Config{})
	r, err := NewNamedColorReplacer(doc, st)
	if err != nil {
		t.Fatalf("NewNamedColorReplacer failed: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	dev, _ := srgbDevice(t)
	dev.Replace = r

	s := srgbSpace(t)
	s.SpotName = "Signal Red"
	cc := []float64{0, 0, 1}
	c, err := s.Remap(context.Background(), cc, st, dev)
	if err != nil {
		t.Fatalf("Remap failed: %v", err)
	}
	got := dev.Decode(c.Pure, 3)
	if got[0] < 200 || got[1] > 60 || got[2] > 60 {
		t.Errorf("named red rendered as %v", got)
	}
	if !c.ClientValid || c.SpaceID != s.ID() || c.Client[2] != 1 {
		t.Errorf("client of the requesting space not saved: %+v", c)
	}

	// Unknown names fall through to normal conversion.
	s.SpotName = "Unlisted"
	c, err = s.Remap(context.Background(), cc, st, dev)
	if err != nil {
		t.Fatalf("Remap failed: %v", err)
	}
	if got := dev.Decode(c.Pure, 3); got[0] != 0 || got[1] != 0 || got[2] != 255 {
		t.Errorf("unlisted spot rendered as %v, want [0 0 255]", got)
	}
}

func TestNamedColorReplacerIgnoresProcessColors(t *testing.T) {
	doc, err := cmm.ParseCxF([]byte(namedCxF))
	if err != nil {
		t.Fatalf("ParseCxF failed: %v", err)
	}
	st := newTestState(Config{})
	r, err := NewNamedColorReplacer(doc, st)
	if err != nil {
		t.Fatalf("NewNamedColorReplacer failed: %v", err)
	}
	dev, _ := srgbDevice(t)
	c, ok, err := r.ReplaceColor(device.ReplaceRequest{SpotName: "Paper", SpaceName: "Separation"}, dev)
	if err != nil || !ok {
		t.Fatalf("ReplaceColor(Paper) = %v, %v", ok, err)
	}
	if got := dev.Decode(c.Pure, 3); got[0] < 245 || got[1] < 245 || got[2] < 245 {
		t.Errorf("paper white rendered as %v", got)
	}
	if _, ok, _ := r.ReplaceColor(device.ReplaceRequest{Client: []float64{1, 1, 1}, SpaceName: "DeviceRGB"}, dev); ok {
		t.Error("color without a spot name was replaced")
	}
}
