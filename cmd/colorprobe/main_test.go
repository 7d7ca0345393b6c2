package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/colorspace"
)

func TestParseFloats(t *testing.T) {
	got, err := parseFloats(" 0.5, 1,2 ", 3)
	if err != nil {
		t.Fatalf("parseFloats failed: %v", err)
	}
	if got[0] != 0.5 || got[1] != 1 || got[2] != 2 {
		t.Errorf("parseFloats = %v", got)
	}
	if _, err := parseFloats("1,2", 3); err == nil {
		t.Error("wrong count accepted")
	}
	if _, err := parseFloats("1,x", -1); err == nil {
		t.Error("non-number accepted")
	}
}

func baseOptions() options {
	return options{
		space:  "abc",
		white:  colorspace.D50White,
		rng:    colorspace.UnitRange,
		color:  []float64{0.25, 0.5, 0.75},
		intent: cmm.IntentPerceptual,
	}
}

func TestRunReportsXYZ(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), baseOptions(), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"space: CIEBasedABC", "xyz: 0.2500 0.5000 0.7500", "sRGB: "} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunWritesProfile(t *testing.T) {
	for _, space := range []string{"a", "abc", "def", "defg"} {
		t.Run(space, func(t *testing.T) {
			opts := baseOptions()
			opts.space = space
			opts.crd = true
			opts.color = make([]float64, map[string]int{"a": 1, "abc": 3, "def": 3, "defg": 4}[space])
			opts.iccOut = filepath.Join(t.TempDir(), "equivalent.icc")

			var out bytes.Buffer
			if err := run(context.Background(), opts, &out); err != nil {
				t.Fatalf("run failed: %v", err)
			}
			data, err := os.ReadFile(opts.iccOut)
			if err != nil {
				t.Fatalf("profile not written: %v", err)
			}
			p, err := cmm.NewICCProfile(data)
			if err != nil {
				t.Fatalf("profile does not parse: %v", err)
			}
			if p.Class() != "scnr" {
				t.Errorf("Class = %q", p.Class())
			}
			if !strings.Contains(out.String(), "native: ") {
				t.Errorf("native result missing:\n%s", out.String())
			}
		})
	}
}

func TestRunLinearity(t *testing.T) {
	opts := baseOptions()
	opts.corner = []float64{0.25, 0.5, 0.75}
	var out bytes.Buffer
	if err := run(context.Background(), opts, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "linear: true") {
		t.Errorf("a single point is linear:\n%s", out.String())
	}
}

func TestRunScriptReplacement(t *testing.T) {
	script := filepath.Join(t.TempDir(), "replace.js")
	src := `function replace(c) { return c.spot === "Logo" ? [0, 0, 1] : null; }`
	if err := os.WriteFile(script, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	opts := baseOptions()
	opts.scriptPath = script
	opts.spot = "Logo"
	var out bytes.Buffer
	if err := run(context.Background(), opts, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "sRGB: 0 0 255") {
		t.Errorf("script replacement not applied:\n%s", out.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*options)
	}{
		{"unknown space", func(o *options) { o.space = "lab" }},
		{"wrong component count", func(o *options) { o.color = []float64{0.1} }},
		{"bad white", func(o *options) { o.white = [3]float64{1, 2, 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := baseOptions()
			tt.mutate(&opts)
			if err := run(context.Background(), opts, &bytes.Buffer{}); err == nil {
				t.Error("run succeeded")
			}
		})
	}
}
