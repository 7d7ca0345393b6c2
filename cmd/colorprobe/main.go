package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/colorspace"
	"github.com/wudi/pdfcolor/device"
	"github.com/wudi/pdfcolor/observability"
	"github.com/wudi/pdfcolor/scripting"
)

type options struct {
	space      string
	white      [3]float64
	rng        colorspace.Range
	color      []float64
	corner     []float64
	crd        bool
	intent     cmm.RenderingIntent
	iccOut     string
	cxfPath    string
	spot       string
	scriptPath string
	smoothness float64
	verbose    bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "colorprobe: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "colorprobe: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: go run ./cmd/colorprobe [flags] <component,...>\n")
		flag.PrintDefaults()
	}
	space := flag.String("space", "abc", "CIE space family: a, abc, def or defg")
	white := flag.String("white", "0.9642,1,0.8249", "White point X,Y,Z")
	rng := flag.String("range", "0,1", "Range min,max applied to every input component")
	corner := flag.String("linear", "", "Second corner; report whether the link is linear between it and the color")
	smoothness := flag.Float64("smoothness", 0, "Linearity tolerance as a fraction of full scale")
	crd := flag.Bool("crd", false, "Render natively through a D50 von Kries CRD instead of stopping at XYZ")
	intent := flag.String("intent", "perceptual", "Rendering intent: perceptual, relative, saturation or absolute")
	iccOut := flag.String("icc-out", "", "Write the synthesized ICC profile to this file")
	cxfPath := flag.String("cxf", "", "CxF document with named colors")
	spot := flag.String("spot", "", "Spot name offered to color replacers")
	scriptPath := flag.String("script", "", "JavaScript file defining replace(color)")
	verbose := flag.Bool("v", false, "Log debug output to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing color components")
	}
	var err error
	if opts.color, err = parseFloats(flag.Arg(0), -1); err != nil {
		return options{}, fmt.Errorf("color: %w", err)
	}
	w, err := parseFloats(*white, 3)
	if err != nil {
		return options{}, fmt.Errorf("white: %w", err)
	}
	copy(opts.white[:], w)
	r, err := parseFloats(*rng, 2)
	if err != nil {
		return options{}, fmt.Errorf("range: %w", err)
	}
	opts.rng = colorspace.Range{Min: r[0], Max: r[1]}
	if *corner != "" {
		if opts.corner, err = parseFloats(*corner, len(opts.color)); err != nil {
			return options{}, fmt.Errorf("linear: %w", err)
		}
	}
	var ok bool
	if opts.intent, ok = cmm.ParseIntent(*intent); !ok {
		return options{}, fmt.Errorf("unknown intent %q", *intent)
	}
	opts.space = strings.ToLower(*space)
	opts.crd = *crd
	opts.iccOut = *iccOut
	opts.cxfPath = *cxfPath
	opts.spot = *spot
	opts.scriptPath = *scriptPath
	opts.smoothness = *smoothness
	opts.verbose = *verbose
	return opts, nil
}

// parseFloats splits a comma separated list; want < 0 accepts any length.
func parseFloats(s string, want int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if want >= 0 && len(parts) != want {
		return nil, fmt.Errorf("want %d values, got %d", want, len(parts))
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// identityTable maps every table input straight onto the first three
// outputs.
func identityTable(n int) (*colorspace.ColorLookupTable, error) {
	dims := make([]int, n)
	for i := range dims {
		dims[i] = 2
	}
	data := make([]byte, 0, 3<<n)
	for idx := 0; idx < 1<<n; idx++ {
		for k := 0; k < 3; k++ {
			data = append(data, byte(255*((idx>>(n-1-k))&1)))
		}
	}
	return colorspace.NewColorLookupTable(dims, 3, data)
}

func buildSpace(opts options) (colorspace.CIESpace, error) {
	common := colorspace.Common{WhitePoint: opts.white}
	r := opts.rng
	switch opts.space {
	case "a":
		return colorspace.NewCIEA(colorspace.CIEAParams{RangeA: r, MatrixA: opts.white, Common: common})
	case "abc":
		return colorspace.NewCIEABC(colorspace.CIEABCParams{
			ABC:    colorspace.ABC{RangeABC: [3]colorspace.Range{r, r, r}},
			Common: common,
		})
	case "def":
		tbl, err := identityTable(3)
		if err != nil {
			return nil, err
		}
		return colorspace.NewCIEDEF(colorspace.CIEDEFParams{
			RangeDEF: [3]colorspace.Range{r, r, r},
			Table:    tbl,
			Common:   common,
		})
	case "defg":
		tbl, err := identityTable(4)
		if err != nil {
			return nil, err
		}
		return colorspace.NewCIEDEFG(colorspace.CIEDEFGParams{
			RangeDEFG: [4]colorspace.Range{r, r, r, r},
			Table:     tbl,
			Common:    common,
		})
	}
	return nil, fmt.Errorf("unknown space %q", opts.space)
}

func run(ctx context.Context, opts options, out io.Writer) error {
	var logger observability.Logger = observability.NopLogger{}
	if opts.verbose {
		logger = observability.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cs, err := buildSpace(opts)
	if err != nil {
		return fmt.Errorf("build space: %w", err)
	}
	if len(opts.color) != cs.NumComponents() {
		return fmt.Errorf("%s takes %d components, got %d", cs.Name(), cs.NumComponents(), len(opts.color))
	}

	cfg := colorspace.Config{Logger: logger, Intent: opts.intent}
	if opts.scriptPath != "" {
		src, err := os.ReadFile(opts.scriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		repl, err := scripting.NewColorReplacer(ctx, string(src), logger)
		if err != nil {
			return err
		}
		cfg.Replacer = repl
	}
	st := colorspace.NewState(cfg)

	if opts.crd {
		if err := st.SetCRD(&colorspace.CRD{WhitePoint: colorspace.D50White, TransformPQR: colorspace.VonKries}); err != nil {
			return fmt.Errorf("set CRD: %w", err)
		}
	} else {
		st.SetCIEToXYZ(true)
	}
	fr, xyz, status, err := colorspace.PSConcretize(ctx, cs, opts.color, st)
	if err != nil {
		return fmt.Errorf("concretize: %w", err)
	}
	fmt.Fprintf(out, "space: %s (id %d)\n", cs.Name(), cs.ID())
	if status == colorspace.StatusNoop {
		fmt.Fprintln(out, "native: no rendering")
	} else {
		fmt.Fprintf(out, "native: %s\n", formatFracs(fr))
	}
	if !opts.crd {
		fmt.Fprintf(out, "xyz: %.4f %.4f %.4f\n", xyz[0], xyz[1], xyz[2])
	}

	srgb, err := cmm.SRGBProfile()
	if err != nil {
		return fmt.Errorf("sRGB profile: %w", err)
	}
	dev := device.NewMemoryDevice(srgb)
	if opts.cxfPath != "" {
		data, err := os.ReadFile(opts.cxfPath)
		if err != nil {
			return fmt.Errorf("read CxF: %w", err)
		}
		doc, err := cmm.ParseCxF(data)
		if err != nil {
			return fmt.Errorf("parse CxF: %w", err)
		}
		named, err := colorspace.NewNamedColorReplacer(doc, st)
		if err != nil {
			return err
		}
		dev.Replace = named
	}

	icc, err := cs.EnsureICCEquivalent(ctx, st)
	if err != nil {
		return err
	}
	icc.SpotName = opts.spot
	c, err := cs.Remap(ctx, opts.color, st, dev)
	if err != nil {
		return fmt.Errorf("remap: %w", err)
	}
	if c.Kind == device.KindPure {
		rgb := dev.Decode(c.Pure, 3)
		fmt.Fprintf(out, "sRGB: %d %d %d\n", rgb[0], rgb[1], rgb[2])
	} else {
		fmt.Fprintf(out, "device: %v\n", c.Components)
	}

	if opts.corner != nil {
		ok, err := cs.IsLinear(ctx, st, dev, [][]float64{opts.color, opts.corner}, opts.smoothness)
		if err != nil {
			return fmt.Errorf("linearity: %w", err)
		}
		fmt.Fprintf(out, "linear: %v\n", ok)
	}

	if opts.iccOut != "" {
		data, err := colorspace.SynthesizeProfile(ctx, cs, st)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.iccOut, data, 0o644); err != nil {
			return fmt.Errorf("write profile: %w", err)
		}
		fmt.Fprintf(out, "profile: %s (%d bytes)\n", opts.iccOut, len(data))
	}
	return nil
}

func formatFracs(fr []colorspace.Frac) string {
	parts := make([]string, len(fr))
	for i, f := range fr {
		parts[i] = strconv.FormatFloat(colorspace.FracToFloat(f), 'f', 4, 64)
	}
	return strings.Join(parts, " ")
}
