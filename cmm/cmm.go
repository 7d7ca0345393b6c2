package cmm

// Profile represents a color profile (e.g., ICC).
type Profile interface {
	// Name returns the profile description or name.
	Name() string
	// ColorSpace returns the color space signature (e.g., "RGB ", "CMYK").
	ColorSpace() string
	// Class returns the profile class (e.g., "mntr", "prtr").
	Class() string
	// Data returns the raw profile bytes.
	Data() []byte
}

// Transform represents a color transformation between two profiles.
type Transform interface {
	// Convert transforms a color value from source to destination space.
	Convert(src []float64) ([]float64, error)
}

// Factory creates profiles, transforms and links.
type Factory interface {
	NewProfile(data []byte) (Profile, error)
	NewTransform(src, dst Profile, intent RenderingIntent) (Transform, error)
	LinkBuilder
}

// LinkBuilder builds a Link between a source and a destination profile.
type LinkBuilder interface {
	BuildLink(src, dst Profile, params RenderingParams) (Link, error)
}

// RenderingIntent specifies the rendering intent for color conversion.
type RenderingIntent int

const (
	IntentPerceptual RenderingIntent = iota
	IntentRelativeColorimetric
	IntentSaturation
	IntentAbsoluteColorimetric
)

// IntentNotSpecified is reported by device profiles that leave the intent to
// the source object.
const IntentNotSpecified RenderingIntent = -1

// IntentOverride marks a requested intent that must win over the intent
// recorded on the device profile.
const IntentOverride RenderingIntent = 0x10

const intentMask RenderingIntent = 0x0f

// Base strips the override flag.
func (i RenderingIntent) Base() RenderingIntent {
	if i < 0 {
		return i
	}
	return i & intentMask
}

func (i RenderingIntent) String() string {
	switch i.Base() {
	case IntentPerceptual:
		return "perceptual"
	case IntentRelativeColorimetric:
		return "relative"
	case IntentSaturation:
		return "saturation"
	case IntentAbsoluteColorimetric:
		return "absolute"
	case IntentNotSpecified:
		return "unspecified"
	}
	return "unknown"
}

// ParseIntent maps the command line / PDF intent names to a RenderingIntent.
func ParseIntent(name string) (RenderingIntent, bool) {
	switch name {
	case "perceptual", "Perceptual":
		return IntentPerceptual, true
	case "relative", "RelativeColorimetric":
		return IntentRelativeColorimetric, true
	case "saturation", "Saturation":
		return IntentSaturation, true
	case "absolute", "AbsoluteColorimetric":
		return IntentAbsoluteColorimetric, true
	}
	return IntentPerceptual, false
}

// BlackPointComp selects black point compensation.
type BlackPointComp int

const (
	BPCOff BlackPointComp = iota
	BPCOn
	BPCNotSpecified BlackPointComp = -1
	BPCOverride     BlackPointComp = 0x10
)

// PreserveBlack selects K preservation for CMYK to CMYK links.
type PreserveBlack int

const (
	PreserveBlackOff PreserveBlack = iota
	PreserveBlackKOnly
	PreserveBlackKPlane
	PreserveBlackNotSpecified PreserveBlack = -1
	PreserveBlackOverride     PreserveBlack = 0x10
)

// Selector names the CMM that should service a link request.
type Selector int

const (
	CMMDefault Selector = iota
	CMMNone
	CMMReplace
)

// RenderingParams is the fixed record that drives link construction.
type RenderingParams struct {
	BlackPointCompensation BlackPointComp
	Intent                 RenderingIntent
	PreserveBlack          PreserveBlack
	CMM                    Selector
	GraphicsTypeTag        uint8
	OverrideICC            bool
}

// DataColorSpace is the data color space recorded on a profile.
type DataColorSpace int

const (
	DataUndefined DataColorSpace = iota
	DataGray
	DataRGB
	DataCMYK
	DataCIELAB
	DataCIEXYZ
	DataNChannel
	DataNamed
)

func (d DataColorSpace) String() string {
	switch d {
	case DataGray:
		return "Gray"
	case DataRGB:
		return "RGB"
	case DataCMYK:
		return "CMYK"
	case DataCIELAB:
		return "Lab"
	case DataCIEXYZ:
		return "XYZ"
	case DataNChannel:
		return "NChannel"
	case DataNamed:
		return "Named"
	}
	return "Undefined"
}

// DataColorSpaceFromSignature maps an ICC header color space signature.
func DataColorSpaceFromSignature(sig string) DataColorSpace {
	switch sig {
	case "GRAY":
		return DataGray
	case "RGB ":
		return DataRGB
	case "CMYK":
		return DataCMYK
	case "Lab ":
		return DataCIELAB
	case "XYZ ":
		return DataCIEXYZ
	}
	if len(sig) == 4 && sig[1:] == "CLR" {
		return DataNChannel
	}
	return DataUndefined
}

// DefaultMatch records which color space family a profile stands in for.
type DefaultMatch int

const (
	MatchDefault DefaultMatch = iota
	MatchCIEA
	MatchCIEABC
	MatchCIEDEF
	MatchCIEDEFG
	MatchDeviceGray
	MatchDeviceRGB
	MatchDeviceCMYK
	MatchLab
)

func (m DefaultMatch) String() string {
	switch m {
	case MatchCIEA:
		return "CIE_A"
	case MatchCIEABC:
		return "CIE_ABC"
	case MatchCIEDEF:
		return "CIE_DEF"
	case MatchCIEDEFG:
		return "CIE_DEFG"
	case MatchDeviceGray:
		return "DEFAULT_GRAY"
	case MatchDeviceRGB:
		return "DEFAULT_RGB"
	case MatchDeviceCMYK:
		return "DEFAULT_CMYK"
	case MatchLab:
		return "LAB_TYPE"
	}
	return "DEFAULT_NONE"
}
