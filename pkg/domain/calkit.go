package domain

import "strings"

// Bounds of the flattened calibration kit representation.
const (
	MaxCalStandards   = 8
	MaxCalClasses     = 22
	MaxKitLabel       = 40
	MaxKitDescription = 250
	// MaxStandardLabel is the stored width of a standard label in bytes.
	MaxStandardLabel = 31
	// MaxClassLabel matches the instrument softkey label width.
	MaxClassLabel = 10
)

// StandardType identifies the kind of physical calibration standard.
type StandardType uint8

const (
	StandardUnknown StandardType = iota
	StandardOpen
	StandardShort
	StandardFixedLoad
	StandardThru
	StandardSlidingLoad
	StandardArbitraryImpedance
)

var standardTypeNames = [...]string{
	StandardUnknown:            "unknown",
	StandardOpen:               "open",
	StandardShort:              "short",
	StandardFixedLoad:          "fixed-load",
	StandardThru:               "thru",
	StandardSlidingLoad:        "sliding-load",
	StandardArbitraryImpedance: "arbitrary-impedance-load",
}

func (t StandardType) String() string {
	if int(t) < len(standardTypeNames) {
		return standardTypeNames[t]
	}
	return standardTypeNames[StandardUnknown]
}

// ConnectorType distinguishes coaxial from waveguide media.
type ConnectorType uint8

const (
	ConnectorUnknown ConnectorType = iota
	ConnectorCoaxial
	ConnectorWaveguide
)

func (c ConnectorType) String() string {
	switch c {
	case ConnectorCoaxial:
		return "coaxial"
	case ConnectorWaveguide:
		return "waveguide"
	default:
		return "unknown"
	}
}

// Gender of a connector family.
type Gender uint8

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
	GenderNone
)

// ParseGender maps a document gender string to a Gender.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	case "none", "no gender", "sexless":
		return GenderNone
	default:
		return GenderUnknown
	}
}

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	case GenderNone:
		return "none"
	default:
		return "unknown"
	}
}

// Offset is the transmission-line offset of a standard.
type Offset struct {
	Delay float64 `yaml:"delay"`
	Loss  float64 `yaml:"loss"`
	Z0    float64 `yaml:"z0"`
}

// Impedance is a complex impedance in ohms.
type Impedance struct {
	Real float64 `yaml:"real"`
	Imag float64 `yaml:"imag"`
}

// CalibrationStandard is one physical standard of a kit. The validity flags record which
// sub-groups were specified so that a partially described standard round-trips unchanged.
type CalibrationStandard struct {
	Number           int           `yaml:"number"`
	Type             StandardType  `yaml:"type"`
	ConnectorType    ConnectorType `yaml:"connector"`
	Label            string        `yaml:"label"`
	MinFrequency     float64       `yaml:"min_frequency"`
	MaxFrequency     float64       `yaml:"max_frequency"`
	L                [4]float64    `yaml:"l,flow"`
	C                [4]float64    `yaml:"c,flow"`
	Offset           Offset        `yaml:"offset"`
	Termination      Impedance     `yaml:"termination"`
	ArbitraryZ0      float64       `yaml:"arbitrary_z0"`
	OffsetValid      bool          `yaml:"offset_valid"`
	TerminationValid bool          `yaml:"termination_valid"`
	Valid            bool          `yaml:"valid"`
}

// CalibrationConnector describes a connector family declared by a kit document.
type CalibrationConnector struct {
	Type             ConnectorType `yaml:"type"`
	Gender           Gender        `yaml:"gender"`
	Family           string        `yaml:"family"`
	MinFrequency     float64       `yaml:"min_frequency"`
	MaxFrequency     float64       `yaml:"max_frequency"`
	CutoffFrequency  float64       `yaml:"cutoff_frequency,omitempty"`
	HeightWidthRatio float64       `yaml:"height_width_ratio,omitempty"`
	SystemZ0         float64       `yaml:"system_z0"`
}

// ClassID indexes the well-known calibration classes. The numeric order is the slot order
// of CalibrationKit.Classes.
type ClassID int

const (
	ClassS11A ClassID = iota
	ClassS11B
	ClassS11C
	ClassS22A
	ClassS22B
	ClassS22C
	ClassFwdTrans
	ClassFwdMatch
	ClassRevTrans
	ClassRevMatch
	ClassResponse
	ClassResponseIsolation
	ClassTRLReflectFwdMatch
	ClassTRLReflectRevMatch
	ClassTRLLineFwdMatch
	ClassTRLLineFwdTrans
	ClassTRLLineRevMatch
	ClassTRLLineRevTrans
	ClassTRLThruFwdMatch
	ClassTRLThruFwdTrans
	ClassTRLThruRevMatch
	ClassTRLThruRevTrans
)

var classNames = [MaxCalClasses]string{
	"S11A", "S11B", "S11C", "S22A", "S22B", "S22C",
	"FWDTRANS", "FWDMATCH", "REVTRANS", "REVMATCH",
	"RESPONSE", "RESPONSEISOL",
	"TRLREFLECTFWDMATCH", "TRLREFLECTREVMATCH",
	"TRLLINEFWDMATCH", "TRLLINEFWDTRANS", "TRLLINEREVMATCH", "TRLLINEREVTRANS",
	"TRLTHRUFWDMATCH", "TRLTHRUFWDTRANS", "TRLTHRUREVMATCH", "TRLTHRUREVTRANS",
}

func (c ClassID) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return "UNKNOWN"
}

// LookupClass matches a class identifier against the well-known table, ignoring case and
// surrounding whitespace.
func LookupClass(id string) (ClassID, bool) {
	id = strings.TrimSpace(id)
	for i, name := range classNames {
		if strings.EqualFold(name, id) {
			return ClassID(i), true
		}
	}
	return 0, false
}

// CalibrationClass lists, in measurement order, the slot indices of the standards used for
// one class.
type CalibrationClass struct {
	Label     string `yaml:"label"`
	Standards []int  `yaml:"standards,flow"`
	Specified bool   `yaml:"specified"`
}

// CalibrationKit is the flattened, bounded kit representation. Label is the identity.
type CalibrationKit struct {
	Label       string                               `yaml:"label"`
	Description string                               `yaml:"description"`
	Standards   [MaxCalStandards]CalibrationStandard `yaml:"standards"`
	Classes     [MaxCalClasses]CalibrationClass      `yaml:"classes"`
}

// NumStandards counts the occupied standard slots.
func (k *CalibrationKit) NumStandards() int {
	n := 0
	for i := range k.Standards {
		if k.Standards[i].Valid {
			n++
		}
	}
	return n
}

// KitSummary is the inventory projection of a stored kit.
type KitSummary struct {
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}
