// Package domain holds the HP8753 data model shared by every layer: calibration kits,
// calibration and trace profiles, program options and their inventory summaries.
package domain

// NumChannels is the number of independent measurement channels.
const NumChannels = 2

// MaxCalArrays is the number of error-coefficient blocks a calibration can carry.
const MaxCalArrays = 12

// SweepType selects the instrument stimulus sweep.
type SweepType int

const (
	SweepLinearFrequency SweepType = iota
	SweepLogFrequency
	SweepListFrequency
	SweepCWTime
	SweepPower
)

func (s SweepType) String() string {
	switch s {
	case SweepLinearFrequency:
		return "linear"
	case SweepLogFrequency:
		return "log"
	case SweepListFrequency:
		return "list"
	case SweepCWTime:
		return "cw-time"
	case SweepPower:
		return "power"
	default:
		return "unknown"
	}
}

// CalType identifies the kind of calibration captured in a profile.
type CalType int

const (
	CalNone CalType = iota
	CalResponse
	CalResponseIsolation
	CalS11OnePort
	CalS22OnePort
	CalFullTwoPort
	CalOnePathTwoPort
	CalTRL
)

// ChannelCalibration holds the channel-scoped part of a calibration profile.
type ChannelCalibration struct {
	SweepStart  float64            `yaml:"sweep_start"`
	SweepStop   float64            `yaml:"sweep_stop"`
	IFBandwidth float64            `yaml:"if_bandwidth"`
	CWFrequency float64            `yaml:"cw_frequency"`
	SweepType   SweepType          `yaml:"sweep_type"`
	NPoints     int                `yaml:"npoints"`
	CalType     CalType            `yaml:"cal_type"`
	Settings    ChannelCalSettings `yaml:"settings"`
	// ErrorCoefficients are length-prefixed instrument blocks; nil entries are absent.
	ErrorCoefficients [MaxCalArrays][]byte `yaml:"-"`
}

// CalibrationProfile is one saved calibration. The profile-scoped fields are stored on the
// channel 0 row only.
type CalibrationProfile struct {
	Name     string      `yaml:"name"`
	Notes    string      `yaml:"notes"`
	Settings CalSettings `yaml:"settings"`
	// Learn is the instrument learn string block.
	Learn    []byte                          `yaml:"-"`
	Channels [NumChannels]ChannelCalibration `yaml:"channels"`
}

// ChannelSummary is the inventory projection of one calibration channel.
type ChannelSummary struct {
	SweepStart  float64            `yaml:"sweep_start"`
	SweepStop   float64            `yaml:"sweep_stop"`
	IFBandwidth float64            `yaml:"if_bandwidth"`
	CWFrequency float64            `yaml:"cw_frequency"`
	SweepType   SweepType          `yaml:"sweep_type"`
	NPoints     int                `yaml:"npoints"`
	CalType     CalType            `yaml:"cal_type"`
	Settings    ChannelCalSettings `yaml:"settings"`
}

// CalibrationSummary is the inventory projection of a stored calibration profile.
type CalibrationSummary struct {
	Name     string                      `yaml:"name"`
	Notes    string                      `yaml:"notes"`
	Settings CalSettings                 `yaml:"settings"`
	Channels [NumChannels]ChannelSummary `yaml:"channels"`
}

// Summary projects the profile onto its inventory record.
func (p *CalibrationProfile) Summary() CalibrationSummary {
	s := CalibrationSummary{Name: p.Name, Notes: p.Notes, Settings: p.Settings}
	for i := range p.Channels {
		ch := &p.Channels[i]
		s.Channels[i] = ChannelSummary{
			SweepStart:  ch.SweepStart,
			SweepStop:   ch.SweepStop,
			IFBandwidth: ch.IFBandwidth,
			CWFrequency: ch.CWFrequency,
			SweepType:   ch.SweepType,
			NPoints:     ch.NPoints,
			CalType:     ch.CalType,
			Settings:    ch.Settings,
		}
	}
	return s
}
