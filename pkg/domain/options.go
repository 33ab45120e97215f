package domain

// OptionsID is the fixed key of the options singleton row.
const OptionsID = 0

// LearnStringIndexes caches the byte offsets of settings found by analysing a learn
// string from the connected instrument firmware. It is persisted as a binary image.
type LearnStringIndexes struct {
	Firmware    int32 `yaml:"firmware"`
	SweepStart  int32 `yaml:"sweep_start"`
	SweepStop   int32 `yaml:"sweep_stop"`
	IFBandwidth int32 `yaml:"if_bandwidth"`
	CWFrequency int32 `yaml:"cw_frequency"`
	SweepType   int32 `yaml:"sweep_type"`
	NPoints     int32 `yaml:"npoints"`
	Markers     int32 `yaml:"markers"`
}

// ProgramOptions is the global options singleton.
type ProgramOptions struct {
	Flags            OptionFlags `yaml:"flags"`
	GPIBDeviceName   string      `yaml:"gpib_device_name"`
	GPIBControllerID int         `yaml:"gpib_controller"`
	GPIBDevicePID    int         `yaml:"gpib_device_pid"`
	// PrintSettings and PageSetup are serialized by the UI layer and stored verbatim.
	PrintSettings      []byte             `yaml:"-"`
	PageSetup          []byte             `yaml:"-"`
	LastDirectory      string             `yaml:"last_directory"`
	CalProfile         string             `yaml:"cal_profile"`
	TraceProfile       string             `yaml:"trace_profile"`
	LearnStringIndexes LearnStringIndexes `yaml:"learn_string_indexes"`
	Product            string             `yaml:"product"`
}

// DefaultProgramOptions returns the options used when none have been saved.
func DefaultProgramOptions() ProgramOptions {
	return ProgramOptions{
		Flags:            OptionFlags{SmoothSplines: true, ShowDateTime: true},
		GPIBDeviceName:   "hp8753",
		GPIBDevicePID:    16,
		GPIBControllerID: 0,
	}
}
