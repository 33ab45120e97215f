package domain

// The settings records below are persisted as packed integer columns. Bit positions are part
// of the on-disk format and must not be reordered.

func setBit(v *uint32, pos uint, on bool) {
	if on {
		*v |= 1 << pos
	}
}

func bitSet(v uint32, pos uint) bool { return v&(1<<pos) != 0 }

// CalSettings are the profile-scoped calibration settings.
type CalSettings struct {
	DualChannel   bool `yaml:"dual_channel"`
	SourceCoupled bool `yaml:"source_coupled"`
	SplitDisplay  bool `yaml:"split_display"`
	AuxChannel    bool `yaml:"aux_channel"`
	// ActiveChannel is 0 or 1.
	ActiveChannel int `yaml:"active_channel"`
}

// Pack encodes the settings into their column value.
func (s CalSettings) Pack() uint32 {
	var v uint32
	setBit(&v, 0, s.DualChannel)
	setBit(&v, 1, s.SourceCoupled)
	setBit(&v, 2, s.SplitDisplay)
	setBit(&v, 3, s.AuxChannel)
	setBit(&v, 4, s.ActiveChannel == 1)
	return v
}

// UnpackCalSettings decodes a packed column value.
func UnpackCalSettings(v uint32) CalSettings {
	s := CalSettings{
		DualChannel:   bitSet(v, 0),
		SourceCoupled: bitSet(v, 1),
		SplitDisplay:  bitSet(v, 2),
		AuxChannel:    bitSet(v, 3),
	}
	if bitSet(v, 4) {
		s.ActiveChannel = 1
	}
	return s
}

// ChannelCalSettings are the per-channel calibration settings.
type ChannelCalSettings struct {
	Correction     bool `yaml:"correction"`
	Averaging      bool `yaml:"averaging"`
	Smoothing      bool `yaml:"smoothing"`
	Interpolation  bool `yaml:"interpolation"`
	AllSegments    bool `yaml:"all_segments"`
	SourcePowerSet bool `yaml:"source_power_set"`
}

// Pack encodes the settings into their column value.
func (s ChannelCalSettings) Pack() uint32 {
	var v uint32
	setBit(&v, 0, s.Correction)
	setBit(&v, 1, s.Averaging)
	setBit(&v, 2, s.Smoothing)
	setBit(&v, 3, s.Interpolation)
	setBit(&v, 4, s.AllSegments)
	setBit(&v, 5, s.SourcePowerSet)
	return v
}

// UnpackChannelCalSettings decodes a packed column value.
func UnpackChannelCalSettings(v uint32) ChannelCalSettings {
	return ChannelCalSettings{
		Correction:     bitSet(v, 0),
		Averaging:      bitSet(v, 1),
		Smoothing:      bitSet(v, 2),
		Interpolation:  bitSet(v, 3),
		AllSegments:    bitSet(v, 4),
		SourcePowerSet: bitSet(v, 5),
	}
}

// TraceFlags are the combined (both channel) trace flags.
type TraceFlags struct {
	DualChannel    bool `yaml:"dual_channel"`
	SplitDisplay   bool `yaml:"split_display"`
	SourceCoupled  bool `yaml:"source_coupled"`
	MarkersCoupled bool `yaml:"markers_coupled"`
	HPGLData       bool `yaml:"hpgl_data"`
}

// Pack encodes the flags into their column value.
func (f TraceFlags) Pack() uint32 {
	var v uint32
	setBit(&v, 0, f.DualChannel)
	setBit(&v, 1, f.SplitDisplay)
	setBit(&v, 2, f.SourceCoupled)
	setBit(&v, 3, f.MarkersCoupled)
	setBit(&v, 4, f.HPGLData)
	return v
}

// UnpackTraceFlags decodes a packed column value.
func UnpackTraceFlags(v uint32) TraceFlags {
	return TraceFlags{
		DualChannel:    bitSet(v, 0),
		SplitDisplay:   bitSet(v, 1),
		SourceCoupled:  bitSet(v, 2),
		MarkersCoupled: bitSet(v, 3),
		HPGLData:       bitSet(v, 4),
	}
}

// ChannelTraceFlags are the per-channel trace flags.
type ChannelTraceFlags struct {
	ValidData       bool `yaml:"valid_data"`
	StimulusPoints  bool `yaml:"stimulus_points"`
	AdmittanceSmith bool `yaml:"admittance_smith"`
	Averaging       bool `yaml:"averaging"`
	Smoothing       bool `yaml:"smoothing"`
	DeltaMarker     bool `yaml:"delta_marker"`
}

// Pack encodes the flags into their column value.
func (f ChannelTraceFlags) Pack() uint32 {
	var v uint32
	setBit(&v, 0, f.ValidData)
	setBit(&v, 1, f.StimulusPoints)
	setBit(&v, 2, f.AdmittanceSmith)
	setBit(&v, 3, f.Averaging)
	setBit(&v, 4, f.Smoothing)
	setBit(&v, 5, f.DeltaMarker)
	return v
}

// UnpackChannelTraceFlags decodes a packed column value.
func UnpackChannelTraceFlags(v uint32) ChannelTraceFlags {
	return ChannelTraceFlags{
		ValidData:       bitSet(v, 0),
		StimulusPoints:  bitSet(v, 1),
		AdmittanceSmith: bitSet(v, 2),
		Averaging:       bitSet(v, 3),
		Smoothing:       bitSet(v, 4),
		DeltaMarker:     bitSet(v, 5),
	}
}

// OptionFlags are the global program flags.
type OptionFlags struct {
	SmoothSplines       bool `yaml:"smooth_splines"`
	ShowDateTime        bool `yaml:"show_date_time"`
	ShowHPLogo          bool `yaml:"show_hp_logo"`
	UseGPIBDeviceName   bool `yaml:"use_gpib_device_name"`
	LearnStringAnalyzed bool `yaml:"learn_string_analyzed"`
	AdmittanceSmith     bool `yaml:"admittance_smith"`
}

// Pack encodes the flags into their column value.
func (f OptionFlags) Pack() uint32 {
	var v uint32
	setBit(&v, 0, f.SmoothSplines)
	setBit(&v, 1, f.ShowDateTime)
	setBit(&v, 2, f.ShowHPLogo)
	setBit(&v, 3, f.UseGPIBDeviceName)
	setBit(&v, 4, f.LearnStringAnalyzed)
	setBit(&v, 5, f.AdmittanceSmith)
	return v
}

// UnpackOptionFlags decodes a packed column value.
func UnpackOptionFlags(v uint32) OptionFlags {
	return OptionFlags{
		SmoothSplines:       bitSet(v, 0),
		ShowDateTime:        bitSet(v, 1),
		ShowHPLogo:          bitSet(v, 2),
		UseGPIBDeviceName:   bitSet(v, 3),
		LearnStringAnalyzed: bitSet(v, 4),
		AdmittanceSmith:     bitSet(v, 5),
	}
}
