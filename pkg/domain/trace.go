package domain

// Fixed capacities of the opaque trace structure blocks.
const (
	MaxMarkers  = 5
	MaxSegments = 30
)

// Format is the display format of a channel.
type Format int

const (
	FormatLogMag Format = iota
	FormatPhase
	FormatDelay
	FormatSmith
	FormatPolar
	FormatLinMag
	FormatSWR
	FormatReal
	FormatImaginary
)

// Marker is one numbered marker. The field types are fixed-size because the marker array
// is persisted as a binary image.
type Marker struct {
	Enabled  bool    `yaml:"enabled"`
	Point    int32   `yaml:"point"`
	Stimulus float64 `yaml:"stimulus"`
	Re       float64 `yaml:"re"`
	Im       float64 `yaml:"im"`
}

// BandwidthResult holds the outcome of a marker bandwidth search.
type BandwidthResult struct {
	Valid     bool    `yaml:"valid"`
	Center    float64 `yaml:"center"`
	Bandwidth float64 `yaml:"bandwidth"`
	Q         float64 `yaml:"q"`
	Loss      float64 `yaml:"loss"`
}

// Segment is one list-sweep frequency segment.
type Segment struct {
	Start       float64 `yaml:"start"`
	Stop        float64 `yaml:"stop"`
	NPoints     int32   `yaml:"npoints"`
	IFBandwidth float64 `yaml:"if_bandwidth"`
	Power       float64 `yaml:"power"`
}

// ChannelTrace holds the channel-scoped part of a trace profile.
type ChannelTrace struct {
	SweepStart  float64   `yaml:"sweep_start"`
	SweepStop   float64   `yaml:"sweep_stop"`
	IFBandwidth float64   `yaml:"if_bandwidth"`
	CWFrequency float64   `yaml:"cw_frequency"`
	SweepType   SweepType `yaml:"sweep_type"`
	NPoints     int       `yaml:"npoints"`
	// Response holds the measured points.
	Response []complex128 `yaml:"-"`
	// Stimulus is optional; nil when the instrument did not supply stimulus values.
	Stimulus    []float64 `yaml:"-"`
	Format      Format    `yaml:"format"`
	ScaleVal    float64   `yaml:"scale_val"`
	ScaleRefPos float64   `yaml:"scale_ref_pos"`
	ScaleRefVal float64   `yaml:"scale_ref_val"`
	// SParamOrInputPort selects the measured S-parameter or input port.
	SParamOrInputPort int                  `yaml:"sparam_or_input_port"`
	Markers           [MaxMarkers]Marker   `yaml:"markers"`
	ActiveMarker      int                  `yaml:"active_marker"`
	DeltaMarker       int                  `yaml:"delta_marker"`
	MarkerType        int                  `yaml:"marker_type"`
	Bandwidth         BandwidthResult      `yaml:"bandwidth"`
	NSegments         int                  `yaml:"nsegments"`
	Segments          [MaxSegments]Segment `yaml:"-"`
	Flags             ChannelTraceFlags    `yaml:"flags"`
}

// TraceProfile is one saved trace capture. Title, notes, flags and timestamp are stored
// on the channel 0 row only.
type TraceProfile struct {
	Name      string                    `yaml:"name"`
	Title     string                    `yaml:"title"`
	Notes     string                    `yaml:"notes"`
	Flags     TraceFlags                `yaml:"flags"`
	Timestamp string                    `yaml:"timestamp"`
	Channels  [NumChannels]ChannelTrace `yaml:"channels"`
}

// TraceSummary is the inventory projection of a stored trace profile.
type TraceSummary struct {
	Name      string     `yaml:"name"`
	Title     string     `yaml:"title"`
	Notes     string     `yaml:"notes"`
	Flags     TraceFlags `yaml:"flags"`
	Timestamp string     `yaml:"timestamp"`
}

// Summary projects the profile onto its inventory record.
func (t *TraceProfile) Summary() TraceSummary {
	return TraceSummary{Name: t.Name, Title: t.Title, Notes: t.Notes, Flags: t.Flags, Timestamp: t.Timestamp}
}
