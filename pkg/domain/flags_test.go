package domain

import "testing"

func TestSettingsPackRoundTrip(t *testing.T) {
	cal := CalSettings{DualChannel: true, SplitDisplay: true, ActiveChannel: 1}
	if got := UnpackCalSettings(cal.Pack()); got != cal {
		t.Fatalf("cal settings: got %+v want %+v", got, cal)
	}
	ch := ChannelCalSettings{Correction: true, Interpolation: true, SourcePowerSet: true}
	if got := UnpackChannelCalSettings(ch.Pack()); got != ch {
		t.Fatalf("channel cal settings: got %+v want %+v", got, ch)
	}
	tf := TraceFlags{SourceCoupled: true, HPGLData: true}
	if got := UnpackTraceFlags(tf.Pack()); got != tf {
		t.Fatalf("trace flags: got %+v want %+v", got, tf)
	}
	ctf := ChannelTraceFlags{ValidData: true, StimulusPoints: true, DeltaMarker: true}
	if got := UnpackChannelTraceFlags(ctf.Pack()); got != ctf {
		t.Fatalf("channel trace flags: got %+v want %+v", got, ctf)
	}
	of := OptionFlags{ShowHPLogo: true, LearnStringAnalyzed: true}
	if got := UnpackOptionFlags(of.Pack()); got != of {
		t.Fatalf("option flags: got %+v want %+v", got, of)
	}
}

func TestBitPositionsAreStable(t *testing.T) {
	cases := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"dual channel", CalSettings{DualChannel: true}.Pack(), 0x01},
		{"active channel", CalSettings{ActiveChannel: 1}.Pack(), 0x10},
		{"correction", ChannelCalSettings{Correction: true}.Pack(), 0x01},
		{"hpgl", TraceFlags{HPGLData: true}.Pack(), 0x10},
		{"stimulus points", ChannelTraceFlags{StimulusPoints: true}.Pack(), 0x02},
		{"admittance", OptionFlags{AdmittanceSmith: true}.Pack(), 0x20},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: got %#x want %#x", tc.name, tc.got, tc.want)
		}
	}
}

func TestLookupClass(t *testing.T) {
	id, ok := LookupClass("  response ")
	if !ok || id != ClassResponse {
		t.Fatalf("expected RESPONSE, got %v ok=%v", id, ok)
	}
	if _, ok := LookupClass("S33A"); ok {
		t.Fatal("expected unknown class to be rejected")
	}
	if ClassTRLThruRevTrans.String() != "TRLTHRUREVTRANS" {
		t.Fatalf("unexpected name for last class: %s", ClassTRLThruRevTrans)
	}
	if int(ClassTRLThruRevTrans) != MaxCalClasses-1 {
		t.Fatalf("class table size drifted: last id %d", ClassTRLThruRevTrans)
	}
}

func TestCalibrationSummaryProjection(t *testing.T) {
	p := CalibrationProfile{Name: "wide", Notes: "n", Settings: CalSettings{DualChannel: true}}
	p.Channels[1].NPoints = 401
	p.Channels[1].CalType = CalFullTwoPort
	s := p.Summary()
	if s.Name != "wide" || !s.Settings.DualChannel || s.Channels[1].NPoints != 401 || s.Channels[1].CalType != CalFullTwoPort {
		t.Fatalf("unexpected summary %+v", s)
	}
}
