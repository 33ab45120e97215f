package block

import (
	"bytes"
	"errors"
	"testing"

	"vnastore/pkg/domain"
)

func TestEncodeEmbedsBigEndianLength(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 0x0102)
	b, err := Encode(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if b[0] != '#' || b[1] != 'A' || b[2] != 0x01 || b[3] != 0x02 {
		t.Fatalf("unexpected header % x", b[:4])
	}
	if size, _ := Size(b); size != len(b) {
		t.Fatalf("size %d, block %d", size, len(b))
	}
}

func TestPayloadIgnoresOuterPadding(t *testing.T) {
	payload := []byte("learn-string-data")
	b, err := Encode(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	padded := append(append([]byte{}, b...), make([]byte, 100)...)

	got, err := Payload(padded)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload %q want %q", got, payload)
	}
	trimmed, err := Trim(padded)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if len(trimmed) != HeaderSize+len(payload) {
		t.Fatalf("trimmed to %d bytes", len(trimmed))
	}
	padded[HeaderSize] = 'X'
	if trimmed[HeaderSize] == 'X' {
		t.Fatal("trim must copy, not alias")
	}
}

func TestShortBlocksAreRejected(t *testing.T) {
	if _, err := Length([]byte{'#', 'A'}); !errors.Is(err, ErrShortBlock) {
		t.Fatalf("expected ErrShortBlock for truncated header, got %v", err)
	}
	b := []byte{'#', 'A', 0x00, 0x10, 1, 2, 3}
	if _, err := Trim(b); !errors.Is(err, ErrShortBlock) {
		t.Fatalf("expected ErrShortBlock for truncated payload, got %v", err)
	}
	if _, err := Encode(make([]byte, 0x10000)); !errors.Is(err, ErrBlockTooLarge) {
		t.Fatalf("expected ErrBlockTooLarge, got %v", err)
	}
}

func TestPointsUsesEmbeddedLength(t *testing.T) {
	b, err := Encode(make([]byte, 201*BytesPerPoint))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b = append(b, 0, 0, 0, 0, 0, 0, 0)
	if got := Points(b); got != 201 {
		t.Fatalf("points %d want 201", got)
	}
	if Points(nil) != 0 {
		t.Fatal("absent block must report zero points")
	}
}

func TestCloneCopiesVerbatim(t *testing.T) {
	src := []byte{'#', 'A', 0, 1, 9, 0xFF}
	got := Clone(src)
	if !bytes.Equal(got, src) {
		t.Fatalf("clone %v", got)
	}
	if Clone([]byte{}) != nil {
		t.Fatal("empty blob should recover as nil")
	}
}

func TestUnmarshalFixedStructures(t *testing.T) {
	var markers [domain.MaxMarkers]domain.Marker
	markers[0] = domain.Marker{Enabled: true, Point: 17, Stimulus: 1.5e9, Re: 0.25, Im: -0.5}
	markers[4] = domain.Marker{Enabled: true, Point: 200}
	data, err := Marshal(&markers)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got [domain.MaxMarkers]domain.Marker
	if !Unmarshal(data, &got) {
		t.Fatal("expected exact-size image to decode")
	}
	if got != markers {
		t.Fatalf("markers mismatch: %+v", got)
	}
}

func TestUnmarshalSizeMismatchZeroes(t *testing.T) {
	var segs [domain.MaxSegments]domain.Segment
	segs[0] = domain.Segment{Start: 1, Stop: 2, NPoints: 3}
	data, err := Marshal(&segs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	dst := segs
	if Unmarshal(data[:len(data)-1], &dst) {
		t.Fatal("expected truncated image to be rejected")
	}
	if dst != ([domain.MaxSegments]domain.Segment{}) {
		t.Fatal("destination must be zeroed on mismatch")
	}

	bw := domain.BandwidthResult{Valid: true, Q: 12}
	if Unmarshal(append(data, 0), &bw) {
		t.Fatal("expected oversized image to be rejected")
	}
	if bw != (domain.BandwidthResult{}) {
		t.Fatalf("bandwidth not zeroed: %+v", bw)
	}
}

func TestPointArrays(t *testing.T) {
	pts := []complex128{complex(1, -1), complex(0.5, 0.25)}
	if got := DecodeComplex(EncodeComplex(pts)); len(got) != 2 || got[0] != pts[0] || got[1] != pts[1] {
		t.Fatalf("complex round trip: %v", got)
	}
	stim := []float64{3e5, 6e9}
	if got := DecodeFloats(EncodeFloats(stim)); len(got) != 2 || got[1] != 6e9 {
		t.Fatalf("float round trip: %v", got)
	}
	if DecodeComplex(make([]byte, 15)) != nil {
		t.Fatal("partial point should decode to nil")
	}
	if EncodeFloats(nil) != nil {
		t.Fatal("empty stimulus should encode to nil")
	}
}
