package calkit

import (
	"bytes"
	"fmt"

	"vnastore/internal/block"
	"vnastore/pkg/domain"
)

// standardRecord is the stored image of one standard slot.
type standardRecord struct {
	Number        int32
	Type          uint8
	ConnectorType uint8
	Flags         uint8
	_             uint8
	Label         [domain.MaxStandardLabel + 1]byte
	MinFrequency  float64
	MaxFrequency  float64
	L             [4]float64
	C             [4]float64
	OffsetDelay   float64
	OffsetLoss    float64
	OffsetZ0      float64
	TermReal      float64
	TermImag      float64
	ArbitraryZ0   float64
}

const (
	flagValid = 1 << iota
	flagOffsetValid
	flagTerminationValid
)

// classRecord is the stored image of one class slot.
type classRecord struct {
	Specified uint8
	Count     uint8
	Standards [domain.MaxCalStandards]uint8
	Label     [domain.MaxClassLabel + 1]byte
}

// EncodeStandards returns the standards blob of a kit. A label wider than the stored field is
// rejected with ErrBoundExceeded.
func EncodeStandards(kit *domain.CalibrationKit) ([]byte, error) {
	var recs [domain.MaxCalStandards]standardRecord
	for i := range kit.Standards {
		s := &kit.Standards[i]
		if len(s.Label) > domain.MaxStandardLabel {
			return nil, fmt.Errorf("%w: standard slot %d label is %d bytes, limit %d",
				ErrBoundExceeded, i, len(s.Label), domain.MaxStandardLabel)
		}
		r := &recs[i]
		r.Number = int32(s.Number)
		r.Type = uint8(s.Type)
		r.ConnectorType = uint8(s.ConnectorType)
		if s.Valid {
			r.Flags |= flagValid
		}
		if s.OffsetValid {
			r.Flags |= flagOffsetValid
		}
		if s.TerminationValid {
			r.Flags |= flagTerminationValid
		}
		copy(r.Label[:domain.MaxStandardLabel], s.Label)
		r.MinFrequency, r.MaxFrequency = s.MinFrequency, s.MaxFrequency
		r.L, r.C = s.L, s.C
		r.OffsetDelay, r.OffsetLoss, r.OffsetZ0 = s.Offset.Delay, s.Offset.Loss, s.Offset.Z0
		r.TermReal, r.TermImag = s.Termination.Real, s.Termination.Imag
		r.ArbitraryZ0 = s.ArbitraryZ0
	}
	return block.Marshal(&recs)
}

// DecodeStandards restores the standard slots from a stored blob. A blob of the wrong size
// yields empty slots and false.
func DecodeStandards(data []byte) ([domain.MaxCalStandards]domain.CalibrationStandard, bool) {
	var out [domain.MaxCalStandards]domain.CalibrationStandard
	var recs [domain.MaxCalStandards]standardRecord
	if !block.Unmarshal(data, &recs) {
		return out, false
	}
	for i := range recs {
		r := &recs[i]
		out[i] = domain.CalibrationStandard{
			Number:           int(r.Number),
			Type:             domain.StandardType(r.Type),
			ConnectorType:    domain.ConnectorType(r.ConnectorType),
			Label:            cString(r.Label[:]),
			MinFrequency:     r.MinFrequency,
			MaxFrequency:     r.MaxFrequency,
			L:                r.L,
			C:                r.C,
			Offset:           domain.Offset{Delay: r.OffsetDelay, Loss: r.OffsetLoss, Z0: r.OffsetZ0},
			Termination:      domain.Impedance{Real: r.TermReal, Imag: r.TermImag},
			ArbitraryZ0:      r.ArbitraryZ0,
			Valid:            r.Flags&flagValid != 0,
			OffsetValid:      r.Flags&flagOffsetValid != 0,
			TerminationValid: r.Flags&flagTerminationValid != 0,
		}
	}
	return out, true
}

// EncodeClasses returns the classes blob of a kit. Labels, standard lists and slot indices
// outside the stored bounds are rejected with ErrBoundExceeded.
func EncodeClasses(kit *domain.CalibrationKit) ([]byte, error) {
	var recs [domain.MaxCalClasses]classRecord
	for i := range kit.Classes {
		c := &kit.Classes[i]
		if len(c.Label) > domain.MaxClassLabel {
			return nil, fmt.Errorf("%w: class %d label is %d bytes, limit %d",
				ErrBoundExceeded, i, len(c.Label), domain.MaxClassLabel)
		}
		if len(c.Standards) > domain.MaxCalStandards {
			return nil, fmt.Errorf("%w: class %d lists %d standards, limit %d",
				ErrBoundExceeded, i, len(c.Standards), domain.MaxCalStandards)
		}
		r := &recs[i]
		if c.Specified {
			r.Specified = 1
		}
		r.Count = uint8(len(c.Standards))
		for j, slot := range c.Standards {
			if slot < 0 || slot >= domain.MaxCalStandards {
				return nil, fmt.Errorf("%w: class %d references slot %d", ErrBoundExceeded, i, slot)
			}
			r.Standards[j] = uint8(slot)
		}
		copy(r.Label[:domain.MaxClassLabel], c.Label)
	}
	return block.Marshal(&recs)
}

// DecodeClasses restores the class slots from a stored blob. A blob of the wrong size yields
// unspecified classes and false.
func DecodeClasses(data []byte) ([domain.MaxCalClasses]domain.CalibrationClass, bool) {
	var out [domain.MaxCalClasses]domain.CalibrationClass
	var recs [domain.MaxCalClasses]classRecord
	if !block.Unmarshal(data, &recs) {
		return out, false
	}
	for i := range recs {
		r := &recs[i]
		c := domain.CalibrationClass{Label: cString(r.Label[:]), Specified: r.Specified != 0}
		n := min(int(r.Count), domain.MaxCalStandards)
		for j := 0; j < n; j++ {
			c.Standards = append(c.Standards, int(r.Standards[j]))
		}
		out[i] = c
	}
	return out, true
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
