// Package calkit ingests calibration kit documents. Parsing produces a list-based Document;
// Flatten converts it into the bounded domain.CalibrationKit, failing closed when the
// document does not fit.
package calkit

import (
	"errors"
	"fmt"

	"vnastore/pkg/domain"
)

// MaxDepth is the deepest element nesting a kit document may use, counting the root as 1.
const MaxDepth = 5

// Document is a parsed kit before flattening. Its lists are unbounded.
type Document struct {
	Label       string
	Version     string
	Description string
	TRLRefPlane string
	TRLZ0Based  string
	Connectors  []domain.CalibrationConnector
	Standards   []Standard
	Classes     []Class
}

// Standard is a parsed standard together with the document-level references flattening
// needs to resolve.
type Standard struct {
	domain.CalibrationStandard
	// PortConnector names the connector family the standard attaches to.
	PortConnector string
	// HasNumber reports whether the document declared an explicit StandardNumber.
	HasNumber bool

	seen fieldMask
}

// Class is a parsed kit class; StandardsList is the raw, human-readable standard list.
type Class struct {
	ID            string
	StandardsList string
	Label         string
}

// IngestError is the single failure signal of kit ingestion.
type IngestError struct {
	Source string
	Line   int
	Cause  error
}

func (e *IngestError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("calkit %s:%d: %v", e.Source, e.Line, e.Cause)
	}
	return fmt.Sprintf("calkit %s: %v", e.Source, e.Cause)
}

func (e *IngestError) Unwrap() error { return e.Cause }

// Causes reported inside IngestError.
var (
	ErrStructure     = errors.New("malformed document structure")
	ErrMissingValue  = errors.New("missing required value")
	ErrBoundExceeded = errors.New("kit bound exceeded")
	ErrReference     = errors.New("unresolved standard reference")
)

type fieldMask uint32

const (
	fieldMinFreq fieldMask = 1 << iota
	fieldMaxFreq
	fieldL0
	fieldL1
	fieldL2
	fieldL3
	fieldC0
	fieldC1
	fieldC2
	fieldC3
	fieldOffsetDelay
	fieldOffsetLoss
	fieldOffsetZ0
	fieldTermReal
	fieldTermImag
	fieldArbitraryZ0

	fieldsFreq        = fieldMinFreq | fieldMaxFreq
	fieldsL           = fieldL0 | fieldL1 | fieldL2 | fieldL3
	fieldsC           = fieldC0 | fieldC1 | fieldC2 | fieldC3
	fieldsOffset      = fieldOffsetDelay | fieldOffsetLoss | fieldOffsetZ0
	fieldsTermination = fieldTermReal | fieldTermImag
)

func (m fieldMask) has(f fieldMask) bool { return m&f == f }

// settle computes the validity flags from the fields observed so far.
func (s *Standard) settle() {
	s.OffsetValid = s.seen.has(fieldsOffset)
	s.TerminationValid = s.seen.has(fieldsTermination)
	valid := s.seen.has(fieldsFreq) && s.OffsetValid
	switch s.Type {
	case domain.StandardOpen:
		valid = valid && s.seen.has(fieldsC)
	case domain.StandardShort:
		valid = valid && s.seen.has(fieldsL)
	case domain.StandardArbitraryImpedance:
		valid = valid && (s.TerminationValid || s.seen.has(fieldArbitraryZ0))
	}
	s.Valid = valid
}
