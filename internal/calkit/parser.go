package calkit

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"vnastore/pkg/domain"
)

type state int

const (
	stTop state = iota
	stKit
	stConnectorList
	stStandardList
	stKitClasses
	stConnector
	stStandard
	stClass
	stOffset
	stTermination
	stLeaf
	stSkip
)

var containers = map[state]map[string]state{
	stTop: {"CalKit": stKit},
	stKit: {
		"ConnectorList": stConnectorList,
		"StandardList":  stStandardList,
		"KitClasses":    stKitClasses,
	},
	stConnectorList: {"Coaxial": stConnector, "Waveguide": stConnector},
	stStandardList: {
		"OpenStandard":               stStandard,
		"ShortStandard":              stStandard,
		"ThruStandard":               stStandard,
		"FixedLoadStandard":          stStandard,
		"SlidingLoadStandard":        stStandard,
		"ArbitraryImpedanceStandard": stStandard,
	},
	stKitClasses:  {"KitClass": stClass},
	stStandard:    {"Offset": stOffset, "TerminationImpedance": stTermination},
	stConnector:   {},
	stClass:       {},
	stOffset:      {},
	stTermination: {},
}

var leaves = map[state]map[string]bool{
	stKit: set("CalKitLabel", "CalKitVersion", "CalKitDescription", "TRLRefPlane", "TRLZ0Based"),
	stConnector: set("Family", "Gender", "MinimumFrequency", "MaximumFrequency",
		"CutoffFrequency", "HeightWidthRatio", "SystemZ0"),
	stStandard: set("Label", "StandardNumber", "PortConnectorID", "MinimumFrequency",
		"MaximumFrequency", "L0", "L1", "L2", "L3", "C0", "C1", "C2", "C3", "ArbitraryZ0"),
	stOffset:      set("OffsetDelay", "OffsetLoss", "OffsetZ0"),
	stTermination: set("Real", "Imag"),
	stClass:       set("KitClassID", "StandardsList", "KitClassLabel"),
}

var standardTypes = map[string]domain.StandardType{
	"OpenStandard":               domain.StandardOpen,
	"ShortStandard":              domain.StandardShort,
	"ThruStandard":               domain.StandardThru,
	"FixedLoadStandard":          domain.StandardFixedLoad,
	"SlidingLoadStandard":        domain.StandardSlidingLoad,
	"ArbitraryImpedanceStandard": domain.StandardArbitraryImpedance,
}

// knownTags holds every element name of the grammar; a known element in the wrong place is
// a structural error while an unknown element is skipped.
var knownTags = func() map[string]bool {
	out := make(map[string]bool)
	for _, m := range containers {
		for name := range m {
			out[name] = true
		}
	}
	for _, m := range leaves {
		for name := range m {
			out[name] = true
		}
	}
	return out
}()

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

type frame struct {
	state state
	name  string
	text  strings.Builder
}

type parser struct {
	dec  *xml.Decoder
	doc  *Document
	root bool

	stack     []*frame
	connector *domain.CalibrationConnector
	standard  *Standard
	class     *Class
}

// ParseFile parses the kit document at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IngestError{Source: path, Cause: err}
	}
	defer func() { _ = f.Close() }()
	return Parse(f, path)
}

// Parse reads a kit document from r. source names the document in errors.
func Parse(r io.Reader, source string) (*Document, error) {
	p := &parser{dec: xml.NewDecoder(r), doc: &Document{}}
	if err := p.run(); err != nil {
		line, _ := p.dec.InputPos()
		return nil, &IngestError{Source: source, Line: line, Cause: err}
	}
	return p.doc, nil
}

func (p *parser) run() error {
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStructure, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.start(t.Name.Local); err != nil {
				return err
			}
		case xml.EndElement:
			if err := p.end(); err != nil {
				return err
			}
		case xml.CharData:
			if top := p.top(); top != nil && top.state == stLeaf {
				top.text.Write(t)
			}
		}
	}
	if !p.root {
		return fmt.Errorf("%w: no <CalKit> element", ErrStructure)
	}
	return nil
}

func (p *parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) current() state {
	if top := p.top(); top != nil {
		return top.state
	}
	return stTop
}

func (p *parser) push(s state, name string) error {
	if len(p.stack) >= MaxDepth {
		return fmt.Errorf("%w: <%s> nested deeper than %d levels", ErrStructure, name, MaxDepth)
	}
	p.stack = append(p.stack, &frame{state: s, name: name})
	return nil
}

func (p *parser) start(name string) error {
	cur := p.current()
	switch cur {
	case stSkip:
		return p.push(stSkip, name)
	case stLeaf:
		return fmt.Errorf("%w: <%s> inside value element <%s>", ErrStructure, name, p.top().name)
	case stTop:
		if name != "CalKit" {
			return fmt.Errorf("%w: root element is <%s>, want <CalKit>", ErrStructure, name)
		}
		if p.root {
			return fmt.Errorf("%w: more than one <CalKit> element", ErrStructure)
		}
		p.root = true
	}
	if next, ok := containers[cur][name]; ok {
		p.open(next, name)
		return p.push(next, name)
	}
	if leaves[cur][name] {
		return p.push(stLeaf, name)
	}
	if knownTags[name] {
		parent := "document"
		if top := p.top(); top != nil {
			parent = "<" + top.name + ">"
		}
		return fmt.Errorf("%w: <%s> not allowed inside %s", ErrStructure, name, parent)
	}
	return p.push(stSkip, name)
}

func (p *parser) open(s state, name string) {
	switch s {
	case stConnector:
		t := domain.ConnectorCoaxial
		if name == "Waveguide" {
			t = domain.ConnectorWaveguide
		}
		p.connector = &domain.CalibrationConnector{Type: t}
	case stStandard:
		p.standard = &Standard{}
		p.standard.Type = standardTypes[name]
	case stClass:
		p.class = &Class{}
	}
}

func (p *parser) end() error {
	top := p.top()
	if top == nil {
		return fmt.Errorf("%w: unbalanced end element", ErrStructure)
	}
	p.stack = p.stack[:len(p.stack)-1]
	switch top.state {
	case stLeaf:
		return p.apply(p.current(), top.name, strings.TrimSpace(top.text.String()))
	case stConnector:
		p.doc.Connectors = append(p.doc.Connectors, *p.connector)
		p.connector = nil
	case stStandard:
		p.standard.settle()
		p.doc.Standards = append(p.doc.Standards, *p.standard)
		p.standard = nil
	case stClass:
		if p.class.ID == "" {
			return fmt.Errorf("%w: <KitClass> without <KitClassID>", ErrMissingValue)
		}
		p.doc.Classes = append(p.doc.Classes, *p.class)
		p.class = nil
	}
	return nil
}

func (p *parser) apply(parent state, name, text string) error {
	switch parent {
	case stKit:
		return p.applyKit(name, text)
	case stConnector:
		return p.applyConnector(name, text)
	case stStandard, stOffset, stTermination:
		return p.applyStandard(name, text)
	case stClass:
		return p.applyClass(name, text)
	}
	return nil
}

func (p *parser) applyKit(name, text string) error {
	switch name {
	case "CalKitLabel":
		if text == "" {
			return fmt.Errorf("%w: empty <CalKitLabel>", ErrMissingValue)
		}
		p.doc.Label = text
	case "CalKitVersion":
		p.doc.Version = text
	case "CalKitDescription":
		p.doc.Description = text
	case "TRLRefPlane":
		p.doc.TRLRefPlane = text
	case "TRLZ0Based":
		p.doc.TRLZ0Based = text
	}
	return nil
}

func (p *parser) applyConnector(name, text string) error {
	c := p.connector
	switch name {
	case "Family":
		c.Family = text
		return nil
	case "Gender":
		c.Gender = domain.ParseGender(text)
		return nil
	}
	v, err := number(name, text)
	if err != nil {
		return err
	}
	switch name {
	case "MinimumFrequency":
		c.MinFrequency = v
	case "MaximumFrequency":
		c.MaxFrequency = v
	case "CutoffFrequency":
		c.CutoffFrequency = v
	case "HeightWidthRatio":
		c.HeightWidthRatio = v
	case "SystemZ0":
		c.SystemZ0 = v
	}
	return nil
}

func (p *parser) applyStandard(name, text string) error {
	s := p.standard
	switch name {
	case "Label":
		s.Label = text
		return nil
	case "PortConnectorID":
		s.PortConnector = text
		return nil
	case "StandardNumber":
		n, err := strconv.Atoi(text)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: <StandardNumber> %q", ErrMissingValue, text)
		}
		s.Number = n
		s.HasNumber = true
		return nil
	}
	v, err := number(name, text)
	if err != nil {
		return err
	}
	var f fieldMask
	switch name {
	case "MinimumFrequency":
		s.MinFrequency, f = v, fieldMinFreq
	case "MaximumFrequency":
		s.MaxFrequency, f = v, fieldMaxFreq
	case "L0", "L1", "L2", "L3":
		i := int(name[1] - '0')
		s.L[i], f = v, fieldL0<<i
	case "C0", "C1", "C2", "C3":
		i := int(name[1] - '0')
		s.C[i], f = v, fieldC0<<i
	case "OffsetDelay":
		s.Offset.Delay, f = v, fieldOffsetDelay
	case "OffsetLoss":
		s.Offset.Loss, f = v, fieldOffsetLoss
	case "OffsetZ0":
		s.Offset.Z0, f = v, fieldOffsetZ0
	case "Real":
		s.Termination.Real, f = v, fieldTermReal
	case "Imag":
		s.Termination.Imag, f = v, fieldTermImag
	case "ArbitraryZ0":
		s.ArbitraryZ0, f = v, fieldArbitraryZ0
	}
	s.seen |= f
	return nil
}

func (p *parser) applyClass(name, text string) error {
	switch name {
	case "KitClassID":
		if text == "" {
			return fmt.Errorf("%w: empty <KitClassID>", ErrMissingValue)
		}
		p.class.ID = text
	case "StandardsList":
		p.class.StandardsList = text
	case "KitClassLabel":
		p.class.Label = text
	}
	return nil
}

func number(name, text string) (float64, error) {
	if text == "" {
		return 0, fmt.Errorf("%w: empty <%s>", ErrMissingValue, name)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: <%s> %q is not a number", ErrMissingValue, name, text)
	}
	return v, nil
}
