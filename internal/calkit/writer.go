package calkit

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vnastore/pkg/domain"
)

type xmlKit struct {
	XMLName     xml.Name       `xml:"CalKit"`
	Label       string         `xml:"CalKitLabel"`
	Description string         `xml:"CalKitDescription"`
	Connectors  []xmlConnector `xml:"ConnectorList>Connector"`
	Standards   []xmlStandard  `xml:"StandardList>Standard"`
	Classes     []xmlClass     `xml:"KitClasses>KitClass"`
}

type xmlConnector struct {
	XMLName xml.Name
	Family  string `xml:"Family"`
}

type xmlStandard struct {
	XMLName         xml.Name
	Label           string          `xml:"Label"`
	Number          int             `xml:"StandardNumber"`
	PortConnectorID string          `xml:"PortConnectorID,omitempty"`
	MinFrequency    float64         `xml:"MinimumFrequency"`
	MaxFrequency    float64         `xml:"MaximumFrequency"`
	L0              float64         `xml:"L0"`
	L1              float64         `xml:"L1"`
	L2              float64         `xml:"L2"`
	L3              float64         `xml:"L3"`
	C0              float64         `xml:"C0"`
	C1              float64         `xml:"C1"`
	C2              float64         `xml:"C2"`
	C3              float64         `xml:"C3"`
	Offset          *xmlOffset      `xml:"Offset"`
	Termination     *xmlTermination `xml:"TerminationImpedance"`
	ArbitraryZ0     *float64        `xml:"ArbitraryZ0"`
}

type xmlOffset struct {
	Delay float64 `xml:"OffsetDelay"`
	Loss  float64 `xml:"OffsetLoss"`
	Z0    float64 `xml:"OffsetZ0"`
}

type xmlTermination struct {
	Real float64 `xml:"Real"`
	Imag float64 `xml:"Imag"`
}

type xmlClass struct {
	ID        string `xml:"KitClassID"`
	Standards string `xml:"StandardsList"`
	Label     string `xml:"KitClassLabel"`
}

var standardElements = map[domain.StandardType]string{
	domain.StandardOpen:               "OpenStandard",
	domain.StandardShort:              "ShortStandard",
	domain.StandardThru:               "ThruStandard",
	domain.StandardFixedLoad:          "FixedLoadStandard",
	domain.StandardSlidingLoad:        "SlidingLoadStandard",
	domain.StandardArbitraryImpedance: "ArbitraryImpedanceStandard",
}

// Write renders a flattened kit as a kit document that ingests back to an equal kit.
// Standards of unknown type cannot be expressed in the grammar and are rejected.
func Write(w io.Writer, kit *domain.CalibrationKit) error {
	doc := xmlKit{Label: kit.Label, Description: kit.Description}

	families := map[domain.ConnectorType]string{}
	for _, ct := range []domain.ConnectorType{domain.ConnectorCoaxial, domain.ConnectorWaveguide} {
		for i := range kit.Standards {
			if kit.Standards[i].Valid && kit.Standards[i].ConnectorType == ct {
				name := "Coaxial"
				if ct == domain.ConnectorWaveguide {
					name = "Waveguide"
				}
				families[ct] = strings.ToLower(name)
				doc.Connectors = append(doc.Connectors, xmlConnector{XMLName: xml.Name{Local: name}, Family: families[ct]})
				break
			}
		}
	}

	for i := range kit.Standards {
		s := &kit.Standards[i]
		if !s.Valid {
			continue
		}
		elem, ok := standardElements[s.Type]
		if !ok {
			return fmt.Errorf("write kit %s: standard %d has unknown type", kit.Label, s.Number)
		}
		xs := xmlStandard{
			XMLName:         xml.Name{Local: elem},
			Label:           s.Label,
			Number:          s.Number,
			PortConnectorID: families[s.ConnectorType],
			MinFrequency:    s.MinFrequency,
			MaxFrequency:    s.MaxFrequency,
			L0:              s.L[0],
			L1:              s.L[1],
			L2:              s.L[2],
			L3:              s.L[3],
			C0:              s.C[0],
			C1:              s.C[1],
			C2:              s.C[2],
			C3:              s.C[3],
		}
		if s.OffsetValid {
			xs.Offset = &xmlOffset{Delay: s.Offset.Delay, Loss: s.Offset.Loss, Z0: s.Offset.Z0}
		}
		if s.TerminationValid {
			xs.Termination = &xmlTermination{Real: s.Termination.Real, Imag: s.Termination.Imag}
		}
		if s.Type == domain.StandardArbitraryImpedance || s.ArbitraryZ0 != 0 {
			z := s.ArbitraryZ0
			xs.ArbitraryZ0 = &z
		}
		doc.Standards = append(doc.Standards, xs)
	}

	for i := range kit.Classes {
		c := &kit.Classes[i]
		if !c.Specified {
			continue
		}
		nums := make([]string, 0, len(c.Standards))
		for _, slot := range c.Standards {
			if slot < 0 || slot >= domain.MaxCalStandards {
				return fmt.Errorf("write kit %s: class %s references slot %d", kit.Label, domain.ClassID(i), slot)
			}
			nums = append(nums, strconv.Itoa(kit.Standards[slot].Number))
		}
		doc.Classes = append(doc.Classes, xmlClass{
			ID:        domain.ClassID(i).String(),
			Standards: strings.Join(nums, ","),
			Label:     c.Label,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write kit %s: %w", kit.Label, err)
	}
	return enc.Flush()
}
