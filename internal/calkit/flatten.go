package calkit

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"vnastore/pkg/domain"
)

// Flatten maps a parsed document onto the bounded kit representation. Valid standards take
// slots 0..7 in document order; classes are matched against the well-known class table and
// unknown identifiers are skipped. Any overflow rejects the whole kit.
func Flatten(doc *Document, source string) (domain.CalibrationKit, error) {
	kit, err := flatten(doc)
	if err != nil {
		return domain.CalibrationKit{}, &IngestError{Source: source, Cause: err}
	}
	return kit, nil
}

// Import parses and flattens the kit document at path.
func Import(path string) (domain.CalibrationKit, *Document, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return domain.CalibrationKit{}, nil, err
	}
	kit, err := Flatten(doc, path)
	if err != nil {
		return domain.CalibrationKit{}, doc, err
	}
	return kit, doc, nil
}

func flatten(doc *Document) (domain.CalibrationKit, error) {
	var kit domain.CalibrationKit

	label := strings.TrimSpace(doc.Label)
	if label == "" {
		return kit, fmt.Errorf("%w: kit has no <CalKitLabel>", ErrMissingValue)
	}
	if utf8.RuneCountInString(label) > domain.MaxKitLabel {
		return kit, fmt.Errorf("%w: label %q longer than %d characters", ErrBoundExceeded, label, domain.MaxKitLabel)
	}
	kit.Label = label
	kit.Description = strings.TrimSpace(truncateRunes(strings.TrimSpace(doc.Description), domain.MaxKitDescription))

	slots, err := assignSlots(doc, &kit)
	if err != nil {
		return domain.CalibrationKit{}, err
	}
	if err := assignClasses(doc, slots, &kit); err != nil {
		return domain.CalibrationKit{}, err
	}
	return kit, nil
}

// assignSlots returns the slot of every document standard number; the slot is -1 when the
// standard was excluded as invalid.
func assignSlots(doc *Document, kit *domain.CalibrationKit) (map[int]int, error) {
	slots := make(map[int]int, len(doc.Standards))
	next := 0
	for i := range doc.Standards {
		std := doc.Standards[i]
		num := std.Number
		if !std.HasNumber {
			num = i + 1
		}
		if _, dup := slots[num]; dup {
			return nil, fmt.Errorf("%w: standard number %d declared twice", ErrReference, num)
		}
		if !std.Valid {
			slots[num] = -1
			continue
		}
		if next >= domain.MaxCalStandards {
			return nil, fmt.Errorf("%w: more than %d valid standards", ErrBoundExceeded, domain.MaxCalStandards)
		}
		out := std.CalibrationStandard
		out.Number = num
		out.ConnectorType = connectorFor(doc, std.PortConnector)
		out.Label = strings.TrimSpace(truncateBytes(strings.TrimSpace(out.Label), domain.MaxStandardLabel))
		if out.Label == "" {
			out.Label = strings.ToUpper(out.Type.String())
		}
		kit.Standards[next] = out
		slots[num] = next
		next++
	}
	return slots, nil
}

func connectorFor(doc *Document, family string) domain.ConnectorType {
	family = strings.TrimSpace(family)
	if family != "" {
		for _, c := range doc.Connectors {
			if strings.EqualFold(c.Family, family) {
				return c.Type
			}
		}
	}
	if len(doc.Connectors) == 1 {
		return doc.Connectors[0].Type
	}
	return domain.ConnectorUnknown
}

func assignClasses(doc *Document, slots map[int]int, kit *domain.CalibrationKit) error {
	recognized := 0
	for _, c := range doc.Classes {
		id, ok := domain.LookupClass(c.ID)
		if !ok {
			continue
		}
		recognized++
		if recognized > domain.MaxCalClasses {
			return fmt.Errorf("%w: more than %d kit classes", ErrBoundExceeded, domain.MaxCalClasses)
		}
		if kit.Classes[id].Specified {
			return fmt.Errorf("%w: kit class %s declared twice", ErrStructure, id)
		}
		standards, err := resolveStandards(c, slots)
		if err != nil {
			return err
		}
		label := c.Label
		if strings.TrimSpace(label) == "" {
			label = id.String()
		}
		kit.Classes[id] = domain.CalibrationClass{
			Label:     EncodeClassLabel(label),
			Standards: standards,
			Specified: true,
		}
	}
	return nil
}

func resolveStandards(c Class, slots map[int]int) ([]int, error) {
	fields := strings.FieldsFunc(c.StandardsList, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) > domain.MaxCalStandards {
		return nil, fmt.Errorf("%w: class %s lists %d standards", ErrBoundExceeded, c.ID, len(fields))
	}
	var out []int
	for _, f := range fields {
		num, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: class %s entry %q is not a standard number", ErrReference, c.ID, f)
		}
		slot, ok := slots[num]
		if !ok {
			return nil, fmt.Errorf("%w: class %s references undefined standard %d", ErrReference, c.ID, num)
		}
		if slot < 0 {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

// EncodeClassLabel reduces a class label to the instrument's label alphabet and width.
func EncodeClassLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(label)) {
		if b.Len() == domain.MaxClassLabel {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
