// Package archive exports stored profiles as interchange files into a blob store. Every
// export gets a fresh object key, so repeated exports never collide in create-only stores.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"vnastore/internal/blob"
	"vnastore/internal/calkit"
	"vnastore/pkg/domain"
)

const (
	touchstoneType = "application/vnd.touchstone"
	kitType        = "application/xml"
	referenceZ0    = 50
)

var (
	// ErrNoData is returned when the exported channel holds no response points.
	ErrNoData = errors.New("archive: channel has no response data")
	// ErrNotFrequencySweep is returned for CW-time and power sweeps, which have no
	// frequency axis.
	ErrNotFrequencySweep = errors.New("archive: sweep has no frequency axis")
	// ErrChannelRange is returned for a channel index outside the trace.
	ErrChannelRange = errors.New("archive: channel out of range")
)

// Exporter writes exports to a blob store.
type Exporter struct {
	store blob.Store
	newID func() string
}

// New returns an exporter writing to store.
func New(store blob.Store) *Exporter {
	return &Exporter{store: store, newID: uuid.NewString}
}

// ExportTrace writes one channel of a trace profile as a Touchstone one-port file.
func (e *Exporter) ExportTrace(ctx context.Context, t *domain.TraceProfile, channel int) (blob.Info, error) {
	var buf bytes.Buffer
	if err := WriteTouchstone(&buf, t, channel); err != nil {
		return blob.Info{}, fmt.Errorf("export trace %s: %w", t.Name, err)
	}
	key := fmt.Sprintf("traces/%s/%s.s1p", keySegment(t.Name), e.newID())
	return e.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: touchstoneType,
		Metadata: map[string]string{
			"profile": t.Name,
			"channel": strconv.Itoa(channel + 1),
		},
	})
}

// ExportKit writes a kit as a kit document.
func (e *Exporter) ExportKit(ctx context.Context, kit *domain.CalibrationKit) (blob.Info, error) {
	var buf bytes.Buffer
	if err := calkit.Write(&buf, kit); err != nil {
		return blob.Info{}, err
	}
	key := fmt.Sprintf("kits/%s/%s.xml", keySegment(kit.Label), e.newID())
	return e.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: kitType,
		Metadata:    map[string]string{"kit": kit.Label},
	})
}

// WriteTouchstone renders one channel (zero based) as Touchstone v1 with real/imaginary pairs.
func WriteTouchstone(out io.Writer, t *domain.TraceProfile, channel int) error {
	if channel < 0 || channel >= domain.NumChannels {
		return fmt.Errorf("%w: %d", ErrChannelRange, channel)
	}
	c := &t.Channels[channel]
	if len(c.Response) == 0 {
		return ErrNoData
	}
	freqs, err := Frequencies(c)
	if err != nil {
		return err
	}
	w := &bytes.Buffer{}
	for _, line := range []string{t.Title, t.Notes} {
		for _, l := range strings.Split(line, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				fmt.Fprintf(w, "! %s\n", l)
			}
		}
	}
	fmt.Fprintf(w, "! profile %q channel %d\n", t.Name, channel+1)
	if t.Timestamp != "" {
		fmt.Fprintf(w, "! captured %s\n", t.Timestamp)
	}
	fmt.Fprintf(w, "# Hz S RI R %d\n", referenceZ0)
	for i, p := range c.Response {
		fmt.Fprintf(w, "%s %s %s\n", formatFloat(freqs[i]), formatFloat(real(p)), formatFloat(imag(p)))
	}
	_, err = out.Write(w.Bytes())
	return err
}

// Frequencies returns the stimulus frequency of every response point: the stored stimulus
// when it matches the point count, else the list-sweep segments, else linear or logarithmic
// spacing between sweep start and stop.
func Frequencies(c *domain.ChannelTrace) ([]float64, error) {
	n := len(c.Response)
	if len(c.Stimulus) == n {
		return c.Stimulus, nil
	}
	switch c.SweepType {
	case domain.SweepCWTime, domain.SweepPower:
		return nil, ErrNotFrequencySweep
	case domain.SweepListFrequency:
		return segmentFrequencies(c, n)
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = c.SweepStart
		return out, nil
	}
	log := c.SweepType == domain.SweepLogFrequency && c.SweepStart > 0 && c.SweepStop > 0
	for i := range out {
		frac := float64(i) / float64(n-1)
		if log {
			out[i] = c.SweepStart * math.Pow(c.SweepStop/c.SweepStart, frac)
		} else {
			out[i] = c.SweepStart + frac*(c.SweepStop-c.SweepStart)
		}
	}
	return out, nil
}

func segmentFrequencies(c *domain.ChannelTrace, n int) ([]float64, error) {
	var out []float64
	for i := 0; i < c.NSegments && i < domain.MaxSegments; i++ {
		s := c.Segments[i]
		for j := 0; j < int(s.NPoints); j++ {
			f := s.Start
			if s.NPoints > 1 {
				f += float64(j) / float64(s.NPoints-1) * (s.Stop - s.Start)
			}
			out = append(out, f)
		}
	}
	if len(out) != n {
		return nil, fmt.Errorf("list sweep segments describe %d points, trace has %d", len(out), n)
	}
	return out, nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// keySegment maps a profile name onto a safe object key segment.
func keySegment(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if s == "" {
		return "_"
	}
	return s
}
