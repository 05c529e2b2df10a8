// Package timeline holds the per-satellite Resource Timeline shared by every
// scheduling phase of one allocation run.
package timeline

import (
	"fmt"

	"github.com/me/satalloc/pkg/model"
)

// Entry is an opportunity committed to a satellite at Start.
type Entry struct {
	Opportunity *model.Opportunity
	Start       float64
}

// End returns the committed end time (start + duration).
func (e Entry) End() float64 {
	return e.Start + e.Opportunity.Duration
}

type track struct {
	satellite *model.Satellite
	entries   []Entry // ordered by Start
}

// Timeline is the ordered sequence of commitments for every satellite.
// It is not safe for concurrent use; one allocation run owns it.
type Timeline struct {
	tracks map[string]*track
	order  []string
}

// New creates an empty timeline with one track per satellite.
func New(satellites []*model.Satellite) *Timeline {
	t := &Timeline{tracks: make(map[string]*track, len(satellites))}
	for _, s := range satellites {
		if _, dup := t.tracks[s.ID]; dup {
			continue
		}
		t.tracks[s.ID] = &track{satellite: s}
		t.order = append(t.order, s.ID)
	}
	return t
}

// Insert commits o at the earliest feasible start on its satellite and returns
// that start. It returns false when the satellite is full, unknown, or no
// position satisfies the opportunity window and transition time.
func (t *Timeline) Insert(o *model.Opportunity) (float64, bool) {
	tr, ok := t.tracks[o.SatelliteID]
	if !ok {
		return 0, false
	}
	if len(tr.entries) >= tr.satellite.Capacity {
		return 0, false
	}

	if len(tr.entries) == 0 {
		if o.End >= o.Start+o.Duration {
			tr.entries = append(tr.entries, Entry{Opportunity: o, Start: o.Start})
			return o.Start, true
		}
		return 0, false
	}

	gap := tr.satellite.TransitionTime
	for i := 0; i <= len(tr.entries); i++ {
		start := o.Start
		if i > 0 {
			start = max(o.Start, tr.entries[i-1].End()+gap)
		}
		end := start + o.Duration
		if end > o.End {
			continue
		}

		upper, bound := o.End, end
		if i < len(tr.entries) {
			upper = tr.entries[i].Start
			bound = end + gap
		}
		if start < bound && bound <= upper {
			tr.entries = append(tr.entries, Entry{})
			copy(tr.entries[i+1:], tr.entries[i:])
			tr.entries[i] = Entry{Opportunity: o, Start: start}
			return start, true
		}
	}
	return 0, false
}

// Entries returns a copy of the commitments on satelliteID, ordered by start.
func (t *Timeline) Entries(satelliteID string) []Entry {
	tr, ok := t.tracks[satelliteID]
	if !ok {
		return nil
	}
	out := make([]Entry, len(tr.entries))
	copy(out, tr.entries)
	return out
}

// Len returns the number of commitments on satelliteID.
func (t *Timeline) Len(satelliteID string) int {
	if tr, ok := t.tracks[satelliteID]; ok {
		return len(tr.entries)
	}
	return 0
}

// Remaining returns the unused capacity on satelliteID.
func (t *Timeline) Remaining(satelliteID string) int {
	tr, ok := t.tracks[satelliteID]
	if !ok {
		return 0
	}
	return tr.satellite.Capacity - len(tr.entries)
}

// Satellites returns the satellite ids in construction order.
func (t *Timeline) Satellites() []string {
	return append([]string(nil), t.order...)
}

// Verify checks capacity, transition time and window containment on every track.
func (t *Timeline) Verify() error {
	for _, id := range t.order {
		tr := t.tracks[id]
		if len(tr.entries) > tr.satellite.Capacity {
			return fmt.Errorf("satellite %s: %d entries exceed capacity %d", id, len(tr.entries), tr.satellite.Capacity)
		}
		for i, e := range tr.entries {
			o := e.Opportunity
			if e.Start < o.Start || e.End() > o.End {
				return fmt.Errorf("satellite %s: %s at %g outside window [%g, %g]", id, o.ID, e.Start, o.Start, o.End)
			}
			if i == 0 {
				continue
			}
			prev := tr.entries[i-1]
			if e.Start < prev.End()+tr.satellite.TransitionTime {
				return fmt.Errorf("satellite %s: %s at %g starts before %s ends at %g plus transition %g",
					id, o.ID, e.Start, prev.Opportunity.ID, prev.End(), tr.satellite.TransitionTime)
			}
		}
	}
	return nil
}
