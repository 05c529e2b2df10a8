package model

import "sort"

// Assignment commits one opportunity to a satellite at a start time.
// AgentID is the agent that holds the commitment; it differs from UserID when
// the conflict phase grants an opportunity to another user's exclusive window.
type Assignment struct {
	OpportunityID string  `json:"opportunity" yaml:"opportunity"`
	RequestID     string  `json:"request" yaml:"request"`
	UserID        string  `json:"user" yaml:"user"`
	AgentID       string  `json:"agent" yaml:"agent"`
	SatelliteID   string  `json:"satellite" yaml:"satellite"`
	Start         float64 `json:"start" yaml:"start"`
	Duration      float64 `json:"duration" yaml:"duration"`
}

// End returns the committed end time.
func (a Assignment) End() float64 {
	return a.Start + a.Duration
}

// AssignmentMap maps opportunity id to its commitment. An opportunity appears at most once.
type AssignmentMap map[string]Assignment

// Merge copies every entry of other into m. Existing entries are kept.
func (m AssignmentMap) Merge(other AssignmentMap) {
	for id, a := range other {
		if _, ok := m[id]; ok {
			continue
		}
		m[id] = a
	}
}

// HasRequest reports whether any entry belongs to requestID.
func (m AssignmentMap) HasRequest(requestID string) bool {
	for _, a := range m {
		if a.RequestID == requestID {
			return true
		}
	}
	return false
}

// Requests returns the set of request ids with a committed opportunity.
func (m AssignmentMap) Requests() map[string]bool {
	out := make(map[string]bool, len(m))
	for _, a := range m {
		out[a.RequestID] = true
	}
	return out
}

// CountOn returns the number of entries committed to satelliteID.
func (m AssignmentMap) CountOn(satelliteID string) int {
	n := 0
	for _, a := range m {
		if a.SatelliteID == satelliteID {
			n++
		}
	}
	return n
}

// Sorted returns the entries ordered by satellite, then start time, then opportunity id.
func (m AssignmentMap) Sorted() []Assignment {
	out := make([]Assignment, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SatelliteID != out[j].SatelliteID {
			return out[i].SatelliteID < out[j].SatelliteID
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].OpportunityID < out[j].OpportunityID
	})
	return out
}
