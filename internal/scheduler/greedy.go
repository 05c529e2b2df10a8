package scheduler

import (
	"log/slog"

	"github.com/me/satalloc/internal/timeline"
	"github.com/me/satalloc/pkg/model"
)

// Greedy is the priority-ordered earliest-slot scheduler.
type Greedy struct {
	logger *slog.Logger
}

// NewGreedy creates a Greedy scheduler.
func NewGreedy(logger *slog.Logger) *Greedy {
	return &Greedy{logger: logger.With("component", "greedy")}
}

// Schedule sorts the candidates and inserts each at the earliest feasible slot
// on its satellite. Once a request has an accepted opportunity, its remaining
// candidates are skipped for this pass.
func (g *Greedy) Schedule(inst *model.Instance, agentID string, candidates []*model.Opportunity, tl *timeline.Timeline) model.AssignmentMap {
	accepted := make(model.AssignmentMap)
	served := make(map[string]bool)
	rejected := 0

	for _, o := range SortOpportunities(inst, candidates) {
		if served[o.RequestID] {
			continue
		}
		start, ok := tl.Insert(o)
		if !ok {
			rejected++
			continue
		}
		served[o.RequestID] = true
		accepted[o.ID] = model.Assignment{
			OpportunityID: o.ID,
			RequestID:     o.RequestID,
			UserID:        o.UserID,
			AgentID:       agentID,
			SatelliteID:   o.SatelliteID,
			Start:         start,
			Duration:      o.Duration,
		}
		g.logger.Debug("opportunity committed",
			"agent", agentID,
			"opportunity", o.ID,
			"request", o.RequestID,
			"satellite", o.SatelliteID,
			"start", start,
		)
	}

	g.logger.Debug("agent pass complete",
		"agent", agentID,
		"candidates", len(candidates),
		"accepted", len(accepted),
		"rejected", rejected,
	)
	return accepted
}
