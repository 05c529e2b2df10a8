// Package scheduler implements the single-agent greedy interval-packing pass
// that commits one agent's candidate opportunities to the shared timeline.
package scheduler

import (
	"github.com/me/satalloc/internal/timeline"
	"github.com/me/satalloc/pkg/model"
)

// Scheduler commits an agent's candidate opportunities to the shared timeline.
type Scheduler interface {
	// Schedule mutates tl in place and returns the accepted commitments,
	// attributed to agentID. Opportunities that do not fit are left out.
	Schedule(inst *model.Instance, agentID string, candidates []*model.Opportunity, tl *timeline.Timeline) model.AssignmentMap
}
