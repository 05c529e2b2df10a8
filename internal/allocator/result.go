package allocator

import (
	"github.com/me/satalloc/internal/timeline"
	"github.com/me/satalloc/pkg/model"
)

// Result is the outcome of one allocation run.
type Result struct {
	RunID string `json:"run_id" yaml:"run_id"`

	// Assignments is the final map: central commitments plus cross-agent grants.
	Assignments model.AssignmentMap `json:"assignments" yaml:"assignments"`

	Central   model.AssignmentMap            `json:"central" yaml:"central"`
	Exclusive map[string]model.AssignmentMap `json:"exclusive" yaml:"exclusive"`
	Stats     Stats                          `json:"stats" yaml:"stats"`

	Timeline *timeline.Timeline `json:"-" yaml:"-"`
}

// Stats summarizes what each phase did.
type Stats struct {
	CentralAssigned   int            `json:"central_assigned" yaml:"central_assigned"`
	ExclusiveAssigned map[string]int `json:"exclusive_assigned" yaml:"exclusive_assigned"`
	ConflictAttempts  int            `json:"conflict_attempts" yaml:"conflict_attempts"`
	ConflictResolved  int            `json:"conflict_resolved" yaml:"conflict_resolved"`
	SolverFailures    int            `json:"solver_failures" yaml:"solver_failures"`
	SkippedNoAgents   int            `json:"skipped_no_agents" yaml:"skipped_no_agents"`
	Unresolved        []string       `json:"unresolved" yaml:"unresolved"`
	Elapsed           string         `json:"elapsed" yaml:"elapsed"`
}
