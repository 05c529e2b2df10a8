// Package allocator runs the staged allocation: central planner, exclusive
// users, then per-request conflict resolution through a constraint solver.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/me/satalloc/internal/config"
	"github.com/me/satalloc/internal/dcop"
	"github.com/me/satalloc/internal/scheduler"
	"github.com/me/satalloc/internal/solver"
	"github.com/me/satalloc/internal/timeline"
	"github.com/me/satalloc/pkg/model"
)

// Config holds allocator configuration.
type Config struct {
	CentralPlanner string
	Algorithm      string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{CentralPlanner: model.DefaultCentralPlanner, Algorithm: "dpop"}
}

// ConfigFrom extracts the allocator settings from a loaded configuration.
func ConfigFrom(cfg config.Config) Config {
	out := DefaultConfig()
	if cfg.Allocator.CentralPlanner != "" {
		out.CentralPlanner = cfg.Allocator.CentralPlanner
	}
	if cfg.Solver.Algorithm != "" {
		out.Algorithm = cfg.Solver.Algorithm
	}
	return out
}

// Allocator owns one Resource Timeline per run and is its sole mutator.
// Runs are sequential; an Allocator may be reused across runs.
type Allocator struct {
	scheduler scheduler.Scheduler
	builder   *dcop.Builder
	solver    solver.Solver
	config    Config
	logger    *slog.Logger
}

// New creates an Allocator that resolves conflicts with sv.
func New(sv solver.Solver, cfg Config, logger *slog.Logger) *Allocator {
	return &Allocator{
		scheduler: scheduler.NewGreedy(logger),
		builder:   dcop.NewBuilder(logger),
		solver:    sv,
		config:    cfg,
		logger:    logger.With("component", "allocator"),
	}
}

// Solve runs the four phases on inst and always returns the partial result it
// reached. The error is non-nil only when inst is unusable.
func (a *Allocator) Solve(ctx context.Context, inst *model.Instance) (*Result, error) {
	if inst == nil {
		return nil, errors.New("nil instance")
	}
	inst.Index()

	run := &run{
		Allocator: a,
		inst:      inst,
		timeline:  timeline.New(inst.Satellites),
		exclusive: make(map[string]model.AssignmentMap),
		result: &Result{
			RunID: "run_" + uuid.New().String(),
			Stats: Stats{ExclusiveAssigned: make(map[string]int)},
		},
	}
	logger := a.logger.With("run_id", run.result.RunID)
	logger.Info("allocation started", "instance", inst.Summary(), "algorithm", a.config.Algorithm)
	start := time.Now()

	// Phase 1: central planner.
	run.centralPhase(logger)

	// Phase 2: every exclusive user, on the same timeline.
	run.exclusivePhase(logger)

	// Phase 3: conflict resolution for requests the central planner did not capture.
	run.conflictPhase(ctx, logger)

	// Phase 4: consolidation.
	run.consolidate()

	if err := run.timeline.Verify(); err != nil {
		logger.Error("timeline invariant violated", "error", err)
	}

	res := run.result
	res.Timeline = run.timeline
	res.Stats.Elapsed = time.Since(start).Round(time.Millisecond).String()
	logger.Info("allocation finished",
		"assigned", len(res.Assignments),
		"unresolved", len(res.Stats.Unresolved),
		"solver_failures", res.Stats.SolverFailures,
		"elapsed", res.Stats.Elapsed,
	)
	return res, nil
}

// run is the state of one Solve call.
type run struct {
	*Allocator
	inst      *model.Instance
	timeline  *timeline.Timeline
	central   model.AssignmentMap
	exclusive map[string]model.AssignmentMap
	result    *Result
}

func (r *run) centralPhase(logger *slog.Logger) {
	planner := r.config.CentralPlanner
	if r.inst.User(planner) == nil {
		logger.Warn("central planner not present in instance", "user", planner)
	}
	r.central = r.scheduler.Schedule(r.inst, planner, r.inst.OpportunitiesFor(planner), r.timeline)
	r.result.Stats.CentralAssigned = len(r.central)
	logger.Info("phase 1 (central planner) complete", "assigned", len(r.central))
}

func (r *run) exclusivePhase(logger *slog.Logger) {
	for _, u := range r.inst.ExclusiveUsers() {
		if u.ID == r.config.CentralPlanner {
			continue
		}
		assigned := r.scheduler.Schedule(r.inst, u.ID, r.inst.OpportunitiesFor(u.ID), r.timeline)
		r.exclusive[u.ID] = assigned
		r.result.Stats.ExclusiveAssigned[u.ID] = len(assigned)
		logger.Debug("exclusive user scheduled", "user", u.ID, "assigned", len(assigned))
	}
	logger.Info("phase 2 (exclusive users) complete", "users", len(r.exclusive))
}

func (r *run) conflictPhase(ctx context.Context, logger *slog.Logger) {
	captured := r.central.Requests()
	var unassigned []*model.Request
	for _, req := range r.inst.Requests {
		if !captured[req.ID] {
			unassigned = append(unassigned, req)
		}
	}

	stats := &r.result.Stats
	for _, req := range scheduler.SortRequests(r.inst, unassigned) {
		if err := ctx.Err(); err != nil {
			logger.Warn("conflict resolution interrupted", "error", err, "remaining_from", req.ID)
			break
		}

		p := r.builder.Build(r.inst, req.Opportunities, r.central, r.exclusive)
		if p.Empty() {
			stats.SkippedNoAgents++
			logger.Debug("no eligible agents", "request", req.ID)
			continue
		}

		stats.ConflictAttempts++
		sol, err := r.solver.Solve(ctx, p, r.config.Algorithm)
		if err != nil {
			stats.SolverFailures++
			logger.Warn("conflict resolution failed",
				"request", req.ID,
				"backend", r.solver.Name(),
				"kind", failureKind(err),
				"error", err,
			)
			continue
		}

		if n := r.merge(req, sol, logger); n > 0 {
			stats.ConflictResolved++
		}
	}
	logger.Info("phase 3 (conflict resolution) complete",
		"unassigned", len(unassigned),
		"attempted", stats.ConflictAttempts,
		"resolved", stats.ConflictResolved,
		"failed", stats.SolverFailures,
	)
}

// merge commits the solver's pairs for req through the timeline and records
// them under the agent's key. At most one pair per request is committed. It
// returns the number of entries merged into an agent's map.
func (r *run) merge(req *model.Request, sol dcop.Solution, logger *slog.Logger) int {
	committed, merged := 0, 0
	for _, pair := range sol.Pairs() {
		o := r.inst.Opportunity(pair.Opportunity)
		if o == nil || o.RequestID != req.ID {
			logger.Warn("solver returned foreign opportunity", "request", req.ID, "opportunity", pair.Opportunity)
			continue
		}
		if committed > 0 {
			logger.Debug("extra assignment for request ignored", "request", req.ID, "opportunity", o.ID)
			continue
		}

		// Already on the timeline: regrant the existing slot to the new agent.
		if held, ok := r.committedAssignment(o.ID); ok {
			committed++
			if held.AgentID == pair.Agent {
				continue
			}
			held.AgentID = pair.Agent
			r.grant(held)
			merged++
			logger.Debug("committed opportunity regranted",
				"request", req.ID, "opportunity", o.ID, "agent", pair.Agent, "start", held.Start)
			continue
		}

		start, ok := r.timeline.Insert(o)
		if !ok {
			logger.Debug("solver assignment no longer fits", "request", req.ID, "opportunity", o.ID, "agent", pair.Agent)
			continue
		}
		if pair.Agent != o.UserID && r.exclusive[o.UserID].HasRequest(req.ID) {
			logger.Debug("cross grant takes a slot beside the owner's entry",
				"request", req.ID, "opportunity", o.ID, "owner", o.UserID, "satellite", o.SatelliteID)
		}
		r.grant(model.Assignment{
			OpportunityID: o.ID,
			RequestID:     o.RequestID,
			UserID:        o.UserID,
			AgentID:       pair.Agent,
			SatelliteID:   o.SatelliteID,
			Start:         start,
			Duration:      o.Duration,
		})
		committed++
		merged++
		logger.Debug("conflict assignment committed",
			"request", req.ID, "opportunity", o.ID, "agent", pair.Agent, "start", start)
	}
	return merged
}

func (r *run) grant(a model.Assignment) {
	if r.exclusive[a.AgentID] == nil {
		r.exclusive[a.AgentID] = make(model.AssignmentMap)
	}
	r.exclusive[a.AgentID][a.OpportunityID] = a
}

// committedAssignment returns the entry already holding oppID, if any.
func (r *run) committedAssignment(oppID string) (model.Assignment, bool) {
	if a, ok := r.central[oppID]; ok {
		return a, true
	}
	agents := make([]string, 0, len(r.exclusive))
	for id := range r.exclusive {
		agents = append(agents, id)
	}
	sort.Strings(agents)
	for _, id := range agents {
		if a, ok := r.exclusive[id][oppID]; ok {
			return a, true
		}
	}
	return model.Assignment{}, false
}

// consolidate keeps the central planner's commitments plus every entry granted
// to an agent other than the opportunity's owner.
func (r *run) consolidate() {
	final := make(model.AssignmentMap, len(r.central))
	final.Merge(r.central)

	agents := make([]string, 0, len(r.exclusive))
	for id := range r.exclusive {
		agents = append(agents, id)
	}
	sort.Strings(agents)
	for _, agent := range agents {
		for id, a := range r.exclusive[agent] {
			if a.UserID == agent {
				continue
			}
			if _, dup := final[id]; !dup {
				final[id] = a
			}
		}
	}

	res := r.result
	res.Assignments = final
	res.Central = r.central
	res.Exclusive = r.exclusive

	served := final.Requests()
	for _, req := range r.inst.Requests {
		if !served[req.ID] {
			res.Stats.Unresolved = append(res.Stats.Unresolved, req.ID)
		}
	}
}

func failureKind(err error) string {
	var invErr *solver.InvocationError
	var retErr *solver.RetrievalError
	switch {
	case errors.As(err, &invErr):
		return "invocation"
	case errors.As(err, &retErr):
		return "retrieval"
	default:
		return fmt.Sprintf("%T", err)
	}
}
