package dcop

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/me/satalloc/pkg/model"
)

// Builder translates unresolved opportunities plus the committed state into a Problem.
type Builder struct {
	name      string
	objective string
	logger    *slog.Logger
}

// NewBuilder creates a Builder emitting problems named "EOSCSP" with objective "min".
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{
		name:      "EOSCSP",
		objective: "min",
		logger:    logger.With("component", "dcop-builder"),
	}
}

// Build creates the problem for opps. central and exclusive are the commitments
// of earlier phases; they reduce the capacity left on each satellite.
func (b *Builder) Build(inst *model.Instance, opps []*model.Opportunity, central model.AssignmentMap, exclusive map[string]model.AssignmentMap) *Problem {
	p := &Problem{
		Name:      b.name,
		Objective: b.objective,
		Domains:   []Domain{{Name: BinaryDomain, Values: []int{0, 1}}},
	}
	names := make(map[string]bool)

	byOpp := make(map[string][]string)
	agents := make(map[string]bool)
	for _, o := range opps {
		for _, u := range inst.Users {
			if !u.Covers(o) {
				continue
			}
			name := uniqueName(names, "x_"+sanitize(u.ID)+"_"+sanitize(o.ID))
			p.Variables = append(p.Variables, Variable{
				Name:        name,
				Domain:      BinaryDomain,
				Agent:       u.ID,
				Opportunity: o.ID,
			})
			byOpp[o.ID] = append(byOpp[o.ID], name)
			if !agents[u.ID] {
				agents[u.ID] = true
				p.Agents = append(p.Agents, u.ID)
			}
		}
	}

	// One observation per request: every variable of every opportunity of the request.
	var requestOrder []string
	byRequest := make(map[string][]string)
	for _, o := range opps {
		if _, seen := byRequest[o.RequestID]; !seen {
			requestOrder = append(requestOrder, o.RequestID)
			byRequest[o.RequestID] = nil
		}
		byRequest[o.RequestID] = append(byRequest[o.RequestID], byOpp[o.ID]...)
	}
	for _, rid := range requestOrder {
		if vars := byRequest[rid]; len(vars) > 0 {
			p.Constraints = append(p.Constraints, Constraint{
				Name:      uniqueName(names, "one_observation_"+sanitize(rid)),
				Kind:      KindOneObservation,
				Variables: vars,
				Bound:     1,
			})
		}
	}

	// Satellite capacity left after earlier phases.
	committed := committedPerSatellite(central, exclusive)
	for _, s := range inst.Satellites {
		var vars []string
		for _, o := range opps {
			if o.SatelliteID == s.ID {
				vars = append(vars, byOpp[o.ID]...)
			}
		}
		// A constraint over no variables is vacuous.
		if len(vars) == 0 {
			continue
		}
		p.Constraints = append(p.Constraints, Constraint{
			Name:      uniqueName(names, "satellite_capacity_"+sanitize(s.ID)),
			Kind:      KindSatelliteCapacity,
			Variables: vars,
			Bound:     max(0, s.Capacity-committed[s.ID]),
		})
	}

	// One agent per opportunity.
	for _, o := range opps {
		if vars := byOpp[o.ID]; len(vars) > 0 {
			p.Constraints = append(p.Constraints, Constraint{
				Name:      uniqueName(names, "one_agent_per_observation_"+sanitize(o.ID)),
				Kind:      KindOneAgent,
				Variables: vars,
				Bound:     1,
			})
		}
	}

	b.logger.Debug("problem built",
		"opportunities", len(opps),
		"variables", len(p.Variables),
		"constraints", len(p.Constraints),
		"agents", p.Agents,
	)
	return p
}

// committedPerSatellite counts distinct committed opportunities on each satellite.
func committedPerSatellite(central model.AssignmentMap, exclusive map[string]model.AssignmentMap) map[string]int {
	seen := make(map[string]bool)
	counts := make(map[string]int)
	count := func(m model.AssignmentMap) {
		for id, a := range m {
			if seen[id] {
				continue
			}
			seen[id] = true
			counts[a.SatelliteID]++
		}
	}
	count(central)
	for _, m := range exclusive {
		count(m)
	}
	return counts
}

// sanitize maps an id onto the identifier alphabet the solver's expressions accept.
func sanitize(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func uniqueName(used map[string]bool, name string) string {
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
	used[candidate] = true
	return candidate
}
