// Package dcop builds the binary-assignment constraint problem handed to the
// distributed constraint solver for requests the greedy phases could not place.
package dcop

import (
	"fmt"
	"sort"
	"strings"
)

// BinaryDomain is the name of the {0, 1} domain every decision variable uses.
const BinaryDomain = "binary"

// ConstraintKind classifies the linear constraints the builder emits.
type ConstraintKind string

const (
	KindOneObservation    ConstraintKind = "one_observation_per_request"
	KindSatelliteCapacity ConstraintKind = "satellite_capacity"
	KindOneAgent          ConstraintKind = "one_agent_per_opportunity"
)

// Domain is a named set of variable values.
type Domain struct {
	Name   string
	Values []int
}

// Variable is the decision "agent takes opportunity".
type Variable struct {
	Name        string
	Domain      string
	Agent       string
	Opportunity string
}

// Constraint is the linear inequality sum(Variables) <= Bound.
type Constraint struct {
	Name      string
	Kind      ConstraintKind
	Variables []string
	Bound     int
}

// Expression renders the constraint in the solver's intention syntax.
func (c Constraint) Expression() string {
	return fmt.Sprintf("sum([%s]) <= %d", strings.Join(c.Variables, ", "), c.Bound)
}

// Satisfied evaluates the constraint against values; missing variables count as 0.
func (c Constraint) Satisfied(values map[string]int) bool {
	sum := 0
	for _, v := range c.Variables {
		sum += values[v]
	}
	return sum <= c.Bound
}

// Problem is the in-memory constraint problem. Serialization lives in yaml.go.
type Problem struct {
	Name        string
	Objective   string
	Domains     []Domain
	Variables   []Variable
	Constraints []Constraint
	Agents      []string

	byName map[string]int
}

// Empty reports whether the problem has no decision variables.
func (p *Problem) Empty() bool {
	return len(p.Variables) == 0
}

// Variable looks up a decision variable by name.
func (p *Problem) Variable(name string) (Variable, bool) {
	if p.byName == nil {
		p.byName = make(map[string]int, len(p.Variables))
		for i, v := range p.Variables {
			p.byName[v.Name] = i
		}
	}
	i, ok := p.byName[name]
	if !ok {
		return Variable{}, false
	}
	return p.Variables[i], true
}

// ConstraintsOf returns the constraints that mention variable name.
func (p *Problem) ConstraintsOf(name string) []Constraint {
	var out []Constraint
	for _, c := range p.Constraints {
		for _, v := range c.Variables {
			if v == name {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Solution maps agent id to the opportunity ids assigned to it.
type Solution map[string]map[string]bool

// Pair is one (agent, opportunity) assignment.
type Pair struct {
	Agent       string
	Opportunity string
}

// Pairs returns every assigned pair ordered by agent, then opportunity.
func (s Solution) Pairs() []Pair {
	var out []Pair
	for agent, opps := range s {
		for opp, assigned := range opps {
			if assigned {
				out = append(out, Pair{Agent: agent, Opportunity: opp})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Agent != out[j].Agent {
			return out[i].Agent < out[j].Agent
		}
		return out[i].Opportunity < out[j].Opportunity
	})
	return out
}

// Decode converts a flat variable -> value result into a Solution, keeping
// only variables valued 1. Unknown variable names are an error.
func (p *Problem) Decode(values map[string]int) (Solution, error) {
	sol := make(Solution)
	for name, val := range values {
		v, ok := p.Variable(name)
		if !ok {
			return nil, fmt.Errorf("unknown variable %q in result", name)
		}
		if val != 1 {
			continue
		}
		if sol[v.Agent] == nil {
			sol[v.Agent] = make(map[string]bool)
		}
		sol[v.Agent][v.Opportunity] = true
	}
	return sol, nil
}
