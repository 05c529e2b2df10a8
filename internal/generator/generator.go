// Package generator produces synthetic allocation instances: satellites,
// exclusive users with non-overlapping windows, requests and their candidate
// opportunities.
package generator

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/me/satalloc/pkg/model"
)

// Config controls instance generation.
type Config struct {
	Satellites     int     `json:"satellites" yaml:"satellites"`
	ExclusiveUsers int     `json:"exclusive_users" yaml:"exclusive_users"`
	TasksPerUser   int     `json:"tasks_per_user" yaml:"tasks_per_user"`
	Horizon        float64 `json:"horizon" yaml:"horizon"`
	Capacity       int     `json:"capacity" yaml:"capacity"`
	TransitionTime float64 `json:"transition_time" yaml:"transition_time"`
	WindowsPerSat  int     `json:"windows_per_satellite" yaml:"windows_per_satellite"`
	OppsPerRequest int     `json:"opportunities_per_request" yaml:"opportunities_per_request"`
	Duration       float64 `json:"duration" yaml:"duration"`
	CentralPlanner string  `json:"central_planner" yaml:"central_planner"`
	Seed           uint64  `json:"seed" yaml:"seed"`
}

// DefaultConfig mirrors the reference experiment: 5 satellites, 4 exclusive
// users with 20 requests each, over a 300 s horizon.
func DefaultConfig() Config {
	return Config{
		Satellites:     5,
		ExclusiveUsers: 4,
		TasksPerUser:   20,
		Horizon:        300,
		Capacity:       20,
		TransitionTime: 1,
		WindowsPerSat:  8,
		OppsPerRequest: 10,
		Duration:       5,
		CentralPlanner: model.DefaultCentralPlanner,
	}
}

// ErrTooManyExclusiveUsers is returned when the configuration asks for more
// exclusive users than there are satellites.
var ErrTooManyExclusiveUsers = errors.New("more exclusive users than satellites")

const (
	windowMinLen  = 15.0
	windowMaxLen  = 20.0
	requestMinLen = 10.0
	requestMaxLen = 20.0

	maxWindowAttempts = 1000
)

// Generator builds instances from a seeded random source.
type Generator struct {
	cfg   Config
	rng   *rand.Rand
	oppID int
}

// New validates cfg and creates a Generator.
func New(cfg Config) (*Generator, error) {
	switch {
	case cfg.Satellites <= 0:
		return nil, fmt.Errorf("satellites must be > 0, got %d", cfg.Satellites)
	case cfg.ExclusiveUsers < 0 || cfg.TasksPerUser < 0:
		return nil, errors.New("exclusive users and tasks per user must be >= 0")
	case cfg.ExclusiveUsers > cfg.Satellites:
		return nil, fmt.Errorf("%w: %d users, %d satellites", ErrTooManyExclusiveUsers, cfg.ExclusiveUsers, cfg.Satellites)
	case cfg.Horizon <= windowMaxLen+requestMaxLen:
		return nil, fmt.Errorf("horizon %g too short", cfg.Horizon)
	case cfg.Duration <= 0 || cfg.Duration > requestMinLen:
		return nil, fmt.Errorf("duration must be in (0, %g], got %g", requestMinLen, cfg.Duration)
	}
	if cfg.CentralPlanner == "" {
		cfg.CentralPlanner = model.DefaultCentralPlanner
	}
	if cfg.OppsPerRequest <= 0 {
		cfg.OppsPerRequest = 1
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Generate builds one instance. Identical configs (including Seed) produce identical instances.
func (g *Generator) Generate() *model.Instance {
	inst := &model.Instance{Name: fmt.Sprintf("generated-%d", g.cfg.Seed)}
	for i := 0; i < g.cfg.Satellites; i++ {
		inst.Satellites = append(inst.Satellites, g.satellite(i))
	}
	inst.Users = g.users(inst.Satellites)

	taskID := 1
	for _, u := range inst.Users {
		n := g.cfg.TasksPerUser
		if u.ID == g.cfg.CentralPlanner {
			n = 8 + g.rng.IntN(73)
		}
		for j := 0; j < n; j++ {
			inst.Requests = append(inst.Requests, g.request(taskID, u, inst.Satellites))
			taskID++
		}
	}
	inst.Index()
	return inst
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) satellite(i int) *model.Satellite {
	start := g.uniform(0, 100)
	return &model.Satellite{
		ID:             fmt.Sprintf("satellite_%d", i+1),
		Start:          start,
		End:            start + g.uniform(0, max(g.cfg.Horizon-start, 0)),
		Capacity:       g.cfg.Capacity,
		TransitionTime: g.cfg.TransitionTime,
	}
}

// users creates the exclusive users and, last, the central planner. Priorities
// are a permutation of 1..n+1; the central planner takes the one left over.
func (g *Generator) users(sats []*model.Satellite) []*model.User {
	n := g.cfg.ExclusiveUsers
	priorities := make([]int, n+1)
	for i := range priorities {
		priorities[i] = i + 1
	}
	g.rng.Shuffle(len(priorities), func(i, j int) { priorities[i], priorities[j] = priorities[j], priorities[i] })

	var taken [][2]float64
	used := make(map[string]bool)
	users := make([]*model.User, 0, n+1)
	for i := 0; i < n; i++ {
		u := &model.User{ID: fmt.Sprintf("exclusive_user_%d", i+1), Priority: priorities[i]}
		for _, idx := range g.rng.Perm(len(sats))[:1+g.rng.IntN(len(sats))] {
			sat := sats[idx]
			if used[sat.ID] {
				continue
			}
			windows := g.windows(taken)
			if len(windows) == 0 {
				continue
			}
			for _, w := range windows {
				u.ExclusiveWindows = append(u.ExclusiveWindows, model.ExclusiveWindow{SatelliteID: sat.ID, Start: w[0], End: w[1]})
			}
			taken = append(taken, windows...)
			used[sat.ID] = true
		}
		users = append(users, u)
	}
	users = append(users, &model.User{ID: g.cfg.CentralPlanner, Priority: priorities[n]})
	return users
}

// windows draws up to WindowsPerSat intervals that overlap neither taken nor each other.
func (g *Generator) windows(taken [][2]float64) [][2]float64 {
	var out [][2]float64
	for attempt := 0; len(out) < g.cfg.WindowsPerSat && attempt < maxWindowAttempts; attempt++ {
		start := g.uniform(0, g.cfg.Horizon-windowMaxLen)
		end := start + g.uniform(windowMinLen, windowMaxLen)
		if overlapsAny(start, end, taken) || overlapsAny(start, end, out) {
			continue
		}
		out = append(out, [2]float64{start, end})
	}
	return out
}

func overlapsAny(start, end float64, windows [][2]float64) bool {
	for _, w := range windows {
		if start < w[1] && end > w[0] {
			return true
		}
	}
	return false
}

func (g *Generator) request(id int, u *model.User, sats []*model.Satellite) *model.Request {
	start := g.uniform(0, g.cfg.Horizon)
	end := start + g.uniform(requestMinLen, requestMaxLen)

	var reward float64
	if u.Priority >= 10 {
		reward = float64(10 + g.rng.IntN(41))
	} else {
		reward = float64(1 + g.rng.IntN(5))
	}

	sat := sats[g.rng.IntN(len(sats))]
	if u.IsExclusive() {
		w := u.ExclusiveWindows[g.rng.IntN(len(u.ExclusiveWindows))]
		for _, s := range sats {
			if s.ID == w.SatelliteID {
				sat = s
				break
			}
		}
	}

	req := &model.Request{
		ID:       fmt.Sprintf("task_%d", id),
		UserID:   u.ID,
		Start:    start,
		End:      end,
		Duration: g.cfg.Duration,
		Reward:   reward,
		Target: &model.Position{
			Latitude:  g.uniform(-90, 90),
			Longitude: g.uniform(-180, 180),
			Altitude:  g.uniform(0, 400),
		},
	}
	for k := 0; k < g.cfg.OppsPerRequest; k++ {
		g.oppID++
		oStart := g.uniform(start, end-g.cfg.Duration)
		req.Opportunities = append(req.Opportunities, &model.Opportunity{
			ID:          fmt.Sprintf("obs_%d", g.oppID),
			SatelliteID: sat.ID,
			Start:       oStart,
			End:         oStart + g.cfg.Duration,
		})
	}
	return req
}
