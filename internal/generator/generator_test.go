package generator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/me/satalloc/pkg/model"
)

func smallConfig(seed uint64) Config {
	cfg := DefaultConfig()
	cfg.Satellites = 3
	cfg.ExclusiveUsers = 2
	cfg.TasksPerUser = 6
	cfg.OppsPerRequest = 4
	cfg.Seed = seed
	return cfg
}

func TestNew_TooManyExclusiveUsers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Satellites = 2
	cfg.ExclusiveUsers = 3

	_, err := New(cfg)
	if !errors.Is(err, ErrTooManyExclusiveUsers) {
		t.Fatalf("err = %v, want ErrTooManyExclusiveUsers", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no satellites", func(c *Config) { c.Satellites = 0 }},
		{"negative users", func(c *Config) { c.ExclusiveUsers = -1 }},
		{"short horizon", func(c *Config) { c.Horizon = 30 }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"duration longer than request window", func(c *Config) { c.Duration = 11 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func generate(t *testing.T, cfg Config) *model.Instance {
	t.Helper()
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g.Generate()
}

func TestGenerate_SameSeedSameInstance(t *testing.T) {
	a, _ := json.Marshal(generate(t, smallConfig(7)))
	b, _ := json.Marshal(generate(t, smallConfig(7)))
	if string(a) != string(b) {
		t.Error("instances generated from the same seed differ")
	}

	c, _ := json.Marshal(generate(t, smallConfig(8)))
	if string(a) == string(c) {
		t.Error("instances generated from different seeds are identical")
	}
}

func TestGenerate_Shape(t *testing.T) {
	cfg := smallConfig(42)
	inst := generate(t, cfg)

	if len(inst.Satellites) != cfg.Satellites {
		t.Errorf("satellites = %d, want %d", len(inst.Satellites), cfg.Satellites)
	}
	if len(inst.Users) != cfg.ExclusiveUsers+1 {
		t.Fatalf("users = %d, want %d", len(inst.Users), cfg.ExclusiveUsers+1)
	}
	central := inst.Users[len(inst.Users)-1]
	if central.ID != model.DefaultCentralPlanner || central.IsExclusive() {
		t.Errorf("last user = %+v, want window-less central planner", central)
	}

	seen := make(map[int]bool)
	for _, u := range inst.Users {
		if u.Priority < 1 || u.Priority > len(inst.Users) || seen[u.Priority] {
			t.Errorf("user %s priority %d is not part of a permutation", u.ID, u.Priority)
		}
		seen[u.Priority] = true
	}

	perUser := make(map[string]int)
	oppIDs := make(map[string]bool)
	for _, r := range inst.Requests {
		perUser[r.UserID]++
		if r.End-r.Start < requestMinLen || r.End-r.Start > requestMaxLen {
			t.Errorf("request %s window length %g out of range", r.ID, r.End-r.Start)
		}
		if len(r.Opportunities) != cfg.OppsPerRequest {
			t.Errorf("request %s has %d opportunities", r.ID, len(r.Opportunities))
		}
		for _, o := range r.Opportunities {
			if oppIDs[o.ID] {
				t.Errorf("duplicate opportunity id %s", o.ID)
			}
			oppIDs[o.ID] = true
			if o.Start < r.Start || o.End > r.End+1e-9 {
				t.Errorf("opportunity %s [%g,%g] outside request [%g,%g]", o.ID, o.Start, o.End, r.Start, r.End)
			}
			if o.Duration != cfg.Duration || o.RequestID != r.ID || o.UserID != r.UserID {
				t.Errorf("opportunity %s not denormalized: %+v", o.ID, o)
			}
		}
	}
	for _, u := range inst.Users {
		n := perUser[u.ID]
		if u.ID == model.DefaultCentralPlanner {
			if n < 8 || n > 80 {
				t.Errorf("central planner has %d requests, want 8..80", n)
			}
			continue
		}
		if n != cfg.TasksPerUser {
			t.Errorf("user %s has %d requests, want %d", u.ID, n, cfg.TasksPerUser)
		}
	}
}

func TestGenerate_ExclusiveWindows(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		inst := generate(t, smallConfig(seed))

		owner := make(map[string]string)
		var all []model.ExclusiveWindow
		for _, u := range inst.ExclusiveUsers() {
			for _, w := range u.ExclusiveWindows {
				if w.End-w.Start < windowMinLen || w.End-w.Start > windowMaxLen {
					t.Errorf("seed %d: window %+v length out of range", seed, w)
				}
				if prev, ok := owner[w.SatelliteID]; ok && prev != u.ID {
					t.Errorf("seed %d: satellite %s shared by %s and %s", seed, w.SatelliteID, prev, u.ID)
				}
				owner[w.SatelliteID] = u.ID
				for _, other := range all {
					if w.Start < other.End && w.End > other.Start {
						t.Errorf("seed %d: windows %+v and %+v overlap", seed, w, other)
					}
				}
				all = append(all, w)
			}
		}

		// Requests of exclusive users target a satellite they hold a window on.
		for _, r := range inst.Requests {
			u := inst.User(r.UserID)
			if !u.IsExclusive() {
				continue
			}
			for _, o := range r.Opportunities {
				if owner[o.SatelliteID] != u.ID {
					t.Errorf("seed %d: opportunity %s of %s on satellite %s outside its windows", seed, o.ID, u.ID, o.SatelliteID)
				}
			}
		}
	}
}
