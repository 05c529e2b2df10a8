package model

import "fmt"

// DefaultCentralPlanner is the user id of the privileged planner whose
// requests are scheduled before any exclusive user.
const DefaultCentralPlanner = "central_planner"

// Satellite is a shared observation resource.
type Satellite struct {
	ID             string  `json:"id" yaml:"id"`
	Start          float64 `json:"start" yaml:"start"`
	End            float64 `json:"end" yaml:"end"`
	Capacity       int     `json:"capacity" yaml:"capacity"`
	TransitionTime float64 `json:"transition_time" yaml:"transition_time"`
}

// ExclusiveWindow grants one user sole eligibility on a satellite during [Start, End].
type ExclusiveWindow struct {
	SatelliteID string  `json:"satellite" yaml:"satellite"`
	Start       float64 `json:"start" yaml:"start"`
	End         float64 `json:"end" yaml:"end"`
}

// Overlaps reports whether the window intersects [start, end] on satelliteID.
func (w ExclusiveWindow) Overlaps(satelliteID string, start, end float64) bool {
	return w.SatelliteID == satelliteID && w.Start < end && w.End > start
}

// User competes for observation time. Lower Priority values take precedence.
type User struct {
	ID               string            `json:"id" yaml:"id"`
	Priority         int               `json:"priority" yaml:"priority"`
	ExclusiveWindows []ExclusiveWindow `json:"exclusive_windows,omitempty" yaml:"exclusive_windows,omitempty"`
}

// IsExclusive returns true if the user holds at least one exclusive window.
func (u *User) IsExclusive() bool {
	return len(u.ExclusiveWindows) > 0
}

// Covers reports whether any of the user's exclusive windows overlaps the opportunity.
func (u *User) Covers(o *Opportunity) bool {
	for _, w := range u.ExclusiveWindows {
		if w.Overlaps(o.SatelliteID, o.Start, o.End) {
			return true
		}
	}
	return false
}

// Position is the ground target of a request.
type Position struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Altitude  float64 `json:"altitude" yaml:"altitude"`
}

// Request is a user's need for one observation. At most one of its
// opportunities is ever committed.
type Request struct {
	ID            string         `json:"id" yaml:"id"`
	UserID        string         `json:"user" yaml:"user"`
	Start         float64        `json:"start" yaml:"start"`
	End           float64        `json:"end" yaml:"end"`
	Duration      float64        `json:"duration" yaml:"duration"`
	Reward        float64        `json:"reward" yaml:"reward"`
	Target        *Position      `json:"target,omitempty" yaml:"target,omitempty"`
	Opportunities []*Opportunity `json:"opportunities" yaml:"opportunities"`
}

// Opportunity is a concrete candidate window on one satellite for one request.
// Duration, Reward, UserID and Priority are denormalized from the owning
// request and user by Instance.Index.
type Opportunity struct {
	ID          string  `json:"id" yaml:"id"`
	SatelliteID string  `json:"satellite" yaml:"satellite"`
	Start       float64 `json:"start" yaml:"start"`
	End         float64 `json:"end" yaml:"end"`
	Duration    float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	Reward      float64 `json:"reward,omitempty" yaml:"reward,omitempty"`
	RequestID   string  `json:"request,omitempty" yaml:"request,omitempty"`
	UserID      string  `json:"user,omitempty" yaml:"user,omitempty"`
	Priority    int     `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Instance is a fully materialized allocation problem.
type Instance struct {
	Name       string       `json:"name,omitempty" yaml:"name,omitempty"`
	Satellites []*Satellite `json:"satellites" yaml:"satellites"`
	Users      []*User      `json:"users" yaml:"users"`
	Requests   []*Request   `json:"requests" yaml:"requests"`

	satellites    map[string]*Satellite
	users         map[string]*User
	requests      map[string]*Request
	opportunities map[string]*Opportunity
}

// Index builds the id lookups and fills the denormalized opportunity fields.
// It must be called once after construction and before scheduling.
func (inst *Instance) Index() {
	inst.satellites = make(map[string]*Satellite, len(inst.Satellites))
	for _, s := range inst.Satellites {
		inst.satellites[s.ID] = s
	}
	inst.users = make(map[string]*User, len(inst.Users))
	for _, u := range inst.Users {
		inst.users[u.ID] = u
	}
	inst.requests = make(map[string]*Request, len(inst.Requests))
	inst.opportunities = make(map[string]*Opportunity)
	for _, r := range inst.Requests {
		inst.requests[r.ID] = r
		for _, o := range r.Opportunities {
			o.RequestID = r.ID
			o.UserID = r.UserID
			if o.Duration == 0 {
				o.Duration = r.Duration
			}
			if o.Reward == 0 {
				o.Reward = r.Reward
			}
			if u, ok := inst.users[r.UserID]; ok {
				o.Priority = u.Priority
			}
			inst.opportunities[o.ID] = o
		}
	}
}

func (inst *Instance) ensureIndexed() {
	if inst.satellites == nil {
		inst.Index()
	}
}

// Satellite returns the satellite with the given id, or nil.
func (inst *Instance) Satellite(id string) *Satellite {
	inst.ensureIndexed()
	return inst.satellites[id]
}

// User returns the user with the given id, or nil.
func (inst *Instance) User(id string) *User {
	inst.ensureIndexed()
	return inst.users[id]
}

// Request returns the request with the given id, or nil.
func (inst *Instance) Request(id string) *Request {
	inst.ensureIndexed()
	return inst.requests[id]
}

// Opportunity returns the opportunity with the given id, or nil.
func (inst *Instance) Opportunity(id string) *Opportunity {
	inst.ensureIndexed()
	return inst.opportunities[id]
}

// Opportunities returns every opportunity in request order.
func (inst *Instance) Opportunities() []*Opportunity {
	var out []*Opportunity
	for _, r := range inst.Requests {
		out = append(out, r.Opportunities...)
	}
	return out
}

// OpportunitiesFor returns the opportunities owned by userID, in request order.
func (inst *Instance) OpportunitiesFor(userID string) []*Opportunity {
	var out []*Opportunity
	for _, r := range inst.Requests {
		if r.UserID != userID {
			continue
		}
		out = append(out, r.Opportunities...)
	}
	return out
}

// ExclusiveUsers returns the users holding exclusive windows, in declaration order.
func (inst *Instance) ExclusiveUsers() []*User {
	var out []*User
	for _, u := range inst.Users {
		if u.IsExclusive() {
			out = append(out, u)
		}
	}
	return out
}

// RequestStart returns the request window start of the opportunity's owner.
func (inst *Instance) RequestStart(o *Opportunity) float64 {
	if r := inst.Request(o.RequestID); r != nil {
		return r.Start
	}
	return o.Start
}

// Summary returns a short description used in log lines.
func (inst *Instance) Summary() string {
	return fmt.Sprintf("%d satellites, %d users, %d requests, %d opportunities",
		len(inst.Satellites), len(inst.Users), len(inst.Requests), len(inst.Opportunities()))
}
