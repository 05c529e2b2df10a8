package scheduler

import (
	"sort"

	"github.com/me/satalloc/pkg/model"
)

// SortOpportunities returns a copy of opps ordered by (priority ascending,
// request window start ascending). Ties keep their input order.
func SortOpportunities(inst *model.Instance, opps []*model.Opportunity) []*model.Opportunity {
	sorted := append([]*model.Opportunity(nil), opps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return inst.RequestStart(a) < inst.RequestStart(b)
	})
	return sorted
}

// SortRequests returns a copy of reqs ordered by (owning user priority
// ascending, request window start ascending). Requests of unknown users sort last.
func SortRequests(inst *model.Instance, reqs []*model.Request) []*model.Request {
	priority := func(r *model.Request) (int, bool) {
		if u := inst.User(r.UserID); u != nil {
			return u.Priority, true
		}
		return 0, false
	}
	sorted := append([]*model.Request(nil), reqs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, oki := priority(sorted[i])
		pj, okj := priority(sorted[j])
		if oki != okj {
			return oki
		}
		if pi != pj {
			return pi < pj
		}
		return sorted[i].Start < sorted[j].Start
	})
	return sorted
}
