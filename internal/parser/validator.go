package parser

import (
	"fmt"
	"log/slog"

	"github.com/me/satalloc/pkg/model"
)

// Validator performs semantic validation on a parsed instance.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logger.With("component", "validator")}
}

// Validate checks semantic correctness of an instance.
// Returns nil if valid, or an *model.APIError with FieldError details.
func (v *Validator) Validate(inst *model.Instance) *model.APIError {
	var errs []model.FieldError

	errs = append(errs, v.validateSatellites(inst)...)
	errs = append(errs, v.validateUsers(inst)...)
	errs = append(errs, v.validateRequests(inst)...)

	if len(errs) == 0 {
		return nil
	}
	v.logger.Debug("instance rejected", "errors", len(errs))
	return model.NewValidationError("instance validation failed", errs...)
}

func (v *Validator) validateSatellites(inst *model.Instance) []model.FieldError {
	var errs []model.FieldError
	if len(inst.Satellites) == 0 {
		errs = append(errs, model.FieldError{Field: "satellites", Message: "at least one satellite is required"})
	}
	seen := make(map[string]bool)
	for i, s := range inst.Satellites {
		field := fmt.Sprintf("satellites[%d]", i)
		if s.ID == "" {
			errs = append(errs, model.FieldError{Field: field + ".id", Message: "id is required"})
		} else if seen[s.ID] {
			errs = append(errs, model.FieldError{Field: field + ".id", Message: fmt.Sprintf("duplicate satellite id %q", s.ID)})
		}
		seen[s.ID] = true
		if s.Capacity < 0 {
			errs = append(errs, model.FieldError{Field: field + ".capacity", Message: "capacity must be >= 0"})
		}
		if s.TransitionTime < 0 {
			errs = append(errs, model.FieldError{Field: field + ".transition_time", Message: "transition_time must be >= 0"})
		}
		if s.Start > s.End {
			errs = append(errs, model.FieldError{Field: field, Message: fmt.Sprintf("start %g after end %g", s.Start, s.End)})
		}
	}
	return errs
}

func (v *Validator) validateUsers(inst *model.Instance) []model.FieldError {
	var errs []model.FieldError
	seen := make(map[string]bool)
	for i, u := range inst.Users {
		field := fmt.Sprintf("users[%d]", i)
		if u.ID == "" {
			errs = append(errs, model.FieldError{Field: field + ".id", Message: "id is required"})
		} else if seen[u.ID] {
			errs = append(errs, model.FieldError{Field: field + ".id", Message: fmt.Sprintf("duplicate user id %q", u.ID)})
		}
		seen[u.ID] = true

		for j, w := range u.ExclusiveWindows {
			wf := fmt.Sprintf("%s.exclusive_windows[%d]", field, j)
			if inst.Satellite(w.SatelliteID) == nil {
				errs = append(errs, model.FieldError{Field: wf + ".satellite", Message: fmt.Sprintf("unknown satellite %q", w.SatelliteID)})
			}
			if w.Start > w.End {
				errs = append(errs, model.FieldError{Field: wf, Message: fmt.Sprintf("start %g after end %g", w.Start, w.End)})
			}
		}
	}
	return errs
}

func (v *Validator) validateRequests(inst *model.Instance) []model.FieldError {
	var errs []model.FieldError
	seenReq := make(map[string]bool)
	seenOpp := make(map[string]bool)
	for i, r := range inst.Requests {
		field := fmt.Sprintf("requests[%d]", i)
		if r.ID == "" {
			errs = append(errs, model.FieldError{Field: field + ".id", Message: "id is required"})
		} else if seenReq[r.ID] {
			errs = append(errs, model.FieldError{Field: field + ".id", Message: fmt.Sprintf("duplicate request id %q", r.ID)})
		}
		seenReq[r.ID] = true

		if inst.User(r.UserID) == nil {
			errs = append(errs, model.FieldError{Field: field + ".user", Message: fmt.Sprintf("unknown user %q", r.UserID)})
		}
		if r.Duration <= 0 {
			errs = append(errs, model.FieldError{Field: field + ".duration", Message: "duration must be > 0"})
		}
		if r.Start > r.End {
			errs = append(errs, model.FieldError{Field: field, Message: fmt.Sprintf("start %g after end %g", r.Start, r.End)})
		}

		for j, o := range r.Opportunities {
			of := fmt.Sprintf("%s.opportunities[%d]", field, j)
			if o.ID == "" {
				errs = append(errs, model.FieldError{Field: of + ".id", Message: "id is required"})
			} else if seenOpp[o.ID] {
				errs = append(errs, model.FieldError{Field: of + ".id", Message: fmt.Sprintf("duplicate opportunity id %q", o.ID)})
			}
			seenOpp[o.ID] = true

			if inst.Satellite(o.SatelliteID) == nil {
				errs = append(errs, model.FieldError{Field: of + ".satellite", Message: fmt.Sprintf("unknown satellite %q", o.SatelliteID)})
			}
			if o.Start > o.End {
				errs = append(errs, model.FieldError{Field: of, Message: fmt.Sprintf("start %g after end %g", o.Start, o.End)})
			}
		}
	}
	return errs
}
