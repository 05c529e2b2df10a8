package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/me/satalloc/internal/allocator"
	"github.com/me/satalloc/internal/parser"
	"github.com/me/satalloc/pkg/model"
)

type solveRequest struct {
	Document  string `json:"document,omitempty"`
	Backend   string `json:"backend,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
}

type solveResponse struct {
	InstanceID string             `json:"instance_id,omitempty"`
	Backend    string             `json:"backend"`
	Algorithm  string             `json:"algorithm"`
	Shared     bool               `json:"shared"`
	Schedule   []model.Assignment `json:"schedule"`
	Result     *allocator.Result  `json:"result"`
}

// decodeSolveRequest accepts an empty body as "all defaults".
func decodeSolveRequest(r *http.Request) (solveRequest, *model.APIError) {
	var req solveRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, &model.APIError{Code: model.ErrValidation, Message: "Invalid JSON body: " + err.Error()}
	}
	return req, nil
}

func (s *Server) handleSolveInstance(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	req, apiErr := decodeSolveRequest(r)
	if apiErr != nil {
		respondAPIError(w, reqID, apiErr)
		return
	}
	rec := s.loadInstance(w, r)
	if rec == nil {
		return
	}

	resp, apiErr := s.solve(r.Context(), rec.Document, req)
	if apiErr != nil {
		respondAPIError(w, reqID, apiErr)
		return
	}
	resp.InstanceID = rec.ID
	respondOK(w, reqID, resp)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	req, apiErr := decodeSolveRequest(r)
	if apiErr != nil {
		respondAPIError(w, reqID, apiErr)
		return
	}
	resp, apiErr := s.solve(r.Context(), req.Document, req)
	if apiErr != nil {
		respondAPIError(w, reqID, apiErr)
		return
	}
	respondOK(w, reqID, resp)
}

// solve runs the allocation on doc. Identical concurrent requests (same
// document, backend and algorithm) share one run. The run is detached from the
// caller's cancellation so a disconnecting client does not cut short the
// result handed to the others.
func (s *Server) solve(ctx context.Context, doc string, req solveRequest) (*solveResponse, *model.APIError) {
	backend := req.Backend
	if backend == "" {
		backend = s.config.Solver.Backend
	}
	sv, err := s.solvers.Get(backend)
	if err != nil {
		return nil, model.NewValidationError("unknown solver backend",
			model.FieldError{Field: "backend", Message: err.Error()})
	}
	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = s.config.Solver.Algorithm
	}

	inst, apiErr := s.parseDocument(doc)
	if apiErr != nil {
		return nil, apiErr
	}

	key := parser.ContentHash([]byte(doc)) + "|" + backend + "|" + algorithm
	v, err, shared := s.solves.Do(key, func() (any, error) {
		return s.allocatorFor(sv, algorithm).Solve(context.WithoutCancel(ctx), inst)
	})
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	res := v.(*allocator.Result)
	if shared {
		s.logger.Debug("solve shared", "run_id", res.RunID)
	}

	return &solveResponse{
		Backend:   backend,
		Algorithm: algorithm,
		Shared:    shared,
		Schedule:  res.Assignments.Sorted(),
		Result:    res,
	}, nil
}
