package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/me/satalloc/internal/parser"
	"github.com/me/satalloc/internal/store"
	"github.com/me/satalloc/pkg/model"
)

// instanceRequest carries an instance document as text, YAML or JSON.
type instanceRequest struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

// parseDocument parses and validates a document. The returned APIError is
// ready to send.
func (s *Server) parseDocument(doc string) (*model.Instance, *model.APIError) {
	if doc == "" {
		return nil, model.NewValidationError("missing required field",
			model.FieldError{Field: "document", Message: "document is required"})
	}
	inst, err := s.parser.Parse([]byte(doc))
	if err != nil {
		return nil, model.NewValidationError("invalid instance document",
			model.FieldError{Field: "document", Message: err.Error()})
	}
	if apiErr := s.validator.Validate(inst); apiErr != nil {
		return nil, apiErr
	}
	return inst, nil
}

func decodeBody(r *http.Request, v any) *model.APIError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &model.APIError{Code: model.ErrValidation, Message: "Invalid JSON body: " + err.Error()}
	}
	return nil
}

func (s *Server) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req instanceRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		respondAPIError(w, reqID, apiErr)
		return
	}
	inst, apiErr := s.parseDocument(req.Document)
	if apiErr != nil {
		respondAPIError(w, reqID, apiErr)
		return
	}

	hash := parser.ContentHash([]byte(req.Document))
	existing, err := s.store.GetInstanceByHash(r.Context(), hash)
	if err != nil {
		respondAPIError(w, reqID, model.NewInternalError(err))
		return
	}
	if existing != nil {
		s.logger.Debug("instance already catalogued", "id", existing.ID, "hash", hash)
		respondOK(w, reqID, existing)
		return
	}

	name := req.Name
	if name == "" {
		name = inst.Name
	}
	if name == "" {
		name = "unnamed-instance"
	}
	rec := &model.InstanceRecord{
		ID:          "inst_" + uuid.New().String(),
		Name:        name,
		ContentHash: hash,
		Document:    req.Document,
		Satellites:  len(inst.Satellites),
		Users:       len(inst.Users),
		Requests:    len(inst.Requests),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateInstance(r.Context(), rec); err != nil {
		respondAPIError(w, reqID, model.NewInternalError(err))
		return
	}
	s.logger.Info("instance created", "id", rec.ID, "name", rec.Name, "summary", inst.Summary())
	respondCreated(w, reqID, rec)
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts := model.DefaultListOptions()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}
	opts.Clamp()

	records, total, err := s.store.ListInstances(r.Context(), opts)
	if err != nil {
		respondAPIError(w, reqID, model.NewInternalError(err))
		return
	}
	if records == nil {
		records = []*model.InstanceRecord{}
	}
	respondList(w, reqID, records, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(records) < total,
	})
}

// loadInstance fetches a record by the {id} URL parameter, writing the error
// response itself when it returns nil.
func (s *Server) loadInstance(w http.ResponseWriter, r *http.Request) *model.InstanceRecord {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetInstance(r.Context(), id)
	if err != nil {
		respondAPIError(w, reqID, model.NewInternalError(err))
		return nil
	}
	if rec == nil {
		respondAPIError(w, reqID, model.NewNotFoundError("instance", id))
		return nil
	}
	return rec
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	if rec := s.loadInstance(w, r); rec != nil {
		respondOK(w, RequestIDFromContext(r.Context()), rec)
	}
}

func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	err := s.store.DeleteInstance(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondAPIError(w, reqID, model.NewNotFoundError("instance", id))
	case err != nil:
		respondAPIError(w, reqID, model.NewInternalError(fmt.Errorf("delete instance: %w", err)))
	default:
		respondOK(w, reqID, map[string]any{"deleted": true, "id": id})
	}
}
