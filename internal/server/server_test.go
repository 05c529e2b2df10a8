package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/satalloc/internal/config"
	"github.com/me/satalloc/internal/solver"
	"github.com/me/satalloc/internal/store"
	"github.com/me/satalloc/pkg/model"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(t.Context()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Solver.Backend = "local"
	cfg.Solver.Algorithm = "greedy"

	reg := solver.NewRegistry(logger)
	reg.Register(solver.NewLocal(logger))
	return New(cfg, st, logger, WithSolverRegistry(reg))
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func do(t *testing.T, srv *Server, method, path, body string, wantStatus int) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status=%d, want %d, body=%s", method, path, w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v", method, path, err)
	}
	return env
}

func instanceBody(t *testing.T, name string) string {
	t.Helper()
	doc, err := os.ReadFile(filepath.Join("..", "..", "testdata", "instances", "two-users.yaml"))
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	body, _ := json.Marshal(instanceRequest{Name: name, Document: string(doc)})
	return string(body)
}

func TestDiscovery(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/", "", http.StatusOK)
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}
	if env.RequestID == "" {
		t.Error("request_id is empty")
	}

	var data discoveryResponse
	json.Unmarshal(env.Data, &data)
	if data.Name != "satalloc API" {
		t.Errorf("name = %q", data.Name)
	}
	if len(data.Endpoints) < 5 {
		t.Errorf("endpoints count = %d, want >= 5", len(data.Endpoints))
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/health", "", http.StatusOK)

	var data healthResponse
	json.Unmarshal(env.Data, &data)
	if data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", data.Status)
	}
	if len(data.Solvers) != 1 || data.Solvers[0] != "local" {
		t.Errorf("solvers = %v, want [local]", data.Solvers)
	}
}

func TestInstanceLifecycle(t *testing.T) {
	srv := testServer(t)

	env := do(t, srv, "POST", "/api/v1/instances/", instanceBody(t, "demo"), http.StatusCreated)
	var rec model.InstanceRecord
	json.Unmarshal(env.Data, &rec)
	if !strings.HasPrefix(rec.ID, "inst_") {
		t.Errorf("id = %q, want inst_ prefix", rec.ID)
	}
	if rec.Name != "demo" || rec.Satellites != 2 || rec.Users != 3 || rec.Requests != 4 {
		t.Errorf("record = %+v", rec)
	}

	// Same document again returns the catalogued record.
	env = do(t, srv, "POST", "/api/v1/instances/", instanceBody(t, "other-name"), http.StatusOK)
	var again model.InstanceRecord
	json.Unmarshal(env.Data, &again)
	if again.ID != rec.ID {
		t.Errorf("duplicate upload created %s, want %s", again.ID, rec.ID)
	}

	env = do(t, srv, "GET", "/api/v1/instances/", "", http.StatusOK)
	if env.Pagination == nil || env.Pagination.Total != 1 {
		t.Errorf("pagination = %+v, want total 1", env.Pagination)
	}

	env = do(t, srv, "GET", "/api/v1/instances/"+rec.ID, "", http.StatusOK)
	var got model.InstanceRecord
	json.Unmarshal(env.Data, &got)
	if !strings.Contains(got.Document, "exclusive_windows") {
		t.Error("document not returned")
	}

	do(t, srv, "DELETE", "/api/v1/instances/"+rec.ID, "", http.StatusOK)
	env = do(t, srv, "GET", "/api/v1/instances/"+rec.ID, "", http.StatusNotFound)
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %v, want NOT_FOUND", env.Error)
	}
	do(t, srv, "DELETE", "/api/v1/instances/"+rec.ID, "", http.StatusNotFound)
}

func TestCreateInstance_Invalid(t *testing.T) {
	srv := testServer(t)

	env := do(t, srv, "POST", "/api/v1/instances/", "not json", http.StatusBadRequest)
	if env.Status != "error" || env.Error.Code != model.ErrValidation {
		t.Errorf("env = %+v", env)
	}

	env = do(t, srv, "POST", "/api/v1/instances/", `{"name":"x"}`, http.StatusBadRequest)
	if env.Error.Details[0].Field != "document" {
		t.Errorf("details = %+v", env.Error.Details)
	}

	// Parses, but the request references an unknown user.
	doc := "satellites: [{id: s, capacity: 1}]\nrequests: [{id: r, user: ghost, duration: 1}]\n"
	body, _ := json.Marshal(instanceRequest{Document: doc})
	env = do(t, srv, "POST", "/api/v1/instances/", string(body), http.StatusBadRequest)
	if env.Error == nil || len(env.Error.Details) == 0 {
		t.Fatalf("error = %+v", env.Error)
	}
}

func TestSolveStoredInstance(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "POST", "/api/v1/instances/", instanceBody(t, "demo"), http.StatusCreated)
	var rec model.InstanceRecord
	json.Unmarshal(env.Data, &rec)

	env = do(t, srv, "POST", "/api/v1/instances/"+rec.ID+"/solve", "", http.StatusOK)
	var resp struct {
		InstanceID string             `json:"instance_id"`
		Backend    string             `json:"backend"`
		Algorithm  string             `json:"algorithm"`
		Schedule   []model.Assignment `json:"schedule"`
		Result     struct {
			RunID string `json:"run_id"`
			Stats struct {
				CentralAssigned int `json:"central_assigned"`
			} `json:"stats"`
		} `json:"result"`
	}
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.InstanceID != rec.ID || resp.Backend != "local" || resp.Algorithm != "greedy" {
		t.Errorf("resp = %+v", resp)
	}
	if !strings.HasPrefix(resp.Result.RunID, "run_") {
		t.Errorf("run id = %q", resp.Result.RunID)
	}
	if resp.Result.Stats.CentralAssigned != 2 {
		t.Errorf("central assigned = %d, want 2", resp.Result.Stats.CentralAssigned)
	}
	ids := make(map[string]bool)
	for _, a := range resp.Schedule {
		ids[a.OpportunityID] = true
	}
	if !ids["c1"] || !ids["c2"] {
		t.Errorf("schedule = %+v, want c1 and c2", resp.Schedule)
	}

	do(t, srv, "POST", "/api/v1/instances/missing/solve", "", http.StatusNotFound)
}

func TestSolveInline(t *testing.T) {
	srv := testServer(t)
	doc := `{"satellites":[{"id":"sat","capacity":1,"transition_time":1}],
		"users":[{"id":"central_planner","priority":1}],
		"requests":[
			{"id":"r1","user":"central_planner","start":0,"end":10,"duration":5,"opportunities":[{"id":"A","satellite":"sat","start":0,"end":10}]},
			{"id":"r2","user":"central_planner","start":6,"end":12,"duration":5,"opportunities":[{"id":"B","satellite":"sat","start":6,"end":12}]}]}`
	body, _ := json.Marshal(solveRequest{Document: doc})

	env := do(t, srv, "POST", "/api/v1/solve", string(body), http.StatusOK)
	var resp struct {
		Schedule []model.Assignment `json:"schedule"`
		Result   struct {
			Stats struct {
				Unresolved []string `json:"unresolved"`
			} `json:"stats"`
		} `json:"result"`
	}
	json.Unmarshal(env.Data, &resp)
	if len(resp.Schedule) != 1 || resp.Schedule[0].OpportunityID != "A" || resp.Schedule[0].Start != 0 {
		t.Errorf("schedule = %+v, want A at 0", resp.Schedule)
	}
	if len(resp.Result.Stats.Unresolved) != 1 || resp.Result.Stats.Unresolved[0] != "r2" {
		t.Errorf("unresolved = %v, want [r2]", resp.Result.Stats.Unresolved)
	}
}

func TestSolve_UnknownBackend(t *testing.T) {
	srv := testServer(t)
	body, _ := json.Marshal(solveRequest{Document: "satellites: []", Backend: "quantum"})
	env := do(t, srv, "POST", "/api/v1/solve", string(body), http.StatusBadRequest)
	if env.Error == nil || env.Error.Details[0].Field != "backend" {
		t.Errorf("error = %+v", env.Error)
	}
}
