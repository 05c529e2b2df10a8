package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/satalloc/internal/config"
	"github.com/me/satalloc/internal/server"
	"github.com/me/satalloc/internal/solver"
	"github.com/me/satalloc/internal/store"
	"github.com/me/satalloc/pkg/model"
)

// startTestServer starts a server with an in-memory SQLite store and the
// local solver, and returns the URL.
func startTestServer(t *testing.T) string {
	t.Helper()
	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", srvLogger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Solver.Backend = "local"
	cfg.Solver.Algorithm = "greedy"
	reg := solver.NewRegistry(srvLogger)
	reg.Register(solver.NewLocal(srvLogger))

	srv := server.New(cfg, st, srvLogger, server.WithSolverRegistry(reg))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func testdataPath(rel string) string {
	return filepath.Join("..", "..", "testdata", rel)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := root.Execute()
	return buf.String(), err
}

func TestGenerateAndValidate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen.yaml")

	output, err := runCLI(t, "generate",
		"--satellites", "3", "--exclusive-users", "2", "--tasks-per-user", "4",
		"--seed", "11", "--out", out)
	if err != nil {
		t.Fatalf("generate error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Instance written: "+out) {
		t.Errorf("unexpected output: %s", output)
	}

	output, err = runCLI(t, "validate", out)
	if err != nil {
		t.Fatalf("validate error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "valid (3 satellites, 3 users") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestGenerate_SeedIsDeterministic(t *testing.T) {
	a, err := runCLI(t, "generate", "--seed", "5", "--format", "json")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := runCLI(t, "generate", "--seed", "5", "--format", "json")
	if a != b {
		t.Error("same seed produced different documents")
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(a), &doc); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
}

func TestGenerate_TooManyExclusiveUsers(t *testing.T) {
	_, err := runCLI(t, "generate", "--satellites", "2", "--exclusive-users", "3")
	if err == nil || !strings.Contains(err.Error(), "more exclusive users than satellites") {
		t.Errorf("err = %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "satellites: [{id: s, capacity: -1}]\nusers: []\nrequests: [{id: r, user: ghost, duration: 5}]\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := runCLI(t, "validate", path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(output, "satellites[0].capacity") || !strings.Contains(output, "requests[0].user") {
		t.Errorf("field errors missing from output: %s", output)
	}
}

func TestSolveCommand_Local(t *testing.T) {
	output, err := runCLI(t, "solve", testdataPath("instances/capacity-one.json"),
		"--backend", "local", "--algo", "greedy", "--output", "json")
	if err != nil {
		t.Fatalf("solve error: %v\noutput: %s", err, output)
	}

	var rep struct {
		Backend  string             `json:"backend"`
		Schedule []model.Assignment `json:"schedule"`
		Stats    struct {
			Unresolved []string `json:"unresolved"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(output), &rep); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if rep.Backend != "local" {
		t.Errorf("backend = %q", rep.Backend)
	}
	if len(rep.Schedule) != 1 || rep.Schedule[0].OpportunityID != "A" {
		t.Errorf("schedule = %+v, want only A", rep.Schedule)
	}
	if len(rep.Stats.Unresolved) != 1 || rep.Stats.Unresolved[0] != "r2" {
		t.Errorf("unresolved = %v, want [r2]", rep.Stats.Unresolved)
	}
}

func TestSolveCommand_UnknownBackend(t *testing.T) {
	_, err := runCLI(t, "solve", testdataPath("instances/two-users.yaml"), "--backend", "quantum")
	if err == nil || !strings.Contains(err.Error(), "no solver registered") {
		t.Errorf("err = %v", err)
	}
}

func TestSolveCommand_MissingFile(t *testing.T) {
	if _, err := runCLI(t, "solve", "nonexistent.yaml", "--backend", "local"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSubmitCommand(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t, "--server", url, "submit", testdataPath("instances/two-users.yaml"), "--solve")
	if err != nil {
		t.Fatalf("submit error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Instance registered: inst_") {
		t.Errorf("expected 'Instance registered: inst_' in output, got: %s", output)
	}
	if !strings.Contains(output, "(local/greedy)") || !strings.Contains(output, "SATELLITE") {
		t.Errorf("expected solve summary and schedule in output, got: %s", output)
	}
}

func TestInstancesCommands(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t, "--server", url, "instances", "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.Contains(output, "No instances found.") {
		t.Errorf("unexpected output: %s", output)
	}

	output, err = runCLI(t, "--server", url, "submit", testdataPath("instances/two-users.yaml"), "--name", "demo")
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	id := strings.Fields(strings.TrimPrefix(output, "Instance registered: "))[0]

	output, err = runCLI(t, "--server", url, "instances", "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.Contains(output, id) || !strings.Contains(output, "demo") {
		t.Errorf("expected %s in list, got: %s", id, output)
	}

	output, err = runCLI(t, "--server", url, "instances", "get", id, "--document")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if !strings.Contains(output, "Requests:   4") || !strings.Contains(output, "exclusive_windows") {
		t.Errorf("unexpected get output: %s", output)
	}

	if _, err := runCLI(t, "--server", url, "instances", "delete", id); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if _, err := runCLI(t, "--server", url, "instances", "get", id); err == nil {
		t.Error("expected error for deleted instance")
	}
}
