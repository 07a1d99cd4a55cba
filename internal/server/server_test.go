package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/stepsched/internal/config"
	"github.com/aristath/stepsched/internal/persistence"
)

const exampleEdges = `[["C","A"],["C","F"],["A","B"],["A","D"],["B","E"],["D","E"],["F","E"]]`

func testServer(t *testing.T, withStore bool) *Server {
	t.Helper()
	var store persistence.Store
	if withStore {
		s, err := persistence.NewMemoryStore(context.Background())
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		store = s
	}
	return New(config.ExampleConfig(), store)
}

func doRequest(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp.StatusCode, data
}

func TestHealthz(t *testing.T) {
	status, body := doRequest(t, testServer(t, false), http.MethodGet, "/healthz", "")
	if status != 200 || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("GET /healthz = %d %s", status, body)
	}
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		order    string
		makespan int
	}{
		{
			name:     "edges with server defaults",
			body:     `{"edges":` + exampleEdges + `}`,
			order:    "CABDFE",
			makespan: 15,
		},
		{
			name:     "edges with overrides",
			body:     `{"edges":` + exampleEdges + `,"workers":5,"base_cost":60}`,
			order:    "CABDFE",
			makespan: 253,
		},
		{
			name:     "instructions",
			body:     `{"instructions":"Step C must be finished before step A can begin.\nStep A must be finished before step B can begin.\n","workers":1}`,
			order:    "CAB",
			makespan: 6,
		},
		{
			name:     "instructions over a custom alphabet",
			body:     `{"instructions":"Step c must be finished before step a can begin.\n","alphabet":"abc","workers":1}`,
			order:    "ca",
			makespan: 4,
		},
		{
			name:     "more workers than anyone could use",
			body:     `{"edges":` + exampleEdges + `,"workers":1099511627776}`,
			order:    "CABDFE",
			makespan: 14,
		},
		{
			name:     "empty graph",
			body:     `{}`,
			order:    "",
			makespan: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, testServer(t, false), http.MethodPost, "/solve", tt.body)
			if status != 200 {
				t.Fatalf("status = %d, body %s", status, body)
			}
			var resp SolveResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Order != tt.order || resp.Makespan != tt.makespan {
				t.Errorf("got order %q makespan %d, want %q %d", resp.Order, resp.Makespan, tt.order, tt.makespan)
			}
			if resp.RunID != "" {
				t.Errorf("run id %q without a store", resp.RunID)
			}
		})
	}
}

func TestSolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "invalid json", body: `{"edges":`, status: 400},
		{name: "malformed instruction", body: `{"instructions":"Step C then A"}`, status: 400},
		{name: "unknown identity", body: `{"edges":[["a","B"]]}`, status: 400},
		{name: "zero workers", body: `{"edges":[["A","B"]],"workers":0}`, status: 400},
		{name: "negative base cost", body: `{"edges":[["A","B"]],"base_cost":-1}`, status: 400},
		{name: "overflowing base cost", body: `{"edges":[["A","B"]],"base_cost":9223372036854775807}`, status: 400},
		{name: "instruction outside alphabet", body: `{"instructions":"Step A must be finished before step B can begin.","alphabet":"abc"}`, status: 400},
		{name: "cycle", body: `{"edges":[["A","B"],["B","C"],["C","B"]]}`, status: 422},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, testServer(t, false), http.MethodPost, "/solve", tt.body)
			if status != tt.status {
				t.Errorf("status = %d, want %d (body %s)", status, tt.status, body)
			}
			if !strings.Contains(string(body), `"error"`) {
				t.Errorf("body lacks error field: %s", body)
			}
		})
	}
}

func TestCycleReportsIDs(t *testing.T) {
	_, body := doRequest(t, testServer(t, false), http.MethodPost, "/solve", `{"edges":[["A","B"],["B","A"]]}`)
	var resp struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.IDs) != 2 {
		t.Errorf("ids = %v, want both cycle members", resp.IDs)
	}
}

func TestRunsRoundTrip(t *testing.T) {
	s := testServer(t, true)

	status, body := doRequest(t, s, http.MethodPost, "/solve", `{"edges":`+exampleEdges+`}`)
	if status != 200 {
		t.Fatalf("POST /solve = %d %s", status, body)
	}
	var solved SolveResponse
	if err := json.Unmarshal(body, &solved); err != nil {
		t.Fatalf("decoding solve: %v", err)
	}
	if solved.RunID == "" {
		t.Fatal("no run id with a store configured")
	}

	status, body = doRequest(t, s, http.MethodGet, "/runs/"+solved.RunID, "")
	if status != 200 {
		t.Fatalf("GET /runs/:id = %d %s", status, body)
	}
	var got SolveResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decoding run: %v", err)
	}
	if got.Order != "CABDFE" || got.Makespan != 15 || len(got.Timeline) != 6 {
		t.Errorf("stored run = %+v", got)
	}

	status, body = doRequest(t, s, http.MethodGet, "/runs?limit=10", "")
	if status != 200 {
		t.Fatalf("GET /runs = %d %s", status, body)
	}
	var list []SolveResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list) != 1 || list[0].RunID != solved.RunID {
		t.Errorf("list = %+v", list)
	}

	if status, _ := doRequest(t, s, http.MethodGet, "/runs/missing", ""); status != 404 {
		t.Errorf("GET /runs/missing = %d, want 404", status)
	}
	if status, _ := doRequest(t, s, http.MethodGet, "/runs?limit=x", ""); status != 400 {
		t.Errorf("GET /runs?limit=x = %d, want 400", status)
	}
}

func TestRunsDisabledWithoutStore(t *testing.T) {
	if status, _ := doRequest(t, testServer(t, false), http.MethodGet, "/runs", ""); status != 404 {
		t.Errorf("GET /runs without store = %d, want 404", status)
	}
}
