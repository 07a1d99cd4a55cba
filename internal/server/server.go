// Package server exposes the schedulers over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/aristath/stepsched/internal/config"
	"github.com/aristath/stepsched/internal/input"
	"github.com/aristath/stepsched/internal/orchestrator"
	"github.com/aristath/stepsched/internal/persistence"
	"github.com/aristath/stepsched/internal/scheduler"
)

// SolveRequest is the body of POST /solve. Either Edges or Instructions
// supplies the graph; unset numeric fields fall back to the server config.
type SolveRequest struct {
	Edges        [][2]string `json:"edges"`
	Instructions string      `json:"instructions"`
	Workers      *int        `json:"workers"`
	BaseCost     *int        `json:"base_cost"`
	Alphabet     *string     `json:"alphabet"`
}

// TaskRunJSON is one timeline entry.
type TaskRunJSON struct {
	ID     string `json:"id"`
	Worker int    `json:"worker"`
	Start  int    `json:"start"`
	Finish int    `json:"finish"`
}

// SolveResponse is the body returned by POST /solve and GET /runs/:id.
type SolveResponse struct {
	RunID        string        `json:"run_id,omitempty"`
	Order        string        `json:"order"`
	Makespan     int           `json:"makespan"`
	Workers      int           `json:"workers"`
	BaseCost     int           `json:"base_cost"`
	CriticalPath []string      `json:"critical_path,omitempty"`
	Timeline     []TaskRunJSON `json:"timeline"`
}

// Server wires the HTTP routes to the schedulers and an optional run store.
type Server struct {
	app   *fiber.App
	cfg   *config.Config
	store persistence.Store // nil disables /runs and run recording
}

// New creates a server. store may be nil.
func New(cfg *config.Config, store persistence.Store) *Server {
	s := &Server{
		app:   fiber.New(),
		cfg:   cfg,
		store: store,
	}
	s.routes()
	return s
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			log.Printf("WARNING: server shutdown: %v", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Post("/solve", s.handleSolve)

	s.app.Get("/runs", func(c fiber.Ctx) error {
		if s.store == nil {
			return c.Status(404).JSON(fiber.Map{"error": "run history disabled"})
		}
		limit := 0
		if q := c.Query("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 0 {
				return c.Status(400).JSON(fiber.Map{"error": "invalid limit"})
			}
			limit = n
		}
		runs, err := s.store.ListRuns(c.Context(), limit)
		if err != nil {
			log.Printf("ERROR: listing runs: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		out := make([]SolveResponse, 0, len(runs))
		for _, run := range runs {
			out = append(out, recordResponse(run))
		}
		return c.JSON(out)
	})

	s.app.Get("/runs/:id", func(c fiber.Ctx) error {
		if s.store == nil {
			return c.Status(404).JSON(fiber.Map{"error": "run history disabled"})
		}
		run, err := s.store.GetRun(c.Context(), c.Params("id"))
		if errors.Is(err, persistence.ErrRunNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "run not found"})
		}
		if err != nil {
			log.Printf("ERROR: loading run %s: %v", c.Params("id"), err)
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(recordResponse(run))
	})
}

func (s *Server) handleSolve(c fiber.Ctx) error {
	var req SolveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}

	cfg := *s.cfg
	if req.Workers != nil {
		cfg.Workers = *req.Workers
	}
	if req.BaseCost != nil {
		cfg.BaseCost = *req.BaseCost
	}
	if req.Alphabet != nil {
		cfg.Alphabet = *req.Alphabet
	}
	if err := cfg.Validate(); err != nil {
		return errorResponse(c, err)
	}

	d, err := buildGraph(&req, scheduler.Alphabet(cfg.Alphabet))
	if err != nil {
		return errorResponse(c, err)
	}

	sol, err := orchestrator.Solve(c.Context(), d, &cfg, nil)
	if err != nil {
		return errorResponse(c, err)
	}

	resp := solutionResponse(sol)
	if s.store != nil {
		id, err := s.store.SaveRun(c.Context(), persistence.NewRunRecord(d, sol.Sequential, sol.Parallel))
		if err != nil {
			// The answer is still good; only the history entry is lost
			log.Printf("WARNING: recording run: %v", err)
		}
		resp.RunID = id
	}
	return c.JSON(resp)
}

// buildGraph prefers explicit edges and falls back to instruction text.
func buildGraph(req *SolveRequest, alphabet scheduler.Alphabet) (*scheduler.DAG, error) {
	var edges []scheduler.Edge
	if len(req.Edges) > 0 {
		edges = make([]scheduler.Edge, 0, len(req.Edges))
		for _, e := range req.Edges {
			edges = append(edges, scheduler.Edge{Before: e[0], After: e[1]})
		}
	} else {
		parsed, err := input.NewParser(alphabet).ParseString(req.Instructions)
		if err != nil {
			return nil, err
		}
		edges = parsed
	}

	d := scheduler.NewDAG(alphabet)
	if err := d.AddEdges(edges); err != nil {
		return nil, err
	}
	return d, nil
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrCyclicDependency):
		return 422
	case errors.Is(err, input.ErrMalformedEdge),
		errors.Is(err, scheduler.ErrUnknownIdentity),
		errors.Is(err, scheduler.ErrInvalidConfiguration):
		return 400
	default:
		return 500
	}
}

func errorResponse(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == 500 {
		log.Printf("ERROR: solve: %v", err)
	}
	body := fiber.Map{"error": err.Error()}
	var se *scheduler.ScheduleError
	if errors.As(err, &se) && len(se.IDs) > 0 {
		body["ids"] = se.IDs
	}
	return c.Status(status).JSON(body)
}

func solutionResponse(sol *orchestrator.Solution) SolveResponse {
	return SolveResponse{
		Order:        sol.Order(),
		Makespan:     sol.Makespan(),
		Workers:      sol.Parallel.Workers,
		BaseCost:     sol.Parallel.BaseCost,
		CriticalPath: sol.CriticalPath.Path,
		Timeline:     timelineJSON(sol.Parallel.Timeline),
	}
}

func recordResponse(run *persistence.RunRecord) SolveResponse {
	return SolveResponse{
		RunID:    run.ID,
		Order:    run.Order,
		Makespan: run.Makespan,
		Workers:  run.Workers,
		BaseCost: run.BaseCost,
		Timeline: timelineJSON(run.Timeline),
	}
}

func timelineJSON(runs []scheduler.TaskRun) []TaskRunJSON {
	out := make([]TaskRunJSON, 0, len(runs))
	for _, tr := range runs {
		out = append(out, TaskRunJSON{ID: tr.ID, Worker: tr.Worker, Start: tr.Start, Finish: tr.Finish})
	}
	return out
}
