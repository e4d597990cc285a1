// Package server exposes orchestration runs over HTTP.
//
// Runs are started asynchronously and tracked in memory; their reports are
// also persisted by the orchestrator, so a restart only loses the index.
// Given a cluster, runs missing from the index are read back from storage.
//
//	GET  /health                          liveness
//	POST /api/runs?id=<id>                start a run (optional mode=provision|probe|inventory)
//	GET  /api/runs                        list runs (optional cluster=<id>)
//	GET  /api/runs/:runId[?cluster=<id>]  one run and its report
//	GET  /metrics                         Prometheus metrics
package server

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autokube/provisioner/internal/metrics"
	"github.com/autokube/provisioner/internal/orchestration"
	"github.com/autokube/provisioner/internal/provisioning"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/report"
)

// Runner executes orchestration runs. Implemented by orchestration.Orchestrator.
type Runner interface {
	Run(ctx context.Context, req orchestration.Request) (*provisioning.Report, error)
}

// History reads stored runs back. Implemented by orchestration.Orchestrator.
type History interface {
	Lookup(ctx context.Context, clusterID, runID string) (*provisioning.Report, error)
	Runs(ctx context.Context, clusterID string) ([]string, error)
}

// RunState is the lifecycle state of a tracked run.
type RunState string

const (
	RunRunning  RunState = "running"
	RunFinished RunState = "finished"
	RunFailed   RunState = "failed"
	// RunStored is a run known only from storage, started by an earlier
	// server or by the CLI.
	RunStored RunState = "stored"
)

// Run is a tracked run.
type Run struct {
	ID         string               `json:"runId"`
	ClusterID  string               `json:"clusterId"`
	Mode       orchestration.Mode   `json:"mode"`
	State      RunState             `json:"state"`
	StartedAt  time.Time            `json:"startedAt"`
	FinishedAt *time.Time           `json:"finishedAt,omitempty"`
	Error      string               `json:"error,omitempty"`
	Kind       fault.Kind           `json:"kind,omitempty"`
	Report     *provisioning.Report `json:"report,omitempty"`
}

// Response is the envelope of every API response.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Server is the run API.
type Server struct {
	app     *fiber.App
	runner  Runner
	history History
	logger  provisioning.Logger

	// ctx bounds background runs; cancel aborts them on shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	runs map[string]*Run
}

// New creates a server starting runs with runner. When runner also
// implements History, stored runs are served too.
func New(runner Runner, logger provisioning.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		runner: runner,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[string]*Run),
	}
	s.history, _ = runner.(History)

	s.app = fiber.New(fiber.Config{
		AppName:               "autokube",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	api := s.app.Group("/api")
	api.Post("/runs", s.startRun)
	api.Get("/runs", s.listRuns)
	api.Get("/runs/:runId", s.getRun)

	return s
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Printf("Run server listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests, cancels in-flight runs and waits for
// them to clean up, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// Wait blocks until all started runs have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "autokube-provisioner",
	})
}

func (s *Server) startRun(c *fiber.Ctx) error {
	clusterID := c.Query("id")
	if clusterID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter id is required")
	}
	mode, err := orchestration.ParseMode(c.Query("mode"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	run := &Run{
		ID:        uuid.NewString(),
		ClusterID: clusterID,
		Mode:      mode,
		State:     RunRunning,
		StartedAt: time.Now(),
	}
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	s.wg.Add(1)
	go s.execute(run)

	s.logger.Printf("Accepted %s run %s for cluster %s", mode, run.ID, clusterID)
	return c.Status(fiber.StatusAccepted).JSON(Response{Success: true, Data: s.snapshot(run)})
}

func (s *Server) execute(run *Run) {
	defer s.wg.Done()

	rep, err := s.runner.Run(s.ctx, orchestration.Request{
		ClusterID: run.ClusterID,
		Mode:      run.Mode,
		RunID:     run.ID,
	})

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	run.FinishedAt = &now
	run.Report = rep
	run.State = RunFinished
	if err != nil {
		run.State = RunFailed
		run.Error = err.Error()
		run.Kind, _ = fault.KindOf(err)
	}
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	cluster := c.Query("cluster")

	s.mu.Lock()
	runs := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		if cluster != "" && r.ClusterID != cluster {
			continue
		}
		cp := *r
		cp.Report = nil
		runs = append(runs, cp)
	}
	s.mu.Unlock()

	if cluster != "" && s.history != nil {
		runs = s.appendStored(c.UserContext(), cluster, runs)
	}

	slices.SortFunc(runs, func(a, b Run) int { return a.StartedAt.Compare(b.StartedAt) })
	return c.JSON(Response{Success: true, Data: runs})
}

func (s *Server) getRun(c *fiber.Ctx) error {
	runID := c.Params("runId")
	s.mu.Lock()
	run, ok := s.runs[runID]
	s.mu.Unlock()
	if ok {
		return c.JSON(Response{Success: true, Data: s.snapshot(run)})
	}

	cluster := c.Query("cluster")
	if cluster == "" || s.history == nil {
		return fiber.NewError(fiber.StatusNotFound, "run not found")
	}
	rep, err := s.history.Lookup(c.UserContext(), cluster, runID)
	if errors.Is(err, report.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "run not found")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(Response{Success: true, Data: storedRun(rep)})
}

// appendStored adds the cluster's stored runs missing from runs. Storage
// errors are logged and leave the list as it is.
func (s *Server) appendStored(ctx context.Context, cluster string, runs []Run) []Run {
	ids, err := s.history.Runs(ctx, cluster)
	if err != nil {
		s.logger.Printf("Failed to list stored runs of cluster %s: %v", cluster, err)
		return runs
	}
	for _, id := range ids {
		if slices.ContainsFunc(runs, func(r Run) bool { return r.ID == id }) {
			continue
		}
		runs = append(runs, Run{ID: id, ClusterID: cluster, State: RunStored})
	}
	return runs
}

func storedRun(rep *provisioning.Report) Run {
	finished := rep.FinishedAt
	run := Run{
		ID:         rep.RunID,
		ClusterID:  rep.ClusterID,
		State:      RunFinished,
		StartedAt:  rep.StartedAt,
		FinishedAt: &finished,
		Report:     rep,
	}
	if f := rep.Failure; f != nil {
		run.State = RunFailed
		run.Error = f.Message
		run.Kind = f.Kind
	}
	return run
}

func (s *Server) snapshot(run *Run) Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *run
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(Response{Success: false, Error: err.Error()})
}
