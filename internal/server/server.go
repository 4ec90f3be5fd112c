// Package server exposes the tuning engine over HTTP: launch an experiment
// against a registered objective, poll its progress and best-so-far, cancel
// it, and list what the service can run.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/perfkit/gridtune/internal/config"
	"github.com/perfkit/gridtune/internal/experiment"
	"github.com/perfkit/gridtune/internal/logging"
	"github.com/perfkit/gridtune/internal/objective"
	"github.com/perfkit/gridtune/internal/optimization"
	"github.com/perfkit/gridtune/internal/optimization/engine"
)

// Logger is the logging surface the server needs. It matches
// logging.Logger so the service logger plugs in directly.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Experiment statuses reported by the API.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// progressEvaluator wraps the objective so the API can report trial counts
// and the best observation while the run is still in flight. The engine only
// surfaces its history once the run ends.
type progressEvaluator struct {
	inner optimization.Evaluator

	mu         sync.Mutex
	count      int
	hasBest    bool
	bestValue  float64
	bestParams optimization.ParameterVector
}

func (p *progressEvaluator) Evaluate(ctx context.Context, params optimization.ParameterVector) (float64, error) {
	value, err := p.inner.Evaluate(ctx, params)
	if err != nil {
		return value, err
	}
	p.mu.Lock()
	p.count++
	if !p.hasBest || value < p.bestValue {
		p.hasBest = true
		p.bestValue = value
		p.bestParams = params.Clone()
	}
	p.mu.Unlock()
	return value, nil
}

// OnInterrupt forwards pruning interrupts to the wrapped evaluator.
func (p *progressEvaluator) OnInterrupt() {
	if in, ok := p.inner.(optimization.Interrupter); ok {
		in.OnInterrupt()
	}
}

// stepCostingProgress adds StepCost forwarding on top of the progress
// wrapper. It is a separate type so an objective without a step cost keeps
// the pruner's wall-clock fallback.
type stepCostingProgress struct {
	*progressEvaluator
}

func (s stepCostingProgress) StepCost() float64 {
	return s.inner.(optimization.StepCoster).StepCost()
}

// newProgressEvaluator wraps inner for progress tracking. The returned
// evaluator implements StepCoster only when inner does.
func newProgressEvaluator(inner optimization.Evaluator) (*progressEvaluator, optimization.Evaluator) {
	p := &progressEvaluator{inner: inner}
	if _, ok := inner.(optimization.StepCoster); ok {
		return p, stepCostingProgress{p}
	}
	return p, p
}

func (p *progressEvaluator) snapshot() (int, optimization.ParameterVector, float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count, p.bestParams, p.bestValue, p.hasBest
}

// ExperimentState tracks one launched experiment. Access is guarded by the
// server's mutex; the progress wrapper has its own.
type ExperimentState struct {
	ID          string
	Name        string
	Objective   string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	CancelFunc  context.CancelFunc

	progress *progressEvaluator
	result   *engine.Result
	errMsg   string
}

// Server manages experiment lifecycles behind the REST API.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *engine.Metrics

	mu          sync.RWMutex
	experiments map[string]*ExperimentState
	running     int
}

// NewServer builds a server. Metrics may be nil when no registry is wired.
func NewServer(cfg *config.Config, logger Logger, metrics *engine.Metrics) *Server {
	return &Server{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		experiments: make(map[string]*ExperimentState),
	}
}

// RegisterRoutes mounts the API under /api/v1.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/experiments", s.handleLaunch)
		r.Get("/experiments", s.handleList)
		r.Get("/experiments/{id}", s.handleStatus)
		r.Delete("/experiments/{id}", s.handleCancel)
		r.Get("/objectives", s.handleObjectives)
		r.Get("/heuristics", s.handleHeuristics)
	})
	r.Get("/healthz", s.handleHealth)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("Request error", map[string]interface{}{
		"status": status,
		"error":  err.Error(),
	})
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

// handleLaunch accepts an experiment description, validates it against the
// objective and heuristic registries, and starts the run in the background.
func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var spec experiment.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	obj, err := objective.Get(spec.Objective)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	if spec.Timeout == 0 {
		spec.Timeout = experiment.Duration(s.cfg.Experiments.DefaultTimeout)
	}

	progress, evaluator := newProgressEvaluator(obj.New())

	zapLogger := logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
		"component": "engine",
	}))
	engineCfg, err := spec.Build(evaluator, zapLogger, s.metrics)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	eng, err := engine.New(engineCfg)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	if s.running >= s.cfg.Experiments.MaxConcurrent {
		s.mu.Unlock()
		s.respondError(w, http.StatusTooManyRequests,
			fmt.Errorf("at capacity: %d experiments already running", s.cfg.Experiments.MaxConcurrent))
		return
	}
	s.running++

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	now := time.Now()
	state := &ExperimentState{
		ID:          id,
		Name:        spec.Name,
		Objective:   spec.Objective,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		CancelFunc:  cancel,
		progress:    progress,
	}
	s.experiments[id] = state
	s.mu.Unlock()

	s.logger.Info("Experiment launched", map[string]interface{}{
		"experiment_id": id,
		"objective":     spec.Objective,
		"heuristic":     engineCfg.Heuristic,
	})

	go s.run(ctx, id, eng)

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"experiment_id": id,
		"status":        StatusPending,
	})
}

// run drives one experiment to a terminal state and records the outcome.
func (s *Server) run(ctx context.Context, id string, eng *engine.Engine) {
	s.mu.Lock()
	state := s.experiments[id]
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.mu.Unlock()

	result, err := eng.Optimize(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	state.result = result

	switch {
	case state.Status == StatusCancelled:
		// Cancellation already recorded; keep the partial result.
	case err != nil:
		state.Status = StatusFailed
		state.errMsg = err.Error()
		s.logger.Error("Experiment failed", map[string]interface{}{
			"experiment_id": id,
			"error":         err.Error(),
		})
	case result.State == engine.StateStoppedEarly:
		state.Status = StatusStopped
	default:
		state.Status = StatusCompleted
	}
}

// handleStatus reports progress and, once available, the final result.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	state, exists := s.experiments[id]
	if !exists {
		s.mu.RUnlock()
		s.respondError(w, http.StatusNotFound, fmt.Errorf("experiment %q not found", id))
		return
	}
	body := map[string]interface{}{
		"experiment_id": state.ID,
		"objective":     state.Objective,
		"status":        state.Status,
		"start_time":    state.StartTime.Format(time.RFC3339),
		"last_update":   state.LastUpdated.Format(time.RFC3339),
	}
	if state.Name != "" {
		body["name"] = state.Name
	}
	if state.EndTime != nil {
		body["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.errMsg != "" {
		body["error"] = state.errMsg
	}
	result := state.result
	progress := state.progress
	s.mu.RUnlock()

	evaluations, bestParams, bestValue, hasBest := progress.snapshot()
	body["evaluations"] = evaluations
	if hasBest {
		body["best_observed"] = map[string]interface{}{
			"parameters": bestParams,
			"value":      bestValue,
		}
	}

	if result != nil {
		body["result"] = result
	}

	s.respondJSON(w, http.StatusOK, body)
}

// handleList reports a compact view of every known experiment.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	items := make([]map[string]interface{}, 0, len(s.experiments))
	for _, state := range s.experiments {
		items = append(items, map[string]interface{}{
			"experiment_id": state.ID,
			"objective":     state.Objective,
			"status":        state.Status,
			"start_time":    state.StartTime.Format(time.RFC3339),
		})
	}
	s.mu.RUnlock()

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"experiments": items})
}

// handleCancel stops a running experiment. The engine winds down through
// context cancellation and keeps its partial history.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	state, exists := s.experiments[id]
	if !exists {
		s.mu.Unlock()
		s.respondError(w, http.StatusNotFound, fmt.Errorf("experiment %q not found", id))
		return
	}

	switch state.Status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusStopped:
		status := state.Status
		s.mu.Unlock()
		s.respondError(w, http.StatusConflict,
			fmt.Errorf("cannot cancel experiment in status %q", status))
		return
	}

	state.CancelFunc()
	state.Status = StatusCancelled
	state.LastUpdated = time.Now()
	s.mu.Unlock()

	s.logger.Info("Experiment cancelled", map[string]interface{}{
		"experiment_id": id,
	})

	s.respondJSON(w, http.StatusOK, map[string]string{
		"experiment_id": id,
		"status":        StatusCancelled,
	})
}

// handleObjectives lists the registered objective functions.
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	names := objective.Names()
	items := make([]map[string]string, 0, len(names))
	for _, name := range names {
		spec, err := objective.Get(name)
		if err != nil {
			continue
		}
		items = append(items, map[string]string{
			"name":        spec.Name,
			"description": spec.Description,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"objectives": items})
}

// handleHeuristics lists the registered search strategies.
func (s *Server) handleHeuristics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"heuristics": optimization.HeuristicNames(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"running": running,
	})
}

// Close cancels every in-flight experiment.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, state := range s.experiments {
		if state.CancelFunc != nil {
			state.CancelFunc()
		}
	}
	return nil
}

// Reap drops finished experiments older than the retention window. The main
// loop calls this periodically.
func (s *Server) Reap(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	reaped := 0
	for id, state := range s.experiments {
		if state.EndTime != nil && state.EndTime.Before(cutoff) {
			delete(s.experiments, id)
			reaped++
		}
	}
	return reaped
}
