// Package server exposes the engine over HTTP: flow CRUD, run triggers, and
// the autopilot change endpoint the editor's agent integration talks to.
package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/flowgrid/flowgrid/internal/autopilot"
	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/scheduler"
	"github.com/flowgrid/flowgrid/internal/store"
)

// Config wires the server's collaborators.
type Config struct {
	Logger    *slog.Logger
	Store     store.Store
	Scheduler *scheduler.Scheduler
	Validator *autopilot.Validator
}

// Server is the HTTP API.
type Server struct {
	app       *fiber.App
	logger    *slog.Logger
	store     store.Store
	scheduler *scheduler.Scheduler
	validator *autopilot.Validator
}

// New builds the server and registers all routes.
func New(cfg Config) *Server {
	s := &Server{
		app:       fiber.New(),
		logger:    cfg.Logger,
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		validator: cfg.Validator,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.routes()
	return s
}

// App returns the underlying fiber app. This is primarily for testing via
// app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until the context is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	return s.app.Listen(addr, fiber.ListenConfig{
		DisableStartupMessage: true,
		GracefulContext:       ctx,
	})
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/flows", s.listFlows)
	s.app.Put("/flows/:id", s.saveFlow)
	s.app.Get("/flows/:id", s.getFlow)
	s.app.Delete("/flows/:id", s.deleteFlow)
	s.app.Post("/flows/:id/run", s.runFlow)
	s.app.Post("/flows/:id/changes", s.applyChanges)
	s.app.Post("/flows/:id/undo", s.undoChanges)
}

// flowSummary is the list representation; snapshots are fetched per flow.
type flowSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	UpdatedAt string `json:"updatedAt"`
}

func (s *Server) listFlows(c fiber.Ctx) error {
	recs, err := s.store.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	out := make([]flowSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, flowSummary{
			ID:        rec.ID,
			Name:      rec.Name,
			Nodes:     len(rec.Snapshot.Nodes),
			Edges:     len(rec.Snapshot.Edges),
			UpdatedAt: rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(out)
}

func (s *Server) saveFlow(c fiber.Ctx) error {
	snap, err := flow.ParseSnapshot(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	rec := store.Record{
		ID:       c.Params("id"),
		Name:     c.Query("name"),
		Snapshot: snap,
	}
	if err := s.store.Save(c.Context(), rec); err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getFlow(c fiber.Ctx) error {
	rec, err := s.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(rec)
}

func (s *Server) deleteFlow(c fiber.Ctx) error {
	err := s.store.Delete(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// runFlow executes a stored flow. The optional "from" query parameter limits
// re-execution to that node and its downstream closure.
func (s *Server) runFlow(c fiber.Ctx) error {
	rec, err := s.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, err)
	}

	var result *scheduler.RunResult
	if from := c.Query("from"); from != "" {
		result, err = s.scheduler.RunFrom(c.Context(), rec.Snapshot, from)
	} else {
		result, err = s.scheduler.Run(c.Context(), rec.Snapshot)
	}
	if result == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"outcome": result.Outcome,
		"states":  result.States,
		"outputs": result.Outputs,
		"errors":  result.Errors(),
	})
}

// changeRequest is the body of the autopilot change endpoint.
type changeRequest struct {
	UserRequest string       `json:"userRequest"`
	Changes     flow.Changes `json:"changes"`
}

// applyChanges validates an agent-proposed change batch against the stored
// snapshot and, only if the whole batch passes, applies and persists it. A
// rejected batch returns 422 with diagnostics and retry guidance; the stored
// flow is untouched.
func (s *Server) applyChanges(c fiber.Ctx) error {
	rec, err := s.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, err)
	}

	var req changeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	eval := s.validator.Evaluate(rec.Snapshot, req.Changes)
	if eval.Failed() {
		proposal := autopilot.Proposal{
			UserRequest: req.UserRequest,
			Snapshot:    rec.Snapshot,
			Changes:     req.Changes,
		}
		s.logger.Info("Change batch rejected.", "flow", rec.ID, "diagnostics", len(eval.Diagnostics))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"verdict":      eval.Verdict,
			"diagnostics":  eval.Diagnostics,
			"retryContext": autopilot.BuildRetryContext(proposal, eval),
		})
	}

	next, applied, err := flow.ApplyChanges(rec.Snapshot, req.Changes)
	if err != nil {
		// The validator passed but application failed; nothing was persisted.
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	rec.Snapshot = next
	if err := s.store.Save(c.Context(), rec); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"verdict":     eval.Verdict,
		"diagnostics": eval.Diagnostics,
		"snapshot":    next,
		"applied":     applied,
	})
}

// undoChanges reverses a previously applied batch. The body is the applied
// record returned by the changes endpoint.
func (s *Server) undoChanges(c fiber.Ctx) error {
	rec, err := s.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, err)
	}

	var applied flow.Applied
	if err := c.Bind().JSON(&applied); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	prev, err := flow.Undo(rec.Snapshot, &applied)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	rec.Snapshot = prev
	if err := s.store.Save(c.Context(), rec); err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"snapshot": prev})
}

func notFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "flow not found"})
}

func internalError(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
