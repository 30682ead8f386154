package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/flowgrid/flowgrid/internal/autopilot"
	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/scheduler"
	"github.com/flowgrid/flowgrid/internal/server"
	"github.com/flowgrid/flowgrid/internal/store"
	"github.com/flowgrid/flowgrid/internal/store/memory"
	"github.com/flowgrid/flowgrid/internal/store/postgres"
)

// runSummary is the JSON report printed after a CLI run.
type runSummary struct {
	Outcome scheduler.Outcome           `json:"outcome"`
	States  map[string]scheduler.Status `json:"states"`
	Outputs map[string]any              `json:"outputs,omitempty"`
	Errors  map[string]string           `json:"errors,omitempty"`
}

// runFlow executes a snapshot file and prints a per-node report.
func (a *App) runFlow(ctx context.Context, path, startNode string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading flow %s: %w", path, err)
	}
	snap, err := flow.ParseSnapshot(data)
	if err != nil {
		return err
	}

	var result *scheduler.RunResult
	if startNode != "" {
		result, err = a.scheduler.RunFrom(ctx, snap, startNode)
	} else {
		result, err = a.scheduler.Run(ctx, snap)
	}
	if result == nil {
		return err
	}

	summary := runSummary{
		Outcome: result.Outcome,
		States:  result.States,
		Outputs: result.Outputs,
		Errors:  result.Errors(),
	}
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(summary); encErr != nil {
		return encErr
	}
	if err != nil {
		return err
	}
	if result.Outcome != scheduler.OutcomeSucceeded {
		return fmt.Errorf("run finished with outcome %q", result.Outcome)
	}
	return nil
}

// validateProposal evaluates an agent proposal file and prints the verdict
// with diagnostics and, on failure, retry guidance.
func (a *App) validateProposal(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading proposal %s: %w", path, err)
	}
	var p autopilot.Proposal
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parsing proposal %s: %w", path, err)
	}

	eval := a.validator.Evaluate(p.Snapshot, p.Changes)
	report := struct {
		autopilot.Evaluation
		RetryContext string `json:"retryContext,omitempty"`
	}{
		Evaluation:   eval,
		RetryContext: autopilot.BuildRetryContext(p, eval),
	}
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if eval.Failed() {
		return errors.New("proposal rejected")
	}
	return nil
}

// serve runs the HTTP API until the context is cancelled. PostgreSQL backs
// flow storage when a DSN is configured; otherwise storage is in-memory and
// lost on shutdown.
func (a *App) serve(ctx context.Context) error {
	var st store.Store
	if dsn := a.cfg.PostgresDSN; dsn != "" {
		pg, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return err
		}
		defer pg.Close()
		st = pg
		a.logger.Info("Flow storage backed by PostgreSQL.")
	} else {
		st = memory.New()
		a.logger.Warn("No postgres_dsn configured, using in-memory flow storage.")
	}

	srv := server.New(server.Config{
		Logger:    a.logger,
		Store:     st,
		Scheduler: a.scheduler,
		Validator: a.validator,
	})
	a.logger.Info("Starting HTTP API.", "listen", a.cfg.Listen)
	return srv.Listen(ctx, a.cfg.Listen)
}
