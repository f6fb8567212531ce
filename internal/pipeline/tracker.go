package pipeline

import (
	"context"
	"log/slog"
	"time"

	"creativeflow/internal/logging"
	"creativeflow/internal/runstore"
	"creativeflow/internal/services"
)

// runTracker logs state transitions and mirrors them into the run store.
// Store failures are logged and never affect the run. Once the run is done or
// failed, later calls are ignored.
type runTracker struct {
	id     string
	ctx    context.Context
	record runstore.Run
	runs   RunRecorder
	base   *slog.Logger
	logger *slog.Logger
	began  time.Time
	ended  func()
}

func (o *Orchestrator) begin(ctx context.Context, record runstore.Run) *runTracker {
	o.inflight.Add(1)
	id := newRunID()
	ctx = services.WithRunID(ctx, id)
	record.ID = id
	record.StartedAt = time.Now().UTC()
	record.State = string(StateSourcing)
	t := &runTracker{
		id:     id,
		ctx:    ctx,
		record: record,
		runs:   o.deps.Runs,
		base:   o.logger,
		logger: logging.WithContext(ctx, o.logger),
		began:  record.StartedAt,
		ended:  o.inflight.Done,
	}
	t.logger.Info("run started", logging.String("kind", record.Kind), logging.Int("requested", record.Requested))
	if t.runs != nil {
		if err := t.runs.CreateRun(ctx, record); err != nil {
			t.logger.Warn("failed to record run", logging.Error(err))
		}
	}
	return t
}

func (t *runTracker) transition(state State) {
	if t.state().Terminal() {
		return
	}
	t.ctx = services.WithStage(t.ctx, string(state))
	t.logger = logging.WithContext(t.ctx, t.base)
	t.record.State = string(state)
	t.logger.Debug("run state", logging.String("state", string(state)))
	t.save()
}

func (t *runTracker) fail(err error) {
	if t.state().Terminal() {
		return
	}
	defer t.ended()
	t.record.State = string(StateFailed)
	t.record.Error = err.Error()
	t.record.FinishedAt = time.Now().UTC()
	logging.ErrorWithContext(t.logger, "run failed", services.Kind(err),
		logging.Error(err),
		logging.Duration("elapsed", time.Since(t.began)),
	)
	t.save()
}

func (t *runTracker) finish(succeeded, failed int, warn error) {
	if t.state().Terminal() {
		return
	}
	defer t.ended()
	t.record.State = string(StateDone)
	t.record.Succeeded = succeeded
	t.record.Failed = failed
	if warn != nil {
		t.record.Error = warn.Error()
	}
	t.record.FinishedAt = time.Now().UTC()
	t.logger.Info("run finished",
		logging.Int("succeeded", succeeded),
		logging.Int("failed", failed),
		logging.Bool("saved_to_sheet", t.record.SavedToSheet),
		logging.Duration("elapsed", time.Since(t.began)),
	)
	t.save()
}

func (t *runTracker) state() State {
	return State(t.record.State)
}

func (t *runTracker) save() {
	if t.runs == nil {
		return
	}
	t.record.UpdatedAt = time.Now().UTC()
	if err := t.runs.UpdateRun(context.WithoutCancel(t.ctx), t.record); err != nil {
		t.logger.Debug("failed to update run record", logging.Error(err))
	}
}
