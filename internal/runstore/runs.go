package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"creativeflow/internal/notifications"
	"creativeflow/internal/services"
)

// Run kinds.
const (
	KindGenerate  = "generate"
	KindReprocess = "reprocess"
	KindAudio     = "audio"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	State          string    `json:"state"`
	SourceRef      string    `json:"sourceRef,omitempty"`
	DestinationRef string    `json:"destinationRef,omitempty"`
	DestinationTab string    `json:"destinationTab,omitempty"`
	Language       string    `json:"language,omitempty"`
	Requested      int       `json:"requested"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	SavedToSheet   bool      `json:"savedToSheet"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	FinishedAt     time.Time `json:"finishedAt,omitzero"`
}

// Finished reports whether the run reached a terminal state.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

const runColumns = `id, kind, state, source_ref, destination_ref, destination_tab, language,
	requested, succeeded, failed, saved_to_sheet, error_message, started_at, updated_at, finished_at`

// CreateRun inserts a new run. StartedAt defaults to now.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	now := time.Now().UTC()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = run.StartedAt
	}
	_, err := s.exec(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.State, run.SourceRef, run.DestinationRef, run.DestinationTab, run.Language,
		run.Requested, run.Succeeded, run.Failed, boolInt(run.SavedToSheet), run.Error,
		formatTime(run.StartedAt), formatTime(run.UpdatedAt), nullTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRun overwrites the mutable fields of an existing run.
func (s *Store) UpdateRun(ctx context.Context, run Run) error {
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = time.Now().UTC()
	}
	res, err := s.exec(ctx, `UPDATE runs SET state = ?, requested = ?, succeeded = ?, failed = ?,
		saved_to_sheet = ?, error_message = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		run.State, run.Requested, run.Succeeded, run.Failed, boolInt(run.SavedToSheet), run.Error,
		formatTime(run.UpdatedAt), nullTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "runstore", "update run", run.ID, nil)
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, services.Wrap(services.ErrNotFound, "runstore", "get run", id, nil)
	}
	return run, err
}

// ListRuns returns the most recent runs first. limit <= 0 means 50.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordNotification stores a notification outcome. It satisfies
// notifications.Recorder.
func (s *Store) RecordNotification(ctx context.Context, o notifications.Outcome) error {
	at := o.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.exec(ctx, `INSERT INTO notifications (run_id, item_index, asset_ref, provider, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Index, o.AssetRef, o.Provider, o.Status, o.Error, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Notifications lists outcomes recorded for a run in insertion order.
func (s *Store) Notifications(ctx context.Context, runID string) ([]notifications.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, item_index, asset_ref, provider, status, error_message, created_at
		FROM notifications WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []notifications.Outcome
	for rows.Next() {
		var (
			o  notifications.Outcome
			at string
		)
		if err := rows.Scan(&o.RunID, &o.Index, &o.AssetRef, &o.Provider, &o.Status, &o.Error, &at); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		o.At = parseTime(at)
		out = append(out, o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run              Run
		saved            int
		started, updated string
		finished         sql.NullString
	)
	err := row.Scan(&run.ID, &run.Kind, &run.State, &run.SourceRef, &run.DestinationRef, &run.DestinationTab, &run.Language,
		&run.Requested, &run.Succeeded, &run.Failed, &saved, &run.Error, &started, &updated, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.SavedToSheet = saved != 0
	run.StartedAt = parseTime(started)
	run.UpdatedAt = parseTime(updated)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return run, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}
