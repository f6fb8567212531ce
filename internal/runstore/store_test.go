package runstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"creativeflow/internal/notifications"
	"creativeflow/internal/runstore"
	"creativeflow/internal/services"
	"creativeflow/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	store := testsupport.MustOpenRunStore(t)
	ctx := context.Background()

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := runstore.Run{
		ID:        "run-1",
		Kind:      runstore.KindGenerate,
		State:     "sourcing",
		SourceRef: "sheet-1",
		Language:  "es",
		Requested: 4,
		StartedAt: started,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.State != "sourcing" || !got.StartedAt.Equal(started) || got.Finished() {
		t.Fatalf("unexpected run %+v", got)
	}

	got.State = "done"
	got.Succeeded = 3
	got.Failed = 1
	got.SavedToSheet = true
	got.UpdatedAt = time.Time{}
	got.FinishedAt = started.Add(time.Minute)
	if err := store.UpdateRun(ctx, got); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
	final, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if final.State != "done" || final.Succeeded != 3 || final.Failed != 1 || !final.SavedToSheet || !final.Finished() {
		t.Fatalf("unexpected final run %+v", final)
	}
}

func TestGetAndUpdateMissingRun(t *testing.T) {
	store := testsupport.MustOpenRunStore(t)
	if _, err := store.GetRun(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.UpdateRun(context.Background(), runstore.Run{ID: "nope", State: "done"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := testsupport.MustOpenRunStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.CreateRun(ctx, runstore.Run{ID: id, Kind: runstore.KindReprocess, State: "done", StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("CreateRun %s: %v", id, err)
		}
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
}

func TestRecordNotification(t *testing.T) {
	store := testsupport.MustOpenRunStore(t)
	ctx := context.Background()
	outcomes := []notifications.Outcome{
		{RunID: "r", Index: 0, AssetRef: "/a.mp4", Provider: "slack", Status: notifications.StatusSent},
		{RunID: "r", Index: 1, Provider: "slack", Status: notifications.StatusFailed, Error: "403"},
		{RunID: "other", Index: 0, Status: notifications.StatusSent},
	}
	for _, o := range outcomes {
		if err := store.RecordNotification(ctx, o); err != nil {
			t.Fatalf("RecordNotification: %v", err)
		}
	}
	got, err := store.Notifications(ctx, "r")
	if err != nil {
		t.Fatalf("Notifications: %v", err)
	}
	if len(got) != 2 || got[1].Error != "403" || got[0].At.IsZero() {
		t.Fatalf("unexpected outcomes %+v", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	store, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.CreateRun(context.Background(), runstore.Run{ID: "keep", Kind: runstore.KindAudio, State: "done"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	_ = store.Close()

	reopened, err := runstore.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetRun(context.Background(), "keep"); err != nil {
		t.Fatalf("expected run to survive reopen: %v", err)
	}
}
