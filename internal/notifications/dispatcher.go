package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"creativeflow/internal/logging"
	"creativeflow/internal/services"
)

// Delivery statuses recorded for scheduled notifications.
const (
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Outcome describes what happened to one scheduled notification.
type Outcome struct {
	RunID    string
	Index    int
	AssetRef string
	Provider string
	Status   string
	Error    string
	At       time.Time
}

// Recorder persists notification outcomes.
type Recorder interface {
	RecordNotification(ctx context.Context, outcome Outcome) error
}

// Dispatcher sends approval requests after a delay on background goroutines.
// Deliveries are attempted once; failures are logged and recorded.
type Dispatcher struct {
	svc      Service
	recorder Recorder
	logger   *slog.Logger

	wg     sync.WaitGroup
	stop   chan struct{}
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

// NewDispatcher builds a Dispatcher. recorder may be nil.
func NewDispatcher(svc Service, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if svc == nil {
		svc = noopService{}
	}
	return &Dispatcher{
		svc:      svc,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "notifications"),
		stop:     make(chan struct{}),
	}
}

// Schedule queues an approval request to fire after delay and returns
// immediately. It reports false when the dispatcher is shut down.
func (d *Dispatcher) Schedule(ctx context.Context, asset ApprovalAsset, delay time.Duration) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	ctx = context.WithoutCancel(services.WithItemIndex(ctx, asset.Index))
	go func() {
		defer d.wg.Done()
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-d.stop:
				d.record(ctx, asset, StatusCancelled, nil)
				return
			}
		}
		err := d.svc.Publish(ctx, EventApprovalRequested, asset.Payload())
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, d.logger), "approval notification failed", "notify_failed",
				logging.Error(err),
				logging.String("provider", d.svc.Name()),
				logging.String(logging.FieldErrorHint, "check the webhook URL or ntfy topic"),
				logging.String(logging.FieldImpact, "reviewer was not notified for this asset"),
			)
			d.record(ctx, asset, StatusFailed, err)
			return
		}
		d.record(ctx, asset, StatusSent, nil)
	}()
	return true
}

// Wait blocks until every scheduled notification has fired.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown refuses new work and waits for pending notifications. When ctx
// expires first, timers still waiting are cancelled and Shutdown returns
// ctx.Err() once they have been recorded.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.once.Do(func() { close(d.stop) })
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) record(ctx context.Context, asset ApprovalAsset, status string, err error) {
	if d.recorder == nil {
		return
	}
	outcome := Outcome{
		RunID:    asset.RunID,
		Index:    asset.Index,
		AssetRef: asset.AssetRef,
		Provider: d.svc.Name(),
		Status:   status,
		At:       time.Now().UTC(),
	}
	if err != nil {
		outcome.Error = err.Error()
	}
	if recErr := d.recorder.RecordNotification(ctx, outcome); recErr != nil {
		d.logger.Debug("record notification failed", logging.Error(recErr))
	}
}
