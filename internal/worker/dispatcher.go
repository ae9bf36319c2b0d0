package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
	"github.com/swiftbasket/swiftbasket-backend/pkg/enums"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/metrics"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10

	dispatchTimeout = 15 * time.Second
	maxBackoff      = 10 * time.Second
	jitterWindow    = 250 * time.Millisecond

	dispatchLockName = "outbox-dispatch"
	dispatchLockTTL  = 30 * time.Second
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type outboxSource interface {
	FetchUnpublished(limit int, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, cause error) error
}

type locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// Handler consumes one outbox event. Handlers must be idempotent: delivery is
// at-least-once and a crash between handling and marking replays the event.
type Handler func(ctx context.Context, event models.OutboxEvent, envelope outbox.PayloadEnvelope) error

// Dispatcher polls the outbox and routes events to registered handlers. A
// redis advisory lock keeps replicas from draining the same batch twice;
// losing the lock just means skipping a poll, correctness never depends on it.
type Dispatcher struct {
	repo         outboxSource
	locks        locker
	metrics      *metrics.OutboxMetrics
	handlers     map[enums.OutboxEventType]Handler
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	logg         *logger.Logger
}

// NewDispatcher builds a dispatcher from the outbox poll settings.
func NewDispatcher(cfg config.OutboxConfig, repo outboxSource, locks locker, m *metrics.OutboxMetrics, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if locks == nil {
		return nil, fmt.Errorf("locker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := cfg.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Dispatcher{
		repo:         repo,
		locks:        locks,
		metrics:      m,
		handlers:     make(map[enums.OutboxEventType]Handler),
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
		logg:         logg,
	}, nil
}

// Register binds a handler to an event type. Last registration wins.
func (d *Dispatcher) Register(eventType enums.OutboxEventType, handler Handler) {
	d.handlers[eventType] = handler
}

// Run polls until the context is cancelled, backing off on batch errors.
func (d *Dispatcher) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	interval := d.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "outbox dispatcher stopping")
			return ctx.Err()
		default:
		}

		processed, err := d.ProcessBatch(ctx)
		if err != nil {
			d.logg.Error(ctx, "outbox dispatch batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := d.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		if processed {
			continue
		}
		if err := d.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// ProcessBatch drains one batch under the advisory lock. It reports whether
// any events were seen so the caller can poll again immediately.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (bool, error) {
	acquired, err := d.locks.AcquireLock(ctx, dispatchLockName, dispatchLockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if err := d.locks.ReleaseLock(ctx, dispatchLockName); err != nil {
			d.logg.Error(ctx, "release dispatch lock", err)
		}
	}()

	events, err := d.repo.FetchUnpublished(d.batchSize, d.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("fetch outbox batch: %w", err)
	}
	d.metrics.ObserveBatch(len(events))
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		d.dispatchOne(ctx, event)
	}
	return true, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, event models.OutboxEvent) {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"aggregate_type": event.AggregateType,
	}
	logCtx := d.logg.WithFields(ctx, fields)

	handler, ok := d.handlers[event.EventType]
	if !ok {
		// Unroutable events are acked, not retried: a retry can never grow a
		// handler.
		d.logg.Warn(logCtx, "no handler for outbox event")
		if err := d.repo.MarkPublished(event.ID); err != nil {
			d.logg.Error(logCtx, "ack unroutable event", err)
		}
		return
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		d.logg.Error(logCtx, "malformed outbox payload", err)
		if markErr := d.repo.MarkFailed(event.ID, err); markErr != nil {
			d.logg.Error(logCtx, "mark malformed event failed", markErr)
		}
		d.metrics.IncFailed(string(event.EventType))
		return
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	started := time.Now()
	err := handler(dispatchCtx, event, envelope)
	d.metrics.ObserveDispatch(string(event.EventType), time.Since(started))

	if err != nil {
		d.logg.Error(logCtx, "outbox handler failed", err)
		d.metrics.IncFailed(string(event.EventType))
		if markErr := d.repo.MarkFailed(event.ID, err); markErr != nil {
			d.logg.Error(logCtx, "mark event failed", markErr)
		}
		return
	}

	if err := d.repo.MarkPublished(event.ID); err != nil {
		d.logg.Error(logCtx, "mark event published", err)
		return
	}
	d.metrics.IncPublished(string(event.EventType))
	d.logg.Info(logCtx, "outbox event dispatched")
}

func (d *Dispatcher) sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(duration time.Duration) time.Duration {
	if duration <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return duration + jitter
}
