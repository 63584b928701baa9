package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
	"github.com/noah-isme/sma-fee-ledger/pkg/jobs"
)

const enrollmentActivatedJob = "enrollment.activated"

// EnrollmentObserver reacts to enrollment lifecycle events.
type EnrollmentObserver interface {
	OnEnrollmentActivated(ctx context.Context, event models.EnrollmentActivated) error
}

// DropRecorder counts events abandoned by the bus.
type DropRecorder interface {
	RecordEventDropped()
}

// Config sizes the worker queue behind the bus.
type Config = jobs.QueueConfig

// Bus fans enrollment events out to observers on background workers. Publishing
// never waits for observers and never sees their errors.
type Bus struct {
	queue     *jobs.Queue
	observers []EnrollmentObserver
	drops     DropRecorder
	logger    *zap.Logger
}

// NewBus constructs a bus. Start must be called before Publish.
func NewBus(cfg Config, drops DropRecorder, observers ...EnrollmentObserver) *Bus {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	b := &Bus{observers: observers, drops: drops, logger: cfg.Logger}
	cfg.OnDrop = func(job jobs.Job, err error) {
		b.recordDrop()
	}
	b.queue = jobs.NewQueue("enrollment-events", b.dispatch, cfg)
	return b
}

// Start launches the workers.
func (b *Bus) Start(ctx context.Context) {
	b.queue.Start(ctx)
}

// Stop waits for in-flight events and shuts the workers down.
func (b *Bus) Stop() {
	b.queue.Stop()
}

// PublishEnrollmentActivated queues the event. A full or stopped queue drops it.
func (b *Bus) PublishEnrollmentActivated(event models.EnrollmentActivated) error {
	id := event.EnrollmentID
	if id == "" {
		id = uuid.NewString()
	}
	job := jobs.Job{ID: id, Type: enrollmentActivatedJob, Payload: event}
	if err := b.queue.TryEnqueue(job); err != nil {
		b.recordDrop()
		b.logger.Warn("enrollment event dropped",
			zap.String("student_id", event.StudentID),
			zap.String("class_id", event.ClassID),
			zap.String("term_id", event.TermID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.EnrollmentActivated)
	if !ok {
		b.logger.Error("unexpected event payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	var failed error
	for _, observer := range b.observers {
		if err := observer.OnEnrollmentActivated(ctx, event); err != nil {
			failed = err
		}
	}
	if failed != nil {
		return fmt.Errorf("dispatch %s: %w", job.Type, failed)
	}
	return nil
}

func (b *Bus) recordDrop() {
	if b.drops != nil {
		b.drops.RecordEventDropped()
	}
}
