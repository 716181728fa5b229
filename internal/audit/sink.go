// Package audit implements the append-only audit sink: writes are
// asynchronous from the request path and bounded, dropping the oldest
// queued event under backpressure rather than blocking a caller or losing
// the newest signal.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/store"
	"github.com/finwatch/fraud-platform/pkg/metrics"
)

// defaultQueueSize bounds the in-flight event buffer. Past this, Emit
// drops the oldest queued event to make room for the newest rather than
// blocking the caller.
const defaultQueueSize = 1024

// Sink drains queued events to the durable audit store on a background
// goroutine. Loss of an audit write never fails the request that produced
// it.
type Sink struct {
	store  store.AuditStore
	logger *zap.Logger
	events chan *entities.AuditEvent
	done   chan struct{}
}

func New(auditStore store.AuditStore, logger *zap.Logger) *Sink {
	return &Sink{
		store:  auditStore,
		logger: logger,
		events: make(chan *entities.AuditEvent, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the drain goroutine. Call Stop to shut it down cleanly.
func (s *Sink) Start(ctx context.Context) {
	go s.drain(ctx)
}

func (s *Sink) Stop() {
	close(s.done)
}

func (s *Sink) drain(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := s.store.Append(writeCtx, event); err != nil {
				s.logger.Error("failed to persist audit event", zap.Error(err),
					zap.String("action", string(event.Action)))
			} else {
				metrics.RecordAuditEvent(string(event.Action))
			}
			cancel()
		}
	}
}

// Emit queues an authenticated event (user known).
func (s *Sink) Emit(ctx context.Context, userID *int64, action entities.AuditAction, resource, ip, userAgent string, detail map[string]interface{}) {
	s.enqueue(&entities.AuditEvent{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IPAddress: ip,
		UserAgent: userAgent,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
}

// EmitAnonymous queues an event with no resolved user — e.g. a failed
// login against a username that doesn't exist.
func (s *Sink) EmitAnonymous(ctx context.Context, action entities.AuditAction, resource, ip, userAgent string, detail map[string]interface{}) {
	s.enqueue(&entities.AuditEvent{
		ID:        uuid.New(),
		Action:    action,
		Resource:  resource,
		IPAddress: ip,
		UserAgent: userAgent,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
}

func (s *Sink) enqueue(event *entities.AuditEvent) {
	select {
	case s.events <- event:
		return
	default:
	}

	// Queue full: drop the oldest to make room for this one.
	select {
	case <-s.events:
		metrics.AuditDroppedTotal.Inc()
	default:
	}
	select {
	case s.events <- event:
	default:
		metrics.AuditDroppedTotal.Inc()
	}
}

// QueueDepth reports the number of events currently buffered, used by the
// worker health checker.
func (s *Sink) QueueDepth() int {
	return len(s.events)
}
