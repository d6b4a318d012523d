package event

import (
	"context"
	"sync"
	"time"

	"github.com/quorix-labs/botlink/internal/logger"
)

// retryEntry tracks one event moving through the retry queue
type retryEntry struct {
	event   Event
	attempt int
	nextTry time.Time
	lastErr error
}

// ResilientPublisher wraps an Event Bus with bounded async retries and a
// dead-letter file for events that exhaust them. Callers are never blocked
// by a failing downstream handler.
type ResilientPublisher struct {
	bus        Bus
	retryQueue chan retryEntry
	maxRetries int
	retryDelay time.Duration
	deadLetter *DeadLetterWriter
	shutdown   chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewResilientPublisher creates a ResilientPublisher with a running retry worker
func NewResilientPublisher(bus Bus, maxRetries int, retryDelay time.Duration, deadLetterPath string) (*ResilientPublisher, error) {
	dl, err := NewDeadLetterWriter(deadLetterPath)
	if err != nil {
		return nil, err
	}

	p := &ResilientPublisher{
		bus:        bus,
		retryQueue: make(chan retryEntry, RetryQueueBufferSize),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		deadLetter: dl,
		shutdown:   make(chan struct{}),
	}

	p.wg.Add(1)
	go p.retryWorker()

	return p, nil
}

// PublishWithRetry attempts a synchronous publish; on failure the event is
// queued for background retry. The caller always returns immediately.
func (p *ResilientPublisher) PublishWithRetry(ctx context.Context, event Event) {
	err := p.bus.Publish(ctx, event)
	if err == nil {
		return
	}

	logger.Warn(LogMsgEventPublishFailed,
		"event_type", event.Type,
		"error", err)

	p.enqueue(retryEntry{
		event:   event,
		attempt: 1,
		nextTry: time.Now().Add(CalculateRetryDelay(p.retryDelay, 1)),
		lastErr: err,
	})
}

// Publish satisfies Bus; it delegates to PublishWithRetry and reports no error
// because failures are handled asynchronously.
func (p *ResilientPublisher) Publish(ctx context.Context, event Event) error {
	p.PublishWithRetry(ctx, event)
	return nil
}

// Subscribe delegates to the inner bus
func (p *ResilientPublisher) Subscribe(eventType Type, handler Handler) {
	p.bus.Subscribe(eventType, handler)
}

// enqueue adds an entry to the retry queue, dead-lettering on overflow.
func (p *ResilientPublisher) enqueue(entry retryEntry) {
	select {
	case p.retryQueue <- entry:
	default:
		logger.Warn(LogMsgRetryQueueFull, "event_type", entry.event.Type)
		if err := p.deadLetter.Write(entry.event, entry.attempt, entry.lastErr); err != nil {
			logger.Error(LogMsgDeadLetterWriteFailed, "error", err)
		}
	}
}

// retryWorker drains the retry queue until shutdown.
func (p *ResilientPublisher) retryWorker() {
	defer p.wg.Done()

	for {
		select {
		case entry := <-p.retryQueue:
			p.processEntry(entry)
		case <-p.shutdown:
			// Drain whatever is still queued; anything that fails now goes
			// straight to the dead letter.
			for {
				select {
				case entry := <-p.retryQueue:
					if err := p.bus.Publish(context.Background(), entry.event); err != nil {
						logger.Info(LogMsgQueueDrainedShutdown, "event_type", entry.event.Type)
						if dlErr := p.deadLetter.Write(entry.event, entry.attempt, err); dlErr != nil {
							logger.Error(LogMsgDeadLetterWriteFailedS, "error", dlErr)
						}
					}
				default:
					return
				}
			}
		}
	}
}

// processEntry waits out the backoff then retries one event.
func (p *ResilientPublisher) processEntry(entry retryEntry) {
	if wait := time.Until(entry.nextTry); wait > 0 {
		select {
		case <-time.After(wait):
		case <-p.shutdown:
			// Requeue so the drain loop gets a final attempt at it.
			p.enqueue(entry)
			return
		}
	}

	err := p.bus.Publish(context.Background(), entry.event)
	if err == nil {
		logger.Info(LogMsgEventRetrySucceeded,
			"event_type", entry.event.Type,
			"attempt", entry.attempt)
		return
	}

	if entry.attempt >= p.maxRetries {
		logger.Warn(LogMsgEventRetryExhausted,
			"event_type", entry.event.Type,
			"attempts", entry.attempt)
		if dlErr := p.deadLetter.Write(entry.event, entry.attempt, err); dlErr != nil {
			logger.Error(LogMsgDeadLetterWriteFailed, "error", dlErr)
		}
		return
	}

	logger.Warn(LogMsgEventRetryFailed,
		"event_type", entry.event.Type,
		"attempt", entry.attempt,
		"error", err)

	p.enqueue(retryEntry{
		event:   entry.event,
		attempt: entry.attempt + 1,
		nextTry: time.Now().Add(CalculateRetryDelay(p.retryDelay, entry.attempt+1)),
		lastErr: err,
	})
}

// Shutdown stops the retry worker, draining pending events first.
func (p *ResilientPublisher) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.shutdown) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return p.deadLetter.Close()
	case <-ctx.Done():
		logger.Warn(LogMsgShutdownTimeout)
		return ctx.Err()
	}
}
