package app

import (
	"context"
	"log/slog"
	"sync"

	"course-ledger-service/internal/domain"
)

type discardSink struct{}

func (discardSink) Emit(context.Context, domain.Event) {}

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, event domain.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}

// LogSink renders ledger events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, event domain.Event) {
	level := slog.LevelInfo
	if event.Type == domain.EventRecordError {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, string(event.Type),
		"course_id", event.CourseID,
		"learner_id", event.LearnerID,
		"certificate_id", event.CertificateID,
		"percent", event.Percent,
		"trigger", event.Trigger,
		"message", event.Message,
	)
}

// EventHub broadcasts events to in-process subscribers, e.g. websocket clients.
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Event]string
}

func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[chan domain.Event]string)}
}

// Subscribe returns a channel of events for courseID (all courses when empty).
// The caller must invoke the returned cancel function to avoid leaks.
func (h *EventHub) Subscribe(courseID string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	h.mu.Lock()
	h.subscribers[ch] = courseID
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *EventHub) Emit(_ context.Context, event domain.Event) {
	// Full lock: the drop-oldest path below both receives and sends on subscriber channels.
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, courseID := range h.subscribers {
		if courseID != "" && courseID != event.CourseID {
			continue
		}
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop its oldest event so the ledger never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
