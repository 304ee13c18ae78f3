package events

import (
	"log/slog"
	"sync"
	"time"
)

// ProgressEvent reports the state of a video task as the pipeline advances.
type ProgressEvent struct {
	TaskID   int64     `json:"task_id"`
	Status   string    `json:"status"`
	Stage    string    `json:"stage,omitempty"`
	Progress int       `json:"progress"`
	VideoURL string    `json:"video_url,omitempty"`
	At       time.Time `json:"at"`
}

// ProgressPublisher is the write side of the broker.
type ProgressPublisher interface {
	Publish(event ProgressEvent)
}

// DefaultSubscriberBuffer is the channel capacity given to each subscriber.
const DefaultSubscriberBuffer = 16

type subscription struct {
	ch chan ProgressEvent
}

// ProgressBroker fans progress events out to the subscribers of each task.
// Publishing never blocks: a subscriber whose buffer is full loses the
// oldest queued event.
type ProgressBroker struct {
	mu     sync.Mutex
	subs   map[int64]map[*subscription]struct{}
	buffer int
	logger *slog.Logger
}

// NewProgressBroker creates a broker. A non-positive buffer uses DefaultSubscriberBuffer.
func NewProgressBroker(buffer int, logger *slog.Logger) *ProgressBroker {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &ProgressBroker{
		subs:   make(map[int64]map[*subscription]struct{}),
		buffer: buffer,
		logger: logger.With("component", "progress_broker"),
	}
}

// Subscribe registers interest in taskID. The returned cancel func removes
// the subscription and closes the channel; it is safe to call more than once.
func (b *ProgressBroker) Subscribe(taskID int64) (<-chan ProgressEvent, func()) {
	sub := &subscription{ch: make(chan ProgressEvent, b.buffer)}

	b.mu.Lock()
	if b.subs[taskID] == nil {
		b.subs[taskID] = make(map[*subscription]struct{})
	}
	b.subs[taskID][sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[taskID]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(b.subs, taskID)
				}
			}
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers event to every subscriber of its task.
func (b *ProgressBroker) Publish(event ProgressEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[event.TaskID] {
		select {
		case sub.ch <- event:
			continue
		default:
		}
		// Full: drop the oldest event so the latest state always gets through.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- event:
		default:
		}
		b.logger.Debug("dropped progress event for slow subscriber", "task_id", event.TaskID)
	}
}

// Subscribers reports how many subscribers are listening to taskID.
func (b *ProgressBroker) Subscribers(taskID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[taskID])
}
