package events

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(buffer int) *ProgressBroker {
	return NewProgressBroker(buffer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestProgressBroker_DeliversToTaskSubscribers(t *testing.T) {
	b := newTestBroker(4)

	ch1, cancel1 := b.Subscribe(1)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(2)
	defer cancel2()

	b.Publish(ProgressEvent{TaskID: 1, Status: "Processing", Progress: 25, Stage: "Transcribing Audio"})

	got := <-ch1
	assert.Equal(t, 25, got.Progress)
	assert.Equal(t, "Transcribing Audio", got.Stage)
	assert.False(t, got.At.IsZero())

	select {
	case ev := <-ch2:
		t.Fatalf("unexpected event for task 2: %+v", ev)
	default:
	}
}

func TestProgressBroker_SlowSubscriberKeepsLatest(t *testing.T) {
	b := newTestBroker(2)
	ch, cancel := b.Subscribe(5)
	defer cancel()

	for p := 10; p <= 50; p += 10 {
		b.Publish(ProgressEvent{TaskID: 5, Progress: p})
	}

	var seen []int
	for len(ch) > 0 {
		seen = append(seen, (<-ch).Progress)
	}
	require.Len(t, seen, 2)
	assert.Equal(t, 50, seen[len(seen)-1])
}

func TestProgressBroker_Cancel(t *testing.T) {
	b := newTestBroker(1)
	ch, cancel := b.Subscribe(3)
	assert.Equal(t, 1, b.Subscribers(3))

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers(3))

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancellation must not panic on the closed channel.
	b.Publish(ProgressEvent{TaskID: 3})
}

func TestProgressBroker_Concurrent(t *testing.T) {
	b := newTestBroker(8)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancel := b.Subscribe(9)
			cancel()
		}()
		go func(p int) {
			defer wg.Done()
			b.Publish(ProgressEvent{TaskID: 9, Progress: p})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, b.Subscribers(9))
}
