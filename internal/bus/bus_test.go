package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return New(zerolog.Nop())
}

// TestOrderedDeliveryPerTopic is the specification's testable property: for
// any two messages A, B published to the same topic, every subscriber
// receives A before B.
func TestOrderedDeliveryPerTopic(t *testing.T) {
	b := newTestBus()

	const subscribers = 5
	const messages = 200

	var wg sync.WaitGroup
	wg.Add(subscribers)

	results := make([][]int, subscribers)
	for i := 0; i < subscribers; i++ {
		idx := i
		received := make([]int, 0, messages)
		b.Subscribe(TopicCandle, func(msg Message) {
			received = append(received, msg.Payload.(int))
			if len(received) == messages {
				results[idx] = received
				wg.Done()
			}
		})
	}

	for i := 0; i < messages; i++ {
		b.Emit(TopicCandle, "test", i)
	}

	waitOrFail(t, &wg, time.Second)

	for i, got := range results {
		require.Len(t, got, messages, "subscriber %d", i)
		for j, v := range got {
			assert.Equal(t, j, v, "subscriber %d position %d", i, j)
		}
	}
}

func TestSubscribersAreIndependentPerTopic(t *testing.T) {
	b := newTestBus()

	var candleCount, orderCount int
	var mu sync.Mutex

	b.Subscribe(TopicCandle, func(Message) {
		mu.Lock()
		candleCount++
		mu.Unlock()
	})
	b.Subscribe(TopicOrder, func(Message) {
		mu.Lock()
		orderCount++
		mu.Unlock()
	})

	done := make(chan struct{})
	b.Subscribe(TopicOrder, func(Message) { close(done) })

	b.Emit(TopicCandle, "test", 1)
	b.Emit(TopicOrder, "test", 1)

	<-done
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, candleCount)
	assert.Equal(t, 1, orderCount)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus()

	var count int
	var mu sync.Mutex
	unsub := b.Subscribe(TopicTick, func(Message) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Emit(TopicTick, "test", 1)
	waitForCount(t, &mu, &count, 1)

	unsub()

	done := make(chan struct{})
	b.Subscribe(TopicTick, func(Message) { close(done) })
	b.Emit(TopicTick, "test", 2)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func waitForCount(t *testing.T, mu *sync.Mutex, count *int, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := *count
		mu.Unlock()
		if got >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for count to reach %d", want)
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for delivery")
	}
}
