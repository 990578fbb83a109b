package dataengine

import (
	"sync"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/rs/zerolog"
)

// symbolBuffer is the Data Engine's per-symbol bounded queue between a
// provider's producer loop and its fan-out consumer. On overflow it drops
// the oldest non-snapshot message; orderbook snapshots are never dropped,
// per the back-pressure contract.
type symbolBuffer struct {
	depth int

	mu       sync.Mutex
	items    []adapter.DataMessage
	draining bool
}

func newSymbolBuffer(depth int) *symbolBuffer {
	if depth <= 0 {
		depth = 1
	}
	return &symbolBuffer{depth: depth}
}

// push appends msg, applying the drop-oldest-non-snapshot policy when full.
// It returns true exactly when the caller must start a new drain goroutine
// (the buffer transitioned from idle to active).
func (b *symbolBuffer) push(msg adapter.DataMessage, log zerolog.Logger) (startDrain bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) >= b.depth {
		isSnapshot := msg.Kind == adapter.MsgOrderbook && msg.Orderbook.IsSnapshot
		if isSnapshot {
			// Never dropped, even if it means growing past depth.
			b.items = append(b.items, msg)
		} else if dropped := b.dropOldestNonSnapshot(); dropped {
			log.Warn().Str("symbol", msg.Symbol).Msg("symbol buffer full, dropped oldest non-snapshot message")
			b.items = append(b.items, msg)
		} else {
			// Every buffered message is a protected snapshot; the incoming
			// non-snapshot update is the one that has to give.
			log.Warn().Str("symbol", msg.Symbol).Msg("symbol buffer full of snapshots, dropping incoming update")
			return b.startIfIdle()
		}
	} else {
		b.items = append(b.items, msg)
	}

	return b.startIfIdle()
}

func (b *symbolBuffer) startIfIdle() bool {
	if b.draining {
		return false
	}
	b.draining = true
	return true
}

func (b *symbolBuffer) dropOldestNonSnapshot() bool {
	for i, item := range b.items {
		if item.Kind == adapter.MsgOrderbook && item.Orderbook.IsSnapshot {
			continue
		}
		b.items = append(b.items[:i], b.items[i+1:]...)
		return true
	}
	return false
}

// pop returns the oldest buffered message. When the buffer is empty it
// clears the draining flag (atomically with the emptiness check) and
// returns ok=false, signalling the caller's drain goroutine to exit.
func (b *symbolBuffer) pop() (adapter.DataMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		b.draining = false
		return adapter.DataMessage{}, false
	}
	msg := b.items[0]
	b.items = b.items[1:]
	return msg, true
}
