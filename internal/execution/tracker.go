package execution

import (
	"sync"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
)

// OrderTracker maintains the bookkeeping the Execution Engine needs to
// resolve cancellations and fills against either identifier: two maps
// (client_id <-> exchange_id), plus the authoritative order record keyed by
// client_id. One mutex guards all three; order-rate is low enough that
// contention is not a concern.
type OrderTracker struct {
	mu             sync.Mutex
	byClientID     map[string]*domain.Order
	clientToExch   map[string]string
	exchToClient   map[string]string
}

// NewOrderTracker constructs an empty tracker.
func NewOrderTracker() *OrderTracker {
	return &OrderTracker{
		byClientID:   make(map[string]*domain.Order),
		clientToExch: make(map[string]string),
		exchToClient: make(map[string]string),
	}
}

// Put registers a new order under its client id. Returns false if the client
// id is already tracked (the caller should reject as a duplicate).
func (t *OrderTracker) Put(order *domain.Order) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byClientID[order.ClientOrderID]; exists {
		return false
	}
	t.byClientID[order.ClientOrderID] = order
	return true
}

// BindExchangeID records the exchange-assigned id for a tracked client id.
func (t *OrderTracker) BindExchangeID(clientID, exchangeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clientToExch[clientID] = exchangeID
	t.exchToClient[exchangeID] = clientID
	if o, ok := t.byClientID[clientID]; ok {
		o.ExchangeOrderID = exchangeID
	}
}

// ByClientID returns the tracked order, if any.
func (t *OrderTracker) ByClientID(clientID string) (*domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.byClientID[clientID]
	return o, ok
}

// ByExchangeID resolves an exchange id back to the tracked order.
func (t *OrderTracker) ByExchangeID(exchangeID string) (*domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	clientID, ok := t.exchToClient[exchangeID]
	if !ok {
		return nil, false
	}
	o, ok := t.byClientID[clientID]
	return o, ok
}

// SetStatus applies a status transition if legal, per domain.CanTransition;
// illegal transitions are ignored (the caller is expected to log).
func (t *OrderTracker) SetStatus(clientID string, status domain.OrderStatus) (applied bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.byClientID[clientID]
	if !ok {
		return false
	}
	if !domain.CanTransition(o.Status, status) {
		return false
	}
	o.Status = status
	return true
}

// Snapshot returns a copy of the tracked order, for safe reading outside the
// tracker's lock.
func (t *OrderTracker) Snapshot(clientID string) (domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.byClientID[clientID]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// Open returns a snapshot of every tracked order whose status is not yet
// terminal, for callers (the kill switch) that need to cancel everything
// working without resolving each client id individually.
func (t *OrderTracker) Open() []domain.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	open := make([]domain.Order, 0, len(t.byClientID))
	for _, o := range t.byClientID {
		if !o.Status.Terminal() {
			open = append(open, *o)
		}
	}
	return open
}
