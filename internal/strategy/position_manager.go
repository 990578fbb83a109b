package strategy

import (
	"sync"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
)

// PositionManager maintains a strategy's local view of its open positions,
// keyed by pair. Reconcile overwrites a symbol's view with the Execution
// Engine's authoritative position only when called (via Host.Reconcile);
// order-update events do not trigger it.
type PositionManager struct {
	mu        sync.RWMutex
	positions map[string]*domain.Position
}

// NewPositionManager constructs an empty manager.
func NewPositionManager() *PositionManager {
	return &PositionManager{positions: make(map[string]*domain.Position)}
}

// Get returns the position for symbol, creating a flat one if absent.
func (m *PositionManager) Get(symbol string) *domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[symbol]
	if !ok {
		p = &domain.Position{Symbol: symbol}
		m.positions[symbol] = p
	}
	return p
}

// UpdateMark sets the mark price for symbol and recomputes its derived
// fields, for strategies deriving unrealised P&L from the cache.
func (m *PositionManager) UpdateMark(symbol string, mark decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[symbol]
	if !ok {
		p = &domain.Position{Symbol: symbol}
		m.positions[symbol] = p
	}
	p.MarkPrice = &mark
	p.Recalculate()
}

// Reconcile replaces the local view for symbol with the Execution Engine's
// authoritative position. Host.OnOrderUpdate does not call it.
func (m *PositionManager) Reconcile(symbol string, authoritative domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := authoritative
	m.positions[symbol] = &p
}

// All returns a snapshot of every tracked position.
func (m *PositionManager) All() map[string]domain.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Position, len(m.positions))
	for k, v := range m.positions {
		out[k] = *v
	}
	return out
}
