package backtest

import (
	"context"
	"sync"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
)

// simulator is an in-memory adapter.IExecutionClient the Backtest Engine's
// replay loop drives directly: SubmitOrder always acknowledges
// synchronously (Status Open, unfilled) so the replay loop's own pending-
// order book controls exactly when and at what price a fill happens,
// keeping the simulation deterministic and independent of wall-clock time.
type simulator struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newSimulator() *simulator {
	return &simulator{orders: make(map[string]*domain.Order)}
}

func (s *simulator) Name() string { return "backtest-simulator" }

func (s *simulator) SubmitOrder(ctx context.Context, req adapter.OrderRequest) (adapter.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[req.ClientOrderID]; exists {
		return adapter.OrderResult{}, xerrors.ConflictErr("duplicate client_order_id in backtest: " + req.ClientOrderID)
	}
	order := &domain.Order{
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		TIF:           req.TIF,
		Price:         req.Price,
		Quantity:      req.Quantity,
		Remaining:     req.Quantity,
		TriggerPrice:  req.TriggerPrice,
		ReduceOnly:    req.ReduceOnly,
		PositionSide:  req.PositionSide,
		Status:        domain.OrderStatusOpen,
	}
	s.orders[req.ClientOrderID] = order
	return adapter.OrderResult{
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: "sim-" + req.ClientOrderID,
		Status:          domain.OrderStatusOpen,
		FilledQuantity:  decimal.Zero,
	}, nil
}

func (s *simulator) CancelOrder(ctx context.Context, clientOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[clientOrderID]
	if !ok {
		return xerrors.InvalidArgumentErr("unknown client_order_id in backtest: " + clientOrderID)
	}
	if order.Status.Terminal() {
		return nil
	}
	order.Status = domain.OrderStatusCancelled
	return nil
}

func (s *simulator) GetOrderStatus(ctx context.Context, clientOrderID string) (domain.OrderStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[clientOrderID]
	if !ok {
		return "", false, nil
	}
	return o.Status, true, nil
}

// GetPosition and GetBalance are not authoritative in the simulator: the
// Backtest Engine tracks cash and position size itself from the trade
// sequence, since that is what Equity/metrics need to stay deterministic.
func (s *simulator) GetPosition(ctx context.Context, symbol string) (adapter.PositionInfo, bool, error) {
	return adapter.PositionInfo{}, false, nil
}

func (s *simulator) GetBalance(ctx context.Context) (adapter.BalanceInfo, error) {
	return adapter.BalanceInfo{}, nil
}
