// Package execution implements the Execution Engine: order submission with
// pre-trade risk gates, same-client-id retry on transport failure, order
// tracking across client/exchange identifiers, and fill reconciliation
// against strategy-local position views.
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RetryConfig configures the submission retry loop.
type RetryConfig struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries int
}

// DefaultRetryConfig is base 1s doubled, capped, at most 3 retries, per the
// specification's submission protocol.
var DefaultRetryConfig = RetryConfig{Base: time.Second, Cap: 8 * time.Second, MaxRetries: 3}

func (r RetryConfig) delay(attempt int) time.Duration {
	d := r.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d > r.Cap {
			return r.Cap
		}
	}
	return d
}

// Engine is the Execution Engine: one instance per exchange connection.
type Engine struct {
	log     zerolog.Logger
	bus     *bus.Bus
	client  adapter.IExecutionClient
	tracker *OrderTracker
	retry   RetryConfig
	limits  RiskLimits

	mu            sync.Mutex
	positions     map[string]decimal.Decimal // symbol -> signed size, for risk gates
	dailyRealised decimal.Decimal
	recentOrders  map[string][]time.Time // symbol -> recent submit timestamps, for the rate gate
}

// New constructs an Engine bound to one adapter.IExecutionClient.
func New(client adapter.IExecutionClient, limits RiskLimits, retry RetryConfig, b *bus.Bus, log zerolog.Logger) *Engine {
	return &Engine{
		log:          log.With().Str("component", "execution_engine").Logger(),
		bus:          b,
		client:       client,
		tracker:      NewOrderTracker(),
		retry:        retry,
		limits:       limits,
		positions:    make(map[string]decimal.Decimal),
		recentOrders: make(map[string][]time.Time),
	}
}

// Submit implements strategy.SignalSink: translates a strategy signal into
// an OrderRequest and submits it. Strategies needing explicit order control
// (limit price, TIF, reduce-only) should call SubmitOrder directly instead.
func (e *Engine) Submit(signal domain.Signal) error {
	side := domain.SideBuy
	if signal.Type == domain.SignalEntryShort || signal.Type == domain.SignalExitLong {
		side = domain.SideSell
	}
	req := domain.Order{
		ClientOrderID: uuid.New().String(),
		Symbol:        signal.Pair.String(),
		Side:          side,
		Type:          domain.OrderTypeMarket,
		TIF:           domain.TIFImmediateOrCancel,
		Price:         signal.Price,
		Quantity:      decimal.FromInt(0),
	}
	_, err := e.SubmitOrder(context.Background(), req)
	return err
}

// SubmitOrder runs the risk gates, then the submission protocol: assign/
// validate the client id, serialise to the adapter, retry on transport
// failure with the same client id, record the exchange id on ack, publish
// order-submitted.
func (e *Engine) SubmitOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.ClientOrderID == "" {
		order.ClientOrderID = uuid.New().String()
	}
	order.Status = domain.OrderStatusPending

	e.mu.Lock()
	riskCtx := riskContext{
		req:              order,
		currentPos:       e.positions[order.Symbol],
		dailyRealised:    e.dailyRealised,
		leverage:         decimal.FromInt(1),
		recentOrderCount: e.countRecentOrders(order.Symbol),
	}
	e.mu.Unlock()

	if err := ValidateTrade(e.limits, riskCtx); err != nil {
		e.log.Warn().Str("client_order_id", order.ClientOrderID).Err(err).Msg("order rejected by risk gate")
		return order, err
	}

	tracked := order
	if !e.tracker.Put(&tracked) {
		return order, xerrors.ConflictErr("duplicate client_order_id: " + order.ClientOrderID)
	}
	e.tracker.SetStatus(order.ClientOrderID, domain.OrderStatusSubmitted)
	e.recordSubmission(order.Symbol)

	req := adapter.OrderRequest{
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Type:          order.Type,
		TIF:           order.TIF,
		Price:         order.Price,
		Quantity:      order.Quantity,
		TriggerPrice:  order.TriggerPrice,
		ReduceOnly:    order.ReduceOnly,
		PositionSide:  order.PositionSide,
	}

	var result adapter.OrderResult
	var err error
	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		result, err = e.client.SubmitOrder(ctx, req)
		if err == nil {
			break
		}
		if !xerrors.OfKind(err, xerrors.Transport) {
			e.tracker.SetStatus(order.ClientOrderID, domain.OrderStatusRejected)
			return order, err
		}
		if attempt == e.retry.MaxRetries {
			e.tracker.SetStatus(order.ClientOrderID, domain.OrderStatusRejected)
			return order, err
		}
		e.log.Warn().Str("client_order_id", order.ClientOrderID).Int("attempt", attempt+1).Err(err).Msg("transport failure, retrying with same client id")
		select {
		case <-ctx.Done():
			return order, ctx.Err()
		case <-time.After(e.retry.delay(attempt)):
		}
	}

	if result.Err != nil {
		e.tracker.SetStatus(order.ClientOrderID, domain.OrderStatusRejected)
		return order, result.Err
	}

	e.tracker.BindExchangeID(order.ClientOrderID, result.ExchangeOrderID)
	nextStatus := domain.OrderStatusOpen
	if result.FilledQuantity.GreaterOrEqual(order.Quantity) && order.Quantity.IsPositive() {
		nextStatus = domain.OrderStatusFilled
	}
	e.tracker.SetStatus(order.ClientOrderID, nextStatus)

	snapshot, _ := e.tracker.Snapshot(order.ClientOrderID)
	if e.bus != nil {
		e.bus.Emit(bus.TopicOrder, "execution_engine", snapshot)
	}
	return snapshot, nil
}

// CancelOrder resolves client or exchange id, issues the adapter cancel if
// the order is not already terminal, and publishes on acknowledgement.
func (e *Engine) CancelOrder(ctx context.Context, clientOrderID string) error {
	order, ok := e.tracker.ByClientID(clientOrderID)
	if !ok {
		order, ok = e.tracker.ByExchangeID(clientOrderID)
		if !ok {
			return xerrors.InvalidArgumentErr("unknown client_order_id: " + clientOrderID)
		}
		clientOrderID = order.ClientOrderID
	}
	if order.Status.Terminal() {
		return nil
	}
	if err := e.client.CancelOrder(ctx, clientOrderID); err != nil {
		return err
	}
	e.tracker.SetStatus(clientOrderID, domain.OrderStatusCancelled)
	if e.bus != nil {
		snapshot, _ := e.tracker.Snapshot(clientOrderID)
		e.bus.Emit(bus.TopicOrder, "execution_engine", snapshot)
	}
	return nil
}

// GetOrderStatus returns the tracked status, ok=false if unknown.
func (e *Engine) GetOrderStatus(clientOrderID string) (domain.OrderStatus, bool) {
	o, ok := e.tracker.ByClientID(clientOrderID)
	if !ok {
		return "", false
	}
	return o.Status, true
}

// GetPosition returns the Engine's authoritative view of a symbol's
// position, fetched from the adapter.
func (e *Engine) GetPosition(ctx context.Context, symbol string) (domain.Position, bool, error) {
	info, ok, err := e.client.GetPosition(ctx, symbol)
	if err != nil {
		return domain.Position{}, false, err
	}
	if !ok {
		return domain.Position{}, false, nil
	}
	pos := domain.Position{
		Symbol:     info.Symbol,
		Size:       info.Size,
		EntryPrice: info.EntryPrice,
	}
	mark := info.MarkPrice
	pos.MarkPrice = &mark
	liq := info.LiquidationPrice
	pos.LiquidationPrice = &liq
	pos.Recalculate()
	return pos, true, nil
}

// GetBalance returns the adapter's account-level balance snapshot.
func (e *Engine) GetBalance(ctx context.Context) (domain.Account, error) {
	bal, err := e.client.GetBalance(ctx)
	if err != nil {
		return domain.Account{}, err
	}
	return bal.Account, nil
}

// OpenOrders returns every order this engine still considers working, for
// the kill switch's cancel-everything path.
func (e *Engine) OpenOrders() []domain.Order {
	return e.tracker.Open()
}

// TrackedSymbols returns every symbol this engine has taken a risk position
// against, for the kill switch's flatten-everything path.
func (e *Engine) TrackedSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	symbols := make([]string, 0, len(e.positions))
	for symbol := range e.positions {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Flatten submits a reduce-only market order to close symbol's open position,
// if any. It is a no-op if the engine reports no position or a flat one.
func (e *Engine) Flatten(ctx context.Context, symbol string) error {
	pos, ok, err := e.GetPosition(ctx, symbol)
	if err != nil {
		return err
	}
	if !ok || pos.IsFlat() {
		return nil
	}
	side := domain.SideSell
	if pos.Size.IsNegative() {
		side = domain.SideBuy
	}
	order := domain.Order{
		ClientOrderID: uuid.New().String(),
		Symbol:        symbol,
		Side:          side,
		Type:          domain.OrderTypeMarket,
		TIF:           domain.TIFImmediateOrCancel,
		Quantity:      pos.Size.Abs(),
		ReduceOnly:    true,
	}
	_, err = e.SubmitOrder(ctx, order)
	return err
}

// ApplyFill reconciles a fill event against the order tracker and the
// Engine's internal position view: updates remaining quantity, size-weighted
// average fill price, and transitions to filled when remaining reaches zero.
func (e *Engine) ApplyFill(clientOrderID string, fillQty, fillPrice, fees decimal.Decimal) error {
	order, ok := e.tracker.ByClientID(clientOrderID)
	if !ok {
		return xerrors.InvalidArgumentErr("fill for unknown client_order_id: " + clientOrderID)
	}

	prevFilled := order.Filled
	totalFilled := prevFilled.Add(fillQty)
	if totalFilled.GreaterThan(order.Quantity) {
		totalFilled = order.Quantity
	}

	if totalFilled.IsPositive() {
		weighted, err := prevFilled.Mul(order.AverageFillPrice).Add(fillQty.Mul(fillPrice)).Div(totalFilled)
		if err == nil {
			order.AverageFillPrice = weighted
		}
	}
	order.Filled = totalFilled
	order.Remaining = order.Quantity.Sub(totalFilled)
	order.Fees = order.Fees.Add(fees)

	if order.Remaining.IsZero() {
		e.tracker.SetStatus(clientOrderID, domain.OrderStatusFilled)
	}

	signedQty := fillQty
	if order.Side == domain.SideSell {
		signedQty = signedQty.Neg()
	}
	e.mu.Lock()
	prevPos := e.positions[order.Symbol]
	pos := &domain.Position{Symbol: order.Symbol, Size: prevPos, EntryPrice: order.AverageFillPrice}
	pos.ApplyFill(signedQty, fillPrice)
	e.positions[order.Symbol] = pos.Size
	e.dailyRealised = e.dailyRealised.Add(pos.RealisedPnL)
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.Emit(bus.TopicOrderFill, "execution_engine", *order)
	}
	return nil
}

func (e *Engine) recordSubmission(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	e.recentOrders[symbol] = append(e.recentOrders[symbol], now)
}

// countRecentOrders counts submissions for symbol within the last second;
// caller must hold e.mu.
func (e *Engine) countRecentOrders(symbol string) int {
	cutoff := time.Now().Add(-time.Second)
	times := e.recentOrders[symbol]
	count := 0
	for _, t := range times {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}
