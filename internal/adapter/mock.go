package adapter

import (
	"context"
	"strconv"
	"sync"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
)

// MockDataProvider is an in-memory IDataProvider for tests and for feeding
// the Backtest Engine's simulator through the same contract live trading
// uses. Messages are queued with Push and drained in FIFO order by Poll.
type MockDataProvider struct {
	name string

	mu      sync.Mutex
	queue   []DataMessage
	active  map[Subscription]struct{}
	connect bool
}

// NewMockDataProvider constructs an empty mock provider.
func NewMockDataProvider(name string) *MockDataProvider {
	return &MockDataProvider{name: name, active: make(map[Subscription]struct{})}
}

func (m *MockDataProvider) Name() string { return m.name }

func (m *MockDataProvider) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connect = true
	m.queue = append(m.queue, DataMessage{Kind: MsgConnected})
	return nil
}

func (m *MockDataProvider) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connect = false
	return nil
}

func (m *MockDataProvider) Subscribe(sub Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[sub] = struct{}{}
	return nil
}

func (m *MockDataProvider) Unsubscribe(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.active {
		if sub.Symbol == symbol {
			delete(m.active, sub)
		}
	}
	return nil
}

// Push enqueues a message to be returned by a future Poll call, in the order
// pushed. Use this to drive deterministic provider behaviour in tests and
// to replay historical data through the backtest simulator.
func (m *MockDataProvider) Push(msg DataMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, msg)
}

func (m *MockDataProvider) Poll(ctx context.Context) (DataMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return DataMessage{}, false, nil
	}
	msg := m.queue[0]
	m.queue = m.queue[1:]
	return msg, true, nil
}

// IsSubscribed reports whether (symbol, kind) is currently active, for
// assertions in tests.
func (m *MockDataProvider) IsSubscribed(symbol string, kind SubscriptionKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[Subscription{Symbol: symbol, Kind: kind}]
	return ok
}

// MockExecutionClient is an in-memory IExecutionClient. Orders submitted
// through it are accepted immediately (status Open) unless RejectNext is
// armed; fills must be injected explicitly via Fill to mirror how a real
// adapter's asynchronous fill events arrive.
type MockExecutionClient struct {
	name string

	mu         sync.Mutex
	orders     map[string]*domain.Order
	nextExchID int
	rejectNext bool
	balance    domain.Account
	positions  map[string]PositionInfo
}

// NewMockExecutionClient constructs an empty mock execution client.
func NewMockExecutionClient(name string) *MockExecutionClient {
	return &MockExecutionClient{
		name:      name,
		orders:    make(map[string]*domain.Order),
		positions: make(map[string]PositionInfo),
	}
}

func (m *MockExecutionClient) Name() string { return m.name }

// RejectNextOrder arms the client to reject the very next SubmitOrder call,
// for exercising the Execution Engine's adapter-rejected path.
func (m *MockExecutionClient) RejectNextOrder() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectNext = true
}

func (m *MockExecutionClient) SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.orders[req.ClientOrderID]; ok {
		return OrderResult{
			ClientOrderID:   req.ClientOrderID,
			ExchangeOrderID: existing.ExchangeOrderID,
			Status:          existing.Status,
		}, nil
	}

	if m.rejectNext {
		m.rejectNext = false
		return OrderResult{}, xerrors.New(xerrors.InvalidArgument, "mock adapter rejected order")
	}

	m.nextExchID++
	exchID := strconv.Itoa(m.nextExchID)
	order := &domain.Order{
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: exchID,
		Symbol:          req.Symbol,
		Side:            req.Side,
		Type:            req.Type,
		TIF:             req.TIF,
		Price:           req.Price,
		Quantity:        req.Quantity,
		Remaining:       req.Quantity,
		ReduceOnly:      req.ReduceOnly,
		PositionSide:    req.PositionSide,
		Status:          domain.OrderStatusOpen,
	}
	m.orders[req.ClientOrderID] = order

	return OrderResult{
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: exchID,
		Status:          domain.OrderStatusOpen,
		FilledQuantity:  decimal.Zero,
	}, nil
}

func (m *MockExecutionClient) CancelOrder(ctx context.Context, clientOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[clientOrderID]
	if !ok {
		return xerrors.InvalidArgumentErr("unknown client order id")
	}
	if order.Status.Terminal() {
		return nil
	}
	order.Status = domain.OrderStatusCancelled
	return nil
}

func (m *MockExecutionClient) GetOrderStatus(ctx context.Context, clientOrderID string) (domain.OrderStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[clientOrderID]
	if !ok {
		return "", false, nil
	}
	return order.Status, true, nil
}

// Fill simulates a (possibly partial) fill arriving from the exchange.
func (m *MockExecutionClient) Fill(clientOrderID string, qty, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[clientOrderID]
	if !ok {
		return
	}
	order.Filled = order.Filled.Add(qty)
	order.Remaining = order.Quantity.Sub(order.Filled)
	order.AverageFillPrice = price
	if order.Remaining.IsZero() {
		order.Status = domain.OrderStatusFilled
	}
}

func (m *MockExecutionClient) SetPosition(symbol string, info PositionInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = info
}

func (m *MockExecutionClient) GetPosition(ctx context.Context, symbol string) (PositionInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.positions[symbol]
	return info, ok, nil
}

func (m *MockExecutionClient) SetBalance(acct domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = acct
}

func (m *MockExecutionClient) GetBalance(ctx context.Context) (BalanceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return BalanceInfo{Account: m.balance}, nil
}
