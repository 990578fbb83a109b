package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyClient fails the first N SubmitOrder attempts for the same client
// order id with a transport error, then succeeds — exercising the retry
// path without a real network dependency.
type flakyClient struct {
	mu          sync.Mutex
	failCount   int
	submissions map[string]int
	exchIDs     int
}

func newFlakyClient(failCount int) *flakyClient {
	return &flakyClient{failCount: failCount, submissions: make(map[string]int)}
}

func (f *flakyClient) Name() string { return "flaky" }

func (f *flakyClient) SubmitOrder(ctx context.Context, req adapter.OrderRequest) (adapter.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions[req.ClientOrderID]++
	if f.submissions[req.ClientOrderID] <= f.failCount {
		return adapter.OrderResult{}, xerrors.TransportErr("simulated transport failure", nil)
	}
	f.exchIDs++
	return adapter.OrderResult{
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: "exch-1",
		Status:          domain.OrderStatusOpen,
		FilledQuantity:  decimal.Zero,
	}, nil
}

func (f *flakyClient) CancelOrder(ctx context.Context, clientOrderID string) error { return nil }
func (f *flakyClient) GetOrderStatus(ctx context.Context, clientOrderID string) (domain.OrderStatus, bool, error) {
	return "", false, nil
}
func (f *flakyClient) GetPosition(ctx context.Context, symbol string) (adapter.PositionInfo, bool, error) {
	return adapter.PositionInfo{}, false, nil
}
func (f *flakyClient) GetBalance(ctx context.Context) (adapter.BalanceInfo, error) {
	return adapter.BalanceInfo{}, nil
}

func (f *flakyClient) attemptsFor(clientID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions[clientID]
}

// TestSubmitOrderRetriesWithSameClientID is scenario S3: the first transport
// attempt fails, the second succeeds — exactly one successful OrderResult,
// the exchange order id populated, using the same client id throughout.
func TestSubmitOrderRetriesWithSameClientID(t *testing.T) {
	client := newFlakyClient(1)
	b := bus.New(zerolog.Nop())
	eng := New(client, RiskLimits{}, RetryConfig{Base: 0, Cap: 0, MaxRetries: 3}, b, zerolog.Nop())

	published := make(chan domain.Order, 1)
	unsub := b.Subscribe(bus.TopicOrder, func(msg bus.Message) {
		published <- msg.Payload.(domain.Order)
	})
	defer unsub()

	order := domain.Order{ClientOrderID: "A", Symbol: "BTC/USD", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: decimal.FromInt(1)}
	result, err := eng.SubmitOrder(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, "A", result.ClientOrderID)
	assert.Equal(t, "exch-1", result.ExchangeOrderID)
	assert.Equal(t, 2, client.attemptsFor("A"), "expected exactly one retry (two attempts) for the same client id")

	select {
	case msg := <-published:
		assert.Equal(t, "A", msg.ClientOrderID)
	case <-time.After(time.Second):
		t.Fatal("expected an order-submitted event on the bus")
	}

	status, ok := eng.GetOrderStatus("A")
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusOpen, status)
}

func TestSubmitOrderRejectsDuplicateClientID(t *testing.T) {
	client := newFlakyClient(0)
	eng := New(client, RiskLimits{}, DefaultRetryConfig, nil, zerolog.Nop())

	order := domain.Order{ClientOrderID: "dup", Symbol: "BTC/USD", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: decimal.FromInt(1)}
	_, err := eng.SubmitOrder(context.Background(), order)
	require.NoError(t, err)

	_, err = eng.SubmitOrder(context.Background(), order)
	require.Error(t, err)
	assert.True(t, xerrors.OfKind(err, xerrors.Conflict))
}

func TestSubmitOrderRejectedByRiskGateNeverReachesAdapter(t *testing.T) {
	client := newFlakyClient(0)
	limits := RiskLimits{MaxNotionalPerOrder: decimal.FromInt(100)}
	eng := New(client, limits, DefaultRetryConfig, nil, zerolog.Nop())

	order := domain.Order{
		ClientOrderID: "over-limit",
		Symbol:        "BTC/USD",
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeLimit,
		Price:         decimal.FromInt(1000),
		Quantity:      decimal.FromInt(10),
	}
	_, err := eng.SubmitOrder(context.Background(), order)
	require.Error(t, err)
	assert.True(t, xerrors.OfKind(err, xerrors.RiskRejected))
	assert.Equal(t, 0, client.attemptsFor("over-limit"))
}

func TestCancelOrderIsNoOpOnTerminalOrder(t *testing.T) {
	client := newFlakyClient(0)
	eng := New(client, RiskLimits{}, DefaultRetryConfig, nil, zerolog.Nop())

	order := domain.Order{ClientOrderID: "term", Symbol: "BTC/USD", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: decimal.FromInt(1)}
	_, err := eng.SubmitOrder(context.Background(), order)
	require.NoError(t, err)
	require.NoError(t, eng.ApplyFill("term", decimal.FromInt(1), decimal.FromInt(100), decimal.Zero))

	require.NoError(t, eng.CancelOrder(context.Background(), "term"))
	status, _ := eng.GetOrderStatus("term")
	assert.Equal(t, domain.OrderStatusFilled, status)
}

func TestApplyFillUpdatesAverageFillPriceAndPosition(t *testing.T) {
	client := newFlakyClient(0)
	eng := New(client, RiskLimits{}, DefaultRetryConfig, nil, zerolog.Nop())

	order := domain.Order{ClientOrderID: "partial", Symbol: "BTC/USD", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: decimal.FromInt(2)}
	_, err := eng.SubmitOrder(context.Background(), order)
	require.NoError(t, err)

	require.NoError(t, eng.ApplyFill("partial", decimal.FromInt(1), decimal.FromInt(100), decimal.Zero))
	status, _ := eng.GetOrderStatus("partial")
	assert.Equal(t, domain.OrderStatusOpen, status)

	require.NoError(t, eng.ApplyFill("partial", decimal.FromInt(1), decimal.FromInt(110), decimal.Zero))
	status, _ = eng.GetOrderStatus("partial")
	assert.Equal(t, domain.OrderStatusFilled, status)

	filled, ok := eng.tracker.ByClientID("partial")
	require.True(t, ok)
	assert.Equal(t, "105", filled.AverageFillPrice.String())
	assert.Equal(t, "2", eng.positions["BTC/USD"].String())
}
