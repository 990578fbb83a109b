// Package adapter defines the exchange adapter boundary: the two interfaces
// (IDataProvider, IExecutionClient) through which the Data Engine and
// Execution Engine reach an exchange, plus a reusable WebSocket harness and
// in-memory mocks that implement those interfaces for tests and backtests.
//
// The core never imports a concrete exchange's wire format; a Hyperliquid (or
// any other) implementation lives outside this package and satisfies these
// interfaces.
package adapter

import (
	"context"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
)

// SubscriptionKind selects what a Subscription delivers.
type SubscriptionKind string

const (
	SubscribeQuote     SubscriptionKind = "quote"
	SubscribeOrderbook SubscriptionKind = "orderbook"
	SubscribeTrade     SubscriptionKind = "trade"
	SubscribeCandle    SubscriptionKind = "candle"
	SubscribeAll       SubscriptionKind = "all"
)

// Subscription names one (symbol, kind) the caller wants delivered.
type Subscription struct {
	Symbol string
	Kind   SubscriptionKind
}

// DataMessageKind tags the variant carried by a DataMessage.
type DataMessageKind string

const (
	MsgConnected    DataMessageKind = "connected"
	MsgDisconnected DataMessageKind = "disconnected"
	MsgQuote        DataMessageKind = "quote"
	MsgOrderbook    DataMessageKind = "orderbook"
	MsgTrade        DataMessageKind = "trade"
	MsgCandle       DataMessageKind = "candle"
	MsgError        DataMessageKind = "error"
)

// Trade is one executed trade print.
type Trade struct {
	Symbol    string
	Price     decimal.Decimal
	Size      decimal.Decimal
	Side      domain.Side
	Timestamp domain.Timestamp
}

// DataMessage is the tagged union a provider emits from Poll. Exactly the
// field matching Kind is populated.
type DataMessage struct {
	Kind   DataMessageKind
	Symbol string

	Orderbook domain.Orderbook
	Trade     Trade
	Candle    domain.Candle
	Err       error
}

// IDataProvider is the market-data half of the exchange adapter boundary.
// Implementations own their own connection and subscription bookkeeping;
// Poll must not block longer than ctx allows and returns ok=false when no
// message is currently available (not an error — callers poll in a loop).
type IDataProvider interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Subscribe(sub Subscription) error
	Unsubscribe(symbol string) error
	Poll(ctx context.Context) (msg DataMessage, ok bool, err error)
}

// OrderRequest is what a caller submits to IExecutionClient.SubmitOrder.
type OrderRequest struct {
	ClientOrderID string
	Symbol        string
	Side          domain.Side
	Type          domain.OrderType
	TIF           domain.TimeInForce
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	TriggerPrice  decimal.Decimal
	ReduceOnly    bool
	PositionSide  domain.PositionSide
}

// OrderResult is the adapter's acknowledgement of a submitted order.
type OrderResult struct {
	ClientOrderID   string
	ExchangeOrderID string
	Status          domain.OrderStatus
	AverageFillPrice decimal.Decimal
	FilledQuantity   decimal.Decimal
	Err              error
}

// PositionInfo is the exchange's view of a symbol's position.
type PositionInfo struct {
	Symbol           string
	Size             decimal.Decimal
	EntryPrice       decimal.Decimal
	MarkPrice        decimal.Decimal
	LiquidationPrice decimal.Decimal
	Leverage         domain.Leverage
}

// BalanceInfo is the exchange's account-wide balance snapshot.
type BalanceInfo struct {
	Account domain.Account
}

// IExecutionClient is the order-management half of the exchange adapter
// boundary. Implementations are responsible for authentication, serialising
// orders to the exchange's wire format, maintaining symbol <-> asset-index
// bijections, and surfacing rate-limit failures as such (via xerrors).
type IExecutionClient interface {
	Name() string
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, clientOrderID string) error
	GetOrderStatus(ctx context.Context, clientOrderID string) (domain.OrderStatus, bool, error)
	GetPosition(ctx context.Context, symbol string) (PositionInfo, bool, error)
	GetBalance(ctx context.Context) (BalanceInfo, error)
}
