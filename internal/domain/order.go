package domain

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// Side is the direction of an order or position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType distinguishes how an order rests on or executes against the book.
type OrderType string

const (
	OrderTypeLimit   OrderType = "limit"
	OrderTypeMarket  OrderType = "market"
	OrderTypeTrigger OrderType = "trigger"
)

// TimeInForce is the lifetime policy of a resting order.
type TimeInForce string

const (
	TIFGoodTillCancelled TimeInForce = "GTC"
	TIFImmediateOrCancel TimeInForce = "IOC"
	TIFAddLiquidityOnly  TimeInForce = "ALO"
)

// PositionSide disambiguates which leg an order affects in hedge-mode
// accounts.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
	PositionSideBoth  PositionSide = "both"
)

// OrderStatus is a node in the order lifecycle state machine. Terminal states
// are Filled, Cancelled, Rejected, MarginCancelled.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusSubmitted       OrderStatus = "submitted"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusMarginCancelled OrderStatus = "margin_cancelled"
	OrderStatusTriggered       OrderStatus = "triggered"
)

// Terminal reports whether status is one of the order lifecycle's terminal
// states, after which no further transition is legal.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusMarginCancelled:
		return true
	default:
		return false
	}
}

// allowedTransitions encodes the order status machine's permitted edges.
// Illegal transitions must be ignored and logged by callers, never applied.
var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusSubmitted: true},
	OrderStatusSubmitted: {OrderStatusOpen: true, OrderStatusRejected: true, OrderStatusFilled: true, OrderStatusTriggered: true},
	OrderStatusOpen:      {OrderStatusFilled: true, OrderStatusCancelled: true, OrderStatusMarginCancelled: true, OrderStatusTriggered: true},
	OrderStatusTriggered: {OrderStatusOpen: true, OrderStatusFilled: true, OrderStatusCancelled: true, OrderStatusMarginCancelled: true},
}

// CanTransition reports whether moving from s to next is a legal edge in the
// order status machine.
func CanTransition(s, next OrderStatus) bool {
	if s == next {
		return true
	}
	edges, ok := allowedTransitions[s]
	if !ok {
		return false
	}
	return edges[next]
}

// Order is identified by a client-chosen ClientOrderID, unique per client
// session, and optionally an ExchangeOrderID assigned on acknowledgement.
type Order struct {
	ClientOrderID   string
	ExchangeOrderID string

	Symbol       string
	Side         Side
	Type         OrderType
	TIF          TimeInForce
	Price        decimal.Decimal // required for limit orders
	Quantity     decimal.Decimal
	Filled       decimal.Decimal
	Remaining    decimal.Decimal
	TriggerPrice decimal.Decimal
	ReduceOnly   bool
	PositionSide PositionSide

	Status           OrderStatus
	AverageFillPrice decimal.Decimal
	Fees             decimal.Decimal

	CreatedAt   Timestamp
	SubmittedAt Timestamp
	UpdatedAt   Timestamp
	FilledAt    Timestamp
}

// Invariant reports whether Filled + Remaining == Quantity, the order-level
// conservation invariant that must hold at every point in the lifecycle.
func (o *Order) Invariant() bool {
	return o.Filled.Add(o.Remaining).Equal(o.Quantity)
}
