package execution

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
)

// RiskLimits configures the pre-trade gates, each evaluated in a fixed order
// with the first failure aborting submission.
type RiskLimits struct {
	MaxNotionalPerOrder  decimal.Decimal
	MaxAggregatePosition decimal.Decimal // per symbol, signed magnitude bound
	DailyLossFloor       decimal.Decimal // most negative cumulative realised P&L tolerated today
	MaxLeverage          decimal.Decimal
	RateLimitPerSecond   int // 0 disables the gate
}

// riskContext is the state a gate needs to evaluate a candidate order; the
// caller (Engine) assembles it fresh for every submission.
type riskContext struct {
	req            domain.Order
	currentPos     decimal.Decimal // signed, before this order
	dailyRealised  decimal.Decimal
	leverage       decimal.Decimal
	recentOrderCount int
}

// gate is one named, independently testable risk check.
type gate func(limits RiskLimits, ctx riskContext) error

// ValidateTrade runs every configured gate in order, Layer 0 through the
// rate limit, first failure wins. Grounded on the teacher's layered
// ValidateTrade: named methods, fixed order, first failure aborts.
func ValidateTrade(limits RiskLimits, ctx riskContext) error {
	gates := []gate{
		checkMaxNotional,
		checkMaxAggregatePosition,
		checkDailyLossFloor,
		checkMaxLeverage,
		checkRateLimit,
	}
	for _, g := range gates {
		if err := g(limits, ctx); err != nil {
			return err
		}
	}
	return nil
}

func checkMaxNotional(limits RiskLimits, ctx riskContext) error {
	if limits.MaxNotionalPerOrder.IsZero() {
		return nil
	}
	notional := ctx.req.Quantity.Abs().Mul(orderReferencePrice(ctx.req))
	if notional.GreaterThan(limits.MaxNotionalPerOrder) {
		return xerrors.RiskRejectedErr("order notional exceeds max_notional_per_order")
	}
	return nil
}

func checkMaxAggregatePosition(limits RiskLimits, ctx riskContext) error {
	if limits.MaxAggregatePosition.IsZero() {
		return nil
	}
	signedDelta := ctx.req.Quantity
	if ctx.req.Side == domain.SideSell {
		signedDelta = signedDelta.Neg()
	}
	resulting := ctx.currentPos.Add(signedDelta).Abs()
	if resulting.GreaterThan(limits.MaxAggregatePosition) {
		return xerrors.RiskRejectedErr("resulting position exceeds max_aggregate_position")
	}
	return nil
}

func checkDailyLossFloor(limits RiskLimits, ctx riskContext) error {
	if limits.DailyLossFloor.IsZero() {
		return nil
	}
	if ctx.dailyRealised.LessThan(limits.DailyLossFloor) {
		return xerrors.RiskRejectedErr("daily realised loss floor breached")
	}
	return nil
}

func checkMaxLeverage(limits RiskLimits, ctx riskContext) error {
	if limits.MaxLeverage.IsZero() {
		return nil
	}
	if ctx.leverage.GreaterThan(limits.MaxLeverage) {
		return xerrors.RiskRejectedErr("requested leverage exceeds max_leverage")
	}
	return nil
}

func checkRateLimit(limits RiskLimits, ctx riskContext) error {
	if limits.RateLimitPerSecond <= 0 {
		return nil
	}
	if ctx.recentOrderCount >= limits.RateLimitPerSecond {
		return xerrors.RateLimitErr("per-symbol submission rate limit exceeded", nil)
	}
	return nil
}

// orderReferencePrice picks the price a notional check should use: the
// order's own limit price when set, otherwise the trigger price, otherwise
// zero (market orders with no reference price are not notional-capped;
// nothing in the Engine supplies a mark price for them).
func orderReferencePrice(o domain.Order) decimal.Decimal {
	if !o.Price.IsZero() {
		return o.Price
	}
	if !o.TriggerPrice.IsZero() {
		return o.TriggerPrice
	}
	return decimal.Zero
}
