package execution

import (
	"testing"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
	"github.com/stretchr/testify/assert"
)

func TestValidateTradePassesWithinEveryLimit(t *testing.T) {
	limits := RiskLimits{
		MaxNotionalPerOrder:  decimal.FromInt(1000),
		MaxAggregatePosition: decimal.FromInt(5),
		DailyLossFloor:       decimal.FromInt(-100),
		MaxLeverage:          decimal.FromInt(10),
	}

	// Passes every gate.
	ctx := riskContext{
		req:           domain.Order{Quantity: decimal.FromInt(1), Price: decimal.FromInt(100), Side: domain.SideBuy},
		currentPos:    decimal.Zero,
		dailyRealised: decimal.Zero,
		leverage:      decimal.FromInt(1),
	}
	assert.NoError(t, ValidateTrade(limits, ctx))
}

func TestValidateTradeRejectsOverNotional(t *testing.T) {
	limits := RiskLimits{MaxNotionalPerOrder: decimal.FromInt(100)}
	ctx := riskContext{req: domain.Order{Quantity: decimal.FromInt(10), Price: decimal.FromInt(100)}}
	err := ValidateTrade(limits, ctx)
	assert.True(t, xerrors.OfKind(err, xerrors.RiskRejected))
}

func TestValidateTradeRejectsOverAggregatePosition(t *testing.T) {
	limits := RiskLimits{MaxAggregatePosition: decimal.FromInt(5)}
	ctx := riskContext{
		req:        domain.Order{Quantity: decimal.FromInt(3), Side: domain.SideBuy},
		currentPos: decimal.FromInt(4),
	}
	err := ValidateTrade(limits, ctx)
	assert.True(t, xerrors.OfKind(err, xerrors.RiskRejected))
}

func TestValidateTradeRejectsBelowDailyLossFloor(t *testing.T) {
	limits := RiskLimits{DailyLossFloor: decimal.FromInt(-50)}
	ctx := riskContext{req: domain.Order{Quantity: decimal.FromInt(1)}, dailyRealised: decimal.FromInt(-75)}
	err := ValidateTrade(limits, ctx)
	assert.True(t, xerrors.OfKind(err, xerrors.RiskRejected))
}

func TestValidateTradeRejectsOverLeverage(t *testing.T) {
	limits := RiskLimits{MaxLeverage: decimal.FromInt(5)}
	ctx := riskContext{req: domain.Order{Quantity: decimal.FromInt(1)}, leverage: decimal.FromInt(10)}
	err := ValidateTrade(limits, ctx)
	assert.True(t, xerrors.OfKind(err, xerrors.RiskRejected))
}

func TestValidateTradeRejectsOverRateLimit(t *testing.T) {
	limits := RiskLimits{RateLimitPerSecond: 2}
	ctx := riskContext{req: domain.Order{Quantity: decimal.FromInt(1)}, recentOrderCount: 2}
	err := ValidateTrade(limits, ctx)
	assert.True(t, xerrors.OfKind(err, xerrors.RateLimit))
}
