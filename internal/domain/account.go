package domain

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// MarginSummary is the account-wide margin snapshot.
type MarginSummary struct {
	AccountValue          decimal.Decimal
	TotalMarginUsed       decimal.Decimal
	TotalNotionalPosition decimal.Decimal
	TotalRawUSD           decimal.Decimal
}

// Account is the full account-level summary returned by GetBalance.
type Account struct {
	Margin              MarginSummary
	CrossMargin          MarginSummary
	WithdrawableBalance  decimal.Decimal
	CrossMaintenanceUsed decimal.Decimal
	CumulativeRealisedPnL decimal.Decimal
}
