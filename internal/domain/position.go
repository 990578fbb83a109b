package domain

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// LeverageMode is cross or isolated margin.
type LeverageMode string

const (
	LeverageModeCross    LeverageMode = "cross"
	LeverageModeIsolated LeverageMode = "isolated"
)

// Leverage describes the margining configuration applied to a position.
type Leverage struct {
	Mode       LeverageMode
	Multiplier decimal.Decimal
	Notional   decimal.Decimal
}

// FundingAccrual tracks cumulative funding payments over three windows.
type FundingAccrual struct {
	AllTime    decimal.Decimal
	SinceChange decimal.Decimal
	SinceOpen   decimal.Decimal
}

// Position is the per-symbol signed-size record. Size > 0 is long, < 0 is
// short, 0 is flat.
type Position struct {
	Symbol string
	Size   decimal.Decimal // signed; positive = long, negative = short

	EntryPrice       decimal.Decimal
	MarkPrice        *decimal.Decimal
	LiquidationPrice *decimal.Decimal
	Leverage         Leverage

	UnrealisedPnL decimal.Decimal
	RealisedPnL   decimal.Decimal
	MarginUsed    decimal.Decimal
	PositionValue decimal.Decimal
	ReturnOnEquity decimal.Decimal
	Funding        FundingAccrual

	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// IsFlat reports whether the position has zero size.
func (p *Position) IsFlat() bool { return p.Size.IsZero() }

// SideConsistentWith reports whether the sign of Size matches side: long
// positions must have positive size, short negative, and a flat position is
// consistent with either.
func (p *Position) SideConsistentWith(side PositionSide) bool {
	switch side {
	case PositionSideLong:
		return p.Size.IsPositive() || p.Size.IsZero()
	case PositionSideShort:
		return p.Size.IsNegative() || p.Size.IsZero()
	default:
		return true
	}
}

// Recalculate derives UnrealisedPnL and PositionValue from the current mark
// price, per the invariants:
//
//	unrealised = size * (mark - entry)
//	position_value = |size| * mark
//
// It is a no-op (leaves the previous values untouched) when no mark price is
// set yet.
func (p *Position) Recalculate() {
	if p.MarkPrice == nil {
		return
	}
	mark := *p.MarkPrice
	p.UnrealisedPnL = p.Size.Mul(mark.Sub(p.EntryPrice))
	p.PositionValue = p.Size.Abs().Mul(mark)
}

// ApplyFill updates the position for a fill of fillQty (signed: positive for
// a buy, negative for a sell) at fillPrice, realising P&L on the portion that
// reduces the existing position and updating the weighted-average entry price
// on the portion that extends it. Crossing through zero closes the position
// and resets the entry price, per the position lifecycle invariant.
func (p *Position) ApplyFill(fillQty, fillPrice decimal.Decimal) {
	if fillQty.IsZero() {
		return
	}

	prevSize := p.Size
	sameDirection := prevSize.IsZero() || (prevSize.IsPositive() == fillQty.IsPositive())

	if sameDirection {
		// Extends (or opens) the position: blend into a new weighted-average
		// entry price.
		newSize := prevSize.Add(fillQty)
		if newSize.IsZero() {
			p.Size = newSize
			return
		}
		prevNotional := prevSize.Abs().Mul(p.EntryPrice)
		addNotional := fillQty.Abs().Mul(fillPrice)
		totalAbs := prevSize.Abs().Add(fillQty.Abs())
		if !totalAbs.IsZero() {
			weighted, err := prevNotional.Add(addNotional).Div(totalAbs)
			if err == nil {
				p.EntryPrice = weighted
			}
		}
		p.Size = newSize
		return
	}

	// Reduces, closes, or flips the position.
	closingQty := fillQty.Abs()
	if closingQty.GreaterThan(prevSize.Abs()) {
		closingQty = prevSize.Abs()
	}
	// Realise P&L on the closing portion against the prior entry price.
	if prevSize.IsPositive() {
		p.RealisedPnL = p.RealisedPnL.Add(closingQty.Mul(fillPrice.Sub(p.EntryPrice)))
	} else {
		p.RealisedPnL = p.RealisedPnL.Add(closingQty.Mul(p.EntryPrice.Sub(fillPrice)))
	}

	newSize := prevSize.Add(fillQty)
	if newSize.IsZero() {
		p.Size = newSize
		p.EntryPrice = decimal.Zero
		return
	}
	flipped := newSize.IsPositive() != prevSize.IsPositive()
	if flipped {
		// The fill overshot flat and opened a new position in the other
		// direction; the flipped portion gets a fresh entry price.
		p.EntryPrice = fillPrice
	}
	p.Size = newSize
}
