package backtest

import (
	"context"
	"math"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/execution"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/strategy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// annualizationFactor matches the teacher's daily-bar convention; callers
// replaying intraday bars get a Sharpe ratio scaled for a daily series, which
// is the same approximation the formulas package it's grounded on makes.
const annualizationFactor = 252

// pendingOrder is a signal the strategy emitted this bar, acknowledged by the
// Execution Engine (so risk gates already ran) but not yet filled: it fills
// at the NEXT candle's open (or close, per Config.FillAtClose), exactly as
// the reference engine this is grounded on queues orders for the following
// bar rather than filling on the signal's own bar.
type pendingOrder struct {
	clientOrderID string
	side          domain.Side
	quantity      decimal.Decimal
}

// replaySink is the strategy.SignalSink the Host forwards signals to during
// replay. It sizes the order from available cash and the signal's strength,
// submits it through the Execution Engine (so the same risk gates and order
// status machine apply as in live trading), and queues it as a pendingOrder
// for the engine's replay loop to fill on the next bar.
type replaySink struct {
	exec     *execution.Engine
	symbol   string
	cash     func() decimal.Decimal
	position func() domain.Position
	pending  *pendingOrder
}

func (s *replaySink) Submit(signal domain.Signal) error {
	if s.pending != nil {
		// One outstanding order at a time; a strategy that signals again
		// before the previous order fills is asking for something the
		// single-position model here doesn't support.
		return nil
	}

	side := domain.SideBuy
	if signal.Type == domain.SignalEntryShort || signal.Type == domain.SignalExitLong {
		side = domain.SideSell
	}

	qty := s.orderQuantity(signal, side)
	if !qty.IsPositive() {
		return nil
	}

	order := domain.Order{
		ClientOrderID: uuid.New().String(),
		Symbol:        s.symbol,
		Side:          side,
		Type:          domain.OrderTypeMarket,
		TIF:           domain.TIFImmediateOrCancel,
		Price:         signal.Price,
		Quantity:      qty,
	}
	submitted, err := s.exec.SubmitOrder(context.Background(), order)
	if err != nil {
		// Risk-rejected signals are dropped, same as a live strategy whose
		// order never reaches the exchange.
		return nil
	}
	s.pending = &pendingOrder{clientOrderID: submitted.ClientOrderID, side: side, quantity: qty}
	return nil
}

// orderQuantity sizes an exit as "close the entire position" and an entry as
// a fraction of available cash proportional to the signal's strength.
func (s *replaySink) orderQuantity(signal domain.Signal, side domain.Side) decimal.Decimal {
	switch signal.Type {
	case domain.SignalExitLong, domain.SignalExitShort:
		return s.position().Size.Abs()
	default:
		strength := signal.Strength
		if strength <= 0 {
			strength = 1
		}
		if signal.Price.IsZero() {
			return decimal.Zero
		}
		notional := s.cash().Mul(decimal.FromFloat(strength))
		qty, err := notional.Div(signal.Price)
		if err != nil {
			return decimal.Zero
		}
		return qty
	}
}

// Engine is the Backtest Engine: a deterministic, single-symbol replay of
// one strategy against a historical candle sequence.
type Engine struct {
	log zerolog.Logger
}

// NewEngine constructs a Backtest Engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "backtest_engine").Logger()}
}

// Run replays candles through strat under cfg, returning the trade ledger,
// equity curve, and summary metrics. Candles must already be in ascending
// timestamp order; Run does not sort them, so the same input always produces
// the same output.
//
// progress, if non-nil, is invoked after every candle with (processed,
// total); it is how the Backtest Runner exposes an observable 0..1 fraction.
// ctx is checked once per candle: a cancelled context aborts the replay at
// the next bar boundary and returns ctx.Err(), the cooperative cancellation
// point the Backtest Runner's cancel relies on.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, scfg domain.StrategyConfig, candles []domain.Candle, limits execution.RiskLimits, cfg Config, progress func(done, total int)) (Result, error) {
	if cfg.Slippage == nil {
		cfg.Slippage = NoSlippage{}
	}

	sim := newSimulator()
	exec := execution.New(sim, limits, execution.DefaultRetryConfig, nil, e.log)

	state := &replayState{
		cash:   cfg.InitialCapital,
		symbol: scfg.Pair.String(),
	}
	sink := &replaySink{
		exec:     exec,
		symbol:   state.symbol,
		cash:     func() decimal.Decimal { return state.cash },
		position: func() domain.Position { return state.pos },
	}

	cache, err := indicator.NewCache(256)
	if err != nil {
		return Result{}, err
	}
	host := strategy.NewHost(strat, scfg, cache, sink, nil, e.log)
	if err := host.Init(); err != nil {
		return Result{}, err
	}
	defer host.Deinit()

	total := len(candles)
	for i, candle := range candles {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		if sink.pending != nil {
			state.fill(exec, host, cfg, sink.pending, candle)
			sink.pending = nil
		}

		if err := host.OnCandle(candle); err != nil {
			return Result{}, err
		}

		mark := candle.Close
		state.pos.MarkPrice = &mark
		state.pos.Recalculate()
		state.equity = append(state.equity, EquitySnapshot{
			Timestamp: candle.Timestamp,
			Equity:    state.cash.Add(state.pos.Size.Mul(mark)),
		})

		if progress != nil {
			progress(i+1, total)
		}
	}

	return Result{
		Trades:  state.trades,
		Equity:  state.equity,
		Metrics: computeMetrics(cfg.InitialCapital, state.trades, state.equity),
	}, nil
}

// replayState holds the single-symbol account view the replay loop mutates
// bar by bar: cash, the open position, the trade ledger, and the equity
// curve.
type replayState struct {
	symbol string
	cash   decimal.Decimal
	pos    domain.Position
	trades []Trade
	equity []EquitySnapshot
}

// fill executes a pendingOrder queued on the previous bar at the current
// bar's open (or close, per Config.FillAtClose), adjusted by the configured
// slippage model, charging commission on the filled notional. It reconciles
// the fill through both the Execution Engine (so order status/tracker stay
// authoritative) and the strategy Host (so position-manager and strategy
// callbacks see it), then records the resulting Trade.
func (s *replayState) fill(exec *execution.Engine, host *strategy.Host, cfg Config, pending *pendingOrder, candle domain.Candle) {
	fillPrice := candle.Open
	if cfg.FillAtClose {
		fillPrice = candle.Close
	}
	fillPrice = cfg.Slippage.Apply(fillPrice, pending.side)

	notional := fillPrice.Mul(pending.quantity)
	commission := notional.Mul(cfg.CommissionRate)

	signedQty := pending.quantity
	if pending.side == domain.SideSell {
		signedQty = signedQty.Neg()
	}

	prevRealised := s.pos.RealisedPnL
	s.pos.ApplyFill(signedQty, fillPrice)
	tradeRealised := s.pos.RealisedPnL.Sub(prevRealised)

	if pending.side == domain.SideBuy {
		s.cash = s.cash.Sub(notional).Sub(commission)
	} else {
		s.cash = s.cash.Add(notional).Sub(commission)
	}

	_ = exec.ApplyFill(pending.clientOrderID, pending.quantity, fillPrice, commission)
	host.OnFill(strategy.FillEvent{
		ClientOrderID: pending.clientOrderID,
		Symbol:        s.symbol,
		FillQuantity:  signedQty,
		FillPrice:     fillPrice,
	})

	s.trades = append(s.trades, Trade{
		Symbol:        s.symbol,
		Side:          pending.side,
		Quantity:      pending.quantity,
		Price:         fillPrice,
		Commission:    commission,
		RealisedPnL:   tradeRealised,
		Timestamp:     candle.Timestamp,
		ClientOrderID: pending.clientOrderID,
	})
}

// computeMetrics summarizes a completed run. The Sharpe ratio uses gonum's
// stat package against the per-snapshot equity return series; max drawdown
// is tracked by hand as the largest peak-to-trough fall of that series.
func computeMetrics(initial decimal.Decimal, trades []Trade, equity []EquitySnapshot) Metrics {
	m := Metrics{NumberOfTrades: len(trades)}
	if len(equity) == 0 {
		return m
	}

	final := equity[len(equity)-1].Equity
	if !initial.IsZero() {
		ret, err := final.Sub(initial).Div(initial)
		if err == nil {
			m.TotalReturn = ret
		}
	}

	returns := make([]float64, 0, len(equity))
	prev := initial.Float64()
	peak := prev
	maxDrawdown := 0.0
	for _, snap := range equity {
		cur := snap.Equity.Float64()
		if prev != 0 {
			returns = append(returns, (cur-prev)/prev)
		}
		if cur > peak {
			peak = cur
		}
		if peak > 0 {
			if dd := (peak - cur) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
		prev = cur
	}
	m.MaxDrawdown = decimal.FromFloat(maxDrawdown)

	if len(returns) > 1 {
		mean := stat.Mean(returns, nil)
		std := stat.StdDev(returns, nil)
		if std > 0 {
			m.SharpeRatio = (mean / std) * math.Sqrt(annualizationFactor)
		}
	}

	var grossProfit, grossLoss float64
	var wins, closed int
	for _, t := range trades {
		if t.RealisedPnL.IsZero() {
			continue
		}
		closed++
		f := t.RealisedPnL.Float64()
		if f > 0 {
			grossProfit += f
			wins++
		} else {
			grossLoss += -f
		}
	}
	if closed > 0 {
		m.WinRate = float64(wins) / float64(closed)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		m.ProfitFactor = math.Inf(1)
	}

	return m
}
