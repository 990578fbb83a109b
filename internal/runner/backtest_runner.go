package runner

import (
	"context"
	"sync"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/backtest"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/execution"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/strategy"
	"github.com/rs/zerolog"
)

// BacktestStatus is a node in the Backtest Runner's lifecycle state machine.
type BacktestStatus string

const (
	BacktestQueued    BacktestStatus = "queued"
	BacktestRunning   BacktestStatus = "running"
	BacktestCompleted BacktestStatus = "completed"
	BacktestFailed    BacktestStatus = "failed"
	BacktestCancelled BacktestStatus = "cancelled"
)

// BacktestRunner wraps one backtest.Engine.Run invocation with observable
// progress/elapsed time and idempotent cooperative cancellation, checked by
// the engine at each candle boundary.
type BacktestRunner struct {
	id      string
	log     zerolog.Logger
	bus     *bus.Bus
	engine  *backtest.Engine

	cancel context.CancelFunc
	ctx    context.Context

	mu        sync.Mutex
	status    BacktestStatus
	startedAt time.Time
	finishedAt time.Time
	processed int
	total     int
	result    backtest.Result
	err       error
}

// NewBacktest constructs a queued BacktestRunner.
func NewBacktest(id string, b *bus.Bus, log zerolog.Logger) *BacktestRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &BacktestRunner{
		id:     id,
		log:    log.With().Str("component", "backtest_runner").Str("runner_id", id).Logger(),
		bus:    b,
		engine: backtest.NewEngine(log),
		ctx:    ctx,
		cancel: cancel,
		status: BacktestQueued,
	}
}

// Run executes the backtest synchronously on the calling goroutine; callers
// that want it to run in the background should invoke Run in a goroutine of
// their own (the Engine Manager does this, keyed by runner id).
func (r *BacktestRunner) Run(strat strategy.Strategy, scfg domain.StrategyConfig, candles []domain.Candle, limits execution.RiskLimits, cfg backtest.Config) {
	r.mu.Lock()
	r.status = BacktestRunning
	r.startedAt = time.Now()
	r.total = len(candles)
	r.mu.Unlock()
	r.emitStatus()

	result, err := r.engine.Run(r.ctx, strat, scfg, candles, limits, cfg, r.onProgress)

	r.mu.Lock()
	r.finishedAt = time.Now()
	switch {
	case err == context.Canceled:
		r.status = BacktestCancelled
	case err != nil:
		r.status = BacktestFailed
		r.err = err
	default:
		r.status = BacktestCompleted
		r.result = result
	}
	r.mu.Unlock()
	r.emitStatus()
}

func (r *BacktestRunner) onProgress(done, total int) {
	r.mu.Lock()
	r.processed = done
	r.total = total
	r.mu.Unlock()
}

func (r *BacktestRunner) emitStatus() {
	if r.bus == nil {
		return
	}
	r.bus.Emit(bus.TopicRunner, "backtest_runner", map[string]any{
		"runner_id": r.id,
		"status":    string(r.GetStatus()),
	})
}

// Cancel is idempotent: cancelling an already-terminal run is a no-op.
func (r *BacktestRunner) Cancel() {
	r.mu.Lock()
	terminal := r.status == BacktestCompleted || r.status == BacktestFailed || r.status == BacktestCancelled
	r.mu.Unlock()
	if terminal {
		return
	}
	r.cancel()
}

// GetStatus returns the current lifecycle state.
func (r *BacktestRunner) GetStatus() BacktestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Progress returns the fraction of candles processed so far, in [0,1].
// Returns 0 before the run starts and 1 once total is known and matched.
func (r *BacktestRunner) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.total == 0 {
		return 0
	}
	return float64(r.processed) / float64(r.total)
}

// Elapsed returns time since Run started; zero duration before it starts.
// Once finished, it reports the final wall-clock duration of the run.
func (r *BacktestRunner) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startedAt.IsZero() {
		return 0
	}
	if !r.finishedAt.IsZero() {
		return r.finishedAt.Sub(r.startedAt)
	}
	return time.Since(r.startedAt)
}

// Result returns the completed result and ok=true once status is Completed.
func (r *BacktestRunner) Result() (backtest.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.status == BacktestCompleted
}

// Err returns the failure reason once status is Failed.
func (r *BacktestRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ID returns the runner's stable identifier.
func (r *BacktestRunner) ID() string { return r.id }
