// Package runner implements the Strategy and Backtest Runners: the
// process-local workers the Engine Manager starts, pauses, stops, and
// cancels. Each runner owns a dedicated goroutine and communicates with its
// caller through a command channel consumed at tick/event boundaries, per
// the specification's runner-communication design note, grounded on the
// teacher's internal/queue.Scheduler: a ticker-driven goroutine, a `stop`
// channel, and a sync.WaitGroup tracking shutdown.
package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/strategy"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
	"github.com/rs/zerolog"
)

// Status is a node in the Strategy Runner's lifecycle state machine.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusStopping  Status = "stopping"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// DefaultStopDeadline bounds how long Stop waits for the tick loop to
// acknowledge before detaching and logging, per the specification's
// cooperative-cancellation design.
const DefaultStopDeadline = 5 * time.Second

type commandKind int

const (
	cmdStop commandKind = iota
	cmdPause
	cmdResume
	cmdUpdateParams
)

type command struct {
	kind   commandKind
	params map[string]any
	done   chan error
}

// Stats is a point-in-time snapshot of a Strategy Runner, read through an
// atomic-by-mutex snapshot rather than shared directly with the tick
// goroutine.
type Stats struct {
	ID        string
	Status    Status
	StartedAt time.Time
	TickCount int
	LastError string
}

// SignalRecord is one entry in a runner's bounded signal history.
type SignalRecord struct {
	Signal domain.Signal
	At     time.Time
}

const signalHistoryCapacity = 256

// recordingSink wraps the real SignalSink so GetSignalHistory can answer
// without the caller needing its own subscription to the Message Bus.
type recordingSink struct {
	mu      sync.Mutex
	inner   strategy.SignalSink
	history []SignalRecord
}

func (s *recordingSink) Submit(signal domain.Signal) error {
	err := s.inner.Submit(signal)

	s.mu.Lock()
	s.history = append(s.history, SignalRecord{Signal: signal, At: time.Now()})
	if len(s.history) > signalHistoryCapacity {
		s.history = s.history[len(s.history)-signalHistoryCapacity:]
	}
	s.mu.Unlock()

	return err
}

func (s *recordingSink) snapshot(limit int) []SignalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]SignalRecord, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

// StrategyRunner owns one long-running strategy instance, consuming candles
// from a caller-supplied channel and forwarding emitted signals to a
// strategy.SignalSink (normally an Execution Engine).
type StrategyRunner struct {
	id     string
	log    zerolog.Logger
	bus    *bus.Bus
	host   *strategy.Host
	sink   *recordingSink
	ticks  <-chan domain.Candle
	strat  strategy.Strategy
	cfg    domain.StrategyConfig

	cmd      chan command
	stopDone chan struct{}

	mu        sync.Mutex
	status    Status
	startedAt time.Time
	tickCount int
	lastErr   error
}

// New constructs a StrategyRunner. ticks is the candle feed this runner
// consumes; the caller owns its lifetime and closing it stops the runner
// with status Stopped.
func New(id string, strat strategy.Strategy, cfg domain.StrategyConfig, cache *indicator.Cache, sink strategy.SignalSink, ticks <-chan domain.Candle, b *bus.Bus, log zerolog.Logger) *StrategyRunner {
	rs := &recordingSink{inner: sink}
	r := &StrategyRunner{
		id:       id,
		log:      log.With().Str("component", "strategy_runner").Str("runner_id", id).Logger(),
		bus:      b,
		sink:     rs,
		ticks:    ticks,
		strat:    strat,
		cfg:      cfg,
		cmd:      make(chan command),
		stopDone: make(chan struct{}),
		status:   StatusQueued,
	}
	r.host = strategy.NewHost(strat, cfg, cache, rs, b, log)
	return r
}

// Start transitions the runner from Queued to Running and launches its
// goroutine. It is not safe to call more than once.
func (r *StrategyRunner) Start() error {
	if err := r.host.Init(); err != nil {
		r.setStatus(StatusFailed, err)
		return err
	}
	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()
	r.setStatus(StatusRunning, nil)
	go r.run()
	return nil
}

func (r *StrategyRunner) run() {
	defer close(r.stopDone)
	defer r.host.Deinit()

	paused := false
	for {
		select {
		case c := <-r.cmd:
			switch c.kind {
			case cmdStop:
				r.setStatus(StatusStopping, nil)
				c.done <- nil
				r.setStatus(StatusStopped, nil)
				return
			case cmdPause:
				paused = true
				r.setStatus(StatusPaused, nil)
				c.done <- nil
			case cmdResume:
				paused = false
				r.setStatus(StatusRunning, nil)
				c.done <- nil
			case cmdUpdateParams:
				if !paused {
					c.done <- xerrors.PreconditionErr("update_params is only safe while the runner is paused")
					continue
				}
				r.cfg.Params = c.params
				r.strat.Deinit()
				if err := r.strat.Init(strategy.Context{Config: r.cfg}); err != nil {
					c.done <- err
					continue
				}
				c.done <- nil
			}

		case candle, ok := <-r.ticks:
			if !ok {
				r.setStatus(StatusStopped, nil)
				return
			}
			if paused {
				continue
			}
			if err := r.host.OnCandle(candle); err != nil {
				r.setStatus(StatusFailed, err)
				return
			}
			r.mu.Lock()
			r.tickCount++
			r.mu.Unlock()
		}
	}
}

func (r *StrategyRunner) setStatus(status Status, err error) {
	r.mu.Lock()
	r.status = status
	if err != nil {
		r.lastErr = err
	}
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Emit(bus.TopicRunner, "strategy_runner", map[string]any{
			"runner_id": r.id,
			"status":    string(status),
		})
	}
}

// sendCommand delivers a command and waits up to deadline for acknowledgement.
// If the runner has already exited (stopDone closed) before accepting the
// command, it returns a "not running" error at once; if the runner exits
// after accepting the command but before replying, it returns nil.
func (r *StrategyRunner) sendCommand(kind commandKind, params map[string]any, deadline time.Duration) error {
	c := command{kind: kind, params: params, done: make(chan error, 1)}
	select {
	case r.cmd <- c:
	case <-r.stopDone:
		return fmt.Errorf("strategy runner %s is not running", r.id)
	case <-time.After(deadline):
		return fmt.Errorf("strategy runner %s did not accept command within %s", r.id, deadline)
	}
	select {
	case err := <-c.done:
		return err
	case <-r.stopDone:
		return nil
	case <-time.After(deadline):
		return fmt.Errorf("strategy runner %s did not acknowledge command within %s", r.id, deadline)
	}
}

// Stop cooperatively signals the tick loop to exit, waiting up to deadline
// (<=0 selects DefaultStopDeadline) before detaching: the goroutine is left
// to exit on its own and the event is logged, per the specification's
// bounded-cooperative-stop design.
func (r *StrategyRunner) Stop(deadline time.Duration) error {
	if deadline <= 0 {
		deadline = DefaultStopDeadline
	}

	r.mu.Lock()
	alreadyTerminal := r.status == StatusStopped || r.status == StatusFailed
	r.mu.Unlock()
	if alreadyTerminal {
		return nil
	}

	if err := r.sendCommand(cmdStop, nil, deadline); err != nil {
		r.log.Warn().Err(err).Msg("stop not acknowledged within deadline, detaching runner goroutine")
		return err
	}
	return nil
}

// Pause transitions Running -> Paused.
func (r *StrategyRunner) Pause(deadline time.Duration) error {
	if deadline <= 0 {
		deadline = DefaultStopDeadline
	}
	return r.sendCommand(cmdPause, nil, deadline)
}

// Resume transitions Paused -> Running.
func (r *StrategyRunner) Resume(deadline time.Duration) error {
	if deadline <= 0 {
		deadline = DefaultStopDeadline
	}
	return r.sendCommand(cmdResume, nil, deadline)
}

// UpdateParams replaces the strategy's parameters and re-initialises it.
// Only legal while the runner is Paused.
func (r *StrategyRunner) UpdateParams(params map[string]any, deadline time.Duration) error {
	if deadline <= 0 {
		deadline = DefaultStopDeadline
	}
	return r.sendCommand(cmdUpdateParams, params, deadline)
}

// Stats returns a point-in-time snapshot.
func (r *StrategyRunner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{ID: r.id, Status: r.status, StartedAt: r.startedAt, TickCount: r.tickCount}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	return s
}

// GetStatus returns the current lifecycle state.
func (r *StrategyRunner) GetStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// SignalHistory returns up to the last limit signals emitted by the
// strategy (0 or negative means all retained history, bounded at
// signalHistoryCapacity).
func (r *StrategyRunner) SignalHistory(limit int) []SignalRecord {
	return r.sink.snapshot(limit)
}

// ID returns the runner's stable identifier.
func (r *StrategyRunner) ID() string { return r.id }
