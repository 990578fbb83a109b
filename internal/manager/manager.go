// Package manager implements the Engine Manager: the single process-wide
// supervisor owning two registries (strategy runners, backtest runners)
// behind one coarse mutex, grounded on the teacher's internal/di.Container
// single-construction-point registry style and internal/queue.Manager's
// job-type registry. Registry operations are infrequent relative to data
// traffic, so one lock for both registries is deliberate, not an
// oversight.
package manager

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/backtest"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/execution"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/runner"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
	"github.com/robfig/cron/v3"
	gopsprocess "github.com/shirou/gopsutil/v3/process"
	"github.com/rs/zerolog"
)

// strategyEntry bundles a StrategyRunner with the execution.Engine
// submitting its orders, since the kill switch needs to reach into that
// engine to cancel working orders and flatten positions. exec is nil for
// runners wired to a sink that is not an execution.Engine (e.g. a test
// double), in which case the kill switch can still stop the runner but has
// nothing to cancel or flatten.
type strategyEntry struct {
	runner *runner.StrategyRunner
	exec   *execution.Engine
}

type backtestEntry struct {
	runner *runner.BacktestRunner
}

// KillSwitchResult reports what activate_kill_switch actually did.
type KillSwitchResult struct {
	StrategiesStopped int `json:"strategies_stopped"`
	OrdersCancelled   int `json:"orders_cancelled"`
	PositionsClosed   int `json:"positions_closed"`
}

// HealthReport is the snapshot returned by GetSystemHealth.
type HealthReport struct {
	StrategiesRunning int
	StrategiesPaused  int
	StrategiesStopped int
	BacktestsRunning  int
	BacktestsQueued   int
	KillSwitchActive  bool
	KillSwitchReason  string
	Goroutines        int
	ProcessRSSBytes   uint64
}

// Manager is the process-wide registry of strategy and backtest runners.
type Manager struct {
	log zerolog.Logger
	bus *bus.Bus

	mu         sync.Mutex
	strategies map[string]*strategyEntry
	backtests  map[string]*backtestEntry

	killSwitchActive bool
	killSwitchReason string

	healthCron      *cron.Cron
	maintenanceCron *cron.Cron

	exporter *backtest.S3Exporter
}

// SetS3Exporter wires an optional uploader that runs after every completed
// backtest; nil (the default) disables export. Grounded on the teacher's
// R2BackupService, invoked after a backup archive is produced rather than
// synchronously blocking the operation it follows.
func (m *Manager) SetS3Exporter(e *backtest.S3Exporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exporter = e
}

// New constructs an empty Manager.
func New(b *bus.Bus, log zerolog.Logger) *Manager {
	return &Manager{
		log:        log.With().Str("component", "engine_manager").Logger(),
		bus:        b,
		strategies: make(map[string]*strategyEntry),
		backtests:  make(map[string]*backtestEntry),
	}
}

// StartHealthTicker schedules a periodic GetSystemHealth snapshot, published
// on the Message Bus under TopicRunner, per cronSpec (six-field, seconds
// first — cron.WithSeconds(), matching the teacher's scheduler package). It
// is a no-op to call this more than once; the first call wins.
func (m *Manager) StartHealthTicker(cronSpec string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.healthCron != nil {
		return nil
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cronSpec, func() {
		health := m.GetSystemHealth()
		if m.bus != nil {
			m.bus.Emit(bus.TopicRunner, "engine_manager", map[string]any{"health_snapshot": health})
		}
	}); err != nil {
		return err
	}
	c.Start()
	m.healthCron = c
	return nil
}

// StopHealthTicker stops the periodic health snapshot, if one is running.
func (m *Manager) StopHealthTicker() {
	m.mu.Lock()
	c := m.healthCron
	m.healthCron = nil
	m.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// StartMaintenanceTicker schedules a periodic sweep, grounded on the
// teacher's ticker-driven scheduler package: each tick prunes cache of
// entries older than maxAge and emits a "tick" message on TopicRunner so
// other components (e.g. a supervisor dashboard) can observe liveness
// without polling. A nil cache skips pruning but still emits the tick. It is
// a no-op to call this more than once; the first call wins.
func (m *Manager) StartMaintenanceTicker(cronSpec string, cache *indicator.Cache, maxAge time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maintenanceCron != nil {
		return nil
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cronSpec, func() {
		pruned := 0
		if cache != nil {
			pruned = cache.PruneStale(maxAge)
		}
		if m.bus != nil {
			m.bus.Emit(bus.TopicRunner, "engine_manager", map[string]any{"tick": true, "cache_entries_pruned": pruned})
		}
	}); err != nil {
		return err
	}
	c.Start()
	m.maintenanceCron = c
	return nil
}

// StopMaintenanceTicker stops the periodic maintenance sweep, if running.
func (m *Manager) StopMaintenanceTicker() {
	m.mu.Lock()
	c := m.maintenanceCron
	m.maintenanceCron = nil
	m.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// StartStrategy registers and starts a caller-constructed StrategyRunner
// under id. The Manager does not build Strategy/Host graphs itself; the
// composition root constructs the runner (strategy, config, cache, sink,
// candle feed) and hands it here to be supervised. exec, if non-nil, is the
// execution.Engine backing the runner's signal sink and is what the kill
// switch acts on for this strategy.
func (m *Manager) StartStrategy(id string, r *runner.StrategyRunner, exec *execution.Engine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.killSwitchActive {
		return xerrors.PreconditionErr("KillSwitchActive")
	}
	if _, exists := m.strategies[id]; exists {
		return xerrors.ConflictErr("strategy already registered: " + id)
	}
	if err := r.Start(); err != nil {
		return err
	}
	m.strategies[id] = &strategyEntry{runner: r, exec: exec}
	return nil
}

func (m *Manager) lookupStrategy(id string) (*strategyEntry, error) {
	entry, ok := m.strategies[id]
	if !ok {
		return nil, xerrors.InvalidArgumentErr("unknown strategy id: " + id)
	}
	return entry, nil
}

// StopStrategy stops the strategy runner but keeps it registered so its
// final status and stats remain queryable.
func (m *Manager) StopStrategy(id string, deadline time.Duration) error {
	m.mu.Lock()
	entry, err := m.lookupStrategy(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return entry.runner.Stop(deadline)
}

// PauseStrategy pauses a running strategy.
func (m *Manager) PauseStrategy(id string, deadline time.Duration) error {
	m.mu.Lock()
	entry, err := m.lookupStrategy(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return entry.runner.Pause(deadline)
}

// ResumeStrategy resumes a paused strategy.
func (m *Manager) ResumeStrategy(id string, deadline time.Duration) error {
	m.mu.Lock()
	entry, err := m.lookupStrategy(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return entry.runner.Resume(deadline)
}

// UpdateStrategyParams applies new params; only legal while paused.
func (m *Manager) UpdateStrategyParams(id string, params map[string]any, deadline time.Duration) error {
	m.mu.Lock()
	entry, err := m.lookupStrategy(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return entry.runner.UpdateParams(params, deadline)
}

// GetStrategyStatus returns the runner's current lifecycle state.
func (m *Manager) GetStrategyStatus(id string) (runner.Status, error) {
	m.mu.Lock()
	entry, err := m.lookupStrategy(id)
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	return entry.runner.GetStatus(), nil
}

// GetStrategyStats returns the runner's point-in-time stats snapshot.
func (m *Manager) GetStrategyStats(id string) (runner.Stats, error) {
	m.mu.Lock()
	entry, err := m.lookupStrategy(id)
	m.mu.Unlock()
	if err != nil {
		return runner.Stats{}, err
	}
	return entry.runner.Stats(), nil
}

// GetStrategySignalHistory returns up to limit recent signals for id.
func (m *Manager) GetStrategySignalHistory(id string, limit int) ([]runner.SignalRecord, error) {
	m.mu.Lock()
	entry, err := m.lookupStrategy(id)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return entry.runner.SignalHistory(limit), nil
}

// ListStrategies returns every registered strategy id.
func (m *Manager) ListStrategies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.strategies))
	for id := range m.strategies {
		ids = append(ids, id)
	}
	return ids
}

// StartBacktest registers a caller-constructed BacktestRunner under id and
// runs it on a new goroutine.
func (m *Manager) StartBacktest(id string, r *runner.BacktestRunner, run func()) error {
	m.mu.Lock()
	if _, exists := m.backtests[id]; exists {
		m.mu.Unlock()
		return xerrors.ConflictErr("backtest already registered: " + id)
	}
	m.backtests[id] = &backtestEntry{runner: r}
	m.mu.Unlock()

	go func() {
		run()
		m.exportIfConfigured(id, r)
	}()
	return nil
}

// exportIfConfigured uploads a just-completed backtest's result if an
// exporter is wired and the run actually produced a result (it would not,
// e.g., if cancelled before completion).
func (m *Manager) exportIfConfigured(id string, r *runner.BacktestRunner) {
	m.mu.Lock()
	exporter := m.exporter
	m.mu.Unlock()
	if exporter == nil {
		return
	}
	result, ok := r.Result()
	if !ok {
		return
	}
	if err := exporter.Upload(context.Background(), id, result); err != nil {
		m.log.Warn().Err(err).Str("backtest_id", id).Msg("failed to export backtest result to s3")
	}
}

func (m *Manager) lookupBacktest(id string) (*backtestEntry, error) {
	entry, ok := m.backtests[id]
	if !ok {
		return nil, xerrors.InvalidArgumentErr("unknown backtest id: " + id)
	}
	return entry, nil
}

// CancelBacktest cooperatively cancels a running backtest; idempotent.
func (m *Manager) CancelBacktest(id string) error {
	m.mu.Lock()
	entry, err := m.lookupBacktest(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	entry.runner.Cancel()
	return nil
}

// RemoveBacktest drops a terminal backtest from the registry. Returns an
// error if the backtest is still running or queued.
func (m *Manager) RemoveBacktest(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, err := m.lookupBacktest(id)
	if err != nil {
		return err
	}
	switch entry.runner.GetStatus() {
	case runner.BacktestCompleted, runner.BacktestFailed, runner.BacktestCancelled:
		delete(m.backtests, id)
		return nil
	default:
		return xerrors.PreconditionErr("cannot remove backtest " + id + " while it is still running")
	}
}

// GetBacktestStatus returns the runner's current lifecycle state.
func (m *Manager) GetBacktestStatus(id string) (runner.BacktestStatus, error) {
	m.mu.Lock()
	entry, err := m.lookupBacktest(id)
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	return entry.runner.GetStatus(), nil
}

// GetBacktestProgress returns the fraction of candles processed so far.
func (m *Manager) GetBacktestProgress(id string) (float64, error) {
	m.mu.Lock()
	entry, err := m.lookupBacktest(id)
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return entry.runner.Progress(), nil
}

// GetBacktestResult returns the completed result, ok=false if not yet done.
func (m *Manager) GetBacktestResult(id string) (backtest.Result, bool, error) {
	m.mu.Lock()
	entry, err := m.lookupBacktest(id)
	m.mu.Unlock()
	if err != nil {
		return backtest.Result{}, false, err
	}
	result, ok := entry.runner.Result()
	return result, ok, nil
}

// ListBacktests returns every registered backtest id.
func (m *Manager) ListBacktests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.backtests))
	for id := range m.backtests {
		ids = append(ids, id)
	}
	return ids
}

// ActivateKillSwitch stops every running or paused strategy, then —
// depending on cancelOrders/closePositions — cancels every working order and
// flattens every open position across the registered strategies' execution
// engines. While active, StartStrategy rejects with KillSwitchActive.
func (m *Manager) ActivateKillSwitch(ctx context.Context, reason string, cancelOrders, closePositions bool) KillSwitchResult {
	m.mu.Lock()
	m.killSwitchActive = true
	m.killSwitchReason = reason
	entries := make([]*strategyEntry, 0, len(m.strategies))
	for _, e := range m.strategies {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	var result KillSwitchResult
	seenExec := make(map[*execution.Engine]bool)
	for _, entry := range entries {
		status := entry.runner.GetStatus()
		if status == runner.StatusRunning || status == runner.StatusPaused {
			if err := entry.runner.Stop(runner.DefaultStopDeadline); err != nil {
				m.log.Warn().Err(err).Msg("kill switch: strategy did not stop within deadline")
			}
			result.StrategiesStopped++
		}
		if entry.exec == nil || seenExec[entry.exec] {
			continue
		}
		seenExec[entry.exec] = true

		if cancelOrders {
			for _, order := range entry.exec.OpenOrders() {
				if err := entry.exec.CancelOrder(ctx, order.ClientOrderID); err != nil {
					m.log.Warn().Err(err).Str("client_order_id", order.ClientOrderID).Msg("kill switch: cancel failed")
					continue
				}
				result.OrdersCancelled++
			}
		}
		if closePositions {
			for _, symbol := range entry.exec.TrackedSymbols() {
				if err := entry.exec.Flatten(ctx, symbol); err != nil {
					m.log.Warn().Err(err).Str("symbol", symbol).Msg("kill switch: flatten failed")
					continue
				}
				result.PositionsClosed++
			}
		}
	}

	if m.bus != nil {
		m.bus.Emit(bus.TopicRunner, "engine_manager", map[string]any{
			"kill_switch": "activated",
			"reason":      reason,
		})
	}
	return result
}

// DeactivateKillSwitch clears the active flag. It does not restart any
// stopped strategy; start_strategy must be called again explicitly.
func (m *Manager) DeactivateKillSwitch() {
	m.mu.Lock()
	m.killSwitchActive = false
	m.killSwitchReason = ""
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Emit(bus.TopicRunner, "engine_manager", map[string]any{"kill_switch": "deactivated"})
	}
}

// IsKillSwitchActive reports the current kill-switch state and reason.
func (m *Manager) IsKillSwitchActive() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.killSwitchActive, m.killSwitchReason
}

// GetSystemHealth reports registry counts, kill-switch state, and process
// vitals (goroutine count, RSS) via gopsutil.
func (m *Manager) GetSystemHealth() HealthReport {
	m.mu.Lock()
	report := HealthReport{
		KillSwitchActive: m.killSwitchActive,
		KillSwitchReason: m.killSwitchReason,
	}
	for _, entry := range m.strategies {
		switch entry.runner.GetStatus() {
		case runner.StatusRunning:
			report.StrategiesRunning++
		case runner.StatusPaused:
			report.StrategiesPaused++
		case runner.StatusStopped, runner.StatusFailed:
			report.StrategiesStopped++
		}
	}
	for _, entry := range m.backtests {
		switch entry.runner.GetStatus() {
		case runner.BacktestRunning:
			report.BacktestsRunning++
		case runner.BacktestQueued:
			report.BacktestsQueued++
		}
	}
	m.mu.Unlock()

	report.Goroutines = runtime.NumGoroutine()
	if proc, err := gopsprocess.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			report.ProcessRSSBytes = memInfo.RSS
		}
	}
	return report
}
