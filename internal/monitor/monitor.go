// Package monitor polls the scheduler for the state of tracked jobs.
package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slurm-watch/internal/logging"
	"slurm-watch/internal/slurm"
)

// Monitor errors.
var (
	ErrAlreadyRunning = errors.New("monitor already running")
	ErrNotRunning     = errors.New("monitor not running")
)

// DefaultInterval is the status poll cadence.
const DefaultInterval = 3 * time.Second

// StatusClient is the scheduler surface the monitor needs.
type StatusClient interface {
	Status(ctx context.Context, id slurm.JobID) (slurm.Status, error)
	Info(ctx context.Context, id slurm.JobID) (slurm.JobInfo, error)
}

// UpdateFunc receives the result of one poll for one job. It is called
// every cycle, even when nothing changed, so consumers can drive
// side effects like tail registration off the stream.
type UpdateFunc func(id slurm.JobID, status slurm.Status, info slurm.JobInfo)

type jobState struct {
	status   slurm.Status
	info     slurm.JobInfo
	infoSeen bool
}

// Monitor runs the status poll loop over a tracked job set.
type Monitor struct {
	client   StatusClient
	interval time.Duration
	fn       UpdateFunc
	logger   zerolog.Logger

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	jobs    map[slurm.JobID]*jobState
}

// New creates a monitor. interval <= 0 uses DefaultInterval.
func New(client StatusClient, interval time.Duration, fn UpdateFunc) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		client:   client,
		interval: interval,
		fn:       fn,
		logger:   logging.Component("monitor"),
		jobs:     make(map[slurm.JobID]*jobState),
	}
}

// Track adds a job to the poll set.
func (m *Monitor) Track(id slurm.JobID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; ok {
		return
	}
	m.jobs[id] = &jobState{status: slurm.StatusUnknown}
	m.logger.Info().Int("job_id", int(id)).Msg("tracking job")
}

// Untrack removes a job from the poll set.
func (m *Monitor) Untrack(id slurm.JobID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// Tracked returns the tracked job ids in ascending order.
func (m *Monitor) Tracked() []slurm.JobID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]slurm.JobID, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Status returns the last polled status of a job.
func (m *Monitor) Status(id slurm.JobID) (slurm.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	js, ok := m.jobs[id]
	if !ok {
		return slurm.StatusUnknown, false
	}
	return js.status, true
}

// Start begins the polling loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true

	m.logger.Info().Dur("interval", m.interval).Msg("status monitor starting")

	m.wg.Add(1)
	go m.runLoop()
	return nil
}

// Stop halts the polling loop.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	m.cancel()
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info().Msg("status monitor stopped")
	return nil
}

// IsRunning returns true if the monitor is running.
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Monitor) runLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// First cycle immediately so the dashboard fills without waiting
	// a full interval.
	m.pollCycle(m.ctx)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.pollCycle(m.ctx)
		}
	}
}

// pollCycle polls every tracked job once. A command failure for one
// job is logged and skipped; the rest of the cycle continues. The
// callback fires unconditionally for each polled job, including jobs
// the scheduler does not know, which surface as UNKNOWN.
func (m *Monitor) pollCycle(ctx context.Context) {
	for _, id := range m.Tracked() {
		status, err := m.client.Status(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if !errors.Is(err, slurm.ErrNoSuchJob) {
				m.logger.Warn().Err(err).Int("job_id", int(id)).Msg("status poll failed")
				continue
			}
			// Submitted but not yet visible to squeue/sacct, or aged
			// out of accounting. The dashboard shows the job as
			// UNKNOWN instead of dropping the row.
			status = slurm.StatusUnknown
		}

		// Terminal jobs keep their last accounting snapshot; live jobs
		// refresh it every cycle so Elapsed stays current.
		info, changed := m.record(id, status)
		if changed || !status.Terminal() || !m.infoSeen(id) {
			fresh, err := m.client.Info(ctx, id)
			if err != nil {
				m.logger.Debug().Err(err).Int("job_id", int(id)).Msg("info fetch failed")
			} else {
				info = fresh
				m.recordInfo(id, fresh)
			}
		}

		if m.fn != nil {
			m.fn(id, status, info)
		}
	}
}

// record stores the polled status and reports whether it changed.
func (m *Monitor) record(id slurm.JobID, status slurm.Status) (slurm.JobInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	js, ok := m.jobs[id]
	if !ok {
		// Untracked mid-cycle.
		return slurm.JobInfo{}, false
	}
	changed := js.status != status
	js.status = status
	return js.info, changed
}

func (m *Monitor) infoSeen(id slurm.JobID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	js, ok := m.jobs[id]
	return ok && js.infoSeen
}

func (m *Monitor) recordInfo(id slurm.JobID, info slurm.JobInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if js, ok := m.jobs[id]; ok {
		js.info = info
		js.infoSeen = true
	}
}
