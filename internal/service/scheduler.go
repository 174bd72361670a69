package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/metrics"
	"tower_monitoring/internal/models"

	"github.com/google/uuid"
)

// WorkerState is the lifecycle position of one tower worker.
type WorkerState int32

const (
	WorkerNotStarted WorkerState = iota
	WorkerRunning
	WorkerStopping
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerNotStarted:
		return "not_started"
	case WorkerRunning:
		return "running"
	case WorkerStopping:
		return "stopping"
	case WorkerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

// WorkerInfo is a snapshot of one registered worker.
type WorkerInfo struct {
	TowerID    string    `json:"id_torre"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	Iterations int64     `json:"iterations"`
	Failures   int64     `json:"failures"`
}

// ReadingSource produces the readings a worker stores each iteration.
type ReadingSource interface {
	Telemetry(towerID string) models.TelemetryReading
	Diagnostic(towerID string) models.DiagnosticReading
}

// AlertSink receives the alert conditions of every iteration.
type AlertSink interface {
	Publish(ctx context.Context, towerID string, alerts []string, t models.TelemetryReading, d models.DiagnosticReading)
}

type SchedulerConfig struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
	StopTimeout  time.Duration
	Thresholds   Thresholds
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:     10 * time.Second,
		ErrorBackoff: 30 * time.Second,
		StopTimeout:  5 * time.Second,
		Thresholds:   DefaultThresholds(),
	}
}

type worker struct {
	tower      models.Tower
	cancel     context.CancelFunc
	done       chan struct{}
	state      atomic.Int32
	startedAt  time.Time
	iterations atomic.Int64
	failures   atomic.Int64
}

// Scheduler runs one worker per active tower. Workers never block each other;
// the registry is the only state they share and only the scheduler touches it.
type Scheduler struct {
	mu       sync.Mutex
	workers  map[string]*worker
	stopping bool // StopAll in progress; StartOne is refused
	running  atomic.Bool

	towers  TowerDirectory
	writer  Writer
	source  ReadingSource
	alerts  AlertSink
	cfg     SchedulerConfig
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewScheduler(towers TowerDirectory, writer Writer, source ReadingSource, alerts AlertSink, cfg SchedulerConfig, m *metrics.Metrics, log *logger.Logger) *Scheduler {
	return &Scheduler{
		workers: make(map[string]*worker),
		towers:  towers,
		writer:  writer,
		source:  source,
		alerts:  alerts,
		cfg:     cfg,
		metrics: m,
		log:     log,
	}
}

// StartAll starts a worker for every active, assigned tower and returns how many were started.
func (s *Scheduler) StartAll(ctx context.Context) (int, error) {
	towers, err := s.towers.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active towers: %w", err)
	}
	started := 0
	for _, t := range towers {
		if s.StartOne(t) {
			started++
		}
	}
	s.log.Infow("scheduler_started", "active_towers", len(towers), "started", started)
	return started, nil
}

// StartOne starts a worker for t. It is a no-op returning false when a worker
// is already registered for t, t is not schedulable or StopAll is running.
func (s *Scheduler) StartOne(t models.Tower) bool {
	if !t.Schedulable() {
		s.log.Warnw("worker_not_schedulable", "tower", t.ID, "estado", t.State)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		s.log.Warnw("worker_start_refused_while_stopping", "tower", t.ID)
		return false
	}
	if _, ok := s.workers[t.ID]; ok {
		s.log.Warnw("worker_already_running", "tower", t.ID)
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		tower:     t,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now().UTC(),
	}
	w.state.Store(int32(WorkerRunning))
	s.workers[t.ID] = w
	s.running.Store(true)
	s.metrics.ActiveWorkers.Set(float64(len(s.workers)))

	go s.run(ctx, w)
	return true
}

// Stop stops the worker of one tower, waiting up to the stop timeout.
// Returns false when no worker was registered.
func (s *Scheduler) Stop(towerID string) bool {
	s.mu.Lock()
	w, ok := s.workers[towerID]
	if ok {
		delete(s.workers, towerID)
		s.metrics.ActiveWorkers.Set(float64(len(s.workers)))
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.stopWorker(w)
	return true
}

// StopAll signals every worker, waits up to the stop timeout for each, then
// empties the registry. Workers that miss the timeout are abandoned. StartOne
// calls made while it runs are refused.
func (s *Scheduler) StopAll() {
	s.running.Store(false)

	s.mu.Lock()
	s.stopping = true
	snapshot := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		snapshot = append(snapshot, w)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range snapshot {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			s.stopWorker(w)
		}(w)
	}
	wg.Wait()

	s.mu.Lock()
	s.workers = make(map[string]*worker)
	s.stopping = false
	s.metrics.ActiveWorkers.Set(0)
	s.mu.Unlock()

	s.log.Infow("scheduler_stopped", "workers", len(snapshot))
}

func (s *Scheduler) stopWorker(w *worker) {
	w.state.CompareAndSwap(int32(WorkerRunning), int32(WorkerStopping))
	w.cancel()

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-w.done:
	case <-timer.C:
		s.log.Warnw("worker_abandoned", "tower", w.tower.ID, "timeout", s.cfg.StopTimeout)
	}
}

// Running reports whether the scheduler accepts work.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Workers lists the registered workers sorted by tower id.
func (s *Scheduler) Workers() []WorkerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WorkerInfo, 0, len(s.workers))
	for id, w := range s.workers {
		out = append(out, WorkerInfo{
			TowerID:    id,
			State:      WorkerState(w.state.Load()).String(),
			StartedAt:  w.startedAt,
			Iterations: w.iterations.Load(),
			Failures:   w.failures.Load(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TowerID < out[j].TowerID })
	return out
}

// run is the worker loop. It checks the running flag at the top of every
// iteration; cancellation also interrupts waits and retry backoff, while the
// writes of the iteration in flight still complete.
func (s *Scheduler) run(ctx context.Context, w *worker) {
	defer close(w.done)
	defer w.state.Store(int32(WorkerStopped))

	id := w.tower.ID
	s.log.Infow("worker_started", "tower", id)

	for s.running.Load() && ctx.Err() == nil {
		wait := s.cfg.Interval
		err := s.iterate(ctx, id)
		w.iterations.Add(1)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.failures.Add(1)
			s.metrics.WorkerIterations.WithLabelValues(metrics.ResultError).Inc()
			s.log.Errorw("worker_iteration_failed", "tower", id, "err", err, "backoff", s.cfg.ErrorBackoff)
			wait = s.cfg.ErrorBackoff
		} else {
			s.metrics.WorkerIterations.WithLabelValues(metrics.ResultOK).Inc()
		}

		if !sleepCtx(ctx, wait) {
			break
		}
	}
	s.log.Infow("worker_stopped", "tower", id, "iterations", w.iterations.Load())
}

// iterate generates, stores and evaluates one reading pair. A panic is turned into an error.
func (s *Scheduler) iterate(ctx context.Context, towerID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration panic: %v", r)
		}
	}()

	t := s.source.Telemetry(towerID)
	d := s.source.Diagnostic(towerID)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	tRes, err := s.writer.Save(ctx, models.KindTelemetry, t.Columns())
	if err != nil {
		return fmt.Errorf("save telemetry: %w", err)
	}
	dRes, err := s.writer.Save(ctx, models.KindDiagnostic, d.Columns())
	if err != nil {
		return fmt.Errorf("save diagnostic: %w", err)
	}
	s.log.Infow("readings_stored",
		"tower", towerID,
		"telemetry_authoritative", tRes[models.TierAuthoritative].Success,
		"diagnostic_authoritative", dRes[models.TierAuthoritative].Success,
		"telemetry_failed_tiers", tRes.FailedTiers(),
		"diagnostic_failed_tiers", dRes.FailedTiers(),
	)

	s.alerts.Publish(context.WithoutCancel(ctx), towerID, EvaluateAlerts(t, d, s.cfg.Thresholds), t, d)
	return nil
}

// sleepCtx waits for d or until ctx is done; it reports whether the full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
