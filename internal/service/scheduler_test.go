package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/metrics"
	"tower_monitoring/internal/models"
)

type stubWriter struct {
	mu    sync.Mutex
	err   error
	block chan struct{}
	saves []models.RecordKind
}

func (w *stubWriter) Save(_ context.Context, kind models.RecordKind, _ map[string]any) (models.FanOutResult, error) {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saves = append(w.saves, kind)
	if w.err != nil {
		return nil, w.err
	}
	return models.FanOutResult{models.TierAuthoritative: {Success: true, Attempts: 1}}, nil
}

func (w *stubWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.saves)
}

// fixedSource returns the same readings for every tower.
type fixedSource struct {
	telemetry  models.TelemetryReading
	diagnostic models.DiagnosticReading
}

func (s fixedSource) Telemetry(towerID string) models.TelemetryReading {
	r := s.telemetry
	r.TowerID = towerID
	r.Timestamp = time.Now().UTC()
	return r
}

func (s fixedSource) Diagnostic(towerID string) models.DiagnosticReading {
	r := s.diagnostic
	r.TowerID = towerID
	r.Timestamp = time.Now().UTC()
	r.LastContact = r.Timestamp
	return r
}

func nominalSource() fixedSource {
	return fixedSource{
		telemetry: models.TelemetryReading{Temperature: 22, Humidity: 50, Pressure: 1010},
		diagnostic: models.DiagnosticReading{
			BatteryLevel:      80,
			TemperatureSensor: models.SensorOK,
			HumiditySensor:    models.SensorOK,
			Overall:           models.StatusNormal,
		},
	}
}

type recordingSink struct {
	mu     sync.Mutex
	alerts map[string][][]string
}

func (s *recordingSink) Publish(_ context.Context, towerID string, alerts []string, _ models.TelemetryReading, _ models.DiagnosticReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alerts == nil {
		s.alerts = make(map[string][][]string)
	}
	s.alerts[towerID] = append(s.alerts[towerID], alerts)
}

func (s *recordingSink) calls(towerID string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.alerts[towerID]...)
}

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:     5 * time.Millisecond,
		ErrorBackoff: time.Hour,
		StopTimeout:  time.Second,
		Thresholds:   DefaultThresholds(),
	}
}

func activeTower(id string) models.Tower {
	return models.Tower{ID: id, Name: "Torre " + id, State: models.TowerActive, AssignedUser: strPtr("u-1")}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestScheduler_StartOne_RejectsDuplicatesAndUnschedulable(t *testing.T) {
	s := NewScheduler(&stubDirectory{}, &stubWriter{}, nominalSource(), &recordingSink{}, testSchedulerConfig(), metrics.New(), logger.Nop())
	defer s.StopAll()

	if !s.StartOne(activeTower("T1")) {
		t.Fatalf("first StartOne should start a worker")
	}
	if s.StartOne(activeTower("T1")) {
		t.Fatalf("second StartOne for the same tower must be a no-op")
	}

	inactive := activeTower("T2")
	inactive.State = models.TowerInactive
	unassigned := activeTower("T3")
	unassigned.AssignedUser = nil
	for _, tw := range []models.Tower{inactive, unassigned} {
		if s.StartOne(tw) {
			t.Fatalf("tower %s is not schedulable", tw.ID)
		}
	}

	workers := s.Workers()
	if len(workers) != 1 || workers[0].TowerID != "T1" || workers[0].State != "running" {
		t.Fatalf("unexpected workers: %+v", workers)
	}
	if !s.Running() {
		t.Fatalf("scheduler should be running")
	}
}

func TestScheduler_StartAll_StopAll(t *testing.T) {
	unassigned := activeTower("T3")
	unassigned.AssignedUser = nil
	dir := &stubDirectory{towers: []models.Tower{activeTower("T1"), activeTower("T2"), unassigned}}
	w := &stubWriter{}
	s := NewScheduler(dir, w, nominalSource(), &recordingSink{}, testSchedulerConfig(), metrics.New(), logger.Nop())

	started, err := s.StartAll(context.Background())
	if err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if started != 2 {
		t.Fatalf("started = %d, want 2", started)
	}
	waitFor(t, time.Second, func() bool { return w.count() >= 4 })

	s.StopAll()
	if n := len(s.Workers()); n != 0 {
		t.Fatalf("registry has %d workers after StopAll", n)
	}
	if s.Running() {
		t.Fatalf("scheduler should not be running after StopAll")
	}

	after := w.count()
	time.Sleep(30 * time.Millisecond)
	if w.count() != after {
		t.Fatalf("writes continued after StopAll: %d -> %d", after, w.count())
	}
}

func TestScheduler_StartAll_DirectoryError(t *testing.T) {
	dir := &stubDirectory{activeErr: errors.New("authoritative down")}
	s := NewScheduler(dir, &stubWriter{}, nominalSource(), &recordingSink{}, testSchedulerConfig(), metrics.New(), logger.Nop())

	if _, err := s.StartAll(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(s.Workers()) != 0 {
		t.Fatalf("no worker may start")
	}
}

func TestScheduler_Stop(t *testing.T) {
	w := &stubWriter{}
	s := NewScheduler(&stubDirectory{}, w, nominalSource(), &recordingSink{}, testSchedulerConfig(), metrics.New(), logger.Nop())
	defer s.StopAll()

	s.StartOne(activeTower("T1"))
	s.StartOne(activeTower("T2"))

	if !s.Stop("T1") {
		t.Fatalf("Stop should report a stopped worker")
	}
	if s.Stop("T1") || s.Stop("unknown") {
		t.Fatalf("Stop of an unregistered tower must return false")
	}
	workers := s.Workers()
	if len(workers) != 1 || workers[0].TowerID != "T2" {
		t.Fatalf("unexpected workers: %+v", workers)
	}
}

func TestScheduler_EndToEnd_NominalReadings(t *testing.T) {
	f := newWriterFixture(false)
	c := &stubCache{}
	alerts := NewAlertPublisher(c, nil, c, f.metrics, logger.Nop())
	s := NewScheduler(&stubDirectory{}, f.writer, nominalSource(), alerts, testSchedulerConfig(), f.metrics, logger.Nop())

	s.StartOne(activeTower("T1"))
	waitFor(t, time.Second, func() bool { return len(f.store.insertedInto("diagnostico_tecnico")) >= 1 })
	s.StopAll()

	tel := f.store.insertedInto("datos_meteorologicos")
	diag := f.store.insertedInto("diagnostico_tecnico")
	if len(tel) == 0 || len(diag) == 0 {
		t.Fatalf("expected telemetry and diagnostic rows, got %d and %d", len(tel), len(diag))
	}
	if tel[0]["id_torre"] != "T1" || diag[0]["id_torre"] != "T1" {
		t.Fatalf("rows not attributed to T1: %v / %v", tel[0]["id_torre"], diag[0]["id_torre"])
	}
	if f.mirror.count() < 2 {
		t.Fatalf("expected mirror rows for both readings, got %d", f.mirror.count())
	}
	if _, err := f.cache.Latest(context.Background(), "T1"); err != nil {
		t.Fatalf("expected cached latest telemetry: %v", err)
	}
	if n := c.publishedCount(); n != 0 {
		t.Fatalf("nominal readings must not publish alerts, got %d", n)
	}
}

func TestScheduler_PublishesAlertConditions(t *testing.T) {
	src := nominalSource()
	src.telemetry.Temperature = 40
	sink := &recordingSink{}
	s := NewScheduler(&stubDirectory{}, &stubWriter{}, src, sink, testSchedulerConfig(), metrics.New(), logger.Nop())

	s.StartOne(activeTower("T1"))
	waitFor(t, time.Second, func() bool { return len(sink.calls("T1")) >= 1 })
	s.StopAll()

	got := sink.calls("T1")[0]
	if len(got) != 1 || got[0] != "Temperatura alta: 40.0°C" {
		t.Fatalf("alerts = %v", got)
	}
}

func TestScheduler_IterationFailureBacksOff(t *testing.T) {
	w := &stubWriter{err: errors.New("missing fields")}
	sink := &recordingSink{}
	s := NewScheduler(&stubDirectory{}, w, nominalSource(), sink, testSchedulerConfig(), metrics.New(), logger.Nop())

	s.StartOne(activeTower("T1"))
	s.StartOne(activeTower("T2"))
	waitFor(t, time.Second, func() bool {
		for _, wi := range s.Workers() {
			if wi.Failures != 1 {
				return false
			}
		}
		return true
	})

	// Both workers now wait out the error backoff; neither retries early.
	time.Sleep(30 * time.Millisecond)
	for _, wi := range s.Workers() {
		if wi.Iterations != 1 || wi.Failures != 1 {
			t.Fatalf("worker %s: iterations=%d failures=%d, want 1/1", wi.TowerID, wi.Iterations, wi.Failures)
		}
	}
	if len(sink.calls("T1")) != 0 {
		t.Fatalf("failed iterations must not evaluate alerts")
	}

	start := time.Now()
	s.StopAll()
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("StopAll should interrupt the backoff wait")
	}
}

func TestScheduler_StopAll_AbandonsStuckWorker(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	cfg := testSchedulerConfig()
	cfg.StopTimeout = 20 * time.Millisecond
	w := &stubWriter{block: block}
	s := NewScheduler(&stubDirectory{}, w, nominalSource(), &recordingSink{}, cfg, metrics.New(), logger.Nop())

	s.StartOne(activeTower("T1"))
	s.StartOne(activeTower("T2"))
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	s.StopAll()
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Fatalf("StopAll took %v; stuck workers must be waited on concurrently", elapsed)
	}
	if n := len(s.Workers()); n != 0 {
		t.Fatalf("registry has %d workers after StopAll", n)
	}
}

func TestScheduler_StartOneDuringStopAllIsRefused(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	cfg := testSchedulerConfig()
	cfg.StopTimeout = 200 * time.Millisecond
	w := &stubWriter{block: block}
	s := NewScheduler(&stubDirectory{}, w, nominalSource(), &recordingSink{}, cfg, metrics.New(), logger.Nop())

	s.StartOne(activeTower("T1"))
	time.Sleep(10 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.StopAll()
		close(stopped)
	}()
	waitFor(t, time.Second, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.stopping
	})

	if s.StartOne(activeTower("T2")) {
		t.Fatalf("StartOne must be refused while StopAll runs")
	}
	<-stopped

	if n := len(s.Workers()); n != 0 {
		t.Fatalf("registry has %d workers after StopAll", n)
	}
	if !s.StartOne(activeTower("T2")) {
		t.Fatalf("StartOne should succeed once StopAll has returned")
	}
	s.StopAll()
}
