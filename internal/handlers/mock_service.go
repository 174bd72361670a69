package handlers

import (
	"context"
	"net/http"
	"time"

	"tower_monitoring/internal/models"
	"tower_monitoring/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockWriter struct {
	res      models.FanOutResult
	err      error
	lastKind models.RecordKind
	lastData map[string]any
}

func (m *mockWriter) Save(_ context.Context, kind models.RecordKind, data map[string]any) (models.FanOutResult, error) {
	m.lastKind = kind
	m.lastData = data
	return m.res, m.err
}

type mockReconciliation struct {
	res       models.SyncResult
	err       error
	lastTable string
}

func (m *mockReconciliation) Reconcile(_ context.Context, table string) (models.SyncResult, error) {
	m.lastTable = table
	return m.res, m.err
}
func (m *mockReconciliation) ReconcileAll(context.Context, []string) (map[string]models.SyncResult, error) {
	return nil, nil
}
func (m *mockReconciliation) RunPeriodic(context.Context, []string, time.Duration) {}

type mockScheduling struct {
	started     int
	startErr    error
	startOneOK  bool
	startedIDs  []string
	stopAllCall int
	workers     []service.WorkerInfo
}

func (m *mockScheduling) StartAll(context.Context) (int, error) { return m.started, m.startErr }
func (m *mockScheduling) StartOne(t models.Tower) bool {
	m.startedIDs = append(m.startedIDs, t.ID)
	return m.startOneOK
}
func (m *mockScheduling) Stop(string) bool              { return false }
func (m *mockScheduling) StopAll()                      { m.stopAllCall++ }
func (m *mockScheduling) Running() bool                 { return m.started > 0 }
func (m *mockScheduling) Workers() []service.WorkerInfo { return m.workers }

type mockTowers struct {
	towers    []models.Tower
	listErr   error
	getErr    error
	createErr error
	updateErr error
	latest    map[string]any
	latestErr error
	countErr  error

	lastUser    string
	lastCreated models.Tower
	lastState   models.TowerState
}

func (m *mockTowers) List(_ context.Context, userID string) ([]models.Tower, error) {
	m.lastUser = userID
	return m.towers, m.listErr
}
func (m *mockTowers) Get(_ context.Context, id string) (models.Tower, error) {
	if m.getErr != nil {
		return models.Tower{}, m.getErr
	}
	for _, t := range m.towers {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Tower{}, service.ErrTowerNotFound
}
func (m *mockTowers) Create(_ context.Context, t models.Tower) (models.Tower, error) {
	m.lastCreated = t
	if m.createErr != nil {
		return models.Tower{}, m.createErr
	}
	t.ID = "T-new"
	t.State = models.TowerInactive
	return t, nil
}
func (m *mockTowers) UpdateState(_ context.Context, id string, state models.TowerState) (models.Tower, error) {
	m.lastState = state
	if m.updateErr != nil {
		return models.Tower{}, m.updateErr
	}
	return models.Tower{ID: id, State: state}, nil
}
func (m *mockTowers) Latest(context.Context, string) (map[string]any, error) {
	return m.latest, m.latestErr
}
func (m *mockTowers) CountActive(context.Context) (int, error) {
	n := 0
	for _, t := range m.towers {
		if t.State == models.TowerActive {
			n++
		}
	}
	return n, m.countErr
}

type mockAlertFeed struct {
	feed chan []byte
	err  error
}

func (m *mockAlertFeed) Subscribe(context.Context) (<-chan []byte, error) {
	return m.feed, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
