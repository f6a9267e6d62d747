package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"smoke_controller/internal/models"
	"smoke_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastGenUsername string
	lastGenPassword string
	lastParseToken  string
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

type mockControl struct {
	err error

	enabled    []string
	disabled   []string
	lastTarget float64
	targetSets int
	toggles    []bool
}

func (m *mockControl) EnableProbe(_ context.Context, id string) error {
	m.enabled = append(m.enabled, id)
	return m.err
}
func (m *mockControl) DisableProbe(_ context.Context, id string) error {
	m.disabled = append(m.disabled, id)
	return m.err
}
func (m *mockControl) SetTarget(_ context.Context, tempC float64) error {
	m.targetSets++
	m.lastTarget = tempC
	return m.err
}
func (m *mockControl) SetControlEnabled(_ context.Context, enabled bool) error {
	m.toggles = append(m.toggles, enabled)
	return m.err
}

type mockMonitoring struct {
	telemetry models.Telemetry
	err       error

	readings   []models.Reading
	historyErr error
	lastID     string
	lastQuery  service.HistoryQuery
}

func (m *mockMonitoring) Telemetry(_ context.Context) (models.Telemetry, error) {
	return m.telemetry, m.err
}
func (m *mockMonitoring) ProbeHistory(_ context.Context, id string, q service.HistoryQuery) ([]models.Reading, error) {
	m.lastID = id
	m.lastQuery = q
	return m.readings, m.historyErr
}

type mockEventLog struct {
	resp       []models.ControlEvent
	err        error
	lastFilter service.LogFilter
	calls      int
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.ControlEvent, error) {
	m.calls++
	m.lastFilter = f
	return m.resp, m.err
}

type mockSimulation struct {
	err error

	lastProbe  string
	lastFault  models.ProbeFault
	fanFailing []bool
}

func (m *mockSimulation) SetProbeFault(_ context.Context, id string, fault models.ProbeFault) error {
	m.lastProbe = id
	m.lastFault = fault
	return m.err
}
func (m *mockSimulation) SetFanFault(_ context.Context, failing bool) error {
	m.fanFailing = append(m.fanFailing, failing)
	return m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
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

// do performs an authenticated request against r.
func do(r *gin.Engine, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

