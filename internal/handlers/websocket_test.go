package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"smoke_controller/internal/models"
	"smoke_controller/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 1 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", 1 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=20000", 1 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 1 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 1 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no_list_allows_all", nil, "http://evil.example", true},
		{"no_origin_header", []string{"http://localhost:5173"}, "", true},
		{"listed", []string{"http://localhost:5173"}, "http://localhost:5173", true},
		{"not_listed", []string{"http://localhost:5173"}, "http://evil.example", false},
		{"wildcard", []string{"*"}, "http://any.example", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h.AllowOrigins(tc.allowed)
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if got := h.checkOrigin(req); got != tc.want {
				t.Fatalf("checkOrigin = %v; want %v", got, tc.want)
			}
		})
	}
}

// --- websocket integration tests ---

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialWS(t *testing.T, srv *httptest.Server, query url.Values) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query.Encode()
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	return dialer.Dial(u.String(), nil)
}

func TestWebSocket_TelemetryStream_InitialAndPeriodic(t *testing.T) {
	mon := &mockMonitoring{telemetry: models.Telemetry{
		Target: models.Target{TempC: 110, Enabled: true},
		Fan:    models.FanState{Speed: models.FanMedium},
		Probes: []models.ProbeTelemetry{{ProbeStatus: models.ProbeStatus{ID: "pit", Role: models.RolePit, Enabled: true}}},
		Cycle:  12,
	}}
	s := &service.Service{Monitoring: mon, Authorization: &mockAuth{parseID: 1}}

	srv := httptest.NewServer(newTestRouter(s))
	defer srv.Close()

	conn, _, err := dialWS(t, srv, url.Values{"interval_ms": {"20"}, "access_token": {"tok"}})
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if env.Type != msgTelemetry || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var tel models.Telemetry
	if err := json.Unmarshal(env.Data, &tel); err != nil {
		t.Fatalf("unmarshal telemetry: %v", err)
	}
	if tel.Cycle != 12 || tel.Fan.Speed != models.FanMedium || len(tel.Probes) != 1 || tel.Probes[0].ID != "pit" {
		t.Fatalf("unexpected telemetry: %+v", tel)
	}

	// a subsequent tick
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	env = envelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if env.Type != msgTelemetry {
		t.Fatalf("expected type=%s, got %+v", msgTelemetry, env)
	}
}

func TestWebSocket_RequiresToken(t *testing.T) {
	s := &service.Service{Monitoring: &mockMonitoring{}, Authorization: &mockAuth{}}

	srv := httptest.NewServer(newTestRouter(s))
	defer srv.Close()

	_, resp, err := dialWS(t, srv, url.Values{})
	if err == nil {
		t.Fatal("expected handshake to fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestWebSocket_InitialTelemetryError_Closes(t *testing.T) {
	mon := &mockMonitoring{err: errors.New("boom")}
	s := &service.Service{Monitoring: mon}

	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := dialWS(t, srv, url.Values{})
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read error envelope: %v", err)
	}
	if env.Type != "error" || env.Error != errGetTelemetry {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	// then the server closes the connection
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}
