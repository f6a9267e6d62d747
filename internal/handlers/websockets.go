package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smoke_controller/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxInboundSz = 1 << 12

	defaultInterval = time.Second
	maxInterval     = 10 * time.Second
)

const (
	msgTelemetry = "telemetry"
	msgError     = "error"
)

type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// AllowOrigins restricts websocket handshakes to the given browser origins.
// An empty list or "*" allows any origin.
func (h *Handler) AllowOrigins(origins []string) {
	h.origins = origins
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 {
		return true
	}
	for _, o := range h.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// parseInterval reads ?interval=2s, falling back to ?interval_ms=2000.
// Anything unparsable or outside (0, 10s] yields the default.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if d, err := time.ParseDuration(c.Query("interval")); err == nil && validInterval(d) {
		return d
	}
	if v, err := strconv.Atoi(c.Query("interval_ms")); err == nil {
		if d := time.Duration(v) * time.Millisecond; validInterval(d) {
			return d
		}
	}
	return defaultInterval
}

func validInterval(d time.Duration) bool { return d > 0 && d <= maxInterval }

// @Summary      Telemetry stream
// @Description  Upgrades to a websocket and pushes {"type":"telemetry","data":...} every interval (?interval=2s or ?interval_ms=2000, max 10s). Token via Authorization header or ?access_token=.
// @Tags         control
// @Param        interval      query  string  false  "Push interval (Go duration)"
// @Param        interval_ms   query  int     false  "Push interval in milliseconds"
// @Param        access_token  query  string  false  "Bearer token"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}

	s := &telemetryStream{conn: conn, h: h, log: h.log}
	s.serve(c.Request.Context(), interval)
}

// telemetryStream owns one websocket connection. Only serve writes to conn;
// the read pump handles control frames and reports disconnects.
type telemetryStream struct {
	conn *websocket.Conn
	h    *Handler
	log  *logger.Logger
}

func (s *telemetryStream) serve(ctx context.Context, interval time.Duration) {
	defer func() { _ = s.conn.Close() }()

	s.conn.SetReadLimit(maxInboundSz)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go s.readPump(closed)

	if err := s.push(ctx); err != nil {
		s.logInfo("ws_write_failed_initial", err)
		return
	}

	push := time.NewTicker(interval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err = s.write(websocket.PingMessage, nil); err != nil {
				s.logInfo("ws_ping_failed", err)
			}
		case <-push.C:
			if err = s.push(ctx); err != nil {
				s.logInfo("ws_write_failed", err)
			}
		}
		if err != nil {
			return
		}
	}
}

// push writes the current telemetry. A failed fetch is reported to the
// client as an error envelope and ends the stream.
func (s *telemetryStream) push(ctx context.Context) error {
	t, err := s.h.services.Monitoring.Telemetry(ctx)
	if err != nil {
		if s.log != nil {
			s.log.Errorw("ws_get_telemetry_failed", "err", err)
		}
		_ = s.writeJSON(wsEnvelope{Type: msgError, Error: errGetTelemetry})
		return err
	}
	return s.writeJSON(wsEnvelope{Type: msgTelemetry, Data: t})
}

func (s *telemetryStream) writeJSON(v interface{}) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *telemetryStream) write(kind int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(kind, data)
}

func (s *telemetryStream) readPump(closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.logInfo("ws_read_closed", err)
			return
		}
	}
}

func (s *telemetryStream) logInfo(msg string, err error) {
	if s.log != nil {
		s.log.Infow(msg, "err", err)
	}
}
