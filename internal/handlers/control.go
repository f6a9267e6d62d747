package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"smoke_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK              = "ok"
	statusTargetSet       = "target_set"
	statusControlEnabled  = "control_enabled"
	statusControlDisabled = "control_disabled"
	statusProbeEnabled    = "probe_enabled"
	statusProbeDisabled   = "probe_disabled"

	errGetTelemetry    = "failed to load telemetry"
	errGetHistory      = "failed to load probe history"
	errControl         = "failed to apply command"
	errInvalidBodyPref = "invalid body: "
	errInvalidN        = "invalid 'n'; use a positive integer"
	errInvalidWindow   = "invalid 'window'; use a duration such as 10m"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err, "operator", operatorID(c)}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// commandError maps service errors to status codes: unknown ids are 404,
// rejected values are 400, sim commands without a simulation are 409.
func (h *Handler) commandError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrUnknownProbe):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTarget), errors.Is(err, service.ErrInvalidHistoryQuery),
		errors.Is(err, service.ErrInvalidFault):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSimulationDisabled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errControl, logKey, err, kv...)
	}
}

// Respond with a status and include current telemetry if available (best-effort).
func (h *Handler) respondWithStatusAndTelemetry(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if t, err := h.services.Monitoring.Telemetry(c.Request.Context()); err == nil {
		resp["telemetry"] = t
	}
	c.JSON(http.StatusOK, resp)
}

// SetTargetRequest is the payload of PUT /api/v1/target.
type SetTargetRequest struct {
	// Target pit temperature in Celsius
	TempC *float64 `json:"temp_c" binding:"required" example:"110"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Live telemetry
// @Description  Target, per-probe status with last reading, fan state, latest decision and alarms.
// @Tags         control
// @Produce      json
// @Success      200  {object}  models.Telemetry
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/telemetry [get]
// @Security     BearerAuth
func (h *Handler) getTelemetry(c *gin.Context) {
	t, err := h.services.Monitoring.Telemetry(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetTelemetry, "telemetry_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary      Set target temperature
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body   SetTargetRequest  true  "Target payload"
// @Success      200   {object}  map[string]interface{}  "status, telemetry"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/target [put]
// @Security     BearerAuth
func (h *Handler) setTarget(c *gin.Context) {
	var req SetTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Control.SetTarget(c.Request.Context(), *req.TempC); err != nil {
		h.commandError(c, "target_set_failed", err, "temp_c", *req.TempC)
		return
	}
	h.respondWithStatusAndTelemetry(c, statusTargetSet, gin.H{"temp_c": *req.TempC})
}

// @Summary      Enable automatic control
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/control/enable [post]
// @Security     BearerAuth
func (h *Handler) enableControl(c *gin.Context) {
	h.setControl(c, true, statusControlEnabled)
}

// @Summary      Disable automatic control (fan off)
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/control/disable [post]
// @Security     BearerAuth
func (h *Handler) disableControl(c *gin.Context) {
	h.setControl(c, false, statusControlDisabled)
}

func (h *Handler) setControl(c *gin.Context, enabled bool, status string) {
	if err := h.services.Control.SetControlEnabled(c.Request.Context(), enabled); err != nil {
		h.commandError(c, "control_toggle_failed", err, "enabled", enabled)
		return
	}
	h.respondWithStatusAndTelemetry(c, status, gin.H{})
}

// @Summary      Enable a probe
// @Tags         probes
// @Produce      json
// @Param        id   path  string  true  "Probe id"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/probes/{id}/enable [post]
// @Security     BearerAuth
func (h *Handler) enableProbe(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Control.EnableProbe(c.Request.Context(), id); err != nil {
		h.commandError(c, "probe_enable_failed", err, "probe", id)
		return
	}
	h.respondWithStatusAndTelemetry(c, statusProbeEnabled, gin.H{"probe": id})
}

// @Summary      Disable a probe
// @Tags         probes
// @Produce      json
// @Param        id   path  string  true  "Probe id"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/probes/{id}/disable [post]
// @Security     BearerAuth
func (h *Handler) disableProbe(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Control.DisableProbe(c.Request.Context(), id); err != nil {
		h.commandError(c, "probe_disable_failed", err, "probe", id)
		return
	}
	h.respondWithStatusAndTelemetry(c, statusProbeDisabled, gin.H{"probe": id})
}

// @Summary      Probe reading history
// @Description  Last n readings, or readings within the trailing window. Not both.
// @Tags         probes
// @Produce      json
// @Param        id      path   string  true   "Probe id"
// @Param        n       query  int     false  "Number of most recent readings"  example(30)
// @Param        window  query  string  false  "Trailing window (Go duration)"   example(10m)
// @Success      200  {object}  map[string]interface{}  "probe, count, readings"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/probes/{id}/history [get]
// @Security     BearerAuth
func (h *Handler) getProbeHistory(c *gin.Context) {
	id := c.Param("id")
	var q service.HistoryQuery
	if s := c.Query("n"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidN})
			return
		}
		q.N = n
	}
	if s := c.Query("window"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidWindow})
			return
		}
		q.Window = d
	}

	readings, err := h.services.Monitoring.ProbeHistory(c.Request.Context(), id, q)
	if err != nil {
		if errors.Is(err, service.ErrUnknownProbe) || errors.Is(err, service.ErrInvalidHistoryQuery) {
			h.commandError(c, "probe_history_failed", err)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errGetHistory, "probe_history_failed", err, "probe", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"probe":    id,
		"count":    len(readings),
		"readings": readings,
	})
}
