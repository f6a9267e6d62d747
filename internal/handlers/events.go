package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smoke_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errLimitInvalid = "invalid 'limit'; use a positive integer"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List session events
// @Description  Filter events by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'), type and probe. If 'to' is date-only, it is treated as end-of-day inclusive (23:59:59.999999999Z).
// @Tags         events
// @Produce      json
// @Param        from   query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to     query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        type   query   string  false  "Event type"  Enums(PROBE_ENABLED,PROBE_DISABLED,PROBE_FAULT,PROBE_RECOVERED,TARGET_SET,CONTROL_ENABLED,CONTROL_DISABLED,SPEED_CHANGE,FAN_FAULT,FOOD_DONE)
// @Param        probe  query   string  false  "Probe id"
// @Param        limit  query   int     false  "Newest N events"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/events [get]
// @Security     BearerAuth
func (h *Handler) getEvents(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		from      time.Time
		to        time.Time
		limit     int
		eventType = strings.ToUpper(strings.TrimSpace(c.Query("type")))
		probeID   = strings.TrimSpace(c.Query("probe"))
		err       error
	)
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be <= 'to'"})
		return
	}
	if qs := c.Query("limit"); qs != "" {
		limit, err = strconv.Atoi(qs)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
	}

	events, err := h.services.EventLog.List(ctx, service.LogFilter{
		From:    from,
		To:      to,
		Type:    eventType,
		ProbeID: probeID,
		Limit:   limit,
	})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load events", "events_list_failed", err,
			"from", from, "to", to, "type", eventType, "probe", probeID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
