package handlers

import (
	"net/http"

	"smoke_controller/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	statusProbeFaultSet = "probe_fault_set"
	statusFanFaultSet   = "fan_fault_set"
)

// ProbeFaultRequest is the payload of PUT /api/v1/sim/probes/{id}/fault.
type ProbeFaultRequest struct {
	// "disconnected", "out_of_range" or "" to clear
	Fault models.ProbeFault `json:"fault" example:"disconnected"`
}

// FanFaultRequest is the payload of PUT /api/v1/sim/fan/fault.
type FanFaultRequest struct {
	Failing *bool `json:"failing" binding:"required" example:"true"`
}

func (h *Handler) registerSimRoutes(api *gin.RouterGroup) {
	sim := api.Group("/sim")
	{
		sim.PUT("/probes/:id/fault", h.setProbeFault)
		sim.PUT("/fan/fault", h.setFanFault)
	}
}

// @Summary      Inject a simulated probe fault
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "Probe id"
// @Param        body  body  ProbeFaultRequest  true  "Fault payload"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/sim/probes/{id}/fault [put]
// @Security     BearerAuth
func (h *Handler) setProbeFault(c *gin.Context) {
	var req ProbeFaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.services.Simulation.SetProbeFault(c.Request.Context(), id, req.Fault); err != nil {
		h.commandError(c, "sim_probe_fault_failed", err, "probe", id)
		return
	}
	h.respondWithStatusAndTelemetry(c, statusProbeFaultSet, gin.H{"probe": id, "fault": req.Fault})
}

// @Summary      Make the simulated fan actuator fail
// @Tags         simulation
// @Accept       json
// @Produce      json
// @Param        body  body  FanFaultRequest  true  "Fault payload"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/sim/fan/fault [put]
// @Security     BearerAuth
func (h *Handler) setFanFault(c *gin.Context) {
	var req FanFaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Simulation.SetFanFault(c.Request.Context(), *req.Failing); err != nil {
		h.commandError(c, "sim_fan_fault_failed", err, "failing", *req.Failing)
		return
	}
	h.respondWithStatusAndTelemetry(c, statusFanFaultSet, gin.H{"failing": *req.Failing})
}
