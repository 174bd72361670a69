package handlers

import (
	"net/http"

	"tower_monitoring/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Start workers for every active tower
// @Tags         scheduler
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, started"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/scheduler/start [post]
// @Security     BearerAuth
func (h *Handler) startScheduler(c *gin.Context) {
	started, err := h.services.Scheduling.StartAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "scheduler_start_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStarted, "started": started})
}

// @Summary      Stop every worker
// @Tags         scheduler
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/scheduler/stop [post]
// @Security     BearerAuth
func (h *Handler) stopScheduler(c *gin.Context) {
	h.services.Scheduling.StopAll()
	c.JSON(http.StatusOK, gin.H{"status": statusStopped})
}

// @Summary      Start the worker of one tower
// @Tags         scheduler
// @Produce      json
// @Param        id   path      string  true  "Tower id"
// @Success      200  {object}  map[string]interface{}  "status, started"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/scheduler/towers/{id} [post]
// @Security     BearerAuth
func (h *Handler) startTowerWorker(c *gin.Context) {
	id := c.Param("id")
	t, err := h.services.Towers.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "worker_start_failed", err, "tower", id)
		return
	}
	if !t.Schedulable() {
		c.JSON(http.StatusConflict, gin.H{"error": "tower is not active or not assigned"})
		return
	}
	started := h.services.Scheduling.StartOne(t)
	c.JSON(http.StatusOK, gin.H{"status": statusStarted, "started": started})
}

// @Summary      List running workers
// @Tags         scheduler
// @Produce      json
// @Success      200  {array}   service.WorkerInfo
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/scheduler/workers [get]
// @Security     BearerAuth
func (h *Handler) listWorkers(c *gin.Context) {
	workers := h.services.Scheduling.Workers()
	if workers == nil {
		workers = []service.WorkerInfo{}
	}
	c.JSON(http.StatusOK, workers)
}
