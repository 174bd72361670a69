package handlers

import (
	"errors"
	"net/http"

	"tower_monitoring/internal/models"
	"tower_monitoring/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusStarted  = "started"
	statusStopped  = "stopped"

	errInternal        = "internal error"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondError maps service errors to a status code. Client errors carry the
// error text; anything else is logged and answered with a generic message.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	var (
		unsupported *service.UnsupportedKindError
		missing     *models.MissingFieldError
		unknown     *service.UnknownTableError
	)
	switch {
	case errors.As(err, &unsupported), errors.As(err, &missing),
		errors.Is(err, service.ErrInvalidTower), errors.Is(err, service.ErrInvalidTowerState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &unknown), errors.Is(err, service.ErrTowerNotFound), errors.Is(err, service.ErrNoLatestReading):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, logKey, err, kv...)
	}
}

// @Summary      Health check
// @Description  Includes active tower and worker counts when those services are wired.
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Towers != nil {
		n, err := h.services.Towers.CountActive(c.Request.Context())
		if err != nil {
			if h.log != nil {
				h.log.Warnw("health_count_active_failed", "err", err)
			}
			resp["status"] = statusDegraded
		} else {
			resp["active_towers"] = n
		}
	}
	if h.services.Scheduling != nil {
		resp["workers"] = len(h.services.Scheduling.Workers())
	}
	c.JSON(http.StatusOK, resp)
}
