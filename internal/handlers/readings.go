package handlers

import (
	"net/http"

	"tower_monitoring/internal/models"

	"github.com/gin-gonic/gin"
)

// @Summary      Store a reading in every tier
// @Description  kind is telemetry or diagnostic. 201 when every tier succeeded, 207 with the per-tier outcome otherwise.
// @Tags         readings
// @Accept       json
// @Produce      json
// @Param        kind  path      string          true  "Record kind"
// @Param        body  body      map[string]any  true  "Reading columns"
// @Success      201   {object}  models.FanOutResult
// @Success      207   {object}  models.FanOutResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/readings/{kind} [post]
// @Security     BearerAuth
func (h *Handler) saveReading(c *gin.Context) {
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	kind := models.RecordKind(c.Param("kind"))
	res, err := h.services.Writer.Save(c.Request.Context(), kind, data)
	if err != nil {
		h.respondError(c, "reading_save_failed", err, "kind", kind)
		return
	}

	code := http.StatusCreated
	if !res.OK() {
		code = http.StatusMultiStatus
	}
	c.JSON(code, res)
}
