package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Reconcile one table into the local mirror
// @Tags         sync
// @Produce      json
// @Param        table  path      string  true  "Table name"
// @Success      200    {object}  models.SyncResult
// @Failure      401    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/sync/{table} [post]
// @Security     BearerAuth
func (h *Handler) syncTable(c *gin.Context) {
	table := c.Param("table")
	res, err := h.services.Reconciliation.Reconcile(c.Request.Context(), table)
	if err != nil {
		h.respondError(c, "sync_failed", err, "table", table)
		return
	}
	c.JSON(http.StatusOK, res)
}
