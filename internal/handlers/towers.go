package handlers

import (
	"net/http"

	"tower_monitoring/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateTowerRequest is the payload of POST /towers.
type CreateTowerRequest struct {
	Name         string         `json:"nombre" binding:"required" example:"Torre Norte"`
	Location     map[string]any `json:"ubicacion" binding:"required"`
	DataSource   string         `json:"origen_datos" binding:"required" example:"simulado"`
	AssignedUser *string        `json:"usuario_asignado,omitempty"`
	Notes        string         `json:"notas,omitempty"`
}

// UpdateStateRequest is the payload of PATCH /towers/{id}/state.
type UpdateStateRequest struct {
	State string `json:"estado" binding:"required" example:"Activa"`
}

// @Summary      List towers
// @Tags         towers
// @Produce      json
// @Param        user  query     string  false  "Only towers assigned to this user"
// @Success      200   {array}   models.Tower
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/towers [get]
// @Security     BearerAuth
func (h *Handler) listTowers(c *gin.Context) {
	towers, err := h.services.Towers.List(c.Request.Context(), c.Query("user"))
	if err != nil {
		h.respondError(c, "towers_list_failed", err)
		return
	}
	if towers == nil {
		towers = []models.Tower{}
	}
	c.JSON(http.StatusOK, towers)
}

// @Summary      Create a tower
// @Description  New towers start Inactiva.
// @Tags         towers
// @Accept       json
// @Produce      json
// @Param        body  body      CreateTowerRequest  true  "Tower"
// @Success      201   {object}  models.Tower
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/towers [post]
// @Security     BearerAuth
func (h *Handler) createTower(c *gin.Context) {
	var req CreateTowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	t, err := h.services.Towers.Create(c.Request.Context(), models.Tower{
		Name:         req.Name,
		Location:     req.Location,
		DataSource:   req.DataSource,
		AssignedUser: req.AssignedUser,
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(c, "tower_create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// @Summary      Change the state of a tower
// @Description  Activating an assigned tower starts its worker; any other state stops it.
// @Tags         towers
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "Tower id"
// @Param        body  body      UpdateStateRequest  true  "New state"
// @Success      200   {object}  models.Tower
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/towers/{id}/state [patch]
// @Security     BearerAuth
func (h *Handler) updateTowerState(c *gin.Context) {
	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	id := c.Param("id")
	t, err := h.services.Towers.UpdateState(c.Request.Context(), id, models.TowerState(req.State))
	if err != nil {
		h.respondError(c, "tower_state_failed", err, "tower", id)
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary      Get a tower
// @Tags         towers
// @Produce      json
// @Param        id   path      string  true  "Tower id"
// @Success      200  {object}  models.Tower
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/towers/{id} [get]
// @Security     BearerAuth
func (h *Handler) getTower(c *gin.Context) {
	id := c.Param("id")
	t, err := h.services.Towers.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "tower_get_failed", err, "tower", id)
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary      Latest cached telemetry of a tower
// @Tags         towers
// @Produce      json
// @Param        id   path      string  true  "Tower id"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/towers/{id}/latest [get]
// @Security     BearerAuth
func (h *Handler) latestReading(c *gin.Context) {
	id := c.Param("id")
	row, err := h.services.Towers.Latest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "tower_latest_failed", err, "tower", id)
		return
	}
	c.JSON(http.StatusOK, row)
}
