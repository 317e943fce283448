package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/relance"
)

// BookingHandler exposes the explicit status-change path of the relance
// workflow.
type BookingHandler struct {
	workflow *relance.Workflow
}

func NewBookingHandler(w *relance.Workflow) *BookingHandler {
	return &BookingHandler{workflow: w}
}

// Register mounts:
//
//	POST   /bookings/:id/status
//	GET    /bookings/:id/relances
//	DELETE /bookings/:id/relances
func (h *BookingHandler) Register(rg gin.IRouter) {
	rg.POST("/bookings/:id/status", h.changeStatus)
	rg.GET("/bookings/:id/relances", h.relances)
	rg.DELETE("/bookings/:id/relances", h.removeRelances)
}

func (h *BookingHandler) changeStatus(c *gin.Context) {
	var req struct {
		Statut string `json:"statut" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.BadRequest("statut is required"))
		return
	}
	res, err := h.workflow.ChangeStatus(c.Request.Context(), c.Param("id"), req.Statut)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BookingHandler) relances(c *gin.Context) {
	list, err := h.workflow.Relances(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) removeRelances(c *gin.Context) {
	n, err := h.workflow.RemoveForBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}
