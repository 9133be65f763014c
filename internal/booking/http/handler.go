package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/auth"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/booking"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/request"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), req.ID, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}
