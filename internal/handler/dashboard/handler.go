package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/handler"
	"github.com/clinicore/clinic-api/internal/middleware"
	"github.com/clinicore/clinic-api/internal/service/dashboard"
	"github.com/clinicore/clinic-api/internal/service/redact"
)

type Handler struct {
	service *dashboard.Service
}

func NewHandler(service *dashboard.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard/day", h.Day)
}

type dayRequest struct {
	Date     string `form:"date" binding:"required,datetime=2006-01-02"`
	Timezone string `form:"timezone" binding:"omitempty,timezone"`
}

// Day returns the schedule for one civil date with attention flags and
// KPIs, redacted for front-desk callers.
func (h *Handler) Day(c *gin.Context) {
	var req dayRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var clinicianID *uuid.UUID
	if raw := c.Query("clinician_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid clinician ID"))
			return
		}
		clinicianID = &id
	}

	board, err := h.service.Day(c.Request.Context(), req.Date, req.Timezone, clinicianID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	role, _ := middleware.RoleFrom(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(redact.Dashboard(role, board)))
}
