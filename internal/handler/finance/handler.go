package finance

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/handler"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/service/finance"
)

type Handler struct {
	service *finance.Service
}

func NewHandler(service *finance.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/finance")
	{
		group.GET("/summary", h.Summary)
		group.GET("/receivables", h.Receivables)
	}
}

func (h *Handler) Summary(c *gin.Context) {
	var req model.FinanceSummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	clinicianID, ok := parseClinicianID(c)
	if !ok {
		return
	}
	req.ClinicianID = clinicianID

	summary, err := h.service.Summary(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) Receivables(c *gin.Context) {
	var req model.ReceivablesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	clinicianID, ok := parseClinicianID(c)
	if !ok {
		return
	}
	req.ClinicianID = clinicianID

	report, err := h.service.Receivables(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func parseClinicianID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("clinician_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid clinician ID"))
		return nil, false
	}
	return &id, true
}
