package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellcast/internal/domain/models"
)

// FinancialsService reports field-level production.
type FinancialsService interface {
	FieldTotals(ctx context.Context) ([]models.FieldProduction, error)
}

// FinancialsHandler exposes field production totals.
type FinancialsHandler struct {
	svc    FinancialsService
	logger *zap.Logger
}

// NewFinancialsHandler constructs the HTTP handler adapter.
func NewFinancialsHandler(svc FinancialsService, logger *zap.Logger) *FinancialsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinancialsHandler{svc: svc, logger: logger}
}

type fieldProductionResponse struct {
	FieldCode   string  `json:"field_code"`
	Records     int     `json:"records"`
	TotalOilKBD float64 `json:"total_oil_kbd"`
}

// FieldProduction lists each field's oil output in thousand barrels per day.
func (h *FinancialsHandler) FieldProduction(c *gin.Context) {
	fields, err := h.svc.FieldTotals(c.Request.Context())
	if err != nil {
		h.logger.Error("failed computing field totals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	out := make([]fieldProductionResponse, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldProductionResponse{
			FieldCode:   f.FieldCode,
			Records:     len(f.Productions),
			TotalOilKBD: f.TotalOilKBD(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
