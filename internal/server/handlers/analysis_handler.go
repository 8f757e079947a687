package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellcast/internal/config"
	"github.com/mamadbah2/wellcast/internal/domain/models"
	"github.com/mamadbah2/wellcast/internal/tabular"
)

// AnalysisService is the analytics surface exposed over HTTP.
type AnalysisService interface {
	AnalyzeDeclineCurve(ctx context.Context, req models.DeclineRequest) (*models.DeclineFitResult, error)
	AggregateProduction(ctx context.Context, req models.AggregationRequest) []tabular.Row
	FilterProduction(ctx context.Context, req models.FilterRequest) ([]models.ProductionResponse, error)
	JoinTables(ctx context.Context, req models.JoinRequest) []tabular.Row
}

// AnalysisHandler adapts HTTP requests to the analysis service.
type AnalysisHandler struct {
	svc      AnalysisService
	defaults config.AnalysisConfig
	logger   *zap.Logger
}

// NewAnalysisHandler constructs the HTTP handler adapter.
func NewAnalysisHandler(svc AnalysisService, defaults config.AnalysisConfig, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{svc: svc, defaults: defaults, logger: logger}
}

// declineCurveBody accepts dates as YYYY-MM-DD or RFC 3339.
type declineCurveBody struct {
	WellCode         string `json:"well_code" binding:"required"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	ModelType        string `json:"model_type"`
	ForecastDuration *int   `json:"forecast_duration"`
}

// DeclineCurve fits and forecasts a well's production.
func (h *AnalysisHandler) DeclineCurve(c *gin.Context) {
	var body declineCurveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("invalid decline curve payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req := models.DeclineRequest{
		WellCode:         body.WellCode,
		ModelType:        body.ModelType,
		ForecastDuration: h.defaults.DefaultForecastDays,
	}
	if req.ModelType == "" {
		req.ModelType = h.defaults.DefaultModel
	}
	if body.ForecastDuration != nil {
		req.ForecastDuration = *body.ForecastDuration
	}

	var err error
	if req.StartDate, err = optionalDate(body.StartDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	if req.EndDate, err = optionalDate(body.EndDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}

	res, err := h.svc.AnalyzeDeclineCurve(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Aggregate groups production and applies aggregation functions.
func (h *AnalysisHandler) Aggregate(c *gin.Context) {
	var req models.AggregationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid aggregation payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.svc.AggregateProduction(c.Request.Context(), req)})
}

// Filter returns production rows matching the criteria.
func (h *AnalysisHandler) Filter(c *gin.Context) {
	var req models.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid filter payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rows, err := h.svc.FilterProduction(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// Join returns production joined with prices and exchange rates.
func (h *AnalysisHandler) Join(c *gin.Context) {
	var req models.JoinRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid join payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": h.svc.JoinTables(c.Request.Context(), req)})
}

func (h *AnalysisHandler) writeError(c *gin.Context, err error) {
	var notFound *models.NotFoundError
	var validation *models.ValidationError
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	default:
		h.logger.Error("analysis request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func optionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := tabular.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
