package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/services"
)

// InsightHandler serves AI and rule-based spending insights.
type InsightHandler struct {
	transactionService services.TransactionServicer
	insightService     services.InsightServicer
	auditService       services.AuditServicer
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(transactionService services.TransactionServicer, insightService services.InsightServicer, auditService services.AuditServicer) *InsightHandler {
	return &InsightHandler{
		transactionService: transactionService,
		insightService:     insightService,
		auditService:       auditService,
	}
}

// InsightQuery selects how the insight is produced.
type InsightQuery struct {
	Mode    string `form:"mode" binding:"insight_mode"`
	Refresh bool   `form:"refresh"`
}

// GenerateInsight handles insight generation over the last six months
// @Summary     Generate a spending insight
// @Description Analyzes the last six months of transactions. Without mode the completion API is used when configured, otherwise the rule-based insight. AI results are cached until refresh=true.
// @Tags        insights
// @Produce     json
// @Security    BearerAuth
// @Param       mode    query string false "ai or mock"
// @Param       refresh query bool   false "Bypass the insight cache"
// @Success     200 {object} models.Insight
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     429 {object} ErrorResponse "Rate limited"
// @Failure     499 {object} ErrorResponse "Request cancelled"
// @Failure     502 {object} ErrorResponse "Completion API failure"
// @Router      /insights [post]
func (h *InsightHandler) GenerateInsight(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q InsightQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	records, err := h.transactionService.ListAll(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	insight, err := h.insightService.InsightFor(c.Request.Context(), userID, records, services.InsightMode(q.Mode), q.Refresh)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditGenerateInsight, "", c.ClientIP(),
		map[string]any{"mode": q.Mode, "mock": insight.Mock, "refresh": q.Refresh})

	c.JSON(http.StatusOK, gin.H{"insight": insight})
}
