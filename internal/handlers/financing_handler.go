package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-financing/internal/financing"
	"github.com/sjperalta/fintera-financing/internal/services"
)

// FinancingHandler serves the stateless calculators
type FinancingHandler struct {
	scheduleService *services.ScheduleService
	moratoryService *services.MoratoryService
}

func NewFinancingHandler(scheduleSvc *services.ScheduleService, moratorySvc *services.MoratoryService) *FinancingHandler {
	return &FinancingHandler{scheduleService: scheduleSvc, moratoryService: moratorySvc}
}

type AmortizationRequest struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
	Installments      int     `json:"installments"`
	Frequency         string  `json:"frequency"`
	Model             string  `json:"model"`
	FirstDueDate      string  `json:"first_due_date"` // YYYY-MM-DD
}

type CustomScheduleRequest struct {
	Entries           []financing.CustomEntry `json:"entries"`
	AnnualRatePercent float64                 `json:"annual_rate_percent"`
	TotalAmount       float64                 `json:"total_amount"`
}

type MoratoryRequest struct {
	OverdueBalance float64  `json:"overdue_balance"`
	DueDate        string   `json:"due_date"`
	EvaluationDate string   `json:"evaluation_date"` // defaults to today
	AnnualRate     *float64 `json:"annual_rate"`
}

// parseDate reads a YYYY-MM-DD value as a UTC calendar date
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(financing.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &financing.ValidationError{Field: field, Message: "fecha inválida, use AAAA-MM-DD: " + value}
	}
	return t, nil
}

// @Summary Amortization schedule
// @Description Project a FRENCH, GERMAN or JAPANESE schedule without saving it
// @Tags Financing
// @Accept json
// @Produce json
// @Param request body AmortizationRequest true "Financing plan"
// @Success 200 {object} financing.Amortization
// @Security BearerAuth
// @Router /financing/amortization [post]
func (h *FinancingHandler) Amortization(c *gin.Context) {
	var req AmortizationRequest
	if err := BindNestedOrFlat(c, "financing", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	firstDue, err := parseDate("first_due_date", req.FirstDueDate)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.scheduleService.PreviewAmortization(financing.AmortizationInput{
		Principal:         req.Principal,
		AnnualRatePercent: req.AnnualRatePercent,
		Installments:      req.Installments,
		Frequency:         financing.Frequency(strings.ToUpper(req.Frequency)),
		Model:             financing.Model(strings.ToUpper(req.Model)),
		FirstDueDate:      firstDue,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Custom schedule
// @Description Validate an irregular plan and overlay daily interest as of today
// @Tags Financing
// @Accept json
// @Produce json
// @Param request body CustomScheduleRequest true "Custom plan"
// @Success 200 {object} financing.CustomScheduleResult
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /financing/custom_schedule [post]
func (h *FinancingHandler) CustomSchedule(c *gin.Context) {
	var req CustomScheduleRequest
	if err := BindNestedOrFlat(c, "schedule", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.scheduleService.PreviewCustom(financing.CustomScheduleInput{
		Entries:           req.Entries,
		AnnualRatePercent: req.AnnualRatePercent,
		TotalAmount:       req.TotalAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Moratory interest
// @Description Compute late-payment interest on a single overdue amount
// @Tags Financing
// @Accept json
// @Produce json
// @Param request body MoratoryRequest true "Overdue amount"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /financing/moratory [post]
func (h *FinancingHandler) Moratory(c *gin.Context) {
	var req MoratoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	evaluation := time.Now()
	if req.EvaluationDate != "" {
		if evaluation, err = parseDate("evaluation_date", req.EvaluationDate); err != nil {
			respondError(c, err)
			return
		}
	}

	interest, err := h.moratoryService.Calculate(req.OverdueBalance, due, evaluation, req.AnnualRate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"moratory_interest": interest,
		"days_late":         financing.DaysLate(due, evaluation),
		"evaluation_date":   evaluation.Format(financing.DateLayout),
	})
}
