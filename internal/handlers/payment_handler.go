package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-financing/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type ApplyPaymentRequest struct {
	Amount         float64 `json:"amount"`
	PaymentDate    string  `json:"payment_date"` // YYYY-MM-DD, defaults to today
	Method         string  `json:"method"`
	ProofReference *string `json:"proof_reference"`
}

// @Summary Apply payment
// @Description Record a payment against an installment and cascade the principal balance
// @Tags Payments
// @Accept json
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Param request body ApplyPaymentRequest true "Payment"
// @Success 201 {object} services.PaymentResult
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /installments/{installment_id}/payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	id, ok := idParam(c, "installment_id")
	if !ok {
		return
	}
	var req ApplyPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var paymentDate time.Time
	if req.PaymentDate != "" {
		var err error
		if paymentDate, err = parseDate("payment_date", req.PaymentDate); err != nil {
			respondError(c, err)
			return
		}
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), services.ApplyPaymentInput{
		InstallmentID:  id,
		Amount:         req.Amount,
		PaymentDate:    paymentDate,
		Method:         strings.ToLower(strings.TrimSpace(req.Method)),
		ProofReference: req.ProofReference,
		Actor:          auditContext(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// @Summary List installment payments
// @Tags Payments
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /installments/{installment_id}/payments [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	id, ok := idParam(c, "installment_id")
	if !ok {
		return
	}
	payments, err := h.paymentService.FindByInstallment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installment_id": id, "payments": payments})
}
