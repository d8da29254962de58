package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-financing/internal/financing"
	"github.com/sjperalta/fintera-financing/internal/middleware"
	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/services"
)

type SaleHandler struct {
	saleService     *services.SaleService
	moratoryService *services.MoratoryService
	exportService   *services.ExportService
}

func NewSaleHandler(saleSvc *services.SaleService, moratorySvc *services.MoratoryService, exportSvc *services.ExportService) *SaleHandler {
	return &SaleHandler{saleService: saleSvc, moratoryService: moratorySvc, exportService: exportSvc}
}

// ApproveSaleRequest is the financing plan chosen when approving a sale.
// Custom plans send entries; model plans send the amortization fields.
type ApproveSaleRequest struct {
	Model             string                  `json:"model"`
	Frequency         string                  `json:"frequency"`
	AnnualRatePercent float64                 `json:"annual_rate_percent"`
	Installments      int                     `json:"installments"`
	FirstDueDate      string                  `json:"first_due_date"`
	Entries           []financing.CustomEntry `json:"entries"`
	MoratoryRate      *float64                `json:"moratory_rate"`
}

type RejectSaleRequest struct {
	Reason string `json:"reason"`
}

type CancelSaleRequest struct {
	Note string `json:"note"`
}

func auditContext(c *gin.Context) services.AuditContext {
	return services.AuditContext{
		ActorID:   middleware.GetUserID(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func (r ApproveSaleRequest) plan() (services.FinancingPlan, error) {
	plan := services.FinancingPlan{
		Model:             strings.ToUpper(strings.TrimSpace(r.Model)),
		Frequency:         financing.Frequency(strings.ToUpper(r.Frequency)),
		AnnualRatePercent: r.AnnualRatePercent,
		Installments:      r.Installments,
		CustomEntries:     r.Entries,
		MoratoryRate:      r.MoratoryRate,
	}
	if r.MoratoryRate != nil && *r.MoratoryRate < 0 {
		return plan, &financing.ValidationError{Field: "moratory_rate", Message: "la tasa moratoria no puede ser negativa"}
	}
	if !plan.IsCustom() {
		firstDue, err := parseDate("first_due_date", r.FirstDueDate)
		if err != nil {
			return plan, err
		}
		plan.FirstDueDate = firstDue
	}
	return plan, nil
}

// @Summary Approve sale
// @Description Approve a draft sale and generate its installment schedule (Admin)
// @Tags Sales
// @Accept json
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Param request body ApproveSaleRequest true "Financing plan"
// @Success 200 {object} models.SaleResponse
// @Security BearerAuth
// @Router /sales/{sale_id}/approve [post]
func (h *SaleHandler) Approve(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	var req ApproveSaleRequest
	if err := BindNestedOrFlat(c, "plan", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, err := req.plan()
	if err != nil {
		respondError(c, err)
		return
	}

	sale, err := h.saleService.Approve(c.Request.Context(), id, plan, auditContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale.ToResponse(), "message": "Venta aprobada"})
}

// @Summary Reject sale
// @Tags Sales
// @Accept json
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Param request body RejectSaleRequest true "Reason"
// @Success 200 {object} models.SaleResponse
// @Security BearerAuth
// @Router /sales/{sale_id}/reject [post]
func (h *SaleHandler) Reject(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	var req RejectSaleRequest
	_ = c.ShouldBindJSON(&req)

	sale, err := h.saleService.Reject(c.Request.Context(), id, req.Reason, auditContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale.ToResponse(), "message": "Venta rechazada"})
}

// @Summary Cancel sale
// @Tags Sales
// @Accept json
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Param request body CancelSaleRequest true "Note"
// @Success 200 {object} models.SaleResponse
// @Security BearerAuth
// @Router /sales/{sale_id}/cancel [post]
func (h *SaleHandler) Cancel(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	var req CancelSaleRequest
	_ = c.ShouldBindJSON(&req)

	sale, err := h.saleService.Cancel(c.Request.Context(), id, req.Note, auditContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale.ToResponse(), "message": "Venta cancelada"})
}

// @Summary Sale installments
// @Tags Sales
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /sales/{sale_id}/installments [get]
func (h *SaleHandler) Installments(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	installments, err := h.saleService.Installments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	responses := make([]models.InstallmentResponse, len(installments))
	for i := range installments {
		responses[i] = installments[i].ToResponse(now)
	}
	c.JSON(http.StatusOK, gin.H{"sale_id": id, "installments": responses})
}

// @Summary Export installments
// @Description Download the stored schedule as an XLSX workbook
// @Tags Sales
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param sale_id path int true "Sale ID"
// @Security BearerAuth
// @Router /sales/{sale_id}/installments/export [get]
func (h *SaleHandler) Export(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	data, filename, err := h.exportService.ExportInstallmentsXLSX(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// @Summary Sale ledger
// @Tags Sales
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Success 200 {object} services.SaleLedger
// @Security BearerAuth
// @Router /sales/{sale_id}/ledger [get]
func (h *SaleHandler) Ledger(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	ledger, err := h.saleService.Ledger(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}

// @Summary Moratory summary
// @Description Principal and moratory owed on the overdue part of the schedule
// @Tags Sales
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Param as_of query string false "Evaluation date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} financing.MoratorySummary
// @Security BearerAuth
// @Router /sales/{sale_id}/moratory [get]
func (h *SaleHandler) MoratorySummary(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	asOf, ok := asOfQuery(c)
	if !ok {
		return
	}
	summary, err := h.moratoryService.Summary(c.Request.Context(), id, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Recalculate moratory interest
// @Description Accrue moratory interest on the unpaid installments of a sale (Admin)
// @Tags Sales
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Param as_of query string false "Evaluation date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} services.Recalculation
// @Security BearerAuth
// @Router /sales/{sale_id}/moratory/recalculate [post]
func (h *SaleHandler) RecalculateMoratory(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	asOf, ok := asOfQuery(c)
	if !ok {
		return
	}
	result, err := h.moratoryService.Recalculate(c.Request.Context(), id, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func asOfQuery(c *gin.Context) (time.Time, bool) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now(), true
	}
	asOf, err := parseDate("as_of", raw)
	if err != nil {
		respondError(c, err)
		return time.Time{}, false
	}
	return asOf, true
}
