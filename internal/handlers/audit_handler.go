package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/services"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary Sale audit trail
// @Description Approvals, payments, recalculations and closure recorded for a sale (Admin)
// @Tags Audit
// @Produce json
// @Param sale_id path int true "Sale ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /sales/{sale_id}/audit [get]
func (h *AuditHandler) SaleHistory(c *gin.Context) {
	id, ok := idParam(c, "sale_id")
	if !ok {
		return
	}
	logs, err := h.auditService.History(c.Request.Context(), models.AuditEntitySale, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale_id": id, "audits": logs})
}
