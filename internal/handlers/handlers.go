package handlers

import (
	"github.com/sjperalta/fintera-financing/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health    *HealthHandler
	Financing *FinancingHandler
	Sale      *SaleHandler
	Payment   *PaymentHandler
	Audit     *AuditHandler
	Job       *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, ping Pinger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(ping),
		Financing: NewFinancingHandler(svcs.Schedule, svcs.Moratory),
		Sale:      NewSaleHandler(svcs.Sale, svcs.Moratory, svcs.Export),
		Payment:   NewPaymentHandler(svcs.Payment),
		Audit:     NewAuditHandler(svcs.Audit),
		Job:       NewJobHandler(svcs.Job),
	}
}
