package services

import (
	"github.com/sjperalta/fintera-financing/internal/config"
	"github.com/sjperalta/fintera-financing/internal/jobs"
	"github.com/sjperalta/fintera-financing/internal/repository"
)

// Services holds all service instances
type Services struct {
	Schedule *ScheduleService
	Sale     *SaleService
	Payment  *PaymentService
	Moratory *MoratoryService
	Audit    *AuditService
	Export   *ExportService
	Job      *JobService
}

// NewServices creates all service instances. Sale, payment and moratory
// services share one lock table so work on a sale is serialized across them.
func NewServices(repos *repository.Repositories, tx repository.TxManager, worker *jobs.Worker, cfg *config.Config) *Services {
	locks := newKeyedMutex()
	auditSvc := NewAuditService(repos.Audit)
	scheduleSvc := NewScheduleService()
	saleSvc := NewSaleService(repos, tx, scheduleSvc, auditSvc, locks)
	moratorySvc := NewMoratoryService(repos, tx, locks, cfg.MoratoryAnnualRate)

	return &Services{
		Schedule: scheduleSvc,
		Sale:     saleSvc,
		Payment:  NewPaymentService(repos, tx, auditSvc, locks, cfg.MoratoryAnnualRate),
		Moratory: moratorySvc,
		Audit:    auditSvc,
		Export:   NewExportService(saleSvc),
		Job:      NewJobService(worker, moratorySvc),
	}
}
