package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsApplied counts payments committed against an installment
	PaymentsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintera_payments_applied_total",
			Help: "Pagos de cuotas aplicados",
		},
	)

	// PaymentRejections counts payments refused by a business rule or a storage failure
	PaymentRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintera_payment_rejections_total",
			Help: "Pagos de cuotas rechazados, por motivo",
		},
		[]string{"reason"},
	)

	// SchedulesGenerated counts materialized or previewed installment plans
	SchedulesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintera_schedules_generated_total",
			Help: "Planes de cuotas generados, por modelo",
		},
		[]string{"model"},
	)

	// MoratoryRecalculations counts per-sale moratory recalculations
	MoratoryRecalculations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintera_moratory_recalculations_total",
			Help: "Recalculos de interés moratorio por venta",
		},
	)

	// PaymentApplyDuration observes the latency of ApplyPayment
	PaymentApplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fintera_payment_apply_seconds",
			Help:    "Duración de la aplicación de un pago",
			Buckets: prometheus.DefBuckets,
		},
	)
)
