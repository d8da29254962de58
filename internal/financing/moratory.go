package financing

import (
	"math"
	"time"

	"github.com/sjperalta/fintera-financing/pkg/money"
)

// DefaultPenaltyRate is the annual moratory rate, in percent, applied when a
// sale does not carry its own.
const DefaultPenaltyRate = 24.0

// DaysLate returns the whole days elapsed from due to evaluation, or 0 when
// evaluation is not after due.
func DaysLate(due, evaluation time.Time) int {
	if !evaluation.After(due) {
		return 0
	}
	return int(math.Floor(evaluation.Sub(due).Hours() / 24))
}

// MoratoryInterest accrues late-payment interest on overdueBalance as simple,
// non-compounding daily interest:
//
//	round2(balance * rate/365/100 * daysLate)
func MoratoryInterest(overdueBalance float64, dueDate, evaluationDate time.Time, annualPenaltyRate float64) float64 {
	days := DaysLate(dueDate, evaluationDate)
	if days == 0 || overdueBalance <= 0 || annualPenaltyRate <= 0 {
		return 0
	}
	return money.Round2(overdueBalance * DailyRate(annualPenaltyRate) * float64(days))
}

// MoratorySummary aggregates what is owed on the overdue part of a schedule.
type MoratorySummary struct {
	EvaluationDate      time.Time `json:"evaluation_date"`
	OverdueInstallments int       `json:"overdue_installments"`
	PrincipalBalance    float64   `json:"principal_balance"`
	MoratoryInterest    float64   `json:"moratory_interest"`
	TotalOwed           float64   `json:"total_owed"`
}

// TotalWithMoratory walks the entries whose due date has passed and whose
// closing balance is still positive, adding up their individual moratory
// charges. The principal balance is the closing balance of the last such
// entry; closing balances are already cumulative so they are not summed.
func TotalWithMoratory(entries []ScheduleEntry, evaluationDate time.Time, annualPenaltyRate float64) MoratorySummary {
	summary := MoratorySummary{EvaluationDate: evaluationDate}

	for _, e := range entries {
		if !evaluationDate.After(e.DueDate) || !money.IsPositive(e.ClosingBalance) {
			continue
		}
		charge := MoratoryInterest(e.Installment, e.DueDate, evaluationDate, annualPenaltyRate)
		summary.MoratoryInterest = money.Add(summary.MoratoryInterest, charge)
		summary.PrincipalBalance = e.ClosingBalance
		summary.OverdueInstallments++
	}

	summary.TotalOwed = money.Add(summary.PrincipalBalance, summary.MoratoryInterest)
	return summary
}
