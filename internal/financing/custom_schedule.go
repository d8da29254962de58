package financing

import (
	"math"
	"sort"
	"time"

	"github.com/sjperalta/fintera-financing/pkg/money"
)

// DateLayout is the wire format of custom schedule dates.
const DateLayout = "2006-01-02"

// CustomEntry is one irregular installment as entered by the seller.
type CustomEntry struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// CustomScheduleInput is an irregular plan plus the rate used to overlay
// interest on it.
type CustomScheduleInput struct {
	Entries           []CustomEntry `json:"entries"`
	AnnualRatePercent float64       `json:"annual_rate_percent"`
	TotalAmount       float64       `json:"total_amount"`
	// Today is the accrual reference date. Zero means time.Now(); the
	// result therefore changes when the same plan is recalculated later.
	Today time.Time `json:"-"`
}

// CustomScheduleResult is the interest-adjusted projection of a custom plan.
type CustomScheduleResult struct {
	DailyRate     float64         `json:"daily_rate"`
	ReferenceDate time.Time       `json:"reference_date"`
	TotalBase     float64         `json:"total_base"`
	TotalInterest float64         `json:"total_interest"`
	TotalPayable  float64         `json:"total_payable"`
	Entries       []ScheduleEntry `json:"entries"`
}

// DailyRate converts an annual percentage into a simple daily rate.
func DailyRate(annualRatePercent float64) float64 {
	return annualRatePercent / 365 / 100
}

// ValidateCustomSchedule checks, in order, that the base amounts add up to
// target within one cent, that every date parses, and that the dates are
// strictly increasing. It returns the parsed dates.
func ValidateCustomSchedule(entries []CustomEntry, target float64) ([]time.Time, error) {
	if len(entries) == 0 {
		return nil, invalid("entries", "el plan debe tener al menos una cuota")
	}
	if !money.IsPositive(target) {
		return nil, invalid("total_amount", "el monto a financiar debe ser mayor que cero")
	}

	amounts := make([]float64, len(entries))
	for i, e := range entries {
		if math.IsNaN(e.Amount) || !money.IsPositive(e.Amount) {
			return nil, invalid("entries", "la cuota %d debe tener un monto mayor que cero", i+1)
		}
		amounts[i] = e.Amount
	}

	sum := money.Sum(amounts...)
	if !money.ApproxLTE(math.Abs(money.Sub(sum, target)), 0, money.Tolerance) {
		return nil, &ScheduleMismatchError{
			Computed:   sum,
			Target:     money.Round2(target),
			Difference: money.Round2(math.Abs(money.Sub(sum, target))),
		}
	}

	dates := make([]time.Time, len(entries))
	for i, e := range entries {
		d, err := time.Parse(DateLayout, e.Date)
		if err != nil {
			return nil, invalid("entries", "la fecha %q de la cuota %d no es válida", e.Date, i+1)
		}
		dates[i] = d
	}

	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, invalid("entries", "las fechas deben ser crecientes: la cuota %d (%s) no es posterior a la cuota %d (%s)",
				i+1, entries[i].Date, i, entries[i-1].Date)
		}
	}

	return dates, nil
}

// CustomSchedule validates in and overlays simple daily interest on every
// entry: interest_i = remaining * dailyRate * days(today, date_i). The
// remaining balance is reduced by the base amount only; interest is a
// surcharge, not principal.
func CustomSchedule(in CustomScheduleInput) (*CustomScheduleResult, error) {
	if math.IsNaN(in.AnnualRatePercent) || in.AnnualRatePercent < 0 {
		return nil, invalid("annual_rate_percent", "la tasa anual no puede ser negativa")
	}
	dates, err := ValidateCustomSchedule(in.Entries, in.TotalAmount)
	if err != nil {
		return nil, err
	}

	today := in.Today
	if today.IsZero() {
		today = time.Now()
	}

	type dated struct {
		date   time.Time
		amount float64
	}
	rows := make([]dated, len(dates))
	for i := range dates {
		rows[i] = dated{date: dates[i], amount: money.Round2(in.Entries[i].Amount)}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	daily := DailyRate(in.AnnualRatePercent)
	result := &CustomScheduleResult{
		DailyRate:     daily,
		ReferenceDate: DateOnly(today),
		Entries:       make([]ScheduleEntry, 0, len(rows)),
	}

	remaining := money.Round2(in.TotalAmount)
	for i, row := range rows {
		interest := money.Round2(math.Max(0, remaining*daily*float64(daysBetween(today, row.date))))
		closing := money.Sub(remaining, row.amount)

		result.Entries = append(result.Entries, ScheduleEntry{
			Number:         i + 1,
			DueDate:        row.date,
			OpeningBalance: remaining,
			Principal:      row.amount,
			Interest:       interest,
			Installment:    money.Add(row.amount, interest),
			ClosingBalance: closing,
		})

		result.TotalBase = money.Add(result.TotalBase, row.amount)
		result.TotalInterest = money.Add(result.TotalInterest, interest)
		remaining = closing
	}
	result.TotalPayable = money.Add(result.TotalBase, result.TotalInterest)

	return result, nil
}
