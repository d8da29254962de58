package financing

import (
	"math"
	"time"

	"github.com/sjperalta/fintera-financing/pkg/money"
)

// Model selects how principal and interest are split across installments.
type Model string

const (
	// ModelFrench keeps the total installment fixed (annuity).
	ModelFrench Model = "FRENCH"
	// ModelGerman keeps the principal share fixed; interest declines.
	ModelGerman Model = "GERMAN"
	// ModelJapanese keeps the principal share fixed and charges a flat
	// interest computed once on the original principal.
	ModelJapanese Model = "JAPANESE"
)

// Valid reports whether m is a supported amortization model.
func (m Model) Valid() bool {
	switch m {
	case ModelFrench, ModelGerman, ModelJapanese:
		return true
	}
	return false
}

// ScheduleEntry is one projected installment. It is not persisted; once the
// installment set is materialized the stored installment is the source of
// truth.
type ScheduleEntry struct {
	Number         int       `json:"number"`
	DueDate        time.Time `json:"due_date"`
	OpeningBalance float64   `json:"opening_balance"`
	Principal      float64   `json:"principal"`
	Interest       float64   `json:"interest"`
	Installment    float64   `json:"installment"`
	ClosingBalance float64   `json:"closing_balance"`
}

// AmortizationInput describes a financing plan with evenly spaced periods.
type AmortizationInput struct {
	Principal         float64   `json:"principal"`
	AnnualRatePercent float64   `json:"annual_rate_percent"`
	Installments      int       `json:"installments"`
	Frequency         Frequency `json:"frequency"`
	FirstDueDate      time.Time `json:"first_due_date"`
	Model             Model     `json:"model"`
}

// Validate rejects malformed input before any computation.
func (in AmortizationInput) Validate() error {
	if math.IsNaN(in.Principal) || math.IsInf(in.Principal, 0) || !money.IsPositive(in.Principal) {
		return invalid("principal", "el capital debe ser mayor que cero")
	}
	if math.IsNaN(in.AnnualRatePercent) || math.IsInf(in.AnnualRatePercent, 0) || in.AnnualRatePercent < 0 {
		return invalid("annual_rate_percent", "la tasa anual no puede ser negativa")
	}
	if in.Installments < 1 {
		return invalid("installments", "debe haber al menos una cuota")
	}
	if !in.Frequency.Valid() {
		return invalid("frequency", "frecuencia no soportada: %q", in.Frequency)
	}
	if !in.Model.Valid() {
		return invalid("model", "modelo de amortización no soportado: %q", in.Model)
	}
	if in.FirstDueDate.IsZero() {
		return invalid("first_due_date", "la fecha de la primera cuota es requerida")
	}
	return nil
}

// Amortization is the projected schedule plus its aggregates.
type Amortization struct {
	Model             Model           `json:"model"`
	Frequency         Frequency       `json:"frequency"`
	PeriodRate        float64         `json:"period_rate"`
	InstallmentAmount float64         `json:"installment_amount"`
	TotalPrincipal    float64         `json:"total_principal"`
	TotalInterest     float64         `json:"total_interest"`
	TotalPayable      float64         `json:"total_payable"`
	Entries           []ScheduleEntry `json:"entries"`
}

// Amortize projects the full schedule for in. The running balance is carried
// at full precision and only the projected figures are rounded, so the
// principal shares telescope to the financed amount and the final closing
// balance lands on zero without a special case for the last period.
//
// Amortize reads no clock; identical input yields an identical schedule.
func Amortize(in AmortizationInput) (*Amortization, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	n := in.Installments
	principal := in.Principal
	rate := EffectiveRate(in.AnnualRatePercent, in.Frequency)

	var annuity float64
	if in.Model == ModelFrench && rate > 0 {
		factor := math.Pow(1+rate, float64(n))
		annuity = principal * rate * factor / (factor - 1)
	}
	evenShare := principal / float64(n)
	flatInterest := principal * rate

	result := &Amortization{
		Model:          in.Model,
		Frequency:      in.Frequency,
		PeriodRate:     rate,
		TotalPrincipal: money.Round2(principal),
		Entries:        make([]ScheduleEntry, 0, n),
	}

	balance := principal
	opening := money.Round2(principal)
	interestTotal := 0.0
	payableTotal := 0.0

	for i := 1; i <= n; i++ {
		var interestRaw float64
		switch {
		case rate == 0:
		case in.Model == ModelFrench, in.Model == ModelGerman:
			interestRaw = balance * rate
		case in.Model == ModelJapanese:
			interestRaw = flatInterest
		}

		// The remaining balance is derived from the period index rather than
		// by repeated subtraction; for annuities the recursive form loses all
		// precision once (1+r)^n grows large.
		remaining := float64(n - i)
		if in.Model == ModelFrench && rate > 0 {
			balance = annuity * (1 - math.Pow(1+rate, -remaining)) / rate
		} else {
			balance = evenShare * remaining
		}
		closing := money.Round2(balance)
		principalShare := money.Sub(opening, closing)

		// Interest comes from the unrounded opening balance; for annuities the
		// rounding cent lands in the installment, never in interest.
		interest := money.Round2(interestRaw)
		installment := money.Add(principalShare, interest)

		result.Entries = append(result.Entries, ScheduleEntry{
			Number:         i,
			DueDate:        AddMonths(in.FirstDueDate, (i-1)*in.Frequency.Months()),
			OpeningBalance: opening,
			Principal:      principalShare,
			Interest:       interest,
			Installment:    installment,
			ClosingBalance: closing,
		})

		interestTotal = money.Add(interestTotal, interest)
		payableTotal = money.Add(payableTotal, installment)
		opening = closing
	}

	result.TotalInterest = interestTotal
	result.TotalPayable = payableTotal
	result.InstallmentAmount = result.Entries[0].Installment
	if in.Model == ModelFrench && rate > 0 {
		result.InstallmentAmount = money.Round2(annuity)
	}

	return result, nil
}
