package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/repository"
	"gorm.io/gorm"
)

// memState is one snapshot of the fake database
type memState struct {
	nextID       uint
	sales        map[uint]models.Sale
	installments map[uint]models.Installment
	payments     []models.InstallmentPayment
	ledger       []models.SaleLedgerEntry
	audits       []models.AuditLog
}

func (s *memState) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:       s.nextID,
		sales:        make(map[uint]models.Sale, len(s.sales)),
		installments: make(map[uint]models.Installment, len(s.installments)),
		payments:     append([]models.InstallmentPayment(nil), s.payments...),
		ledger:       append([]models.SaleLedgerEntry(nil), s.ledger...),
		audits:       append([]models.AuditLog(nil), s.audits...),
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.installments {
		c.installments[k] = v
	}
	return c
}

// memStore is an in-memory stand-in for the database. Transactions run one
// at a time on a copy of the state that replaces the live state on commit,
// so a failed unit of work leaves nothing behind. Because txMu already
// serializes every transaction, tests here cannot observe what the per-sale
// keyedMutex adds; locks_test.go exercises it directly.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex
	state  *memState

	// failures makes the named operation return the given error
	failures map[string]error
	// rowLocks records every FOR UPDATE read, in call order
	rowLocks []string
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			sales:        map[uint]models.Sale{},
			installments: map[uint]models.Installment{},
		},
		failures: map[string]error{},
	}
}

func (m *memStore) repositories() *repository.Repositories {
	return reposOver(&memView{store: m})
}

func (m *memStore) WithinTransaction(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.dataMu.Lock()
	work := m.state.clone()
	m.dataMu.Unlock()

	if err := fn(reposOver(&memView{store: m, tx: work})); err != nil {
		return err
	}

	m.dataMu.Lock()
	m.state = work
	m.dataMu.Unlock()
	return nil
}

// snapshot returns a copy of the committed state for assertions
func (m *memStore) snapshot() *memState {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	return m.state.clone()
}

func (m *memStore) addSale(sale models.Sale) uint {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	sale.ID = m.state.id()
	sale.Installments = nil
	m.state.sales[sale.ID] = sale
	return sale.ID
}

func (m *memStore) addInstallment(inst models.Installment) uint {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	inst.ID = m.state.id()
	m.state.installments[inst.ID] = inst
	return inst.ID
}

func (m *memStore) recordLock(what string) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	m.rowLocks = append(m.rowLocks, what)
}

// lockOrder returns the recorded FOR UPDATE reads and resets the log
func (m *memStore) lockOrder() []string {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	out := m.rowLocks
	m.rowLocks = nil
	return out
}

func (m *memStore) installment(id uint) models.Installment {
	return m.snapshot().installments[id]
}

func (m *memStore) sale(id uint) models.Sale {
	return m.snapshot().sales[id]
}

func reposOver(v *memView) *repository.Repositories {
	return &repository.Repositories{
		Sale:        &memSaleRepo{v},
		Installment: &memInstallmentRepo{v},
		Payment:     &memPaymentRepo{v},
		Ledger:      &memLedgerRepo{v},
		Audit:       &memAuditRepo{v},
	}
}

// memView reads the live state, or the transaction copy when tx is set
type memView struct {
	store *memStore
	tx    *memState
}

func (v *memView) do(op string, fn func(st *memState) error) error {
	if err, ok := v.store.failures[op]; ok {
		return err
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.dataMu.Lock()
	defer v.store.dataMu.Unlock()
	return fn(v.store.state)
}

type memSaleRepo struct{ v *memView }

func (r *memSaleRepo) FindByID(ctx context.Context, id uint) (*models.Sale, error) {
	var out *models.Sale
	err := r.v.do("sale.find", func(st *memState) error {
		sale, ok := st.sales[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &sale
		return nil
	})
	return out, err
}

func (r *memSaleRepo) FindByIDForUpdate(ctx context.Context, id uint) (*models.Sale, error) {
	r.v.store.recordLock("sale")
	return r.FindByID(ctx, id)
}

func (r *memSaleRepo) FindByIDWithInstallments(ctx context.Context, id uint) (*models.Sale, error) {
	sale, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Installments, err = (&memInstallmentRepo{r.v}).FindBySale(ctx, id)
	return sale, err
}

func (r *memSaleRepo) Update(ctx context.Context, sale *models.Sale) error {
	return r.v.do("sale.update", func(st *memState) error {
		stored := *sale
		stored.Installments = nil
		stored.UpdatedAt = time.Now()
		st.sales[sale.ID] = stored
		return nil
	})
}

type memInstallmentRepo struct{ v *memView }

func (r *memInstallmentRepo) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	var out *models.Installment
	err := r.v.do("installment.find", func(st *memState) error {
		inst, ok := st.installments[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &inst
		return nil
	})
	return out, err
}

func (r *memInstallmentRepo) FindBySale(ctx context.Context, saleID uint) ([]models.Installment, error) {
	var out []models.Installment
	err := r.v.do("installment.list", func(st *memState) error {
		for _, inst := range st.installments {
			if inst.SaleID == saleID {
				out = append(out, inst)
			}
		}
		sort.Slice(out, func(a, b int) bool { return out[a].Number < out[b].Number })
		return nil
	})
	return out, err
}

func (r *memInstallmentRepo) FindBySaleForUpdate(ctx context.Context, saleID uint) ([]models.Installment, error) {
	r.v.store.recordLock("installments")
	return r.FindBySale(ctx, saleID)
}

func (r *memInstallmentRepo) CountBySale(ctx context.Context, saleID uint) (int64, error) {
	list, err := r.FindBySale(ctx, saleID)
	return int64(len(list)), err
}

func (r *memInstallmentRepo) CreateBatch(ctx context.Context, installments []models.Installment) error {
	return r.v.do("installment.create", func(st *memState) error {
		for i := range installments {
			installments[i].ID = st.id()
			st.installments[installments[i].ID] = installments[i]
		}
		return nil
	})
}

func (r *memInstallmentRepo) Update(ctx context.Context, installment *models.Installment) error {
	return r.v.do("installment.update", func(st *memState) error {
		stored := *installment
		stored.Sale = nil
		stored.Payments = nil
		st.installments[installment.ID] = stored
		return nil
	})
}

func (r *memInstallmentRepo) FindSaleIDsWithOverdue(ctx context.Context, asOf time.Time) ([]uint, error) {
	var out []uint
	err := r.v.do("installment.overdue", func(st *memState) error {
		seen := map[uint]bool{}
		for _, inst := range st.installments {
			sale := st.sales[inst.SaleID]
			if seen[inst.SaleID] || sale.Status != models.SaleStatusApproved {
				continue
			}
			if inst.Status != models.InstallmentStatusPaid && inst.DueDate.Before(asOf) {
				seen[inst.SaleID] = true
				out = append(out, inst.SaleID)
			}
		}
		sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
		return nil
	})
	return out, err
}

type memPaymentRepo struct{ v *memView }

func (r *memPaymentRepo) Create(ctx context.Context, payment *models.InstallmentPayment) error {
	return r.v.do("payment.create", func(st *memState) error {
		payment.ID = st.id()
		payment.CreatedAt = time.Now()
		st.payments = append(st.payments, *payment)
		return nil
	})
}

func (r *memPaymentRepo) FindByInstallment(ctx context.Context, installmentID uint) ([]models.InstallmentPayment, error) {
	var out []models.InstallmentPayment
	err := r.v.do("payment.list", func(st *memState) error {
		for _, p := range st.payments {
			if p.InstallmentID == installmentID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

type memLedgerRepo struct{ v *memView }

func (r *memLedgerRepo) Create(ctx context.Context, entry *models.SaleLedgerEntry) error {
	return r.v.do("ledger.create", func(st *memState) error {
		entry.ID = st.id()
		st.ledger = append(st.ledger, *entry)
		return nil
	})
}

func (r *memLedgerRepo) FindBySaleID(ctx context.Context, saleID uint) ([]models.SaleLedgerEntry, error) {
	var out []models.SaleLedgerEntry
	err := r.v.do("ledger.list", func(st *memState) error {
		for _, e := range st.ledger {
			if e.SaleID == saleID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (r *memLedgerRepo) CalculateBalance(ctx context.Context, saleID uint) (float64, error) {
	entries, err := r.FindBySaleID(ctx, saleID)
	total := 0.0
	for _, e := range entries {
		total += e.Amount
	}
	return total, err
}

func (r *memLedgerRepo) FindOrCreateByInstallmentAndType(ctx context.Context, entry *models.SaleLedgerEntry) error {
	return r.v.do("ledger.create", func(st *memState) error {
		for i, e := range st.ledger {
			if e.InstallmentID != nil && entry.InstallmentID != nil &&
				*e.InstallmentID == *entry.InstallmentID && e.EntryType == entry.EntryType {
				st.ledger[i].Amount = entry.Amount
				st.ledger[i].Description = entry.Description
				st.ledger[i].EntryDate = entry.EntryDate
				*entry = st.ledger[i]
				return nil
			}
		}
		entry.ID = st.id()
		st.ledger = append(st.ledger, *entry)
		return nil
	})
}

type memAuditRepo struct{ v *memView }

func (r *memAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.v.do("audit.create", func(st *memState) error {
		entry.ID = st.id()
		st.audits = append(st.audits, *entry)
		return nil
	})
}

func (r *memAuditRepo) FindByEntity(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	var out []models.AuditLog
	err := r.v.do("audit.list", func(st *memState) error {
		for i := len(st.audits) - 1; i >= 0; i-- {
			if a := st.audits[i]; a.Entity == entity && a.EntityID == entityID {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}
