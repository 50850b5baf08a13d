package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"repair-system/internal/entities"
	"repair-system/internal/repositories"
	"repair-system/pkg/contextkeys"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/types"
)

// Общие in-memory фейки для сервисных тестов. Транзакции выполняются
// с nil pgx.Tx: фейковые репозитории его не используют.

func adminCtx() context.Context {
	return userCtx(1, entities.RoleAdministrator)
}

func userCtx(id uint64, role string) context.Context {
	ctx := context.WithValue(context.Background(), contextkeys.UserIDKey, id)
	return context.WithValue(ctx, contextkeys.UserRoleKey, role)
}

type fakeTxManager struct{}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeEquipmentRepo struct {
	items  map[uint64]*entities.Equipment
	nextID uint64
}

func newFakeEquipmentRepo() *fakeEquipmentRepo {
	return &fakeEquipmentRepo{items: make(map[uint64]*entities.Equipment), nextID: 1}
}

func (r *fakeEquipmentRepo) CreateInTx(ctx context.Context, tx pgx.Tx, e *entities.Equipment) (uint64, error) {
	id := r.nextID
	r.nextID++
	stored := *e
	stored.ID = id
	r.items[id] = &stored
	return id, nil
}

func (r *fakeEquipmentRepo) NextCodeSequenceInTx(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	count := 0
	for _, e := range r.items {
		if e.EntryDate.Year() == day.Year() && e.EntryDate.YearDay() == day.YearDay() {
			count++
		}
	}
	return count + 1, nil
}

func (r *fakeEquipmentRepo) FindByID(ctx context.Context, id uint64) (*entities.Equipment, error) {
	e, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEquipmentRepo) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeEquipmentRepo) UpdateStateInTx(ctx context.Context, tx pgx.Tx, e *entities.Equipment) error {
	stored, ok := r.items[e.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != e.Version {
		return apperrors.NewStateConflictError("состояние оборудования изменилось, повторите запрос")
	}
	updated := *e
	updated.Version = stored.Version + 1
	r.items[e.ID] = &updated
	return nil
}

func (r *fakeEquipmentRepo) List(ctx context.Context, filter entities.EquipmentFilter) ([]entities.Equipment, uint64, error) {
	var result []entities.Equipment
	for _, e := range r.items {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		result = append(result, *e)
	}
	return result, uint64(len(result)), nil
}

type fakeHistoryRepo struct {
	entries []entities.EquipmentStatusHistory
}

func (r *fakeHistoryRepo) CreateInTx(ctx context.Context, tx pgx.Tx, h *entities.EquipmentStatusHistory) error {
	stored := *h
	stored.ID = uint64(len(r.entries) + 1)
	r.entries = append(r.entries, stored)
	return nil
}

func (r *fakeHistoryRepo) FindByEquipmentID(ctx context.Context, equipmentID uint64) ([]repositories.StatusHistoryItem, error) {
	var result []repositories.StatusHistoryItem
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].EquipmentID != equipmentID {
			continue
		}
		result = append(result, repositories.StatusHistoryItem{EquipmentStatusHistory: r.entries[i]})
	}
	return result, nil
}

type fakePaymentRepo struct {
	items  []entities.Payment
	nextID uint64
}

func newFakePaymentRepo() *fakePaymentRepo { return &fakePaymentRepo{nextID: 1} }

func (r *fakePaymentRepo) Create(ctx context.Context, p *entities.Payment) (uint64, error) {
	id := r.nextID
	r.nextID++
	stored := *p
	stored.ID = id
	r.items = append(r.items, stored)
	return id, nil
}

func (r *fakePaymentRepo) CreateInTx(ctx context.Context, tx pgx.Tx, p *entities.Payment) (uint64, error) {
	return r.Create(ctx, p)
}

func (r *fakePaymentRepo) FindByID(ctx context.Context, id uint64) (*entities.Payment, error) {
	for i := range r.items {
		if r.items[i].ID == id {
			copied := r.items[i]
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakePaymentRepo) FindByEquipmentID(ctx context.Context, equipmentID uint64) ([]entities.Payment, error) {
	var result []entities.Payment
	for _, p := range r.items {
		if p.EquipmentID == equipmentID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakePaymentRepo) FindByEquipmentIDInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64) ([]entities.Payment, error) {
	return r.FindByEquipmentID(ctx, equipmentID)
}

func (r *fakePaymentRepo) Update(ctx context.Context, p *entities.Payment) error {
	for i := range r.items {
		if r.items[i].ID == p.ID {
			r.items[i] = *p
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type fakeExpenseRepo struct {
	items   []entities.Expense
	nextID  uint64
	failFor map[string]bool
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{nextID: 1, failFor: make(map[string]bool)}
}

func (r *fakeExpenseRepo) Create(ctx context.Context, e *entities.Expense) (uint64, error) {
	if r.failFor[e.Beneficiary] {
		return 0, fmt.Errorf("ошибка записи расхода")
	}
	id := r.nextID
	r.nextID++
	stored := *e
	stored.ID = id
	r.items = append(r.items, stored)
	return id, nil
}

func (r *fakeExpenseRepo) CreateInTx(ctx context.Context, tx pgx.Tx, e *entities.Expense) (uint64, error) {
	return r.Create(ctx, e)
}

func (r *fakeExpenseRepo) List(ctx context.Context, from, to *time.Time, expenseType string, limit, offset int) ([]entities.Expense, uint64, error) {
	return r.items, uint64(len(r.items)), nil
}

func (r *fakeExpenseRepo) SalaryTotalByBeneficiary(ctx context.Context, beneficiary string, from, to time.Time) (float64, error) {
	var total float64
	for _, e := range r.items {
		if e.Type == entities.ExpenseTypeSalary && e.Beneficiary == beneficiary &&
			!e.ExpenseDate.Before(from) && !e.ExpenseDate.After(to) {
			total += e.Amount
		}
	}
	return total, nil
}

func (r *fakeExpenseRepo) RefundTotalByEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64) (float64, error) {
	var total float64
	for _, e := range r.items {
		if e.RefundKey.Valid && e.EquipmentID.Valid && uint64(e.EquipmentID.Int64) == equipmentID {
			total += e.Amount
		}
	}
	return total, nil
}

type fakeUserRepo struct {
	users map[uint64]*entities.User
}

func newFakeUserRepo(users ...entities.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uint64]*entities.User)}
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
	}
	return r
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint64) (*entities.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindByLogin(ctx context.Context, login string) (*entities.User, error) {
	for _, u := range r.users {
		if u.Login == login {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) ListTechnicians(ctx context.Context, onlyActive bool) ([]entities.User, error) {
	var result []entities.User
	for id := uint64(1); id <= uint64(len(r.users))+10; id++ {
		u, ok := r.users[id]
		if !ok || u.Role != entities.RoleTechnician {
			continue
		}
		if onlyActive && u.Status != entities.UserStatusActive {
			continue
		}
		result = append(result, *u)
	}
	return result, nil
}

type fakeCustomerRepo struct {
	items  map[uint64]*entities.Customer
	nextID uint64
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{items: make(map[uint64]*entities.Customer), nextID: 1}
}

func (r *fakeCustomerRepo) Create(ctx context.Context, name, phone string) (uint64, error) {
	id := r.nextID
	r.nextID++
	r.items[id] = &entities.Customer{ID: id, Name: name, Phone: phone}
	return id, nil
}

func (r *fakeCustomerRepo) CreateInTx(ctx context.Context, tx pgx.Tx, name, phone string) (uint64, error) {
	return r.Create(ctx, name, phone)
}

func (r *fakeCustomerRepo) FindByID(ctx context.Context, id uint64) (*entities.Customer, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCustomerRepo) List(ctx context.Context, filter types.Filter) ([]entities.Customer, uint64, error) {
	var result []entities.Customer
	for _, c := range r.items {
		result = append(result, *c)
	}
	return result, uint64(len(result)), nil
}

type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{values: make(map[string]string)} }

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	switch v := value.(type) {
	case string:
		c.values[key] = v
	case []byte:
		c.values[key] = string(v)
	default:
		c.values[key] = fmt.Sprint(v)
	}
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", fmt.Errorf("ключ не найден")
	}
	return v, nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *fakeCache) Incr(ctx context.Context, key string) (int64, error) {
	var current int64
	fmt.Sscan(c.values[key], &current)
	current++
	c.values[key] = fmt.Sprint(current)
	return current, nil
}

type fakeFinanceRepo struct {
	payments  []entities.PaymentWithEquipment
	expenses  []entities.Expense
	pending   []entities.PaymentWithEquipment
	equipment []entities.Equipment
	inRepair  []repositories.RepairAgingItem

	paymentsCalls int64
}

func (r *fakeFinanceRepo) PaymentsBetween(ctx context.Context, from, to time.Time, technicianID uint64) ([]entities.PaymentWithEquipment, error) {
	atomic.AddInt64(&r.paymentsCalls, 1)
	var result []entities.PaymentWithEquipment
	for _, p := range r.payments {
		if p.PaymentDate.Before(from) || p.PaymentDate.After(to) {
			continue
		}
		if technicianID != 0 && (p.TechnicianID == nil || *p.TechnicianID != technicianID) {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (r *fakeFinanceRepo) ExpensesBetween(ctx context.Context, from, to time.Time) ([]entities.Expense, error) {
	var result []entities.Expense
	for _, e := range r.expenses {
		if e.ExpenseDate.Before(from) || e.ExpenseDate.After(to) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (r *fakeFinanceRepo) EquipmentEnteredBetween(ctx context.Context, from, to time.Time, filter entities.ReportFilter) ([]entities.Equipment, error) {
	var result []entities.Equipment
	for _, e := range r.equipment {
		if e.EntryDate.Before(from) || e.EntryDate.After(to) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (r *fakeFinanceRepo) PendingDeliveredPayments(ctx context.Context) ([]entities.PaymentWithEquipment, error) {
	return r.pending, nil
}

func (r *fakeFinanceRepo) EquipmentInRepair(ctx context.Context) ([]repositories.RepairAgingItem, error) {
	return r.inRepair, nil
}
