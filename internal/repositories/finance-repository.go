package repositories

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"repair-system/internal/entities"
)

// RepairAgingItem - оборудование в ремонте с ФИО мастера, сырьё
// для расчёта просрочки.
type RepairAgingItem struct {
	entities.Equipment
	TechnicianFio sql.NullString
}

// FinanceRepositoryInterface - независимые read-only подзапросы
// финансового и операционного отчётов. Сервис запускает их параллельно
// и объединяет в памяти.
type FinanceRepositoryInterface interface {
	PaymentsBetween(ctx context.Context, from, to time.Time, technicianID uint64) ([]entities.PaymentWithEquipment, error)
	ExpensesBetween(ctx context.Context, from, to time.Time) ([]entities.Expense, error)
	EquipmentEnteredBetween(ctx context.Context, from, to time.Time, filter entities.ReportFilter) ([]entities.Equipment, error)
	PendingDeliveredPayments(ctx context.Context) ([]entities.PaymentWithEquipment, error)
	EquipmentInRepair(ctx context.Context) ([]RepairAgingItem, error)
}

type FinanceRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewFinanceRepository(storage *pgxpool.Pool, logger *zap.Logger) FinanceRepositoryInterface {
	return &FinanceRepository{storage: storage, logger: logger}
}

func (r *FinanceRepository) paymentsQuery() sq.SelectBuilder {
	return sq.Select(
		"p.id", "p.equipment_id", "p.total_amount", "p.advance_amount",
		"p.method", "p.observations", "p.payment_date",
		"e.code", "e.status", "e.entry_date", "e.delivery_date", "e.technician_id",
	).From("payments p").
		Join("equipment e ON e.id = p.equipment_id").
		PlaceholderFormat(sq.Dollar)
}

func (r *FinanceRepository) scanPaymentRows(ctx context.Context, b sq.SelectBuilder) ([]entities.PaymentWithEquipment, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []entities.PaymentWithEquipment
	for rows.Next() {
		var p entities.PaymentWithEquipment
		var delivery sql.NullTime
		var technicianID sql.NullInt64
		if err := rows.Scan(
			&p.ID, &p.EquipmentID, &p.TotalAmount, &p.AdvanceAmount,
			&p.Method, &p.Observations, &p.PaymentDate,
			&p.EquipmentCode, &p.EquipmentStatus, &p.EquipmentEntry, &delivery, &technicianID,
		); err != nil {
			return nil, err
		}
		if delivery.Valid {
			p.EquipmentDelivery = &delivery.Time
		}
		if technicianID.Valid {
			id := uint64(technicianID.Int64)
			p.TechnicianID = &id
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *FinanceRepository) PaymentsBetween(ctx context.Context, from, to time.Time, technicianID uint64) ([]entities.PaymentWithEquipment, error) {
	b := r.paymentsQuery().
		Where(sq.GtOrEq{"p.payment_date": from}).
		Where(sq.LtOrEq{"p.payment_date": to}).
		OrderBy("p.payment_date ASC, p.id ASC")
	if technicianID != 0 {
		b = b.Where(sq.Eq{"e.technician_id": technicianID})
	}
	return r.scanPaymentRows(ctx, b)
}

func (r *FinanceRepository) ExpensesBetween(ctx context.Context, from, to time.Time) ([]entities.Expense, error) {
	query, args, err := sq.Select(
		"id", "type", "amount", "beneficiary", "method", "description",
		"observations", "expense_date", "equipment_id", "refund_key",
		"created_at", "updated_at",
	).From("expenses").
		Where(sq.GtOrEq{"expense_date": from}).
		Where(sq.LtOrEq{"expense_date": to}).
		OrderBy("expense_date ASC, id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []entities.Expense
	for rows.Next() {
		var e entities.Expense
		if err := rows.Scan(
			&e.ID, &e.Type, &e.Amount, &e.Beneficiary, &e.Method, &e.Description,
			&e.Observations, &e.ExpenseDate, &e.EquipmentID, &e.RefundKey,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *FinanceRepository) EquipmentEnteredBetween(ctx context.Context, from, to time.Time, filter entities.ReportFilter) ([]entities.Equipment, error) {
	b := sq.Select(
		"e.id", "e.code", "e.type", "e.status", "e.flaw", "e.observations",
		"e.customer_id", "e.technician_id", "e.entry_date", "e.delivery_date", "e.version",
		"e.created_at", "e.updated_at",
	).From("equipment e").
		Where(sq.GtOrEq{"e.entry_date": from}).
		Where(sq.LtOrEq{"e.entry_date": to}).
		OrderBy("e.entry_date ASC, e.id ASC").
		PlaceholderFormat(sq.Dollar)

	if filter.TechnicianID != 0 {
		b = b.Where(sq.Eq{"e.technician_id": filter.TechnicianID})
	}
	if filter.Type != "" {
		b = b.Where(sq.Eq{"e.type": filter.Type})
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"e.status": filter.Status})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []entities.Equipment
	for rows.Next() {
		var e entities.Equipment
		if err := rows.Scan(
			&e.ID, &e.Code, &e.Type, &e.Status, &e.Flaw, &e.Observations,
			&e.CustomerID, &e.TechnicianID, &e.EntryDate, &e.DeliveryDate, &e.Version,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// PendingDeliveredPayments - полные платёжные книги выданного
// оборудования. Остаток по книге сводит сервис: доплата закрывает долг
// приёмной записи, поэтому фильтровать отдельные строки нельзя.
func (r *FinanceRepository) PendingDeliveredPayments(ctx context.Context) ([]entities.PaymentWithEquipment, error) {
	b := r.paymentsQuery().
		Where(sq.Eq{"e.status": entities.EquipmentStatusDelivered}).
		OrderBy("p.equipment_id ASC, p.payment_date ASC, p.id ASC")
	return r.scanPaymentRows(ctx, b)
}

func (r *FinanceRepository) EquipmentInRepair(ctx context.Context) ([]RepairAgingItem, error) {
	query, args, err := sq.Select(
		"e.id", "e.code", "e.type", "e.status", "e.flaw", "e.observations",
		"e.customer_id", "e.technician_id", "e.entry_date", "e.delivery_date", "e.version",
		"e.created_at", "e.updated_at",
		"u.fio",
	).From("equipment e").
		LeftJoin("users u ON u.id = e.technician_id").
		Where(sq.Eq{"e.status": entities.EquipmentStatusRepair}).
		OrderBy("e.entry_date ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []RepairAgingItem
	for rows.Next() {
		var item RepairAgingItem
		if err := rows.Scan(
			&item.ID, &item.Code, &item.Type, &item.Status, &item.Flaw, &item.Observations,
			&item.CustomerID, &item.TechnicianID, &item.EntryDate, &item.DeliveryDate, &item.Version,
			&item.CreatedAt, &item.UpdatedAt,
			&item.TechnicianFio,
		); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}
