package repositories

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repair-system/internal/entities"
)

type ExpenseRepositoryInterface interface {
	Create(ctx context.Context, e *entities.Expense) (uint64, error)
	CreateInTx(ctx context.Context, tx pgx.Tx, e *entities.Expense) (uint64, error)
	List(ctx context.Context, from, to *time.Time, expenseType string, limit, offset int) ([]entities.Expense, uint64, error)
	// SalaryTotalByBeneficiary - сумма уже проведённых SALARY-расходов
	// получателя за период; защита калькулятора выплат от двойной оплаты.
	SalaryTotalByBeneficiary(ctx context.Context, beneficiary string, from, to time.Time) (float64, error)
	// RefundTotalByEquipmentInTx - сумма уже проведённых возвратов по
	// оборудованию; повторная отмена возвращает только невозвращённое.
	RefundTotalByEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64) (float64, error)
}

type ExpenseRepository struct {
	storage *pgxpool.Pool
}

func NewExpenseRepository(storage *pgxpool.Pool) ExpenseRepositoryInterface {
	return &ExpenseRepository{storage: storage}
}

const expenseColumns = `id, type, amount, beneficiary, method, description, observations, expense_date, equipment_id, refund_key, created_at, updated_at`

func (r *ExpenseRepository) create(ctx context.Context, q querier, e *entities.Expense) (uint64, error) {
	var id uint64
	err := q.QueryRow(ctx, `
		INSERT INTO expenses (type, amount, beneficiary, method, description, observations, expense_date, equipment_id, refund_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		e.Type, e.Amount, e.Beneficiary, e.Method, e.Description,
		e.Observations, e.ExpenseDate, e.EquipmentID, e.RefundKey,
	).Scan(&id)
	return id, err
}

func (r *ExpenseRepository) Create(ctx context.Context, e *entities.Expense) (uint64, error) {
	return r.create(ctx, r.storage, e)
}

func (r *ExpenseRepository) CreateInTx(ctx context.Context, tx pgx.Tx, e *entities.Expense) (uint64, error) {
	return r.create(ctx, tx, e)
}

func (r *ExpenseRepository) List(ctx context.Context, from, to *time.Time, expenseType string, limit, offset int) ([]entities.Expense, uint64, error) {
	applyFilter := func(b sq.SelectBuilder) sq.SelectBuilder {
		if from != nil {
			b = b.Where(sq.GtOrEq{"expense_date": *from})
		}
		if to != nil {
			b = b.Where(sq.LtOrEq{"expense_date": *to})
		}
		if expenseType != "" {
			b = b.Where(sq.Eq{"type": expenseType})
		}
		return b
	}

	base := applyFilter(sq.Select(
		"id", "type", "amount", "beneficiary", "method", "description",
		"observations", "expense_date", "equipment_id", "refund_key",
		"created_at", "updated_at",
	).From("expenses").
		OrderBy("expense_date DESC, id DESC").
		PlaceholderFormat(sq.Dollar))

	if limit > 0 {
		base = base.Limit(uint64(limit)).Offset(uint64(offset))
	}

	query, args, err := base.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
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
			return nil, 0, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countBuilder := applyFilter(sq.Select("COUNT(*)").From("expenses").PlaceholderFormat(sq.Dollar))
	query, args, err = countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return expenses, total, nil
}

func (r *ExpenseRepository) RefundTotalByEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64) (float64, error) {
	var total float64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE equipment_id = $1 AND refund_key IS NOT NULL`,
		equipmentID,
	).Scan(&total)
	return total, err
}

func (r *ExpenseRepository) SalaryTotalByBeneficiary(ctx context.Context, beneficiary string, from, to time.Time) (float64, error) {
	var total float64
	err := r.storage.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE type = $1 AND beneficiary = $2 AND expense_date BETWEEN $3 AND $4`,
		entities.ExpenseTypeSalary, beneficiary, from, to,
	).Scan(&total)
	return total, err
}
