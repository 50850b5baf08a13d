package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repair-system/internal/entities"
	apperrors "repair-system/pkg/errors"
)

type PaymentRepositoryInterface interface {
	Create(ctx context.Context, p *entities.Payment) (uint64, error)
	CreateInTx(ctx context.Context, tx pgx.Tx, p *entities.Payment) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.Payment, error)
	FindByEquipmentID(ctx context.Context, equipmentID uint64) ([]entities.Payment, error)
	FindByEquipmentIDInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64) ([]entities.Payment, error)
	Update(ctx context.Context, p *entities.Payment) error
}

type PaymentRepository struct {
	storage *pgxpool.Pool
}

func NewPaymentRepository(storage *pgxpool.Pool) PaymentRepositoryInterface {
	return &PaymentRepository{storage: storage}
}

const paymentColumns = `id, equipment_id, total_amount, advance_amount, method, observations, payment_date, created_at, updated_at`

func (r *PaymentRepository) create(ctx context.Context, q querier, p *entities.Payment) (uint64, error) {
	var id uint64
	err := q.QueryRow(ctx, `
		INSERT INTO payments (equipment_id, total_amount, advance_amount, method, observations, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.EquipmentID, p.TotalAmount, p.AdvanceAmount, p.Method, p.Observations, p.PaymentDate,
	).Scan(&id)
	return id, err
}

func (r *PaymentRepository) Create(ctx context.Context, p *entities.Payment) (uint64, error) {
	return r.create(ctx, r.storage, p)
}

func (r *PaymentRepository) CreateInTx(ctx context.Context, tx pgx.Tx, p *entities.Payment) (uint64, error) {
	return r.create(ctx, tx, p)
}

func scanPayments(rows pgx.Rows) ([]entities.Payment, error) {
	defer rows.Close()
	var payments []entities.Payment
	for rows.Next() {
		var p entities.Payment
		if err := rows.Scan(
			&p.ID, &p.EquipmentID, &p.TotalAmount, &p.AdvanceAmount,
			&p.Method, &p.Observations, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entities.Payment, error) {
	var p entities.Payment
	err := r.storage.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	).Scan(
		&p.ID, &p.EquipmentID, &p.TotalAmount, &p.AdvanceAmount,
		&p.Method, &p.Observations, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByEquipmentID возвращает платёжную книгу оборудования в порядке
// поступления: первая запись - приём, дальше доплаты.
func (r *PaymentRepository) FindByEquipmentID(ctx context.Context, equipmentID uint64) ([]entities.Payment, error) {
	rows, err := r.storage.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE equipment_id = $1 ORDER BY payment_date ASC, id ASC`,
		equipmentID,
	)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (r *PaymentRepository) FindByEquipmentIDInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64) ([]entities.Payment, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE equipment_id = $1 ORDER BY payment_date ASC, id ASC`,
		equipmentID,
	)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func (r *PaymentRepository) Update(ctx context.Context, p *entities.Payment) error {
	tag, err := r.storage.Exec(ctx, `
		UPDATE payments
		SET total_amount = $1, advance_amount = $2, method = $3, observations = $4, updated_at = NOW()
		WHERE id = $5`,
		p.TotalAmount, p.AdvanceAmount, p.Method, p.Observations, p.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
