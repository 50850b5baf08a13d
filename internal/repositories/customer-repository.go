package repositories

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repair-system/internal/entities"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/types"
)

type CustomerRepositoryInterface interface {
	Create(ctx context.Context, name, phone string) (uint64, error)
	CreateInTx(ctx context.Context, tx pgx.Tx, name, phone string) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.Customer, error)
	List(ctx context.Context, filter types.Filter) ([]entities.Customer, uint64, error)
}

type CustomerRepository struct {
	storage *pgxpool.Pool
}

func NewCustomerRepository(storage *pgxpool.Pool) CustomerRepositoryInterface {
	return &CustomerRepository{storage: storage}
}

func (r *CustomerRepository) create(ctx context.Context, q querier, name, phone string) (uint64, error) {
	var id uint64
	err := q.QueryRow(ctx,
		`INSERT INTO customers (name, phone) VALUES ($1, $2) RETURNING id`,
		name, phone,
	).Scan(&id)
	return id, err
}

func (r *CustomerRepository) Create(ctx context.Context, name, phone string) (uint64, error) {
	return r.create(ctx, r.storage, name, phone)
}

func (r *CustomerRepository) CreateInTx(ctx context.Context, tx pgx.Tx, name, phone string) (uint64, error) {
	return r.create(ctx, tx, name, phone)
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uint64) (*entities.Customer, error) {
	var c entities.Customer
	err := r.storage.QueryRow(ctx,
		`SELECT id, name, phone, created_at, updated_at FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) List(ctx context.Context, filter types.Filter) ([]entities.Customer, uint64, error) {
	base := sq.Select("id", "name", "phone", "created_at", "updated_at").
		From("customers").
		OrderBy("name ASC").
		PlaceholderFormat(sq.Dollar)

	if filter.Search != "" {
		base = base.Where(sq.ILike{"name": "%" + filter.Search + "%"})
	}
	if filter.Limit > 0 {
		base = base.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
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

	var customers []entities.Customer
	for rows.Next() {
		var c entities.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total uint64
	countSQL := sq.Select("COUNT(*)").From("customers").PlaceholderFormat(sq.Dollar)
	if filter.Search != "" {
		countSQL = countSQL.Where(sq.ILike{"name": "%" + filter.Search + "%"})
	}
	query, args, err = countSQL.ToSql()
	if err != nil {
		return nil, 0, err
	}
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}
