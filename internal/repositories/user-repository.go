package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"repair-system/internal/entities"
	apperrors "repair-system/pkg/errors"
)

type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.User, error)
	FindByLogin(ctx context.Context, login string) (*entities.User, error)
	ListTechnicians(ctx context.Context, onlyActive bool) ([]entities.User, error)
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

const userColumns = `id, fio, login, password, role, status, created_at, updated_at`

func (r *UserRepository) scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.Fio, &u.Login, &u.Password, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entities.User, error) {
	row := r.storage.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanUser(row)
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*entities.User, error) {
	row := r.storage.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE login = $1`, login)
	return r.scanUser(row)
}

func (r *UserRepository) ListTechnicians(ctx context.Context, onlyActive bool) ([]entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1`
	args := []any{entities.RoleTechnician}
	if onlyActive {
		query += ` AND status = $2`
		args = append(args, entities.UserStatusActive)
	}
	query += ` ORDER BY fio ASC`

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []entities.User
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.Fio, &u.Login, &u.Password, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
