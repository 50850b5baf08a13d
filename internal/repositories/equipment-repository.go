package repositories

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"repair-system/internal/entities"
	apperrors "repair-system/pkg/errors"
)

type EquipmentRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, e *entities.Equipment) (uint64, error)
	NextCodeSequenceInTx(ctx context.Context, tx pgx.Tx, day time.Time) (int, error)
	FindByID(ctx context.Context, id uint64) (*entities.Equipment, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	UpdateStateInTx(ctx context.Context, tx pgx.Tx, e *entities.Equipment) error
	List(ctx context.Context, filter entities.EquipmentFilter) ([]entities.Equipment, uint64, error)
}

type EquipmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEquipmentRepository(storage *pgxpool.Pool, logger *zap.Logger) EquipmentRepositoryInterface {
	return &EquipmentRepository{storage: storage, logger: logger}
}

const equipmentColumns = `e.id, e.code, e.type, e.status, e.flaw, e.observations,
	e.customer_id, e.technician_id, e.entry_date, e.delivery_date, e.version,
	e.created_at, e.updated_at`

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var e entities.Equipment
	err := row.Scan(
		&e.ID, &e.Code, &e.Type, &e.Status, &e.Flaw, &e.Observations,
		&e.CustomerID, &e.TechnicianID, &e.EntryDate, &e.DeliveryDate, &e.Version,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EquipmentRepository) CreateInTx(ctx context.Context, tx pgx.Tx, e *entities.Equipment) (uint64, error) {
	var id uint64
	err := tx.QueryRow(ctx, `
		INSERT INTO equipment (code, type, status, flaw, observations, customer_id, technician_id, entry_date, delivery_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		e.Code, e.Type, e.Status, e.Flaw, e.Observations,
		e.CustomerID, e.TechnicianID, e.EntryDate, e.DeliveryDate,
	).Scan(&id)
	return id, err
}

// NextCodeSequenceInTx - порядковый номер кода в пределах дня приёма.
// Уникальность кода страхует unique-индекс.
func (r *EquipmentRepository) NextCodeSequenceInTx(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	var count int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM equipment WHERE entry_date::date = $1::date`,
		day,
	).Scan(&count)
	return count + 1, err
}

func (r *EquipmentRepository) FindByID(ctx context.Context, id uint64) (*entities.Equipment, error) {
	e, err := scanEquipment(r.storage.QueryRow(ctx,
		`SELECT `+equipmentColumns+` FROM equipment e WHERE e.id = $1`, id))
	if err != nil {
		return nil, err
	}

	var c entities.Customer
	err = r.storage.QueryRow(ctx,
		`SELECT id, name, phone FROM customers WHERE id = $1`, e.CustomerID,
	).Scan(&c.ID, &c.Name, &c.Phone)
	if err == nil {
		e.Customer = &c
	}

	if e.TechnicianID.Valid {
		var u entities.User
		err = r.storage.QueryRow(ctx,
			`SELECT id, fio, role, status FROM users WHERE id = $1`, e.TechnicianID.Int64,
		).Scan(&u.ID, &u.Fio, &u.Role, &u.Status)
		if err == nil {
			e.Technician = &u
		}
	}

	return e, nil
}

// FindForUpdateInTx блокирует строку оборудования на время перехода:
// два одновременных перехода по одному устройству сериализуются.
func (r *EquipmentRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	return scanEquipment(tx.QueryRow(ctx,
		`SELECT `+equipmentColumns+` FROM equipment e WHERE e.id = $1 FOR UPDATE`, id))
}

// UpdateStateInTx пишет новое состояние с проверкой версии. Нулевое число
// затронутых строк означает lost update - конфликт состояния.
func (r *EquipmentRepository) UpdateStateInTx(ctx context.Context, tx pgx.Tx, e *entities.Equipment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE equipment
		SET status = $1, technician_id = $2, delivery_date = $3, observations = $4,
		    version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6`,
		e.Status, e.TechnicianID, e.DeliveryDate, e.Observations, e.ID, e.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewStateConflictError("оборудование %s было изменено параллельно, повторите запрос", e.Code)
	}
	return nil
}

func (r *EquipmentRepository) List(ctx context.Context, filter entities.EquipmentFilter) ([]entities.Equipment, uint64, error) {
	applyFilter := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Status != "" {
			b = b.Where(sq.Eq{"e.status": filter.Status})
		}
		if filter.Type != "" {
			b = b.Where(sq.Eq{"e.type": filter.Type})
		}
		if filter.TechnicianID != 0 {
			b = b.Where(sq.Eq{"e.technician_id": filter.TechnicianID})
		}
		if filter.Search != "" {
			b = b.Where(sq.Or{
				sq.ILike{"e.code": "%" + filter.Search + "%"},
				sq.ILike{"e.flaw": "%" + filter.Search + "%"},
				sq.ILike{"c.name": "%" + filter.Search + "%"},
			})
		}
		return b
	}

	base := applyFilter(sq.Select(
		"e.id", "e.code", "e.type", "e.status", "e.flaw", "e.observations",
		"e.customer_id", "e.technician_id", "e.entry_date", "e.delivery_date", "e.version",
		"e.created_at", "e.updated_at",
		"c.name", "c.phone",
	).From("equipment e").
		LeftJoin("customers c ON c.id = e.customer_id").
		OrderBy("e.entry_date DESC, e.id DESC").
		PlaceholderFormat(sq.Dollar))

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

	var list []entities.Equipment
	for rows.Next() {
		var e entities.Equipment
		var c entities.Customer
		if err := rows.Scan(
			&e.ID, &e.Code, &e.Type, &e.Status, &e.Flaw, &e.Observations,
			&e.CustomerID, &e.TechnicianID, &e.EntryDate, &e.DeliveryDate, &e.Version,
			&e.CreatedAt, &e.UpdatedAt,
			&c.Name, &c.Phone,
		); err != nil {
			return nil, 0, err
		}
		c.ID = e.CustomerID
		e.Customer = &c
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countBuilder := applyFilter(sq.Select("COUNT(*)").
		From("equipment e").
		LeftJoin("customers c ON c.id = e.customer_id").
		PlaceholderFormat(sq.Dollar))
	query, args, err = countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}
