package repositories

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repair-system/internal/entities"
)

// StatusHistoryItem - строка журнала, обогащённая ФИО автора изменения.
type StatusHistoryItem struct {
	entities.EquipmentStatusHistory
	ActorFio sql.NullString `db:"actor_fio"`
}

type EquipmentHistoryRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, h *entities.EquipmentStatusHistory) error
	FindByEquipmentID(ctx context.Context, equipmentID uint64) ([]StatusHistoryItem, error)
}

type EquipmentHistoryRepository struct {
	storage *pgxpool.Pool
}

func NewEquipmentHistoryRepository(storage *pgxpool.Pool) EquipmentHistoryRepositoryInterface {
	return &EquipmentHistoryRepository{storage: storage}
}

func (r *EquipmentHistoryRepository) CreateInTx(ctx context.Context, tx pgx.Tx, h *entities.EquipmentStatusHistory) error {
	query := `
		INSERT INTO equipment_status_history (equipment_id, status, observations, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Exec(ctx, query,
		h.EquipmentID, h.Status, h.Observations, h.ChangedBy, h.ChangedAt)
	return err
}

// FindByEquipmentID - журнал статусов, новые записи первыми.
func (r *EquipmentHistoryRepository) FindByEquipmentID(ctx context.Context, equipmentID uint64) ([]StatusHistoryItem, error) {
	query := `
		SELECT
			h.id, h.equipment_id, h.status, h.observations, h.changed_by, h.changed_at,
			u.fio AS actor_fio
		FROM equipment_status_history h
		LEFT JOIN users u ON h.changed_by = u.id
		WHERE h.equipment_id = $1
		ORDER BY h.changed_at DESC, h.id DESC
	`

	rows, err := r.storage.Query(ctx, query, equipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []StatusHistoryItem
	for rows.Next() {
		var h StatusHistoryItem
		if err := rows.Scan(
			&h.ID, &h.EquipmentID, &h.Status, &h.Observations, &h.ChangedBy, &h.ChangedAt,
			&h.ActorFio,
		); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
