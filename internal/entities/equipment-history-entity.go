package entities

import "time"

// EquipmentStatusHistory - append-only журнал смен статуса.
// Одна строка на каждый зафиксированный переход, включая начальную
// запись RECEIVED при приёме; строки никогда не изменяются и не удаляются.
type EquipmentStatusHistory struct {
	ID           uint64    `db:"id" json:"id"`
	EquipmentID  uint64    `db:"equipment_id" json:"equipment_id"`
	Status       string    `db:"status" json:"status"`
	Observations *string   `db:"observations" json:"observations"`
	ChangedBy    uint64    `db:"changed_by" json:"changed_by"`
	ChangedAt    time.Time `db:"changed_at" json:"changed_at"`
}
