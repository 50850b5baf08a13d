package entities

import (
	"time"

	"github.com/aarondl/null/v8"

	"repair-system/pkg/types"
)

// Статусы жизненного цикла оборудования.
const (
	EquipmentStatusReceived  = "RECEIVED"
	EquipmentStatusRepair    = "REPAIR"
	EquipmentStatusRepaired  = "REPAIRED"
	EquipmentStatusDelivered = "DELIVERED"
	EquipmentStatusCancelled = "CANCELLED"
)

// Типы оборудования.
const (
	EquipmentTypePC      = "PC"
	EquipmentTypeLaptop  = "LAPTOP"
	EquipmentTypePrinter = "PRINTER"
	EquipmentTypePlotter = "PLOTTER"
	EquipmentTypeOther   = "OTHER"
)

// Equipment - устройство, принятое в ремонт. Инварианты:
// delivery_date заполнена тогда и только тогда, когда статус DELIVERED;
// technician_id обязателен, пока статус REPAIR. Статус меняется только
// через EquipmentService, запись не удаляется после появления платежей.
type Equipment struct {
	ID           uint64      `json:"id" db:"id"`
	Code         string      `json:"code" db:"code"`
	Type         string      `json:"type" db:"type"`
	Status       string      `json:"status" db:"status"`
	Flaw         string      `json:"flaw" db:"flaw"`
	Observations null.String `json:"observations" db:"observations"`

	CustomerID   uint64     `json:"customer_id" db:"customer_id"`
	TechnicianID null.Int64 `json:"technician_id" db:"technician_id"`

	EntryDate    time.Time `json:"entry_date" db:"entry_date"`
	DeliveryDate null.Time `json:"delivery_date" db:"delivery_date"`

	Version uint64 `json:"-" db:"version"`

	types.BaseEntity

	// Связанные данные (не колонки таблицы)
	Customer   *Customer `db:"-" json:"customer,omitempty"`
	Technician *User     `db:"-" json:"technician,omitempty"`
}

// DaysInRepair - возраст оборудования в днях от приёма до "сейчас".
func (e *Equipment) DaysInRepair(now time.Time) int {
	days := int(now.Sub(e.EntryDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
