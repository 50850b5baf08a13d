package entities

import (
	"time"

	"repair-system/pkg/types"
)

// EquipmentFilter - условия выборки оборудования для списков.
type EquipmentFilter struct {
	Status       string
	Type         string
	TechnicianID uint64
	Search       string
	Limit        int
	Offset       int
}

// ReportFilter - условия финансового/операционного отчёта.
type ReportFilter struct {
	Range        types.DateRange
	TechnicianID uint64
	Type         string
	Status       string
}

// PaymentWithEquipment - строка платежа, обогащённая состоянием
// оборудования; отчёты исключают платежи по отменённому оборудованию
// и группируют по мастеру.
type PaymentWithEquipment struct {
	Payment
	EquipmentCode     string
	EquipmentStatus   string
	EquipmentEntry    time.Time
	EquipmentDelivery *time.Time
	TechnicianID      *uint64
}
