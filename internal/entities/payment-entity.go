package entities

import (
	"time"

	"github.com/aarondl/null/v8"

	"repair-system/pkg/types"
)

// Способы оплаты.
const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

// Статусы оплаты. Статус всегда вычисляется из сумм, а не хранится:
// единственная точка истины - PaymentStatusOf.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusPartial   = "PARTIAL"
	PaymentStatusCompleted = "COMPLETED"
)

// Payment - одна запись платёжной книги оборудования. Доплата оформляется
// новой записью, а не правкой существующей: это сохраняет датированный след
// того, когда поступила каждая часть суммы.
type Payment struct {
	ID          uint64 `json:"id" db:"id"`
	EquipmentID uint64 `json:"equipment_id" db:"equipment_id"`

	TotalAmount   float64 `json:"total_amount" db:"total_amount"`
	AdvanceAmount float64 `json:"advance_amount" db:"advance_amount"`

	Method       string      `json:"method" db:"method"`
	Observations null.String `json:"observations" db:"observations"`
	PaymentDate  time.Time   `json:"payment_date" db:"payment_date"`

	types.BaseEntity
}

// PaymentStatusOf выводит статус оплаты из сумм.
func PaymentStatusOf(totalAmount, advanceAmount float64) string {
	switch {
	case advanceAmount <= 0:
		return PaymentStatusPending
	case advanceAmount >= totalAmount:
		return PaymentStatusCompleted
	default:
		return PaymentStatusPartial
	}
}

// Status - производный статус записи.
func (p *Payment) Status() string {
	return PaymentStatusOf(p.TotalAmount, p.AdvanceAmount)
}

// RemainingAmount всегда вычисляется, никогда не хранится.
func (p *Payment) RemainingAmount() float64 {
	remaining := p.TotalAmount - p.AdvanceAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecognizedIncome - сумма, признаваемая доходом по записи:
// min(advance, total), защита от аномалий переплаты в отчётах.
func (p *Payment) RecognizedIncome() float64 {
	if p.AdvanceAmount < p.TotalAmount {
		return p.AdvanceAmount
	}
	return p.TotalAmount
}
