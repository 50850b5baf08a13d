package entities

import (
	"time"

	"github.com/aarondl/null/v8"

	"repair-system/pkg/types"
)

// Типы расходов.
const (
	ExpenseTypeAdvance     = "ADVANCE"
	ExpenseTypeSalary      = "SALARY"
	ExpenseTypeSupplies    = "SUPPLIES"
	ExpenseTypeRent        = "RENT"
	ExpenseTypeServices    = "SERVICES"
	ExpenseTypeMaintenance = "MAINTENANCE"
	ExpenseTypeOther       = "OTHER"
)

// BusinessBeneficiary - сентинель "получатель - сама мастерская".
const BusinessBeneficiary = "RJD"

// Expense - расход. Создаётся вручную, автоматически при отмене ремонта
// (возврат аванса) или калькулятором выплат мастерам.
type Expense struct {
	ID          uint64      `json:"id" db:"id"`
	Type        string      `json:"type" db:"type"`
	Amount      float64     `json:"amount" db:"amount"`
	Beneficiary string      `json:"beneficiary" db:"beneficiary"`
	Method      string      `json:"method" db:"method"`
	Description null.String `json:"description" db:"description"`

	Observations null.String `json:"observations" db:"observations"`
	ExpenseDate  time.Time   `json:"expense_date" db:"expense_date"`

	// Ссылка на отменённое оборудование для возвратов аванса.
	EquipmentID null.Int64 `json:"equipment_id,omitempty" db:"equipment_id"`
	// Ключ идемпотентности возврата: не более одного возврата на отмену.
	RefundKey null.String `json:"-" db:"refund_key"`

	types.BaseEntity
}
