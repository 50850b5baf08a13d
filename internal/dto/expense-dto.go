package dto

type CreateExpenseDTO struct {
	Type         string  `json:"type" validate:"required,oneof=ADVANCE SALARY SUPPLIES RENT SERVICES MAINTENANCE OTHER"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Beneficiary  string  `json:"beneficiary" validate:"required,min=2,max=255"`
	Method       string  `json:"method" validate:"required,oneof=CASH CARD TRANSFER"`
	Description  *string `json:"description,omitempty"`
	Observations *string `json:"observations,omitempty"`
	ExpenseDate  *string `json:"expense_date,omitempty"`
}

type ExpenseDTO struct {
	ID           uint64  `json:"id"`
	Type         string  `json:"type"`
	Amount       float64 `json:"amount"`
	Beneficiary  string  `json:"beneficiary"`
	Method       string  `json:"method"`
	Description  *string `json:"description,omitempty"`
	Observations *string `json:"observations,omitempty"`
	ExpenseDate  string  `json:"expense_date"`
	EquipmentID  *uint64 `json:"equipment_id,omitempty"`
}
