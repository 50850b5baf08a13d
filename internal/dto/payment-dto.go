package dto

type RecordPaymentDTO struct {
	TotalAmount   float64 `json:"total_amount" validate:"required,gt=0"`
	AdvanceAmount float64 `json:"advance_amount" validate:"gte=0"`
	Method        string  `json:"method" validate:"required,oneof=CASH CARD TRANSFER"`
	Observations  *string `json:"observations,omitempty"`
}

type UpdatePaymentDTO struct {
	TotalAmount   *float64 `json:"total_amount,omitempty" validate:"omitempty,gt=0"`
	AdvanceAmount *float64 `json:"advance_amount,omitempty" validate:"omitempty,gte=0"`
	Method        *string  `json:"method,omitempty" validate:"omitempty,oneof=CASH CARD TRANSFER"`
	Observations  *string  `json:"observations,omitempty"`
}

type PaymentDTO struct {
	ID            uint64  `json:"id"`
	EquipmentID   uint64  `json:"equipment_id"`
	TotalAmount   float64 `json:"total_amount"`
	AdvanceAmount float64 `json:"advance_amount"`
	// Производные поля; источник истины - entities.PaymentStatusOf.
	RemainingAmount float64 `json:"remaining_amount"`
	Status          string  `json:"status"`
	Method          string  `json:"method"`
	Observations    *string `json:"observations,omitempty"`
	PaymentDate     string  `json:"payment_date"`
}

// PaymentBalanceDTO - сводка платёжной книги оборудования: ни одна
// отдельная запись не считается текущим состоянием, баланс вычисляется
// по всем записям.
type PaymentBalanceDTO struct {
	EquipmentID   uint64       `json:"equipment_id"`
	AgreedTotal   float64      `json:"agreed_total"`
	TotalReceived float64      `json:"total_received"`
	Remaining     float64      `json:"remaining"`
	Status        string       `json:"status"`
	Records       []PaymentDTO `json:"records"`
}
