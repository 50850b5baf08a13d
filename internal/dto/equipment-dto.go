package dto

type CreateEquipmentDTO struct {
	Type         string  `json:"type" validate:"required,oneof=PC LAPTOP PRINTER PLOTTER OTHER"`
	Flaw         string  `json:"flaw" validate:"required,min=3"`
	Observations *string `json:"observations,omitempty"`

	// Либо существующий клиент, либо данные нового.
	CustomerID *uint64            `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Customer   *CreateCustomerDTO `json:"customer,omitempty"`

	// Необязательный платёж при приёме (обычно аванс).
	Payment *RecordPaymentDTO `json:"payment,omitempty"`
}

type ChangeStatusDTO struct {
	NewStatus    string  `json:"new_status" validate:"required,oneof=RECEIVED REPAIR REPAIRED DELIVERED CANCELLED"`
	Observations *string `json:"observations,omitempty" validate:"omitempty,min=3"`
	TechnicianID *uint64 `json:"technician_id,omitempty" validate:"omitempty,gt=0"`
}

type ReactivateDTO struct {
	Observations *string `json:"observations,omitempty" validate:"omitempty,min=3"`
}

type EquipmentDTO struct {
	ID           uint64  `json:"id"`
	Code         string  `json:"code"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Flaw         string  `json:"flaw"`
	Observations *string `json:"observations,omitempty"`

	Customer   *CustomerDTO  `json:"customer,omitempty"`
	Technician *ShortUserDTO `json:"technician,omitempty"`

	EntryDate    string  `json:"entry_date"`
	DeliveryDate *string `json:"delivery_date,omitempty"`

	PaymentStatus *string `json:"payment_status,omitempty"`

	// Предупреждение мягкого платёжного гейта: выдача без полной оплаты
	// разрешена администратору, но помечается явно.
	UnpaidDelivery bool `json:"unpaid_delivery,omitempty"`
}

type EquipmentListDTO struct {
	List       []EquipmentDTO `json:"list"`
	TotalCount uint64         `json:"total_count"`
}

type StatusHistoryEntryDTO struct {
	ID           uint64  `json:"id"`
	Status       string  `json:"status"`
	Observations *string `json:"observations,omitempty"`
	ChangedBy    string  `json:"changed_by"`
	ChangedAt    string  `json:"changed_at"`
}
