package dto

type CalculateDistributionDTO struct {
	PeriodIncome   float64 `json:"period_income" validate:"gte=0"`
	PeriodExpenses float64 `json:"period_expenses" validate:"gte=0"`
	// Период, в котором ищутся уже выплаченные SALARY-расходы.
	From *string `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`
	// Способ оплаты для проводимых расходов (по умолчанию CASH).
	Method *string `json:"method,omitempty" validate:"omitempty,oneof=CASH CARD TRANSFER"`
}

type TechnicianPaymentDTO struct {
	TechnicianID     uint64  `json:"technician_id"`
	Fio              string  `json:"fio"`
	ExistingPayments float64 `json:"existing_payments"`
	FinalPayment     float64 `json:"final_payment"`
}

// DistributionResultDTO раскрывает все шаги расчёта для аудита:
// разница, сырое значение на мастера, округление вниз до шага, потолок
// и разложение нераспределённого остатка.
type DistributionResultDTO struct {
	Difference           float64 `json:"difference"`
	TechnicianCount      int     `json:"technician_count"`
	RawPerTechnician     float64 `json:"raw_per_technician"`
	RoundedPerTechnician float64 `json:"rounded_per_technician"`
	CappedPerTechnician  float64 `json:"capped_per_technician"`
	CapApplied           bool    `json:"cap_applied"`

	Remainder    float64 `json:"remainder"`
	RoundingLoss float64 `json:"rounding_loss"`
	CappingLoss  float64 `json:"capping_loss"`

	Payments []TechnicianPaymentDTO `json:"payments"`
}

// CommitDistributionResultDTO - итог проведения: каждая выплата проводится
// независимо, частичный успех отражается явно.
type CommitDistributionResultDTO struct {
	Result       DistributionResultDTO `json:"result"`
	PostedCount  int                   `json:"posted_count"`
	FailedCount  int                   `json:"failed_count"`
	FailedFio    []string              `json:"failed_fio,omitempty"`
	SkippedCount int                   `json:"skipped_count"`
}
