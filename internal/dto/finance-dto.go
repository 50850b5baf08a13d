package dto

// FinancialKPIsDTO - сводные показатели периода. Производные значения
// (баланс, рентабельность) - чистые функции шести агрегатов, деление на
// нулевой доход всегда даёт 0, никогда NaN/Infinity.
type FinancialKPIsDTO struct {
	TodayIncome   float64 `json:"today_income"`
	TodayExpenses float64 `json:"today_expenses"`
	TodayBalance  float64 `json:"today_balance"`

	MonthIncome   float64 `json:"month_income"`
	MonthExpenses float64 `json:"month_expenses"`
	MonthBalance  float64 `json:"month_balance"`

	// Сумма остатков по выданному, но не полностью оплаченному
	// оборудованию - сигнал к взысканию.
	PendingPayments float64 `json:"pending_payments"`

	ProfitMargin float64 `json:"profit_margin"`
}

// DailyRevenuePointDTO - точка графика за календарный день.
type DailyRevenuePointDTO struct {
	Date     string  `json:"date"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// PeriodRevenueBucketDTO - агрегат периода: единый "Total" для периодов
// до 31 дня включительно, иначе помесячные корзины.
type PeriodRevenueBucketDTO struct {
	Label          string  `json:"label"`
	Income         float64 `json:"income"`
	Expenses       float64 `json:"expenses"`
	Profit         float64 `json:"profit"`
	ProfitMargin   float64 `json:"profit_margin"`
	EquipmentCount int     `json:"equipment_count"`
}

type TechnicianPerformanceDTO struct {
	TechnicianID   uint64  `json:"technician_id"`
	Fio            string  `json:"fio"`
	AssignedCount  int     `json:"assigned_count"`
	CompletedCount int     `json:"completed_count"`
	Revenue        float64 `json:"revenue"`
	AverageDays    float64 `json:"average_days"`
}

type TechnicianExpensesDTO struct {
	TechnicianID  uint64  `json:"technician_id"`
	Fio           string  `json:"fio"`
	TotalAdvances float64 `json:"total_advances"`
	AdvanceCount  int     `json:"advance_count"`
	TotalSalaries float64 `json:"total_salaries"`
	SalaryCount   int     `json:"salary_count"`
	TotalExpenses float64 `json:"total_expenses"`
}

type AlertDTO struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type OverdueEquipmentDTO struct {
	ID            uint64 `json:"id"`
	Code          string `json:"code"`
	Type          string `json:"type"`
	TechnicianFio string `json:"technician_fio,omitempty"`
	DaysInRepair  int    `json:"days_in_repair"`
}

type FinancialReportDTO struct {
	KPIs                  FinancialKPIsDTO           `json:"kpis"`
	DailyRevenue          []DailyRevenuePointDTO     `json:"daily_revenue"`
	PeriodRevenue         []PeriodRevenueBucketDTO   `json:"period_revenue"`
	TechnicianPerformance []TechnicianPerformanceDTO `json:"technician_performance"`
	TechnicianExpenses    []TechnicianExpensesDTO    `json:"technician_expenses"`
	OverdueEquipment      []OverdueEquipmentDTO      `json:"overdue_equipment"`
	Alerts                []AlertDTO                 `json:"alerts"`
}

// --- Операционный отчёт (без денег) ---

type CountByGroupDTO struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type RepairTimeBucketDTO struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type OperationalReportDTO struct {
	CountByStatus       []CountByGroupDTO     `json:"count_by_status"`
	CountByType         []CountByGroupDTO     `json:"count_by_type"`
	CountByTechnician   []CountByGroupDTO     `json:"count_by_technician"`
	RepairTimeHistogram []RepairTimeBucketDTO `json:"repair_time_histogram"`
	OverdueEquipment    []OverdueEquipmentDTO `json:"overdue_equipment"`
}
