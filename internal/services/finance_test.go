package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repair-system/internal/entities"
	"repair-system/internal/repositories"
	"repair-system/pkg/config"
	"repair-system/pkg/types"
	"repair-system/pkg/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		Distribution: config.DistributionConfig{RoundingStep: 10, MaxPerTechnician: 250},
		Alerts:       config.AlertsConfig{RepairOverdueDays: 14},
	}
}

func newFinanceBuilder() *FinanceService {
	return &FinanceService{cfg: testConfig(), logger: zap.NewNop()}
}

func paymentAt(date time.Time, total, advance float64, status string) entities.PaymentWithEquipment {
	return entities.PaymentWithEquipment{
		Payment: entities.Payment{
			TotalAmount:   total,
			AdvanceAmount: advance,
			Method:        entities.PaymentMethodCash,
			PaymentDate:   date,
		},
		EquipmentStatus: status,
	}
}

func TestMarginOf(t *testing.T) {
	assert.Equal(t, 66.7, marginOf(300, 100))
	assert.Equal(t, 100.0, marginOf(500, 0))
	assert.Equal(t, -50.0, marginOf(200, 300))
	// Нулевой и отрицательный доход никогда не дают NaN.
	assert.Equal(t, 0.0, marginOf(0, 100))
	assert.Equal(t, 0.0, marginOf(-10, 0))
}

func TestBuildKPIs(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	d := &reportData{
		now: now,
		paymentsMonth: []entities.PaymentWithEquipment{
			paymentAt(now, 500, 100, entities.EquipmentStatusRepair),
			paymentAt(now.AddDate(0, 0, -5), 400, 200, entities.EquipmentStatusDelivered),
			// Платёж по отменённому оборудованию в доход не входит.
			paymentAt(now, 300, 50, entities.EquipmentStatusCancelled),
		},
		expensesMonth: []entities.Expense{
			{Amount: 30, ExpenseDate: now},
			{Amount: 70, ExpenseDate: now.AddDate(0, 0, -12)},
		},
		pendingTotal: 120,
	}

	kpis := newFinanceBuilder().buildKPIs(d)

	assert.Equal(t, 100.0, kpis.TodayIncome)
	assert.Equal(t, 30.0, kpis.TodayExpenses)
	assert.Equal(t, 70.0, kpis.TodayBalance)
	assert.Equal(t, 300.0, kpis.MonthIncome)
	assert.Equal(t, 100.0, kpis.MonthExpenses)
	assert.Equal(t, 200.0, kpis.MonthBalance)
	assert.Equal(t, 120.0, kpis.PendingPayments)
	assert.Equal(t, 66.7, kpis.ProfitMargin)
}

func TestGetFinancialReport_RangeOverridesMonth(t *testing.T) {
	now := time.Now()
	lastMonth := now.AddDate(0, 0, -35)
	repo := &fakeFinanceRepo{
		payments: []entities.PaymentWithEquipment{
			paymentAt(lastMonth, 500, 500, entities.EquipmentStatusDelivered),
			paymentAt(now, 300, 300, entities.EquipmentStatusDelivered),
		},
		expenses: []entities.Expense{
			{Amount: 120, ExpenseDate: lastMonth},
			{Amount: 40, ExpenseDate: now},
		},
	}
	userRepo := newFakeUserRepo(
		entities.User{ID: 7, Fio: "Мастер Первый", Role: entities.RoleTechnician, Status: entities.UserStatusActive},
	)
	svc := NewFinanceService(repo, userRepo, newFakeCache(), testConfig(), zap.NewNop())

	// Явно заданный прошлый месяц: показатели периода берутся из него,
	// а не из текущего календарного месяца.
	report, err := svc.GetFinancialReport(adminCtx(), entities.ReportFilter{Range: types.DateRange{
		From: utils.ToPtr(utils.DayStart(lastMonth.AddDate(0, 0, -3))),
		To:   utils.ToPtr(utils.DayEnd(lastMonth.AddDate(0, 0, 3))),
	}})
	require.NoError(t, err)

	assert.Equal(t, 500.0, report.KPIs.MonthIncome)
	assert.Equal(t, 120.0, report.KPIs.MonthExpenses)
	assert.Equal(t, 380.0, report.KPIs.MonthBalance)
	// "Сегодня" остаётся привязанным к текущему дню.
	assert.Equal(t, 300.0, report.KPIs.TodayIncome)
	assert.Equal(t, 40.0, report.KPIs.TodayExpenses)
}

func pendingPaymentAt(equipmentID uint64, total, advance float64) entities.PaymentWithEquipment {
	return entities.PaymentWithEquipment{
		Payment: entities.Payment{
			EquipmentID:   equipmentID,
			TotalAmount:   total,
			AdvanceAmount: advance,
			Method:        entities.PaymentMethodCash,
			PaymentDate:   time.Now(),
		},
		EquipmentStatus: entities.EquipmentStatusDelivered,
	}
}

func TestGetFinancialReport_PendingSettledByTopUp(t *testing.T) {
	userRepo := newFakeUserRepo(
		entities.User{ID: 7, Fio: "Мастер Первый", Role: entities.RoleTechnician, Status: entities.UserStatusActive},
	)
	filter := entities.ReportFilter{Range: types.DateRange{
		From: utils.ToPtr(utils.DayStart(time.Now())),
		To:   utils.ToPtr(utils.DayEnd(time.Now())),
	}}

	t.Run("доплата закрывает долг приёмной записи", func(t *testing.T) {
		repo := &fakeFinanceRepo{
			pending: []entities.PaymentWithEquipment{
				// Книга закрыта: 80 аванс + 20 доплата против договорённых 100.
				pendingPaymentAt(10, 100, 80),
				pendingPaymentAt(10, 20, 20),
				// А здесь долг настоящий.
				pendingPaymentAt(11, 200, 50),
			},
		}
		svc := NewFinanceService(repo, userRepo, newFakeCache(), testConfig(), zap.NewNop())

		report, err := svc.GetFinancialReport(adminCtx(), filter)
		require.NoError(t, err)
		assert.Equal(t, 150.0, report.KPIs.PendingPayments)

		var codes []string
		for _, a := range report.Alerts {
			codes = append(codes, a.Code)
		}
		assert.Contains(t, codes, "PENDING_PAYMENTS")
	})

	t.Run("полностью оплаченная книга не даёт предупреждения", func(t *testing.T) {
		repo := &fakeFinanceRepo{
			pending: []entities.PaymentWithEquipment{
				pendingPaymentAt(10, 100, 80),
				pendingPaymentAt(10, 20, 20),
			},
		}
		svc := NewFinanceService(repo, userRepo, newFakeCache(), testConfig(), zap.NewNop())

		report, err := svc.GetFinancialReport(adminCtx(), filter)
		require.NoError(t, err)
		assert.Equal(t, 0.0, report.KPIs.PendingPayments)
		for _, a := range report.Alerts {
			assert.NotEqual(t, "PENDING_PAYMENTS", a.Code)
		}
	})
}

func TestBuildDailyRevenue(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	d := &reportData{
		now: now,
		payments30: []entities.PaymentWithEquipment{
			paymentAt(now, 500, 100, entities.EquipmentStatusRepair),
			paymentAt(now.AddDate(0, 0, -29), 200, 200, entities.EquipmentStatusDelivered),
			paymentAt(now, 300, 50, entities.EquipmentStatusCancelled),
		},
		expenses30: []entities.Expense{
			{Amount: 40, ExpenseDate: now.AddDate(0, 0, -10)},
		},
	}

	points := newFinanceBuilder().buildDailyRevenue(d)
	require.Len(t, points, 30)

	// Дни без движения присутствуют с нулями.
	assert.Equal(t, "2026-07-17", points[0].Date)
	assert.Equal(t, 200.0, points[0].Income)
	assert.Equal(t, "2026-08-15", points[29].Date)
	assert.Equal(t, 100.0, points[29].Income)
	assert.Equal(t, 40.0, points[19].Expenses)

	var empty int
	for _, p := range points {
		if p.Income == 0 && p.Expenses == 0 {
			empty++
		}
	}
	assert.Equal(t, 27, empty)
}

func TestBuildPeriodRevenue_SingleBucket(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	d := &reportData{
		from: from, to: to, now: to,
		payments: []entities.PaymentWithEquipment{
			paymentAt(from.AddDate(0, 0, 3), 500, 300, entities.EquipmentStatusDelivered),
		},
		expenses:  []entities.Expense{{Amount: 100, ExpenseDate: from.AddDate(0, 0, 5)}},
		equipment: []entities.Equipment{{ID: 1}, {ID: 2}},
	}

	buckets := newFinanceBuilder().buildPeriodRevenue(d)
	require.Len(t, buckets, 1)
	assert.Equal(t, "Total", buckets[0].Label)
	assert.Equal(t, 300.0, buckets[0].Income)
	assert.Equal(t, 100.0, buckets[0].Expenses)
	assert.Equal(t, 200.0, buckets[0].Profit)
	assert.Equal(t, 2, buckets[0].EquipmentCount)
}

func TestBuildPeriodRevenue_MonthlyBuckets(t *testing.T) {
	from := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	d := &reportData{
		from: from, to: to, now: to,
		payments: []entities.PaymentWithEquipment{
			paymentAt(time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), 500, 500, entities.EquipmentStatusDelivered),
			paymentAt(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), 400, 100, entities.EquipmentStatusRepair),
		},
		expenses: []entities.Expense{
			{Amount: 50, ExpenseDate: time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC)},
		},
	}

	buckets := newFinanceBuilder().buildPeriodRevenue(d)
	require.Len(t, buckets, 3)

	assert.Equal(t, "2026-01", buckets[0].Label)
	assert.Equal(t, 500.0, buckets[0].Income)
	assert.Equal(t, 50.0, buckets[0].Expenses)

	// Февраль без движения остаётся в ряду.
	assert.Equal(t, "2026-02", buckets[1].Label)
	assert.Equal(t, 0.0, buckets[1].Income)

	assert.Equal(t, "2026-03", buckets[2].Label)
	assert.Equal(t, 100.0, buckets[2].Income)
}

func TestBuildTechnicianPerformance(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	tech7 := uint64(7)
	tech9 := uint64(9)

	p1 := paymentAt(now, 500, 300, entities.EquipmentStatusDelivered)
	p1.TechnicianID = &tech7
	p2 := paymentAt(now, 400, 400, entities.EquipmentStatusDelivered)
	p2.TechnicianID = &tech9
	p3 := paymentAt(now, 200, 100, entities.EquipmentStatusCancelled)
	p3.TechnicianID = &tech7
	// Оборудование ещё не выдано - дохода по нему в выручке мастера нет.
	p4 := paymentAt(now, 150, 150, entities.EquipmentStatusRepaired)
	p4.TechnicianID = &tech7

	entry := now.AddDate(0, 0, -6)
	d := &reportData{
		now:      now,
		payments: []entities.PaymentWithEquipment{p1, p2, p3, p4},
		equipment: []entities.Equipment{
			{ID: 1, Status: entities.EquipmentStatusDelivered, TechnicianID: null.Int64From(7),
				EntryDate: entry, DeliveryDate: null.TimeFrom(entry.AddDate(0, 0, 4))},
			{ID: 2, Status: entities.EquipmentStatusRepaired, TechnicianID: null.Int64From(7), EntryDate: entry},
			{ID: 3, Status: entities.EquipmentStatusRepair, TechnicianID: null.Int64From(7), EntryDate: entry},
			{ID: 4, Status: entities.EquipmentStatusDelivered, TechnicianID: null.Int64From(9),
				EntryDate: entry, DeliveryDate: null.TimeFrom(entry.AddDate(0, 0, 1))},
			// Отменённое оборудование не входит даже в назначения.
			{ID: 5, Status: entities.EquipmentStatusCancelled, TechnicianID: null.Int64From(7), EntryDate: entry},
		},
		technicians: []entities.User{
			{ID: 7, Fio: "Мастер Первый", Role: entities.RoleTechnician},
			{ID: 9, Fio: "Мастер Третий", Role: entities.RoleTechnician},
			{ID: 11, Fio: "Без работы", Role: entities.RoleTechnician},
		},
	}

	rows := newFinanceBuilder().buildTechnicianPerformance(d)
	require.Len(t, rows, 2)

	// Сортировка по выручке по убыванию; выручка только по выданному.
	assert.Equal(t, uint64(9), rows[0].TechnicianID)
	assert.Equal(t, 400.0, rows[0].Revenue)
	assert.Equal(t, 1, rows[0].CompletedCount)
	assert.Equal(t, uint64(7), rows[1].TechnicianID)
	assert.Equal(t, 300.0, rows[1].Revenue)
	assert.Equal(t, 3, rows[1].AssignedCount)
	// Завершено - только выдача; отремонтированное ещё в работе.
	assert.Equal(t, 1, rows[1].CompletedCount)
	assert.Equal(t, 4.0, rows[1].AverageDays)
}

func TestBuildTechnicianExpenses(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	d := &reportData{
		now: now,
		expenses: []entities.Expense{
			{Type: entities.ExpenseTypeAdvance, Amount: 100, Beneficiary: "Мастер Первый", ExpenseDate: now},
			{Type: entities.ExpenseTypeAdvance, Amount: 50, Beneficiary: "Мастер Первый", ExpenseDate: now},
			{Type: entities.ExpenseTypeSalary, Amount: 200, Beneficiary: "Мастер Первый", ExpenseDate: now},
			// Хозяйственные расходы и посторонние получатели не входят.
			{Type: entities.ExpenseTypeSupplies, Amount: 500, Beneficiary: "Мастер Первый", ExpenseDate: now},
			{Type: entities.ExpenseTypeSalary, Amount: 900, Beneficiary: "Бухгалтер", ExpenseDate: now},
		},
		technicians: []entities.User{
			{ID: 7, Fio: "Мастер Первый", Role: entities.RoleTechnician},
		},
	}

	rows := newFinanceBuilder().buildTechnicianExpenses(d)
	require.Len(t, rows, 1)
	assert.Equal(t, 150.0, rows[0].TotalAdvances)
	assert.Equal(t, 2, rows[0].AdvanceCount)
	assert.Equal(t, 200.0, rows[0].TotalSalaries)
	assert.Equal(t, 1, rows[0].SalaryCount)
	assert.Equal(t, 350.0, rows[0].TotalExpenses)
}

func TestBuildOverdueAndAlerts(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	s := newFinanceBuilder()

	d := &reportData{
		now: now,
		inRepair: []repositories.RepairAgingItem{
			{Equipment: entities.Equipment{ID: 1, Code: "EQ-20260725-001", Type: entities.EquipmentTypePC,
				EntryDate: now.AddDate(0, 0, -21)}, TechnicianFio: sql.NullString{String: "Мастер Первый", Valid: true}},
			{Equipment: entities.Equipment{ID: 2, Code: "EQ-20260810-001", Type: entities.EquipmentTypeLaptop,
				EntryDate: now.AddDate(0, 0, -5)}},
			{Equipment: entities.Equipment{ID: 3, Code: "EQ-20260715-002", Type: entities.EquipmentTypePC,
				EntryDate: now.AddDate(0, 0, -31)}},
		},
		pendingTotal: 420,
	}
	d.overdue = s.buildOverdue(d)

	require.Len(t, d.overdue, 2)
	// Самые старые сверху.
	assert.Equal(t, uint64(3), d.overdue[0].ID)
	assert.Equal(t, 31, d.overdue[0].DaysInRepair)
	assert.Equal(t, uint64(1), d.overdue[1].ID)
	assert.Equal(t, "Мастер Первый", d.overdue[1].TechnicianFio)

	alerts := s.overdueRepairAlert(d)
	require.Len(t, alerts, 1)
	assert.Equal(t, "REPAIR_OVERDUE", alerts[0].Code)

	alerts = s.pendingPaymentsAlert(d)
	require.Len(t, alerts, 1)
	assert.Equal(t, "PENDING_PAYMENTS", alerts[0].Code)

	empty := &reportData{now: now}
	assert.Empty(t, s.overdueRepairAlert(empty))
	assert.Empty(t, s.pendingPaymentsAlert(empty))
}

func TestOperationalCounters(t *testing.T) {
	entry := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	equipment := []entities.Equipment{
		{Status: entities.EquipmentStatusReceived, Type: entities.EquipmentTypePC},
		{Status: entities.EquipmentStatusRepair, Type: entities.EquipmentTypePC, TechnicianID: null.Int64From(7)},
		{Status: entities.EquipmentStatusDelivered, Type: entities.EquipmentTypeLaptop, TechnicianID: null.Int64From(7),
			EntryDate: entry, DeliveryDate: null.TimeFrom(entry.AddDate(0, 0, 2))},
		{Status: entities.EquipmentStatusDelivered, Type: entities.EquipmentTypePrinter, TechnicianID: null.Int64From(9),
			EntryDate: entry, DeliveryDate: null.TimeFrom(entry.AddDate(0, 0, 20))},
	}
	technicians := []entities.User{
		{ID: 7, Fio: "Мастер Первый"},
		{ID: 9, Fio: "Мастер Третий"},
	}

	byStatus := countByStatus(equipment)
	require.Len(t, byStatus, 5)
	assert.Equal(t, entities.EquipmentStatusReceived, byStatus[0].Label)
	assert.Equal(t, 1, byStatus[0].Count)
	assert.Equal(t, 2, byStatus[3].Count) // DELIVERED

	byType := countByType(equipment)
	require.Len(t, byType, 5)
	assert.Equal(t, 2, byType[0].Count) // PC

	byTech := countByTechnician(equipment, technicians)
	require.Len(t, byTech, 2)
	assert.Equal(t, "Мастер Первый", byTech[0].Label)
	assert.Equal(t, 2, byTech[0].Count)

	histogram := repairTimeHistogram(equipment)
	require.Len(t, histogram, 5)
	assert.Equal(t, "0-3", histogram[0].Label)
	assert.Equal(t, 1, histogram[0].Count)
	assert.Equal(t, 1, histogram[3].Count) // 15-30
}

func TestGetFinancialReport_Cache(t *testing.T) {
	now := time.Now()
	repo := &fakeFinanceRepo{
		payments: []entities.PaymentWithEquipment{
			paymentAt(now, 500, 200, entities.EquipmentStatusRepair),
		},
	}
	userRepo := newFakeUserRepo(
		entities.User{ID: 7, Fio: "Мастер Первый", Role: entities.RoleTechnician, Status: entities.UserStatusActive},
	)
	cache := newFakeCache()
	svc := NewFinanceService(repo, userRepo, cache, testConfig(), zap.NewNop())

	filter := entities.ReportFilter{Range: types.DateRange{
		From: utils.ToPtr(utils.DayStart(now)),
		To:   utils.ToPtr(utils.DayEnd(now)),
	}}

	first, err := svc.GetFinancialReport(adminCtx(), filter)
	require.NoError(t, err)
	assert.Equal(t, 200.0, first.KPIs.MonthIncome)
	callsAfterFirst := repo.paymentsCalls

	// Повторный запрос того же периода читается из кеша.
	second, err := svc.GetFinancialReport(adminCtx(), filter)
	require.NoError(t, err)
	assert.Equal(t, first.KPIs, second.KPIs)
	assert.Equal(t, callsAfterFirst, repo.paymentsCalls)

	// Сдвиг поколения делает старый ключ невидимым.
	_, err = cache.Incr(adminCtx(), reportGenerationKey)
	require.NoError(t, err)

	_, err = svc.GetFinancialReport(adminCtx(), filter)
	require.NoError(t, err)
	assert.Greater(t, repo.paymentsCalls, callsAfterFirst)
}

func TestGetOperationalReport(t *testing.T) {
	now := time.Now()
	repo := &fakeFinanceRepo{
		equipment: []entities.Equipment{
			{Status: entities.EquipmentStatusReceived, Type: entities.EquipmentTypePC, EntryDate: now},
			{Status: entities.EquipmentStatusRepair, Type: entities.EquipmentTypeLaptop, EntryDate: now,
				TechnicianID: null.Int64From(7)},
		},
	}
	userRepo := newFakeUserRepo(
		entities.User{ID: 7, Fio: "Мастер Первый", Role: entities.RoleTechnician, Status: entities.UserStatusActive},
	)
	svc := NewFinanceService(repo, userRepo, newFakeCache(), testConfig(), zap.NewNop())

	report, err := svc.GetOperationalReport(adminCtx(), entities.ReportFilter{Range: types.DateRange{
		From: utils.ToPtr(utils.DayStart(now)),
		To:   utils.ToPtr(utils.DayEnd(now)),
	}})
	require.NoError(t, err)

	require.Len(t, report.CountByStatus, 5)
	assert.Equal(t, 1, report.CountByStatus[0].Count)
	assert.Equal(t, 1, report.CountByStatus[1].Count)
	require.Len(t, report.CountByTechnician, 1)
	assert.Equal(t, "Мастер Первый", report.CountByTechnician[0].Label)
	assert.Empty(t, report.OverdueEquipment)
}
