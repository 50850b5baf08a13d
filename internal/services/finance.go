package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/repositories"
	"repair-system/pkg/config"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/utils"
)

const (
	// reportGenerationKey - счётчик поколений кеша отчётов. Любая запись,
	// влияющая на отчёты, инкрементирует его; ключи старого поколения
	// просто перестают читаться и доживают до TTL.
	reportGenerationKey = "reports:generation"
	reportCacheTTL      = 5 * time.Minute

	dailyChartDays = 30
	// Периоды длиннее месяца разбиваются на помесячные корзины.
	singleBucketMaxDays = 31
)

type FinanceServiceInterface interface {
	GetFinancialReport(ctx context.Context, filter entities.ReportFilter) (*dto.FinancialReportDTO, error)
	GetOperationalReport(ctx context.Context, filter entities.ReportFilter) (*dto.OperationalReportDTO, error)
}

// reportData - всё сырьё одного финансового отчёта, собранное
// параллельными подзапросами. Дальше только чистая арифметика.
type reportData struct {
	now      time.Time
	from, to time.Time
	// Период задан вызывающим явно, а не выведен из календарного месяца.
	rangeExplicit bool

	payments      []entities.PaymentWithEquipment
	expenses      []entities.Expense
	paymentsMonth []entities.PaymentWithEquipment
	expensesMonth []entities.Expense
	payments30    []entities.PaymentWithEquipment
	expenses30    []entities.Expense
	pending       []entities.PaymentWithEquipment
	equipment     []entities.Equipment
	inRepair      []repositories.RepairAgingItem
	technicians   []entities.User

	pendingTotal float64
	overdue      []dto.OverdueEquipmentDTO
}

// alertRule - одно правило генерации предупреждений; набор правил
// задаётся в конструкторе и расширяется без правок GetFinancialReport.
type alertRule func(d *reportData) []dto.AlertDTO

type FinanceService struct {
	financeRepo repositories.FinanceRepositoryInterface
	userRepo    repositories.UserRepositoryInterface
	cache       repositories.CacheRepositoryInterface
	cfg         *config.Config
	logger      *zap.Logger

	alertRules []alertRule
}

func NewFinanceService(
	financeRepo repositories.FinanceRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cfg *config.Config,
	logger *zap.Logger,
) FinanceServiceInterface {
	s := &FinanceService{
		financeRepo: financeRepo,
		userRepo:    userRepo,
		cache:       cache,
		cfg:         cfg,
		logger:      logger,
	}
	s.alertRules = []alertRule{
		s.overdueRepairAlert,
		s.pendingPaymentsAlert,
	}
	return s
}

func (s *FinanceService) GetFinancialReport(ctx context.Context, filter entities.ReportFilter) (*dto.FinancialReportDTO, error) {
	now := time.Now()
	from, to := filter.Range.OrMonth(now)

	cacheKey := s.reportCacheKey(ctx, "financial", from, to, filter)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
		var report dto.FinancialReportDTO
		if err := json.Unmarshal([]byte(cached), &report); err == nil {
			return &report, nil
		}
	}

	data, err := s.fetchReportData(ctx, now, from, to, filter)
	if err != nil {
		return nil, err
	}

	report := &dto.FinancialReportDTO{
		KPIs:                  s.buildKPIs(data),
		DailyRevenue:          s.buildDailyRevenue(data),
		PeriodRevenue:         s.buildPeriodRevenue(data),
		TechnicianPerformance: s.buildTechnicianPerformance(data),
		TechnicianExpenses:    s.buildTechnicianExpenses(data),
		OverdueEquipment:      data.overdue,
	}
	report.Alerts = make([]dto.AlertDTO, 0)
	for _, rule := range s.alertRules {
		report.Alerts = append(report.Alerts, rule(data)...)
	}

	if encoded, err := json.Marshal(report); err == nil {
		if err := s.cache.Set(ctx, cacheKey, encoded, reportCacheTTL); err != nil {
			s.logger.Warn("Не удалось закешировать отчёт", zap.Error(err))
		}
	}

	return report, nil
}

// fetchReportData выполняет независимые подзапросы параллельно; ошибка
// любого из них роняет отчёт целиком, частичные данные не отдаются.
func (s *FinanceService) fetchReportData(ctx context.Context, now, from, to time.Time, filter entities.ReportFilter) (*reportData, error) {
	d := &reportData{now: now, from: from, to: to, rangeExplicit: !filter.Range.IsZero()}

	monthFrom := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	chartFrom := utils.DayStart(now.AddDate(0, 0, -(dailyChartDays - 1)))
	dayEnd := utils.DayEnd(now)

	var (
		wg   sync.WaitGroup
		errs []error
		mu   sync.Mutex
	)
	addTask := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	addTask(func() (err error) {
		d.payments, err = s.financeRepo.PaymentsBetween(ctx, from, to, filter.TechnicianID)
		return
	})
	addTask(func() (err error) { d.expenses, err = s.financeRepo.ExpensesBetween(ctx, from, to); return })
	addTask(func() (err error) {
		d.paymentsMonth, err = s.financeRepo.PaymentsBetween(ctx, monthFrom, dayEnd, 0)
		return
	})
	addTask(func() (err error) {
		d.expensesMonth, err = s.financeRepo.ExpensesBetween(ctx, monthFrom, dayEnd)
		return
	})
	addTask(func() (err error) {
		d.payments30, err = s.financeRepo.PaymentsBetween(ctx, chartFrom, dayEnd, 0)
		return
	})
	addTask(func() (err error) { d.expenses30, err = s.financeRepo.ExpensesBetween(ctx, chartFrom, dayEnd); return })
	addTask(func() (err error) { d.pending, err = s.financeRepo.PendingDeliveredPayments(ctx); return })
	addTask(func() (err error) {
		d.equipment, err = s.financeRepo.EquipmentEnteredBetween(ctx, from, to, filter)
		return
	})
	addTask(func() (err error) { d.inRepair, err = s.financeRepo.EquipmentInRepair(ctx); return })
	addTask(func() (err error) { d.technicians, err = s.userRepo.ListTechnicians(ctx, false); return })

	wg.Wait()

	if len(errs) > 0 {
		s.logger.Error("Ошибка сборки отчёта", zap.Error(errs[0]))
		return nil, apperrors.NewInternalError("Ошибка загрузки отчёта")
	}

	// Остаток считается по книге оборудования целиком: доплата отдельной
	// записью закрывает долг первой, по отдельным строкам этого не видно.
	ledgers := make(map[uint64][]entities.Payment)
	for _, p := range d.pending {
		ledgers[p.EquipmentID] = append(ledgers[p.EquipmentID], p.Payment)
	}
	for _, ledger := range ledgers {
		d.pendingTotal += BalanceOf(ledger).Remaining
	}
	d.overdue = s.buildOverdue(d)
	return d, nil
}

func (s *FinanceService) buildKPIs(d *reportData) dto.FinancialKPIsDTO {
	var kpis dto.FinancialKPIsDTO

	// Явно заданный период перекрывает календарный месяц; показатели
	// "за сегодня" всегда считаются по текущему дню.
	periodPayments, periodExpenses := d.paymentsMonth, d.expensesMonth
	if d.rangeExplicit {
		periodPayments, periodExpenses = d.payments, d.expenses
	}

	for _, p := range periodPayments {
		if p.EquipmentStatus == entities.EquipmentStatusCancelled {
			continue
		}
		kpis.MonthIncome += p.RecognizedIncome()
	}
	for _, e := range periodExpenses {
		kpis.MonthExpenses += e.Amount
	}

	for _, p := range d.paymentsMonth {
		if p.EquipmentStatus == entities.EquipmentStatusCancelled {
			continue
		}
		if utils.SameDay(p.PaymentDate, d.now) {
			kpis.TodayIncome += p.RecognizedIncome()
		}
	}
	for _, e := range d.expensesMonth {
		if utils.SameDay(e.ExpenseDate, d.now) {
			kpis.TodayExpenses += e.Amount
		}
	}

	kpis.TodayBalance = kpis.TodayIncome - kpis.TodayExpenses
	kpis.MonthBalance = kpis.MonthIncome - kpis.MonthExpenses
	kpis.PendingPayments = d.pendingTotal
	kpis.ProfitMargin = marginOf(kpis.MonthIncome, kpis.MonthExpenses)
	return kpis
}

// buildDailyRevenue строит ровно 30 точек, пропущенные дни заполняются нулями.
func (s *FinanceService) buildDailyRevenue(d *reportData) []dto.DailyRevenuePointDTO {
	incomeByDay := make(map[string]float64)
	expensesByDay := make(map[string]float64)
	for _, p := range d.payments30 {
		if p.EquipmentStatus == entities.EquipmentStatusCancelled {
			continue
		}
		incomeByDay[p.PaymentDate.Format("2006-01-02")] += p.RecognizedIncome()
	}
	for _, e := range d.expenses30 {
		expensesByDay[e.ExpenseDate.Format("2006-01-02")] += e.Amount
	}

	result := make([]dto.DailyRevenuePointDTO, 0, dailyChartDays)
	start := d.now.AddDate(0, 0, -(dailyChartDays - 1))
	for i := 0; i < dailyChartDays; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		result = append(result, dto.DailyRevenuePointDTO{
			Date:     date,
			Income:   incomeByDay[date],
			Expenses: expensesByDay[date],
		})
	}
	return result
}

func (s *FinanceService) buildPeriodRevenue(d *reportData) []dto.PeriodRevenueBucketDTO {
	type bucket struct {
		income    float64
		expenses  float64
		equipment int
	}

	if utils.DaysBetween(d.from, d.to)+1 <= singleBucketMaxDays {
		var total bucket
		for _, p := range d.payments {
			if p.EquipmentStatus != entities.EquipmentStatusCancelled {
				total.income += p.RecognizedIncome()
			}
		}
		for _, e := range d.expenses {
			total.expenses += e.Amount
		}
		total.equipment = len(d.equipment)
		return []dto.PeriodRevenueBucketDTO{{
			Label:          "Total",
			Income:         total.income,
			Expenses:       total.expenses,
			Profit:         total.income - total.expenses,
			ProfitMargin:   marginOf(total.income, total.expenses),
			EquipmentCount: total.equipment,
		}}
	}

	buckets := make(map[string]*bucket)
	monthOf := func(t time.Time) string { return t.Format("2006-01") }
	get := func(label string) *bucket {
		if b, ok := buckets[label]; ok {
			return b
		}
		b := &bucket{}
		buckets[label] = b
		return b
	}

	for _, p := range d.payments {
		if p.EquipmentStatus != entities.EquipmentStatusCancelled {
			get(monthOf(p.PaymentDate)).income += p.RecognizedIncome()
		}
	}
	for _, e := range d.expenses {
		get(monthOf(e.ExpenseDate)).expenses += e.Amount
	}
	for _, eq := range d.equipment {
		get(monthOf(eq.EntryDate)).equipment++
	}

	// Непрерывный ряд месяцев от начала до конца периода, включая пустые.
	result := make([]dto.PeriodRevenueBucketDTO, 0, len(buckets))
	for cursor := time.Date(d.from.Year(), d.from.Month(), 1, 0, 0, 0, 0, d.from.Location()); !cursor.After(d.to); cursor = cursor.AddDate(0, 1, 0) {
		label := monthOf(cursor)
		b := get(label)
		result = append(result, dto.PeriodRevenueBucketDTO{
			Label:          label,
			Income:         b.income,
			Expenses:       b.expenses,
			Profit:         b.income - b.expenses,
			ProfitMargin:   marginOf(b.income, b.expenses),
			EquipmentCount: b.equipment,
		})
	}
	return result
}

// buildTechnicianPerformance: выручка мастера - признанный доход по его
// выданному оборудованию, завершено - только выдача; отменённое
// оборудование из назначений исключается.
func (s *FinanceService) buildTechnicianPerformance(d *reportData) []dto.TechnicianPerformanceDTO {
	revenueByTech := make(map[uint64]float64)
	for _, p := range d.payments {
		if p.TechnicianID == nil || p.EquipmentStatus != entities.EquipmentStatusDelivered {
			continue
		}
		revenueByTech[*p.TechnicianID] += p.RecognizedIncome()
	}

	type counters struct {
		assigned  int
		completed int
		totalDays int
		timed     int
	}
	byTech := make(map[uint64]*counters)
	for _, eq := range d.equipment {
		if !eq.TechnicianID.Valid || eq.Status == entities.EquipmentStatusCancelled {
			continue
		}
		id := uint64(eq.TechnicianID.Int64)
		c, ok := byTech[id]
		if !ok {
			c = &counters{}
			byTech[id] = c
		}
		c.assigned++
		if eq.Status == entities.EquipmentStatusDelivered {
			c.completed++
			if eq.DeliveryDate.Valid {
				c.totalDays += utils.DaysBetween(eq.EntryDate, eq.DeliveryDate.Time)
				c.timed++
			}
		}
	}

	result := make([]dto.TechnicianPerformanceDTO, 0, len(d.technicians))
	for _, tech := range d.technicians {
		c := byTech[tech.ID]
		revenue := revenueByTech[tech.ID]
		if c == nil && revenue == 0 {
			continue
		}
		row := dto.TechnicianPerformanceDTO{TechnicianID: tech.ID, Fio: tech.Fio, Revenue: revenue}
		if c != nil {
			row.AssignedCount = c.assigned
			row.CompletedCount = c.completed
			if c.timed > 0 {
				row.AverageDays = math.Round(float64(c.totalDays)/float64(c.timed)*10) / 10
			}
		}
		result = append(result, row)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Revenue != result[j].Revenue {
			return result[i].Revenue > result[j].Revenue
		}
		return result[i].Fio < result[j].Fio
	})
	return result
}

// buildTechnicianExpenses группирует авансы и зарплаты по ФИО мастера.
// Совпадение по имени получателя, прочие получатели в отчёт не входят.
func (s *FinanceService) buildTechnicianExpenses(d *reportData) []dto.TechnicianExpensesDTO {
	techByFio := make(map[string]*entities.User, len(d.technicians))
	for i := range d.technicians {
		techByFio[d.technicians[i].Fio] = &d.technicians[i]
	}

	rows := make(map[uint64]*dto.TechnicianExpensesDTO)
	for _, e := range d.expenses {
		if e.Type != entities.ExpenseTypeAdvance && e.Type != entities.ExpenseTypeSalary {
			continue
		}
		tech, ok := techByFio[e.Beneficiary]
		if !ok {
			continue
		}
		row, ok := rows[tech.ID]
		if !ok {
			row = &dto.TechnicianExpensesDTO{TechnicianID: tech.ID, Fio: tech.Fio}
			rows[tech.ID] = row
		}
		switch e.Type {
		case entities.ExpenseTypeAdvance:
			row.TotalAdvances += e.Amount
			row.AdvanceCount++
		case entities.ExpenseTypeSalary:
			row.TotalSalaries += e.Amount
			row.SalaryCount++
		}
		row.TotalExpenses += e.Amount
	}

	result := make([]dto.TechnicianExpensesDTO, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalExpenses != result[j].TotalExpenses {
			return result[i].TotalExpenses > result[j].TotalExpenses
		}
		return result[i].Fio < result[j].Fio
	})
	return result
}

func (s *FinanceService) buildOverdue(d *reportData) []dto.OverdueEquipmentDTO {
	threshold := s.cfg.Alerts.RepairOverdueDays
	result := make([]dto.OverdueEquipmentDTO, 0)
	for _, item := range d.inRepair {
		days := item.DaysInRepair(d.now)
		if days <= threshold {
			continue
		}
		result = append(result, dto.OverdueEquipmentDTO{
			ID:            item.ID,
			Code:          item.Code,
			Type:          item.Type,
			TechnicianFio: item.TechnicianFio.String,
			DaysInRepair:  days,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DaysInRepair != result[j].DaysInRepair {
			return result[i].DaysInRepair > result[j].DaysInRepair
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (s *FinanceService) overdueRepairAlert(d *reportData) []dto.AlertDTO {
	if len(d.overdue) == 0 {
		return nil
	}
	return []dto.AlertDTO{{
		Severity: "warning",
		Code:     "REPAIR_OVERDUE",
		Message:  fmt.Sprintf("В ремонте дольше %d дней: %d ед.", s.cfg.Alerts.RepairOverdueDays, len(d.overdue)),
	}}
}

func (s *FinanceService) pendingPaymentsAlert(d *reportData) []dto.AlertDTO {
	if d.pendingTotal <= 0 {
		return nil
	}
	return []dto.AlertDTO{{
		Severity: "warning",
		Code:     "PENDING_PAYMENTS",
		Message:  fmt.Sprintf("Выдано без полной оплаты на сумму %.2f", d.pendingTotal),
	}}
}

func (s *FinanceService) GetOperationalReport(ctx context.Context, filter entities.ReportFilter) (*dto.OperationalReportDTO, error) {
	now := time.Now()
	from, to := filter.Range.OrMonth(now)

	cacheKey := s.reportCacheKey(ctx, "operational", from, to, filter)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
		var report dto.OperationalReportDTO
		if err := json.Unmarshal([]byte(cached), &report); err == nil {
			return &report, nil
		}
	}

	var (
		equipment   []entities.Equipment
		inRepair    []repositories.RepairAgingItem
		technicians []entities.User

		wg   sync.WaitGroup
		errs []error
		mu   sync.Mutex
	)
	addTask := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	addTask(func() (err error) {
		equipment, err = s.financeRepo.EquipmentEnteredBetween(ctx, from, to, filter)
		return
	})
	addTask(func() (err error) { inRepair, err = s.financeRepo.EquipmentInRepair(ctx); return })
	addTask(func() (err error) { technicians, err = s.userRepo.ListTechnicians(ctx, false); return })
	wg.Wait()
	if len(errs) > 0 {
		s.logger.Error("Ошибка сборки операционного отчёта", zap.Error(errs[0]))
		return nil, apperrors.NewInternalError("Ошибка загрузки отчёта")
	}

	d := &reportData{now: now, inRepair: inRepair}
	report := &dto.OperationalReportDTO{
		CountByStatus:       countByStatus(equipment),
		CountByType:         countByType(equipment),
		CountByTechnician:   countByTechnician(equipment, technicians),
		RepairTimeHistogram: repairTimeHistogram(equipment),
		OverdueEquipment:    s.buildOverdue(d),
	}

	if encoded, err := json.Marshal(report); err == nil {
		if err := s.cache.Set(ctx, cacheKey, encoded, reportCacheTTL); err != nil {
			s.logger.Warn("Не удалось закешировать отчёт", zap.Error(err))
		}
	}
	return report, nil
}

// reportCacheKey включает текущее поколение кеша: после любой записи
// счётчик сдвигается и все старые ключи перестают находиться.
func (s *FinanceService) reportCacheKey(ctx context.Context, kind string, from, to time.Time, filter entities.ReportFilter) string {
	generation, err := s.cache.Get(ctx, reportGenerationKey)
	if err != nil || generation == "" {
		generation = "0"
	}
	return fmt.Sprintf("reports:%s:g%s:%s:%s:t%d:%s:%s",
		kind, generation,
		from.Format("2006-01-02"), to.Format("2006-01-02"),
		filter.TechnicianID, filter.Type, filter.Status,
	)
}

// marginOf - рентабельность в процентах с одним знаком; нулевой доход
// всегда даёт 0, а не NaN.
func marginOf(income, expenses float64) float64 {
	if income <= 0 {
		return 0
	}
	return math.Round((income-expenses)/income*1000) / 10
}

func countByStatus(equipment []entities.Equipment) []dto.CountByGroupDTO {
	order := []string{
		entities.EquipmentStatusReceived,
		entities.EquipmentStatusRepair,
		entities.EquipmentStatusRepaired,
		entities.EquipmentStatusDelivered,
		entities.EquipmentStatusCancelled,
	}
	counts := make(map[string]int)
	for _, eq := range equipment {
		counts[eq.Status]++
	}
	result := make([]dto.CountByGroupDTO, 0, len(order))
	for _, status := range order {
		result = append(result, dto.CountByGroupDTO{Label: status, Count: counts[status]})
	}
	return result
}

func countByType(equipment []entities.Equipment) []dto.CountByGroupDTO {
	order := []string{
		entities.EquipmentTypePC,
		entities.EquipmentTypeLaptop,
		entities.EquipmentTypePrinter,
		entities.EquipmentTypePlotter,
		entities.EquipmentTypeOther,
	}
	counts := make(map[string]int)
	for _, eq := range equipment {
		counts[eq.Type]++
	}
	result := make([]dto.CountByGroupDTO, 0, len(order))
	for _, t := range order {
		result = append(result, dto.CountByGroupDTO{Label: t, Count: counts[t]})
	}
	return result
}

func countByTechnician(equipment []entities.Equipment, technicians []entities.User) []dto.CountByGroupDTO {
	fioByID := make(map[uint64]string, len(technicians))
	for _, t := range technicians {
		fioByID[t.ID] = t.Fio
	}
	counts := make(map[string]int)
	for _, eq := range equipment {
		if !eq.TechnicianID.Valid {
			continue
		}
		fio, ok := fioByID[uint64(eq.TechnicianID.Int64)]
		if !ok {
			continue
		}
		counts[fio]++
	}
	result := make([]dto.CountByGroupDTO, 0, len(counts))
	for fio, count := range counts {
		result = append(result, dto.CountByGroupDTO{Label: fio, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	return result
}

// repairTimeHistogram раскладывает выданное оборудование по длительности
// ремонта (приём -> выдача) в фиксированные корзины.
func repairTimeHistogram(equipment []entities.Equipment) []dto.RepairTimeBucketDTO {
	buckets := []struct {
		label string
		min   int
		max   int
	}{
		{"0-3", 0, 3},
		{"4-7", 4, 7},
		{"8-14", 8, 14},
		{"15-30", 15, 30},
		{"31+", 31, math.MaxInt},
	}

	result := make([]dto.RepairTimeBucketDTO, len(buckets))
	for i, b := range buckets {
		result[i] = dto.RepairTimeBucketDTO{Label: b.label}
	}
	for _, eq := range equipment {
		if eq.Status != entities.EquipmentStatusDelivered || !eq.DeliveryDate.Valid {
			continue
		}
		days := utils.DaysBetween(eq.EntryDate, eq.DeliveryDate.Time)
		for i, b := range buckets {
			if days >= b.min && days <= b.max {
				result[i].Count++
				break
			}
		}
	}
	return result
}
