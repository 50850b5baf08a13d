package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/utils"
)

type distributionFixture struct {
	svc         DistributionServiceInterface
	expenseRepo *fakeExpenseRepo
	cache       *fakeCache
}

func newDistributionFixture(technicians ...entities.User) *distributionFixture {
	f := &distributionFixture{
		expenseRepo: newFakeExpenseRepo(),
		cache:       newFakeCache(),
	}
	f.svc = NewDistributionService(
		newFakeUserRepo(technicians...), f.expenseRepo, f.cache, testConfig(), zap.NewNop(),
	)
	return f
}

func threeTechnicians() []entities.User {
	return []entities.User{
		{ID: 2, Fio: "Мастер Первый", Role: entities.RoleTechnician, Status: entities.UserStatusActive},
		{ID: 3, Fio: "Мастер Второй", Role: entities.RoleTechnician, Status: entities.UserStatusActive},
		{ID: 4, Fio: "Мастер Третий", Role: entities.RoleTechnician, Status: entities.UserStatusActive},
	}
}

func TestDistribute(t *testing.T) {
	s := &DistributionService{cfg: testConfig(), logger: zap.NewNop()}

	// 1000 - 200 = 800 на троих: 266.67 -> 260 по шагу 10 -> потолок 250.
	result := s.distribute(1000, 200, 3)

	assert.Equal(t, 800.0, result.Difference)
	assert.Equal(t, 3, result.TechnicianCount)
	assert.Equal(t, 266.67, result.RawPerTechnician)
	assert.Equal(t, 260.0, result.RoundedPerTechnician)
	assert.Equal(t, 250.0, result.CappedPerTechnician)
	assert.True(t, result.CapApplied)

	// Остаток раскладывается без потерь: 20 округление + 30 потолок = 50.
	assert.Equal(t, 20.0, result.RoundingLoss)
	assert.Equal(t, 30.0, result.CappingLoss)
	assert.Equal(t, 50.0, result.Remainder)
}

func TestDistribute_NoCap(t *testing.T) {
	s := &DistributionService{cfg: testConfig(), logger: zap.NewNop()}

	result := s.distribute(500, 80, 2)

	assert.Equal(t, 420.0, result.Difference)
	assert.Equal(t, 210.0, result.RoundedPerTechnician)
	assert.Equal(t, 210.0, result.CappedPerTechnician)
	assert.False(t, result.CapApplied)
	assert.Equal(t, 0.0, result.Remainder)
}

func TestDistribute_NegativeDifference(t *testing.T) {
	s := &DistributionService{cfg: testConfig(), logger: zap.NewNop()}

	result := s.distribute(100, 400, 3)

	assert.Equal(t, -300.0, result.Difference)
	assert.Equal(t, 0.0, result.RoundedPerTechnician)
	assert.Equal(t, 0.0, result.CappedPerTechnician)
	assert.Equal(t, -300.0, result.Remainder)
}

func TestCalculateDistribution(t *testing.T) {
	f := newDistributionFixture(threeTechnicians()...)

	// Уже выплаченная в периоде зарплата вычитается из итоговой выплаты.
	now := time.Now()
	_, err := f.expenseRepo.Create(adminCtx(), &entities.Expense{
		Type:        entities.ExpenseTypeSalary,
		Amount:      100,
		Beneficiary: "Мастер Первый",
		Method:      entities.PaymentMethodCash,
		ExpenseDate: now,
	})
	require.NoError(t, err)
	// Зарплата за прошлый месяц в расчёт не входит.
	_, err = f.expenseRepo.Create(adminCtx(), &entities.Expense{
		Type:        entities.ExpenseTypeSalary,
		Amount:      999,
		Beneficiary: "Мастер Второй",
		Method:      entities.PaymentMethodCash,
		ExpenseDate: now.AddDate(0, -2, 0),
	})
	require.NoError(t, err)

	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	to := now.Format("2006-01-02")
	result, err := f.svc.CalculateDistribution(adminCtx(), dto.CalculateDistributionDTO{
		PeriodIncome:   1000,
		PeriodExpenses: 200,
		From:           &from,
		To:             &to,
	})
	require.NoError(t, err)

	require.Len(t, result.Payments, 3)
	assert.Equal(t, "Мастер Первый", result.Payments[0].Fio)
	assert.Equal(t, 100.0, result.Payments[0].ExistingPayments)
	assert.Equal(t, 150.0, result.Payments[0].FinalPayment)
	assert.Equal(t, 0.0, result.Payments[1].ExistingPayments)
	assert.Equal(t, 250.0, result.Payments[1].FinalPayment)
	assert.Equal(t, 250.0, result.Payments[2].FinalPayment)
}

func TestCalculateDistribution_ExistingAboveCap(t *testing.T) {
	f := newDistributionFixture(threeTechnicians()...)

	// Выплачено больше потолка - итог клампится к нулю, не в минус.
	_, err := f.expenseRepo.Create(adminCtx(), &entities.Expense{
		Type:        entities.ExpenseTypeSalary,
		Amount:      400,
		Beneficiary: "Мастер Первый",
		Method:      entities.PaymentMethodCash,
		ExpenseDate: time.Now(),
	})
	require.NoError(t, err)

	result, err := f.svc.CalculateDistribution(adminCtx(), dto.CalculateDistributionDTO{
		PeriodIncome:   1000,
		PeriodExpenses: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Payments[0].FinalPayment)
}

func TestCalculateDistribution_NoTechnicians(t *testing.T) {
	f := newDistributionFixture(
		entities.User{ID: 2, Fio: "Неактивный", Role: entities.RoleTechnician, Status: entities.UserStatusInactive},
	)

	// Без активных мастеров расчёт не ошибка: вся разница остаётся
	// нераспределённой, выплат нет.
	result, err := f.svc.CalculateDistribution(adminCtx(), dto.CalculateDistributionDTO{
		PeriodIncome:   1000,
		PeriodExpenses: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, 800.0, result.Difference)
	assert.Equal(t, 800.0, result.Remainder)
	assert.Equal(t, 0, result.TechnicianCount)
	assert.Empty(t, result.Payments)

	// Проведение по такому расчёту ничего не постит.
	commit, err := f.svc.CommitDistribution(adminCtx(), dto.CalculateDistributionDTO{
		PeriodIncome:   1000,
		PeriodExpenses: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, commit.PostedCount)
	assert.Empty(t, f.expenseRepo.items)
	_, err = f.cache.Get(adminCtx(), reportGenerationKey)
	assert.Error(t, err)
}

func TestCalculateDistribution_Errors(t *testing.T) {
	t.Run("только администратор", func(t *testing.T) {
		f := newDistributionFixture(threeTechnicians()...)
		_, err := f.svc.CalculateDistribution(userCtx(2, entities.RoleTechnician), dto.CalculateDistributionDTO{PeriodIncome: 1000})
		require.Error(t, err)
		assert.True(t, apperrors.IsPermission(err))
	})

	t.Run("неверный формат даты", func(t *testing.T) {
		f := newDistributionFixture(threeTechnicians()...)
		_, err := f.svc.CalculateDistribution(adminCtx(), dto.CalculateDistributionDTO{
			PeriodIncome: 1000,
			From:         utils.ToPtr("15.08.2026"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestCommitDistribution(t *testing.T) {
	f := newDistributionFixture(threeTechnicians()...)

	commit, err := f.svc.CommitDistribution(adminCtx(), dto.CalculateDistributionDTO{
		PeriodIncome:   1000,
		PeriodExpenses: 200,
		Method:         utils.ToPtr(entities.PaymentMethodTransfer),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, commit.PostedCount)
	assert.Equal(t, 0, commit.FailedCount)
	assert.Equal(t, 0, commit.SkippedCount)

	require.Len(t, f.expenseRepo.items, 3)
	for _, e := range f.expenseRepo.items {
		assert.Equal(t, entities.ExpenseTypeSalary, e.Type)
		assert.Equal(t, 250.0, e.Amount)
		assert.Equal(t, entities.PaymentMethodTransfer, e.Method)
	}

	// Проведение сдвигает поколение кеша отчётов.
	generation, err := f.cache.Get(adminCtx(), reportGenerationKey)
	require.NoError(t, err)
	assert.Equal(t, "1", generation)
}

func TestCommitDistribution_PartialFailure(t *testing.T) {
	f := newDistributionFixture(threeTechnicians()...)
	f.expenseRepo.failFor["Мастер Второй"] = true

	commit, err := f.svc.CommitDistribution(adminCtx(), dto.CalculateDistributionDTO{
		PeriodIncome:   1000,
		PeriodExpenses: 200,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, commit.PostedCount)
	assert.Equal(t, 1, commit.FailedCount)
	assert.Equal(t, []string{"Мастер Второй"}, commit.FailedFio)
	assert.Len(t, f.expenseRepo.items, 2)
}

func TestCommitDistribution_NothingToPay(t *testing.T) {
	f := newDistributionFixture(threeTechnicians()...)

	commit, err := f.svc.CommitDistribution(adminCtx(), dto.CalculateDistributionDTO{
		PeriodIncome:   100,
		PeriodExpenses: 400,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, commit.PostedCount)
	assert.Equal(t, 3, commit.SkippedCount)
	assert.Empty(t, f.expenseRepo.items)

	// Без проведённых выплат кеш отчётов не трогается.
	_, err = f.cache.Get(adminCtx(), reportGenerationKey)
	assert.Error(t, err)
}
