package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/repositories"
	"repair-system/pkg/config"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/utils"
)

type DistributionServiceInterface interface {
	CalculateDistribution(ctx context.Context, data dto.CalculateDistributionDTO) (*dto.DistributionResultDTO, error)
	CommitDistribution(ctx context.Context, data dto.CalculateDistributionDTO) (*dto.CommitDistributionResultDTO, error)
}

// DistributionService считает равное распределение разницы
// доход-минус-расход между активными мастерами. Вся арифметика на
// decimal: деление и округление по шагу не должны плавать на float64.
type DistributionService struct {
	userRepo    repositories.UserRepositoryInterface
	expenseRepo repositories.ExpenseRepositoryInterface
	cache       repositories.CacheRepositoryInterface
	cfg         *config.Config
	logger      *zap.Logger
}

func NewDistributionService(
	userRepo repositories.UserRepositoryInterface,
	expenseRepo repositories.ExpenseRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cfg *config.Config,
	logger *zap.Logger,
) DistributionServiceInterface {
	return &DistributionService{
		userRepo:    userRepo,
		expenseRepo: expenseRepo,
		cache:       cache,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *DistributionService) CalculateDistribution(ctx context.Context, data dto.CalculateDistributionDTO) (*dto.DistributionResultDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	technicians, err := s.userRepo.ListTechnicians(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(technicians) == 0 {
		// Не ошибка: явный пустой результат, вся разница остаётся
		// нераспределённой и никаких проводок не будет.
		s.logger.Warn("Распределение без активных мастеров")
		difference := decimal.NewFromFloat(data.PeriodIncome).Sub(decimal.NewFromFloat(data.PeriodExpenses))
		return &dto.DistributionResultDTO{
			Difference: difference.InexactFloat64(),
			Remainder:  difference.InexactFloat64(),
			Payments:   make([]dto.TechnicianPaymentDTO, 0),
		}, nil
	}

	from, to, err := s.resolvePeriod(data)
	if err != nil {
		return nil, err
	}

	result := s.distribute(data.PeriodIncome, data.PeriodExpenses, len(technicians))

	capped := decimal.NewFromFloat(result.CappedPerTechnician)
	for _, tech := range technicians {
		existing, err := s.expenseRepo.SalaryTotalByBeneficiary(ctx, tech.Fio, from, to)
		if err != nil {
			return nil, err
		}

		final := capped.Sub(decimal.NewFromFloat(existing))
		if final.IsNegative() {
			final = decimal.Zero
		}

		result.Payments = append(result.Payments, dto.TechnicianPaymentDTO{
			TechnicianID:     tech.ID,
			Fio:              tech.Fio,
			ExistingPayments: existing,
			FinalPayment:     final.InexactFloat64(),
		})
	}

	return result, nil
}

// distribute - чистый расчёт без обращений к БД: разница делится поровну,
// округляется вниз до шага, ограничивается потолком; остаток
// раскладывается на потери округления и потери потолка.
func (s *DistributionService) distribute(income, expenses float64, technicianCount int) *dto.DistributionResultDTO {
	count := decimal.NewFromInt(int64(technicianCount))
	step := decimal.NewFromFloat(s.cfg.Distribution.RoundingStep)
	capLimit := decimal.NewFromFloat(s.cfg.Distribution.MaxPerTechnician)

	difference := decimal.NewFromFloat(income).Sub(decimal.NewFromFloat(expenses))

	raw := difference.Div(count)
	rounded := raw.Div(step).Floor().Mul(step)
	if rounded.IsNegative() {
		rounded = decimal.Zero
	}

	capped := rounded
	capApplied := false
	if capped.GreaterThan(capLimit) {
		capped = capLimit
		capApplied = true
	}

	roundingLoss := difference.Sub(rounded.Mul(count))
	cappingLoss := rounded.Sub(capped).Mul(count)
	remainder := difference.Sub(capped.Mul(count))

	return &dto.DistributionResultDTO{
		Difference:           difference.InexactFloat64(),
		TechnicianCount:      technicianCount,
		RawPerTechnician:     raw.Round(2).InexactFloat64(),
		RoundedPerTechnician: rounded.InexactFloat64(),
		CappedPerTechnician:  capped.InexactFloat64(),
		CapApplied:           capApplied,
		Remainder:            remainder.InexactFloat64(),
		RoundingLoss:         roundingLoss.InexactFloat64(),
		CappingLoss:          cappingLoss.InexactFloat64(),
		Payments:             make([]dto.TechnicianPaymentDTO, 0, technicianCount),
	}
}

// CommitDistribution проводит рассчитанные выплаты как SALARY-расходы.
// Каждая выплата независима: сбой одной не откатывает остальные,
// частичный успех возвращается явно.
func (s *DistributionService) CommitDistribution(ctx context.Context, data dto.CalculateDistributionDTO) (*dto.CommitDistributionResultDTO, error) {
	result, err := s.CalculateDistribution(ctx, data)
	if err != nil {
		return nil, err
	}

	method := entities.PaymentMethodCash
	if data.Method != nil {
		method = *data.Method
	}

	commit := &dto.CommitDistributionResultDTO{Result: *result}
	now := time.Now()

	for _, payment := range result.Payments {
		if payment.FinalPayment <= 0 {
			commit.SkippedCount++
			continue
		}

		expense := &entities.Expense{
			Type:        entities.ExpenseTypeSalary,
			Amount:      payment.FinalPayment,
			Beneficiary: payment.Fio,
			Method:      method,
			Description: null.StringFrom(fmt.Sprintf("Распределение выплат за период, разница %.2f", result.Difference)),
			ExpenseDate: now,
		}
		if _, err := s.expenseRepo.Create(ctx, expense); err != nil {
			s.logger.Error("Не удалось провести выплату мастеру",
				zap.String("fio", payment.Fio),
				zap.Float64("amount", payment.FinalPayment),
				zap.Error(err),
			)
			commit.FailedCount++
			commit.FailedFio = append(commit.FailedFio, payment.Fio)
			continue
		}
		commit.PostedCount++
	}

	if commit.PostedCount > 0 {
		if _, err := s.cache.Incr(ctx, reportGenerationKey); err != nil {
			s.logger.Warn("Не удалось инвалидировать кеш отчётов", zap.Error(err))
		}
	}

	s.logger.Info("Распределение выплат проведено",
		zap.Int("posted", commit.PostedCount),
		zap.Int("failed", commit.FailedCount),
		zap.Int("skipped", commit.SkippedCount),
	)
	return commit, nil
}

// resolvePeriod - период поиска уже выплаченных зарплат; по умолчанию
// текущий календарный месяц.
func (s *DistributionService) resolvePeriod(data dto.CalculateDistributionDTO) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := utils.DayEnd(now)

	if data.From != nil {
		parsed, err := time.Parse("2006-01-02", *data.From)
		if err != nil {
			return from, to, apperrors.NewValidationError("неверный формат даты from, ожидается YYYY-MM-DD")
		}
		from = utils.DayStart(parsed)
	}
	if data.To != nil {
		parsed, err := time.Parse("2006-01-02", *data.To)
		if err != nil {
			return from, to, apperrors.NewValidationError("неверный формат даты to, ожидается YYYY-MM-DD")
		}
		to = utils.DayEnd(parsed)
	}
	if to.Before(from) {
		return from, to, apperrors.NewValidationError("период задан неверно: to раньше from")
	}
	return from, to, nil
}
