package services

import (
	"context"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/repositories"
	apperrors "repair-system/pkg/errors"
)

type ExpenseServiceInterface interface {
	CreateExpense(ctx context.Context, data dto.CreateExpenseDTO) (*dto.ExpenseDTO, error)
	GetExpenseList(ctx context.Context, from, to *time.Time, expenseType string, limit, offset int) ([]dto.ExpenseDTO, uint64, error)
}

type ExpenseService struct {
	expenseRepo repositories.ExpenseRepositoryInterface
	cache       repositories.CacheRepositoryInterface
	logger      *zap.Logger
}

func NewExpenseService(
	expenseRepo repositories.ExpenseRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) ExpenseServiceInterface {
	return &ExpenseService{expenseRepo: expenseRepo, cache: cache, logger: logger}
}

func (s *ExpenseService) CreateExpense(ctx context.Context, data dto.CreateExpenseDTO) (*dto.ExpenseDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	expenseDate := time.Now()
	if data.ExpenseDate != nil {
		parsed, err := time.Parse("2006-01-02", *data.ExpenseDate)
		if err != nil {
			return nil, apperrors.NewValidationError("неверный формат даты расхода, ожидается YYYY-MM-DD")
		}
		expenseDate = parsed
	}

	expense := &entities.Expense{
		Type:        data.Type,
		Amount:      data.Amount,
		Beneficiary: data.Beneficiary,
		Method:      data.Method,
		ExpenseDate: expenseDate,
	}
	if data.Description != nil {
		expense.Description = null.StringFromPtr(data.Description)
	}
	if data.Observations != nil {
		expense.Observations = null.StringFromPtr(data.Observations)
	}

	id, err := s.expenseRepo.Create(ctx, expense)
	if err != nil {
		s.logger.Error("Ошибка создания расхода", zap.Error(err))
		return nil, err
	}
	expense.ID = id

	if _, err := s.cache.Incr(ctx, reportGenerationKey); err != nil {
		s.logger.Warn("Не удалось инвалидировать кеш отчётов", zap.Error(err))
	}

	return mapExpenseToDTO(expense), nil
}

func (s *ExpenseService) GetExpenseList(ctx context.Context, from, to *time.Time, expenseType string, limit, offset int) ([]dto.ExpenseDTO, uint64, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, 0, err
	}

	list, total, err := s.expenseRepo.List(ctx, from, to, expenseType, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	result := make([]dto.ExpenseDTO, 0, len(list))
	for i := range list {
		result = append(result, *mapExpenseToDTO(&list[i]))
	}
	return result, total, nil
}

func mapExpenseToDTO(e *entities.Expense) *dto.ExpenseDTO {
	result := &dto.ExpenseDTO{
		ID:           e.ID,
		Type:         e.Type,
		Amount:       e.Amount,
		Beneficiary:  e.Beneficiary,
		Method:       e.Method,
		Description:  e.Description.Ptr(),
		Observations: e.Observations.Ptr(),
		ExpenseDate:  e.ExpenseDate.Format(time.RFC3339),
	}
	if e.EquipmentID.Valid {
		equipmentID := uint64(e.EquipmentID.Int64)
		result.EquipmentID = &equipmentID
	}
	return result
}
