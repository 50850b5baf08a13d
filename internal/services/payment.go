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
	"repair-system/pkg/utils"
)

type PaymentServiceInterface interface {
	RecordPayment(ctx context.Context, equipmentID uint64, data dto.RecordPaymentDTO) (*dto.PaymentDTO, error)
	UpdatePayment(ctx context.Context, paymentID uint64, data dto.UpdatePaymentDTO) (*dto.PaymentDTO, error)
	GetActivePayment(ctx context.Context, equipmentID uint64) (*dto.PaymentDTO, error)
	GetBalance(ctx context.Context, equipmentID uint64) (*dto.PaymentBalanceDTO, error)
}

type PaymentService struct {
	paymentRepo   repositories.PaymentRepositoryInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	cache         repositories.CacheRepositoryInterface
	logger        *zap.Logger
}

func NewPaymentService(
	paymentRepo repositories.PaymentRepositoryInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) PaymentServiceInterface {
	return &PaymentService{
		paymentRepo:   paymentRepo,
		equipmentRepo: equipmentRepo,
		cache:         cache,
		logger:        logger,
	}
}

// LedgerBalance - сводное состояние платёжной книги. Ни одна отдельная
// запись не является "текущим состоянием": договорная сумма берётся из
// первой записи, получено - сумма признанных доходов всех записей.
type LedgerBalance struct {
	AgreedTotal   float64
	TotalReceived float64
	Remaining     float64
	Status        string
}

// BalanceOf вычисляет сводный баланс по записям книги (в порядке поступления).
func BalanceOf(payments []entities.Payment) LedgerBalance {
	if len(payments) == 0 {
		return LedgerBalance{Status: entities.PaymentStatusPending}
	}

	agreed := payments[0].TotalAmount
	var received float64
	for i := range payments {
		received += payments[i].RecognizedIncome()
	}

	remaining := agreed - received
	if remaining < 0 {
		remaining = 0
	}

	return LedgerBalance{
		AgreedTotal:   agreed,
		TotalReceived: received,
		Remaining:     remaining,
		Status:        entities.PaymentStatusOf(agreed, received),
	}
}

func requireAdmin(ctx context.Context) error {
	role, err := utils.GetUserRoleFromCtx(ctx)
	if err != nil {
		return err
	}
	if role != entities.RoleAdministrator {
		return apperrors.NewPermissionError("операция доступна только администратору")
	}
	return nil
}

func (s *PaymentService) RecordPayment(ctx context.Context, equipmentID uint64, data dto.RecordPaymentDTO) (*dto.PaymentDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	if _, err := s.equipmentRepo.FindByID(ctx, equipmentID); err != nil {
		return nil, apperrors.NewNotFoundError("оборудование с id=%d не найдено", equipmentID)
	}

	payments, err := s.paymentRepo.FindByEquipmentID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	payment, err := buildLedgerEntry(equipmentID, payments, data, time.Now())
	if err != nil {
		return nil, err
	}

	id, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		s.logger.Error("Не удалось создать запись платежа", zap.Uint64("equipmentID", equipmentID), zap.Error(err))
		return nil, err
	}
	payment.ID = id

	s.invalidateReports(ctx)
	s.logger.Info("Платёж зарегистрирован",
		zap.Uint64("equipmentID", equipmentID),
		zap.Float64("advance", payment.AdvanceAmount),
		zap.String("status", payment.Status()),
	)

	return mapPaymentToDTO(payment), nil
}

// buildLedgerEntry применяет правило книги: первая запись создаётся с
// полными суммами, доплата по PARTIAL/PENDING оформляется новой записью
// на остаток, по COMPLETED дальнейшие изменения запрещены.
func buildLedgerEntry(equipmentID uint64, existing []entities.Payment, data dto.RecordPaymentDTO, now time.Time) (*entities.Payment, error) {
	payment := &entities.Payment{
		EquipmentID: equipmentID,
		Method:      data.Method,
		PaymentDate: now,
	}
	if data.Observations != nil {
		payment.Observations = null.StringFromPtr(data.Observations)
	}

	if len(existing) == 0 {
		if data.AdvanceAmount > data.TotalAmount {
			return nil, apperrors.NewValidationError("аванс (%.2f) не может превышать полную сумму (%.2f)", data.AdvanceAmount, data.TotalAmount)
		}
		payment.TotalAmount = data.TotalAmount
		payment.AdvanceAmount = data.AdvanceAmount
		return payment, nil
	}

	balance := BalanceOf(existing)
	if balance.Status == entities.PaymentStatusCompleted {
		return nil, apperrors.NewStateConflictError("оплата по оборудованию уже завершена")
	}

	if data.AdvanceAmount <= 0 {
		return nil, apperrors.NewValidationError("сумма доплаты должна быть больше нуля")
	}
	if data.AdvanceAmount > balance.Remaining {
		return nil, apperrors.NewValidationError("доплата (%.2f) превышает остаток (%.2f)", data.AdvanceAmount, balance.Remaining)
	}

	payment.TotalAmount = balance.Remaining
	payment.AdvanceAmount = data.AdvanceAmount
	return payment, nil
}

func (s *PaymentService) UpdatePayment(ctx context.Context, paymentID uint64, data dto.UpdatePaymentDTO) (*dto.PaymentDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("платёж с id=%d не найден", paymentID)
	}

	if payment.Status() == entities.PaymentStatusCompleted {
		return nil, apperrors.NewStateConflictError("завершённый платёж нельзя изменять")
	}

	if data.TotalAmount != nil {
		payment.TotalAmount = *data.TotalAmount
	}
	if data.AdvanceAmount != nil {
		payment.AdvanceAmount = *data.AdvanceAmount
	}
	if data.Method != nil {
		payment.Method = *data.Method
	}
	if data.Observations != nil {
		payment.Observations = null.StringFrom(*data.Observations)
	}

	if payment.AdvanceAmount > payment.TotalAmount {
		return nil, apperrors.NewValidationError("аванс (%.2f) не может превышать полную сумму (%.2f)", payment.AdvanceAmount, payment.TotalAmount)
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	return mapPaymentToDTO(payment), nil
}

// GetActivePayment возвращает последнюю запись книги или nil.
func (s *PaymentService) GetActivePayment(ctx context.Context, equipmentID uint64) (*dto.PaymentDTO, error) {
	payments, err := s.paymentRepo.FindByEquipmentID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	return mapPaymentToDTO(&payments[len(payments)-1]), nil
}

func (s *PaymentService) GetBalance(ctx context.Context, equipmentID uint64) (*dto.PaymentBalanceDTO, error) {
	if _, err := s.equipmentRepo.FindByID(ctx, equipmentID); err != nil {
		return nil, apperrors.NewNotFoundError("оборудование с id=%d не найдено", equipmentID)
	}

	payments, err := s.paymentRepo.FindByEquipmentID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	balance := BalanceOf(payments)
	result := &dto.PaymentBalanceDTO{
		EquipmentID:   equipmentID,
		AgreedTotal:   balance.AgreedTotal,
		TotalReceived: balance.TotalReceived,
		Remaining:     balance.Remaining,
		Status:        balance.Status,
	}
	for i := range payments {
		result.Records = append(result.Records, *mapPaymentToDTO(&payments[i]))
	}
	return result, nil
}

func (s *PaymentService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, reportGenerationKey); err != nil {
		s.logger.Warn("Не удалось инвалидировать кеш отчётов", zap.Error(err))
	}
}

func mapPaymentToDTO(p *entities.Payment) *dto.PaymentDTO {
	return &dto.PaymentDTO{
		ID:              p.ID,
		EquipmentID:     p.EquipmentID,
		TotalAmount:     p.TotalAmount,
		AdvanceAmount:   p.AdvanceAmount,
		RemainingAmount: p.RemainingAmount(),
		Status:          p.Status(),
		Method:          p.Method,
		Observations:    p.Observations.Ptr(),
		PaymentDate:     p.PaymentDate.Format(time.RFC3339),
	}
}
