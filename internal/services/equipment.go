package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/repositories"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/utils"
)

const equipmentCodePrefix = "EQ"

type EquipmentServiceInterface interface {
	CreateEquipment(ctx context.Context, data dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error)
	ChangeStatus(ctx context.Context, equipmentID uint64, data dto.ChangeStatusDTO) (*dto.EquipmentDTO, error)
	Reactivate(ctx context.Context, equipmentID uint64, data dto.ReactivateDTO) (*dto.EquipmentDTO, error)
	FindEquipment(ctx context.Context, equipmentID uint64) (*dto.EquipmentDTO, error)
	GetEquipmentList(ctx context.Context, filter entities.EquipmentFilter) ([]dto.EquipmentDTO, uint64, error)
	GetStatusHistory(ctx context.Context, equipmentID uint64) ([]dto.StatusHistoryEntryDTO, error)
}

// transitionState - контекст одного перехода, передаётся эффектам.
type transitionState struct {
	equipment      *entities.Equipment
	data           dto.ChangeStatusDTO
	actorID        uint64
	now            time.Time
	unpaidDelivery bool
}

// transitionEffect - побочный эффект перехода, выполняется в той же
// транзакции, что и запись статуса.
type transitionEffect func(ctx context.Context, tx pgx.Tx, st *transitionState) error

type EquipmentService struct {
	txManager     repositories.TxManagerInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	historyRepo   repositories.EquipmentHistoryRepositoryInterface
	paymentRepo   repositories.PaymentRepositoryInterface
	expenseRepo   repositories.ExpenseRepositoryInterface
	userRepo      repositories.UserRepositoryInterface
	customerRepo  repositories.CustomerRepositoryInterface
	cache         repositories.CacheRepositoryInterface
	logger        *zap.Logger

	// Диспетчер эффектов: целевой статус -> эффекты перехода.
	preEffects  map[string][]transitionEffect
	postEffects map[string][]transitionEffect
}

func NewEquipmentService(
	txManager repositories.TxManagerInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	historyRepo repositories.EquipmentHistoryRepositoryInterface,
	paymentRepo repositories.PaymentRepositoryInterface,
	expenseRepo repositories.ExpenseRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	customerRepo repositories.CustomerRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) EquipmentServiceInterface {
	s := &EquipmentService{
		txManager:     txManager,
		equipmentRepo: equipmentRepo,
		historyRepo:   historyRepo,
		paymentRepo:   paymentRepo,
		expenseRepo:   expenseRepo,
		userRepo:      userRepo,
		customerRepo:  customerRepo,
		cache:         cache,
		logger:        logger,
	}

	// Пред-эффекты выполняются до записи статуса (валидация и подготовка
	// полей), пост-эффекты - после неё, но в той же транзакции.
	s.preEffects = map[string][]transitionEffect{
		entities.EquipmentStatusRepair:    {s.effectAssignTechnician},
		entities.EquipmentStatusDelivered: {s.effectSetDeliveryDate},
	}
	s.postEffects = map[string][]transitionEffect{
		entities.EquipmentStatusCancelled: {s.effectRefundAdvance},
	}

	return s
}

func (s *EquipmentService) CreateEquipment(ctx context.Context, data dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	if data.CustomerID == nil && data.Customer == nil {
		return nil, apperrors.NewValidationError("укажите клиента: customer_id или данные нового клиента")
	}

	now := time.Now()
	var equipmentID uint64

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		customerID, err := s.resolveCustomerInTx(ctx, tx, data)
		if err != nil {
			return err
		}

		sequence, err := s.equipmentRepo.NextCodeSequenceInTx(ctx, tx, now)
		if err != nil {
			return err
		}

		equipment := &entities.Equipment{
			Code:       fmt.Sprintf("%s-%s-%03d", equipmentCodePrefix, now.Format("20060102"), sequence),
			Type:       data.Type,
			Status:     entities.EquipmentStatusReceived,
			Flaw:       data.Flaw,
			CustomerID: customerID,
			EntryDate:  now,
		}
		if data.Observations != nil {
			equipment.Observations = null.StringFromPtr(data.Observations)
		}

		equipmentID, err = s.equipmentRepo.CreateInTx(ctx, tx, equipment)
		if err != nil {
			return err
		}

		history := &entities.EquipmentStatusHistory{
			EquipmentID:  equipmentID,
			Status:       entities.EquipmentStatusReceived,
			Observations: data.Observations,
			ChangedBy:    actorID,
			ChangedAt:    now,
		}
		if err := s.historyRepo.CreateInTx(ctx, tx, history); err != nil {
			return err
		}

		if data.Payment != nil {
			if data.Payment.AdvanceAmount > data.Payment.TotalAmount {
				return apperrors.NewValidationError("аванс (%.2f) не может превышать полную сумму (%.2f)",
					data.Payment.AdvanceAmount, data.Payment.TotalAmount)
			}
			payment := &entities.Payment{
				EquipmentID:   equipmentID,
				TotalAmount:   data.Payment.TotalAmount,
				AdvanceAmount: data.Payment.AdvanceAmount,
				Method:        data.Payment.Method,
				PaymentDate:   now,
			}
			if data.Payment.Observations != nil {
				payment.Observations = null.StringFromPtr(data.Payment.Observations)
			}
			if _, err := s.paymentRepo.CreateInTx(ctx, tx, payment); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		s.logger.Error("Ошибка приёма оборудования", zap.Error(err))
		return nil, err
	}

	s.invalidateReports(ctx)
	return s.FindEquipment(ctx, equipmentID)
}

func (s *EquipmentService) resolveCustomerInTx(ctx context.Context, tx pgx.Tx, data dto.CreateEquipmentDTO) (uint64, error) {
	if data.CustomerID != nil {
		if _, err := s.customerRepo.FindByID(ctx, *data.CustomerID); err != nil {
			return 0, apperrors.NewNotFoundError("клиент с id=%d не найден", *data.CustomerID)
		}
		return *data.CustomerID, nil
	}
	return s.customerRepo.CreateInTx(ctx, tx, data.Customer.Name, data.Customer.Phone)
}

// ChangeStatus - ядро движка переходов. Вся валидация выполняется до
// первой записи; статус, эффекты и строка журнала фиксируются одной
// транзакцией, блокировка строки сериализует конкурирующие переходы.
func (s *EquipmentService) ChangeStatus(ctx context.Context, equipmentID uint64, data dto.ChangeStatusDTO) (*dto.EquipmentDTO, error) {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	role, err := utils.GetUserRoleFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	st := &transitionState{data: data, actorID: actorID, now: time.Now()}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		equipment, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, equipmentID)
		if err != nil {
			if apperrors.IsNotFound(err) || err == apperrors.ErrNotFound {
				return apperrors.NewNotFoundError("оборудование с id=%d не найдено", equipmentID)
			}
			return err
		}
		st.equipment = equipment

		if err := ValidateTransition(equipment.Status, data.NewStatus); err != nil {
			return err
		}
		if err := ValidateActor(role, actorID, equipment, data.NewStatus); err != nil {
			return err
		}

		for _, effect := range s.preEffects[data.NewStatus] {
			if err := effect(ctx, tx, st); err != nil {
				return err
			}
		}

		equipment.Status = data.NewStatus
		if err := s.equipmentRepo.UpdateStateInTx(ctx, tx, equipment); err != nil {
			return err
		}

		for _, effect := range s.postEffects[data.NewStatus] {
			if err := effect(ctx, tx, st); err != nil {
				return err
			}
		}

		history := &entities.EquipmentStatusHistory{
			EquipmentID:  equipment.ID,
			Status:       data.NewStatus,
			Observations: data.Observations,
			ChangedBy:    actorID,
			ChangedAt:    st.now,
		}
		return s.historyRepo.CreateInTx(ctx, tx, history)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.logger.Info("Статус оборудования изменён",
		zap.Uint64("equipmentID", equipmentID),
		zap.String("newStatus", data.NewStatus),
		zap.Uint64("actorID", actorID),
	)

	result, err := s.FindEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	result.UnpaidDelivery = st.unpaidDelivery
	return result, nil
}

// effectAssignTechnician: переход в REPAIR требует активного мастера.
// Явно переданный мастер заменяет закреплённого; при доработке
// (REPAIRED -> REPAIR) допускается уже закреплённый.
func (s *EquipmentService) effectAssignTechnician(ctx context.Context, _ pgx.Tx, st *transitionState) error {
	technicianID := st.data.TechnicianID
	if technicianID == nil && st.equipment.TechnicianID.Valid {
		existing := uint64(st.equipment.TechnicianID.Int64)
		technicianID = &existing
	}
	if technicianID == nil {
		return apperrors.NewValidationError("для перевода в ремонт требуется мастер")
	}

	technician, err := s.userRepo.FindByID(ctx, *technicianID)
	if err != nil || !technician.IsActiveTechnician() {
		return apperrors.NewValidationError("мастер не найден или неактивен")
	}

	st.equipment.TechnicianID = null.Int64From(int64(*technicianID))
	return nil
}

// effectSetDeliveryDate: выдача фиксирует дату. Полная оплата не
// блокирует переход (мягкий гейт), но неоплаченная выдача помечается
// и логируется.
func (s *EquipmentService) effectSetDeliveryDate(ctx context.Context, tx pgx.Tx, st *transitionState) error {
	st.equipment.DeliveryDate = null.TimeFrom(st.now)

	payments, err := s.paymentRepo.FindByEquipmentIDInTx(ctx, tx, st.equipment.ID)
	if err != nil {
		return err
	}
	if BalanceOf(payments).Status != entities.PaymentStatusCompleted {
		st.unpaidDelivery = true
		s.logger.Warn("Выдача оборудования без полной оплаты",
			zap.String("code", st.equipment.Code),
			zap.Uint64("actorID", st.actorID),
		)
	}
	return nil
}

// effectRefundAdvance: отмена с полученным авансом автоматически
// создаёт расход-возврат, ровно один раз на событие отмены. После
// реактивации и повторной отмены возвращается только невозвращённая часть.
func (s *EquipmentService) effectRefundAdvance(ctx context.Context, tx pgx.Tx, st *transitionState) error {
	payments, err := s.paymentRepo.FindByEquipmentIDInTx(ctx, tx, st.equipment.ID)
	if err != nil {
		return err
	}

	balance := BalanceOf(payments)
	refunded, err := s.expenseRepo.RefundTotalByEquipmentInTx(ctx, tx, st.equipment.ID)
	if err != nil {
		return err
	}
	amount := balance.TotalReceived - refunded
	if amount <= 0 {
		return nil
	}

	beneficiary := entities.BusinessBeneficiary
	if customer, err := s.customerRepo.FindByID(ctx, st.equipment.CustomerID); err == nil {
		beneficiary = customer.Name
	}

	refund := &entities.Expense{
		Type:        entities.ExpenseTypeOther,
		Amount:      amount,
		Beneficiary: beneficiary,
		Method:      payments[len(payments)-1].Method,
		Description: null.StringFrom(fmt.Sprintf("Возврат аванса при отмене ремонта %s", st.equipment.Code)),
		ExpenseDate: st.now,
		EquipmentID: null.Int64From(int64(st.equipment.ID)),
		RefundKey:   null.StringFrom(uuid.NewString()),
	}
	if st.data.Observations != nil {
		refund.Observations = null.StringFromPtr(st.data.Observations)
	}

	if _, err := s.expenseRepo.CreateInTx(ctx, tx, refund); err != nil {
		return err
	}

	s.logger.Info("Создан возврат аванса",
		zap.String("code", st.equipment.Code),
		zap.Float64("amount", amount),
	)
	return nil
}

// Reactivate - административная отмена отмены: возврат в RECEIVED с
// пометкой в журнале. Уже проведённый возврат аванса не сторнируется.
func (s *EquipmentService) Reactivate(ctx context.Context, equipmentID uint64, data dto.ReactivateDTO) (*dto.EquipmentDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		equipment, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, equipmentID)
		if err != nil {
			return apperrors.NewNotFoundError("оборудование с id=%d не найдено", equipmentID)
		}

		if equipment.Status != entities.EquipmentStatusCancelled {
			return apperrors.NewStateConflictError("реактивация возможна только для отменённого оборудования")
		}

		equipment.Status = entities.EquipmentStatusReceived
		if err := s.equipmentRepo.UpdateStateInTx(ctx, tx, equipment); err != nil {
			return err
		}

		observations := "Реактивация после отмены"
		if data.Observations != nil {
			observations = observations + ": " + *data.Observations
		}
		history := &entities.EquipmentStatusHistory{
			EquipmentID:  equipment.ID,
			Status:       entities.EquipmentStatusReceived,
			Observations: &observations,
			ChangedBy:    actorID,
			ChangedAt:    now,
		}
		return s.historyRepo.CreateInTx(ctx, tx, history)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	return s.FindEquipment(ctx, equipmentID)
}

func (s *EquipmentService) FindEquipment(ctx context.Context, equipmentID uint64) (*dto.EquipmentDTO, error) {
	equipment, err := s.equipmentRepo.FindByID(ctx, equipmentID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("оборудование с id=%d не найдено", equipmentID)
	}

	result := mapEquipmentToDTO(equipment)

	payments, err := s.paymentRepo.FindByEquipmentID(ctx, equipmentID)
	if err == nil && len(payments) > 0 {
		status := BalanceOf(payments).Status
		result.PaymentStatus = &status
	}

	return result, nil
}

func (s *EquipmentService) GetEquipmentList(ctx context.Context, filter entities.EquipmentFilter) ([]dto.EquipmentDTO, uint64, error) {
	list, total, err := s.equipmentRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	result := make([]dto.EquipmentDTO, 0, len(list))
	for i := range list {
		result = append(result, *mapEquipmentToDTO(&list[i]))
	}
	return result, total, nil
}

func (s *EquipmentService) GetStatusHistory(ctx context.Context, equipmentID uint64) ([]dto.StatusHistoryEntryDTO, error) {
	if _, err := s.equipmentRepo.FindByID(ctx, equipmentID); err != nil {
		return nil, apperrors.NewNotFoundError("оборудование с id=%d не найдено", equipmentID)
	}

	history, err := s.historyRepo.FindByEquipmentID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	result := make([]dto.StatusHistoryEntryDTO, 0, len(history))
	for _, h := range history {
		entry := dto.StatusHistoryEntryDTO{
			ID:           h.ID,
			Status:       h.Status,
			Observations: h.Observations,
			ChangedBy:    h.ActorFio.String,
			ChangedAt:    h.ChangedAt.Format(time.RFC3339),
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *EquipmentService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, reportGenerationKey); err != nil {
		s.logger.Warn("Не удалось инвалидировать кеш отчётов", zap.Error(err))
	}
}

func mapEquipmentToDTO(e *entities.Equipment) *dto.EquipmentDTO {
	result := &dto.EquipmentDTO{
		ID:           e.ID,
		Code:         e.Code,
		Type:         e.Type,
		Status:       e.Status,
		Flaw:         e.Flaw,
		Observations: e.Observations.Ptr(),
		EntryDate:    e.EntryDate.Format(time.RFC3339),
	}
	if e.DeliveryDate.Valid {
		formatted := e.DeliveryDate.Time.Format(time.RFC3339)
		result.DeliveryDate = &formatted
	}
	if e.Customer != nil {
		result.Customer = &dto.CustomerDTO{ID: e.Customer.ID, Name: e.Customer.Name, Phone: e.Customer.Phone}
	}
	if e.Technician != nil {
		result.Technician = &dto.ShortUserDTO{ID: e.Technician.ID, Fio: e.Technician.Fio, Role: e.Technician.Role}
	}
	return result
}
