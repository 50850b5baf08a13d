package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/services"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/utils"
)

type EquipmentController struct {
	equipmentService services.EquipmentServiceInterface
	logger           *zap.Logger
}

func NewEquipmentController(service services.EquipmentServiceInterface, logger *zap.Logger) *EquipmentController {
	return &EquipmentController{equipmentService: service, logger: logger}
}

func (c *EquipmentController) GetEquipmentList(ctx echo.Context) error {
	q := ctx.Request().URL.Query()
	filter := entities.EquipmentFilter{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Search: q.Get("search"),
	}
	base := utils.ParseFilterFromQuery(q)
	filter.Limit, filter.Offset = base.Limit, base.Offset
	if raw := q.Get("technician_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.ErrorResponse(ctx,
				apperrors.NewValidationError("неверный формат technician_id"), c.logger)
		}
		filter.TechnicianID = id
	}

	res, total, err := c.equipmentService.GetEquipmentList(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("GetEquipmentList: ошибка при получении списка оборудования", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Список оборудования успешно получен", http.StatusOK, total)
}

func (c *EquipmentController) FindEquipment(ctx echo.Context) error {
	id, ok := parseIDParam(ctx, c.logger, "оборудования")
	if !ok {
		return nil
	}

	res, err := c.equipmentService.FindEquipment(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Оборудование успешно найдено", http.StatusOK)
}

func (c *EquipmentController) CreateEquipment(ctx echo.Context) error {
	var payload dto.CreateEquipmentDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("CreateEquipment: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		c.logger.Error("CreateEquipment: ошибка валидации данных", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.equipmentService.CreateEquipment(ctx.Request().Context(), payload)
	if err != nil {
		c.logger.Error("CreateEquipment: ошибка при приёме оборудования", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Оборудование успешно принято", http.StatusCreated)
}

func (c *EquipmentController) ChangeStatus(ctx echo.Context) error {
	id, ok := parseIDParam(ctx, c.logger, "оборудования")
	if !ok {
		return nil
	}

	var payload dto.ChangeStatusDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("ChangeStatus: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.equipmentService.ChangeStatus(ctx.Request().Context(), id, payload)
	if err != nil {
		c.logger.Error("ChangeStatus: ошибка смены статуса",
			zap.Uint64("id", id), zap.String("newStatus", payload.NewStatus), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Статус успешно изменён", http.StatusOK)
}

func (c *EquipmentController) Reactivate(ctx echo.Context) error {
	id, ok := parseIDParam(ctx, c.logger, "оборудования")
	if !ok {
		return nil
	}

	var payload dto.ReactivateDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("Reactivate: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.equipmentService.Reactivate(ctx.Request().Context(), id, payload)
	if err != nil {
		c.logger.Error("Reactivate: ошибка реактивации", zap.Uint64("id", id), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Оборудование возвращено в работу", http.StatusOK)
}

func (c *EquipmentController) GetStatusHistory(ctx echo.Context) error {
	id, ok := parseIDParam(ctx, c.logger, "оборудования")
	if !ok {
		return nil
	}

	res, err := c.equipmentService.GetStatusHistory(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "История статусов получена", http.StatusOK)
}

// parseIDParam разбирает path-параметр :id. При ошибке ответ уже
// отправлен клиенту, обработчику остаётся вернуть nil.
func parseIDParam(ctx echo.Context, logger *zap.Logger, subject string) (uint64, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		logger.Error("Некорректный ID "+subject, zap.String("id", ctx.Param("id")), zap.Error(err))
		_ = utils.ErrorResponse(ctx,
			apperrors.NewHttpError(
				http.StatusBadRequest,
				"Неверный формат ID "+subject,
				err,
				map[string]interface{}{"param": ctx.Param("id")},
			),
			logger,
		)
		return 0, false
	}
	return id, true
}
