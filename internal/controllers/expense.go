package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/services"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/utils"
)

type ExpenseController struct {
	expenseService services.ExpenseServiceInterface
	logger         *zap.Logger
}

func NewExpenseController(service services.ExpenseServiceInterface, logger *zap.Logger) *ExpenseController {
	return &ExpenseController{expenseService: service, logger: logger}
}

func (c *ExpenseController) CreateExpense(ctx echo.Context) error {
	var payload dto.CreateExpenseDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("CreateExpense: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.expenseService.CreateExpense(ctx.Request().Context(), payload)
	if err != nil {
		c.logger.Error("CreateExpense: ошибка создания расхода", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Расход успешно создан", http.StatusCreated)
}

func (c *ExpenseController) GetExpenseList(ctx echo.Context) error {
	q := ctx.Request().URL.Query()

	dateRange, err := utils.ParseDateRangeFromQuery(q)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	base := utils.ParseFilterFromQuery(q)

	res, total, err := c.expenseService.GetExpenseList(
		ctx.Request().Context(),
		dateRange.From, dateRange.To,
		q.Get("type"),
		base.Limit, base.Offset,
	)
	if err != nil {
		c.logger.Error("GetExpenseList: ошибка получения списка расходов", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Список расходов получен", http.StatusOK, total)
}
