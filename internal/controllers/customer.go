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

type CustomerController struct {
	customerService services.CustomerServiceInterface
	logger          *zap.Logger
}

func NewCustomerController(service services.CustomerServiceInterface, logger *zap.Logger) *CustomerController {
	return &CustomerController{customerService: service, logger: logger}
}

func (c *CustomerController) CreateCustomer(ctx echo.Context) error {
	var payload dto.CreateCustomerDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("CreateCustomer: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.customerService.CreateCustomer(ctx.Request().Context(), payload)
	if err != nil {
		c.logger.Error("CreateCustomer: ошибка создания клиента", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Клиент успешно создан", http.StatusCreated)
}

func (c *CustomerController) FindCustomer(ctx echo.Context) error {
	id, ok := parseIDParam(ctx, c.logger, "клиента")
	if !ok {
		return nil
	}

	res, err := c.customerService.FindCustomer(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Клиент найден", http.StatusOK)
}

func (c *CustomerController) GetCustomerList(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	res, total, err := c.customerService.GetCustomerList(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("GetCustomerList: ошибка получения списка клиентов", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Список клиентов получен", http.StatusOK, total)
}
