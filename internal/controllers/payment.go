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

type PaymentController struct {
	paymentService services.PaymentServiceInterface
	logger         *zap.Logger
}

func NewPaymentController(service services.PaymentServiceInterface, logger *zap.Logger) *PaymentController {
	return &PaymentController{paymentService: service, logger: logger}
}

func (c *PaymentController) RecordPayment(ctx echo.Context) error {
	equipmentID, ok := parseIDParam(ctx, c.logger, "оборудования")
	if !ok {
		return nil
	}

	var payload dto.RecordPaymentDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("RecordPayment: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.paymentService.RecordPayment(ctx.Request().Context(), equipmentID, payload)
	if err != nil {
		c.logger.Error("RecordPayment: ошибка записи платежа",
			zap.Uint64("equipmentID", equipmentID), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Платёж успешно записан", http.StatusCreated)
}

func (c *PaymentController) UpdatePayment(ctx echo.Context) error {
	paymentID, ok := parseIDParam(ctx, c.logger, "платежа")
	if !ok {
		return nil
	}

	var payload dto.UpdatePaymentDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("UpdatePayment: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.paymentService.UpdatePayment(ctx.Request().Context(), paymentID, payload)
	if err != nil {
		c.logger.Error("UpdatePayment: ошибка обновления платежа",
			zap.Uint64("paymentID", paymentID), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Платёж успешно обновлён", http.StatusOK)
}

func (c *PaymentController) GetActivePayment(ctx echo.Context) error {
	equipmentID, ok := parseIDParam(ctx, c.logger, "оборудования")
	if !ok {
		return nil
	}

	res, err := c.paymentService.GetActivePayment(ctx.Request().Context(), equipmentID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Платёж получен", http.StatusOK)
}

func (c *PaymentController) GetBalance(ctx echo.Context) error {
	equipmentID, ok := parseIDParam(ctx, c.logger, "оборудования")
	if !ok {
		return nil
	}

	res, err := c.paymentService.GetBalance(ctx.Request().Context(), equipmentID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Баланс получен", http.StatusOK)
}
