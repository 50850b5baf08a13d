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

type DistributionController struct {
	distributionService services.DistributionServiceInterface
	logger              *zap.Logger
}

func NewDistributionController(service services.DistributionServiceInterface, logger *zap.Logger) *DistributionController {
	return &DistributionController{distributionService: service, logger: logger}
}

func (c *DistributionController) Calculate(ctx echo.Context) error {
	var payload dto.CalculateDistributionDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("Calculate: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.distributionService.CalculateDistribution(ctx.Request().Context(), payload)
	if err != nil {
		c.logger.Error("Calculate: ошибка расчёта распределения", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Распределение рассчитано", http.StatusOK)
}

func (c *DistributionController) Commit(ctx echo.Context) error {
	var payload dto.CalculateDistributionDTO
	if err := ctx.Bind(&payload); err != nil {
		c.logger.Error("Commit: ошибка привязки данных", zap.Error(err))
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат данных в теле запроса", err, nil),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.distributionService.CommitDistribution(ctx.Request().Context(), payload)
	if err != nil {
		c.logger.Error("Commit: ошибка проведения распределения", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Распределение проведено", http.StatusOK)
}
