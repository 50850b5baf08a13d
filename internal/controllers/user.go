package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"repair-system/internal/services"
	"repair-system/pkg/utils"
)

type UserController struct {
	userService services.UserServiceInterface
	logger      *zap.Logger
}

func NewUserController(service services.UserServiceInterface, logger *zap.Logger) *UserController {
	return &UserController{userService: service, logger: logger}
}

func (c *UserController) GetTechnicians(ctx echo.Context) error {
	onlyActive := ctx.QueryParam("only_active") == "true"

	res, err := c.userService.GetTechnicians(ctx.Request().Context(), onlyActive)
	if err != nil {
		c.logger.Error("GetTechnicians: ошибка получения списка мастеров", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Список мастеров получен", http.StatusOK)
}
