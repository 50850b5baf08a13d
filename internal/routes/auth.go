package routes

import (
	"github.com/labstack/echo/v4"

	"repair-system/internal/controllers"
	"repair-system/pkg/middleware"
)

func runAuthRouter(api *echo.Group, authCtrl *controllers.AuthController, authMW *middleware.AuthMiddleware) {
	api.POST("/auth/login", authCtrl.Login)
	api.POST("/auth/refresh", authCtrl.Refresh)
	api.GET("/auth/profile", authCtrl.Profile, authMW.Auth)
}
