package routes

import (
	"github.com/labstack/echo/v4"

	"repair-system/internal/controllers"
)

func runUserRouter(secure *echo.Group, userCtrl *controllers.UserController) {
	secure.GET("/technicians", userCtrl.GetTechnicians)
}
