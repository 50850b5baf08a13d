package routes

import (
	"github.com/labstack/echo/v4"

	"repair-system/internal/controllers"
)

func runDistributionRouter(secure *echo.Group, distributionCtrl *controllers.DistributionController) {
	secure.POST("/technician-payments/calculate", distributionCtrl.Calculate)
	secure.POST("/technician-payments/commit", distributionCtrl.Commit)
}
