package routes

import (
	"github.com/labstack/echo/v4"

	"repair-system/internal/controllers"
)

func runReportRouter(secure *echo.Group, reportCtrl *controllers.ReportController) {
	secure.GET("/reports/financial", reportCtrl.GetFinancialReport)
	secure.GET("/reports/financial/export", reportCtrl.ExportFinancialReport)
	secure.GET("/reports/operational", reportCtrl.GetOperationalReport)
}
