package routes

import (
	"github.com/labstack/echo/v4"

	"repair-system/internal/controllers"
)

func runExpenseRouter(secure *echo.Group, expenseCtrl *controllers.ExpenseController) {
	secure.POST("/expenses", expenseCtrl.CreateExpense)
	secure.GET("/expenses", expenseCtrl.GetExpenseList)
}
