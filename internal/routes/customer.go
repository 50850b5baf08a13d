package routes

import (
	"github.com/labstack/echo/v4"

	"repair-system/internal/controllers"
)

func runCustomerRouter(secure *echo.Group, customerCtrl *controllers.CustomerController) {
	secure.GET("/customers", customerCtrl.GetCustomerList)
	secure.GET("/customers/:id", customerCtrl.FindCustomer)
	secure.POST("/customers", customerCtrl.CreateCustomer)
}
