package routes

import (
	"github.com/labstack/echo/v4"

	"repair-system/internal/controllers"
)

func runEquipmentRouter(secure *echo.Group, equipmentCtrl *controllers.EquipmentController, paymentCtrl *controllers.PaymentController) {
	secure.GET("/equipment", equipmentCtrl.GetEquipmentList)
	secure.GET("/equipment/:id", equipmentCtrl.FindEquipment)
	secure.POST("/equipment", equipmentCtrl.CreateEquipment)
	secure.PATCH("/equipment/:id/status", equipmentCtrl.ChangeStatus)
	secure.POST("/equipment/:id/reactivate", equipmentCtrl.Reactivate)
	secure.GET("/equipment/:id/history", equipmentCtrl.GetStatusHistory)

	// Платёжная книга живёт под оборудованием.
	secure.POST("/equipment/:id/payments", paymentCtrl.RecordPayment)
	secure.GET("/equipment/:id/payments/active", paymentCtrl.GetActivePayment)
	secure.GET("/equipment/:id/balance", paymentCtrl.GetBalance)
	secure.PUT("/payments/:id", paymentCtrl.UpdatePayment)
}
