package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"repair-system/internal/controllers"
	"repair-system/internal/repositories"
	"repair-system/internal/services"
	"repair-system/pkg/config"
	"repair-system/pkg/middleware"
	"repair-system/pkg/service"
)

func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, jwtSvc service.JWTService, logger *zap.Logger, cfg *config.Config) {
	logger.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)
	txManager := repositories.NewTxManager(dbConn)

	// --- РЕПОЗИТОРИИ ---
	userRepo := repositories.NewUserRepository(dbConn, logger)
	customerRepo := repositories.NewCustomerRepository(dbConn)
	equipmentRepo := repositories.NewEquipmentRepository(dbConn, logger)
	historyRepo := repositories.NewEquipmentHistoryRepository(dbConn)
	paymentRepo := repositories.NewPaymentRepository(dbConn)
	expenseRepo := repositories.NewExpenseRepository(dbConn)
	financeRepo := repositories.NewFinanceRepository(dbConn, logger)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// --- СЕРВИСЫ ---
	authService := services.NewAuthService(userRepo, cacheRepo, jwtSvc, logger)
	userService := services.NewUserService(userRepo, logger)
	customerService := services.NewCustomerService(customerRepo, logger)
	equipmentService := services.NewEquipmentService(
		txManager, equipmentRepo, historyRepo, paymentRepo, expenseRepo,
		userRepo, customerRepo, cacheRepo, logger,
	)
	paymentService := services.NewPaymentService(paymentRepo, equipmentRepo, cacheRepo, logger)
	expenseService := services.NewExpenseService(expenseRepo, cacheRepo, logger)
	financeService := services.NewFinanceService(financeRepo, userRepo, cacheRepo, cfg, logger)
	distributionService := services.NewDistributionService(userRepo, expenseRepo, cacheRepo, cfg, logger)

	// --- КОНТРОЛЛЕРЫ ---
	authCtrl := controllers.NewAuthController(authService, logger)
	userCtrl := controllers.NewUserController(userService, logger)
	customerCtrl := controllers.NewCustomerController(customerService, logger)
	equipmentCtrl := controllers.NewEquipmentController(equipmentService, logger)
	paymentCtrl := controllers.NewPaymentController(paymentService, logger)
	expenseCtrl := controllers.NewExpenseController(expenseService, logger)
	reportCtrl := controllers.NewReportController(financeService, logger)
	distributionCtrl := controllers.NewDistributionController(distributionService, logger)

	// --- РОУТЕРЫ ---
	secureGroup := api.Group("", authMW.Auth)

	runAuthRouter(api, authCtrl, authMW)
	runUserRouter(secureGroup, userCtrl)
	runCustomerRouter(secureGroup, customerCtrl)
	runEquipmentRouter(secureGroup, equipmentCtrl, paymentCtrl)
	runExpenseRouter(secureGroup, expenseCtrl)
	runReportRouter(secureGroup, reportCtrl)
	runDistributionRouter(secureGroup, distributionCtrl)

	logger.Info("InitRouter: Создание маршрутов завершено")
}
