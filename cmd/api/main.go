package main

import (
	"context"
	"os"
	"time"

	_ "fixtrack/backend/api/swagger" // swagger docs
	"fixtrack/backend/internal/cache"
	"fixtrack/backend/internal/database"
	"fixtrack/backend/internal/handler"
	"fixtrack/backend/internal/middleware"
	"fixtrack/backend/internal/notification"
	"fixtrack/backend/internal/queue"
	"fixtrack/backend/internal/realtime"
	"fixtrack/backend/internal/repository"
	"fixtrack/backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const pendingRetryInterval = 30 * time.Second

// @title           FixTrack Repair Shop API
// @version         1.0
// @description     Order management backend for a device repair shop.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("GIN_MODE") != "release" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := godotenv.Load("configs/.env"); err != nil {
		log.Info().Msg("no configs/.env file found")
	}

	db, err := database.NewConnection(buildDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to postgres")

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, pending-order recovery degraded")
	}

	hub := realtime.NewHub()
	go hub.Run()

	orderCache := cache.NewOrderCache()
	pendingQueue := queue.NewPendingQueue(rdb)
	notifier := notification.LogNotifier{}

	// Repositories
	txManager := repository.NewTransactionManager(db)
	orderRepo := repository.NewOrderRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	partRepo := repository.NewPartRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	userRepo := repository.NewUserRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	// Services
	orderService := service.NewOrderService(orderRepo, historyRepo, customerRepo, txManager, pendingQueue, orderCache, hub, notifier)
	workflowService := service.NewWorkflowService(orderRepo, historyRepo, workflowRepo, userRepo, txManager, orderCache, hub, notifier)
	financeService := service.NewFinanceService(orderRepo, paymentRepo, historyRepo, expenseRepo, partRepo, txManager, orderCache, hub, notifier)
	userService := service.NewUserService(userRepo, txManager)
	statisticsService := service.NewStatisticsService(statsRepo)

	// Handlers
	orderHandler := handler.NewOrderHandler(orderService)
	workflowHandler := handler.NewWorkflowHandler(workflowService)
	financeHandler := handler.NewFinanceHandler(financeService, orderService)
	userHandler := handler.NewUserHandler(userService)
	customerHandler := handler.NewCustomerHandler(customerRepo)
	partHandler := handler.NewPartHandler(partRepo)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	historyHandler := handler.NewHistoryHandler(historyRepo)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "connected": orderService.Connected()})
	})

	router.GET("/ws", func(c *gin.Context) {
		realtime.ServeWs(hub, c, middleware.GetJWTSecret())
	})

	root := router.Group("")
	orderHandler.RegisterRoutes(root)
	workflowHandler.RegisterRoutes(root)
	financeHandler.RegisterRoutes(root)
	userHandler.RegisterRoutes(root)
	customerHandler.RegisterRoutes(root)
	partHandler.RegisterRoutes(root)
	statisticsHandler.RegisterRoutes(root)
	historyHandler.RegisterRoutes(root)

	// Creations that never reached the store are retried for as long as the
	// process lives.
	orderService.StartPendingRetry(context.Background(), pendingRetryInterval)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("server listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func buildDSN() string {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	host := get("DB_HOST", "localhost")
	port := get("DB_PORT", "5432")
	user := get("DB_USER", "postgres")
	password := get("DB_PASSWORD", "postgres")
	name := get("DB_NAME", "fixtrack")
	sslMode := get("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name + "?sslmode=" + sslMode
}
