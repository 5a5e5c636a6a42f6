package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"securesave/internal/api"        // Custom package for API handlers
	"securesave/internal/config"     // Custom package for configuration
	"securesave/internal/mail"       // Custom package for outgoing mail
	"securesave/internal/middleware" // Custom package for middleware

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	mailer := mail.NewMailer(cfg) // Outgoing mail for password resets

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default()
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Uploaded profile photos are publicly served
	r.Static("/uploads", cfg.UploadDir)

	// Public auth routes
	r.POST("/api/register", api.RegisterHandler(db))
	r.POST("/api/login", api.LoginHandler(db, cfg.JWTSecret))
	r.POST("/api/forgot-password", api.ForgotPasswordHandler(db, mailer, cfg.BaseURL))
	r.POST("/api/reset-password", api.ResetPasswordHandler(db))

	// Routes for any authenticated user
	authGroup := r.Group("/api")
	authGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	authGroup.GET("/profile", api.GetProfileHandler(db))
	authGroup.PUT("/profile", api.UpdateProfileHandler(db))
	authGroup.POST("/profile/photo", api.UploadPhotoHandler(db, cfg.UploadDir, cfg.BaseURL))
	authGroup.DELETE("/profile/photo", api.DeletePhotoHandler(db, cfg.UploadDir))
	authGroup.GET("/settings", api.GetSettingsHandler(db))
	authGroup.POST("/update-setting", api.UpdateSettingHandler(db))
	authGroup.POST("/change-password", api.ChangePasswordHandler(db))

	// Ledger routes, user role only
	userGroup := r.Group("/api")
	userGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.RequireRole("user"))
	userGroup.GET("/user-dashboard", api.UserDashboardHandler(db, redisClient))
	userGroup.POST("/wallets", api.CreateWalletHandler(db))
	userGroup.GET("/wallets", api.ListWalletsHandler(db))
	userGroup.POST("/wallets/:id/share", api.ShareWalletHandler(db))
	userGroup.DELETE("/wallets/:id", api.DeleteWalletHandler(db, redisClient))
	userGroup.POST("/transaction", api.CreateTransactionHandler(db, redisClient))
	userGroup.DELETE("/transaction/:id", api.DeleteTransactionHandler(db))
	userGroup.GET("/transactions/filter", api.FilterTransactionsHandler(db))
	userGroup.GET("/transactions/wallet/:walletId", api.WalletSeriesHandler(db, redisClient))
	userGroup.POST("/add-goal", api.AddGoalHandler(db))
	userGroup.GET("/goal/:id", api.GetGoalHandler(db))
	userGroup.DELETE("/goal/:id", api.DeleteGoalHandler(db))
	userGroup.POST("/goal/deposit", api.GoalDepositHandler(db, redisClient))
	userGroup.POST("/goal/withdraw", api.GoalWithdrawHandler(db, redisClient))

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/api")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.RequireRole("admin"))
	adminGroup.GET("/admin-dashboard", api.AdminDashboardHandler(db, redisClient))
	adminGroup.GET("/admin-users", api.AdminUsersHandler(db, redisClient))
	adminGroup.GET("/admin-transactions", api.AdminTransactionsHandler(db, redisClient))
	adminGroup.GET("/admin/user/:id", api.AdminUserDetailHandler(db))
	adminGroup.PUT("/admin/user/:id/role", api.UpdateUserRoleHandler(db))
	adminGroup.DELETE("/admin/user/:id", api.AdminDeleteUserHandler(db, redisClient, cfg.UploadDir))
	adminGroup.POST("/admin/reset-password/:id", api.AdminResetPasswordHandler(db))

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
