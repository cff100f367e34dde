// @title           ProcureHub API
// @version         1.0
// @description     Quotation lifecycle and award engine - stock request aggregation, retailer bidding, price comparison and awards.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"procurehub/handlers"
	"procurehub/services"
	"procurehub/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origin)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding", "X-XSRF-TOKEN",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
		"Access-Control-Request-Method", "Access-Control-Request-Headers",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Authorization", "Content-Type", "Content-Disposition",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

var cronRunning int32

func safeGo(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	fn func(context.Context) error,
	cronLogger *log.Logger,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				if cronLogger != nil {
					cronLogger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				}
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("%s failed: %v", name, err)
			if cronLogger != nil {
				cronLogger.Printf("%s failed: %v", name, err)
			}
		} else {
			log.Printf("%s completed successfully", name)
			if cronLogger != nil {
				cronLogger.Printf("%s completed successfully", name)
			}
		}
	}()
}

func main() {
	db := storage.InitDB()
	gormDB := storage.InitGormDB()

	// Initialize Firebase Cloud Messaging using the HTTP v1 API
	credentialsPath := os.Getenv("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "firebase-credentials.json"
	}
	fcmService, err := services.NewFCMService(credentialsPath, db)
	if err != nil {
		log.Printf("Warning: Failed to initialize FCM service: %v. Push notifications will be disabled.", err)
		fcmService = nil
	} else {
		log.Println("FCM service initialized successfully")
	}

	notifier := services.NewNotificationService(db, fcmService)
	emails := services.NewEmailService(db)
	quotationService := services.NewQuotationService(gormDB, notifier, emails)

	// Maintenance cron: every 15 minutes close expired quotations, daily at
	// 00:30 purge dead sessions.
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)

	cronLogFile, err := os.OpenFile("cron_errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open cron error log file: %v", err)
	}
	cronLogger := log.New(cronLogFile, "CRON_ERROR: ", log.LstdFlags)

	_, err = c.AddFunc("*/15 * * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			if cronLogger != nil {
				cronLogger.Println("Previous cron still running. Skipping this run.")
			}
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		closed, err := quotationService.AutoCloseExpired(time.Now())
		if err != nil {
			log.Printf("AutoCloseExpired failed: %v", err)
			if cronLogger != nil {
				cronLogger.Printf("AutoCloseExpired failed: %v", err)
			}
			return
		}
		if closed > 0 {
			log.Printf("AutoCloseExpired closed %d quotation(s)", closed)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule quotation auto-close cron job: %v", err)
	}

	_, err = c.AddFunc("30 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		var wg sync.WaitGroup
		safeGo(ctx, &wg, "CleanupExpiredSessions", func(ctx context.Context) error {
			return storage.CleanupExpiredSessions(db)
		}, cronLogger)
		wg.Wait()
	})
	if err != nil {
		log.Fatalf("Failed to schedule session cleanup cron job: %v", err)
	}

	c.Start()

	r := gin.Default()
	r.Use(cors.New(CORSConfig()))

	// ==================== 1. AUTH & SESSIONS ====================
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh", handlers.RefreshTokenHandler(db))
	r.POST("/api/validate-session", handlers.ValidateSession(db))
	r.POST("/api/logout", handlers.LogoutHandler(db))
	r.POST("/api/logout-all", handlers.LogoutAllHandler(db))

	// ==================== 2. USERS ====================
	r.POST("/api/users", handlers.CreateUserHandler(db))
	r.GET("/api/users/retailers", handlers.ListRetailersHandler(db))
	r.PUT("/api/users/:id/suspend", handlers.SuspendUserHandler(db))

	// ==================== 3. STOCK REQUESTS ====================
	r.POST("/api/stock-requests", handlers.CreateStockRequestHandler(db, quotationService))
	r.GET("/api/stock-requests/pending-items", handlers.ListPendingStockRequestItemsHandler(db, quotationService))
	r.GET("/api/stock-requests/:id", handlers.GetStockRequestHandler(db, quotationService))
	r.POST("/api/stock-requests/aggregate", handlers.AggregateStockRequestsHandler(db, quotationService))

	// ==================== 4. QUOTATIONS ====================
	r.POST("/api/quotations", handlers.CreateQuotationHandler(db, quotationService))
	r.GET("/api/quotations", handlers.ListQuotationsHandler(db, quotationService))
	r.GET("/api/quotations/open", handlers.ListOpenQuotationsHandler(db, quotationService))
	r.GET("/api/quotations/:id", handlers.GetQuotationHandler(db, quotationService))
	r.PUT("/api/quotations/:id/status", handlers.UpdateQuotationStatusHandler(db, quotationService))
	r.DELETE("/api/quotations/:id", handlers.DeleteQuotationHandler(db, quotationService))
	r.GET("/api/quotations/:id/history", handlers.GetQuotationHistoryHandler(db, quotationService))

	// ==================== 5. RETAILER RESPONSES ====================
	r.POST("/api/quotations/:id/responses", handlers.SubmitRetailerQuotationHandler(db, quotationService))
	r.GET("/api/quotations/:id/responses/mine", handlers.GetMyRetailerQuotationHandler(db, quotationService))

	// ==================== 6. COMPARISON & AWARD ====================
	r.GET("/api/quotations/:id/comparison", handlers.GetComparisonHandler(db, quotationService))
	r.POST("/api/quotations/:id/award", handlers.AwardQuotationHandler(db, quotationService))

	// ==================== 7. EXPORTS ====================
	r.GET("/api/quotations/:id/comparison/export", handlers.ExportComparisonExcelHandler(db, quotationService))
	r.GET("/api/quotations/:id/award/export", handlers.ExportAwardSummaryPDFHandler(db, quotationService))
	r.GET("/api/quotations/:id/qr", handlers.GenerateQuotationQRHandler(db, quotationService))

	// ==================== 8. NOTIFICATIONS ====================
	r.GET("/api/notifications", handlers.GetMyNotificationsHandler(db))
	r.PUT("/api/notifications/:id/read", handlers.MarkNotificationAsReadHandler(db))
	r.PUT("/api/notifications/read-all", handlers.MarkAllNotificationsAsReadHandler(db))
	r.DELETE("/api/notifications/:id", handlers.DeleteNotificationHandler(db))
	r.POST("/api/fcm/register-token", handlers.RegisterFCMTokenHandler(db, fcmService))
	r.DELETE("/api/fcm/remove-token", handlers.RemoveFCMTokenHandler(db, fcmService))

	// ==================== 9. EMAIL TEMPLATES ====================
	r.POST("/api/email-templates", handlers.CreateEmailTemplate(db))
	r.GET("/api/email-templates", handlers.GetEmailTemplates(db))
	r.GET("/api/email-templates/:id", handlers.GetEmailTemplateByID(db))
	r.PUT("/api/email-templates/:id", handlers.UpdateEmailTemplate(db))
	r.DELETE("/api/email-templates/:id", handlers.DeleteEmailTemplate(db))

	// ==================== 10. ACTIVITY LOGS ====================
	r.GET("/api/logs", handlers.GetActivityLogsHandler(db))
	r.GET("/api/log/search", handlers.SearchActivityLogsHandler(db))

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil {
		log.Fatalf("Invalid PORT environment variable: %s. Must be a number.", port)
	}
	if portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT: %d. Must be between 0 and 65535.", portInt)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cronCtx := c.Stop()
	<-cronCtx.Done()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
