package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/veerly/veerly-api/config"
	"github.com/veerly/veerly-api/handlers"
	"github.com/veerly/veerly-api/middleware"
	"github.com/veerly/veerly-api/routes"
	"github.com/veerly/veerly-api/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Println("✅ Database connected successfully")

	if err := config.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	go scheduleInvitationSweep(db)

	wsHandler := handlers.NewWSHandler()

	fromEmail := os.Getenv("EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "noreply@veerly.app"
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}

	emailService := services.NewEmailService(os.Getenv("RESEND_API_KEY"), fromEmail, frontendURL)

	router := gin.Default()

	allowedOrigins := []string{
		frontendURL,
		"https://veerly.app",
		"https://www.veerly.app",
	}

	log.Printf("🌍 CORS: Allowing origins:")
	for _, origin := range allowedOrigins {
		log.Printf("   - %s", origin)
	}

	corsConfig := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		log.Printf("📨 %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		c.Next()
		duration := time.Since(start)
		log.Printf("✅ %s %s - %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), duration)
	})

	router.Use(middleware.RateLimiter())

	api := router.Group("/api")
	{
		routes.SetupAuthRoutes(api, db)
		api.GET("/ws/groups/:id", wsHandler.HandleWS)

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			routes.SetupCourseRoutes(protected, db, emailService, wsHandler)
			routes.SetupGroupRoutes(protected, db, emailService)
			routes.SetupProfileRoutes(protected, db)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func scheduleInvitationSweep(db *sql.DB) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	sweepStaleInvitations(db)
	for range ticker.C {
		sweepStaleInvitations(db)
	}
}

func sweepStaleInvitations(db *sql.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := db.ExecContext(ctx, `DELETE FROM group_invitations WHERE status = 'pending' AND created_at < NOW() - INTERVAL '30 days'`)
	if err != nil {
		log.Printf("❌ Invitation sweep failed: %v", err)
		return
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		log.Printf("🧹 Removed %d stale pending invitations", rows)
	}
}
