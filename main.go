package main

import (
	"bankfeed/config"
	"bankfeed/db"
	"bankfeed/handlers"
	"bankfeed/middleware"
	"bankfeed/models"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func runMigrations() {
	sqlBytes, err := os.ReadFile("schema.sql")
	if err != nil {
		log.Fatal("Failed to read schema.sql:", err)
	}

	if _, err := db.GetDB().Exec(string(sqlBytes)); err != nil {
		log.Fatal("Failed to apply schema:", err)
	}
	log.Println("Database schema verified")
}

// seedAdmin promotes the configured admin account on boot so a fresh
// database always has one approver. The account still has to sign up
// first; until then this is a no-op.
func seedAdmin(cfg config.Config) {
	if cfg.AdminEmail == "" {
		return
	}

	var userID string
	err := db.GetDB().QueryRow(`SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("Admin seed: %s has not signed up yet", cfg.AdminEmail)
		return
	} else if err != nil {
		log.Printf("Admin seed lookup failed: %v", err)
		return
	}

	if _, err := db.GetDB().Exec(`
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
	`, userID, models.RoleAdmin); err != nil {
		log.Printf("Admin seed role failed: %v", err)
		return
	}

	if _, err := db.GetDB().Exec(`
		UPDATE profiles SET approval_status = $1, updated_at = NOW() WHERE id = $2
	`, models.StatusApproved, userID); err != nil {
		log.Printf("Admin seed approval failed: %v", err)
		return
	}

	log.Printf("Admin seeded: %s", cfg.AdminEmail)
}

func main() {
	// .env is optional; deployments use the process environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	if err := db.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	runMigrations()
	seedAdmin(cfg)

	features := config.LoadFeatures()
	log.Printf("Features: signup=%v email=%v audit=%v",
		features.SignupEnabled, features.EmailEnabled, features.AuditEnabled)
	log.Printf("Plaid: production_configured=%v sandbox_configured=%v",
		cfg.Plaid.Production.Configured(), cfg.Plaid.Sandbox.Configured())

	r := gin.Default()
	r.Use(middleware.CORS(cfg.CORSOrigins), middleware.Preflight())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", handlers.Signup)
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
		auth.GET("/me", middleware.AuthRequired(), handlers.Me)
	}

	// Plaid calls this one; it carries no session.
	r.POST("/api/plaid/webhook", handlers.PlaidWebhook)

	plaid := r.Group("/api/plaid")
	plaid.Use(middleware.AuthRequired(), middleware.ApprovedRequired())
	{
		plaid.POST("/create-link-token", handlers.CreateLinkToken)
		plaid.POST("/exchange-token", handlers.ExchangeToken)
		plaid.POST("/fetch-data", handlers.FetchData)
		plaid.GET("/items", handlers.ListPlaidItems)
		plaid.DELETE("/items/:id", handlers.UnlinkPlaidItem)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("/users", handlers.ListUsers)
		admin.PATCH("/users/:id/approval", handlers.SetApproval)
		admin.POST("/delete-user", handlers.DeleteUser)
		admin.GET("/stats", handlers.GetAdminStats)
		admin.GET("/audit", handlers.ListAudit)
	}

	log.Println("Server starting on port " + cfg.Port)
	r.Run(":" + cfg.Port)
}
