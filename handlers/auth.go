package handlers

import (
	"bankfeed/config"
	"bankfeed/db"
	"bankfeed/middleware"
	"bankfeed/models"
	"bankfeed/services"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type SignupInput struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup registers a new account. The user lands in approval_status
// "pending" and stays locked out of bank features until an admin
// approves them.
func Signup(c *gin.Context) {
	if !config.LoadFeatures().SignupEnabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "Signups are currently closed"})
		return
	}

	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = email
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	userID := uuid.NewString()

	tx, err := db.GetDB().Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		userID, email, string(hash),
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	if _, err := tx.Exec(
		`INSERT INTO profiles (id, display_name) VALUES ($1, $2)`,
		userID, displayName,
	); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create profile"})
		return
	}

	if _, err := tx.Exec(
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`,
		userID, models.RoleUser,
	); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign role"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// Arguments are evaluated before the goroutine starts, so the config
	// read happens on the request path.
	go services.NotifySignupSlack(config.Get().SlackWebhookURL, email, displayName)

	token, err := generateToken(userID, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	setAuthCookie(c, token)

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user": models.SessionUser{
			ID:             userID,
			Email:          email,
			DisplayName:    displayName,
			ApprovalStatus: models.StatusPending,
			Role:           models.RoleUser,
		},
	})
}

func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	err := db.GetDB().QueryRow(
		`SELECT id, email, password_hash FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	session, err := sessionUserByID(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	token, err := generateToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	setAuthCookie(c, token)

	c.JSON(http.StatusOK, gin.H{"token": token, "user": session})
}

// Me returns the session user for the authenticated caller, including
// approval status so the client knows whether bank features are open.
func Me(c *gin.Context) {
	userID := c.GetString("userID")

	var email string
	if err := db.GetDB().QueryRow(
		`SELECT email FROM users WHERE id = $1`, userID,
	).Scan(&email); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	session, err := sessionUserByID(userID, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func Logout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// sessionUserByID assembles the SessionUser DTO from profiles and
// user_roles. A missing role row degrades to the default role rather
// than failing the request.
func sessionUserByID(userID, email string) (models.SessionUser, error) {
	session := models.SessionUser{ID: userID, Email: email, Role: models.RoleUser}

	err := db.GetDB().QueryRow(
		`SELECT display_name, approval_status, is_test_user FROM profiles WHERE id = $1`,
		userID,
	).Scan(&session.DisplayName, &session.ApprovalStatus, &session.IsTestUser)
	if err != nil {
		return models.SessionUser{}, err
	}

	var role string
	err = db.GetDB().QueryRow(
		`SELECT role FROM user_roles WHERE user_id = $1`, userID,
	).Scan(&role)
	if err == nil {
		session.Role = role
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.SessionUser{}, err
	}

	return session, nil
}

func generateToken(userID, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(time.Hour * 24 * 7).Unix(),
	})
	return token.SignedString([]byte(config.Get().JWTSecret))
}

func setAuthCookie(c *gin.Context, token string) {
	c.SetCookie(middleware.SessionCookie, token, 3600*24*7, "/", "", false, true) // HttpOnly=true, Secure=false (dev)
}
