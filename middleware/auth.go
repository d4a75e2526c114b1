package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"bankfeed/config"
	"bankfeed/db"
	"bankfeed/models"
	"bankfeed/services"
)

const SessionCookie = "bankfeed_jwt"

// AuthRequired validates the bearer token (header first, cookie fallback) and
// puts the caller's identity into the gin context. Nothing downstream reads
// ambient session state.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Token Extraction
		tokenString := ""

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			cookie, err := c.Cookie(SessionCookie)
			if err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		// 2. Validation
		jwtSecret := []byte(config.Get().JWTSecret)
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtSecret, nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// 3. Claims Extraction
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		if exp, ok := claims["exp"].(float64); ok {
			if time.Now().Unix() > int64(exp) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
				return
			}
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		email, _ := claims["email"].(string)
		c.Set("userID", userID)
		c.Set("userEmail", email)
		c.Next()
	}
}

// AdminRequired gates the admin API behind a single role lookup keyed by the
// caller's identity. A missing role row and a non-admin role produce the
// identical denial so the response never reveals which case occurred.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")

		var role string
		err := db.GetDB().QueryRow("SELECT role FROM user_roles WHERE user_id = $1", userID).Scan(&role)
		if err != nil || role != models.RoleAdmin {
			services.RecordAudit(userID, models.ActionAccessDenied, "", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Next()
	}
}

// ApprovedRequired blocks product features until an admin has approved the
// caller. Pending and rejected users get the same answer.
func ApprovedRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")

		var status string
		err := db.GetDB().QueryRow("SELECT approval_status FROM profiles WHERE id = $1", userID).Scan(&status)
		if err != nil || status != models.StatusApproved {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account not approved"})
			return
		}

		c.Next()
	}
}
