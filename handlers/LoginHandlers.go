package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	"procurehub/models"
	"procurehub/storage"
	"procurehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LoginHandler handles user authentication
// @Summary Login user
// @Description Authenticate user and return session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/login [post]
func LoginHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginData models.LoginRequest
		if err := c.ShouldBindJSON(&loginData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		user, err := storage.GetUserByEmail(db, loginData.Email)
		if err != nil || !utils.ValidatePassword(user.Password, loginData.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if user.Suspended {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
			return
		}

		accessToken, err := utils.GenerateJWT(user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		sessionID := uuid.NewString()
		refreshToken, err := utils.GenerateRefreshToken(user.Email, sessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
			return
		}

		session := &models.Session{
			SessionID: sessionID,
			UserID:    user.ID,
			HostName:  user.Email,
			IPAddress: c.ClientIP(),
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(15 * 24 * time.Hour),
		}
		if err := storage.SaveSession(db, session); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session", "details": err.Error()})
			return
		}

		user.Password = ""
		c.JSON(http.StatusOK, models.LoginResponse{
			Message:      "Login successful",
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			SessionID:    sessionID,
			User:         *user,
		})

		activityLog := models.ActivityLog{
			EventContext: "Login",
			EventName:    "Post",
			Description:  "User logged in",
			UserName:     user.FirstName + " " + user.LastName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, activityLog); logErr != nil {
			log.Printf("Failed to save login activity log: %v", logErr)
		}
	}
}

// RefreshTokenHandler issues a fresh access token against a live session.
// @Summary Refresh access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body object true "Refresh token"
// @Success 200 {object} object
// @Failure 401 {object} models.ErrorResponse
// @Router /api/refresh [post]
func RefreshTokenHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		parsedToken, err := utils.ValidateJWT(body.RefreshToken)
		if err != nil || !parsedToken.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}

		claims, ok := parsedToken.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		if tokenType, _ := claims["type"].(string); tokenType != "refresh" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not a refresh token"})
			return
		}

		email, _ := claims["email"].(string)
		sessionID, _ := claims["sessionId"].(string)
		if email == "" || sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token claims missing"})
			return
		}

		// Session must still exist; logout on that device revokes the refresh token.
		session, err := storage.GetSessionByID(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session revoked or expired"})
			return
		}
		if session.HostName != email {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token does not match session"})
			return
		}

		accessToken, err := utils.GenerateJWT(email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token": accessToken,
			"expires_in":   900,
		})
	}
}

// LogoutHandler removes the calling device's session.
// @Summary Logout
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Session ID"
// @Success 200 {object} models.MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/logout [post]
func LogoutHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionIDFromHeader(c)
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Authorization header"})
			return
		}

		session, err := storage.GetSessionByID(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		if err := storage.DeleteSessionByID(db, sessionID, session.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// LogoutAllHandler removes every session for the calling user.
// @Summary Logout from all devices
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Session ID"
// @Success 200 {object} models.MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/logout-all [post]
func LogoutAllHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionIDFromHeader(c)
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Authorization header"})
			return
		}

		session, err := storage.GetSessionByID(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		if err := storage.DeleteSession(db, session.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete sessions", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logged out from all devices"})
	}
}

func sessionIDFromHeader(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}
