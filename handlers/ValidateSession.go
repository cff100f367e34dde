package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"procurehub/storage"
	"procurehub/utils"

	"github.com/gin-gonic/gin"
)

// ValidateSession validates user session
// @Summary Validate session
// @Description Validate user session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Session ID"
// @Success 200 {object} models.ValidateSessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/validate-session [post]
func ValidateSession(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionIDFromHeader(c)
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Authorization header"})
			return
		}

		ctx, cancel := utils.FastQueryContext(c.Request.Context())
		defer cancel()

		var sessionHost string
		var expiresAt time.Time
		err := db.QueryRowContext(ctx, "SELECT host_name, expires_at FROM session WHERE session_id = $1 AND expires_at > NOW()", sessionID).
			Scan(&sessionHost, &expiresAt)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		user, err := storage.GetUserBySessionID(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":    "Session validated",
			"session_id": sessionID,
			"host_name":  sessionHost,
			"role":       user.Role,
		})
	}
}
