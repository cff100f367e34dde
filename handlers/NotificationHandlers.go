package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"procurehub/models"
	"procurehub/services"
	"procurehub/utils"

	"github.com/gin-gonic/gin"
)

func userIDFromSession(db *sql.DB, c *gin.Context) (int, bool) {
	sessionID := sessionIDFromHeader(c)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header is required"})
		return 0, false
	}

	ctx, cancel := utils.FastQueryContext(c.Request.Context())
	defer cancel()

	var userID int
	err := db.QueryRowContext(ctx, "SELECT user_id FROM session WHERE session_id = $1 AND expires_at > NOW()", sessionID).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session. Session ID not found."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching session: " + err.Error()})
		}
		return 0, false
	}
	return userID, true
}

// GetMyNotificationsHandler returns notifications for the current user.
// @Summary Get my notifications
// @Description Returns all notifications for the current user (from session). Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Success 200 {array} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/notifications [get]
func GetMyNotificationsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromSession(db, c)
		if !ok {
			return
		}

		ctx, cancel := utils.SlowQueryContext(c.Request.Context())
		defer cancel()

		rows, err := db.QueryContext(ctx, `
			SELECT id, user_id, title, message, status, action, created_at, updated_at
			FROM notifications
			WHERE user_id = $1
			ORDER BY created_at DESC
		`, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
			return
		}
		defer rows.Close()

		// Initialize slice to empty (ensures [] instead of null)
		notifications := []models.Notification{}

		for rows.Next() {
			var n models.Notification
			if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Status, &n.Action, &n.CreatedAt, &n.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning notification"})
				return
			}
			notifications = append(notifications, n)
		}

		c.JSON(http.StatusOK, notifications)
	}
}

// MarkNotificationAsReadHandler marks a notification as read.
// @Summary Mark notification as read
// @Description Marks notification by id as read. Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} models.MessageResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/notifications/{id}/read [put]
func MarkNotificationAsReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		notifID := c.Param("id")

		ctx, cancel := utils.FastQueryContext(c.Request.Context())
		defer cancel()

		_, err := db.ExecContext(ctx, `
			UPDATE notifications SET status = 'read', updated_at = $1 WHERE id = $2
		`, time.Now(), notifID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
	}
}

// MarkAllNotificationsAsReadHandler marks all notifications as read for the current user.
// @Summary Mark all notifications as read
// @Description Marks all notifications for the current user as read. Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/notifications/read-all [put]
func MarkAllNotificationsAsReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromSession(db, c)
		if !ok {
			return
		}

		ctx, cancel := utils.SlowQueryContext(c.Request.Context())
		defer cancel()

		result, err := db.ExecContext(ctx, `
			UPDATE notifications
			SET status = 'read', updated_at = $1
			WHERE user_id = $2 AND status = 'unread'
		`, time.Now(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
			return
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get rows affected"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "All notifications marked as read",
			"rows_affected": rowsAffected,
		})
	}
}

func DeleteNotificationHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		notifID := c.Param("id")

		ctx, cancel := utils.FastQueryContext(c.Request.Context())
		defer cancel()

		_, err := db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1", notifID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
	}
}

// RegisterFCMTokenHandler registers FCM token for push notifications.
// @Summary Register FCM token
// @Description Registers FCM token for the current user. Body: token. Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param body body object true "token"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/fcm/register-token [post]
func RegisterFCMTokenHandler(db *sql.DB, fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromSession(db, c)
		if !ok {
			return
		}

		var request struct {
			Token string `json:"token" binding:"required"`
		}

		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Token is required."})
			return
		}

		if fcmService != nil {
			if err := fcmService.SaveToken(userID, request.Token); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save FCM token: " + err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM token registered successfully"})
	}
}

// RemoveFCMTokenHandler removes FCM token for the current user.
// @Summary Remove FCM token
// @Description Removes FCM token. Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/fcm/remove-token [delete]
func RemoveFCMTokenHandler(db *sql.DB, fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromSession(db, c)
		if !ok {
			return
		}

		if fcmService != nil {
			if err := fcmService.RemoveToken(userID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove FCM token: " + err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM token removed successfully"})
	}
}
