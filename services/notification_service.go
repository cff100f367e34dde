package services

import (
	"context"
	"database/sql"
	"log"
)

// NotificationService persists notifications and, when a push service is
// configured, forwards them to the user's registered devices. It satisfies the
// Notifier capability of the quotation core: every method is fire-and-forget.
type NotificationService struct {
	db   *sql.DB
	push *FCMService
}

// NewNotificationService creates the notification dispatcher. push may be nil.
func NewNotificationService(db *sql.DB, push *FCMService) *NotificationService {
	return &NotificationService{db: db, push: push}
}

// NotifyUser stores one notification row and pushes it if possible.
func (ns *NotificationService) NotifyUser(userID int, title, message string, data map[string]string) {
	ns.NotifyUsers([]int{userID}, title, message, data)
}

// NotifyUsers fans a notification out to several users.
func (ns *NotificationService) NotifyUsers(userIDs []int, title, message string, data map[string]string) {
	if len(userIDs) == 0 {
		return
	}

	for _, userID := range userIDs {
		_, err := ns.db.Exec(`
			INSERT INTO notifications (user_id, title, message, status, action, created_at, updated_at)
			VALUES ($1, $2, $3, 'unread', $4, NOW(), NOW())
		`, userID, title, message, data["action"])
		if err != nil {
			log.Printf("notification insert for user %d failed: %v", userID, err)
		}
	}

	if ns.push != nil {
		if err := ns.push.SendToUsers(context.Background(), userIDs, title, message, data); err != nil {
			log.Printf("push notification to users %v failed: %v", userIDs, err)
		}
	}
}
