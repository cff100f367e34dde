package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"procurehub/models"
	"procurehub/utils"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

var db *sql.DB

func InitDB() *sql.DB {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")

	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		user, password, dbname, host, port)

	var err error
	db, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	return db
}

func GetDB() *sql.DB {
	return db
}

// SaveSession stores a new session row for a user. Older sessions for the same
// user stay valid so multiple devices can be logged in at once.
func SaveSession(db *sql.DB, session *models.Session) error {
	query := `INSERT INTO session (session_id, user_id, host_name, ip_address, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	ctx, cancel := utils.FastQueryContext(nil)
	defer cancel()
	_, err := db.ExecContext(ctx, query, session.SessionID, session.UserID, session.HostName,
		session.IPAddress, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert new session: %v", err)
	}
	return nil
}

// GetSessionByID fetches a live session by its id.
func GetSessionByID(db *sql.DB, sessionID string) (*models.Session, error) {
	var session models.Session
	query := `SELECT session_id, user_id, host_name, ip_address, created_at, expires_at
	          FROM session WHERE session_id = $1 AND expires_at > NOW()`
	ctx, cancel := utils.FastQueryContext(nil)
	defer cancel()
	err := db.QueryRowContext(ctx, query, sessionID).Scan(&session.SessionID, &session.UserID,
		&session.HostName, &session.IPAddress, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes every session for a user (logout everywhere).
func DeleteSession(db *sql.DB, userID int) error {
	ctx, cancel := utils.FastQueryContext(nil)
	defer cancel()
	_, err := db.ExecContext(ctx, `DELETE FROM session WHERE user_id = $1`, userID)
	return err
}

// DeleteSessionByID removes one session (logout this device).
func DeleteSessionByID(db *sql.DB, sessionID string, userID int) error {
	ctx, cancel := utils.FastQueryContext(nil)
	defer cancel()
	result, err := db.ExecContext(ctx, `DELETE FROM session WHERE session_id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CleanupExpiredSessions removes dead sessions. Run from the daily cron.
func CleanupExpiredSessions(db *sql.DB) error {
	ctx, cancel := utils.SlowQueryContext(nil)
	defer cancel()
	_, err := db.ExecContext(ctx, `DELETE FROM session WHERE expires_at < NOW()`)
	return err
}

// GetUserByEmail fetches an active user by email for login.
func GetUserByEmail(db *sql.DB, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, password, first_name, last_name, role, store_id, phone_no, suspended, is_active, created_at, updated_at
	          FROM users WHERE email = $1 AND is_active = true`
	ctx, cancel := utils.FastQueryContext(nil)
	defer cancel()
	err := db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Password,
		&user.FirstName, &user.LastName, &user.Role, &user.StoreID, &user.PhoneNo,
		&user.Suspended, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserBySessionID resolves the user owning a live session.
func GetUserBySessionID(db *sql.DB, sessionID string) (*models.User, error) {
	var user models.User
	query := `SELECT u.id, u.email, u.first_name, u.last_name, u.role, u.store_id, u.phone_no, u.suspended, u.is_active, u.created_at, u.updated_at
	          FROM users u
	          JOIN session s ON s.user_id = u.id
	          WHERE s.session_id = $1 AND s.expires_at > NOW() AND u.is_active = true`
	ctx, cancel := utils.FastQueryContext(nil)
	defer cancel()
	err := db.QueryRowContext(ctx, query, sessionID).Scan(&user.ID, &user.Email,
		&user.FirstName, &user.LastName, &user.Role, &user.StoreID, &user.PhoneNo,
		&user.Suspended, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
