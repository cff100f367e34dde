package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"procurehub/models"
	"procurehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// CreateUserHandler registers a new user account.
// @Summary Create user
// @Description Creates an admin, store or retailer account. Admin only.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.User true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/users [post]
func CreateUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		var input struct {
			Email     string `json:"email" binding:"required"`
			Password  string `json:"password" binding:"required"`
			FirstName string `json:"first_name" binding:"required"`
			LastName  string `json:"last_name"`
			Role      string `json:"role" binding:"required"`
			StoreID   *int   `json:"store_id"`
			PhoneNo   string `json:"phone_no"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		role := strings.ToLower(input.Role)
		if role != models.RoleAdmin && role != models.RoleStore && role != models.RoleRetailer {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		if role == models.RoleStore && input.StoreID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required for store users"})
			return
		}

		hashed, err := utils.HashPassword(input.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		var userID int
		err = db.QueryRow(`
			INSERT INTO users (email, password, first_name, last_name, role, store_id, phone_no, suspended, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, false, true, NOW(), NOW())
			RETURNING id`,
			input.Email, hashed, input.FirstName, input.LastName, role, input.StoreID, input.PhoneNo,
		).Scan(&userID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         userID,
			"email":      input.Email,
			"first_name": input.FirstName,
			"last_name":  input.LastName,
			"role":       role,
			"store_id":   input.StoreID,
		})

		logActivity(db, c, "User", "Post",
			fmt.Sprintf("Created %s account for %s", role, input.Email))
	}
}

// ListRetailersHandler lists active retailer accounts.
// @Summary List retailers
// @Tags Users
// @Produce json
// @Success 200 {array} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /api/users/retailers [get]
func ListRetailersHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		rows, err := db.Query(`
			SELECT id, email, first_name, last_name, role, phone_no, suspended, is_active, created_at, updated_at
			FROM users
			WHERE role = $1 AND is_active = true
			ORDER BY first_name, last_name`, models.RoleRetailer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch retailers"})
			return
		}
		defer rows.Close()

		retailers := []models.User{}
		for rows.Next() {
			var u models.User
			if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role,
				&u.PhoneNo, &u.Suspended, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning retailer"})
				return
			}
			retailers = append(retailers, u)
		}

		c.JSON(http.StatusOK, retailers)
	}
}

// SuspendUserHandler toggles the suspended flag on an account.
// @Summary Suspend or unsuspend user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object true "suspended"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id}/suspend [put]
func SuspendUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		userID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var body struct {
			Suspended bool `json:"suspended"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		result, err := db.Exec(`UPDATE users SET suspended = $1, updated_at = NOW() WHERE id = $2`, body.Suspended, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User updated"})

		logActivity(db, c, "User", "Put",
			fmt.Sprintf("Set suspended=%t on user %d", body.Suspended, userID))
	}
}
