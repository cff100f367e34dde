package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"procurehub/models"
	"procurehub/services"
	"procurehub/storage"

	"github.com/gin-gonic/gin"
)

// respondServiceError translates service-layer errors to JSON responses.
func respondServiceError(c *gin.Context, err error) {
	if svcErr := services.AsServiceError(err); svcErr != nil {
		c.JSON(svcErr.Status, gin.H{"error": svcErr.Message, "code": svcErr.Code, "details": svcErr.Details})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
}

// requireRole authenticates the caller from the Authorization header and
// checks the role. Writes the error response itself on failure.
func requireRole(db *sql.DB, c *gin.Context, roles ...string) (*models.User, bool) {
	sessionID := sessionIDFromHeader(c)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header is required"})
		return nil, false
	}

	user, err := storage.GetUserBySessionID(db, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		return nil, false
	}

	if len(roles) == 0 {
		return user, true
	}
	for _, role := range roles {
		if user.Role == role {
			return user, true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	return nil, false
}

func logActivity(db *sql.DB, c *gin.Context, eventContext, eventName, description string) {
	sessionID := sessionIDFromHeader(c)
	session, userName, err := GetSessionDetails(db, sessionID)
	if err != nil {
		return
	}
	if logErr := SaveActivityLog(db, models.ActivityLog{
		EventContext: eventContext,
		EventName:    eventName,
		Description:  description,
		UserName:     userName,
		HostName:     session.HostName,
		IPAddress:    session.IPAddress,
		CreatedAt:    time.Now(),
	}); logErr != nil {
		log.Printf("Failed to save activity log: %v", logErr)
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// CreateQuotationHandler creates an ad-hoc quotation.
// @Summary Create quotation
// @Description Creates a quotation with requested lines, as draft or published. Admin only.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param request body models.CreateQuotationRequest true "Quotation"
// @Success 201 {object} models.Quotation
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/quotations [post]
func CreateQuotationHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleAdmin)
		if !ok {
			return
		}

		var req models.CreateQuotationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		quotation, err := svc.CreateAdHocQuotation(req, user.ID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, quotation)

		logActivity(db, c, "Quotation", "Post",
			fmt.Sprintf("Created quotation %s", quotation.QuotationNumber))
	}
}

// ListQuotationsHandler lists quotations, optionally filtered by status.
// @Summary List quotations
// @Tags Quotations
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} models.QuotationListResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/quotations [get]
func ListQuotationsHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin, models.RoleStore); !ok {
			return
		}

		status := models.QuotationStatus(c.Query("status"))
		if status != "" && !models.IsValidQuotationStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}

		quotations, err := svc.ListQuotations(status)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.QuotationListResponse{
			Quotations: quotations,
			Total:      len(quotations),
		})
	}
}

// ListOpenQuotationsHandler lists published, unexpired quotations for retailers.
// @Summary List open quotations
// @Tags Quotations
// @Produce json
// @Success 200 {object} models.QuotationListResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/quotations/open [get]
func ListOpenQuotationsHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleRetailer); !ok {
			return
		}

		quotations, err := svc.ListOpenQuotations()
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.QuotationListResponse{
			Quotations: quotations,
			Total:      len(quotations),
		})
	}
}

// GetQuotationHandler fetches a single quotation with its lines.
// @Summary Get quotation
// @Tags Quotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {object} models.Quotation
// @Failure 404 {object} models.ErrorResponse
// @Router /api/quotations/{id} [get]
func GetQuotationHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c); !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		quotation, err := svc.GetQuotation(quotationID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, quotation)
	}
}

// UpdateQuotationStatusHandler moves a quotation through its lifecycle.
// @Summary Update quotation status
// @Description Applies a lifecycle transition (publish, close, reopen, cancel). Admin only.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path int true "Quotation ID"
// @Param request body models.UpdateQuotationStatusRequest true "Target status"
// @Success 200 {object} models.Quotation
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotations/{id}/status [put]
func UpdateQuotationStatusHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleAdmin)
		if !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var req models.UpdateQuotationStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		quotation, err := svc.UpdateQuotationStatus(quotationID, req.Status, user.ID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, quotation)

		logActivity(db, c, "Quotation", "Put",
			fmt.Sprintf("Quotation %s moved to %s", quotation.QuotationNumber, quotation.Status))
	}
}

// DeleteQuotationHandler soft deletes a quotation.
// @Summary Delete quotation
// @Description Soft deletes a quotation. Awarded quotations cannot be deleted. Admin only.
// @Tags Quotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotations/{id} [delete]
func DeleteQuotationHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleAdmin)
		if !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		if err := svc.SoftDeleteQuotation(quotationID, user.ID); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Quotation deleted"})

		logActivity(db, c, "Quotation", "Delete",
			fmt.Sprintf("Deleted quotation %d", quotationID))
	}
}

// GetQuotationHistoryHandler returns the audit trail of a quotation.
// @Summary Get quotation history
// @Tags Quotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {array} models.QuotationHistory
// @Failure 404 {object} models.ErrorResponse
// @Router /api/quotations/{id}/history [get]
func GetQuotationHistoryHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin, models.RoleStore); !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		history, err := svc.GetQuotationHistory(quotationID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, history)
	}
}
