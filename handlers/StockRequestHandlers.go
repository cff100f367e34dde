package handlers

import (
	"database/sql"
	"fmt"
	"net/http"

	"procurehub/models"
	"procurehub/services"

	"github.com/gin-gonic/gin"
)

// CreateStockRequestHandler records a store's replenishment ask.
// @Summary Create stock request
// @Description Creates a stock request with one or more item lines. Store or admin.
// @Tags StockRequests
// @Accept json
// @Produce json
// @Param request body models.CreateStockRequestRequest true "Stock request"
// @Success 201 {object} models.StockRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/stock-requests [post]
func CreateStockRequestHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleStore, models.RoleAdmin)
		if !ok {
			return
		}

		var req models.CreateStockRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		// Store users can only raise requests for their own store.
		if user.Role == models.RoleStore && user.StoreID != nil && *user.StoreID != req.StoreID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot raise stock requests for another store"})
			return
		}

		stockRequest, err := svc.CreateStockRequest(req, user.ID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, stockRequest)

		logActivity(db, c, "StockRequest", "Post",
			fmt.Sprintf("Created stock request %d with %d line(s)", stockRequest.StockRequestID, len(stockRequest.Items)))
	}
}

// GetStockRequestHandler fetches a stock request with its lines.
// @Summary Get stock request
// @Tags StockRequests
// @Produce json
// @Param id path int true "Stock request ID"
// @Success 200 {object} models.StockRequest
// @Failure 404 {object} models.ErrorResponse
// @Router /api/stock-requests/{id} [get]
func GetStockRequestHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin, models.RoleStore); !ok {
			return
		}

		stockRequestID, ok := pathID(c, "id")
		if !ok {
			return
		}

		stockRequest, err := svc.GetStockRequest(stockRequestID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, stockRequest)
	}
}

// ListPendingStockRequestItemsHandler lists lines awaiting aggregation.
// @Summary List pending stock request items
// @Description Returns stock request lines not yet pulled into any quotation. Admin only.
// @Tags StockRequests
// @Produce json
// @Success 200 {array} models.StockRequestItem
// @Failure 401 {object} models.ErrorResponse
// @Router /api/stock-requests/pending-items [get]
func ListPendingStockRequestItemsHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		items, err := svc.ListPendingStockRequestItems()
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

// AggregateStockRequestsHandler builds a published quotation from pending lines.
// @Summary Aggregate stock requests into a quotation
// @Description Consumes the selected stock request lines, merges duplicate items and publishes a quotation. Admin only.
// @Tags StockRequests
// @Accept json
// @Produce json
// @Param request body models.AggregateStockRequestsRequest true "Line selection"
// @Success 201 {object} models.Quotation
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/stock-requests/aggregate [post]
func AggregateStockRequestsHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleAdmin)
		if !ok {
			return
		}

		var req models.AggregateStockRequestsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		quotation, err := svc.CreateQuotationFromStockRequests(req, user.ID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, quotation)

		logActivity(db, c, "StockRequest", "Post",
			fmt.Sprintf("Aggregated %d stock request line(s) into quotation %s", len(req.RequestItemIDs), quotation.QuotationNumber))
	}
}
