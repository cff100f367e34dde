package handlers

import (
	"database/sql"
	"fmt"
	"net/http"

	"procurehub/models"
	"procurehub/services"

	"github.com/gin-gonic/gin"
)

// SubmitRetailerQuotationHandler records a retailer's priced response.
// @Summary Submit retailer quotation
// @Description Submits or replaces the calling retailer's priced response to a published quotation.
// @Tags RetailerQuotations
// @Accept json
// @Produce json
// @Param id path int true "Quotation ID"
// @Param request body models.SubmitRetailerQuotationRequest true "Priced lines"
// @Success 200 {object} models.RetailerQuotation
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Router /api/quotations/{id}/responses [post]
func SubmitRetailerQuotationHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleRetailer)
		if !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var req models.SubmitRetailerQuotationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		response, err := svc.SubmitRetailerQuotation(quotationID, user.ID, req)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, response)

		logActivity(db, c, "RetailerQuotation", "Post",
			fmt.Sprintf("Retailer %d submitted response for quotation %d, total %.2f", user.ID, quotationID, response.TotalAmount))
	}
}

// GetMyRetailerQuotationHandler returns the calling retailer's response.
// @Summary Get my retailer quotation
// @Tags RetailerQuotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {object} models.RetailerQuotationResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/quotations/{id}/responses/mine [get]
func GetMyRetailerQuotationHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleRetailer)
		if !ok {
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

		response, err := svc.GetRetailerQuotation(quotationID, user.ID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.RetailerQuotationResponse{
			RetailerQuotation: *response,
			QuotationNumber:   quotation.QuotationNumber,
		})
	}
}
