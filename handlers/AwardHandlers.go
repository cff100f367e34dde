package handlers

import (
	"database/sql"
	"fmt"
	"net/http"

	"procurehub/models"
	"procurehub/services"

	"github.com/gin-gonic/gin"
)

// GetComparisonHandler returns the side-by-side price comparison for a quotation.
// @Summary Get award comparison
// @Description Returns per-line retailer bids ordered by price, for closed or expired quotations. Admin only.
// @Tags Awards
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {object} models.ComparisonData
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotations/{id}/comparison [get]
func GetComparisonHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		comparison, err := svc.GetAwardComparisonData(quotationID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, comparison)
	}
}

// AwardQuotationHandler commits the admin's winner selection.
// @Summary Award quotation
// @Description Awards the selected response lines, marks winning and losing responses and finalizes the quotation. Admin only.
// @Tags Awards
// @Accept json
// @Produce json
// @Param id path int true "Quotation ID"
// @Param request body models.AwardQuotationRequest true "Winner selection"
// @Success 200 {object} models.AwardResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotations/{id}/award [post]
func AwardQuotationHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleAdmin)
		if !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var req models.AwardQuotationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		result, err := svc.AwardQuotation(quotationID, req, user.ID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)

		logActivity(db, c, "Award", "Post",
			fmt.Sprintf("Awarded quotation %s: %d line(s), total %.2f", result.QuotationNumber, result.AwardedCount, result.TotalValue))
	}
}
