package services

import (
	"errors"
	"fmt"
	"time"

	"procurehub/models"

	"gorm.io/gorm"
)

// SubmitRetailerQuotation records one retailer's priced response to a
// quotation. A prior draft for the same (quotation, retailer) pair is reused
// with its lines replaced wholesale; a prior submitted response locks the
// retailer out until an admin reopens. The total is always recomputed
// server-side. One transaction, no partial line sets.
func (s *QuotationService) SubmitRetailerQuotation(quotationID, retailerID int, req models.SubmitRetailerQuotationRequest) (*models.RetailerQuotation, error) {
	if len(req.Items) == 0 {
		return nil, validationError("response must contain at least one priced item", nil)
	}
	seen := make(map[int]bool, len(req.Items))
	for _, line := range req.Items {
		if line.UnitPrice <= 0 || line.Quantity <= 0 {
			return nil, validationError("unit_price and quantity must be positive",
				map[string]int{"quotation_item_id": line.QuotationItemID})
		}
		if seen[line.QuotationItemID] {
			return nil, validationError("duplicate quotation item in response",
				map[string]int{"quotation_item_id": line.QuotationItemID})
		}
		seen[line.QuotationItemID] = true
	}

	now := time.Now()
	var response models.RetailerQuotation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var quotation models.Quotation
		if err := tx.Where("quotation_id = ? AND is_active = ?", quotationID, true).First(&quotation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("quotation not found")
			}
			return internalError(err)
		}
		if quotation.Status != models.QuotationPublished {
			return stateConflictError(
				fmt.Sprintf("quotation is %s and is not accepting responses", quotation.Status), nil)
		}
		if quotation.IsExpired(now) {
			return expiredError("quotation validity window has passed")
		}

		// All submitted lines must target lines of this quotation.
		var quotationItems []models.QuotationItem
		if err := tx.Where("quotation_id = ?", quotationID).Find(&quotationItems).Error; err != nil {
			return internalError(err)
		}
		valid := make(map[int]bool, len(quotationItems))
		for _, item := range quotationItems {
			valid[item.QuotationItemID] = true
		}
		for _, line := range req.Items {
			if !valid[line.QuotationItemID] {
				return validationError("quotation item does not belong to this quotation",
					map[string]int{"quotation_item_id": line.QuotationItemID})
			}
		}

		err := tx.Where("quotation_id = ? AND retailer_id = ?", quotationID, retailerID).First(&response).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response = models.RetailerQuotation{
				QuotationID: quotationID,
				RetailerID:  retailerID,
			}
			if err := tx.Create(&response).Error; err != nil {
				return internalError(err)
			}
		case err != nil:
			return internalError(err)
		case response.Status != models.RetailerQuotationDraft:
			return duplicateSubmissionError("a submitted response already exists for this quotation")
		default:
			// Draft reuse: replace prior lines wholesale, never merge.
			if err := tx.Where("retailer_quotation_id = ?", response.RetailerQuotationID).
				Delete(&models.RetailerQuotationItem{}).Error; err != nil {
				return internalError(err)
			}
		}

		total := 0.0
		lines := make([]models.RetailerQuotationItem, 0, len(req.Items))
		for _, in := range req.Items {
			lineTotal := in.UnitPrice * in.Quantity
			total += lineTotal
			lines = append(lines, models.RetailerQuotationItem{
				RetailerQuotationID: response.RetailerQuotationID,
				QuotationItemID:     in.QuotationItemID,
				UnitPrice:           in.UnitPrice,
				Quantity:            in.Quantity,
				TotalAmount:         lineTotal,
				Notes:               in.Notes,
			})
		}
		if err := tx.Create(&lines).Error; err != nil {
			return internalError(err)
		}

		submittedOn := now
		updates := map[string]interface{}{
			"status":       models.RetailerQuotationSubmitted,
			"submitted_on": submittedOn,
			"total_amount": total,
			"notes":        req.Notes,
		}
		if err := tx.Model(&models.RetailerQuotation{}).
			Where("retailer_quotation_id = ?", response.RetailerQuotationID).
			Updates(updates).Error; err != nil {
			return internalError(err)
		}

		response.Status = models.RetailerQuotationSubmitted
		response.SubmittedOn = &submittedOn
		response.TotalAmount = total
		response.Notes = req.Notes
		response.Items = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// GetRetailerQuotation fetches one retailer's response to a quotation with lines.
func (s *QuotationService) GetRetailerQuotation(quotationID, retailerID int) (*models.RetailerQuotation, error) {
	var response models.RetailerQuotation
	err := s.db.Preload("Items").
		Where("quotation_id = ? AND retailer_id = ?", quotationID, retailerID).
		First(&response).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("no response found for this quotation")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return &response, nil
}
