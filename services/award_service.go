package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"procurehub/models"

	"gorm.io/gorm"
)

// AwardQuotation commits the admin's chosen winners. Structural validation runs
// before any write: non-empty batch, both ids on every entry, and each
// quotation line at most once across the batch, so two retailers can never win
// the same line. Business validation and the writes share one transaction:
// the quotation moves to awarded (terminal), each chosen response line gets its
// award markers, winning responses become awarded and losing submitted
// responses rejected. Winner/loser notifications go out after commit and are
// never allowed to fail the award.
func (s *QuotationService) AwardQuotation(quotationID int, req models.AwardQuotationRequest, awardedBy int) (*models.AwardResult, error) {
	if len(req.Awards) == 0 {
		return nil, validationError("awards must not be empty", nil)
	}
	seenLines := make(map[int]bool, len(req.Awards))
	for _, award := range req.Awards {
		if award.QuotationItemID == 0 || award.RetailerQuotationItem == 0 {
			return nil, validationError("each award must name a quotation item and a response line", nil)
		}
		if seenLines[award.QuotationItemID] {
			return nil, validationError("quotation item awarded more than once in batch",
				map[string]int{"quotation_item_id": award.QuotationItemID})
		}
		seenLines[award.QuotationItemID] = true
	}

	now := time.Now()
	result := &models.AwardResult{QuotationID: quotationID}
	var winnerIDs, loserIDs []int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var quotation models.Quotation
		if err := tx.Where("quotation_id = ? AND is_active = ?", quotationID, true).First(&quotation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("quotation not found")
			}
			return internalError(err)
		}
		if quotation.Status == models.QuotationAwarded {
			return stateConflictError("quotation has already been awarded", nil)
		}
		if !comparisonEligible(&quotation, now) {
			return stateConflictError(
				fmt.Sprintf("quotation is %s and cannot be awarded yet", quotation.Status), nil)
		}
		result.QuotationNumber = quotation.QuotationNumber

		var quotationItems []models.QuotationItem
		if err := tx.Where("quotation_id = ?", quotationID).Find(&quotationItems).Error; err != nil {
			return internalError(err)
		}
		lineExists := make(map[int]bool, len(quotationItems))
		for _, item := range quotationItems {
			lineExists[item.QuotationItemID] = true
		}

		var responses []models.RetailerQuotation
		if err := tx.Preload("Items").
			Where("quotation_id = ? AND status = ?", quotationID, models.RetailerQuotationSubmitted).
			Find(&responses).Error; err != nil {
			return internalError(err)
		}

		// Index every submitted response line by id for ownership checks.
		type lineOwner struct {
			line       models.RetailerQuotationItem
			retailerID int
		}
		owners := make(map[int]lineOwner)
		for _, response := range responses {
			for _, line := range response.Items {
				owners[line.ID] = lineOwner{line: line, retailerID: response.RetailerID}
			}
		}

		winners := make(map[int]bool)
		totalValue := 0.0
		for _, award := range req.Awards {
			if !lineExists[award.QuotationItemID] {
				return validationError("quotation item does not belong to this quotation",
					map[string]int{"quotation_item_id": award.QuotationItemID})
			}
			owner, ok := owners[award.RetailerQuotationItem]
			if !ok {
				return validationError("response line does not belong to a submitted response of this quotation",
					map[string]int{"retailer_quotation_item_id": award.RetailerQuotationItem})
			}
			if owner.line.QuotationItemID != award.QuotationItemID {
				return validationError("response line does not price the named quotation item",
					map[string]int{"retailer_quotation_item_id": award.RetailerQuotationItem})
			}

			if err := tx.Model(&models.RetailerQuotationItem{}).
				Where("id = ?", award.RetailerQuotationItem).
				Updates(map[string]interface{}{
					"is_awarded": true,
					"awarded_on": now,
					"awarded_by": awardedBy,
				}).Error; err != nil {
				return internalError(err)
			}

			winners[owner.retailerID] = true
			totalValue += owner.line.TotalAmount
			result.AwardedCount++
		}

		for _, response := range responses {
			if winners[response.RetailerID] {
				winnerIDs = append(winnerIDs, response.RetailerID)
			} else {
				loserIDs = append(loserIDs, response.RetailerID)
			}
		}

		if err := tx.Model(&models.RetailerQuotation{}).
			Where("quotation_id = ? AND retailer_id IN ? AND status = ?",
				quotationID, winnerIDs, models.RetailerQuotationSubmitted).
			Update("status", models.RetailerQuotationAwarded).Error; err != nil {
			return internalError(err)
		}
		if len(loserIDs) > 0 {
			if err := tx.Model(&models.RetailerQuotation{}).
				Where("quotation_id = ? AND retailer_id IN ? AND status = ?",
					quotationID, loserIDs, models.RetailerQuotationSubmitted).
				Update("status", models.RetailerQuotationRejected).Error; err != nil {
				return internalError(err)
			}
		}

		if err := tx.Model(&models.Quotation{}).
			Where("quotation_id = ?", quotationID).
			Update("status", models.QuotationAwarded).Error; err != nil {
			return internalError(err)
		}

		result.TotalValue = totalValue
		result.UniqueRetailerCount = len(winners)

		summary, err := json.Marshal(map[string]interface{}{
			"awards":                req.Awards,
			"total_value":           totalValue,
			"unique_retailer_count": len(winners),
		})
		if err != nil {
			return internalError(err)
		}
		return s.appendHistory(tx, quotationID, "awarded",
			string(quotation.Status), string(summary), awardedBy)
	})
	if err != nil {
		return nil, err
	}

	s.notifyAwardOutcome(result, winnerIDs, loserIDs)
	return result, nil
}

// notifyAwardOutcome tells winners and losers, each with its own template.
// Best effort after commit.
func (s *QuotationService) notifyAwardOutcome(result *models.AwardResult, winnerIDs, loserIDs []int) {
	data := map[string]string{
		"action":           "quotation_awarded",
		"quotation_id":     fmt.Sprintf("%d", result.QuotationID),
		"quotation_number": result.QuotationNumber,
	}
	if s.notifier != nil {
		s.notifier.NotifyUsers(winnerIDs, "Quotation awarded to you",
			fmt.Sprintf("You have been awarded items on quotation %s.", result.QuotationNumber), data)
		s.notifier.NotifyUsers(loserIDs, "Quotation closed",
			fmt.Sprintf("Quotation %s has been awarded to another retailer.", result.QuotationNumber), data)
	}

	if s.emails == nil {
		return
	}
	var users []models.User
	allIDs := append(append([]int{}, winnerIDs...), loserIDs...)
	if len(allIDs) == 0 {
		return
	}
	if err := s.db.Where("id IN ?", allIDs).Find(&users).Error; err != nil {
		log.Printf("award notification: fetching retailers failed: %v", err)
		return
	}
	won := make(map[int]bool, len(winnerIDs))
	for _, id := range winnerIDs {
		won[id] = true
	}
	for _, u := range users {
		template := models.TemplateQuotationLost
		if won[u.ID] {
			template = models.TemplateQuotationAwarded
		}
		emailData := models.EmailData{
			Email:           u.Email,
			UserName:        u.FirstName + " " + u.LastName,
			QuotationNumber: result.QuotationNumber,
			AwardedItems:    fmt.Sprintf("%d", result.AwardedCount),
			TotalAmount:     fmt.Sprintf("%.2f", result.TotalValue),
		}
		if err := s.emails.SendTemplatedEmail(template, emailData, nil); err != nil {
			log.Printf("award notification: email to %s failed: %v", u.Email, err)
		}
	}
}

// GetAwardSummary returns the finalized outcome of an awarded quotation:
// each quotation line with the winning retailer and price.
func (s *QuotationService) GetAwardSummary(quotationID int) (*models.AwardSummary, error) {
	var quotation models.Quotation
	if err := s.db.Preload("Items").
		Where("quotation_id = ? AND is_active = ?", quotationID, true).
		First(&quotation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("quotation not found")
		}
		return nil, internalError(err)
	}
	if quotation.Status != models.QuotationAwarded {
		return nil, stateConflictError(
			fmt.Sprintf("quotation is %s, award summary exists only for awarded quotations", quotation.Status), nil)
	}

	var responses []models.RetailerQuotation
	if err := s.db.Preload("Items", "is_awarded = ?", true).
		Where("quotation_id = ? AND status = ?", quotationID, models.RetailerQuotationAwarded).
		Find(&responses).Error; err != nil {
		return nil, internalError(err)
	}

	names, err := s.retailerNames(responses)
	if err != nil {
		return nil, internalError(err)
	}

	itemsByID := make(map[int]models.QuotationItem, len(quotation.Items))
	for _, item := range quotation.Items {
		itemsByID[item.QuotationItemID] = item
	}

	summary := &models.AwardSummary{Quotation: quotation}
	for _, response := range responses {
		for _, line := range response.Items {
			item := itemsByID[line.QuotationItemID]
			summary.Lines = append(summary.Lines, models.AwardedLine{
				QuotationItemID: line.QuotationItemID,
				ItemID:          item.ItemID,
				Quantity:        line.Quantity,
				Unit:            item.Unit,
				RetailerID:      response.RetailerID,
				RetailerName:    names[response.RetailerID],
				UnitPrice:       line.UnitPrice,
				LineTotal:       line.TotalAmount,
			})
			summary.TotalValue += line.TotalAmount
		}
	}
	sort.Slice(summary.Lines, func(i, j int) bool {
		return summary.Lines[i].QuotationItemID < summary.Lines[j].QuotationItemID
	})
	return summary, nil
}
