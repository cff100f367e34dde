package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"procurehub/models"

	"gorm.io/gorm"
)

// comparisonEligible reports whether the quotation can be compared/awarded:
// it must be closed, or published with an expired validity window.
func comparisonEligible(quotation *models.Quotation, now time.Time) bool {
	if quotation.Status == models.QuotationClosed {
		return true
	}
	return quotation.Status == models.QuotationPublished && quotation.IsExpired(now)
}

// GetAwardComparisonData builds the admin's award view: for every quotation
// line, all bids from submitted responses ranked ascending by unit price.
// Ties break on earliest submission time, then lowest response-line id, so the
// ordering is deterministic. Read-only.
func (s *QuotationService) GetAwardComparisonData(quotationID int) (*models.ComparisonData, error) {
	quotation, err := s.GetQuotation(quotationID)
	if err != nil {
		return nil, err
	}
	if !comparisonEligible(quotation, time.Now()) {
		return nil, notComparableError(
			fmt.Sprintf("quotation is %s and not yet ready for comparison", quotation.Status))
	}

	var responses []models.RetailerQuotation
	err = s.db.Preload("Items").
		Where("quotation_id = ? AND status IN ?", quotationID,
			[]models.RetailerQuotationStatus{
				models.RetailerQuotationSubmitted,
				models.RetailerQuotationAwarded,
				models.RetailerQuotationRejected,
			}).
		Find(&responses).Error
	if err != nil {
		return nil, internalError(err)
	}

	retailerNames, err := s.retailerNames(responses)
	if err != nil {
		return nil, internalError(err)
	}

	bidsByLine := make(map[int][]models.RetailerBid)
	for _, response := range responses {
		for _, line := range response.Items {
			bidsByLine[line.QuotationItemID] = append(bidsByLine[line.QuotationItemID], models.RetailerBid{
				RetailerQuotationItemID: line.ID,
				RetailerQuotationID:     response.RetailerQuotationID,
				RetailerID:              response.RetailerID,
				RetailerName:            retailerNames[response.RetailerID],
				UnitPrice:               line.UnitPrice,
				Quantity:                line.Quantity,
				TotalAmount:             line.TotalAmount,
				SubmittedOn:             response.SubmittedOn,
				IsAwarded:               line.IsAwarded,
			})
		}
	}

	data := &models.ComparisonData{
		Quotation:     *quotation,
		TotalItems:    len(quotation.Items),
		ResponseCount: len(responses),
	}
	for _, item := range quotation.Items {
		bids := bidsByLine[item.QuotationItemID]
		sortBids(bids)

		comparison := models.ItemComparison{
			QuotationItemID:   item.QuotationItemID,
			ItemID:            item.ItemID,
			RequestedQuantity: item.RequestedQuantity,
			Unit:              item.Unit,
			Specification:     item.Specification,
			RetailerPrices:    bids,
		}
		if len(bids) > 0 {
			lowest := bids[0]
			comparison.LowestPrice = &lowest
			data.ItemsWithBids++
		}
		data.Items = append(data.Items, comparison)
	}
	return data, nil
}

// sortBids orders bids by unit price ascending, then earliest submission,
// then lowest response-line id.
func sortBids(bids []models.RetailerBid) {
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].UnitPrice != bids[j].UnitPrice {
			return bids[i].UnitPrice < bids[j].UnitPrice
		}
		ti, tj := bids[i].SubmittedOn, bids[j].SubmittedOn
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		return bids[i].RetailerQuotationItemID < bids[j].RetailerQuotationItemID
	})
}

// retailerNames resolves display names for the responses' retailers.
func (s *QuotationService) retailerNames(responses []models.RetailerQuotation) (map[int]string, error) {
	if len(responses) == 0 {
		return map[int]string{}, nil
	}
	ids := make([]int, 0, len(responses))
	for _, r := range responses {
		ids = append(ids, r.RetailerID)
	}
	var users []models.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return map[int]string{}, nil
		}
		return nil, err
	}
	names := make(map[int]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FirstName + " " + u.LastName
	}
	return names, nil
}
