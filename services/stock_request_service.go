package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"procurehub/models"
	"procurehub/repository"

	"gorm.io/gorm"
)

// CreateStockRequest records one store's ask for stock.
func (s *QuotationService) CreateStockRequest(req models.CreateStockRequestRequest, requestedBy int) (*models.StockRequest, error) {
	if len(req.Items) == 0 {
		return nil, validationError("stock request must contain at least one item", nil)
	}

	var request models.StockRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		request = models.StockRequest{
			StoreID:     req.StoreID,
			Status:      models.StockRequestPending,
			RequestedBy: requestedBy,
			Notes:       req.Notes,
			IsActive:    true,
		}
		if err := tx.Create(&request).Error; err != nil {
			return internalError(err)
		}

		items := make([]models.StockRequestItem, 0, len(req.Items))
		for _, in := range req.Items {
			if in.Quantity <= 0 {
				return validationError("item quantity must be positive", map[string]int{"item_id": in.ItemID})
			}
			items = append(items, models.StockRequestItem{
				StockRequestID: request.StockRequestID,
				ItemID:         in.ItemID,
				Quantity:       in.Quantity,
				Unit:           in.Unit,
				Status:         models.StockRequestPending,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return internalError(err)
		}
		request.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// GetStockRequest fetches one active stock request with its items.
func (s *QuotationService) GetStockRequest(stockRequestID int) (*models.StockRequest, error) {
	var request models.StockRequest
	err := s.db.Preload("Items").
		Where("stock_request_id = ? AND is_active = ?", stockRequestID, true).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("stock request not found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return &request, nil
}

// ListPendingStockRequestItems returns request items not yet folded into a
// quotation, for the admin's aggregation picker.
func (s *QuotationService) ListPendingStockRequestItems() ([]models.StockRequestItem, error) {
	var items []models.StockRequestItem
	err := s.db.
		Joins("JOIN stock_requests ON stock_requests.stock_request_id = stock_request_items.stock_request_id").
		Where("stock_request_items.is_quoted = ? AND stock_requests.is_active = ?", false, true).
		Order("stock_request_items.id ASC").
		Find(&items).Error
	if err != nil {
		return nil, internalError(err)
	}
	return items, nil
}

// CreateQuotationFromStockRequests folds the named stock request items into one
// published quotation. Lines are the per-item sums of requested quantities
// across every supplied request item, regardless of store or parent request.
// The whole effect is one transaction: quotation + lines created, every
// consumed item flagged is_quoted, every parent request marked quoted. The
// consuming update is conditional on is_quoted = false and the affected-row
// count is checked, so two admins racing over overlapping selections cannot
// double-book a line.
func (s *QuotationService) CreateQuotationFromStockRequests(req models.AggregateStockRequestsRequest, createdBy int) (*models.Quotation, error) {
	if len(req.RequestItemIDs) == 0 {
		return nil, validationError("request_item_ids must not be empty", nil)
	}
	now := time.Now()
	if !req.ValidityUntil.After(now) {
		return nil, validationError("validity_until must be in the future", nil)
	}

	var quotation models.Quotation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var requestItems []models.StockRequestItem
		if err := tx.Where("id IN ?", req.RequestItemIDs).Find(&requestItems).Error; err != nil {
			return internalError(err)
		}
		if len(requestItems) == 0 {
			return validationError("none of the request items exist", req.RequestItemIDs)
		}
		if len(requestItems) != len(uniqueInts(req.RequestItemIDs)) {
			missing := missingIDs(req.RequestItemIDs, requestItems)
			return validationError("some request items do not exist", missing)
		}

		var alreadyQuoted []int
		for _, item := range requestItems {
			if item.IsQuoted {
				alreadyQuoted = append(alreadyQuoted, item.ID)
			}
		}
		if len(alreadyQuoted) > 0 {
			return stateConflictError("request items already folded into a quotation", alreadyQuoted)
		}

		number, err := repository.NextQuotationNumber(tx, now)
		if err != nil {
			return internalError(err)
		}

		// One representative parent request for traceability.
		originID := requestItems[0].StockRequestID
		for _, item := range requestItems {
			if item.StockRequestID < originID {
				originID = item.StockRequestID
			}
		}

		quotation = models.Quotation{
			QuotationNumber: number,
			QuotationType:   models.QuotationTypeStockRequest,
			Status:          models.QuotationPublished,
			ValidityFrom:    now,
			ValidityUntil:   req.ValidityUntil,
			StockRequestID:  &originID,
			Notes:           req.Notes,
			IsActive:        true,
			CreatedBy:       createdBy,
		}
		if err := tx.Create(&quotation).Error; err != nil {
			return internalError(err)
		}

		lines := aggregateRequestItems(quotation.QuotationID, requestItems)
		if err := tx.Create(&lines).Error; err != nil {
			return internalError(err)
		}
		quotation.Items = lines

		// Consume the source items. The WHERE is_quoted = false guard plus the
		// affected-row check closes the check-then-set race window.
		result := tx.Model(&models.StockRequestItem{}).
			Where("id IN ? AND is_quoted = ?", req.RequestItemIDs, false).
			Updates(map[string]interface{}{
				"is_quoted": true,
				"status":    models.StockRequestApproved,
			})
		if result.Error != nil {
			return internalError(result.Error)
		}
		if int(result.RowsAffected) != len(requestItems) {
			return stateConflictError("request items were consumed concurrently, refresh and retry", nil)
		}

		parentIDs := uniqueParentRequests(requestItems)
		if err := tx.Model(&models.StockRequest{}).
			Where("stock_request_id IN ?", parentIDs).
			Update("status", models.StockRequestQuoted).Error; err != nil {
			return internalError(err)
		}

		return s.appendHistory(tx, quotation.QuotationID, "created",
			"", fmt.Sprintf("aggregated %d request items from %d requests", len(requestItems), len(parentIDs)), createdBy)
	})
	if err != nil {
		return nil, err
	}

	s.notifyQuotationPublished(&quotation)
	return &quotation, nil
}

// aggregateRequestItems sums quantities grouped by item id and builds the
// quotation lines, deterministically ordered by item id.
func aggregateRequestItems(quotationID int, requestItems []models.StockRequestItem) []models.QuotationItem {
	type bucket struct {
		quantity float64
		unit     string
		sources  int
	}
	grouped := make(map[int]*bucket)
	for _, item := range requestItems {
		b, ok := grouped[item.ItemID]
		if !ok {
			b = &bucket{unit: item.Unit}
			grouped[item.ItemID] = b
		}
		b.quantity += item.Quantity
		b.sources++
	}

	itemIDs := make([]int, 0, len(grouped))
	for id := range grouped {
		itemIDs = append(itemIDs, id)
	}
	sort.Ints(itemIDs)

	lines := make([]models.QuotationItem, 0, len(grouped))
	for _, itemID := range itemIDs {
		b := grouped[itemID]
		lines = append(lines, models.QuotationItem{
			QuotationID:       quotationID,
			ItemID:            itemID,
			RequestedQuantity: b.quantity,
			Unit:              b.unit,
			Specification:     fmt.Sprintf("Aggregated from %d stock request line(s)", b.sources),
		})
	}
	return lines
}

func uniqueInts(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func missingIDs(requested []int, found []models.StockRequestItem) []int {
	present := make(map[int]bool, len(found))
	for _, item := range found {
		present[item.ID] = true
	}
	var missing []int
	for _, id := range uniqueInts(requested) {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func uniqueParentRequests(items []models.StockRequestItem) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, item := range items {
		if !seen[item.StockRequestID] {
			seen[item.StockRequestID] = true
			ids = append(ids, item.StockRequestID)
		}
	}
	return ids
}
