package services

import (
	"testing"
	"time"

	"procurehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonRequiresClosedOrExpired(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})

	// Live published quotation is still collecting bids.
	_, err := f.svc.GetAwardComparisonData(quotation.QuotationID)
	requireServiceError(t, err, CodeNotComparable)

	f.closeQuotation(t, quotation.QuotationID, admin.ID)
	_, err = f.svc.GetAwardComparisonData(quotation.QuotationID)
	require.NoError(t, err)
}

func TestComparisonOnExpiredPublishedQuotation(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})
	f.submitBid(t, quotation, retailer.ID, 2.0)

	require.NoError(t, f.db.Model(&models.Quotation{}).
		Where("quotation_id = ?", quotation.QuotationID).
		Update("validity_until", time.Now().Add(-time.Minute)).Error)

	data, err := f.svc.GetAwardComparisonData(quotation.QuotationID)
	require.NoError(t, err)
	assert.Equal(t, 1, data.ResponseCount)
}

func TestComparisonRanksBidsByPrice(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	cheap := f.createRetailer(t, "cheap@example.com")
	mid := f.createRetailer(t, "mid@example.com")
	dear := f.createRetailer(t, "dear@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})

	f.submitBid(t, quotation, dear.ID, 5.0)
	f.submitBid(t, quotation, cheap.ID, 2.0)
	f.submitBid(t, quotation, mid.ID, 3.5)

	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	data, err := f.svc.GetAwardComparisonData(quotation.QuotationID)
	require.NoError(t, err)

	assert.Equal(t, 1, data.TotalItems)
	assert.Equal(t, 1, data.ItemsWithBids)
	assert.Equal(t, 3, data.ResponseCount)
	require.Len(t, data.Items, 1)

	bids := data.Items[0].RetailerPrices
	require.Len(t, bids, 3)
	assert.Equal(t, []int{cheap.ID, mid.ID, dear.ID},
		[]int{bids[0].RetailerID, bids[1].RetailerID, bids[2].RetailerID})

	require.NotNil(t, data.Items[0].LowestPrice)
	assert.Equal(t, cheap.ID, data.Items[0].LowestPrice.RetailerID)
	assert.InDelta(t, 2.0, data.Items[0].LowestPrice.UnitPrice, 1e-9)
	assert.Equal(t, "Test retailer", bids[0].RetailerName)
}

func TestComparisonTieBreaksOnSubmissionTime(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	early := f.createRetailer(t, "early@example.com")
	late := f.createRetailer(t, "late@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})

	// Same price; the late retailer submits first in wall-clock order here, so
	// pin distinct submission times directly.
	lateResp := f.submitBid(t, quotation, late.ID, 3.0)
	earlyResp := f.submitBid(t, quotation, early.ID, 3.0)
	base := time.Now().Add(-time.Hour)
	require.NoError(t, f.db.Model(&models.RetailerQuotation{}).
		Where("retailer_quotation_id = ?", earlyResp.RetailerQuotationID).
		Update("submitted_on", base).Error)
	require.NoError(t, f.db.Model(&models.RetailerQuotation{}).
		Where("retailer_quotation_id = ?", lateResp.RetailerQuotationID).
		Update("submitted_on", base.Add(10*time.Minute)).Error)

	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	data, err := f.svc.GetAwardComparisonData(quotation.QuotationID)
	require.NoError(t, err)
	bids := data.Items[0].RetailerPrices
	require.Len(t, bids, 2)
	assert.Equal(t, early.ID, bids[0].RetailerID)
	assert.Equal(t, late.ID, bids[1].RetailerID)
}

func TestComparisonItemWithoutBids(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10, 102: 4})

	// Bid on one line only.
	var target models.QuotationItem
	for _, item := range quotation.Items {
		if item.ItemID == 101 {
			target = item
		}
	}
	_, err := f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID,
		models.SubmitRetailerQuotationRequest{Items: []models.SubmitRetailerQuotationItem{
			{QuotationItemID: target.QuotationItemID, UnitPrice: 2, Quantity: 10},
		}})
	require.NoError(t, err)

	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	data, err := f.svc.GetAwardComparisonData(quotation.QuotationID)
	require.NoError(t, err)
	assert.Equal(t, 2, data.TotalItems)
	assert.Equal(t, 1, data.ItemsWithBids)

	for _, item := range data.Items {
		if item.ItemID == 101 {
			assert.NotNil(t, item.LowestPrice)
		} else {
			assert.Nil(t, item.LowestPrice)
			assert.Empty(t, item.RetailerPrices)
		}
	}
}
