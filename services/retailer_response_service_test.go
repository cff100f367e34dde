package services

import (
	"testing"
	"time"

	"procurehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRetailerQuotation(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10, 102: 4})

	req := models.SubmitRetailerQuotationRequest{Notes: "7 day delivery"}
	for _, item := range quotation.Items {
		req.Items = append(req.Items, models.SubmitRetailerQuotationItem{
			QuotationItemID: item.QuotationItemID,
			UnitPrice:       2.5,
			Quantity:        item.RequestedQuantity,
		})
	}
	response, err := f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID, req)
	require.NoError(t, err)

	assert.Equal(t, models.RetailerQuotationSubmitted, response.Status)
	require.NotNil(t, response.SubmittedOn)
	// Server-side total, not client-supplied: 2.5*10 + 2.5*4.
	assert.InDelta(t, 35.0, response.TotalAmount, 1e-9)
	require.Len(t, response.Items, 2)
	for _, line := range response.Items {
		assert.InDelta(t, line.UnitPrice*line.Quantity, line.TotalAmount, 1e-9)
	}
}

func TestSubmitRetailerQuotationValidation(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})
	lineID := quotation.Items[0].QuotationItemID

	_, err := f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID,
		models.SubmitRetailerQuotationRequest{})
	requireServiceError(t, err, CodeValidation)

	_, err = f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID,
		models.SubmitRetailerQuotationRequest{Items: []models.SubmitRetailerQuotationItem{
			{QuotationItemID: lineID, UnitPrice: 0, Quantity: 10},
		}})
	requireServiceError(t, err, CodeValidation)

	_, err = f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID,
		models.SubmitRetailerQuotationRequest{Items: []models.SubmitRetailerQuotationItem{
			{QuotationItemID: lineID, UnitPrice: 2, Quantity: 10},
			{QuotationItemID: lineID, UnitPrice: 3, Quantity: 10},
		}})
	requireServiceError(t, err, CodeValidation)

	// A line id from some other quotation is rejected.
	other := f.createPublishedQuotation(t, admin.ID, map[int]float64{201: 1})
	_, err = f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID,
		models.SubmitRetailerQuotationRequest{Items: []models.SubmitRetailerQuotationItem{
			{QuotationItemID: other.Items[0].QuotationItemID, UnitPrice: 2, Quantity: 1},
		}})
	requireServiceError(t, err, CodeValidation)
}

func TestSubmitRejectedWhenNotPublished(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})
	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	_, err := f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID,
		models.SubmitRetailerQuotationRequest{Items: []models.SubmitRetailerQuotationItem{
			{QuotationItemID: quotation.Items[0].QuotationItemID, UnitPrice: 2, Quantity: 10},
		}})
	requireServiceError(t, err, CodeStateConflict)
}

func TestSubmitRejectedWhenExpired(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})
	require.NoError(t, f.db.Model(&models.Quotation{}).
		Where("quotation_id = ?", quotation.QuotationID).
		Update("validity_until", time.Now().Add(-time.Minute)).Error)

	_, err := f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID,
		models.SubmitRetailerQuotationRequest{Items: []models.SubmitRetailerQuotationItem{
			{QuotationItemID: quotation.Items[0].QuotationItemID, UnitPrice: 2, Quantity: 10},
		}})
	requireServiceError(t, err, CodeExpired)
}

func TestResubmitAfterSubmittedRejected(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})

	f.submitBid(t, quotation, retailer.ID, 2.0)

	_, err := f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailer.ID,
		models.SubmitRetailerQuotationRequest{Items: []models.SubmitRetailerQuotationItem{
			{QuotationItemID: quotation.Items[0].QuotationItemID, UnitPrice: 1.5, Quantity: 10},
		}})
	requireServiceError(t, err, CodeDuplicateSubmission)

	// The original bid is untouched.
	got, err := f.svc.GetRetailerQuotation(quotation.QuotationID, retailer.ID)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, got.TotalAmount, 1e-9)
}

func TestDraftReuseReplacesLines(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10, 102: 4})

	// An admin-reopened response sits in draft with stale lines.
	draft := models.RetailerQuotation{
		QuotationID: quotation.QuotationID,
		RetailerID:  retailer.ID,
		Status:      models.RetailerQuotationDraft,
		TotalAmount: 99,
	}
	require.NoError(t, f.db.Create(&draft).Error)
	stale := models.RetailerQuotationItem{
		RetailerQuotationID: draft.RetailerQuotationID,
		QuotationItemID:     quotation.Items[0].QuotationItemID,
		UnitPrice:           9.9,
		Quantity:            1,
		TotalAmount:         9.9,
	}
	require.NoError(t, f.db.Create(&stale).Error)

	response := f.submitBid(t, quotation, retailer.ID, 3.0)

	// Same response row reused, stale lines gone, total recomputed.
	assert.Equal(t, draft.RetailerQuotationID, response.RetailerQuotationID)
	assert.Equal(t, models.RetailerQuotationSubmitted, response.Status)
	assert.InDelta(t, 42.0, response.TotalAmount, 1e-9)

	var lines []models.RetailerQuotationItem
	require.NoError(t, f.db.Where("retailer_quotation_id = ?", draft.RetailerQuotationID).Find(&lines).Error)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.InDelta(t, 3.0, line.UnitPrice, 1e-9)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.RetailerQuotation{}).
		Where("quotation_id = ? AND retailer_id = ?", quotation.QuotationID, retailer.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetRetailerQuotationNotFound(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})

	_, err := f.svc.GetRetailerQuotation(quotation.QuotationID, retailer.ID)
	requireServiceError(t, err, CodeNotFound)
}
