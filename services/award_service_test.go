package services

import (
	"testing"
	"time"

	"procurehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bidLine finds the response line a retailer submitted for a quotation line.
func bidLine(t *testing.T, response *models.RetailerQuotation, quotationItemID int) models.RetailerQuotationItem {
	t.Helper()
	for _, line := range response.Items {
		if line.QuotationItemID == quotationItemID {
			return line
		}
	}
	t.Fatalf("no response line for quotation item %d", quotationItemID)
	return models.RetailerQuotationItem{}
}

func TestAwardSplitAcrossRetailers(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	r1 := f.createRetailer(t, "r1@example.com")
	r2 := f.createRetailer(t, "r2@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10, 102: 4})

	resp1 := f.submitBid(t, quotation, r1.ID, 2.0)
	resp2 := f.submitBid(t, quotation, r2.ID, 3.0)
	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	var line101, line102 models.QuotationItem
	for _, item := range quotation.Items {
		switch item.ItemID {
		case 101:
			line101 = item
		case 102:
			line102 = item
		}
	}

	// Item 101 to r1, item 102 to r2.
	result, err := f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: line101.QuotationItemID, RetailerQuotationItem: bidLine(t, resp1, line101.QuotationItemID).ID},
			{QuotationItemID: line102.QuotationItemID, RetailerQuotationItem: bidLine(t, resp2, line102.QuotationItemID).ID},
		},
	}, admin.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.AwardedCount)
	assert.Equal(t, 2, result.UniqueRetailerCount)
	// 2.0*10 from r1 plus 3.0*4 from r2.
	assert.InDelta(t, 32.0, result.TotalValue, 1e-9)

	got, err := f.svc.GetQuotation(quotation.QuotationID)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationAwarded, got.Status)

	for _, retailerID := range []int{r1.ID, r2.ID} {
		response, err := f.svc.GetRetailerQuotation(quotation.QuotationID, retailerID)
		require.NoError(t, err)
		assert.Equal(t, models.RetailerQuotationAwarded, response.Status)
	}

	// Exactly one awarded line per quotation item.
	var awarded []models.RetailerQuotationItem
	require.NoError(t, f.db.Where("is_awarded = ?", true).Find(&awarded).Error)
	require.Len(t, awarded, 2)
	seen := map[int]bool{}
	for _, line := range awarded {
		assert.False(t, seen[line.QuotationItemID])
		seen[line.QuotationItemID] = true
		require.NotNil(t, line.AwardedOn)
		require.NotNil(t, line.AwardedBy)
		assert.Equal(t, admin.ID, *line.AwardedBy)
	}
}

func TestAwardRejectsLosers(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	winner := f.createRetailer(t, "winner@example.com")
	loser := f.createRetailer(t, "loser@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})

	winning := f.submitBid(t, quotation, winner.ID, 2.0)
	f.submitBid(t, quotation, loser.ID, 3.0)
	f.closeQuotation(t, quotation.QuotationID, admin.ID)
	f.notifier.sent = nil
	f.emails.sent = nil

	lineID := quotation.Items[0].QuotationItemID
	result, err := f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: lineID, RetailerQuotationItem: bidLine(t, winning, lineID).ID},
		},
	}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UniqueRetailerCount)

	lost, err := f.svc.GetRetailerQuotation(quotation.QuotationID, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RetailerQuotationRejected, lost.Status)

	// One winner notification, one loser notification.
	sent := f.notifier.notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, []int{winner.ID}, sent[0].UserIDs)
	assert.Equal(t, []int{loser.ID}, sent[1].UserIDs)

	templates := map[string]int{}
	for _, e := range f.emails.emails() {
		templates[e.TemplateType]++
	}
	assert.Equal(t, 1, templates[models.TemplateQuotationAwarded])
	assert.Equal(t, 1, templates[models.TemplateQuotationLost])
}

func TestAwardValidation(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10, 102: 4})
	response := f.submitBid(t, quotation, retailer.ID, 2.0)
	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	lineA := quotation.Items[0].QuotationItemID
	lineB := quotation.Items[1].QuotationItemID
	bidA := bidLine(t, response, lineA).ID

	_, err := f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{}, admin.ID)
	requireServiceError(t, err, CodeValidation)

	// Same quotation line twice in one batch.
	_, err = f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: lineA, RetailerQuotationItem: bidA},
			{QuotationItemID: lineA, RetailerQuotationItem: bidLine(t, response, lineB).ID},
		},
	}, admin.ID)
	requireServiceError(t, err, CodeValidation)

	// Response line that prices a different quotation line.
	_, err = f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: lineB, RetailerQuotationItem: bidA},
		},
	}, admin.ID)
	requireServiceError(t, err, CodeValidation)

	// Unknown response line.
	_, err = f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: lineA, RetailerQuotationItem: 9999},
		},
	}, admin.ID)
	requireServiceError(t, err, CodeValidation)

	// Nothing was awarded by the failed attempts.
	got, err := f.svc.GetQuotation(quotation.QuotationID)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationClosed, got.Status)
}

func TestAwardRequiresEligibleStatus(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})
	response := f.submitBid(t, quotation, retailer.ID, 2.0)

	lineID := quotation.Items[0].QuotationItemID
	award := models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: lineID, RetailerQuotationItem: bidLine(t, response, lineID).ID},
		},
	}

	// Still collecting bids.
	_, err := f.svc.AwardQuotation(quotation.QuotationID, award, admin.ID)
	requireServiceError(t, err, CodeStateConflict)

	f.closeQuotation(t, quotation.QuotationID, admin.ID)
	_, err = f.svc.AwardQuotation(quotation.QuotationID, award, admin.ID)
	require.NoError(t, err)

	// Awarding twice fails closed.
	_, err = f.svc.AwardQuotation(quotation.QuotationID, award, admin.ID)
	requireServiceError(t, err, CodeStateConflict)
}

func TestAwardOnExpiredPublishedQuotation(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})
	response := f.submitBid(t, quotation, retailer.ID, 2.0)

	require.NoError(t, f.db.Model(&models.Quotation{}).
		Where("quotation_id = ?", quotation.QuotationID).
		Update("validity_until", time.Now().Add(-time.Minute)).Error)

	lineID := quotation.Items[0].QuotationItemID
	result, err := f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: lineID, RetailerQuotationItem: bidLine(t, response, lineID).ID},
		},
	}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AwardedCount)
}

func TestAwardWritesHistory(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	retailer := f.createRetailer(t, "r1@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10})
	response := f.submitBid(t, quotation, retailer.ID, 2.0)
	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	lineID := quotation.Items[0].QuotationItemID
	_, err := f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: lineID, RetailerQuotationItem: bidLine(t, response, lineID).ID},
		},
	}, admin.ID)
	require.NoError(t, err)

	history, err := f.svc.GetQuotationHistory(quotation.QuotationID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, "awarded", last.Action)
	assert.Equal(t, string(models.QuotationClosed), last.OldValue)
	assert.Contains(t, last.NewValue, "total_value")
}

func TestGetAwardSummary(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	r1 := f.createRetailer(t, "r1@example.com")
	r2 := f.createRetailer(t, "r2@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 10, 102: 4})

	resp1 := f.submitBid(t, quotation, r1.ID, 2.0)
	resp2 := f.submitBid(t, quotation, r2.ID, 3.0)
	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	// Not awarded yet.
	_, err := f.svc.GetAwardSummary(quotation.QuotationID)
	requireServiceError(t, err, CodeStateConflict)

	var line101, line102 models.QuotationItem
	for _, item := range quotation.Items {
		switch item.ItemID {
		case 101:
			line101 = item
		case 102:
			line102 = item
		}
	}
	_, err = f.svc.AwardQuotation(quotation.QuotationID, models.AwardQuotationRequest{
		Awards: []models.AwardSelection{
			{QuotationItemID: line101.QuotationItemID, RetailerQuotationItem: bidLine(t, resp1, line101.QuotationItemID).ID},
			{QuotationItemID: line102.QuotationItemID, RetailerQuotationItem: bidLine(t, resp2, line102.QuotationItemID).ID},
		},
	}, admin.ID)
	require.NoError(t, err)

	summary, err := f.svc.GetAwardSummary(quotation.QuotationID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 2)
	assert.InDelta(t, 32.0, summary.TotalValue, 1e-9)

	// Lines come back ordered by quotation line, each naming its winner.
	assert.Equal(t, line101.QuotationItemID, summary.Lines[0].QuotationItemID)
	assert.Equal(t, r1.ID, summary.Lines[0].RetailerID)
	assert.InDelta(t, 20.0, summary.Lines[0].LineTotal, 1e-9)
	assert.Equal(t, line102.QuotationItemID, summary.Lines[1].QuotationItemID)
	assert.Equal(t, r2.ID, summary.Lines[1].RetailerID)
	assert.InDelta(t, 12.0, summary.Lines[1].LineTotal, 1e-9)
}
