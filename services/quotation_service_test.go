package services

import (
	"regexp"
	"testing"
	"time"

	"procurehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quotationNumberPattern = regexp.MustCompile(`^QT-\d{6}-\d{4}$`)

func TestCreateAdHocQuotationDraft(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")

	quotation, err := f.svc.CreateAdHocQuotation(models.CreateQuotationRequest{
		ValidityUntil: time.Now().Add(48 * time.Hour),
		Notes:         "cement restock",
		Items: []models.CreateQuotationItemRequest{
			{ItemID: 101, Quantity: 50, Unit: "bags"},
			{ItemID: 102, Quantity: 10, Unit: "tons"},
		},
	}, admin.ID)
	require.NoError(t, err)

	assert.Equal(t, models.QuotationDraft, quotation.Status)
	assert.Equal(t, models.QuotationTypeAdHoc, quotation.QuotationType)
	assert.Regexp(t, quotationNumberPattern, quotation.QuotationNumber)
	assert.Len(t, quotation.Items, 2)
	assert.False(t, quotation.ValidityFrom.IsZero())

	// Draft creation notifies nobody.
	assert.Empty(t, f.notifier.notifications())
	assert.Empty(t, f.emails.emails())
}

func TestCreateAdHocQuotationPublishNotifiesRetailers(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	r1 := f.createRetailer(t, "r1@example.com")
	r2 := f.createRetailer(t, "r2@example.com")
	suspended := f.createRetailer(t, "r3@example.com")
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", suspended.ID).Update("suspended", true).Error)

	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{101: 5})
	assert.Equal(t, models.QuotationPublished, quotation.Status)

	sent := f.notifier.notifications()
	require.Len(t, sent, 1)
	assert.ElementsMatch(t, []int{r1.ID, r2.ID}, sent[0].UserIDs)
	assert.Equal(t, "quotation_published", sent[0].Data["action"])

	emails := f.emails.emails()
	require.Len(t, emails, 2)
	for _, e := range emails {
		assert.Equal(t, models.TemplateQuotationPublished, e.TemplateType)
	}
}

func TestCreateAdHocQuotationValidation(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")

	_, err := f.svc.CreateAdHocQuotation(models.CreateQuotationRequest{
		ValidityUntil: time.Now().Add(time.Hour),
	}, admin.ID)
	requireServiceError(t, err, CodeValidation)

	_, err = f.svc.CreateAdHocQuotation(models.CreateQuotationRequest{
		ValidityUntil: time.Now().Add(-time.Hour),
		Items:         []models.CreateQuotationItemRequest{{ItemID: 1, Quantity: 1}},
	}, admin.ID)
	requireServiceError(t, err, CodeValidation)

	_, err = f.svc.CreateAdHocQuotation(models.CreateQuotationRequest{
		ValidityUntil: time.Now().Add(time.Hour),
		Items:         []models.CreateQuotationItemRequest{{ItemID: 1, Quantity: -2}},
	}, admin.ID)
	requireServiceError(t, err, CodeValidation)
}

func TestQuotationNumbersIncrementWithinMonth(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")

	first := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})
	second := f.createPublishedQuotation(t, admin.ID, map[int]float64{2: 1})

	assert.Regexp(t, quotationNumberPattern, first.QuotationNumber)
	assert.Regexp(t, quotationNumberPattern, second.QuotationNumber)
	assert.Greater(t, second.QuotationNumber, first.QuotationNumber)
}

func TestUpdateQuotationStatusTransitions(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")

	quotation, err := f.svc.CreateAdHocQuotation(models.CreateQuotationRequest{
		ValidityUntil: time.Now().Add(time.Hour),
		Items:         []models.CreateQuotationItemRequest{{ItemID: 1, Quantity: 1}},
	}, admin.ID)
	require.NoError(t, err)

	// draft -> closed is not in the adjacency table.
	_, err = f.svc.UpdateQuotationStatus(quotation.QuotationID, models.QuotationClosed, admin.ID)
	requireServiceError(t, err, CodeInvalidTransition)

	// draft -> published -> closed -> published (reopen) -> awarded.
	for _, next := range []models.QuotationStatus{
		models.QuotationPublished,
		models.QuotationClosed,
		models.QuotationPublished,
		models.QuotationClosed,
		models.QuotationAwarded,
	} {
		updated, err := f.svc.UpdateQuotationStatus(quotation.QuotationID, next, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	// awarded is terminal.
	_, err = f.svc.UpdateQuotationStatus(quotation.QuotationID, models.QuotationCancelled, admin.ID)
	requireServiceError(t, err, CodeStateConflict)
}

func TestUpdateQuotationStatusIdempotent(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})

	updated, err := f.svc.UpdateQuotationStatus(quotation.QuotationID, models.QuotationPublished, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationPublished, updated.Status)

	// No history row for the no-op write.
	history, err := f.svc.GetQuotationHistory(quotation.QuotationID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "created", history[0].Action)
}

func TestUpdateQuotationStatusUnknown(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})

	_, err := f.svc.UpdateQuotationStatus(quotation.QuotationID, "archived", admin.ID)
	requireServiceError(t, err, CodeValidation)
}

func TestQuotationHistoryRecordsTransitions(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})

	f.closeQuotation(t, quotation.QuotationID, admin.ID)

	history, err := f.svc.GetQuotationHistory(quotation.QuotationID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "created", history[0].Action)
	assert.Equal(t, "status_changed", history[1].Action)
	assert.Equal(t, string(models.QuotationPublished), history[1].OldValue)
	assert.Equal(t, string(models.QuotationClosed), history[1].NewValue)
	assert.Equal(t, admin.ID, history[1].CreatedBy)
}

func TestSoftDeleteQuotation(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})

	require.NoError(t, f.svc.SoftDeleteQuotation(quotation.QuotationID, admin.ID))

	_, err := f.svc.GetQuotation(quotation.QuotationID)
	requireServiceError(t, err, CodeNotFound)

	// Row is tombstoned, not removed.
	var raw models.Quotation
	require.NoError(t, f.db.Where("quotation_id = ?", quotation.QuotationID).First(&raw).Error)
	assert.False(t, raw.IsActive)

	// Deleting again reports not found.
	err = f.svc.SoftDeleteQuotation(quotation.QuotationID, admin.ID)
	requireServiceError(t, err, CodeNotFound)
}

func TestSoftDeleteAwardedQuotationRejected(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	quotation := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})
	f.closeQuotation(t, quotation.QuotationID, admin.ID)
	_, err := f.svc.UpdateQuotationStatus(quotation.QuotationID, models.QuotationAwarded, admin.ID)
	require.NoError(t, err)

	err = f.svc.SoftDeleteQuotation(quotation.QuotationID, admin.ID)
	requireServiceError(t, err, CodeStateConflict)
}

func TestListQuotationsFilterByStatus(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	published := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})
	_, err := f.svc.CreateAdHocQuotation(models.CreateQuotationRequest{
		ValidityUntil: time.Now().Add(time.Hour),
		Items:         []models.CreateQuotationItemRequest{{ItemID: 2, Quantity: 1}},
	}, admin.ID)
	require.NoError(t, err)

	all, err := f.svc.ListQuotations("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPublished, err := f.svc.ListQuotations(models.QuotationPublished)
	require.NoError(t, err)
	require.Len(t, onlyPublished, 1)
	assert.Equal(t, published.QuotationID, onlyPublished[0].QuotationID)

	_, err = f.svc.ListQuotations("bogus")
	requireServiceError(t, err, CodeValidation)
}

func TestListOpenQuotationsExcludesExpired(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")
	open := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})

	expired := f.createPublishedQuotation(t, admin.ID, map[int]float64{2: 1})
	require.NoError(t, f.db.Model(&models.Quotation{}).
		Where("quotation_id = ?", expired.QuotationID).
		Update("validity_until", time.Now().Add(-time.Minute)).Error)

	quotations, err := f.svc.ListOpenQuotations()
	require.NoError(t, err)
	require.Len(t, quotations, 1)
	assert.Equal(t, open.QuotationID, quotations[0].QuotationID)
}

func TestAutoCloseExpired(t *testing.T) {
	f := newTestFixture(t)
	admin := f.createUser(t, models.RoleAdmin, "admin@example.com")

	stillOpen := f.createPublishedQuotation(t, admin.ID, map[int]float64{1: 1})
	expired := f.createPublishedQuotation(t, admin.ID, map[int]float64{2: 1})
	require.NoError(t, f.db.Model(&models.Quotation{}).
		Where("quotation_id = ?", expired.QuotationID).
		Update("validity_until", time.Now().Add(-time.Hour)).Error)

	closed, err := f.svc.AutoCloseExpired(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	got, err := f.svc.GetQuotation(expired.QuotationID)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationClosed, got.Status)

	untouched, err := f.svc.GetQuotation(stillOpen.QuotationID)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationPublished, untouched.Status)

	// Second run finds nothing.
	closed, err = f.svc.AutoCloseExpired(time.Now())
	require.NoError(t, err)
	assert.Zero(t, closed)
}
