package services

import (
	"sync"
	"testing"
	"time"

	"procurehub/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeNotifier records every dispatched notification for assertions.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []fakeNotification
}

type fakeNotification struct {
	UserIDs []int
	Title   string
	Message string
	Data    map[string]string
}

func (f *fakeNotifier) NotifyUser(userID int, title, message string, data map[string]string) {
	f.NotifyUsers([]int{userID}, title, message, data)
}

func (f *fakeNotifier) NotifyUsers(userIDs []int, title, message string, data map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fakeNotification{UserIDs: userIDs, Title: title, Message: message, Data: data})
}

func (f *fakeNotifier) notifications() []fakeNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeNotification, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeEmailSender records template sends keyed by template type.
type fakeEmailSender struct {
	mu   sync.Mutex
	sent []fakeEmail
}

type fakeEmail struct {
	TemplateType string
	Data         models.EmailData
}

func (f *fakeEmailSender) SendTemplatedEmail(templateType string, emailData models.EmailData, customTemplateID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fakeEmail{TemplateType: templateType, Data: emailData})
	return nil
}

func (f *fakeEmailSender) emails() []fakeEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeEmail, len(f.sent))
	copy(out, f.sent)
	return out
}

// testFixture bundles the in-memory database, the service under test and the
// recording fakes.
type testFixture struct {
	db       *gorm.DB
	svc      *QuotationService
	notifier *fakeNotifier
	emails   *fakeEmailSender
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.StockRequest{},
		&models.StockRequestItem{},
		&models.Quotation{},
		&models.QuotationItem{},
		&models.RetailerQuotation{},
		&models.RetailerQuotationItem{},
		&models.QuotationHistory{},
	)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	emails := &fakeEmailSender{}
	return &testFixture{
		db:       db,
		svc:      NewQuotationService(db, notifier, emails),
		notifier: notifier,
		emails:   emails,
	}
}

func (f *testFixture) createUser(t *testing.T, role, email string) models.User {
	t.Helper()
	user := models.User{
		Email:     email,
		Password:  "hashed",
		FirstName: "Test",
		LastName:  role,
		Role:      role,
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *testFixture) createRetailer(t *testing.T, email string) models.User {
	return f.createUser(t, models.RoleRetailer, email)
}

// createPublishedQuotation seeds a published quotation with one line per
// (itemID, quantity) pair, open for another 24 hours.
func (f *testFixture) createPublishedQuotation(t *testing.T, adminID int, items map[int]float64) *models.Quotation {
	t.Helper()
	req := models.CreateQuotationRequest{
		ValidityUntil: time.Now().Add(24 * time.Hour),
		Publish:       true,
	}
	for itemID, qty := range items {
		req.Items = append(req.Items, models.CreateQuotationItemRequest{
			ItemID:   itemID,
			Quantity: qty,
			Unit:     "pcs",
		})
	}
	quotation, err := f.svc.CreateAdHocQuotation(req, adminID)
	require.NoError(t, err)
	return quotation
}

// submitBid prices every line of the quotation at unitPrice for the full
// requested quantity.
func (f *testFixture) submitBid(t *testing.T, quotation *models.Quotation, retailerID int, unitPrice float64) *models.RetailerQuotation {
	t.Helper()
	req := models.SubmitRetailerQuotationRequest{}
	for _, item := range quotation.Items {
		req.Items = append(req.Items, models.SubmitRetailerQuotationItem{
			QuotationItemID: item.QuotationItemID,
			UnitPrice:       unitPrice,
			Quantity:        item.RequestedQuantity,
		})
	}
	response, err := f.svc.SubmitRetailerQuotation(quotation.QuotationID, retailerID, req)
	require.NoError(t, err)
	return response
}

// closeQuotation moves a published quotation to closed so it becomes awardable.
func (f *testFixture) closeQuotation(t *testing.T, quotationID, actorID int) {
	t.Helper()
	_, err := f.svc.UpdateQuotationStatus(quotationID, models.QuotationClosed, actorID)
	require.NoError(t, err)
}

// requireServiceError asserts err is a ServiceError carrying the wanted code.
func requireServiceError(t *testing.T, err error, code string) *ServiceError {
	t.Helper()
	require.Error(t, err)
	svcErr := AsServiceError(err)
	require.Equal(t, code, svcErr.Code, "unexpected error code: %v", err)
	return svcErr
}
