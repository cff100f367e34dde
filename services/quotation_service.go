package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"procurehub/models"
	"procurehub/repository"

	"gorm.io/gorm"
)

// Notifier is the notification dispatcher capability injected into the core.
// Implementations must be fire-and-forget: failures are logged, never returned,
// so a committed quotation transaction is never undone by a notification error.
type Notifier interface {
	NotifyUser(userID int, title, message string, data map[string]string)
	NotifyUsers(userIDs []int, title, message string, data map[string]string)
}

// EmailSender sends a templated email. Same non-fatal contract as Notifier.
type EmailSender interface {
	SendTemplatedEmail(templateType string, emailData models.EmailData, customTemplateID *int) error
}

// QuotationService owns the quotation lifecycle: creation, the status state
// machine, stock-request aggregation, retailer response collection, price
// comparison and the award step. All multi-row writes run inside one
// gorm transaction.
type QuotationService struct {
	db       *gorm.DB
	notifier Notifier
	emails   EmailSender
}

// NewQuotationService creates the quotation service. notifier and emails may be
// nil; side effects are skipped in that case.
func NewQuotationService(db *gorm.DB, notifier Notifier, emails EmailSender) *QuotationService {
	return &QuotationService{db: db, notifier: notifier, emails: emails}
}

// CreateAdHocQuotation creates a quotation whose lines are supplied directly by
// the admin instead of being aggregated from stock requests.
func (s *QuotationService) CreateAdHocQuotation(req models.CreateQuotationRequest, createdBy int) (*models.Quotation, error) {
	if len(req.Items) == 0 {
		return nil, validationError("quotation must contain at least one item", nil)
	}
	now := time.Now()
	if !req.ValidityUntil.After(now) {
		return nil, validationError("validity_until must be in the future", nil)
	}
	validityFrom := req.ValidityFrom
	if validityFrom.IsZero() {
		validityFrom = now
	}

	status := models.QuotationDraft
	if req.Publish {
		status = models.QuotationPublished
	}

	var quotation models.Quotation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		number, err := repository.NextQuotationNumber(tx, now)
		if err != nil {
			return internalError(err)
		}

		quotation = models.Quotation{
			QuotationNumber: number,
			QuotationType:   models.QuotationTypeAdHoc,
			Status:          status,
			ValidityFrom:    validityFrom,
			ValidityUntil:   req.ValidityUntil,
			Notes:           req.Notes,
			IsActive:        true,
			CreatedBy:       createdBy,
		}
		if err := tx.Create(&quotation).Error; err != nil {
			return internalError(err)
		}

		items := make([]models.QuotationItem, 0, len(req.Items))
		for _, in := range req.Items {
			if in.Quantity <= 0 {
				return validationError("item quantity must be positive", map[string]int{"item_id": in.ItemID})
			}
			items = append(items, models.QuotationItem{
				QuotationID:       quotation.QuotationID,
				ItemID:            in.ItemID,
				RequestedQuantity: in.Quantity,
				Unit:              in.Unit,
				Specification:     in.Specification,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return internalError(err)
		}
		quotation.Items = items

		return s.appendHistory(tx, quotation.QuotationID, "created", "", string(status), createdBy)
	})
	if err != nil {
		return nil, err
	}

	if status == models.QuotationPublished {
		s.notifyQuotationPublished(&quotation)
	}
	return &quotation, nil
}

// GetQuotation fetches an active quotation with its lines.
func (s *QuotationService) GetQuotation(quotationID int) (*models.Quotation, error) {
	var quotation models.Quotation
	err := s.db.Preload("Items").
		Where("quotation_id = ? AND is_active = ?", quotationID, true).
		First(&quotation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("quotation not found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return &quotation, nil
}

// ListQuotations returns active quotations, newest first, optionally filtered
// by status.
func (s *QuotationService) ListQuotations(status models.QuotationStatus) ([]models.Quotation, error) {
	query := s.db.Preload("Items").Where("is_active = ?", true)
	if status != "" {
		if !models.IsValidQuotationStatus(status) {
			return nil, validationError("unknown quotation status", string(status))
		}
		query = query.Where("status = ?", status)
	}
	var quotations []models.Quotation
	if err := query.Order("created_at DESC").Find(&quotations).Error; err != nil {
		return nil, internalError(err)
	}
	return quotations, nil
}

// ListOpenQuotations returns quotations a retailer can still bid on:
// published, active and inside the validity window.
func (s *QuotationService) ListOpenQuotations() ([]models.Quotation, error) {
	var quotations []models.Quotation
	err := s.db.Preload("Items").
		Where("is_active = ? AND status = ? AND validity_until > ?", true, models.QuotationPublished, time.Now()).
		Order("validity_until ASC").
		Find(&quotations).Error
	if err != nil {
		return nil, internalError(err)
	}
	return quotations, nil
}

// UpdateQuotationStatus transitions a quotation through the state machine.
// Transitions outside the adjacency table are rejected hard; a request for the
// current status is an idempotent no-op. Every real transition appends a
// history record.
func (s *QuotationService) UpdateQuotationStatus(quotationID int, newStatus models.QuotationStatus, actorID int) (*models.Quotation, error) {
	if !models.IsValidQuotationStatus(newStatus) {
		return nil, validationError("unknown quotation status", string(newStatus))
	}

	var quotation models.Quotation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quotation_id = ? AND is_active = ?", quotationID, true).First(&quotation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("quotation not found")
			}
			return internalError(err)
		}

		if quotation.Status == newStatus {
			// Idempotent write, nothing to record.
			return nil
		}
		if models.IsTerminalQuotationStatus(quotation.Status) {
			return stateConflictError(
				fmt.Sprintf("quotation is %s and can no longer change status", quotation.Status), nil)
		}
		if !models.CanTransitionQuotation(quotation.Status, newStatus) {
			return invalidTransitionError(
				fmt.Sprintf("illegal status transition %s -> %s", quotation.Status, newStatus))
		}

		oldStatus := quotation.Status
		if err := tx.Model(&models.Quotation{}).
			Where("quotation_id = ?", quotationID).
			Update("status", newStatus).Error; err != nil {
			return internalError(err)
		}
		quotation.Status = newStatus

		return s.appendHistory(tx, quotationID, "status_changed", string(oldStatus), string(newStatus), actorID)
	})
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// SoftDeleteQuotation tombstones a quotation. Every read path filters on
// is_active, so a deleted quotation disappears from all default queries.
func (s *QuotationService) SoftDeleteQuotation(quotationID int, actorID int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var quotation models.Quotation
		if err := tx.Where("quotation_id = ? AND is_active = ?", quotationID, true).First(&quotation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("quotation not found")
			}
			return internalError(err)
		}
		if quotation.Status == models.QuotationAwarded {
			return stateConflictError("awarded quotations cannot be deleted", nil)
		}
		if err := tx.Model(&models.Quotation{}).
			Where("quotation_id = ?", quotationID).
			Update("is_active", false).Error; err != nil {
			return internalError(err)
		}
		return s.appendHistory(tx, quotationID, "deleted", "true", "false", actorID)
	})
}

// GetQuotationHistory returns the audit trail for a quotation, oldest first.
func (s *QuotationService) GetQuotationHistory(quotationID int) ([]models.QuotationHistory, error) {
	if _, err := s.GetQuotation(quotationID); err != nil {
		return nil, err
	}
	var history []models.QuotationHistory
	if err := s.db.Where("quotation_id = ?", quotationID).Order("created_at ASC, id ASC").Find(&history).Error; err != nil {
		return nil, internalError(err)
	}
	return history, nil
}

// AutoCloseExpired moves published quotations whose validity window has passed
// to closed. Run from the daily cron; the actor recorded is the system user 0.
func (s *QuotationService) AutoCloseExpired(now time.Time) (int, error) {
	var expired []models.Quotation
	err := s.db.Where("is_active = ? AND status = ? AND validity_until < ?", true, models.QuotationPublished, now).
		Find(&expired).Error
	if err != nil {
		return 0, internalError(err)
	}

	closed := 0
	for _, q := range expired {
		if _, err := s.UpdateQuotationStatus(q.QuotationID, models.QuotationClosed, 0); err != nil {
			log.Printf("auto-close: quotation %s: %v", q.QuotationNumber, err)
			continue
		}
		closed++
	}
	return closed, nil
}

// appendHistory writes one audit row inside the caller's transaction.
func (s *QuotationService) appendHistory(tx *gorm.DB, quotationID int, action, oldValue, newValue string, actorID int) error {
	record := models.QuotationHistory{
		QuotationID: quotationID,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedBy:   actorID,
	}
	if err := tx.Create(&record).Error; err != nil {
		return internalError(err)
	}
	return nil
}

// notifyQuotationPublished tells every active retailer a new quotation is open.
// Best effort after commit: failures are logged only.
func (s *QuotationService) notifyQuotationPublished(quotation *models.Quotation) {
	retailers, err := s.activeRetailers()
	if err != nil {
		log.Printf("publish notification: fetching retailers failed: %v", err)
		return
	}

	title := "New quotation open for bids"
	message := fmt.Sprintf("Quotation %s is open for responses until %s.",
		quotation.QuotationNumber, quotation.ValidityUntil.Format("02 Jan 2006 15:04"))
	data := map[string]string{
		"action":           "quotation_published",
		"quotation_id":     fmt.Sprintf("%d", quotation.QuotationID),
		"quotation_number": quotation.QuotationNumber,
	}

	if s.notifier != nil {
		ids := make([]int, 0, len(retailers))
		for _, r := range retailers {
			ids = append(ids, r.ID)
		}
		s.notifier.NotifyUsers(ids, title, message, data)
	}

	if s.emails != nil {
		for _, r := range retailers {
			emailData := models.EmailData{
				Email:           r.Email,
				UserName:        r.FirstName + " " + r.LastName,
				QuotationNumber: quotation.QuotationNumber,
				ValidityUntil:   quotation.ValidityUntil.Format("02 Jan 2006 15:04"),
				ItemCount:       fmt.Sprintf("%d", len(quotation.Items)),
			}
			if err := s.emails.SendTemplatedEmail(models.TemplateQuotationPublished, emailData, nil); err != nil {
				log.Printf("publish notification: email to %s failed: %v", r.Email, err)
			}
		}
	}
}

// activeRetailers lists non-suspended retailer accounts.
func (s *QuotationService) activeRetailers() ([]models.User, error) {
	var retailers []models.User
	err := s.db.Where("role = ? AND is_active = ? AND suspended = ?", models.RoleRetailer, true, false).
		Find(&retailers).Error
	return retailers, err
}
