package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"procurehub/models"

	"gorm.io/gorm"
)

// quotationNumberPrefix formats the month part of a quotation number, e.g. "QT-202608-".
func quotationNumberPrefix(now time.Time) string {
	return fmt.Sprintf("QT-%s-", now.Format("200601"))
}

// NextQuotationNumber returns the next quotation number for the current month,
// format QT-YYYYMM-NNNN, monotonically increasing per month. Must be called
// inside the transaction that creates the quotation so two concurrent creates
// cannot both read the same maximum; the unique index on quotation_number is
// the backstop.
func NextQuotationNumber(tx *gorm.DB, now time.Time) (string, error) {
	prefix := quotationNumberPrefix(now)

	var last models.Quotation
	err := tx.Select("quotation_number").
		Where("quotation_number LIKE ?", prefix+"%").
		Order("quotation_number DESC").
		First(&last).Error

	sequence := 1
	if err == nil {
		parsed, perr := ParseQuotationSequence(last.QuotationNumber)
		if perr != nil {
			return "", perr
		}
		sequence = parsed + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	return fmt.Sprintf("%s%04d", prefix, sequence), nil
}

// ParseQuotationSequence extracts the NNNN part of a quotation number.
func ParseQuotationSequence(number string) (int, error) {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0, fmt.Errorf("malformed quotation number %q", number)
	}
	sequence, err := strconv.Atoi(number[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed quotation number %q: %v", number, err)
	}
	return sequence, nil
}
