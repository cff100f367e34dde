package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionQuotation(t *testing.T) {
	allowed := []struct{ from, to QuotationStatus }{
		{QuotationDraft, QuotationPublished},
		{QuotationDraft, QuotationCancelled},
		{QuotationPublished, QuotationClosed},
		{QuotationPublished, QuotationCancelled},
		{QuotationPublished, QuotationAwarded},
		{QuotationClosed, QuotationAwarded},
		{QuotationClosed, QuotationPublished},
		{QuotationDraft, QuotationDraft},
		{QuotationAwarded, QuotationAwarded},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransitionQuotation(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}

	denied := []struct{ from, to QuotationStatus }{
		{QuotationDraft, QuotationClosed},
		{QuotationDraft, QuotationAwarded},
		{QuotationClosed, QuotationCancelled},
		{QuotationAwarded, QuotationPublished},
		{QuotationAwarded, QuotationCancelled},
		{QuotationCancelled, QuotationPublished},
		{QuotationCancelled, QuotationDraft},
	}
	for _, tr := range denied {
		assert.False(t, CanTransitionQuotation(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminalQuotationStatus(QuotationAwarded))
	assert.True(t, IsTerminalQuotationStatus(QuotationCancelled))
	assert.False(t, IsTerminalQuotationStatus(QuotationDraft))
	assert.False(t, IsTerminalQuotationStatus(QuotationPublished))
	assert.False(t, IsTerminalQuotationStatus(QuotationClosed))
	assert.False(t, IsTerminalQuotationStatus("bogus"))
}

func TestIsValidQuotationStatus(t *testing.T) {
	for _, s := range []QuotationStatus{
		QuotationDraft, QuotationPublished, QuotationClosed, QuotationAwarded, QuotationCancelled,
	} {
		assert.True(t, IsValidQuotationStatus(s))
	}
	assert.False(t, IsValidQuotationStatus(""))
	assert.False(t, IsValidQuotationStatus("archived"))
}

func TestQuotationIsExpired(t *testing.T) {
	now := time.Now()
	q := Quotation{ValidityUntil: now.Add(time.Hour)}
	assert.False(t, q.IsExpired(now))
	assert.True(t, q.IsExpired(now.Add(2*time.Hour)))
	assert.False(t, q.IsExpired(q.ValidityUntil))
}
