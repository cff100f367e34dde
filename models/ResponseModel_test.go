package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotationListResponseShape(t *testing.T) {
	envelope := QuotationListResponse{
		Quotations: []Quotation{
			{QuotationID: 1, QuotationNumber: "QT-202608-0001", Status: QuotationPublished},
			{QuotationID: 2, QuotationNumber: "QT-202608-0002", Status: QuotationDraft},
		},
		Total: 2,
	}

	raw, err := json.Marshal(envelope)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "quotations")
	assert.Contains(t, decoded, "total")

	var list []Quotation
	require.NoError(t, json.Unmarshal(decoded["quotations"], &list))
	assert.Len(t, list, 2)
	assert.Equal(t, "QT-202608-0001", list[0].QuotationNumber)
}

func TestRetailerQuotationResponseShape(t *testing.T) {
	response := RetailerQuotationResponse{
		RetailerQuotation: RetailerQuotation{
			RetailerQuotationID: 7,
			QuotationID:         3,
			RetailerID:          11,
			Status:              RetailerQuotationSubmitted,
			TotalAmount:         120.5,
		},
		QuotationNumber: "QT-202608-0003",
	}

	raw, err := json.Marshal(response)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	// The embedded response flattens; the number rides alongside it.
	assert.Equal(t, "QT-202608-0003", decoded["quotation_number"])
	assert.Equal(t, float64(7), decoded["retailer_quotation_id"])
	assert.Equal(t, string(RetailerQuotationSubmitted), decoded["status"])
}
