package models

import (
	"time"
)

// Quotation statuses. A quotation is created as draft (ad-hoc) or published
// (stock-request aggregation) and walks the transition table below.
type QuotationStatus string

const (
	QuotationDraft     QuotationStatus = "draft"
	QuotationPublished QuotationStatus = "published"
	QuotationClosed    QuotationStatus = "closed"
	QuotationAwarded   QuotationStatus = "awarded"
	QuotationCancelled QuotationStatus = "cancelled"
)

// Quotation types.
const (
	QuotationTypeAdHoc        = "ad_hoc"
	QuotationTypeStockRequest = "stock_request"
)

// Retailer response statuses.
type RetailerQuotationStatus string

const (
	RetailerQuotationDraft     RetailerQuotationStatus = "draft"
	RetailerQuotationSubmitted RetailerQuotationStatus = "submitted"
	RetailerQuotationAwarded   RetailerQuotationStatus = "awarded"
	RetailerQuotationRejected  RetailerQuotationStatus = "rejected"
)

// quotationTransitions is the legal status adjacency. awarded and cancelled are
// terminal: they have no outgoing edges. A request for the current status is an
// idempotent no-op; anything else not listed here is a hard rejection.
var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationDraft:     {QuotationPublished, QuotationCancelled},
	QuotationPublished: {QuotationClosed, QuotationCancelled, QuotationAwarded},
	QuotationClosed:    {QuotationAwarded, QuotationPublished},
	QuotationAwarded:   {},
	QuotationCancelled: {},
}

// IsValidQuotationStatus reports whether s names a known status.
func IsValidQuotationStatus(s QuotationStatus) bool {
	_, ok := quotationTransitions[s]
	return ok
}

// CanTransitionQuotation reports whether from -> to is a legal transition.
// Same-state is allowed by policy (idempotent write).
func CanTransitionQuotation(from, to QuotationStatus) bool {
	if from == to {
		return true
	}
	for _, next := range quotationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalQuotationStatus reports whether s permits no further transitions.
func IsTerminalQuotationStatus(s QuotationStatus) bool {
	return len(quotationTransitions[s]) == 0 && IsValidQuotationStatus(s)
}

// Quotation represents the quotations table.
type Quotation struct {
	QuotationID     int             `gorm:"primaryKey;column:quotation_id" json:"quotation_id"`
	QuotationNumber string          `gorm:"column:quotation_number;uniqueIndex;size:20;not null" json:"quotation_number"`
	QuotationType   string          `gorm:"column:quotation_type;not null" json:"quotation_type"`
	Status          QuotationStatus `gorm:"column:status;not null;default:'draft'" json:"status"`
	ValidityFrom    time.Time       `gorm:"column:validity_from;not null" json:"validity_from"`
	ValidityUntil   time.Time       `gorm:"column:validity_until;not null" json:"validity_until"`
	StockRequestID  *int            `gorm:"column:stock_request_id" json:"stock_request_id,omitempty"`
	Notes           string          `gorm:"column:notes" json:"notes"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedBy       int             `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt       time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID;references:QuotationID" json:"items,omitempty"`
}

// TableName specifies the table name for Quotation
func (Quotation) TableName() string {
	return "quotations"
}

// IsExpired reports whether the bid window is over at the given instant.
func (q *Quotation) IsExpired(now time.Time) bool {
	return now.After(q.ValidityUntil)
}

// QuotationItem represents the quotation_items table. Rows are never updated
// after creation; award state lives on the retailer side.
type QuotationItem struct {
	QuotationItemID   int       `gorm:"primaryKey;column:quotation_item_id" json:"quotation_item_id"`
	QuotationID       int       `gorm:"column:quotation_id;index;not null" json:"quotation_id"`
	ItemID            int       `gorm:"column:item_id;not null" json:"item_id"`
	RequestedQuantity float64   `gorm:"column:requested_quantity;not null" json:"requested_quantity"`
	Unit              string    `gorm:"column:unit" json:"unit"`
	Specification     string    `gorm:"column:specification" json:"specification"`
	CreatedAt         time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for QuotationItem
func (QuotationItem) TableName() string {
	return "quotation_items"
}

// RetailerQuotation represents the retailer_quotations table. The unique index
// on (quotation_id, retailer_id) is the backstop for the one-response-per-retailer
// invariant under concurrent submissions.
type RetailerQuotation struct {
	RetailerQuotationID int                     `gorm:"primaryKey;column:retailer_quotation_id" json:"retailer_quotation_id"`
	QuotationID         int                     `gorm:"column:quotation_id;uniqueIndex:idx_retailer_quotation;not null" json:"quotation_id"`
	RetailerID          int                     `gorm:"column:retailer_id;uniqueIndex:idx_retailer_quotation;not null" json:"retailer_id"`
	Status              RetailerQuotationStatus `gorm:"column:status;not null;default:'draft'" json:"status"`
	SubmittedOn         *time.Time              `gorm:"column:submitted_on" json:"submitted_on,omitempty"`
	TotalAmount         float64                 `gorm:"column:total_amount;not null;default:0" json:"total_amount"`
	Notes               string                  `gorm:"column:notes" json:"notes"`
	CreatedAt           time.Time               `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;not null" json:"updated_at"`

	Items []RetailerQuotationItem `gorm:"foreignKey:RetailerQuotationID;references:RetailerQuotationID" json:"items,omitempty"`
}

// TableName specifies the table name for RetailerQuotation
func (RetailerQuotation) TableName() string {
	return "retailer_quotations"
}

// RetailerQuotationItem represents the retailer_quotation_items table. At most
// one row per quotation_item_id across the whole quotation may carry
// is_awarded = true; the award engine enforces this.
type RetailerQuotationItem struct {
	ID                  int        `gorm:"primaryKey;column:id" json:"id"`
	RetailerQuotationID int        `gorm:"column:retailer_quotation_id;index;not null" json:"retailer_quotation_id"`
	QuotationItemID     int        `gorm:"column:quotation_item_id;index;not null" json:"quotation_item_id"`
	UnitPrice           float64    `gorm:"column:unit_price;not null" json:"unit_price"`
	Quantity            float64    `gorm:"column:quantity;not null" json:"quantity"`
	TotalAmount         float64    `gorm:"column:total_amount;not null" json:"total_amount"`
	IsAwarded           bool       `gorm:"column:is_awarded;not null;default:false" json:"is_awarded"`
	AwardedOn           *time.Time `gorm:"column:awarded_on" json:"awarded_on,omitempty"`
	AwardedBy           *int       `gorm:"column:awarded_by" json:"awarded_by,omitempty"`
	Notes               string     `gorm:"column:notes" json:"notes"`
	CreatedAt           time.Time  `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for RetailerQuotationItem
func (RetailerQuotationItem) TableName() string {
	return "retailer_quotation_items"
}

// QuotationHistory represents the quotation_history audit table. One row per
// status transition or award, capturing old/new value, actor and timestamp.
type QuotationHistory struct {
	ID          int       `gorm:"primaryKey;column:id" json:"id"`
	QuotationID int       `gorm:"column:quotation_id;index;not null" json:"quotation_id"`
	Action      string    `gorm:"column:action;not null" json:"action"`
	OldValue    string    `gorm:"column:old_value" json:"old_value"`
	NewValue    string    `gorm:"column:new_value" json:"new_value"`
	CreatedBy   int       `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for QuotationHistory
func (QuotationHistory) TableName() string {
	return "quotation_history"
}

// CreateQuotationRequest is the body for ad-hoc quotation creation.
type CreateQuotationRequest struct {
	ValidityFrom  time.Time                    `json:"validity_from"`
	ValidityUntil time.Time                    `json:"validity_until" binding:"required"`
	Publish       bool                         `json:"publish"`
	Notes         string                       `json:"notes"`
	Items         []CreateQuotationItemRequest `json:"items" binding:"required"`
}

// CreateQuotationItemRequest is one requested line in an ad-hoc quotation.
type CreateQuotationItemRequest struct {
	ItemID        int     `json:"item_id" binding:"required"`
	Quantity      float64 `json:"quantity" binding:"required"`
	Unit          string  `json:"unit"`
	Specification string  `json:"specification"`
}

// SubmitRetailerQuotationRequest is the body for a retailer bid submission.
type SubmitRetailerQuotationRequest struct {
	Items []SubmitRetailerQuotationItem `json:"items" binding:"required"`
	Notes string                        `json:"notes"`
}

// SubmitRetailerQuotationItem is one priced line in a retailer bid.
type SubmitRetailerQuotationItem struct {
	QuotationItemID int     `json:"quotation_item_id" binding:"required"`
	UnitPrice       float64 `json:"unit_price" binding:"required"`
	Quantity        float64 `json:"quantity" binding:"required"`
	Notes           string  `json:"notes"`
}

// UpdateQuotationStatusRequest is the body for a status transition.
type UpdateQuotationStatusRequest struct {
	Status QuotationStatus `json:"status" binding:"required"`
}

// AwardSelection names one winning response line for one quotation line.
type AwardSelection struct {
	QuotationItemID       int `json:"quotation_item_id" binding:"required"`
	RetailerQuotationItem int `json:"retailer_quotation_item_id" binding:"required"`
}

// AwardQuotationRequest is the body for the award commit.
type AwardQuotationRequest struct {
	Awards []AwardSelection `json:"awards" binding:"required"`
}

// AwardResult summarizes a committed award batch.
type AwardResult struct {
	QuotationID         int     `json:"quotation_id"`
	QuotationNumber     string  `json:"quotation_number"`
	AwardedCount        int     `json:"awarded_count"`
	TotalValue          float64 `json:"total_value"`
	UniqueRetailerCount int     `json:"unique_retailer_count"`
}

// RetailerBid is one retailer's price for a quotation line in the comparison view.
type RetailerBid struct {
	RetailerQuotationItemID int        `json:"retailer_quotation_item_id"`
	RetailerQuotationID     int        `json:"retailer_quotation_id"`
	RetailerID              int        `json:"retailer_id"`
	RetailerName            string     `json:"retailer_name,omitempty"`
	UnitPrice               float64    `json:"unit_price"`
	Quantity                float64    `json:"quantity"`
	TotalAmount             float64    `json:"total_amount"`
	SubmittedOn             *time.Time `json:"submitted_on,omitempty"`
	IsAwarded               bool       `json:"is_awarded"`
}

// ItemComparison is the ranked bid list for one quotation line.
type ItemComparison struct {
	QuotationItemID   int           `json:"quotation_item_id"`
	ItemID            int           `json:"item_id"`
	RequestedQuantity float64       `json:"requested_quantity"`
	Unit              string        `json:"unit"`
	Specification     string        `json:"specification"`
	RetailerPrices    []RetailerBid `json:"retailer_prices"`
	LowestPrice       *RetailerBid  `json:"lowest_price,omitempty"`
}

// ComparisonData is the full award comparison view for a quotation.
type ComparisonData struct {
	Quotation     Quotation        `json:"quotation"`
	Items         []ItemComparison `json:"items"`
	ItemsWithBids int              `json:"items_with_bids"`
	TotalItems    int              `json:"total_items"`
	ResponseCount int              `json:"response_count"`
}

// AwardedLine pairs a quotation line with its winning bid, for the award summary.
type AwardedLine struct {
	QuotationItemID int     `json:"quotation_item_id"`
	ItemID          int     `json:"item_id"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	RetailerID      int     `json:"retailer_id"`
	RetailerName    string  `json:"retailer_name"`
	UnitPrice       float64 `json:"unit_price"`
	LineTotal       float64 `json:"line_total"`
}

// AwardSummary is the finalized outcome of an awarded quotation.
type AwardSummary struct {
	Quotation  Quotation     `json:"quotation"`
	Lines      []AwardedLine `json:"lines"`
	TotalValue float64       `json:"total_value"`
}
