package models

import (
	"time"
)

// Stock request statuses.
type StockRequestStatus string

const (
	StockRequestPending  StockRequestStatus = "pending"
	StockRequestApproved StockRequestStatus = "approved"
	StockRequestQuoted   StockRequestStatus = "quoted"
	StockRequestRejected StockRequestStatus = "rejected"
)

// StockRequest represents the stock_requests table: one store's ask for stock.
type StockRequest struct {
	StockRequestID int                `gorm:"primaryKey;column:stock_request_id" json:"stock_request_id"`
	StoreID        int                `gorm:"column:store_id;index;not null" json:"store_id"`
	Status         StockRequestStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	RequestedBy    int                `gorm:"column:requested_by;not null" json:"requested_by"`
	Notes          string             `gorm:"column:notes" json:"notes"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt      time.Time          `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;not null" json:"updated_at"`

	Items []StockRequestItem `gorm:"foreignKey:StockRequestID;references:StockRequestID" json:"items,omitempty"`
}

// TableName specifies the table name for StockRequest
func (StockRequest) TableName() string {
	return "stock_requests"
}

// StockRequestItem represents the stock_request_items table. is_quoted gates a
// line against being folded into more than one quotation.
type StockRequestItem struct {
	ID             int                `gorm:"primaryKey;column:id" json:"id"`
	StockRequestID int                `gorm:"column:stock_request_id;index;not null" json:"stock_request_id"`
	ItemID         int                `gorm:"column:item_id;not null" json:"item_id"`
	Quantity       float64            `gorm:"column:quantity;not null" json:"quantity"`
	Unit           string             `gorm:"column:unit" json:"unit"`
	IsQuoted       bool               `gorm:"column:is_quoted;not null;default:false" json:"is_quoted"`
	Status         StockRequestStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	CreatedAt      time.Time          `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for StockRequestItem
func (StockRequestItem) TableName() string {
	return "stock_request_items"
}

// CreateStockRequestRequest is the body for a store raising a stock request.
type CreateStockRequestRequest struct {
	StoreID int                           `json:"store_id" binding:"required"`
	Notes   string                        `json:"notes"`
	Items   []CreateStockRequestItemInput `json:"items" binding:"required"`
}

// CreateStockRequestItemInput is one asked line in a stock request.
type CreateStockRequestItemInput struct {
	ItemID   int     `json:"item_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
	Unit     string  `json:"unit"`
}

// AggregateStockRequestsRequest is the body for folding request items into one quotation.
type AggregateStockRequestsRequest struct {
	RequestItemIDs []int     `json:"request_item_ids" binding:"required"`
	ValidityUntil  time.Time `json:"validity_until" binding:"required"`
	Notes          string    `json:"notes"`
}
