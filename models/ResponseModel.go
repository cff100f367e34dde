package models

// ErrorResponse is used in @Failure for error responses
type ErrorResponse struct {
	Error   string `json:"error" example:"Quotation not found"`
	Details string `json:"details,omitempty" example:"sql: no rows in result set"`
}

// SuccessResponse is used in @Success for generic success
type SuccessResponse struct {
	Message string `json:"message" example:"Operation completed successfully"`
}

// MessageResponse is generic response for APIs that return only {"message": "..."}
type MessageResponse struct {
	Message string `json:"message" example:"Quotation cancelled successfully"`
}

// ValidateSessionResponse is returned by the validate-session endpoint.
type ValidateSessionResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// QuotationListResponse is the envelope returned by the quotation list endpoints.
type QuotationListResponse struct {
	Quotations []Quotation `json:"quotations"`
	Total      int         `json:"total" example:"2"`
}

// RetailerQuotationResponse is a retailer's response with its lines.
type RetailerQuotationResponse struct {
	RetailerQuotation
	QuotationNumber string `json:"quotation_number"`
}
