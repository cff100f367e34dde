package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Email template types used by the quotation lifecycle.
const (
	TemplateQuotationPublished = "quotation_published"
	TemplateQuotationAwarded   = "quotation_awarded"
	TemplateQuotationLost      = "quotation_lost"
)

// EmailTemplate represents the email_templates table
type EmailTemplate struct {
	ID           int             `json:"id" example:"1"`
	Name         string          `json:"name" example:"New Quotation Notice"`
	Subject      string          `json:"subject" example:"New quotation {{quotation_number}} is open for bids"`
	Body         string          `json:"body" example:"Hello {{user_name}}"`
	TemplateType string          `json:"template_type" example:"quotation_published"`
	IsDefault    bool            `json:"is_default" example:"false"`
	IsActive     bool            `json:"is_active" example:"true"`
	Variables    json.RawMessage `json:"variables"`
	CC           []string        `json:"cc,omitempty"`
	BCC          []string        `json:"bcc,omitempty"`
	CreatedBy    *int            `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt    time.Time       `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	UpdatedBy    *int            `json:"updated_by"`
}

// EmailData carries the variables substituted into quotation email templates.
type EmailData struct {
	Email           string `json:"email"`
	UserName        string `json:"user_name"`
	QuotationNumber string `json:"quotation_number"`
	ValidityUntil   string `json:"validity_until"`
	ItemCount       string `json:"item_count"`
	TotalAmount     string `json:"total_amount"`
	AwardedItems    string `json:"awarded_items"`
	LoginURL        string `json:"login_url"`
	SupportEmail    string `json:"support_email"`
}

// GetDefaultTemplate fetches the active default template for a type.
func GetDefaultTemplate(db *sql.DB, templateType string) (*EmailTemplate, error) {
	var template EmailTemplate
	query := `
		SELECT id, name, subject, body, template_type, is_default, is_active,
		       variables, cc, bcc, created_by, created_at, updated_at, updated_by
		FROM email_templates
		WHERE template_type = $1 AND is_default = true AND is_active = true
		LIMIT 1`

	var cc, bcc pq.StringArray
	var variables sql.NullString

	err := db.QueryRow(query, templateType).Scan(
		&template.ID, &template.Name, &template.Subject, &template.Body,
		&template.TemplateType, &template.IsDefault, &template.IsActive,
		&variables, &cc, &bcc, &template.CreatedBy, &template.CreatedAt,
		&template.UpdatedAt, &template.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	template.CC = []string(cc)
	template.BCC = []string(bcc)
	if variables.Valid {
		template.Variables = json.RawMessage(variables.String)
	}

	return &template, nil
}

// GetTemplateByID fetches one active template by id.
func GetTemplateByID(db *sql.DB, id int) (*EmailTemplate, error) {
	var template EmailTemplate
	query := `
		SELECT id, name, subject, body, template_type, is_default, is_active,
		       variables, cc, bcc, created_by, created_at, updated_at, updated_by
		FROM email_templates
		WHERE id = $1 AND is_active = true`

	var cc, bcc pq.StringArray
	var variables sql.NullString

	err := db.QueryRow(query, id).Scan(
		&template.ID, &template.Name, &template.Subject, &template.Body,
		&template.TemplateType, &template.IsDefault, &template.IsActive,
		&variables, &cc, &bcc, &template.CreatedBy, &template.CreatedAt,
		&template.UpdatedAt, &template.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	template.CC = []string(cc)
	template.BCC = []string(bcc)
	if variables.Valid {
		template.Variables = json.RawMessage(variables.String)
	}

	return &template, nil
}

// EmailTemplateRequest is the create/update body for an email template.
type EmailTemplateRequest struct {
	Name         string          `json:"name" binding:"required"`
	Subject      string          `json:"subject" binding:"required"`
	Body         string          `json:"body" binding:"required"`
	TemplateType string          `json:"template_type" binding:"required"`
	IsDefault    bool            `json:"is_default"`
	IsActive     bool            `json:"is_active"`
	Variables    json.RawMessage `json:"variables"`
	CC           pq.StringArray  `json:"cc"`
	BCC          pq.StringArray  `json:"bcc"`
}

// GetAllTemplates lists every active template.
func GetAllTemplates(db *sql.DB) ([]EmailTemplate, error) {
	query := `
		SELECT id, name, subject, body, template_type, is_default, is_active,
		       variables, cc, bcc, created_by, created_at, updated_at, updated_by
		FROM email_templates
		WHERE is_active = true
		ORDER BY template_type, name`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []EmailTemplate
	for rows.Next() {
		var template EmailTemplate
		var cc, bcc pq.StringArray
		var variables sql.NullString

		if err := rows.Scan(
			&template.ID, &template.Name, &template.Subject, &template.Body,
			&template.TemplateType, &template.IsDefault, &template.IsActive,
			&variables, &cc, &bcc, &template.CreatedBy, &template.CreatedAt,
			&template.UpdatedAt, &template.UpdatedBy,
		); err != nil {
			return nil, err
		}

		template.CC = []string(cc)
		template.BCC = []string(bcc)
		if variables.Valid {
			template.Variables = json.RawMessage(variables.String)
		}
		templates = append(templates, template)
	}
	return templates, rows.Err()
}
