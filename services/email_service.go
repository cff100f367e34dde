package services

import (
	"database/sql"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"procurehub/models"

	"golang.org/x/net/html"
)

// EmailService sends templated quotation emails over SMTP. Templates live in
// the email_templates table and are selected by type; bodies are authored as
// HTML and converted to plain text before sending.
type EmailService struct {
	db       *sql.DB
	host     string
	port     string
	username string
	password string
	from     string
}

// NewEmailService reads SMTP settings from the environment.
func NewEmailService(db *sql.DB) *EmailService {
	return &EmailService{
		db:       db,
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

// SendTemplatedEmail sends an email using a template with variable substitution.
// If customTemplateID is nil the default template for the type is used.
func (es *EmailService) SendTemplatedEmail(templateType string, emailData models.EmailData, customTemplateID *int) error {
	var emailTemplate *models.EmailTemplate
	var err error

	if customTemplateID != nil {
		emailTemplate, err = models.GetTemplateByID(es.db, *customTemplateID)
		if err != nil {
			return fmt.Errorf("failed to get custom template (ID: %d): %v", *customTemplateID, err)
		}
		if emailTemplate.TemplateType != templateType {
			return fmt.Errorf("custom template type mismatch: expected %s, got %s", templateType, emailTemplate.TemplateType)
		}
	} else {
		emailTemplate, err = models.GetDefaultTemplate(es.db, templateType)
		if err != nil {
			return fmt.Errorf("failed to get default template for type '%s': %v", templateType, err)
		}
	}

	subject := es.processTemplate(emailTemplate.Subject, emailData)
	body := es.processTemplate(emailTemplate.Body, emailData)

	return es.sendEmail(emailData.Email, subject, convertHTMLToText(body), emailTemplate.CC, emailTemplate.BCC)
}

// processTemplate substitutes {{variable}} placeholders in a template string.
func (es *EmailService) processTemplate(templateStr string, data models.EmailData) string {
	variables := map[string]string{
		"email":            data.Email,
		"user_name":        data.UserName,
		"quotation_number": data.QuotationNumber,
		"validity_until":   data.ValidityUntil,
		"item_count":       data.ItemCount,
		"total_amount":     data.TotalAmount,
		"awarded_items":    data.AwardedItems,
		"login_url":        data.LoginURL,
		"support_email":    data.SupportEmail,
	}

	result := templateStr
	for key, value := range variables {
		result = strings.ReplaceAll(result, fmt.Sprintf("{{%s}}", key), value)
	}
	return result
}

// sendEmail sends an email using SMTP with optional CC and BCC.
func (es *EmailService) sendEmail(to, subject, body string, cc, bcc []string) error {
	auth := smtp.PlainAuth("", es.username, es.password, es.host)

	toList := []string{to}
	toList = append(toList, cc...)
	toList = append(toList, bcc...)

	headers := []string{
		"From: " + es.from,
		"To: " + to,
	}
	if len(cc) > 0 {
		headers = append(headers, "Cc: "+strings.Join(cc, ", "))
	}
	headers = append(headers,
		"Subject: "+subject,
		"",
		body,
	)
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(es.host+":"+es.port, auth, es.from, toList, msg)
}

// convertHTMLToText flattens an HTML template body into plain text.
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "table", "tr":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "td", "th":
				text.WriteString(" | ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}
	extractText(doc)

	result := strings.ReplaceAll(text.String(), "\n\n\n", "\n\n")
	return strings.TrimSpace(result)
}
