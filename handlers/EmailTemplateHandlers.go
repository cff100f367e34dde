package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"procurehub/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/html"
)

var validTemplateTypes = []string{
	models.TemplateQuotationPublished,
	models.TemplateQuotationAwarded,
	models.TemplateQuotationLost,
}

func isValidTemplateType(t string) bool {
	for _, v := range validTemplateTypes {
		if t == v {
			return true
		}
	}
	return false
}

// CreateEmailTemplate creates a new email template
// @Summary Create email template
// @Description Create a new email template for quotation notifications. Admin only.
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param template body models.EmailTemplateRequest true "Email template data"
// @Success 201 {object} models.EmailTemplate
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/email-templates [post]
func CreateEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleAdmin)
		if !ok {
			return
		}

		var request models.EmailTemplateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if !isValidTemplateType(request.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": validTemplateTypes})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		// Only one default per type.
		if request.IsDefault {
			_, err = tx.Exec("UPDATE email_templates SET is_default = false WHERE template_type = $1", request.TemplateType)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		sanitizedBody := sanitizeHTML(request.Body)

		variablesJSON, err := json.Marshal(request.Variables)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process variables"})
			return
		}

		var templateID int
		query := `
			INSERT INTO email_templates (name, subject, body, template_type, is_default, is_active, variables, cc, bcc, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`

		err = tx.QueryRow(query,
			request.Name, request.Subject, sanitizedBody, request.TemplateType,
			request.IsDefault, request.IsActive, variablesJSON, request.CC, request.BCC, user.ID,
		).Scan(&templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template", "details": err.Error()})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		template, err := models.GetTemplateByID(db, templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Template created but failed to retrieve"})
			return
		}

		c.JSON(http.StatusCreated, template)

		logActivity(db, c, "Email Template", "Create",
			fmt.Sprintf("Email template '%s' created", request.Name))
	}
}

// GetEmailTemplates retrieves all email templates
// @Summary Get all email templates
// @Description Retrieve all active email templates. Admin only.
// @Tags Email Templates
// @Produce json
// @Success 200 {array} models.EmailTemplate
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/email-templates [get]
func GetEmailTemplates(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		templates, err := models.GetAllTemplates(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve templates", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, templates)
	}
}

// GetEmailTemplateByID retrieves a specific email template
// @Summary Get email template by ID
// @Tags Email Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} models.EmailTemplate
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [get]
func GetEmailTemplateByID(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		template, err := models.GetTemplateByID(db, id)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve template", "details": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, template)
	}
}

// UpdateEmailTemplate updates an existing email template
// @Summary Update email template
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param template body models.EmailTemplateRequest true "Updated email template data"
// @Success 200 {object} models.EmailTemplate
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [put]
func UpdateEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleAdmin)
		if !ok {
			return
		}

		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var request models.EmailTemplateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if !isValidTemplateType(request.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": validTemplateTypes})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		if request.IsDefault {
			_, err = tx.Exec("UPDATE email_templates SET is_default = false WHERE template_type = $1 AND id != $2",
				request.TemplateType, id)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		sanitizedBody := sanitizeHTML(request.Body)
		variablesJSON, err := json.Marshal(request.Variables)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process variables"})
			return
		}

		result, err := tx.Exec(`
			UPDATE email_templates
			SET name = $1, subject = $2, body = $3, template_type = $4, is_default = $5,
			    is_active = $6, variables = $7, cc = $8, bcc = $9, updated_by = $10, updated_at = $11
			WHERE id = $12`,
			request.Name, request.Subject, sanitizedBody, request.TemplateType,
			request.IsDefault, request.IsActive, variablesJSON, request.CC, request.BCC,
			user.ID, time.Now(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template", "details": err.Error()})
			return
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		template, err := models.GetTemplateByID(db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Template updated but failed to retrieve"})
			return
		}

		c.JSON(http.StatusOK, template)

		logActivity(db, c, "Email Template", "Update",
			fmt.Sprintf("Email template '%s' updated", request.Name))
	}
}

// DeleteEmailTemplate soft deletes an email template
// @Summary Delete email template
// @Tags Email Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [delete]
func DeleteEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireRole(db, c, models.RoleAdmin)
		if !ok {
			return
		}

		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		result, err := db.Exec(`
			UPDATE email_templates SET is_active = false, updated_by = $1, updated_at = $2 WHERE id = $3`,
			user.ID, time.Now(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template", "details": err.Error()})
			return
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})

		logActivity(db, c, "Email Template", "Delete",
			fmt.Sprintf("Email template %d deleted", id))
	}
}

// sanitizeHTML cleans HTML content coming from the frontend text editor.
func sanitizeHTML(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input
	}

	allowedTags := map[string]bool{
		"p": true, "br": true, "strong": true, "b": true, "em": true, "i": true,
		"u": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"ul": true, "ol": true, "li": true, "div": true, "span": true, "a": true,
		"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
		"blockquote": true, "code": true, "pre": true, "hr": true,
	}

	allowedAttributes := map[string]map[string]bool{
		"a":     {"href": true, "target": true, "title": true},
		"table": {"border": true, "cellpadding": true, "cellspacing": true, "width": true},
		"td":    {"colspan": true, "rowspan": true, "width": true, "height": true},
		"th":    {"colspan": true, "rowspan": true, "width": true, "height": true},
	}

	var newDoc html.Node
	newDoc.Type = html.DocumentNode

	var processNode func(*html.Node, *html.Node)
	processNode = func(src *html.Node, dst *html.Node) {
		for child := src.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case html.TextNode:
				newText := &html.Node{
					Type: html.TextNode,
					Data: child.Data,
				}
				dst.AppendChild(newText)
			case html.ElementNode:
				if allowedTags[child.Data] {
					newElement := &html.Node{
						Type: html.ElementNode,
						Data: child.Data,
					}
					for _, attr := range child.Attr {
						if allowedAttributes[child.Data] != nil && allowedAttributes[child.Data][attr.Key] {
							newElement.Attr = append(newElement.Attr, attr)
						}
					}
					dst.AppendChild(newElement)
					processNode(child, newElement)
				} else {
					// Disallowed tags keep their content only.
					processNode(child, dst)
				}
			}
		}
	}

	processNode(doc, &newDoc)

	var buf strings.Builder
	if err := html.Render(&buf, &newDoc); err != nil {
		return input
	}

	result := buf.String()

	// Strip the <html><head></head><body> wrapper html.Render adds.
	if strings.HasPrefix(result, "<html>") {
		start := strings.Index(result, "<body>")
		end := strings.Index(result, "</body>")
		if start != -1 && end != -1 {
			result = result[start+6 : end]
		}
	}

	return strings.TrimSpace(result)
}
