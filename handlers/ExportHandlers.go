package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"procurehub/models"
	"procurehub/services"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// displayStatus renders a status constant for printed output, e.g. "Awarded".
func displayStatus(status models.QuotationStatus) string {
	return cases.Title(language.English).String(string(status))
}

// ExportComparisonExcelHandler exports the award comparison as an Excel sheet.
// @Summary Export comparison to Excel
// @Description Exports per-line retailer bids, cheapest first, as an xlsx download. Admin only.
// @Tags Exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Quotation ID"
// @Success 200 {file} file "Excel file"
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotations/{id}/comparison/export [get]
func ExportComparisonExcelHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		comparison, err := svc.GetAwardComparisonData(quotationID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		f := excelize.NewFile()
		sheet := "Comparison"
		f.SetSheetName("Sheet1", sheet)

		headerStyle, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		})
		lowestStyle, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
		})

		f.SetCellValue(sheet, "A1", "Quotation")
		f.SetCellValue(sheet, "B1", comparison.Quotation.QuotationNumber)
		f.SetCellValue(sheet, "A2", "Status")
		f.SetCellValue(sheet, "B2", displayStatus(comparison.Quotation.Status))
		f.SetCellValue(sheet, "A3", "Responses")
		f.SetCellValue(sheet, "B3", comparison.ResponseCount)

		headers := []string{"Quotation Item", "Item ID", "Requested Qty", "Unit", "Retailer", "Unit Price", "Offered Qty", "Line Total", "Submitted On"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 5)
			f.SetCellValue(sheet, cell, h)
			f.SetCellStyle(sheet, cell, cell, headerStyle)
		}

		row := 6
		for _, item := range comparison.Items {
			for _, bid := range item.RetailerPrices {
				submitted := ""
				if bid.SubmittedOn != nil {
					submitted = bid.SubmittedOn.Format("2006-01-02 15:04")
				}
				values := []interface{}{
					item.QuotationItemID, item.ItemID, item.RequestedQuantity, item.Unit,
					bid.RetailerName, bid.UnitPrice, bid.Quantity, bid.TotalAmount, submitted,
				}
				for i, v := range values {
					cell, _ := excelize.CoordinatesToCellName(i+1, row)
					f.SetCellValue(sheet, cell, v)
				}
				if item.LowestPrice != nil && bid.RetailerQuotationItemID == item.LowestPrice.RetailerQuotationItemID {
					start, _ := excelize.CoordinatesToCellName(1, row)
					end, _ := excelize.CoordinatesToCellName(len(values), row)
					f.SetCellStyle(sheet, start, end, lowestStyle)
				}
				row++
			}
		}

		f.SetColWidth(sheet, "A", "I", 16)

		filename := fmt.Sprintf("comparison_%s.xlsx", comparison.Quotation.QuotationNumber)
		escaped := url.PathEscape(filename)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", filename, escaped))

		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing Excel file"})
			return
		}
	}
}

// ExportAwardSummaryPDFHandler renders the award outcome as a PDF.
// @Summary Export award summary to PDF
// @Description Renders the awarded lines, winners and totals of an awarded quotation. Admin only.
// @Tags Exports
// @Produce application/pdf
// @Param id path int true "Quotation ID"
// @Success 200 {file} file "PDF file"
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotations/{id}/award/export [get]
func ExportAwardSummaryPDFHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c, models.RoleAdmin); !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		summary, err := svc.GetAwardSummary(quotationID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()

		pdf.SetFont("Arial", "B", 18)
		pdf.CellFormat(0, 10, "Award Summary", "", 1, "C", false, 0, "")
		pdf.Ln(4)

		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Quotation %s", summary.Quotation.QuotationNumber), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", displayStatus(summary.Quotation.Status)), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Validity: %s - %s",
			summary.Quotation.ValidityFrom.Format("2006-01-02"),
			summary.Quotation.ValidityUntil.Format("2006-01-02")), "", 1, "L", false, 0, "")
		pdf.Ln(4)

		pdf.SetFillColor(230, 230, 230)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(25, 8, "Item ID", "1", 0, "C", true, 0, "")
		pdf.CellFormat(55, 8, "Retailer", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 8, "Qty", "1", 0, "C", true, 0, "")
		pdf.CellFormat(20, 8, "Unit", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 8, "Unit Price", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 8, "Line Total", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, line := range summary.Lines {
			pdf.CellFormat(25, 8, fmt.Sprintf("%d", line.ItemID), "1", 0, "C", false, 0, "")
			pdf.CellFormat(55, 8, line.RetailerName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", line.Quantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 8, line.Unit, "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", line.UnitPrice), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", line.LineTotal), "1", 1, "R", false, 0, "")
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(155, 8, "Total Awarded Value", "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", summary.TotalValue), "1", 1, "R", false, 0, "")

		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Generated on %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")

		filename := fmt.Sprintf("award_summary_%s.pdf", summary.Quotation.QuotationNumber)
		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating PDF"})
			return
		}
	}
}

// GenerateQuotationQRHandler serves a QR code pointing at a quotation.
// @Summary Generate quotation QR code
// @Description Returns a PNG QR code embedding the quotation reference, for printed tender notices.
// @Tags Exports
// @Produce image/png
// @Param id path int true "Quotation ID"
// @Success 200 {file} file "PNG image"
// @Failure 404 {object} models.ErrorResponse
// @Router /api/quotations/{id}/qr [get]
func GenerateQuotationQRHandler(db *sql.DB, svc *services.QuotationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(db, c); !ok {
			return
		}

		quotationID, ok := pathID(c, "id")
		if !ok {
			return
		}

		quotation, err := svc.GetQuotation(quotationID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		qrData := map[string]interface{}{
			"quotation_id":     quotation.QuotationID,
			"quotation_number": quotation.QuotationNumber,
			"status":           quotation.Status,
			"validity_until":   quotation.ValidityUntil.Format(time.RFC3339),
		}
		jsonData, err := json.Marshal(qrData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal quotation data"})
			return
		}

		png, err := qrcode.Encode(string(jsonData), qrcode.Medium, 512)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "QR code generation failed"})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"quotation_%s.png\"", quotation.QuotationNumber))
		c.Data(http.StatusOK, "image/png", png)
	}
}
