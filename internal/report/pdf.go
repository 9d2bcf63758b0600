package report

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"
)

// Line is one itemized row of the report table.
type Line struct {
	Date        string
	Category    string
	Project     string
	Description string
	Amount      float64
}

// Attachment is a receipt payload embedded as an appendix page.
type Attachment struct {
	Data        []byte
	ContentType string
}

// Meta is the employee block at the top of the report.
type Meta struct {
	Name       string
	Supervisor string
	Email      string
}

// Appendix images larger than this on either axis are downscaled before
// embedding; phone photos routinely exceed print resolution.
const maxAppendixPixels = 2000

const (
	pageWidth  = 210.0 // A4 portrait, mm
	pageHeight = 297.0
	margin     = 14.0
)

// PDF renders the reimbursement report document.
type PDF struct {
	now func() time.Time
}

// NewPDF creates a renderer using the wall clock for the signature date.
func NewPDF() *PDF {
	return &PDF{now: time.Now}
}

// NewPDFWithClock creates a renderer with an injected clock for testing.
func NewPDFWithClock(now func() time.Time) *PDF {
	return &PDF{now: now}
}

// Render produces the report: title, employee metadata, itemized table with
// a running total, signature blocks, and one appendix page per attachment.
// Any failure aborts the whole render; no partial artifact is returned.
func (p *PDF) Render(meta Meta, lines []Line, attachments []Attachment) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	// Title
	doc.SetFont("Helvetica", "B", 22)
	doc.SetTextColor(0, 0, 0)
	doc.SetY(14)
	doc.CellFormat(0, 10, "Expense Reimbursement", "", 1, "C", false, 0, "")

	// Employee metadata
	supervisor := meta.Supervisor
	if supervisor == "" {
		supervisor = "______________________"
	}
	metaStartY := 45.0
	lineHeight := 6.0
	valueX := 55.0
	metaRows := []struct{ label, value string }{
		{"Employee Name:", meta.Name},
		{"Supervisor Name:", supervisor},
		{"Email:", meta.Email},
	}
	for i, row := range metaRows {
		y := metaStartY + float64(i)*lineHeight
		doc.SetFont("Helvetica", "B", 11)
		doc.Text(margin, y, row.label)
		doc.SetFont("Helvetica", "", 11)
		doc.Text(valueX, y, row.value)
	}

	doc.SetFont("Helvetica", "B", 11)
	doc.Text(margin, 75, "Itemized Expenses")

	tableEndY := p.drawTable(doc, lines)
	p.drawSignatures(doc, meta.Name, tableEndY)

	for i, att := range attachments {
		if err := p.addAppendixPage(doc, att); err != nil {
			return nil, fmt.Errorf("embedding receipt %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// column widths sum to the printable width (182mm).
var tableColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 25, "L"},
	{"Category", 48, "L"},
	{"Project", 35, "L"},
	{"Description", 49, "L"},
	{"Amount", 25, "R"},
}

// drawTable renders the striped itemized table with a TOTAL footer row and
// returns the Y position below the table.
func (p *PDF) drawTable(doc *fpdf.Fpdf, lines []Line) float64 {
	rowHeight := 8.0
	doc.SetY(80)
	doc.SetDrawColor(200, 200, 200)
	doc.SetLineWidth(0.2)

	// Header: secondary-color fill, bold centered text
	doc.SetFillColor(216, 210, 231)
	doc.SetFont("Helvetica", "B", 10)
	for _, col := range tableColumns {
		doc.CellFormat(col.width, rowHeight, col.title, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	var total float64
	for i, line := range lines {
		if i%2 == 1 {
			doc.SetFillColor(245, 243, 249)
		} else {
			doc.SetFillColor(255, 255, 255)
		}
		cells := []string{
			line.Date,
			line.Category,
			line.Project,
			line.Description,
			fmt.Sprintf("%.2f", line.Amount),
		}
		for c, col := range tableColumns {
			doc.CellFormat(col.width, rowHeight, cells[c], "1", 0, col.align, true, 0, "")
		}
		doc.Ln(-1)
		total += line.Amount
	}

	// Footer row
	doc.SetFillColor(216, 210, 231)
	doc.SetFont("Helvetica", "B", 10)
	footer := []string{"", "", "", "TOTAL", fmt.Sprintf("%.2f", total)}
	for c, col := range tableColumns {
		doc.CellFormat(col.width, rowHeight, footer[c], "1", 0, col.align, true, 0, "")
	}
	doc.Ln(-1)

	return doc.GetY()
}

// drawSignatures anchors the employee and supervisor signature blocks to the
// page bottom, adding a page first if the table would overlap them. The
// employee block is pre-filled with the name and today's date.
func (p *PDF) drawSignatures(doc *fpdf.Fpdf, employeeName string, tableEndY float64) {
	const (
		sigBoxHeight = 12.0
		labelHeight  = 6.0
		gap          = 5.0
		bottomMargin = 20.0
	)
	sectionHeight := sigBoxHeight + labelHeight
	totalHeight := sectionHeight*2 + gap

	sigStartY := pageHeight - bottomMargin - totalHeight
	if tableEndY+10 > sigStartY {
		doc.AddPage()
	}

	drawSection := func(startY float64, title string, employee bool) {
		dateWidth := 40.0
		sigWidth := pageWidth - margin*2 - dateWidth - 5
		sigX := margin
		dateX := margin + sigWidth + 5

		doc.SetDrawColor(0, 0, 0)
		doc.SetLineWidth(0.2)

		doc.Rect(sigX, startY, sigWidth, sigBoxHeight, "D")
		doc.Rect(dateX, startY, dateWidth, sigBoxHeight, "D")

		labelY := startY + sigBoxHeight
		doc.SetFillColor(216, 210, 231)
		doc.Rect(sigX, labelY, sigWidth, labelHeight, "FD")
		doc.Rect(dateX, labelY, dateWidth, labelHeight, "FD")

		doc.SetFont("Helvetica", "B", 8)
		doc.SetTextColor(0, 0, 0)
		doc.Text(sigX+2, labelY+4, title)
		doc.Text(dateX+2, labelY+4, "Date")

		if employee {
			doc.SetFont("Times", "I", 16)
			doc.Text(sigX+5, startY+8, employeeName)
			doc.SetFont("Helvetica", "", 10)
			doc.Text(dateX+5, startY+8, p.now().Format("2006-01-02"))
		}
	}

	drawSection(sigStartY, "Employee Signature", true)
	drawSection(sigStartY+sectionHeight+gap, "Supervisor Signature", false)
}

// addAppendixPage embeds one receipt on its own page, scaled to fit while
// preserving aspect ratio. PDF receipts contribute their first page.
func (p *PDF) addAppendixPage(doc *fpdf.Fpdf, att Attachment) error {
	doc.AddPage()

	data := att.Data
	if att.ContentType == "application/pdf" {
		rendered, err := rasterizeFirstPage(data)
		if err != nil {
			// Match the source behavior: note the failure on the page and
			// keep going with the remaining receipts.
			slog.Warn("Failed to rasterize PDF receipt", "error", err)
			doc.SetFont("Helvetica", "", 11)
			doc.Text(margin, 20, "Error rendering PDF receipt. Please check attached file.")
			return nil
		}
		data = rendered
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding receipt image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxAppendixPixels || bounds.Dy() > maxAppendixPixels {
		img = imaging.Fit(img, maxAppendixPixels, maxAppendixPixels, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encoding receipt image: %w", err)
	}

	name := fmt.Sprintf("receipt-%d", doc.PageNo())
	doc.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, &buf)

	// Full bleed: scale to the page while keeping aspect, then center.
	w, h := fitDimensions(bounds, pageWidth, pageHeight)
	x := (pageWidth - w) / 2
	y := (pageHeight - h) / 2
	doc.ImageOptions(name, x, y, w, h, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	return nil
}

// fitDimensions scales pixel bounds to fit the box while preserving aspect.
func fitDimensions(bounds image.Rectangle, maxW, maxH float64) (float64, float64) {
	iw := float64(bounds.Dx())
	ih := float64(bounds.Dy())
	scale := maxW / iw
	if s := maxH / ih; s < scale {
		scale = s
	}
	return iw * scale, ih * scale
}

// rasterizeFirstPage renders page one of a PDF receipt to PNG.
func rasterizeFirstPage(pdfData []byte) ([]byte, error) {
	pdfDoc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer pdfDoc.Close()

	img, err := pdfDoc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
