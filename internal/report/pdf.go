package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	maxPDFRows = 2000
	qrSizeMM   = 32
)

// SavePDF renders rep into a PDF document at out. The first page carries a
// QR code of the report digest.
func SavePDF(rep Report, out string) error {
	digest, err := rep.Digest()
	if err != nil {
		return err
	}
	png, err := DigestToQR(digest, 256)
	if err != nil {
		return fmt.Errorf("digest qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("ARINC 429 Decode Report", false)
	pdf.SetAuthor("a429ctl", false)
	pdf.SetCreator("a429ctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("digest", opts, bytes.NewReader(png))
	pageW, _ := pdf.GetPageSize()
	_, _, right, _ := pdf.GetMargins()
	pdf.ImageOptions("digest", pageW-right-qrSizeMM, 15, qrSizeMM, qrSizeMM, false, opts, 0, "")

	addPDFTitle(pdf, "ARINC 429 Decode Report")
	addSummarySection(pdf, rep, digest)
	addWordsSection(pdf, rep.Words)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, rep Report, digest string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	items := []struct {
		label string
		value string
	}{
		{label: "Created", value: rep.CreatedAt.Format(time.RFC3339)},
		{label: "Source", value: emptyFallback(rep.Source, "-")},
		{label: "Source SHA-256", value: emptyFallback(rep.SourceSHA256, "-")},
		{label: "Default layout", value: emptyFallback(rep.Layout, "-")},
		{label: "Words", value: strconv.Itoa(rep.Summary.Words)},
		{label: "Decoded", value: strconv.Itoa(rep.Summary.Decoded)},
		{label: "Annotated", value: strconv.Itoa(rep.Summary.Annotated)},
		{label: "Flagged", value: strconv.Itoa(rep.Summary.Flagged)},
		{label: "Errors", value: strconv.Itoa(rep.Summary.Errors)},
		{label: "Report digest", value: digest},
	}
	for _, item := range items {
		pdf.CellFormat(35, 6, item.label, "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 6, item.value, "", "L", false)
	}
	pdf.Ln(4)
}

func addWordsSection(pdf *gofpdf.Fpdf, words []WordEntry) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Words")
	pdf.Ln(9)

	if len(words) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No words recorded.", "", "L", false)
		return
	}

	headers := []string{"#", "Raw", "Label", "SDI", "Name", "Fields"}
	widths := []float64{12, 22, 14, 10, 36, 86}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	shown := words
	if len(shown) > maxPDFRows {
		shown = shown[:maxPDFRows]
	}
	for _, w := range shown {
		values := []string{
			strconv.Itoa(w.Index),
			w.Raw,
			w.Label,
			strconv.Itoa(int(w.SDI)),
			emptyFallback(w.Name, "-"),
			wordDetail(w),
		}
		renderTableRow(pdf, widths, values, 4.5)
	}
	if len(words) > len(shown) {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, fmt.Sprintf("%d further words omitted; see the JSON report.", len(words)-len(shown)), "", "L", false)
	}
}

func wordDetail(w WordEntry) string {
	if w.Error != "" {
		return "error: " + w.Error
	}
	parts := make([]string, 0, len(w.Fields)+len(w.Flags))
	for _, f := range w.Fields {
		parts = append(parts, f.Name+"="+f.Value)
	}
	for _, f := range w.Flags {
		parts = append(parts, "["+f+"]")
	}
	return strings.Join(parts, " ")
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if yStart+rowHeight > pageH-bottom {
		pdf.AddPage()
		xStart = pdf.GetX()
		yStart = pdf.GetY()
	}
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
