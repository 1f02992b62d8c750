package report

import (
    "strconv"
    "strings"

    "github.com/jung-kurt/gofpdf"
)

// WritePDF renders a title and a numbered list of texts to outPath, one
// paragraph per text in the core Helvetica font.
func WritePDF(outPath string, title string, texts []string) error {
    pdf := gofpdf.New("P", "mm", "A4", "")
    // Core fonts are cp1252; translate UTF-8 input so accents survive.
    tr := pdf.UnicodeTranslatorFromDescriptor("")
    pdf.AddPage()

    if s := strings.TrimSpace(title); s != "" {
        pdf.SetFont("Helvetica", "B", 14)
        pdf.MultiCell(0, 8, tr(s), "", "L", false)
        pdf.Ln(2)
    }

    pdf.SetFont("Helvetica", "", 11)
    if len(texts) == 0 {
        pdf.MultiCell(0, 5, "No entries.", "", "L", false)
    }
    for i, t := range texts {
        body := strings.Join(strings.Fields(t), " ")
        pdf.SetFont("Helvetica", "B", 11)
        pdf.CellFormat(10, 5, strconv.Itoa(i+1)+".", "", 0, "L", false, 0, "")
        pdf.SetFont("Helvetica", "", 11)
        pdf.MultiCell(0, 5, tr(body), "", "L", false)
        pdf.Ln(2)
    }

    return pdf.OutputFileAndClose(outPath)
}
