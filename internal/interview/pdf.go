package interview

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/nexthire/server/internal/model"
)

// RenderPDF lays out a stored report as a one-page A4 document
func RenderPDF(r model.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "NextHire Interview Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Session "+r.SessionID.String(), "", 1, "L", false, 0, "")
	if !r.CreatedAt.IsZero() {
		pdf.CellFormat(0, 6, "Generated "+r.CreatedAt.Format("02 Jan 2006 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("Final Score: %d / 100", r.FinalScore), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(r.SkillScores) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(120, 7, "Skill", "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, "Score", "1", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)

		skills := make([]string, 0, len(r.SkillScores))
		for s := range r.SkillScores {
			skills = append(skills, s)
		}
		sort.Strings(skills)
		for _, s := range skills {
			pdf.CellFormat(120, 7, s, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 7, fmt.Sprintf("%d", r.SkillScores[s]), "1", 1, "C", false, 0, "")
		}
		pdf.Ln(4)
	}

	section(pdf, "Summary", r.Summary)
	section(pdf, "Strengths", bullets(r.Strengths))
	section(pdf, "Improvements", bullets(r.Improvements))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, body, "", "L", false)
	pdf.Ln(2)
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}
