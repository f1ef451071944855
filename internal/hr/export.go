package hr

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nexthire/server/internal/scoring"
)

const rankedSheet = "Ranked Candidates"

var exportHeaders = []string{"Rank", "Name", "Email", "Phone", "Status", "Overall", "Interview", "Mock", "Resume"}

// ExportXLSX writes the filtered, ranked candidate list as a spreadsheet
func (s *Service) ExportXLSX(ctx context.Context, filter scoring.Filter, w io.Writer) error {
	cands, err := s.List(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankedSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for col, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(rankedSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(rankedSheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	_ = f.SetColWidth(rankedSheet, "B", "C", 28)

	for i, c := range cands {
		row := []any{i + 1, c.Name, c.Email, c.Phone, c.Status, c.OverallScore, c.InterviewScore, c.MockScore, c.ResumeScore}
		start, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(rankedSheet, start, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
