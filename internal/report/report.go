// Package report exports per-user learning statistics to a spreadsheet for
// operator review.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/grammarhour/bookbot/internal/engine"
)

const (
	summarySheet = "Summary"
	weakestSheet = "Weakest Sections"
)

// Build assembles a workbook with the user's overall accuracy and the ranked
// weakest sections. The caller owns closing the returned file.
func Build(userID string, acc engine.Accuracy, weakest []engine.WeakSection) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	summaryRows := [][]any{
		{"User", userID},
		{"Attempts", acc.Attempts},
		{"Correct", acc.Correct},
		{"Accuracy", acc.Rate},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write summary row: %w", err)
		}
	}

	if _, err := f.NewSheet(weakestSheet); err != nil {
		return nil, fmt.Errorf("create weakest sheet: %w", err)
	}
	header := []any{"Chapter", "Section", "Errors", "Error Rate"}
	if err := f.SetSheetRow(weakestSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, ws := range weakest {
		row := []any{ws.ChapterID, ws.SectionID, ws.ErrorCount, ws.ErrorRate}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("weakest cell: %w", err)
		}
		if err := f.SetSheetRow(weakestSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write weakest row: %w", err)
		}
	}

	return f, nil
}

// Write builds the workbook and saves it to path.
func Write(path, userID string, acc engine.Accuracy, weakest []engine.WeakSection) error {
	f, err := Build(userID, acc, weakest)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
