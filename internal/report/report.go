// Package report writes a compliance review workbook: one row per call
// with its processing status, compliance tier and flags.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"finecho-go/internal/types"
)

const sheet = "Compliance"

var header = []string{
	"Call ID", "Client ID", "Date", "Duration (s)", "Status",
	"Language", "Compliance Status", "Flags", "Segment Confidence", "Summary",
}

// Write renders the workbook for the given calls to w.
func Write(w io.Writer, calls []*types.Call) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, c := range calls {
		row := i + 2
		values := []interface{}{
			c.ID,
			c.ClientID,
			c.CreatedAt.Format("2006-01-02"),
			c.DurationSeconds,
			c.Status,
			deref(c.Language),
			deref(c.ComplianceStatus),
			strings.Join(c.ComplianceFlags, "; "),
			deref(c.SegmentConfidence),
			deref(c.Summary),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
