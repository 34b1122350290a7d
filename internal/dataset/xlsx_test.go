package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf
}

func TestParseXLSX(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"region", "sales"},
		{"north", 1200},
		{"south", 950},
	})

	table, errs, err := ParseXLSX(buf)
	if err != nil {
		t.Fatalf("ParseXLSX failed: %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("Expected no ingest errors, got %d", len(errs))
	}
	if len(table.Columns) != 2 || table.Columns[0] != "region" {
		t.Errorf("Unexpected columns: %v", table.Columns)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0][1] != "1200" {
		t.Errorf("Expected 1200, got %q", table.Rows[0][1])
	}
}

func TestParseXLSXShortRowsPadded(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"a", "b", "c"},
		{"1", "2", "3"},
		{"4", "5"},
	})

	table, _, err := ParseXLSX(buf)
	if err != nil {
		t.Fatalf("ParseXLSX failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if len(table.Rows[1]) != 3 || table.Rows[1][2] != "" {
		t.Errorf("Expected short row padded, got %v", table.Rows[1])
	}
}

func TestParseXLSXEmptyHeaders(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"a", "", "c"},
		{"1", "2", "3"},
	})

	table, _, err := ParseXLSX(buf)
	if err != nil {
		t.Fatalf("ParseXLSX failed: %v", err)
	}
	if table.Columns[1] != "column_2" {
		t.Errorf("Expected column_2 for blank header, got %q", table.Columns[1])
	}
}

func TestParseXLSXHeaderOnly(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"a", "b"},
	})

	if _, _, err := ParseXLSX(buf); err == nil {
		t.Error("Expected error for header-only sheet")
	}
}

func TestParseXLSXNotAWorkbook(t *testing.T) {
	if _, _, err := ParseXLSX(strings.NewReader("this is not a zip")); err == nil {
		t.Error("Expected error for invalid workbook")
	}
}
