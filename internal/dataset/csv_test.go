package dataset

import (
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	input := "region,sales\nnorth,1200\nsouth,950\n"

	table, errs, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("Expected no ingest errors, got %d", len(errs))
	}
	if len(table.Columns) != 2 || table.Columns[0] != "region" || table.Columns[1] != "sales" {
		t.Errorf("Unexpected columns: %v", table.Columns)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[1][1] != "950" {
		t.Errorf("Expected 950, got %s", table.Rows[1][1])
	}
}

func TestParseCSVStripsBOM(t *testing.T) {
	input := "\uFEFFname,value\na,1\n"

	table, _, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if table.Columns[0] != "name" {
		t.Errorf("Expected BOM stripped from header, got %q", table.Columns[0])
	}
}

func TestParseCSVEmptyHeaders(t *testing.T) {
	input := "a,,c\n1,2,3\n"

	table, _, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if table.Columns[1] != "column_2" {
		t.Errorf("Expected column_2 for blank header, got %q", table.Columns[1])
	}
}

func TestParseCSVRaggedRows(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5\n6,7,8,9\n"

	table, errs, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("Ragged rows should be fixed up, not rejected, got %d errors", len(errs))
	}
	if len(table.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(table.Rows))
	}
	// Short row padded
	if len(table.Rows[1]) != 3 || table.Rows[1][2] != "" {
		t.Errorf("Expected short row padded with empty cell, got %v", table.Rows[1])
	}
	// Long row truncated
	if len(table.Rows[2]) != 3 {
		t.Errorf("Expected long row truncated to 3 cells, got %v", table.Rows[2])
	}
}

func TestParseCSVEmpty(t *testing.T) {
	if _, _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Error("Expected error for empty CSV")
	}
	if _, _, err := ParseCSV(strings.NewReader("a,b\n")); err == nil {
		t.Error("Expected error for header-only CSV")
	}
}

func TestParseCSVQuotedFields(t *testing.T) {
	input := "name,note\nwidget,\"has, comma\"\n"

	table, _, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if table.Rows[0][1] != "has, comma" {
		t.Errorf("Expected quoted field preserved, got %q", table.Rows[0][1])
	}
}
