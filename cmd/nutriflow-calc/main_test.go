package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/report"
)

func writeWorkbook(t *testing.T, path, sheet string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		line := row
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

func TestRunDryRunWithCatalog(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.xlsx")
	usageFile := filepath.Join(dir, "usage.xlsx")
	out := filepath.Join(dir, "result.xlsx")

	writeWorkbook(t, catalog, "Catalog", [][]any{
		{"Food ID", "Origin", "Food Name", "Unit", "Calorie Per Unit", "Calorie Usage", "HH 1.1 Ratio", "HH 1.1 Patient"},
		{"F001", "Local", "Rice", "kg", "1000", "50%", "10%", "Anna"},
	})
	writeWorkbook(t, usageFile, "Usage", [][]any{
		{"Food ID", "Origin", "Food Name", "Unit", "Value", "Quantity"},
		{"F001", "Local", "Rice", "kg", 1000, 2},
		{"F404", "Local", "Salt", "kg", 5, 1},
	})

	var buf bytes.Buffer
	err := run(context.Background(), options{
		usageFile:   usageFile,
		catalogFile: catalog,
		monthYear:   "2025-06",
		out:         out,
		save:        true,
		reportKind:  string(model.ReportPatientSummary),
	}, &buf)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"Loaded 1 active foods", "Usage calculation 2025-06", "2,000.00", "Saved 1 rows for 2025-06 (memory)", "Patient Summary", "Anna"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 2 {
		t.Errorf("sheets = %v", sheets)
	}
}

func TestRunValidatesFlags(t *testing.T) {
	tests := []struct {
		name string
		opts options
		want string
	}{
		{"missing usage", options{monthYear: "2025-06"}, "-usage"},
		{"bad month", options{usageFile: "x.xlsx", monthYear: "June"}, "YYYY-MM"},
		{"bad report", options{usageFile: "x.xlsx", monthYear: "2025-06", reportKind: "totals"}, "unknown report"},
		{"missing catalog", options{usageFile: "x.xlsx", monthYear: "2025-06", catalogFile: filepath.Join(t.TempDir(), "c.xlsx"), save: true}, "c.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.opts, &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRenderTableEmpty(t *testing.T) {
	got := renderTable(report.Table{Title: "Food Summary", Headers: []string{"Food ID", "Total"}})
	if !strings.Contains(got, "no data") || !strings.Contains(got, "Food ID") {
		t.Errorf("renderTable = %q", got)
	}
}
