package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

const (
	SheetCalculated = "Calculated"
	SheetNotFound   = "Not Found"
)

// Exporter Excel导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// CalculatedHeaders 计算结果表头，组件按固定顺序展开为比例/热量/病人三列
func CalculatedHeaders() []string {
	headers := []string{
		"Food ID", "Origin", "Food Name", "Unit", "Value", "Quantity", "Month",
		"Total Calories", "Used Calories",
	}
	for _, code := range model.Components {
		label := code.Label()
		headers = append(headers, label+" Ratio", label+" Calories", label+" Patient")
	}
	return append(headers,
		"Loss Ratio", "Remaining Calories", "Destination", "Insurance Type", "Apply Date", "Active",
	)
}

// NotFoundHeaders 未匹配表头
func NotFoundHeaders() []string {
	return []string{"Food ID", "Origin", "Food Name", "Unit", "Value", "Reason"}
}

// ExportCalculated 导出计算结果；notFound 非空时追加未匹配 sheet
func (e *Exporter) ExportCalculated(rows []model.UsageCalculationRow, notFound []model.UsageNotFoundItem) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetCalculated); err != nil {
		return nil, err
	}

	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		line := []any{r.FoodID, r.OriginName, r.FoodName, r.Unit, r.Value, r.Quantity, r.Period(), r.TotalCalories, r.UsedCalories}
		for _, code := range model.Components {
			c, _ := r.Component(code)
			line = append(line, optional(c.Ratio), optional(c.Calories), c.Patient)
		}
		line = append(line, optional(r.LossRatio), r.RemainingCalories, r.DestinationName, r.InsuranceTypeName, r.ApplyDate, r.Active)
		data = append(data, line)
	}
	if err := writeSheet(f, SheetCalculated, CalculatedHeaders(), data); err != nil {
		return nil, err
	}

	if len(notFound) > 0 {
		if _, err := f.NewSheet(SheetNotFound); err != nil {
			return nil, err
		}
		if err := writeSheet(f, SheetNotFound, NotFoundHeaders(), notFoundData(notFound)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ExportNotFound 仅导出未匹配行
func (e *Exporter) ExportNotFound(items []model.UsageNotFoundItem) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetNotFound); err != nil {
		return nil, err
	}
	if err := writeSheet(f, SheetNotFound, NotFoundHeaders(), notFoundData(items)); err != nil {
		return nil, err
	}
	return f, nil
}

// ExportTable 将二维表写入名为 title 的 sheet
func (e *Exporter) ExportTable(title string, headers []string, rows [][]any) (*excelize.File, error) {
	name := sheetName(title)
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, err
	}
	if err := writeSheet(f, name, headers, rows); err != nil {
		return nil, err
	}
	return f, nil
}

// SaveNotFound 将未匹配行写入 dir，返回文件路径
func (e *Exporter) SaveNotFound(dir string, items []model.UsageNotFoundItem, now time.Time) (string, error) {
	f, err := e.ExportNotFound(items)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	name := fmt.Sprintf("not_found_%s_%s.xlsx", now.Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	return path, nil
}

func notFoundData(items []model.UsageNotFoundItem) [][]any {
	data := make([][]any, 0, len(items))
	for _, it := range items {
		data = append(data, []any{it.FoodID, it.OriginName, it.FoodName, it.Unit, it.Value, it.Reason})
	}
	return data
}

// writeSheet 写表头与数据行，表头加粗并冻结首行
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, headerStyle)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		line := row
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if len(headers) > 0 {
		last, _ := excelize.ColumnNumberToName(len(headers))
		_ = f.SetColWidth(sheet, "A", last, 16)
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, Split: false, XSplit: 0, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	return nil
}

// optional nil 写为空单元格
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// sheetName Excel sheet 名最长 31 个字符且不能包含 []:*?/\
func sheetName(title string) string {
	if title == "" {
		return "Report"
	}
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			r = ' '
		}
		out = append(out, r)
	}
	if len(out) > 31 {
		out = out[:31]
	}
	return string(out)
}
