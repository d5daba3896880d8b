package excel

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/calculator"
)

// ErrNoSheet 工作簿中没有可用的工作表
var ErrNoSheet = errors.New("workbook has no usable sheet")

// UsageSheet 用量表解析结果
type UsageSheet struct {
	SheetName string                 `json:"sheetName"`
	Rows      []model.UsageInputRow  `json:"rows"`
	Skipped   int                    `json:"skipped"`
	Warnings  []model.ImportRowError `json:"warnings,omitempty"`
}

// Open 从 reader 打开工作簿
func Open(r io.Reader) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	return f, nil
}

// ParseUsage 解析月度用量表
// sheet 为空时按表头识别用量表，识别不出则取第一个工作表。
// 数值单元格无法解析时按 0 处理并记录警告；食品编码为空的非空行跳过。
func ParseUsage(f *excelize.File, sheet string) (*UsageSheet, error) {
	if f == nil {
		return nil, errors.New("no file loaded")
	}
	sheet, err := pickSheet(f, sheet, model.SheetTypeUsage)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	out := &UsageSheet{SheetName: sheet, Rows: []model.UsageInputRow{}}
	if len(rows) == 0 {
		return out, nil
	}

	index, byName := mapColumns(rows[0], usageColumns)
	start := 1
	if byName == 0 && looksLikeData(rows[0], index[colValue]) {
		start = 0
	}

	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNo := i + 1
		if isBlankRow(row) {
			continue
		}
		cells := cellReader{row: row, index: index}

		in := model.UsageInputRow{
			FoodID:     cells.get(colFoodID),
			OriginName: cells.get(colOriginName),
			FoodName:   cells.get(colFoodName),
			Unit:       cells.get(colUnit),
		}
		if in.FoodID == "" {
			out.Skipped++
			out.Warnings = append(out.Warnings, model.ImportRowError{Row: rowNo, Message: "missing food id"})
			continue
		}

		in.Value = number(cells.get(colValue), rowNo, "value", &out.Warnings)
		in.Quantity = number(cells.get(colQuantity), rowNo, "quantity", &out.Warnings)

		if raw := cells.get(colMonthYear); raw != "" {
			in.MonthYear = NormalizeMonthYear(raw)
			if in.MonthYear == "" {
				out.Warnings = append(out.Warnings, model.ImportRowError{
					Row: rowNo, Message: fmt.Sprintf("unrecognised month %q, using the selected month", raw),
				})
			}
		}

		out.Rows = append(out.Rows, in)
	}
	return out, nil
}

// number 解析数值单元格，失败按 0 处理
func number(raw string, rowNo int, field string, warnings *[]model.ImportRowError) float64 {
	if raw == "" {
		return 0
	}
	v, ok := calculator.ParseNumber(raw)
	if !ok {
		*warnings = append(*warnings, model.ImportRowError{
			Row: rowNo, Message: fmt.Sprintf("%s %q is not a number, using 0", field, raw),
		})
		return 0
	}
	return v
}

// looksLikeData 首行没有可识别表头且数值列可解析时，视为无表头的数据行
func looksLikeData(row []string, valueIdx int) bool {
	if valueIdx >= len(row) {
		return false
	}
	_, ok := calculator.ParseNumber(strings.TrimSpace(row[valueIdx]))
	return ok
}

// pickSheet 选择要解析的工作表
func pickSheet(f *excelize.File, sheet string, want model.SheetType) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrNoSheet
	}
	if sheet != "" {
		for _, s := range sheets {
			if s == sheet {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found", sheet)
	}

	best, bestScore := "", 0.0
	for _, rec := range NewRecognizer().RecognizeWorkbook(f) {
		if rec.Type == want && (rec.Score > bestScore || (rec.Score == bestScore && sheetIndex(sheets, rec.SheetName) < sheetIndex(sheets, best))) {
			best, bestScore = rec.SheetName, rec.Score
		}
	}
	if best != "" {
		return best, nil
	}
	return sheets[0], nil
}

func sheetIndex(sheets []string, name string) int {
	for i, s := range sheets {
		if s == name {
			return i
		}
	}
	return len(sheets)
}
