package excel

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/calculator"
)

type componentSlot struct {
	code model.ComponentCode
	key  string // 规范化表头前缀，如 hh11
}

var componentSlots = []componentSlot{
	{model.HH11, "hh11"},
	{model.HH21, "hh21"},
	{model.HH22, "hh22"},
	{model.HH23, "hh23"},
	{model.HH31, "hh31"},
}

func ratioField(code model.ComponentCode) string   { return string(code) + "_ratio" }
func patientField(code model.ComponentCode) string { return string(code) + "_patient" }

// CatalogRow 目录表中的一行
type CatalogRow struct {
	Row  int
	Food *model.FoodRecord
}

// CatalogSheet 目录表解析结果
type CatalogSheet struct {
	SheetName string
	Rows      []CatalogRow
	Errors    []model.ImportRowError
}

// ParseCatalog 解析食品目录表
// 比例单元格原样保留为字符串，计算时才解析；自然键不完整或单位热量不是数字的行记为错误。
func ParseCatalog(f *excelize.File, sheet string) (*CatalogSheet, error) {
	if f == nil {
		return nil, errors.New("no file loaded")
	}
	sheet, err := pickSheet(f, sheet, model.SheetTypeCatalog)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	out := &CatalogSheet{SheetName: sheet}
	if len(rows) == 0 {
		return out, nil
	}

	index, byName := mapColumns(rows[0], catalogColumns)
	start := 1
	if byName == 0 && looksLikeData(rows[0], index[colCaloriePerUnit]) {
		start = 0
	}

	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNo := i + 1
		if isBlankRow(row) {
			continue
		}
		food, err := parseCatalogRow(cellReader{row: row, index: index})
		if err != nil {
			out.Errors = append(out.Errors, model.ImportRowError{Row: rowNo, Message: err.Error()})
			continue
		}
		out.Rows = append(out.Rows, CatalogRow{Row: rowNo, Food: food})
	}
	return out, nil
}

func parseCatalogRow(cells cellReader) (*model.FoodRecord, error) {
	f := &model.FoodRecord{
		FoodKey: model.FoodKey{
			FoodID:     cells.get(colFoodID),
			OriginName: cells.get(colOriginName),
			FoodName:   cells.get(colFoodName),
			Unit:       cells.get(colUnit),
		},
		CalorieUsage:      cells.get(colCalorieUsage),
		LossRatio:         cells.get(colLossRatio),
		DestinationName:   cells.get(colDestination),
		InsuranceTypeName: cells.get(colInsuranceType),
		ApplyDate:         cells.get(colApplyDate),
		Active:            parseBool(cells.get(colActive), true),
	}

	switch {
	case f.FoodID == "":
		return nil, errors.New("missing food id")
	case f.OriginName == "":
		return nil, errors.New("missing origin")
	case f.FoodName == "":
		return nil, errors.New("missing food name")
	case f.Unit == "":
		return nil, errors.New("missing unit")
	}

	raw := cells.get(colCaloriePerUnit)
	v, ok := calculator.ParseNumber(raw)
	if !ok {
		return nil, fmt.Errorf("calorie per unit %q is not a number", raw)
	}
	f.CaloriePerUnit = v

	for _, slot := range componentSlots {
		f.Allocations = append(f.Allocations, model.AllocationSlot{
			Code:    slot.code,
			Ratio:   cells.get(ratioField(slot.code)),
			Patient: cells.get(patientField(slot.code)),
		})
	}
	return f, nil
}
