package report

import (
	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

// Table 报表的二维表示，供 Excel/PDF 导出使用
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// Titles 报表标题
var Titles = map[model.ReportKind]string{
	model.ReportPatientSummary:  "Patient Summary",
	model.ReportFoodSummary:     "Food Summary",
	model.ReportPatientAnalysis: "Patient Analysis",
	model.ReportFoodAnalysis:    "Food Analysis",
}

// BuildTable 计算报表并转为二维表
func BuildTable(kind model.ReportKind, rows []model.UsageCalculationRow) Table {
	t := Table{Title: Titles[kind]}

	switch kind {
	case model.ReportPatientSummary:
		t.Headers = []string{"Patient", "HH Group", "Total Calories", "Used Calories", "Total Loss", "Rows"}
		for _, r := range PatientSummary(rows) {
			t.Rows = append(t.Rows, []any{r.Patient, r.HHGroup, r.TotalCalories, r.TotalUsedCalories, r.TotalLoss, r.RowCount})
		}
	case model.ReportFoodSummary:
		t.Headers = []string{"Food ID", "Food Name", "Unit", "HH Group", "Total Quantity", "Total Calories"}
		for _, r := range FoodSummary(rows) {
			t.Rows = append(t.Rows, []any{r.FoodID, r.FoodName, r.Unit, r.HHGroup, r.TotalQuantity, r.TotalCalories})
		}
	case model.ReportPatientAnalysis:
		t.Headers = []string{"Patient", "Total Calories", "Total Loss", "Remaining Calories"}
		for _, r := range PatientAnalysis(rows) {
			t.Rows = append(t.Rows, []any{r.Patient, r.TotalCalories, r.TotalLoss, r.RemainingCalories})
		}
	case model.ReportFoodAnalysis:
		t.Headers = []string{"Food ID", "Food Name", "Unit", "Total Quantity", "Total Loss", "HH 3.1 Loss", "Remaining Calories"}
		for _, r := range FoodAnalysis(rows) {
			t.Rows = append(t.Rows, []any{r.FoodID, r.FoodName, r.Unit, r.TotalQuantity, r.TotalLoss, r.HH31Loss, r.RemainingCalories})
		}
	}
	return t
}
