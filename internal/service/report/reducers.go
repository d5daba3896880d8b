package report

import (
	"regexp"
	"strings"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

var monthYearRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonthYear 校验 YYYY-MM 格式（期间按字符串比较，必须补零）
func ValidMonthYear(s string) bool {
	return monthYearRe.MatchString(s)
}

type patientKey struct {
	patient string
	code    model.ComponentCode
}

// PatientSummary 按病人+组件汇总
// 一行可按不同组件计入多个分组，每个分组计入该行完整的总热量。
func PatientSummary(rows []model.UsageCalculationRow) []model.PatientSummaryRow {
	index := make(map[patientKey]int)
	var out []model.PatientSummaryRow

	for _, row := range rows {
		for _, c := range row.Components {
			patient := strings.TrimSpace(c.Patient)
			if patient == "" {
				continue
			}
			k := patientKey{patient: patient, code: c.Code}
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, model.PatientSummaryRow{Patient: patient, HHGroup: c.Code.Label()})
			}
			agg := &out[i]
			agg.TotalCalories += row.TotalCalories
			agg.TotalUsedCalories += row.UsedCalories
			agg.TotalLoss += calories(c)
			agg.RowCount++
		}
	}
	return out
}

// FoodSummary 按食品编码汇总
func FoodSummary(rows []model.UsageCalculationRow) []model.FoodSummaryRow {
	index := make(map[string]int)
	groups := make(map[string][]model.ComponentCode)
	var out []model.FoodSummaryRow

	for _, row := range rows {
		i, ok := index[row.FoodID]
		if !ok {
			i = len(out)
			index[row.FoodID] = i
			out = append(out, model.FoodSummaryRow{FoodID: row.FoodID, FoodName: row.FoodName, Unit: row.Unit})
		}
		agg := &out[i]
		agg.TotalQuantity += row.Quantity
		agg.TotalCalories += row.TotalCalories

		for _, c := range row.Components {
			if c.Ratio != nil && *c.Ratio > 0 && !containsCode(groups[row.FoodID], c.Code) {
				groups[row.FoodID] = append(groups[row.FoodID], c.Code)
			}
		}
	}

	for i := range out {
		out[i].HHGroup = joinLabels(groups[out[i].FoodID])
	}
	return out
}

// PatientAnalysis 病人分析，仅统计 HH 3.1
func PatientAnalysis(rows []model.UsageCalculationRow) []model.PatientAnalysisRow {
	index := make(map[string]int)
	var out []model.PatientAnalysisRow

	for _, row := range rows {
		c, ok := row.Component(model.HH31)
		if !ok {
			continue
		}
		patient := strings.TrimSpace(c.Patient)
		if patient == "" {
			continue
		}
		i, ok := index[patient]
		if !ok {
			i = len(out)
			index[patient] = i
			out = append(out, model.PatientAnalysisRow{Patient: patient})
		}
		agg := &out[i]
		agg.TotalCalories += row.TotalCalories
		agg.TotalLoss += calories(c)
		agg.RemainingCalories += row.RemainingCalories
	}
	return out
}

// FoodAnalysis 食品分析：五个组件合计损耗、HH 3.1 单列
func FoodAnalysis(rows []model.UsageCalculationRow) []model.FoodAnalysisRow {
	index := make(map[string]int)
	var out []model.FoodAnalysisRow

	for _, row := range rows {
		i, ok := index[row.FoodID]
		if !ok {
			i = len(out)
			index[row.FoodID] = i
			out = append(out, model.FoodAnalysisRow{FoodID: row.FoodID, FoodName: row.FoodName, Unit: row.Unit})
		}
		agg := &out[i]
		agg.TotalQuantity += row.Quantity
		agg.RemainingCalories += row.RemainingCalories
		for _, c := range row.Components {
			agg.TotalLoss += calories(c)
			if c.Code == model.HH31 {
				agg.HH31Loss += calories(c)
			}
		}
	}
	return out
}

// Build 按报表类型计算，返回值可直接序列化
func Build(kind model.ReportKind, rows []model.UsageCalculationRow) any {
	switch kind {
	case model.ReportPatientSummary:
		return PatientSummary(rows)
	case model.ReportFoodSummary:
		return FoodSummary(rows)
	case model.ReportPatientAnalysis:
		return PatientAnalysis(rows)
	case model.ReportFoodAnalysis:
		return FoodAnalysis(rows)
	}
	return nil
}

func calories(c model.ComponentResult) float64 {
	if c.Calories == nil {
		return 0
	}
	return *c.Calories
}

func containsCode(codes []model.ComponentCode, code model.ComponentCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// joinLabels 按固定组件顺序拼接
func joinLabels(codes []model.ComponentCode) string {
	labels := make([]string, 0, len(codes))
	for _, code := range model.Components {
		if containsCode(codes, code) {
			labels = append(labels, code.Label())
		}
	}
	return strings.Join(labels, ", ")
}
