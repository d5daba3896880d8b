package model

// ReportKind 报表类型
type ReportKind string

const (
	ReportPatientSummary  ReportKind = "patient-summary"
	ReportFoodSummary     ReportKind = "food-summary"
	ReportPatientAnalysis ReportKind = "patient-analysis"
	ReportFoodAnalysis    ReportKind = "food-analysis"
)

// Valid reports whether k names a known report.
func (k ReportKind) Valid() bool {
	switch k {
	case ReportPatientSummary, ReportFoodSummary, ReportPatientAnalysis, ReportFoodAnalysis:
		return true
	}
	return false
}

// PatientSummaryRow 按病人+组件汇总
type PatientSummaryRow struct {
	Patient           string  `json:"patient"`
	HHGroup           string  `json:"hhGroup"`
	TotalCalories     float64 `json:"totalCalories"`
	TotalUsedCalories float64 `json:"totalUsedCalories"`
	TotalLoss         float64 `json:"totalLoss"`
	RowCount          int     `json:"rowCount"`
}

// FoodSummaryRow 按食品汇总
type FoodSummaryRow struct {
	FoodID        string  `json:"foodId"`
	FoodName      string  `json:"foodName"`
	Unit          string  `json:"unit"`
	HHGroup       string  `json:"hhGroup"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalCalories float64 `json:"totalCalories"`
}

// PatientAnalysisRow 病人分析（仅 HH 3.1）
type PatientAnalysisRow struct {
	Patient           string  `json:"patient"`
	TotalCalories     float64 `json:"totalCalories"`
	TotalLoss         float64 `json:"totalLoss"`
	RemainingCalories float64 `json:"remainingCalories"`
}

// FoodAnalysisRow 食品分析
type FoodAnalysisRow struct {
	FoodID            string  `json:"foodId"`
	FoodName          string  `json:"foodName"`
	Unit              string  `json:"unit"`
	TotalQuantity     float64 `json:"totalQuantity"`
	TotalLoss         float64 `json:"totalLoss"`
	HH31Loss          float64 `json:"hh31Loss"`
	RemainingCalories float64 `json:"remainingCalories"`
}

// PeriodRange 期间范围（YYYY-MM，闭区间，按字符串比较）
type PeriodRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Contains 判断期间是否落在范围内；空边界视为不限
func (p PeriodRange) Contains(period string) bool {
	if p.From != "" && period < p.From {
		return false
	}
	if p.To != "" && period > p.To {
		return false
	}
	return true
}
