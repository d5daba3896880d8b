package model

// NotFoundReason 未匹配原因
const NotFoundReason = "Not found in database or inactive"

// UsageInputRow 月度用量导入行
type UsageInputRow struct {
	FoodID     string  `json:"foodId"`
	OriginName string  `json:"originName"`
	FoodName   string  `json:"foodName"`
	Unit       string  `json:"unit"`
	Value      float64 `json:"value"`
	Quantity   float64 `json:"quantity"`
	MonthYear  string  `json:"monthYear,omitempty"`
}

// Key 按导入行构造匹配用自然键
func (r UsageInputRow) Key() FoodKey {
	return FoodKey{
		FoodID:         r.FoodID,
		OriginName:     r.OriginName,
		FoodName:       r.FoodName,
		Unit:           r.Unit,
		CaloriePerUnit: r.Value,
	}
}

// ComponentResult 单个组件计算结果
// Ratio/Calories 为 nil 表示该组件未配置
type ComponentResult struct {
	Code     ComponentCode `json:"code"`
	Ratio    *float64      `json:"ratio"`
	Calories *float64      `json:"calories"`
	Patient  string        `json:"patient,omitempty"`
}

// UsageCalculationRow 导入行与食品匹配后的计算结果
type UsageCalculationRow struct {
	UsageInputRow

	ID                int64   `json:"id"`
	SelectedMonthYear string  `json:"selectedMonthYear"`
	TotalCalories     float64 `json:"totalCalories"`
	UsedCalories      float64 `json:"usedCalories"`

	Components []ComponentResult `json:"components"`

	LossRatio         *float64 `json:"lossRatio"`
	RemainingCalories float64  `json:"remainingCalories"`

	DestinationName   string `json:"destinationName"`
	InsuranceTypeName string `json:"insuranceTypeName"`
	ApplyDate         string `json:"applyDate"`
	Active            bool   `json:"active"`
}

// Component 按编码取组件结果
func (r *UsageCalculationRow) Component(code ComponentCode) (ComponentResult, bool) {
	for _, c := range r.Components {
		if c.Code == code {
			return c, true
		}
	}
	return ComponentResult{Code: code}, false
}

// Period 返回行所属期间：优先行自身月份，否则批次月份
func (r *UsageCalculationRow) Period() string {
	if r.MonthYear != "" {
		return r.MonthYear
	}
	return r.SelectedMonthYear
}

// UsageNotFoundItem 未匹配到有效食品的导入行
type UsageNotFoundItem struct {
	FoodID     string  `json:"foodId"`
	OriginName string  `json:"originName"`
	FoodName   string  `json:"foodName"`
	Unit       string  `json:"unit"`
	Value      float64 `json:"value"`
	Reason     string  `json:"reason"`
}

// BatchResult 批量计算结果
type BatchResult struct {
	BatchID          string                `json:"batchId"`
	Success          bool                  `json:"success"`
	CalculatedData   []UsageCalculationRow `json:"calculatedData"`
	NotFoundItems    []UsageNotFoundItem   `json:"notFoundItems"`
	NotFoundFilePath string                `json:"notFoundFilePath,omitempty"`
	Summary          BatchSummary          `json:"summary"`
}

// BatchSummary 批量计算汇总统计
type BatchSummary struct {
	TotalRows              int                       `json:"totalRows"`
	MatchedRows            int                       `json:"matchedRows"`
	NotFoundRows           int                       `json:"notFoundRows"`
	TotalCalories          float64                   `json:"totalCalories"`
	TotalUsedCalories      float64                   `json:"totalUsedCalories"`
	TotalRemainingCalories float64                   `json:"totalRemainingCalories"`
	ComponentCalories      map[ComponentCode]float64 `json:"componentCalories"`
}
