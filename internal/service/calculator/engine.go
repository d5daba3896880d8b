package calculator

import (
	"fmt"
	"strings"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

// EmptyLossPolicy 损耗比例为空时剩余热量的取值
type EmptyLossPolicy string

const (
	EmptyLossZero  EmptyLossPolicy = "zero"  // 剩余热量记 0
	EmptyLossTotal EmptyLossPolicy = "total" // 剩余热量等于总热量
)

// ParseEmptyLossPolicy 解析配置值，空串取默认 zero
func ParseEmptyLossPolicy(s string) (EmptyLossPolicy, error) {
	switch EmptyLossPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", EmptyLossZero:
		return EmptyLossZero, nil
	case EmptyLossTotal:
		return EmptyLossTotal, nil
	}
	return "", fmt.Errorf("unknown empty loss policy: %q", s)
}

// Allocation 单行计算结果
type Allocation struct {
	TotalCalories     float64
	UsedCalories      float64
	Components        []model.ComponentResult
	LossRatio         *float64
	RemainingCalories float64
}

// ComponentTotal 所有已配置组件的分配热量之和
func (a Allocation) ComponentTotal() float64 {
	total := 0.0
	for _, c := range a.Components {
		if c.Calories != nil {
			total += *c.Calories
		}
	}
	return total
}

// Engine 热量分配计算引擎，无内部状态
type Engine struct {
	emptyLoss EmptyLossPolicy
}

// NewEngine 创建计算引擎
func NewEngine(emptyLoss EmptyLossPolicy) *Engine {
	if emptyLoss == "" {
		emptyLoss = EmptyLossZero
	}
	return &Engine{emptyLoss: emptyLoss}
}

// Calculate 以食品自身的单位热量计算
func (e *Engine) Calculate(food *model.FoodRecord, quantity float64) Allocation {
	return e.CalculateAt(food, food.CaloriePerUnit, quantity)
}

// CalculateAt 以导入行给出的单位热量计算
// value 与 food.CaloriePerUnit 在匹配容差内相等
func (e *Engine) CalculateAt(food *model.FoodRecord, value, quantity float64) Allocation {
	total := value * quantity

	out := Allocation{
		TotalCalories: Round(total),
		Components:    make([]model.ComponentResult, 0, len(model.Components)),
	}

	// 已用热量：百分比按总热量，绝对值按数量
	usage := ParseRatio(food.CalorieUsage)
	switch usage.Kind {
	case RatioPercentage:
		out.UsedCalories = Round(usage.Value * total)
	case RatioAbsolute:
		out.UsedCalories = Round(usage.Value * quantity)
	}

	for _, code := range model.Components {
		slot := food.Slot(code)
		ratio := ParseRatio(slot.Ratio)
		res := model.ComponentResult{
			Code:    code,
			Ratio:   ratio.Ptr(),
			Patient: strings.TrimSpace(slot.Patient),
		}
		if cal, ok := ratio.Allocate(value, quantity); ok {
			res.Calories = &cal
		}
		out.Components = append(out.Components, res)
	}

	loss := ParseRatio(food.LossRatio)
	out.LossRatio = loss.Ptr()
	if remaining, ok := loss.Allocate(value, quantity); ok {
		out.RemainingCalories = remaining
	} else if e.emptyLoss == EmptyLossTotal {
		out.RemainingCalories = out.TotalCalories
	}

	return out
}

// BuildRow 合并导入行、食品展示字段与计算结果
func (e *Engine) BuildRow(selectedMonthYear string, in model.UsageInputRow, food *model.FoodRecord) model.UsageCalculationRow {
	alloc := e.CalculateAt(food, in.Value, in.Quantity)
	return model.UsageCalculationRow{
		UsageInputRow:     in,
		ID:                food.ID,
		SelectedMonthYear: selectedMonthYear,
		TotalCalories:     alloc.TotalCalories,
		UsedCalories:      alloc.UsedCalories,
		Components:        alloc.Components,
		LossRatio:         alloc.LossRatio,
		RemainingCalories: alloc.RemainingCalories,
		DestinationName:   food.DestinationName,
		InsuranceTypeName: food.InsuranceTypeName,
		ApplyDate:         food.ApplyDate,
		Active:            food.Active,
	}
}
