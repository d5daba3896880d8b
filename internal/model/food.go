package model

import "math"

// MatchTolerance 单位热量匹配容差
const MatchTolerance = 0.01

// ComponentCode HH 分配组件编码
type ComponentCode string

const (
	HH11 ComponentCode = "HH_1_1"
	HH21 ComponentCode = "HH_2_1"
	HH22 ComponentCode = "HH_2_2"
	HH23 ComponentCode = "HH_2_3"
	HH31 ComponentCode = "HH_3_1"
)

// Components 固定顺序的五个分配组件
var Components = []ComponentCode{HH11, HH21, HH22, HH23, HH31}

// Label returns the display name, e.g. "HH 1.1".
func (c ComponentCode) Label() string {
	switch c {
	case HH11:
		return "HH 1.1"
	case HH21:
		return "HH 2.1"
	case HH22:
		return "HH 2.2"
	case HH23:
		return "HH 2.3"
	case HH31:
		return "HH 3.1"
	}
	return string(c)
}

// Valid reports whether c is one of the five known components.
func (c ComponentCode) Valid() bool {
	for _, k := range Components {
		if k == c {
			return true
		}
	}
	return false
}

// FoodKey 食品自然键
// 四个文本字段逐字节相等，且单位热量差值小于 MatchTolerance 视为同一食品
type FoodKey struct {
	FoodID         string  `json:"foodId"`
	OriginName     string  `json:"originName"`
	FoodName       string  `json:"foodName"`
	Unit           string  `json:"unit"`
	CaloriePerUnit float64 `json:"caloriePerUnit"`
}

// Matches 判断两个自然键是否指向同一食品
func (k FoodKey) Matches(other FoodKey) bool {
	return k.FoodID == other.FoodID &&
		k.OriginName == other.OriginName &&
		k.FoodName == other.FoodName &&
		k.Unit == other.Unit &&
		math.Abs(k.CaloriePerUnit-other.CaloriePerUnit) < MatchTolerance
}

// AllocationSlot 单个分配组件配置（比例原样保存为字符串）
type AllocationSlot struct {
	Code    ComponentCode `json:"code"`
	Ratio   string        `json:"ratio"`
	Patient string        `json:"patient"`
}

// FoodRecord 食品目录条目
type FoodRecord struct {
	ID int64 `json:"id"`
	FoodKey

	CalorieUsage string           `json:"calorieUsage"`
	Allocations  []AllocationSlot `json:"allocations"`
	LossRatio    string           `json:"lossRatio"`

	DestinationName   string `json:"destinationName"`
	InsuranceTypeName string `json:"insuranceTypeName"`
	ApplyDate         string `json:"applyDate"`
	Active            bool   `json:"active"`
}

// Key 返回自然键
func (f *FoodRecord) Key() FoodKey {
	return f.FoodKey
}

// Slot 按组件编码取分配配置，不存在时返回空配置
func (f *FoodRecord) Slot(code ComponentCode) AllocationSlot {
	for _, s := range f.Allocations {
		if s.Code == code {
			return s
		}
	}
	return AllocationSlot{Code: code}
}

// NormalizeAllocations 补齐五个组件并按固定顺序排列
func (f *FoodRecord) NormalizeAllocations() {
	out := make([]AllocationSlot, 0, len(Components))
	for _, code := range Components {
		out = append(out, f.Slot(code))
	}
	f.Allocations = out
}
