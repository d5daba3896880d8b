package calculator

import (
	"math"
	"strconv"
	"strings"
)

// RatioKind 比例口径
type RatioKind int

const (
	RatioEmpty      RatioKind = iota // 未配置或无法解析
	RatioPercentage                  // < 1：按热量比例
	RatioAbsolute                    // >= 1：按数量的绝对值
)

func (k RatioKind) String() string {
	switch k {
	case RatioPercentage:
		return "percentage"
	case RatioAbsolute:
		return "absolute"
	}
	return "empty"
}

// Ratio 解析后的比例值，口径在解析时一次性确定
type Ratio struct {
	Kind  RatioKind
	Value float64
}

// ParseRatio 解析比例字符串
// "23.5%" -> 0.235；"1,250" -> 1250；空白或无法解析 -> RatioEmpty。
// 数值 < 1 为百分比口径，>= 1 为绝对值口径（恰好为 1 按绝对值处理）。
func ParseRatio(raw string) Ratio {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ratio{}
	}

	var v float64
	var ok bool
	if strings.Contains(s, "%") {
		v, ok = parseFloat(strings.ReplaceAll(s, "%", ""))
		if ok {
			v /= 100
		} else {
			// 百分号之外不是数字时按原串再试一次（带 % 的原串必然失败）
			v, ok = parseFloat(s)
		}
	} else {
		v, ok = parseFloat(s)
	}
	if !ok {
		return Ratio{}
	}

	return classify(v)
}

// RatioFromValue 按阈值为已解析的数值确定口径
func RatioFromValue(v *float64) Ratio {
	if v == nil {
		return Ratio{}
	}
	return classify(*v)
}

func classify(v float64) Ratio {
	if v < 1 {
		return Ratio{Kind: RatioPercentage, Value: v}
	}
	return Ratio{Kind: RatioAbsolute, Value: v}
}

// IsEmpty 是否未配置
func (r Ratio) IsEmpty() bool {
	return r.Kind == RatioEmpty
}

// Ptr 返回数值指针，未配置时为 nil
func (r Ratio) Ptr() *float64 {
	if r.IsEmpty() {
		return nil
	}
	v := r.Value
	return &v
}

// Allocate 按口径计算分配热量
// 百分比口径乘以单位热量和数量，绝对值口径只乘数量。未配置返回 false。
func (r Ratio) Allocate(perUnit, quantity float64) (float64, bool) {
	switch r.Kind {
	case RatioPercentage:
		return Round(r.Value * perUnit * quantity), true
	case RatioAbsolute:
		return Round(r.Value * quantity), true
	}
	return 0, false
}

// ParseNumber 解析普通数字单元格（去千分位逗号和空白）
func ParseNumber(raw string) (float64, bool) {
	return parseFloat(raw)
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Round 四舍五入到整数（远离零），并去掉负零
func Round(v float64) float64 {
	r := math.Round(v)
	if r == 0 {
		return 0
	}
	return r
}
