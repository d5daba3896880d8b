package excel

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// column 逻辑字段及其可接受的表头写法（规范化后比较）
type column struct {
	Field    string
	Position int // 表头无法识别时的兜底列位置（0 起）
	Aliases  []string
}

const (
	colFoodID         = "foodId"
	colOriginName     = "originName"
	colFoodName       = "foodName"
	colUnit           = "unit"
	colValue          = "value"
	colQuantity       = "quantity"
	colMonthYear      = "monthYear"
	colCaloriePerUnit = "caloriePerUnit"
	colCalorieUsage   = "calorieUsage"
	colLossRatio      = "lossRatio"
	colDestination    = "destinationName"
	colInsuranceType  = "insuranceTypeName"
	colApplyDate      = "applyDate"
	colActive         = "active"
)

var usageColumns = []column{
	{colFoodID, 0, []string{"foodid", "foodcode", "code", "id"}},
	{colOriginName, 1, []string{"origin", "originname", "source"}},
	{colFoodName, 2, []string{"foodname", "name", "food"}},
	{colUnit, 3, []string{"unit", "uom"}},
	{colValue, 4, []string{"value", "calorieperunit", "caloriesperunit", "kcalperunit"}},
	{colQuantity, 5, []string{"quantity", "qty", "amount"}},
	{colMonthYear, 6, []string{"monthyear", "month", "period", "date"}},
}

// catalogColumns 目录表：自然键、热量用量、五组比例/病人、损耗及附加信息
var catalogColumns = func() []column {
	cols := []column{
		{colFoodID, 0, []string{"foodid", "foodcode", "code", "id"}},
		{colOriginName, 1, []string{"origin", "originname", "source"}},
		{colFoodName, 2, []string{"foodname", "name", "food"}},
		{colUnit, 3, []string{"unit", "uom"}},
		{colCaloriePerUnit, 4, []string{"calorieperunit", "caloriesperunit", "kcalperunit", "value"}},
		{colCalorieUsage, 5, []string{"calorieusage", "usage", "usageratio"}},
	}
	pos := 6
	for _, slot := range componentSlots {
		cols = append(cols,
			column{ratioField(slot.code), pos, []string{slot.key + "ratio", slot.key}},
			column{patientField(slot.code), pos + 1, []string{slot.key + "patient"}},
		)
		pos += 2
	}
	cols = append(cols,
		column{colLossRatio, pos, []string{"lossratio", "loss"}},
		column{colDestination, pos + 1, []string{"destination", "destinationname"}},
		column{colInsuranceType, pos + 2, []string{"insurancetype", "insurancetypename", "insurance"}},
		column{colApplyDate, pos + 3, []string{"applydate", "effectivedate"}},
		column{colActive, pos + 4, []string{"active", "status", "enabled"}},
	)
	return cols
}()

var headerStripRe = regexp.MustCompile(`[\s_\-./:()\[\]#]+`)

// normalizeHeader 小写并去除空白与分隔符："HH 1.1 Ratio" -> "hh11ratio"
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "（", "(")
	s = strings.ReplaceAll(s, "）", ")")
	return headerStripRe.ReplaceAllString(s, "")
}

// mapColumns 按表头名称定位字段，未识别的字段退回到固定列位置
// 已有表头被识别时，写有其他名称的列不会被当作缺失字段。
// 返回字段到列下标的映射，以及按名称识别成功的字段数。
func mapColumns(headers []string, cols []column) (map[string]int, int) {
	byAlias := make(map[string]string)
	for _, c := range cols {
		for _, a := range c.Aliases {
			if _, taken := byAlias[a]; !taken {
				byAlias[a] = c.Field
			}
		}
	}

	index := make(map[string]int, len(cols))
	used := make(map[int]bool, len(headers))
	for i, h := range headers {
		field, ok := byAlias[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := index[field]; dup {
			continue
		}
		index[field] = i
		used[i] = true
	}
	byName := len(index)

	for _, c := range cols {
		if _, ok := index[c.Field]; ok {
			continue
		}
		if used[c.Position] {
			continue
		}
		// 表头已按名称识别时，只有表头为空的列才按位置兜底
		if byName > 0 && c.Position < len(headers) && normalizeHeader(headers[c.Position]) != "" {
			continue
		}
		index[c.Field] = c.Position
		used[c.Position] = true
	}
	return index, byName
}

// cellReader 按字段名读取一行中的单元格
type cellReader struct {
	row   []string
	index map[string]int
}

func (r cellReader) get(field string) string {
	idx, ok := r.index[field]
	if !ok || idx >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[idx])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var (
	yearMonthRe  = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})(?:[-/.]\d{1,2})?$`)
	monthYearRe  = regexp.MustCompile(`^(\d{1,2})[-/.](\d{4})$`)
	cnYearMonth  = regexp.MustCompile(`^(\d{4})年0?(\d{1,2})月`)
	excelSerial  = regexp.MustCompile(`^\d{5}(\.\d+)?$`)
	excelEpochUT = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
)

// NormalizeMonthYear 将常见月份写法规范为补零的 YYYY-MM，无法识别返回空串
// 支持 2025-06、2025/6、2025-06-15、06/2025、2025年6月 以及 Excel 日期序列号。
func NormalizeMonthYear(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var year, month int
	switch {
	case yearMonthRe.MatchString(s):
		m := yearMonthRe.FindStringSubmatch(s)
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
	case monthYearRe.MatchString(s):
		m := monthYearRe.FindStringSubmatch(s)
		month, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[2])
	case cnYearMonth.MatchString(s):
		m := cnYearMonth.FindStringSubmatch(s)
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
	case excelSerial.MatchString(s):
		days, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ""
		}
		t := excelEpochUT.AddDate(0, 0, int(days))
		year, month = t.Year(), int(t.Month())
	default:
		return ""
	}

	if month < 1 || month > 12 || year < 1900 {
		return ""
	}
	return strconv.Itoa(year) + "-" + twoDigits(month)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// parseBool 解析启用状态，空值视为 def
func parseBool(s string, def bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return def
	case "1", "true", "yes", "y", "x", "active", "on":
		return true
	case "0", "false", "no", "n", "inactive", "off":
		return false
	}
	return def
}
