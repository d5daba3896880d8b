package excel

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

type headerRequirement struct {
	Key   string
	Match func(header string) bool
}

type sheetRule struct {
	Type         model.SheetType
	Requirements []headerRequirement
	NameBoost    func(sheetName string) float64
}

// Recognizer 工作簿 sheet 识别器
type Recognizer struct {
	rules []*sheetRule
}

// NewRecognizer 创建识别器
func NewRecognizer() *Recognizer {
	return &Recognizer{rules: defaultSheetRules()}
}

// RecognizeWorkbook 识别工作簿内每个 sheet 的类型
func (r *Recognizer) RecognizeWorkbook(wb *excelize.File) map[string]model.SheetRecognition {
	results := make(map[string]model.SheetRecognition)
	if wb == nil {
		return results
	}

	for _, sheetName := range wb.GetSheetList() {
		results[sheetName] = r.Recognize(sheetName, readHeaderRow(wb, sheetName))
	}
	return results
}

// Recognize 按表头识别单个 sheet
func (r *Recognizer) Recognize(sheetName string, headers []string) model.SheetRecognition {
	normHeaders := make([]string, 0, len(headers))
	for _, h := range headers {
		if v := normalizeHeader(h); v != "" {
			normHeaders = append(normHeaders, v)
		}
	}

	bestType := model.SheetTypeUnknown
	bestScore := 0.0
	bestMissing := []string{}

	for _, rule := range r.rules {
		score, missing := scoreRule(rule, sheetName, normHeaders)
		if score > bestScore {
			bestType = rule.Type
			bestScore = score
			bestMissing = missing
		}
	}

	if bestScore < 0.50 {
		bestType = model.SheetTypeUnknown
	}

	return model.SheetRecognition{
		SheetName:     sheetName,
		Type:          bestType,
		Score:         bestScore,
		MissingFields: bestMissing,
	}
}

func readHeaderRow(wb *excelize.File, sheetName string) []string {
	rows, err := wb.GetRows(sheetName)
	if err != nil || len(rows) == 0 {
		return []string{}
	}
	return rows[0]
}

func scoreRule(rule *sheetRule, sheetName string, headers []string) (float64, []string) {
	hit := 0
	missing := make([]string, 0, len(rule.Requirements))
	for _, req := range rule.Requirements {
		ok := false
		for _, h := range headers {
			if req.Match(h) {
				ok = true
				break
			}
		}
		if ok {
			hit++
		} else {
			missing = append(missing, req.Key)
		}
	}

	if len(rule.Requirements) == 0 {
		return 0, missing
	}

	score := float64(hit) / float64(len(rule.Requirements))
	if rule.NameBoost != nil {
		score += rule.NameBoost(sheetName)
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, missing
}

func defaultSheetRules() []*sheetRule {
	reqAny := func(key string, names ...string) headerRequirement {
		return headerRequirement{
			Key: key,
			Match: func(h string) bool {
				for _, n := range names {
					if h == n {
						return true
					}
				}
				return false
			},
		}
	}
	reqPrefix := func(key, prefix string) headerRequirement {
		return headerRequirement{
			Key:   key,
			Match: func(h string) bool { return strings.HasPrefix(h, prefix) },
		}
	}
	boostByKeyword := func(pairs map[string]float64) func(string) float64 {
		return func(sheetName string) float64 {
			name := strings.ToLower(sheetName)
			for kw, v := range pairs {
				if strings.Contains(name, kw) {
					return v
				}
			}
			return 0
		}
	}

	naturalKey := []headerRequirement{
		reqAny("Food ID", "foodid", "foodcode"),
		reqAny("Origin", "origin", "originname"),
		reqAny("Food Name", "foodname", "name"),
		reqAny("Unit", "unit", "uom"),
	}

	usage := append(append([]headerRequirement{}, naturalKey...),
		reqAny("Value", "value", "calorieperunit", "kcalperunit"),
		reqAny("Quantity", "quantity", "qty", "amount"),
	)

	catalog := append(append([]headerRequirement{}, naturalKey...),
		reqAny("Calorie Per Unit", "calorieperunit", "caloriesperunit", "kcalperunit", "value"),
		reqAny("Calorie Usage", "calorieusage", "usage", "usageratio"),
		reqPrefix("HH 1.1", "hh11"),
		reqPrefix("HH 3.1", "hh31"),
		reqAny("Loss Ratio", "lossratio", "loss"),
	)

	return []*sheetRule{
		{
			Type:         model.SheetTypeUsage,
			Requirements: usage,
			NameBoost:    boostByKeyword(map[string]float64{"usage": 0.1}),
		},
		{
			Type:         model.SheetTypeCatalog,
			Requirements: catalog,
			NameBoost:    boostByKeyword(map[string]float64{"catalog": 0.1, "food": 0.05}),
		},
	}
}
