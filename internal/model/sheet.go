package model

// SheetType 工作表类型（用于输入容错识别）
type SheetType string

const (
	SheetTypeUnknown SheetType = "unknown"
	SheetTypeUsage   SheetType = "usage"   // 月度用量
	SheetTypeCatalog SheetType = "catalog" // 食品目录
)

// SheetRecognition 单个 sheet 的识别结果
type SheetRecognition struct {
	SheetName     string    `json:"sheetName"`
	Type          SheetType `json:"type"`
	Score         float64   `json:"score"`
	MissingFields []string  `json:"missingFields"`
}
