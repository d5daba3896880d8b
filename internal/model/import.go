package model

import "time"

// ImportRowError 单行导入错误
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport 食品目录导入报告
type ImportReport struct {
	ImportID  int64            `json:"importId"`
	Filename  string           `json:"filename"`
	SheetName string           `json:"sheetName"`
	TotalRows int              `json:"totalRows"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Skipped   int              `json:"skipped"`
	Errors    []ImportRowError `json:"errors"`
	Duration  time.Duration    `json:"duration"`
}

// ErrorRows 返回出错行数
func (r *ImportReport) ErrorRows() int {
	return len(r.Errors)
}
