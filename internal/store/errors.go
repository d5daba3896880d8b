package store

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateActiveFood 已存在相同自然键的有效食品
	ErrDuplicateActiveFood = errors.New("an active food with the same code, origin, name, unit and calorie per unit already exists")
)

// asDuplicate 将食品表的唯一约束冲突转换为 ErrDuplicateActiveFood
func asDuplicate(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique &&
		(strings.Contains(se.Error(), "ux_foods_active_key") || strings.Contains(se.Error(), "foods.")) {
		return ErrDuplicateActiveFood
	}
	return err
}

// errorMessages 技术错误片段到可读说明的映射，按顺序匹配
var errorMessages = []struct {
	substr  string
	message string
}{
	{"ux_foods_active_key", "This food already exists as an active item. Deactivate the existing one first."},
	{"UNIQUE constraint failed", "A record with the same key already exists."},
	{"FOREIGN KEY constraint failed", "A usage row references a food that does not exist in the catalog."},
	{"database is locked", "The database is busy. Please try again in a moment."},
	{"no such table", "The database has not been initialised. Restart the application."},
	{"disk I/O error", "The data file could not be read or written. Check the disk and permissions."},
	{"readonly database", "The data file is read-only. Check file permissions."},
}

// DescribeError 将存储错误转换为面向用户的说明，不泄露原始 SQL 错误文本
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := describe(err); ok {
		return msg
	}
	return "Unexpected storage error."
}

// UserMessage 已知存储错误返回可读说明，其余错误原样返回
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := describe(err); ok {
		return msg
	}
	return err.Error()
}

func describe(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrDuplicateActiveFood):
		return errorMessages[0].message, true
	case errors.Is(err, ErrNotFound):
		return "The requested record does not exist.", true
	}

	text := err.Error()
	for _, m := range errorMessages {
		if strings.Contains(text, m.substr) {
			return m.message, true
		}
	}
	return "", false
}
