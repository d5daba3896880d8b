package matcher

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

// FoodFinder 记录存储的点查能力
// 返回所有满足自然键（含单位热量容差）的有效食品
type FoodFinder interface {
	FindActiveFoods(ctx context.Context, key model.FoodKey) ([]*model.FoodRecord, error)
}

// Matcher 将导入行解析为唯一的有效食品
type Matcher struct {
	finder FoodFinder
	logger *log.Logger
}

// New 创建匹配器，logger 为 nil 时使用标准 logger
func New(finder FoodFinder, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Matcher{finder: finder, logger: logger}
}

// FindFood 查找匹配的有效食品，未找到返回 nil, nil
// 存储返回多条时记录警告并取 id 最小的一条；存储错误原样返回。
func (m *Matcher) FindFood(ctx context.Context, key model.FoodKey) (*model.FoodRecord, error) {
	candidates, err := m.finder.FindActiveFoods(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find food %s: %w", key.FoodID, err)
	}

	matched := candidates[:0:0]
	for _, c := range candidates {
		if c == nil || !c.Active || !c.FoodKey.Matches(key) {
			continue
		}
		matched = append(matched, c)
	}

	switch len(matched) {
	case 0:
		return nil, nil
	case 1:
		return matched[0], nil
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	ids := make([]int64, len(matched))
	for i, c := range matched {
		ids[i] = c.ID
	}
	m.logger.Printf("matcher: %d active foods match %q/%q/%q/%q value=%v, ids=%v; using %d",
		len(matched), key.FoodID, key.OriginName, key.FoodName, key.Unit, key.CaloriePerUnit, ids, ids[0])
	return matched[0], nil
}

// FindForRow 按导入行查找
func (m *Matcher) FindForRow(ctx context.Context, row model.UsageInputRow) (*model.FoodRecord, error) {
	return m.FindFood(ctx, row.Key())
}
