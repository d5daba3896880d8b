package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	dbstore "github.com/fangcao20/nutrition-app-sub000/internal/store"
)

// MemoryStore 内存数据存储（测试与命令行试算使用）
type MemoryStore struct {
	foods  map[int64]*model.FoodRecord
	usage  map[string][]model.UsageCalculationRow
	nextID int64
	mu     sync.RWMutex

	// FailWith 非 nil 时所有查询返回该错误，用于模拟存储不可用
	FailWith error
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		foods: make(map[int64]*model.FoodRecord),
		usage: make(map[string][]model.UsageCalculationRow),
	}
}

// AddFood 新增食品，有效食品自然键冲突时返回 ErrDuplicateActiveFood
func (s *MemoryStore) AddFood(f *model.FoodRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.Active && s.activeConflictLocked(f.FoodKey, 0) {
		return 0, dbstore.ErrDuplicateActiveFood
	}

	s.nextID++
	cp := cloneFood(f)
	cp.ID = s.nextID
	cp.NormalizeAllocations()
	s.foods[cp.ID] = cp
	f.ID = cp.ID
	return cp.ID, nil
}

// PutFood 按给定 id 写入食品，不做唯一性校验（用于构造异常数据）
func (s *MemoryStore) PutFood(f *model.FoodRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneFood(f)
	cp.NormalizeAllocations()
	s.foods[cp.ID] = cp
	if cp.ID > s.nextID {
		s.nextID = cp.ID
	}
}

// FindActiveFoods 实现 matcher.FoodFinder
func (s *MemoryStore) FindActiveFoods(_ context.Context, key model.FoodKey) ([]*model.FoodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}

	var out []*model.FoodRecord
	for _, f := range s.foods {
		if f.Active && f.FoodKey.Matches(key) {
			out = append(out, cloneFood(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveUsagePeriod 整期替换计算结果
func (s *MemoryStore) SaveUsagePeriod(_ context.Context, period string, rows []model.UsageCalculationRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return 0, s.FailWith
	}
	if period == "" {
		return 0, fmt.Errorf("import period is required")
	}

	cp := make([]model.UsageCalculationRow, len(rows))
	copy(cp, rows)
	s.usage[period] = cp
	return len(cp), nil
}

// ListUsage 按期间范围查询计算结果，按期间升序
func (s *MemoryStore) ListUsage(_ context.Context, r model.PeriodRange) ([]model.UsageCalculationRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}

	periods := make([]string, 0, len(s.usage))
	for p := range s.usage {
		if r.Contains(p) {
			periods = append(periods, p)
		}
	}
	sort.Strings(periods)

	var out []model.UsageCalculationRow
	for _, p := range periods {
		out = append(out, s.usage[p]...)
	}
	return out, nil
}

func (s *MemoryStore) activeConflictLocked(key model.FoodKey, exceptID int64) bool {
	for id, f := range s.foods {
		if id != exceptID && f.Active && f.FoodKey.Matches(key) {
			return true
		}
	}
	return false
}

func cloneFood(f *model.FoodRecord) *model.FoodRecord {
	cp := *f
	cp.Allocations = append([]model.AllocationSlot(nil), f.Allocations...)
	return &cp
}

// Count 返回食品数量
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.foods)
}
