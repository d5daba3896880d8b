package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

const foodSelect = `
	SELECT f.id, f.food_code, o.name, n.name, u.name, f.calorie_per_unit,
	       f.calorie_usage, f.loss_ratio,
	       COALESCE(d.name, ''), COALESCE(i.name, ''),
	       f.apply_date, f.active
	FROM foods f
	JOIN origins o ON o.id = f.origin_id
	JOIN food_names n ON n.id = f.food_name_id
	JOIN units u ON u.id = f.unit_id
	LEFT JOIN destinations d ON d.id = f.destination_id
	LEFT JOIN insurance_types i ON i.id = f.insurance_type_id
`

// FoodQueryOptions 食品查询选项
type FoodQueryOptions struct {
	Active *bool
	FoodID string // 精确匹配食品编码
	Search string // 编码或名称模糊匹配
	Limit  int
	Offset int
}

// FoodUpdate 可编辑字段，nil 表示不修改；自然键字段创建后不可变
type FoodUpdate struct {
	CalorieUsage      *string                `json:"calorieUsage"`
	LossRatio         *string                `json:"lossRatio"`
	Allocations       []model.AllocationSlot `json:"allocations"`
	DestinationName   *string                `json:"destinationName"`
	InsuranceTypeName *string                `json:"insuranceTypeName"`
	ApplyDate         *string                `json:"applyDate"`
}

// FindActiveFoods 按自然键（含单位热量容差）查找有效食品
func (s *Store) FindActiveFoods(ctx context.Context, key model.FoodKey) ([]*model.FoodRecord, error) {
	return findActive(ctx, s.db, key, 0)
}

func findActive(ctx context.Context, q querier, key model.FoodKey, exceptID int64) ([]*model.FoodRecord, error) {
	rows, err := q.QueryContext(ctx, foodSelect+`
		WHERE f.active = 1
		  AND f.food_code = ? AND o.name = ? AND n.name = ? AND u.name = ?
		  AND ABS(f.calorie_per_unit - ?) < ?
		  AND f.id <> ?
		ORDER BY f.id
	`, key.FoodID, key.OriginName, key.FoodName, key.Unit, key.CaloriePerUnit, model.MatchTolerance, exceptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active foods: %w", err)
	}
	foods, err := scanFoods(rows)
	if err != nil {
		return nil, err
	}
	if err := loadAllocations(ctx, q, foods); err != nil {
		return nil, err
	}
	return foods, nil
}

// GetFood 获取单个食品
func (s *Store) GetFood(ctx context.Context, id int64) (*model.FoodRecord, error) {
	return getFood(ctx, s.db, id)
}

func getFood(ctx context.Context, q querier, id int64) (*model.FoodRecord, error) {
	rows, err := q.QueryContext(ctx, foodSelect+" WHERE f.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query food: %w", err)
	}
	foods, err := scanFoods(rows)
	if err != nil {
		return nil, err
	}
	if len(foods) == 0 {
		return nil, ErrNotFound
	}
	if err := loadAllocations(ctx, q, foods); err != nil {
		return nil, err
	}
	return foods[0], nil
}

// ListFoods 查询食品目录
func (s *Store) ListFoods(ctx context.Context, opts FoodQueryOptions) ([]*model.FoodRecord, error) {
	query := foodSelect + " WHERE 1=1"
	args := []interface{}{}

	if opts.Active != nil {
		query += " AND f.active = ?"
		args = append(args, boolToInt(*opts.Active))
	}
	if opts.FoodID != "" {
		query += " AND f.food_code = ?"
		args = append(args, opts.FoodID)
	}
	if term := strings.TrimSpace(opts.Search); term != "" {
		query += " AND (f.food_code LIKE ? OR n.name LIKE ?)"
		like := "%" + term + "%"
		args = append(args, like, like)
	}

	query += " ORDER BY f.food_code, f.id"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	foods, err := scanFoods(rows)
	if err != nil {
		return nil, err
	}
	if err := loadAllocations(ctx, s.db, foods); err != nil {
		return nil, err
	}
	return foods, nil
}

// CountFoods 统计食品数量，active 为 nil 时统计全部
func (s *Store) CountFoods(ctx context.Context, active *bool) (int, error) {
	query := "SELECT COUNT(*) FROM foods"
	args := []interface{}{}
	if active != nil {
		query += " WHERE active = ?"
		args = append(args, boolToInt(*active))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count foods: %w", err)
	}
	return n, nil
}

// CreateFood 新增食品
// 有效食品与已有有效食品自然键冲突时返回 ErrDuplicateActiveFood
func (s *Store) CreateFood(ctx context.Context, f *model.FoodRecord) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertFood(ctx, tx, f)
		return err
	})
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

// UpsertFood 按自然键写入：已有有效食品则更新可编辑字段，否则新增
func (s *Store) UpsertFood(ctx context.Context, f *model.FoodRecord) (created bool, id int64, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := findActive(ctx, tx, f.FoodKey, 0)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			f.Active = true
			id, err = insertFood(ctx, tx, f)
			created = true
			return err
		}

		id = existing[0].ID
		return applyUpdate(ctx, tx, id, FoodUpdate{
			CalorieUsage:      &f.CalorieUsage,
			LossRatio:         &f.LossRatio,
			Allocations:       f.Allocations,
			DestinationName:   &f.DestinationName,
			InsuranceTypeName: &f.InsuranceTypeName,
			ApplyDate:         &f.ApplyDate,
		})
	})
	if err != nil {
		return false, 0, err
	}
	f.ID = id
	return created, id, nil
}

// UpdateFood 更新可编辑字段
func (s *Store) UpdateFood(ctx context.Context, id int64, upd FoodUpdate) (*model.FoodRecord, error) {
	var out *model.FoodRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getFood(ctx, tx, id); err != nil {
			return err
		}
		if err := applyUpdate(ctx, tx, id, upd); err != nil {
			return err
		}
		var err error
		out, err = getFood(ctx, tx, id)
		return err
	})
	return out, err
}

// SetFoodActive 启用或停用食品；启用时校验自然键唯一
func (s *Store) SetFoodActive(ctx context.Context, id int64, active bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		f, err := getFood(ctx, tx, id)
		if err != nil {
			return err
		}
		if active && !f.Active {
			conflicts, err := findActive(ctx, tx, f.FoodKey, id)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return ErrDuplicateActiveFood
			}
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE foods SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			boolToInt(active), id)
		if err != nil {
			return asDuplicate(fmt.Errorf("failed to update food status: %w", err))
		}
		return nil
	})
}

func insertFood(ctx context.Context, tx *sql.Tx, f *model.FoodRecord) (int64, error) {
	if strings.TrimSpace(f.FoodID) == "" {
		return 0, fmt.Errorf("food code is required")
	}

	if f.Active {
		conflicts, err := findActive(ctx, tx, f.FoodKey, 0)
		if err != nil {
			return 0, err
		}
		if len(conflicts) > 0 {
			return 0, ErrDuplicateActiveFood
		}
	}

	originID, err := findOrCreate(ctx, tx, CatalogOrigin, f.OriginName)
	if err != nil {
		return 0, err
	}
	nameID, err := findOrCreate(ctx, tx, CatalogFoodName, f.FoodName)
	if err != nil {
		return 0, err
	}
	unitID, err := findOrCreate(ctx, tx, CatalogUnit, f.Unit)
	if err != nil {
		return 0, err
	}
	destID, err := optionalID(ctx, tx, CatalogDestination, f.DestinationName)
	if err != nil {
		return 0, err
	}
	insID, err := optionalID(ctx, tx, CatalogInsuranceType, f.InsuranceTypeName)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO foods (
			food_code, origin_id, food_name_id, unit_id, calorie_per_unit,
			calorie_usage, loss_ratio, destination_id, insurance_type_id, apply_date, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.FoodID, originID, nameID, unitID, f.CaloriePerUnit,
		strings.TrimSpace(f.CalorieUsage), strings.TrimSpace(f.LossRatio), destID, insID,
		strings.TrimSpace(f.ApplyDate), boolToInt(f.Active))
	if err != nil {
		return 0, asDuplicate(fmt.Errorf("failed to insert food: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get food id: %w", err)
	}

	if err := writeAllocations(ctx, tx, id, f.Allocations); err != nil {
		return 0, err
	}
	return id, nil
}

func applyUpdate(ctx context.Context, tx *sql.Tx, id int64, upd FoodUpdate) error {
	setClauses := []string{}
	args := []interface{}{}

	if upd.CalorieUsage != nil {
		setClauses = append(setClauses, "calorie_usage = ?")
		args = append(args, strings.TrimSpace(*upd.CalorieUsage))
	}
	if upd.LossRatio != nil {
		setClauses = append(setClauses, "loss_ratio = ?")
		args = append(args, strings.TrimSpace(*upd.LossRatio))
	}
	if upd.DestinationName != nil {
		destID, err := optionalID(ctx, tx, CatalogDestination, *upd.DestinationName)
		if err != nil {
			return err
		}
		setClauses = append(setClauses, "destination_id = ?")
		args = append(args, destID)
	}
	if upd.InsuranceTypeName != nil {
		insID, err := optionalID(ctx, tx, CatalogInsuranceType, *upd.InsuranceTypeName)
		if err != nil {
			return err
		}
		setClauses = append(setClauses, "insurance_type_id = ?")
		args = append(args, insID)
	}
	if upd.ApplyDate != nil {
		setClauses = append(setClauses, "apply_date = ?")
		args = append(args, strings.TrimSpace(*upd.ApplyDate))
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id)
		query := fmt.Sprintf("UPDATE foods SET %s WHERE id = ?", strings.Join(setClauses, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update food: %w", err)
		}
	}

	if upd.Allocations != nil {
		return writeAllocations(ctx, tx, id, upd.Allocations)
	}
	return nil
}

// writeAllocations 以固定五个组件整体覆盖分配配置
func writeAllocations(ctx context.Context, tx *sql.Tx, foodID int64, slots []model.AllocationSlot) error {
	for _, slot := range slots {
		if !slot.Code.Valid() {
			return fmt.Errorf("unknown allocation component: %q", slot.Code)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM food_allocations WHERE food_id = ?", foodID); err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}

	f := model.FoodRecord{Allocations: slots}
	f.NormalizeAllocations()
	for _, slot := range f.Allocations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO food_allocations (food_id, code, ratio, patient) VALUES (?, ?, ?, ?)",
			foodID, string(slot.Code), strings.TrimSpace(slot.Ratio), strings.TrimSpace(slot.Patient),
		); err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}
	return nil
}

func scanFoods(rows *sql.Rows) ([]*model.FoodRecord, error) {
	defer rows.Close()

	var out []*model.FoodRecord
	for rows.Next() {
		f := &model.FoodRecord{}
		var active int
		if err := rows.Scan(
			&f.ID, &f.FoodID, &f.OriginName, &f.FoodName, &f.Unit, &f.CaloriePerUnit,
			&f.CalorieUsage, &f.LossRatio,
			&f.DestinationName, &f.InsuranceTypeName,
			&f.ApplyDate, &active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		f.Active = active == 1
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate foods: %w", err)
	}
	return out, nil
}

// loadAllocations 批量加载分配配置并补齐五个组件
func loadAllocations(ctx context.Context, q querier, foods []*model.FoodRecord) error {
	if len(foods) == 0 {
		return nil
	}

	byID := make(map[int64]*model.FoodRecord, len(foods))
	placeholders := make([]string, 0, len(foods))
	args := make([]interface{}, 0, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
		placeholders = append(placeholders, "?")
		args = append(args, f.ID)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT food_id, code, ratio, patient FROM food_allocations WHERE food_id IN ("+strings.Join(placeholders, ",")+")",
		args...)
	if err != nil {
		return fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var foodID int64
		var slot model.AllocationSlot
		var code string
		if err := rows.Scan(&foodID, &code, &slot.Ratio, &slot.Patient); err != nil {
			return fmt.Errorf("failed to scan allocation: %w", err)
		}
		slot.Code = model.ComponentCode(code)
		if f, ok := byID[foodID]; ok {
			f.Allocations = append(f.Allocations, slot)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate allocations: %w", err)
	}

	for _, f := range foods {
		f.NormalizeAllocations()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IsNotFound 判断是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
