package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

// PeriodStat 已保存期间统计
type PeriodStat struct {
	Period        string  `json:"period"`
	Rows          int     `json:"rows"`
	TotalCalories float64 `json:"totalCalories"`
}

// SaveUsagePeriod 整期替换某导入期间的计算结果
// 先删除该期间所有行再写入新行，全部在一个事务内；任一行失败整体回滚。
func (s *Store) SaveUsagePeriod(ctx context.Context, period string, rows []model.UsageCalculationRow) (int, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return 0, fmt.Errorf("import period is required")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM usage_records WHERE import_period = ?", period); err != nil {
			return fmt.Errorf("failed to delete period %s: %w", period, err)
		}

		recStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO usage_records (
				food_id, sample_date, quantity, import_period,
				food_code, origin_name, food_name, unit, value,
				total_calories, used_calories, loss_ratio, remaining_calories,
				destination_name, insurance_type_name, apply_date, active
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer recStmt.Close()

		compStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO usage_record_components (usage_record_id, code, ratio, calories, patient)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer compStmt.Close()

		for i, r := range rows {
			res, err := recStmt.ExecContext(ctx,
				r.ID, r.Period(), r.Quantity, period,
				r.FoodID, r.OriginName, r.FoodName, r.Unit, r.Value,
				r.TotalCalories, r.UsedCalories, nullFloat(r.LossRatio), r.RemainingCalories,
				r.DestinationName, r.InsuranceTypeName, r.ApplyDate, boolToInt(r.Active),
			)
			if err != nil {
				return fmt.Errorf("failed to insert row %d: %w", i+1, err)
			}
			recordID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get record id: %w", err)
			}
			for _, c := range r.Components {
				if _, err := compStmt.ExecContext(ctx,
					recordID, string(c.Code), nullFloat(c.Ratio), nullFloat(c.Calories), c.Patient,
				); err != nil {
					return fmt.Errorf("failed to insert row %d component %s: %w", i+1, c.Code, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ListUsage 按期间范围（闭区间，字符串比较）查询已保存的计算结果
func (s *Store) ListUsage(ctx context.Context, r model.PeriodRange) ([]model.UsageCalculationRow, error) {
	query := `
		SELECT id, food_id, sample_date, quantity, import_period,
		       food_code, origin_name, food_name, unit, value,
		       total_calories, used_calories, loss_ratio, remaining_calories,
		       destination_name, insurance_type_name, apply_date, active
		FROM usage_records WHERE 1=1`
	args := []interface{}{}

	if r.From != "" {
		query += " AND import_period >= ?"
		args = append(args, r.From)
	}
	if r.To != "" {
		query += " AND import_period <= ?"
		args = append(args, r.To)
	}
	query += " ORDER BY import_period, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var out []model.UsageCalculationRow
	var recordIDs []int64
	for rows.Next() {
		var (
			row      model.UsageCalculationRow
			recordID int64
			loss     sql.NullFloat64
			active   int
		)
		if err := rows.Scan(
			&recordID, &row.ID, &row.MonthYear, &row.Quantity, &row.SelectedMonthYear,
			&row.FoodID, &row.OriginName, &row.FoodName, &row.Unit, &row.Value,
			&row.TotalCalories, &row.UsedCalories, &loss, &row.RemainingCalories,
			&row.DestinationName, &row.InsuranceTypeName, &row.ApplyDate, &active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		if loss.Valid {
			v := loss.Float64
			row.LossRatio = &v
		}
		row.Active = active == 1
		out = append(out, row)
		recordIDs = append(recordIDs, recordID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage records: %w", err)
	}
	rows.Close()

	if err := s.loadComponents(ctx, out, recordIDs); err != nil {
		return nil, err
	}
	return out, nil
}

// loadComponents 加载组件结果，未保存的组件补为空
func (s *Store) loadComponents(ctx context.Context, out []model.UsageCalculationRow, recordIDs []int64) error {
	if len(out) == 0 {
		return nil
	}

	pos := make(map[int64]int, len(recordIDs))
	for i, id := range recordIDs {
		pos[id] = i
	}

	byRecord := make(map[int64]map[model.ComponentCode]model.ComponentResult, len(recordIDs))
	const chunk = 500
	for start := 0; start < len(recordIDs); start += chunk {
		end := start + chunk
		if end > len(recordIDs) {
			end = len(recordIDs)
		}
		ids := recordIDs[start:end]
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			args[i] = id
		}

		rows, err := s.db.QueryContext(ctx,
			"SELECT usage_record_id, code, ratio, calories, patient FROM usage_record_components WHERE usage_record_id IN ("+placeholders+")",
			args...)
		if err != nil {
			return fmt.Errorf("failed to query usage components: %w", err)
		}
		for rows.Next() {
			var (
				recordID        int64
				code, patient   string
				ratio, calories sql.NullFloat64
			)
			if err := rows.Scan(&recordID, &code, &ratio, &calories, &patient); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan usage component: %w", err)
			}
			c := model.ComponentResult{Code: model.ComponentCode(code), Patient: patient}
			if ratio.Valid {
				v := ratio.Float64
				c.Ratio = &v
			}
			if calories.Valid {
				v := calories.Float64
				c.Calories = &v
			}
			if byRecord[recordID] == nil {
				byRecord[recordID] = make(map[model.ComponentCode]model.ComponentResult)
			}
			byRecord[recordID][c.Code] = c
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to iterate usage components: %w", err)
		}
		rows.Close()
	}

	for recordID, i := range pos {
		comps := make([]model.ComponentResult, 0, len(model.Components))
		for _, code := range model.Components {
			c, ok := byRecord[recordID][code]
			if !ok {
				c = model.ComponentResult{Code: code}
			}
			comps = append(comps, c)
		}
		out[i].Components = comps
	}
	return nil
}

// ListPeriods 列出已保存的期间（倒序）
func (s *Store) ListPeriods(ctx context.Context) ([]PeriodStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT import_period, COUNT(1), COALESCE(SUM(total_calories), 0)
		FROM usage_records
		GROUP BY import_period
		ORDER BY import_period DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query periods failed: %w", err)
	}
	defer rows.Close()

	out := []PeriodStat{}
	for rows.Next() {
		var it PeriodStat
		if err := rows.Scan(&it.Period, &it.Rows, &it.TotalCalories); err != nil {
			return nil, fmt.Errorf("scan periods failed: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods failed: %w", err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
