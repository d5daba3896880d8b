package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "nutriflow.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleFood(code string, perUnit float64) *model.FoodRecord {
	return &model.FoodRecord{
		FoodKey: model.FoodKey{
			FoodID:         code,
			OriginName:     "Local",
			FoodName:       "Rice",
			Unit:           "kg",
			CaloriePerUnit: perUnit,
		},
		CalorieUsage: "50%",
		LossRatio:    "0.01",
		Allocations: []model.AllocationSlot{
			{Code: model.HH11, Ratio: "10%", Patient: "Anna"},
			{Code: model.HH31, Ratio: "5", Patient: "Ben"},
		},
		DestinationName: "Ward A",
		Active:          true,
	}
}

func TestCreateFoodRejectsDuplicateActiveKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateFood(ctx, sampleFood("F001", 1000)); err != nil {
		t.Fatalf("CreateFood: %v", err)
	}

	// 容差内视为相同
	_, err := s.CreateFood(ctx, sampleFood("F001", 1000.004))
	if !errors.Is(err, ErrDuplicateActiveFood) {
		t.Fatalf("expected ErrDuplicateActiveFood, got %v", err)
	}

	// 停用状态可以并存
	inactive := sampleFood("F001", 1000)
	inactive.Active = false
	if _, err := s.CreateFood(ctx, inactive); err != nil {
		t.Fatalf("inactive duplicate should be allowed: %v", err)
	}

	// 启用停用记录时再次冲突
	if err := s.SetFoodActive(ctx, inactive.ID, true); !errors.Is(err, ErrDuplicateActiveFood) {
		t.Fatalf("expected ErrDuplicateActiveFood on activate, got %v", err)
	}
}

func TestFindActiveFoodsTolerance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateFood(ctx, sampleFood("F001", 1000)); err != nil {
		t.Fatalf("CreateFood: %v", err)
	}

	tests := []struct {
		name  string
		key   model.FoodKey
		found int
	}{
		{"exact", model.FoodKey{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "kg", CaloriePerUnit: 1000}, 1},
		{"within tolerance", model.FoodKey{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "kg", CaloriePerUnit: 1000.005}, 1},
		{"outside tolerance", model.FoodKey{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "kg", CaloriePerUnit: 1000.02}, 0},
		{"different unit", model.FoodKey{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "g", CaloriePerUnit: 1000}, 0},
		{"case sensitive", model.FoodKey{FoodID: "F001", OriginName: "local", FoodName: "Rice", Unit: "kg", CaloriePerUnit: 1000}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			foods, err := s.FindActiveFoods(ctx, tt.key)
			if err != nil {
				t.Fatalf("FindActiveFoods: %v", err)
			}
			if len(foods) != tt.found {
				t.Fatalf("expected %d foods, got %d", tt.found, len(foods))
			}
			if tt.found == 1 {
				f := foods[0]
				if len(f.Allocations) != len(model.Components) {
					t.Fatalf("expected %d allocation slots, got %d", len(model.Components), len(f.Allocations))
				}
				if f.Slot(model.HH11).Patient != "Anna" || f.Slot(model.HH31).Ratio != "5" {
					t.Errorf("allocations not restored: %+v", f.Allocations)
				}
				if f.DestinationName != "Ward A" {
					t.Errorf("destination = %q", f.DestinationName)
				}
			}
		})
	}
}

func TestUpsertFood(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, id, err := s.UpsertFood(ctx, sampleFood("F001", 1000))
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}

	again := sampleFood("F001", 1000)
	again.LossRatio = "2"
	again.Allocations = []model.AllocationSlot{{Code: model.HH22, Ratio: "30%"}}
	created, id2, err := s.UpsertFood(ctx, again)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created || id2 != id {
		t.Fatalf("expected update of %d, got created=%v id=%d", id, created, id2)
	}

	f, err := s.GetFood(ctx, id)
	if err != nil {
		t.Fatalf("GetFood: %v", err)
	}
	if f.LossRatio != "2" {
		t.Errorf("loss ratio = %q, want 2", f.LossRatio)
	}
	if f.Slot(model.HH11).Ratio != "" || f.Slot(model.HH22).Ratio != "30%" {
		t.Errorf("allocations not replaced: %+v", f.Allocations)
	}
}

func TestGetFoodNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetFood(context.Background(), 42)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func calcRow(t *testing.T, s *Store, period, patient string) model.UsageCalculationRow {
	t.Helper()
	f := sampleFood("F001", 1000)
	f.Allocations[0].Patient = patient
	_, id, err := s.UpsertFood(context.Background(), f)
	if err != nil {
		t.Fatalf("UpsertFood: %v", err)
	}
	ratio, cal := 0.1, 200.0
	return model.UsageCalculationRow{
		UsageInputRow: model.UsageInputRow{
			FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "kg",
			Value: 1000, Quantity: 2, MonthYear: period,
		},
		ID:                id,
		SelectedMonthYear: period,
		TotalCalories:     2000,
		UsedCalories:      1000,
		Components: []model.ComponentResult{
			{Code: model.HH11, Ratio: &ratio, Calories: &cal, Patient: patient},
		},
		RemainingCalories: 20,
		Active:            true,
	}
}

func TestSaveUsagePeriodReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []model.UsageCalculationRow{calcRow(t, s, "2025-06", "Anna"), calcRow(t, s, "2025-06", "Anna")}
	if n, err := s.SaveUsagePeriod(ctx, "2025-06", first); err != nil || n != 2 {
		t.Fatalf("first save: n=%d err=%v", n, err)
	}

	// 同一期间再次保存应整体替换而不是追加
	second := []model.UsageCalculationRow{calcRow(t, s, "2025-06", "Ben")}
	if n, err := s.SaveUsagePeriod(ctx, "2025-06", second); err != nil || n != 1 {
		t.Fatalf("second save: n=%d err=%v", n, err)
	}

	other := []model.UsageCalculationRow{calcRow(t, s, "2025-07", "Cara")}
	if _, err := s.SaveUsagePeriod(ctx, "2025-07", other); err != nil {
		t.Fatalf("save other period: %v", err)
	}

	rows, err := s.ListUsage(ctx, model.PeriodRange{From: "2025-06", To: "2025-06"})
	if err != nil {
		t.Fatalf("ListUsage: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after replace, got %d", len(rows))
	}
	c, ok := rows[0].Component(model.HH11)
	if !ok || c.Patient != "Ben" || c.Calories == nil || *c.Calories != 200 {
		t.Errorf("component not restored: %+v", c)
	}
	if len(rows[0].Components) != len(model.Components) {
		t.Errorf("expected padded components, got %d", len(rows[0].Components))
	}
	if c31, _ := rows[0].Component(model.HH31); c31.Calories != nil {
		t.Errorf("HH31 should be null, got %v", *c31.Calories)
	}
	if rows[0].LossRatio != nil {
		t.Errorf("loss ratio should stay null")
	}

	all, err := s.ListUsage(ctx, model.PeriodRange{})
	if err != nil {
		t.Fatalf("ListUsage all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows across periods, got %d", len(all))
	}

	periods, err := s.ListPeriods(ctx)
	if err != nil {
		t.Fatalf("ListPeriods: %v", err)
	}
	if len(periods) != 2 || periods[0].Period != "2025-07" || periods[1].Rows != 1 {
		t.Errorf("unexpected periods: %+v", periods)
	}
}

func TestSaveUsagePeriodRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := calcRow(t, s, "2025-06", "Anna")
	if _, err := s.SaveUsagePeriod(ctx, "2025-06", []model.UsageCalculationRow{good}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// 引用不存在的食品，外键失败导致整体回滚
	bad := good
	bad.ID = 9999
	_, err := s.SaveUsagePeriod(ctx, "2025-06", []model.UsageCalculationRow{good, bad})
	if err == nil {
		t.Fatal("expected foreign key failure")
	}
	if got := DescribeError(err); got != "A usage row references a food that does not exist in the catalog." {
		t.Errorf("DescribeError = %q", got)
	}

	rows, err := s.ListUsage(ctx, model.PeriodRange{From: "2025-06", To: "2025-06"})
	if err != nil {
		t.Fatalf("ListUsage: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected previous data to survive rollback, got %d rows", len(rows))
	}
}

func TestCurrentPeriodConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.GetCurrentPeriod(ctx)
	if err != nil || p != "" {
		t.Fatalf("unset period: %q %v", p, err)
	}
	if err := s.SetCurrentPeriod(ctx, "2025-06"); err != nil {
		t.Fatalf("SetCurrentPeriod: %v", err)
	}
	if p, _ := s.GetCurrentPeriod(ctx); p != "2025-06" {
		t.Errorf("period = %q", p)
	}
}

func TestImportLogLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateImportLog(ctx, "catalog", "foods.xlsx", "/tmp/foods.xlsx", 1024)
	if err != nil {
		t.Fatalf("CreateImportLog: %v", err)
	}
	if err := s.UpdateImportLog(ctx, id, ImportCounts{Total: 3, Created: 2, Errors: 1}, "completed", ""); err != nil {
		t.Fatalf("UpdateImportLog: %v", err)
	}
	logs, err := s.ListImportLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListImportLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].CreatedRows != 2 || logs[0].Status != "completed" || logs[0].CompletedAt == nil {
		t.Errorf("unexpected log: %+v", logs)
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrDuplicateActiveFood, "This food already exists as an active item. Deactivate the existing one first."},
		{fmt.Errorf("wrap: %w", ErrNotFound), "The requested record does not exist."},
		{errors.New("database is locked"), "The database is busy. Please try again in a moment."},
		{errors.New("FOREIGN KEY constraint failed"), "A usage row references a food that does not exist in the catalog."},
		{errors.New("something odd"), "Unexpected storage error."},
	}
	for _, tt := range tests {
		if got := DescribeError(tt.err); got != tt.want {
			t.Errorf("DescribeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
	if DescribeError(nil) != "" {
		t.Error("nil error should describe as empty")
	}
}

func TestBackupTo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateFood(ctx, sampleFood("F001", 1000)); err != nil {
		t.Fatalf("CreateFood: %v", err)
	}

	path := filepath.Join(t.TempDir(), "backup.db")
	if err := s.BackupTo(ctx, path); err != nil {
		t.Fatalf("BackupTo: %v", err)
	}

	copied, err := New(path)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer copied.Close()
	if n, err := copied.CountFoods(ctx, nil); err != nil || n != 1 {
		t.Fatalf("backup foods = %d err=%v", n, err)
	}

	// 目标已存在时 VACUUM INTO 失败
	if err := s.BackupTo(ctx, path); err == nil {
		t.Error("expected error when target exists")
	}
}

func TestFindOrCreateCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.FindOrCreate(ctx, CatalogDestination, " Ward A ")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	id2, err := s.FindOrCreate(ctx, CatalogDestination, "Ward A")
	if err != nil || id2 != id1 {
		t.Fatalf("second FindOrCreate = %d, %v; want %d", id2, err, id1)
	}
	if _, err := s.FindOrCreate(ctx, CatalogDestination, "  "); err == nil {
		t.Error("expected error for blank name")
	}
	if _, err := s.FindOrCreate(ctx, CatalogKind("colours"), "red"); err == nil {
		t.Error("expected error for unknown kind")
	}

	items, err := s.ListCatalog(ctx, CatalogDestination)
	if err != nil || len(items) != 1 || items[0].Name != "Ward A" {
		t.Fatalf("items = %+v err=%v", items, err)
	}
}
