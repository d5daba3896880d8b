package report

import (
	"testing"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
)

func f(v float64) *float64 { return &v }

func calcRow(foodID, period string, total, qty, remaining float64, comps ...model.ComponentResult) model.UsageCalculationRow {
	return model.UsageCalculationRow{
		UsageInputRow:     model.UsageInputRow{FoodID: foodID, FoodName: "name-" + foodID, Unit: "kg", Quantity: qty},
		SelectedMonthYear: period,
		TotalCalories:     total,
		UsedCalories:      total / 2,
		RemainingCalories: remaining,
		Components:        comps,
	}
}

func comp(code model.ComponentCode, ratio, cal float64, patient string) model.ComponentResult {
	return model.ComponentResult{Code: code, Ratio: f(ratio), Calories: f(cal), Patient: patient}
}

func TestPatientSummary_SumsPerPatientAndComponent(t *testing.T) {
	t.Parallel()

	rows := []model.UsageCalculationRow{
		calcRow("F1", "2025-06", 100, 1, 0, comp(model.HH11, 0.1, 10, "Anna")),
		calcRow("F2", "2025-06", 200, 1, 0, comp(model.HH11, 0.1, 20, "Anna")),
	}

	got := PatientSummary(rows)
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.Patient != "Anna" || e.HHGroup != "HH 1.1" {
		t.Fatalf("unexpected key %+v", e)
	}
	if e.TotalCalories != 300 || e.TotalLoss != 30 || e.TotalUsedCalories != 150 {
		t.Fatalf("unexpected sums %+v", e)
	}
}

func TestPatientSummary_OneRowManyComponents(t *testing.T) {
	t.Parallel()

	rows := []model.UsageCalculationRow{
		calcRow("F1", "2025-06", 1000, 1, 0,
			comp(model.HH11, 0.1, 100, "Anna"),
			comp(model.HH31, 0.2, 200, "Anna"),
			comp(model.HH21, 0.3, 300, "Ben"),
			model.ComponentResult{Code: model.HH22, Patient: ""},
		),
	}

	got := PatientSummary(rows)
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3: %+v", len(got), got)
	}
	// 每个分组都计入整行总热量，不拆分
	for _, e := range got {
		if e.TotalCalories != 1000 {
			t.Fatalf("%s/%s total = %v, want 1000", e.Patient, e.HHGroup, e.TotalCalories)
		}
	}
	if got[0].HHGroup != "HH 1.1" || got[1].HHGroup != "HH 3.1" || got[1].TotalLoss != 200 {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestPatientSummary_NullComponentNotCounted(t *testing.T) {
	t.Parallel()

	rows := []model.UsageCalculationRow{
		calcRow("F1", "2025-06", 100, 1, 0, model.ComponentResult{Code: model.HH11, Patient: "Anna"}),
	}
	got := PatientSummary(rows)
	if len(got) != 1 || got[0].TotalLoss != 0 {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestFoodSummary(t *testing.T) {
	t.Parallel()

	rows := []model.UsageCalculationRow{
		calcRow("F1", "2025-06", 100, 2, 0, comp(model.HH31, 0.1, 10, "Anna"), comp(model.HH22, 0, 0, "Ben")),
		calcRow("F2", "2025-06", 50, 1, 0),
		calcRow("F1", "2025-07", 300, 3, 0, comp(model.HH11, 5, 15, "Cara")),
	}

	got := FoodSummary(rows)
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[0].FoodID != "F1" || got[0].TotalQuantity != 5 || got[0].TotalCalories != 400 {
		t.Fatalf("unexpected F1 %+v", got[0])
	}
	if got[0].HHGroup != "HH 1.1, HH 3.1" {
		t.Fatalf("hhGroup = %q", got[0].HHGroup)
	}
	if got[1].HHGroup != "" {
		t.Fatalf("F2 hhGroup = %q, want empty", got[1].HHGroup)
	}
}

func TestPatientAnalysis_OnlyHH31(t *testing.T) {
	t.Parallel()

	rows := []model.UsageCalculationRow{
		calcRow("F1", "2025-06", 100, 1, 40, comp(model.HH31, 0.1, 10, "Anna"), comp(model.HH11, 0.5, 50, "Ben")),
		calcRow("F2", "2025-06", 200, 1, 60, comp(model.HH31, 0.1, 20, "Anna")),
	}

	got := PatientAnalysis(rows)
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1: %+v", len(got), got)
	}
	if got[0].Patient != "Anna" || got[0].TotalCalories != 300 || got[0].TotalLoss != 30 || got[0].RemainingCalories != 100 {
		t.Fatalf("unexpected %+v", got[0])
	}
}

func TestFoodAnalysis(t *testing.T) {
	t.Parallel()

	rows := []model.UsageCalculationRow{
		calcRow("F1", "2025-06", 100, 2, 5,
			comp(model.HH11, 0.1, 10, "Anna"),
			comp(model.HH21, 0.1, 10, "Anna"),
			comp(model.HH31, 0.2, 20, "Ben"),
			model.ComponentResult{Code: model.HH22},
		),
		calcRow("F1", "2025-07", 100, 1, 7, comp(model.HH31, 0.3, 30, "Ben")),
	}

	got := FoodAnalysis(rows)
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.TotalQuantity != 3 || e.TotalLoss != 70 || e.HH31Loss != 50 || e.RemainingCalories != 12 {
		t.Fatalf("unexpected %+v", e)
	}
}
