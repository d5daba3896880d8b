package usage

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/calculator"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/matcher"
	memstore "github.com/fangcao20/nutrition-app-sub000/internal/service/store"
)

var quiet = log.New(io.Discard, "", 0)

func seedStore(t *testing.T) *memstore.MemoryStore {
	t.Helper()

	st := memstore.NewMemoryStore()
	foods := []*model.FoodRecord{
		{
			FoodKey:      model.FoodKey{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "kg", CaloriePerUnit: 1000},
			CalorieUsage: "50%",
			Allocations: []model.AllocationSlot{
				{Code: model.HH11, Ratio: "10%", Patient: "Anna"},
				{Code: model.HH31, Ratio: "5", Patient: "Ben"},
			},
			LossRatio: "20%",
			Active:    true,
		},
		{
			FoodKey: model.FoodKey{FoodID: "F003", OriginName: "Import", FoodName: "Milk", Unit: "l", CaloriePerUnit: 600},
			Allocations: []model.AllocationSlot{
				{Code: model.HH21, Ratio: "0.25", Patient: "Anna"},
			},
			Active: true,
		},
		{
			FoodKey: model.FoodKey{FoodID: "F002", OriginName: "Local", FoodName: "Bean", Unit: "kg", CaloriePerUnit: 300},
			Active:  false,
		},
	}
	for _, f := range foods {
		if _, err := st.AddFood(f); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return st
}

func newService(st *memstore.MemoryStore, workers int) *Service {
	return NewService(matcher.New(st, quiet), calculator.NewEngine(calculator.EmptyLossZero), Options{Workers: workers, Logger: quiet})
}

func inputRows() []model.UsageInputRow {
	return []model.UsageInputRow{
		{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "kg", Value: 1000, Quantity: 2},
		{FoodID: "F002", OriginName: "Local", FoodName: "Bean", Unit: "kg", Value: 300, Quantity: 1},
		{FoodID: "F003", OriginName: "Import", FoodName: "Milk", Unit: "l", Value: 600, Quantity: 4},
	}
}

func TestCalculateBatch_NotFoundPartition(t *testing.T) {
	for _, workers := range []int{1, 4} {
		st := seedStore(t)
		res, err := newService(st, workers).CalculateBatch(context.Background(), "2025-06", inputRows())
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if !res.Success {
			t.Fatalf("workers=%d: success should be true", workers)
		}
		if len(res.CalculatedData) != 2 || len(res.NotFoundItems) != 1 {
			t.Fatalf("workers=%d: calculated=%d notFound=%d", workers, len(res.CalculatedData), len(res.NotFoundItems))
		}
		if res.CalculatedData[0].FoodID != "F001" || res.CalculatedData[1].FoodID != "F003" {
			t.Fatalf("workers=%d: order not preserved: %s, %s", workers, res.CalculatedData[0].FoodID, res.CalculatedData[1].FoodID)
		}
		nf := res.NotFoundItems[0]
		if nf.FoodID != "F002" || nf.Reason != model.NotFoundReason || nf.Value != 300 {
			t.Fatalf("workers=%d: unexpected not found item %+v", workers, nf)
		}
		if res.BatchID == "" {
			t.Fatalf("workers=%d: batch id missing", workers)
		}
	}
}

func TestCalculateBatch_ComputedFields(t *testing.T) {
	t.Parallel()

	st := seedStore(t)
	res, err := newService(st, 1).CalculateBatch(context.Background(), "2025-06", inputRows()[:1])
	if err != nil {
		t.Fatalf("CalculateBatch: %v", err)
	}

	row := res.CalculatedData[0]
	if row.SelectedMonthYear != "2025-06" || row.ID == 0 {
		t.Fatalf("unexpected identity: %+v", row)
	}
	if row.TotalCalories != 2000 || row.UsedCalories != 1000 || row.RemainingCalories != 400 {
		t.Fatalf("total=%v used=%v remaining=%v", row.TotalCalories, row.UsedCalories, row.RemainingCalories)
	}
	hh11, _ := row.Component(model.HH11)
	hh31, _ := row.Component(model.HH31)
	if *hh11.Calories != 200 || *hh31.Calories != 10 {
		t.Fatalf("hh11=%v hh31=%v", *hh11.Calories, *hh31.Calories)
	}

	sum := res.Summary
	if sum.TotalRows != 1 || sum.MatchedRows != 1 || sum.TotalCalories != 2000 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.ComponentCalories[model.HH11] != 200 || sum.ComponentCalories[model.HH31] != 10 {
		t.Fatalf("component totals %+v", sum.ComponentCalories)
	}
}

func TestCalculateBatch_AllNotFoundStillSucceeds(t *testing.T) {
	t.Parallel()

	st := memstore.NewMemoryStore()
	res, err := newService(st, 1).CalculateBatch(context.Background(), "2025-06", inputRows())
	if err != nil {
		t.Fatalf("CalculateBatch: %v", err)
	}
	if !res.Success || len(res.CalculatedData) != 0 || len(res.NotFoundItems) != 3 {
		t.Fatalf("unexpected result: success=%v calc=%d nf=%d", res.Success, len(res.CalculatedData), len(res.NotFoundItems))
	}
}

func TestCalculateBatch_StoreErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk I/O error")
	for _, workers := range []int{1, 3} {
		st := seedStore(t)
		st.FailWith = boom

		res, err := newService(st, workers).CalculateBatch(context.Background(), "2025-06", inputRows())
		if !errors.Is(err, boom) {
			t.Fatalf("workers=%d: expected store error, got %v", workers, err)
		}
		if res != nil {
			t.Fatalf("workers=%d: no partial result expected", workers)
		}
	}
}

func TestCalculateBatch_Empty(t *testing.T) {
	t.Parallel()

	res, err := newService(memstore.NewMemoryStore(), 1).CalculateBatch(context.Background(), "2025-06", nil)
	if err != nil {
		t.Fatalf("CalculateBatch: %v", err)
	}
	if !res.Success || res.Summary.TotalRows != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}
