package matcher

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	memstore "github.com/fangcao20/nutrition-app-sub000/internal/service/store"
)

func food(id int64, perUnit float64, active bool) *model.FoodRecord {
	return &model.FoodRecord{
		ID:      id,
		FoodKey: model.FoodKey{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "kg", CaloriePerUnit: perUnit},
		Active:  active,
	}
}

func key(value float64) model.FoodKey {
	return model.FoodKey{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "kg", CaloriePerUnit: value}
}

func TestFindFood_Tolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		perUnit float64
		found   bool
	}{
		{"差值小于容差", 1000.005, true},
		{"完全相等", 1000, true},
		{"差值超过容差", 1000.02, false},
		{"负向超过容差", 999.98, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memstore.NewMemoryStore()
			st.PutFood(food(1, tt.perUnit, true))

			got, err := New(st, nil).FindFood(context.Background(), key(1000))
			if err != nil {
				t.Fatalf("FindFood: %v", err)
			}
			if (got != nil) != tt.found {
				t.Fatalf("found = %v, want %v", got != nil, tt.found)
			}
		})
	}
}

func TestFindFood_ExactStringMatch(t *testing.T) {
	t.Parallel()

	st := memstore.NewMemoryStore()
	st.PutFood(food(1, 1000, true))
	m := New(st, nil)

	variants := []model.FoodKey{
		{FoodID: "f001", OriginName: "Local", FoodName: "Rice", Unit: "kg", CaloriePerUnit: 1000},
		{FoodID: "F001", OriginName: "Local ", FoodName: "Rice", Unit: "kg", CaloriePerUnit: 1000},
		{FoodID: "F001", OriginName: "Local", FoodName: "rice", Unit: "kg", CaloriePerUnit: 1000},
		{FoodID: "F001", OriginName: "Local", FoodName: "Rice", Unit: "KG", CaloriePerUnit: 1000},
	}
	for _, k := range variants {
		got, err := m.FindFood(context.Background(), k)
		if err != nil {
			t.Fatalf("FindFood: %v", err)
		}
		if got != nil {
			t.Fatalf("key %+v should not match", k)
		}
	}
}

func TestFindFood_InactiveExcluded(t *testing.T) {
	t.Parallel()

	st := memstore.NewMemoryStore()
	st.PutFood(food(1, 1000, false))

	got, err := New(st, nil).FindFood(context.Background(), key(1000))
	if err != nil {
		t.Fatalf("FindFood: %v", err)
	}
	if got != nil {
		t.Fatalf("inactive food must not match, got id=%d", got.ID)
	}
}

func TestFindFood_MultipleLogsAndPicksLowestID(t *testing.T) {
	t.Parallel()

	st := memstore.NewMemoryStore()
	st.PutFood(food(9, 1000, true))
	st.PutFood(food(4, 1000.001, true))

	var buf bytes.Buffer
	m := New(st, log.New(&buf, "", 0))

	got, err := m.FindFood(context.Background(), key(1000))
	if err != nil {
		t.Fatalf("FindFood: %v", err)
	}
	if got == nil || got.ID != 4 {
		t.Fatalf("expected id 4, got %+v", got)
	}
	if !strings.Contains(buf.String(), "2 active foods match") {
		t.Fatalf("expected warning log, got %q", buf.String())
	}
}

func TestFindFood_StoreErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("database is locked")
	st := memstore.NewMemoryStore()
	st.FailWith = boom

	_, err := New(st, nil).FindForRow(context.Background(), model.UsageInputRow{FoodID: "F001"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
