package usage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fangcao20/nutrition-app-sub000/internal/metrics"
	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/calculator"
)

// RowMatcher 将导入行解析为有效食品，未找到返回 nil, nil
type RowMatcher interface {
	FindForRow(ctx context.Context, row model.UsageInputRow) (*model.FoodRecord, error)
}

// Options 批量计算选项
type Options struct {
	Workers int // 并行匹配协程数，<= 1 时顺序执行
	Logger  *log.Logger
}

// Service 批量用量计算
type Service struct {
	matcher RowMatcher
	engine  *calculator.Engine
	workers int
	logger  *log.Logger
}

// NewService 创建批量计算服务
func NewService(matcher RowMatcher, engine *calculator.Engine, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Service{
		matcher: matcher,
		engine:  engine,
		workers: opts.Workers,
		logger:  opts.Logger,
	}
}

// rowOutcome 单行处理结果，food 为 nil 表示未匹配
type rowOutcome struct {
	food *model.FoodRecord
}

// CalculateBatch 逐行匹配并计算
// 未匹配行收集到 NotFoundItems 后继续；存储错误中止整批并返回错误。
// 两个结果列表各自保持输入顺序，且互不重叠。
func (s *Service) CalculateBatch(ctx context.Context, selectedMonthYear string, rows []model.UsageInputRow) (*model.BatchResult, error) {
	start := time.Now()
	defer func() {
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	outcomes, err := s.matchAll(ctx, rows)
	if err != nil {
		metrics.BatchFailuresTotal.Inc()
		return nil, fmt.Errorf("calculate batch %s: %w", selectedMonthYear, err)
	}

	result := &model.BatchResult{
		BatchID:        uuid.NewString(),
		Success:        true,
		CalculatedData: make([]model.UsageCalculationRow, 0, len(rows)),
		NotFoundItems:  []model.UsageNotFoundItem{},
	}

	for i, row := range rows {
		food := outcomes[i].food
		if food == nil {
			result.NotFoundItems = append(result.NotFoundItems, NotFound(row))
			continue
		}
		result.CalculatedData = append(result.CalculatedData, s.engine.BuildRow(selectedMonthYear, row, food))
	}

	result.Summary = Summarize(result)
	metrics.BatchRowsTotal.WithLabelValues("matched").Add(float64(result.Summary.MatchedRows))
	metrics.BatchRowsTotal.WithLabelValues("not_found").Add(float64(result.Summary.NotFoundRows))

	s.logger.Printf("batch %s (%s): %d rows, %d matched, %d not found in %v",
		result.BatchID, selectedMonthYear, len(rows), result.Summary.MatchedRows, result.Summary.NotFoundRows, time.Since(start))

	return result, nil
}

// matchAll 匹配所有行，结果按输入下标存放
func (s *Service) matchAll(ctx context.Context, rows []model.UsageInputRow) ([]rowOutcome, error) {
	outcomes := make([]rowOutcome, len(rows))

	if s.workers <= 1 {
		for i, row := range rows {
			food, err := s.matcher.FindForRow(ctx, row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			outcomes[i].food = food
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			food, err := s.matcher.FindForRow(gctx, rows[i])
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			outcomes[i].food = food
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// NotFound 由导入行构造未匹配项
func NotFound(row model.UsageInputRow) model.UsageNotFoundItem {
	return model.UsageNotFoundItem{
		FoodID:     row.FoodID,
		OriginName: row.OriginName,
		FoodName:   row.FoodName,
		Unit:       row.Unit,
		Value:      row.Value,
		Reason:     model.NotFoundReason,
	}
}

// Summarize 汇总批量结果
func Summarize(r *model.BatchResult) model.BatchSummary {
	sum := model.BatchSummary{
		MatchedRows:       len(r.CalculatedData),
		NotFoundRows:      len(r.NotFoundItems),
		ComponentCalories: make(map[model.ComponentCode]float64, len(model.Components)),
	}
	sum.TotalRows = sum.MatchedRows + sum.NotFoundRows

	for _, row := range r.CalculatedData {
		sum.TotalCalories += row.TotalCalories
		sum.TotalUsedCalories += row.UsedCalories
		sum.TotalRemainingCalories += row.RemainingCalories
		for _, c := range row.Components {
			if c.Calories != nil {
				sum.ComponentCalories[c.Code] += *c.Calories
			}
		}
	}
	return sum
}
