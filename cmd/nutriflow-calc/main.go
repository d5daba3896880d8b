// nutriflow-calc 在终端中对单个月度用量表执行计算并打印汇总
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fangcao20/nutrition-app-sub000/internal/config"
	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/calculator"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/excel"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/matcher"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/report"
	memstore "github.com/fangcao20/nutrition-app-sub000/internal/service/store"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/usage"
	"github.com/fangcao20/nutrition-app-sub000/internal/store"
)

type options struct {
	usageFile   string
	catalogFile string
	monthYear   string
	sheet       string
	save        bool
	out         string
	reportKind  string
}

// usageSaver 保存与读取计算结果的存储能力
type usageSaver interface {
	SaveUsagePeriod(ctx context.Context, period string, rows []model.UsageCalculationRow) (int, error)
	ListUsage(ctx context.Context, r model.PeriodRange) ([]model.UsageCalculationRow, error)
}

func main() {
	var opts options
	flag.StringVar(&opts.usageFile, "usage", "", "月度用量表 (.xlsx)")
	flag.StringVar(&opts.catalogFile, "catalog", "", "食品目录表 (.xlsx)；指定时在内存中试算，不读写数据库")
	flag.StringVar(&opts.monthYear, "month", "", "计算月份 YYYY-MM")
	flag.StringVar(&opts.sheet, "sheet", "", "用量表 sheet 名，默认自动识别")
	flag.BoolVar(&opts.save, "save", false, "保存计算结果（整期替换）；与 -catalog 同用时只保存在内存中")
	flag.StringVar(&opts.out, "out", "", "导出计算结果 (.xlsx)")
	flag.StringVar(&opts.reportKind, "report", "", "同时打印报表：patient-summary|food-summary|patient-analysis|food-analysis")
	flag.Parse()

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, w io.Writer) error {
	if opts.usageFile == "" {
		return errors.New("-usage is required")
	}
	if !report.ValidMonthYear(opts.monthYear) {
		return errors.New("-month must use the YYYY-MM format")
	}
	if opts.reportKind != "" && !model.ReportKind(opts.reportKind).Valid() {
		return fmt.Errorf("unknown report %q", opts.reportKind)
	}

	cfg, _, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	if opts.sheet == "" {
		opts.sheet = cfg.Excel.UsageSheet
	}

	var (
		finder matcher.FoodFinder
		saver  usageSaver
	)
	if opts.catalogFile != "" {
		mem, err := loadCatalog(opts.catalogFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Loaded %d active foods from %s (dry run)", mem.Count(), filepath.Base(opts.catalogFile))))
		finder, saver = mem, mem
	} else {
		if _, err := config.EnsureDataDir(cfg); err != nil {
			return fmt.Errorf("prepare data dir: %w", err)
		}
		st, err := store.New(config.DatabasePath(cfg))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()
		finder, saver = st, st
	}

	wb, err := excelize.OpenFile(opts.usageFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.usageFile, err)
	}
	defer wb.Close()

	sheet, err := excel.ParseUsage(wb, opts.sheet)
	if err != nil {
		return err
	}

	svc := usage.NewService(matcher.New(finder, nil), calculator.NewEngine(cfg.LossPolicy()), usage.Options{
		Workers: cfg.Calculation.Workers,
	})
	result, err := svc.CalculateBatch(ctx, opts.monthYear, sheet.Rows)
	if err != nil {
		return fmt.Errorf("calculate: %w", err)
	}

	fmt.Fprintln(w, renderSummary(opts.monthYear, sheet, result))

	if opts.out != "" {
		f, err := excel.NewExporter().ExportCalculated(result.CalculatedData, result.NotFoundItems)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		err = f.SaveAs(opts.out)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("save %s: %w", opts.out, err)
		}
		fmt.Fprintln(w, okStyle.Render("Exported "+opts.out))
	} else if len(result.NotFoundItems) > 0 && opts.catalogFile == "" {
		path, err := excel.NewExporter().SaveNotFound(config.NotFoundDir(cfg), result.NotFoundItems, time.Now())
		if err != nil {
			log.Printf("export not-found list: %v", err)
		} else {
			fmt.Fprintln(w, mutedStyle.Render("Not found list: "+path))
		}
	}

	rows := result.CalculatedData
	if opts.save {
		n, err := saver.SaveUsagePeriod(ctx, opts.monthYear, result.CalculatedData)
		if err != nil {
			return fmt.Errorf("save period: %s", store.DescribeError(err))
		}
		target := "database"
		if opts.catalogFile != "" {
			target = "memory"
		}
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("Saved %d rows for %s (%s)", n, opts.monthYear, target)))

		// 报表基于已保存的期间数据
		rows, err = saver.ListUsage(ctx, model.PeriodRange{From: opts.monthYear, To: opts.monthYear})
		if err != nil {
			return fmt.Errorf("list period %s: %s", opts.monthYear, store.DescribeError(err))
		}
	}

	if opts.reportKind != "" {
		kind := model.ReportKind(opts.reportKind)
		fmt.Fprintln(w, renderTable(report.BuildTable(kind, rows)))
	}
	return nil
}

// loadCatalog 将目录表中的有效食品载入内存存储
func loadCatalog(path string) (*memstore.MemoryStore, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer wb.Close()

	sheet, err := excel.ParseCatalog(wb, "")
	if err != nil {
		return nil, err
	}
	for _, e := range sheet.Errors {
		log.Printf("catalog row %d: %s", e.Row, e.Message)
	}

	mem := memstore.NewMemoryStore()
	for _, row := range sheet.Rows {
		if !row.Food.Active {
			continue
		}
		if _, err := mem.AddFood(row.Food); err != nil {
			log.Printf("catalog row %d: %s", row.Row, store.DescribeError(err))
		}
	}
	return mem, nil
}
