package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/excel"
	"github.com/fangcao20/nutrition-app-sub000/internal/store"
)

const importKindCatalog = "catalog"

// progressEvery 每处理多少行发送一次进度
const progressEvery = 25

// CatalogStore 目录导入所需的存储能力
type CatalogStore interface {
	UpsertFood(ctx context.Context, f *model.FoodRecord) (created bool, id int64, err error)
	CreateImportLog(ctx context.Context, kind, filename, filePath string, fileSize int64) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, c store.ImportCounts, status, errorMessage string) error
}

// Coordinator 导入协调器
type Coordinator struct {
	store  CatalogStore
	logger *log.Logger
}

// NewCoordinator 创建导入协调器
func NewCoordinator(st CatalogStore) *Coordinator {
	return &Coordinator{store: st, logger: log.Default()}
}

// ImportOptions 导入选项
type ImportOptions struct {
	FilePath string
	Filename string // 展示用原始文件名，为空时取 FilePath 的文件名
	Sheet    string // 为空时自动识别目录表
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/progress/row_error/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// Import 执行导入，返回进度通道；最后一个事件为 done 或 error
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan
}

func (c *Coordinator) doImport(ctx context.Context, opts ImportOptions, ch chan ProgressEvent) {
	startTime := time.Now()
	filename := opts.Filename
	if filename == "" {
		filename = filepath.Base(opts.FilePath)
	}

	c.sendProgress(ch, ProgressEvent{
		Type:      "start",
		Message:   "Catalog import started",
		Data:      map[string]string{"filename": filename},
		Timestamp: time.Now(),
	})

	var fileSize int64
	if info, err := os.Stat(opts.FilePath); err == nil {
		fileSize = info.Size()
	}

	logID, err := c.store.CreateImportLog(ctx, importKindCatalog, filename, opts.FilePath, fileSize)
	if err != nil {
		c.fail(ctx, ch, 0, store.ImportCounts{}, fmt.Errorf("create import log: %w", err))
		return
	}

	file, err := excelize.OpenFile(opts.FilePath)
	if err != nil {
		c.fail(ctx, ch, logID, store.ImportCounts{}, fmt.Errorf("open file: %w", err))
		return
	}
	defer file.Close()

	sheet, err := excel.ParseCatalog(file, opts.Sheet)
	if err != nil {
		c.fail(ctx, ch, logID, store.ImportCounts{}, fmt.Errorf("parse catalog: %w", err))
		return
	}

	report := &model.ImportReport{
		ImportID:  logID,
		Filename:  filename,
		SheetName: sheet.SheetName,
		TotalRows: len(sheet.Rows) + len(sheet.Errors),
		Errors:    append([]model.ImportRowError{}, sheet.Errors...),
	}

	c.sendProgress(ch, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("Sheet %q: %d rows, %d invalid", sheet.SheetName, report.TotalRows, len(sheet.Errors)),
		Data: map[string]interface{}{
			"sheet_name": sheet.SheetName,
			"total_rows": report.TotalRows,
		},
		Timestamp: time.Now(),
	})

	for i, row := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			c.fail(ctx, ch, logID, countsOf(report), err)
			return
		}

		// 停用行不参与自然键更新
		if row.Food.Active {
			c.upsertRow(ctx, ch, report, row)
		} else {
			report.Skipped++
		}

		if (i+1)%progressEvery == 0 || i == len(sheet.Rows)-1 {
			c.sendProgress(ch, ProgressEvent{
				Type:    "progress",
				Message: fmt.Sprintf("Processed %d/%d rows", i+1, len(sheet.Rows)),
				Data: map[string]int{
					"done":  i + 1,
					"total": len(sheet.Rows),
				},
				Timestamp: time.Now(),
			})
		}
	}

	report.Duration = time.Since(startTime)
	if err := c.store.UpdateImportLog(ctx, logID, countsOf(report), "completed", ""); err != nil {
		c.logger.Printf("catalog import %s: update log: %v", filename, err)
	}

	c.logger.Printf("catalog import %s: %d created, %d updated, %d skipped, %d errors in %v",
		filename, report.Created, report.Updated, report.Skipped, report.ErrorRows(), report.Duration)

	c.sendFinal(ctx, ch, ProgressEvent{
		Type:      "done",
		Message:   "Catalog import completed",
		Data:      report,
		Timestamp: time.Now(),
	})
}

func (c *Coordinator) upsertRow(ctx context.Context, ch chan ProgressEvent, report *model.ImportReport, row excel.CatalogRow) {
	created, _, err := c.store.UpsertFood(ctx, row.Food)
	switch {
	case err == nil && created:
		report.Created++
	case err == nil:
		report.Updated++
	default:
		c.rowError(ch, report, row.Row, store.DescribeError(err))
		if !errors.Is(err, store.ErrDuplicateActiveFood) {
			c.logger.Printf("catalog import %s row %d: %v", report.Filename, row.Row, err)
		}
	}
}

func (c *Coordinator) rowError(ch chan ProgressEvent, report *model.ImportReport, row int, msg string) {
	report.Errors = append(report.Errors, model.ImportRowError{Row: row, Message: msg})
	c.sendProgress(ch, ProgressEvent{
		Type:      "row_error",
		Message:   fmt.Sprintf("Row %d: %s", row, msg),
		Data:      map[string]interface{}{"row": row, "message": msg},
		Timestamp: time.Now(),
	})
}

// fail 记录失败并发送 error 事件
func (c *Coordinator) fail(ctx context.Context, ch chan ProgressEvent, logID int64, counts store.ImportCounts, err error) {
	c.logger.Printf("catalog import failed: %v", err)
	if logID > 0 {
		// 原请求可能已取消，日志更新使用独立上下文
		if uerr := c.store.UpdateImportLog(context.Background(), logID, counts, "failed", err.Error()); uerr != nil {
			c.logger.Printf("catalog import: update log: %v", uerr)
		}
	}
	c.sendFinal(ctx, ch, ProgressEvent{
		Type:      "error",
		Message:   store.UserMessage(err),
		Timestamp: time.Now(),
	})
}

func countsOf(r *model.ImportReport) store.ImportCounts {
	return store.ImportCounts{
		Total:   r.TotalRows,
		Created: r.Created,
		Updated: r.Updated,
		Skipped: r.Skipped,
		Errors:  r.ErrorRows(),
	}
}

// sendProgress 发送进度事件，通道已满时丢弃
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}

// sendFinal 终止事件不可丢弃，等待消费者或上下文取消
func (c *Coordinator) sendFinal(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}
