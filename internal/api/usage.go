package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fangcao20/nutrition-app-sub000/internal/metrics"
	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/excel"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/report"
	"github.com/fangcao20/nutrition-app-sub000/internal/store"
)

// CalculateResponse 用量计算响应
type CalculateResponse struct {
	*model.BatchResult
	SheetName        string                 `json:"sheetName"`
	SkippedRows      int                    `json:"skippedRows"`
	Warnings         []model.ImportRowError `json:"warnings,omitempty"`
	NotFoundDownload string                 `json:"notFoundDownload,omitempty"`
}

// SaveUsageRequest 保存期间请求
type SaveUsageRequest struct {
	MonthYear string                      `json:"monthYear"`
	Rows      []model.UsageCalculationRow `json:"rows"`
}

// CalculateUsage 上传月度用量表并计算
// POST /api/usage/calculate (multipart: file, monthYear)
func (h *Handler) CalculateUsage(c *gin.Context) {
	monthYear := c.PostForm("monthYear")
	if !report.ValidMonthYear(monthYear) {
		badRequest(c, "monthYear must use the YYYY-MM format.")
		return
	}

	uploaded, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file uploaded.")
		return
	}
	src, err := uploaded.Open()
	if err != nil {
		badRequest(c, "The uploaded file could not be read.")
		return
	}
	defer src.Close()

	wb, err := excel.Open(src)
	if err != nil {
		badRequest(c, "The uploaded file is not a valid .xlsx workbook.")
		return
	}
	defer wb.Close()

	sheetName := c.PostForm("sheet")
	if sheetName == "" {
		sheetName = h.opts.UsageSheet
	}
	sheet, err := excel.ParseUsage(wb, sheetName)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	h.batchMu.Lock()
	defer h.batchMu.Unlock()

	result, err := h.usage.CalculateBatch(ctx, monthYear, sheet.Rows)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := CalculateResponse{
		BatchResult: result,
		SheetName:   sheet.SheetName,
		SkippedRows: sheet.Skipped,
		Warnings:    sheet.Warnings,
	}

	if len(result.NotFoundItems) > 0 {
		path, err := h.exporter.SaveNotFound(h.opts.NotFoundDir, result.NotFoundItems, h.now())
		if err != nil {
			// 计算结果仍然返回，只是没有下载链接
			h.logger.Printf("batch %s: export not-found list: %v", result.BatchID, err)
		} else {
			result.NotFoundFilePath = path
			token := h.downloads.put(path, filepath.Base(path), downloadTTL)
			resp.NotFoundDownload = "/api/export/download/" + token
		}
	}

	if err := h.store.SetCurrentPeriod(ctx, monthYear); err != nil {
		h.logger.Printf("set current period %s: %v", monthYear, err)
	}

	c.JSON(http.StatusOK, resp)
}

// SaveUsage 按期间整体替换已保存的计算结果
// POST /api/usage/save
func (h *Handler) SaveUsage(c *gin.Context) {
	var req SaveUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	if !report.ValidMonthYear(req.MonthYear) {
		badRequest(c, "monthYear must use the YYYY-MM format.")
		return
	}
	for i, r := range req.Rows {
		if r.ID <= 0 {
			badRequest(c, "Row "+strconv.Itoa(i+1)+" has no matched food.")
			return
		}
	}

	ctx := c.Request.Context()

	h.batchMu.Lock()
	defer h.batchMu.Unlock()

	rows, err := h.rebuildRows(ctx, req.MonthYear, req.Rows)
	if err != nil {
		var invalid *invalidRowError
		if errors.As(err, &invalid) {
			badRequest(c, invalid.Error())
			return
		}
		h.respondError(c, err)
		return
	}

	h.autoBackup(ctx, "before saving period "+req.MonthYear)

	n, err := h.store.SaveUsagePeriod(ctx, req.MonthYear, rows)
	if err != nil {
		h.respondError(c, err)
		return
	}
	metrics.UsageRowsSaved.Add(float64(n))

	if err := h.store.SetCurrentPeriod(ctx, req.MonthYear); err != nil {
		h.logger.Printf("set current period %s: %v", req.MonthYear, err)
	}

	h.logger.Printf("saved %d usage rows for %s", n, req.MonthYear)
	c.JSON(http.StatusOK, gin.H{"period": req.MonthYear, "saved": n})
}

// invalidRowError 提交的行与食品目录不一致
type invalidRowError struct {
	row int
	msg string
}

func (e *invalidRowError) Error() string {
	return fmt.Sprintf("Row %d %s.", e.row, e.msg)
}

// rebuildRows 按 id 重新读取食品并以引擎重算，不信任客户端提交的热量数值
// 食品不存在、已停用或自然键不一致时返回 invalidRowError。
func (h *Handler) rebuildRows(ctx context.Context, period string, in []model.UsageCalculationRow) ([]model.UsageCalculationRow, error) {
	out := make([]model.UsageCalculationRow, 0, len(in))
	for i, r := range in {
		food, err := h.store.GetFood(ctx, r.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &invalidRowError{row: i + 1, msg: "references an unknown food"}
		}
		if err != nil {
			return nil, err
		}
		if !food.Active {
			return nil, &invalidRowError{row: i + 1, msg: "references an inactive food"}
		}
		if !food.FoodKey.Matches(r.UsageInputRow.Key()) {
			return nil, &invalidRowError{row: i + 1, msg: "does not match its food in the catalog"}
		}
		out = append(out, h.engine.BuildRow(period, r.UsageInputRow, food))
	}
	return out, nil
}

// ListPeriods 已保存期间
// GET /api/usage/periods
func (h *Handler) ListPeriods(c *gin.Context) {
	periods, err := h.store.ListPeriods(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

// ListUsage 按期间范围查询已保存记录
// GET /api/usage?from=&to=
func (h *Handler) ListUsage(c *gin.Context) {
	r, ok := parseRange(c)
	if !ok {
		return
	}
	rows, err := h.store.ListUsage(c.Request.Context(), r)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": r.From, "to": r.To, "rows": rows, "total": len(rows)})
}
