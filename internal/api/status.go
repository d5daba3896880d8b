package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fangcao20/nutrition-app-sub000/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized    bool               `json:"initialized"`    // 是否已有食品目录
	CurrentPeriod  string             `json:"currentPeriod"`  // 当前选择的月份
	TotalFoods     int                `json:"totalFoods"`     // 食品总数
	ActiveFoods    int                `json:"activeFoods"`    // 有效食品数
	Periods        []store.PeriodStat `json:"periods"`        // 已保存期间
	LastImportTime string             `json:"lastImportTime"` // 最后导入时间
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	period, err := h.store.GetCurrentPeriod(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	total, err := h.store.CountFoods(ctx, nil)
	if err != nil {
		h.respondError(c, err)
		return
	}
	active := true
	activeCount, err := h.store.CountFoods(ctx, &active)
	if err != nil {
		h.respondError(c, err)
		return
	}

	periods, err := h.store.ListPeriods(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	lastImport := ""
	if logs, err := h.store.ListImportLogs(ctx, 1); err == nil && len(logs) > 0 {
		lastImport = logs[0].StartedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, StatusResponse{
		Initialized:    total > 0,
		CurrentPeriod:  period,
		TotalFoods:     total,
		ActiveFoods:    activeCount,
		Periods:        periods,
		LastImportTime: lastImport,
	})
}
