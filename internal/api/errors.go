package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/report"
	"github.com/fangcao20/nutrition-app-sub000/internal/store"
)

// respondError 将存储错误映射为状态码，消息不包含原始 SQL 文本
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found."})
	case errors.Is(err, store.ErrDuplicateActiveFood):
		c.JSON(http.StatusConflict, gin.H{"error": store.DescribeError(err)})
	default:
		h.logger.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": store.DescribeError(err)})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid id.")
		return 0, false
	}
	return id, true
}

// parseRange 读取 from/to 查询参数，非空时必须为 YYYY-MM
func parseRange(c *gin.Context) (model.PeriodRange, bool) {
	r := model.PeriodRange{From: c.Query("from"), To: c.Query("to")}
	for _, p := range []string{r.From, r.To} {
		if p != "" && !report.ValidMonthYear(p) {
			badRequest(c, "Period must use the YYYY-MM format.")
			return r, false
		}
	}
	if r.From != "" && r.To != "" && r.From > r.To {
		badRequest(c, "Period range start is after its end.")
		return r, false
	}
	return r, true
}
