package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// loadReportRows 解析报表类型与期间范围并读取已保存记录
func (h *Handler) loadReportRows(c *gin.Context) (model.ReportKind, model.PeriodRange, []model.UsageCalculationRow, bool) {
	kind := model.ReportKind(c.Param("kind"))
	if !kind.Valid() {
		badRequest(c, "Unknown report "+string(kind)+".")
		return kind, model.PeriodRange{}, nil, false
	}
	r, ok := parseRange(c)
	if !ok {
		return kind, r, nil, false
	}
	rows, err := h.store.ListUsage(c.Request.Context(), r)
	if err != nil {
		h.respondError(c, err)
		return kind, r, nil, false
	}
	return kind, r, rows, true
}

// GetReport 报表数据
// GET /api/reports/:kind?from=&to=
func (h *Handler) GetReport(c *gin.Context) {
	kind, r, rows, ok := h.loadReportRows(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":       kind,
		"title":      report.Titles[kind],
		"from":       r.From,
		"to":         r.To,
		"sourceRows": len(rows),
		"rows":       report.Build(kind, rows),
	})
}

// ExportReport 导出报表为 xlsx 或 pdf
// GET /api/reports/:kind/export?from=&to=&format=xlsx|pdf
func (h *Handler) ExportReport(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")
	if format != "xlsx" && format != "pdf" {
		badRequest(c, "format must be xlsx or pdf.")
		return
	}

	kind, r, rows, ok := h.loadReportRows(c)
	if !ok {
		return
	}
	table := report.BuildTable(kind, rows)
	label := periodLabel(r)
	filename := fmt.Sprintf("%s_%s.%s", kind, label, format)

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "pdf":
		pdf, err := report.RenderPDF(table, label, h.now())
		if err != nil {
			h.logger.Printf("render %s pdf: %v", kind, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render the PDF report."})
			return
		}
		data, contentType = pdf, "application/pdf"
	default:
		f, err := h.exporter.ExportTable(table.Title, table.Headers, table.Rows)
		if err != nil {
			h.logger.Printf("export %s xlsx: %v", kind, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build the Excel report."})
			return
		}
		var buf bytes.Buffer
		err = f.Write(&buf)
		_ = f.Close()
		if err != nil {
			h.logger.Printf("export %s xlsx: %v", kind, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build the Excel report."})
			return
		}
		data, contentType = buf.Bytes(), xlsxContentType
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, url.PathEscape(filename)))
	c.Data(http.StatusOK, contentType, data)
}

// periodLabel 文件名与标题中的期间描述
func periodLabel(r model.PeriodRange) string {
	switch {
	case r.From == "" && r.To == "":
		return "all"
	case r.From == r.To:
		return r.From
	case r.From == "":
		return "until_" + r.To
	case r.To == "":
		return "from_" + r.From
	}
	return r.From + "_" + r.To
}
