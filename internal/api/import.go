package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fangcao20/nutrition-app-sub000/internal/importer"
)

// ImportFoods 从 Excel 导入食品目录 (SSE 流式响应)
// POST /api/foods/import
func (h *Handler) ImportFoods(c *gin.Context) {
	uploaded, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file uploaded.")
		return
	}
	if filepath.Ext(uploaded.Filename) != ".xlsx" {
		badRequest(c, "Only .xlsx files are supported.")
		return
	}

	// 上传文件保留在 uploads 目录，导入日志记录其路径
	dir := h.opts.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.logger.Printf("catalog import: create upload dir: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save the uploaded file."})
		return
	}
	savedPath := filepath.Join(dir, fmt.Sprintf("catalog_%s_%s", uuid.NewString()[:8], filepath.Base(uploaded.Filename)))
	if err := c.SaveUploadedFile(uploaded, savedPath); err != nil {
		h.logger.Printf("catalog import: save upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save the uploaded file."})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming is not supported."})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.autoBackup(c.Request.Context(), "before catalog import "+uploaded.Filename)

	progressChan := h.importer.Import(c.Request.Context(), importer.ImportOptions{
		FilePath: savedPath,
		Filename: uploaded.Filename,
		Sheet:    c.PostForm("sheet"),
	})

	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
