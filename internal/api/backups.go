package api

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// autoBackup 在破坏性写入前备份数据库，失败只记录日志
func (h *Handler) autoBackup(ctx context.Context, reason string) {
	if !h.opts.AutoBackup || h.opts.Backups == nil {
		return
	}
	if _, err := h.opts.Backups.Create(ctx, reason); err != nil {
		h.logger.Printf("auto backup (%s): %v", reason, err)
	}
}

// ListBackups 备份列表
// GET /api/backups
func (h *Handler) ListBackups(c *gin.Context) {
	if h.opts.Backups == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backups are not enabled."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.opts.Backups.List()})
}

// CreateBackup 手动创建备份
// POST /api/backups
func (h *Handler) CreateBackup(c *gin.Context) {
	if h.opts.Backups == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backups are not enabled."})
		return
	}
	entry, err := h.opts.Backups.Create(c.Request.Context(), "manual")
	if err != nil {
		h.logger.Printf("create backup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create the backup."})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// DownloadBackup 下载备份文件
// GET /api/backups/:id/download
func (h *Handler) DownloadBackup(c *gin.Context) {
	if h.opts.Backups == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backups are not enabled."})
		return
	}
	path, ok := h.opts.Backups.Path(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backup not found."})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
