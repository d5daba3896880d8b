package store

import (
	"context"
	"fmt"
	"time"
)

// ImportLog 导入日志
type ImportLog struct {
	ID           int64      `json:"id"`
	Kind         string     `json:"kind"`
	Filename     string     `json:"filename"`
	FilePath     string     `json:"filePath"`
	FileSize     int64      `json:"fileSize"`
	TotalRows    int        `json:"totalRows"`
	CreatedRows  int        `json:"createdRows"`
	UpdatedRows  int        `json:"updatedRows"`
	SkippedRows  int        `json:"skippedRows"`
	ErrorRows    int        `json:"errorRows"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// ImportCounts 导入完成时的计数
type ImportCounts struct {
	Total, Created, Updated, Skipped, Errors int
}

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(ctx context.Context, kind, filename, filePath string, fileSize int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (kind, filename, file_path, file_size, status)
		VALUES (?, ?, ?, ?, 'processing')
	`, kind, filename, filePath, fileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// UpdateImportLog 完成导入日志更新
func (s *Store) UpdateImportLog(ctx context.Context, id int64, c ImportCounts, status, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			total_rows = ?,
			created_rows = ?,
			updated_rows = ?,
			skipped_rows = ?,
			error_rows = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.Total, c.Created, c.Updated, c.Skipped, c.Errors, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs 最近的导入日志
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, filename, file_path, file_size, total_rows, created_rows,
		       updated_rows, skipped_rows, error_rows, status, error_message, started_at, completed_at
		FROM import_logs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import logs: %w", err)
	}
	defer rows.Close()

	out := []ImportLog{}
	for rows.Next() {
		var l ImportLog
		var completed *time.Time
		if err := rows.Scan(&l.ID, &l.Kind, &l.Filename, &l.FilePath, &l.FileSize, &l.TotalRows, &l.CreatedRows,
			&l.UpdatedRows, &l.SkippedRows, &l.ErrorRows, &l.Status, &l.ErrorMessage, &l.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		l.CompletedAt = completed
		out = append(out, l)
	}
	return out, rows.Err()
}
