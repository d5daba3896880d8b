package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const keyCurrentPeriod = "current_period"

// GetConfig 获取配置项，不存在返回 ErrNotFound
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("config key %s: %w", key, ErrNotFound)
		}
		return "", err
	}
	return value, nil
}

// SetConfig 设置配置项
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`, key, value, value)
	return err
}

// GetCurrentPeriod 获取当前操作的期间（YYYY-MM），未设置返回空串
func (s *Store) GetCurrentPeriod(ctx context.Context) (string, error) {
	v, err := s.GetConfig(ctx, keyCurrentPeriod)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get current period: %w", err)
	}
	return v, nil
}

// SetCurrentPeriod 设置当前操作的期间
func (s *Store) SetCurrentPeriod(ctx context.Context, period string) error {
	period = strings.TrimSpace(period)
	if period == "" {
		return fmt.Errorf("period is required")
	}
	return s.SetConfig(ctx, keyCurrentPeriod, period)
}
