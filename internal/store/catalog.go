package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CatalogKind 目录类型
type CatalogKind string

const (
	CatalogOrigin        CatalogKind = "origins"
	CatalogFoodName      CatalogKind = "food-names"
	CatalogUnit          CatalogKind = "units"
	CatalogDestination   CatalogKind = "destinations"
	CatalogInsuranceType CatalogKind = "insurance-types"
)

var catalogTables = map[CatalogKind]string{
	CatalogOrigin:        "origins",
	CatalogFoodName:      "food_names",
	CatalogUnit:          "units",
	CatalogDestination:   "destinations",
	CatalogInsuranceType: "insurance_types",
}

// CatalogItem 目录项
type CatalogItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ParseCatalogKind 校验目录类型
func ParseCatalogKind(s string) (CatalogKind, bool) {
	k := CatalogKind(s)
	_, ok := catalogTables[k]
	return k, ok
}

// querier 同时兼容 *sql.DB 与 *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindOrCreate 按名称查找目录项，不存在则创建，返回 id
func (s *Store) FindOrCreate(ctx context.Context, kind CatalogKind, name string) (int64, error) {
	return findOrCreate(ctx, s.db, kind, name)
}

func findOrCreate(ctx context.Context, q querier, kind CatalogKind, name string) (int64, error) {
	table, ok := catalogTables[kind]
	if !ok {
		return 0, fmt.Errorf("unknown catalog kind: %s", kind)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%s name is required", kind)
	}

	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to query %s: %w", table, err)
	}

	res, err := q.ExecContext(ctx, "INSERT INTO "+table+" (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", table, err)
	}
	return res.LastInsertId()
}

// optionalID 空名称返回 NULL
func optionalID(ctx context.Context, q querier, kind CatalogKind, name string) (sql.NullInt64, error) {
	if strings.TrimSpace(name) == "" {
		return sql.NullInt64{}, nil
	}
	id, err := findOrCreate(ctx, q, kind, name)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

// ListCatalog 列出目录项（按名称排序）
func (s *Store) ListCatalog(ctx context.Context, kind CatalogKind) ([]CatalogItem, error) {
	table, ok := catalogTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown catalog kind: %s", kind)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM "+table+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", table, err)
	}
	defer rows.Close()

	out := []CatalogItem{}
	for rows.Next() {
		var it CatalogItem
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, fmt.Errorf("scan %s failed: %w", table, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
