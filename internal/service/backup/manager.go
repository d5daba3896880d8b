package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const schemaVersion = 1

// DefaultKeep 默认保留的备份数量
const DefaultKeep = 10

// Snapshotter 能将数据库一致地复制到指定路径
type Snapshotter interface {
	BackupTo(ctx context.Context, path string) error
}

// Entry 单个备份
type Entry struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	Reason    string    `json:"reason"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Index 备份索引文件：backups/backups.json
type Index struct {
	SchemaVersion int     `json:"schemaVersion"`
	Items         []Entry `json:"items"`
}

// Manager 数据库备份管理：创建快照、维护索引并清理旧备份
type Manager struct {
	dir  string
	src  Snapshotter
	keep int
	now  func() time.Time

	mu    sync.Mutex
	index Index
}

// NewManager 创建备份管理器，keep <= 0 时使用 DefaultKeep
func NewManager(dir string, src Snapshotter, keep int) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("backup dir is required")
	}
	if src == nil {
		return nil, errors.New("backup source is required")
	}
	if keep <= 0 {
		keep = DefaultKeep
	}

	m := &Manager{
		dir:  dir,
		src:  src,
		keep: keep,
		now:  time.Now,
		index: Index{
			SchemaVersion: schemaVersion,
			Items:         []Entry{},
		},
	}
	if err := m.loadIndex(); err != nil {
		return nil, fmt.Errorf("load backup index: %w", err)
	}
	return m, nil
}

func (m *Manager) indexPath() string {
	return filepath.Join(m.dir, "backups.json")
}

func (m *Manager) loadIndex() error {
	path := m.indexPath()
	if !fileExists(path) {
		return writeJSONAtomic(path, m.index)
	}
	var idx Index
	if err := readJSON(path, &idx); err != nil {
		return err
	}
	if idx.SchemaVersion == 0 {
		idx.SchemaVersion = schemaVersion
	}
	if idx.Items == nil {
		idx.Items = []Entry{}
	}
	m.index = idx
	return nil
}

// Create 创建一次备份
func (m *Manager) Create(ctx context.Context, reason string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	id := uuid.NewString()
	name := fmt.Sprintf("nutriflow_%s_%s.db", now.Format("20060102_150405"), id[:8])
	path := filepath.Join(m.dir, name)

	if err := ensureDir(m.dir); err != nil {
		return Entry{}, err
	}
	if err := m.src.BackupTo(ctx, path); err != nil {
		_ = os.Remove(path)
		return Entry{}, fmt.Errorf("snapshot database: %w", err)
	}

	entry := Entry{ID: id, FileName: name, Reason: reason, CreatedAt: now}
	if info, err := os.Stat(path); err == nil {
		entry.Size = info.Size()
	}

	m.index.Items = append(m.index.Items, entry)
	m.pruneLocked()
	if err := writeJSONAtomic(m.indexPath(), m.index); err != nil {
		return entry, fmt.Errorf("save backup index: %w", err)
	}
	return entry, nil
}

// List 返回备份列表（最新在前）
func (m *Manager) List() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]Entry(nil), m.index.Items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Path 返回备份文件路径
func (m *Manager) Path(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.index.Items {
		if e.ID == id {
			return filepath.Join(m.dir, e.FileName), true
		}
	}
	return "", false
}

// pruneLocked 超出保留数量时删除最旧的备份
func (m *Manager) pruneLocked() {
	if len(m.index.Items) <= m.keep {
		return
	}
	sort.SliceStable(m.index.Items, func(i, j int) bool {
		return m.index.Items[i].CreatedAt.Before(m.index.Items[j].CreatedAt)
	})
	drop := len(m.index.Items) - m.keep
	for _, e := range m.index.Items[:drop] {
		if err := os.Remove(filepath.Join(m.dir, e.FileName)); err != nil && !os.IsNotExist(err) {
			log.Printf("backup: remove %s: %v", e.FileName, err)
		}
	}
	m.index.Items = append([]Entry{}, m.index.Items[drop:]...)
}
