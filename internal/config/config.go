package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/fangcao20/nutrition-app-sub000/internal/service/calculator"
)

// AppConfig 应用配置
type AppConfig struct {
	Server      ServerConfig      `toml:"server"`
	Data        DataConfig        `toml:"data"`
	Calculation CalculationConfig `toml:"calculation"`
	Excel       ExcelConfig       `toml:"excel"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir    string `toml:"data_dir"`
	AutoBackup bool   `toml:"auto_backup"`
}

// CalculationConfig 用量计算配置
type CalculationConfig struct {
	// EmptyLossPolicy 损耗比例为空时剩余热量的取值："zero" 或 "total"
	EmptyLossPolicy string `toml:"empty_loss_policy"`
	// Workers 批量匹配并行度，1 为顺序执行
	Workers int `toml:"workers"`
}

// ExcelConfig Excel 导入导出配置
type ExcelConfig struct {
	UsageSheet  string `toml:"usage_sheet"`   // 为空时自动识别
	NotFoundDir string `toml:"not_found_dir"` // 相对数据目录
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
	Path          string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:    "data",
			AutoBackup: true,
		},
		Calculation: CalculationConfig{
			EmptyLossPolicy: string(calculator.EmptyLossZero),
			Workers:         1,
		},
		Excel: ExcelConfig{
			NotFoundDir: "exports",
		},
	}
}

// Validate 校验配置取值
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if _, err := calculator.ParseEmptyLossPolicy(c.Calculation.EmptyLossPolicy); err != nil {
		return fmt.Errorf("calculation.empty_loss_policy: %w", err)
	}
	if c.Calculation.Workers < 1 {
		c.Calculation.Workers = 1
	}
	return nil
}

// LossPolicy 返回解析后的空损耗策略
func (c *AppConfig) LossPolicy() calculator.EmptyLossPolicy {
	p, err := calculator.ParseEmptyLossPolicy(c.Calculation.EmptyLossPolicy)
	if err != nil {
		return calculator.EmptyLossZero
	}
	return p
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func exeDirOrCwd() string {
	dir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		return "."
	}
	return dir
}

// LoadConfigWithInfo 从可执行文件目录加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadFrom(exeDirOrCwd())
}

// LoadFrom 从 dir 加载 .env 与 config.toml，环境变量覆盖文件配置
// 两个文件都是可选的。
func LoadFrom(dir string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: filepath.Join(dir, "config.toml")}
	config := DefaultConfig()

	// .env 不覆盖已存在的环境变量
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, info, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(info.Path)
	switch {
	case err == nil:
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", info.Path, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	if err := applyEnv(config, &info); err != nil {
		return nil, info, err
	}
	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖（用于 E2E / 本地运行）
func applyEnv(config *AppConfig, info *LoadConfigInfo) error {
	if v := os.Getenv("NUTRIFLOW_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("NUTRIFLOW_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NUTRIFLOW_PORT: %w", err)
		}
		config.Server.Port = port
		info.PortSpecified = true
	}
	if v := os.Getenv("NUTRIFLOW_EMPTY_LOSS_POLICY"); v != "" {
		config.Calculation.EmptyLossPolicy = v
	}
	return nil
}

// SaveTo 保存配置到 dir/config.toml
func SaveTo(dir string, config *AppConfig) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0644)
}

// ResolveDataDir 数据目录：绝对路径原样使用，相对路径基于可执行文件目录
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	return filepath.Join(exeDirOrCwd(), config.Data.DataDir)
}

// EnsureDataDir 确保数据目录及子目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	subdirs := []string{"uploads", "exports", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// DatabaseFile 数据目录下的 SQLite 文件名
const DatabaseFile = "nutriflow.db"

// DatabasePath SQLite 数据库路径
func DatabasePath(config *AppConfig) string {
	return filepath.Join(ResolveDataDir(config), DatabaseFile)
}

// NotFoundDir 未匹配导出目录
func NotFoundDir(config *AppConfig) string {
	if filepath.IsAbs(config.Excel.NotFoundDir) {
		return config.Excel.NotFoundDir
	}
	return filepath.Join(ResolveDataDir(config), config.Excel.NotFoundDir)
}
