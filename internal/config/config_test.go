package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fangcao20/nutrition-app-sub000/internal/service/calculator"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("NUTRIFLOW_PORT", "")
	t.Setenv("NUTRIFLOW_DATA_DIR", "")
	t.Setenv("NUTRIFLOW_EMPTY_LOSS_POLICY", "")

	cfg, info, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if info.PortSpecified {
		t.Errorf("port should not be marked as specified")
	}
	if cfg.Server.Port != DefaultConfig().Server.Port || cfg.Calculation.Workers != 1 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LossPolicy() != calculator.EmptyLossZero {
		t.Errorf("default loss policy = %s", cfg.LossPolicy())
	}
}

func TestLoadFrom_TomlAndEnvOverrides(t *testing.T) {
	t.Setenv("NUTRIFLOW_PORT", "")
	t.Setenv("NUTRIFLOW_DATA_DIR", "")
	t.Setenv("NUTRIFLOW_EMPTY_LOSS_POLICY", "")

	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[server]
port = 21000

[calculation]
empty_loss_policy = "total"
workers = 4

[excel]
usage_sheet = "Usage"
`)

	cfg, info, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if !info.PortSpecified || cfg.Server.Port != 21000 {
		t.Errorf("port = %d specified=%v", cfg.Server.Port, info.PortSpecified)
	}
	if cfg.LossPolicy() != calculator.EmptyLossTotal || cfg.Calculation.Workers != 4 {
		t.Errorf("calculation = %+v", cfg.Calculation)
	}
	if cfg.Excel.UsageSheet != "Usage" || cfg.Excel.NotFoundDir != "exports" {
		t.Errorf("excel = %+v", cfg.Excel)
	}

	t.Setenv("NUTRIFLOW_EMPTY_LOSS_POLICY", "zero")
	t.Setenv("NUTRIFLOW_DATA_DIR", filepath.Join(dir, "store"))
	cfg, _, err = LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.LossPolicy() != calculator.EmptyLossZero {
		t.Errorf("env override ignored: %s", cfg.Calculation.EmptyLossPolicy)
	}
	if ResolveDataDir(cfg) != filepath.Join(dir, "store") {
		t.Errorf("data dir = %s", ResolveDataDir(cfg))
	}
}

func TestLoadFrom_DotEnv(t *testing.T) {
	t.Setenv("NUTRIFLOW_PORT", "")
	t.Setenv("NUTRIFLOW_DATA_DIR", "")
	t.Setenv("NUTRIFLOW_EMPTY_LOSS_POLICY", "")
	// godotenv 不覆盖已存在的变量，先清除
	os.Unsetenv("NUTRIFLOW_PORT")

	dir := t.TempDir()
	writeFile(t, dir, ".env", "NUTRIFLOW_PORT=23456\n")
	t.Cleanup(func() { os.Unsetenv("NUTRIFLOW_PORT") })

	cfg, info, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != 23456 || !info.PortSpecified {
		t.Errorf("port = %d specified=%v", cfg.Server.Port, info.PortSpecified)
	}
}

func TestLoadFrom_InvalidPolicy(t *testing.T) {
	t.Setenv("NUTRIFLOW_PORT", "")
	t.Setenv("NUTRIFLOW_EMPTY_LOSS_POLICY", "sometimes")

	if _, _, err := LoadFrom(t.TempDir()); err == nil {
		t.Fatal("expected invalid policy error")
	}
}

func TestEnsureDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.DataDir = filepath.Join(t.TempDir(), "data")

	dir, err := EnsureDataDir(cfg)
	if err != nil {
		t.Fatalf("EnsureDataDir: %v", err)
	}
	for _, sub := range []string{"uploads", "exports", "backups"} {
		if st, err := os.Stat(filepath.Join(dir, sub)); err != nil || !st.IsDir() {
			t.Errorf("missing %s: %v", sub, err)
		}
	}
	if NotFoundDir(cfg) != filepath.Join(dir, "exports") {
		t.Errorf("not found dir = %s", NotFoundDir(cfg))
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	t.Setenv("NUTRIFLOW_DATA_DIR", "")
	t.Setenv("NUTRIFLOW_PORT", "")
	t.Setenv("NUTRIFLOW_EMPTY_LOSS_POLICY", "")

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Calculation.EmptyLossPolicy = "total"
	cfg.Calculation.Workers = 4
	if err := SaveTo(dir, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, info, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	// 写出的文件包含 port，视为显式指定
	if !info.PortSpecified || got.Calculation.Workers != 4 || got.LossPolicy() != "total" {
		t.Errorf("got %+v info=%+v", got, info)
	}
	if DatabasePath(got) != filepath.Join(ResolveDataDir(got), DatabaseFile) {
		t.Errorf("database path = %s", DatabasePath(got))
	}
}
