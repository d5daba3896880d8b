package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fangcao20/nutrition-app-sub000/internal/config"
	"github.com/fangcao20/nutrition-app-sub000/internal/server"
	"github.com/fangcao20/nutrition-app-sub000/internal/util"
)

var (
	port    = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode = flag.Bool("dev", false, "开发模式")
	dataDir = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  NutriFlow - nutrition usage calculator")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	} else if _, err := os.Stat(info.Path); os.IsNotExist(err) {
		// 首次运行写出默认配置，便于用户修改
		if err := config.SaveTo(filepath.Dir(info.Path), config.DefaultConfig()); err != nil {
			log.Printf("failed to write default config: %v", err)
		}
	}

	// 命令行参数覆盖配置
	if !info.PortSpecified {
		if *port > 0 {
			cfg.Server.Port = *port
		}
		// 未显式指定端口时避开被占用的端口
		cfg.Server.Port = util.FindAvailablePort(cfg.Server.Port, 20)
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	fmt.Printf("Data directory: %s\n", config.ResolveDataDir(cfg))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	go func() {
		fmt.Printf("Listening on port %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	if !cfg.Server.DevMode {
		fmt.Printf("Opening browser: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("Could not open a browser, please visit %s\n", url)
		}
	} else {
		fmt.Printf("Dev mode: visit %s\n", url)
	}

	fmt.Println("\nPress Ctrl+C to stop...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	if err := srv.Close(); err != nil {
		log.Printf("close database: %v", err)
	}
}
