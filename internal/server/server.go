package server

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/fangcao20/nutrition-app-sub000/internal/api"
	"github.com/fangcao20/nutrition-app-sub000/internal/config"
	"github.com/fangcao20/nutrition-app-sub000/internal/metrics"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/backup"
	"github.com/fangcao20/nutrition-app-sub000/internal/store"
)

//go:embed all:dist
var staticFiles embed.FS

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	handler http.Handler
	store   *store.Store
	api     *api.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}

	sqliteStore, err := store.New(filepath.Join(dataDir, config.DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	backups, err := backup.NewManager(filepath.Join(dataDir, "backups"), sqliteStore, backup.DefaultKeep)
	if err != nil {
		sqliteStore.Close()
		return nil, err
	}

	handler := api.NewHandler(sqliteStore, api.Options{
		UploadDir:   filepath.Join(dataDir, "uploads"),
		NotFoundDir: config.NotFoundDir(cfg),
		UsageSheet:  cfg.Excel.UsageSheet,
		Workers:     cfg.Calculation.Workers,
		EmptyLoss:   cfg.LossPolicy(),
		Backups:     backups,
		AutoBackup:  cfg.Data.AutoBackup,
	})

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
		api:    handler,
	}

	s.setupRoutes(devMode)

	// 只允许本机页面跨域访问 API
	s.handler = cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.Server.Port, devMode),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}).Handler(s.router)

	return s, nil
}

// devServerPort 前端开发服务器端口
const devServerPort = 5173

// allowedOrigins 本机服务地址，开发模式追加前端开发服务器
func allowedOrigins(port int, devMode bool) []string {
	ports := []int{port}
	if devMode {
		ports = append(ports, devServerPort)
	}
	origins := make([]string, 0, 2*len(ports))
	for _, p := range ports {
		origins = append(origins,
			fmt.Sprintf("http://localhost:%d", p),
			fmt.Sprintf("http://127.0.0.1:%d", p),
		)
	}
	return origins
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	s.router.Use(metricsMiddleware())

	// API 路由
	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 静态资源
	if devMode {
		// 开发模式：代理到前端开发服务器
		s.router.NoRoute(func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("http://localhost:%d%s", devServerPort, c.Request.URL.Path))
		})
		return
	}

	// 生产模式：使用embed的静态资源
	sub, _ := fs.Sub(staticFiles, "dist")

	assetsSub, _ := fs.Sub(sub, "assets")
	s.router.StaticFS("/assets", http.FS(assetsSub))

	index := func(c *gin.Context) {
		data, err := fs.ReadFile(sub, "index.html")
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	}

	// 首页
	s.router.GET("/", index)

	// SPA 路由 fallback，未知 API 路径仍返回 JSON 404
	s.router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
			return
		}
		index(c)
	})
}

// metricsMiddleware 按路由模板记录请求数与耗时
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler 返回带 CORS 的 http.Handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// Close 关闭数据库连接
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
