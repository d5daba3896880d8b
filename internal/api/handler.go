package api

import (
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fangcao20/nutrition-app-sub000/internal/importer"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/backup"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/calculator"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/excel"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/matcher"
	"github.com/fangcao20/nutrition-app-sub000/internal/service/usage"
	"github.com/fangcao20/nutrition-app-sub000/internal/store"
)

// downloadTTL 下载令牌有效期
const downloadTTL = 10 * time.Minute

// Options 处理器选项
type Options struct {
	UploadDir   string // 目录导入文件保存位置
	NotFoundDir string // 未匹配导出目录
	UsageSheet  string // 用量表 sheet 名，为空时自动识别
	Workers     int
	EmptyLoss   calculator.EmptyLossPolicy
	Logger      *log.Logger

	// Backups 为 nil 时不提供备份接口；AutoBackup 时在整期替换与目录导入前自动备份
	Backups    *backup.Manager
	AutoBackup bool
}

// Handler API 处理器
type Handler struct {
	store     *store.Store
	engine    *calculator.Engine
	usage     *usage.Service
	importer  *importer.Coordinator
	exporter  *excel.Exporter
	downloads *downloadStore
	opts      Options
	logger    *log.Logger

	// batchMu 同一时刻只允许一个批次计算或保存
	batchMu sync.Mutex
	now     func() time.Time
}

// NewHandler 创建 API 处理器
func NewHandler(st *store.Store, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.EmptyLoss == "" {
		opts.EmptyLoss = calculator.EmptyLossZero
	}

	engine := calculator.NewEngine(opts.EmptyLoss)
	svc := usage.NewService(matcher.New(st, opts.Logger), engine, usage.Options{
		Workers: opts.Workers,
		Logger:  opts.Logger,
	})

	return &Handler{
		store:     st,
		engine:    engine,
		usage:     svc,
		importer:  importer.NewCoordinator(st),
		exporter:  excel.NewExporter(),
		downloads: newDownloadStore(),
		opts:      opts,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 食品目录
	router.GET("/foods", h.ListFoods)
	router.POST("/foods", h.CreateFood)
	router.POST("/foods/import", h.ImportFoods)
	router.GET("/foods/:id", h.GetFood)
	router.PATCH("/foods/:id", h.UpdateFood)
	router.POST("/foods/:id/active", h.SetFoodActive)

	// 目录字典
	router.GET("/catalog/:kind", h.ListCatalog)

	// 用量计算与保存
	router.POST("/usage/calculate", h.CalculateUsage)
	router.POST("/usage/save", h.SaveUsage)
	router.GET("/usage/periods", h.ListPeriods)
	router.GET("/usage", h.ListUsage)

	// 报表
	router.GET("/reports/:kind", h.GetReport)
	router.GET("/reports/:kind/export", h.ExportReport)

	// 文件下载
	router.GET("/export/download/:token", h.DownloadExport)

	// 数据库备份
	router.GET("/backups", h.ListBackups)
	router.POST("/backups", h.CreateBackup)
	router.GET("/backups/:id/download", h.DownloadBackup)
}
