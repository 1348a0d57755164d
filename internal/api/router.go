package api

import (
	"time"

	"ingredient-analyzer/internal/api/handlers/analysis"
	"ingredient-analyzer/internal/api/handlers/health"
	"ingredient-analyzer/internal/api/handlers/preferences"
	"ingredient-analyzer/internal/api/middleware"
	"ingredient-analyzer/internal/core/history"
	"ingredient-analyzer/internal/core/image"
	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart 表單本身的額外空間
const formOverhead = 1 << 20

// Dependencies 路由所需的服務
type Dependencies struct {
	Labels      analysis.LabelAnalyzer
	Records     history.Repository
	Preferences history.PreferenceRepository
	Images      *image.Service
	Health      health.Dependencies
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 健康檢查路由不受限流影響
	healthHandler := health.NewHandler(deps.Health)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	api.Use(middleware.BodySizeLimit(cfg.Image.MaxSizeBytes + formOverhead))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if cfg.DedupWindow > 0 {
		api.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())
	}
	if cfg.Server.RequestTimeout > 0 {
		api.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}
	{
		analysisHandler := analysis.NewHandler(deps.Labels, deps.Records, deps.Images, cfg.App.Debug)
		api.POST("/analyze", analysisHandler.AnalyzeImage)
		api.POST("/analyze/text", analysisHandler.AnalyzeText)
		api.GET("/history/:session_id", analysisHandler.History)

		preferencesHandler := preferences.NewHandler(deps.Preferences, cfg.App.Debug)
		prefGroup := api.Group("/preferences")
		{
			prefGroup.POST("", preferencesHandler.Upsert)
			prefGroup.GET("/:session_id", preferencesHandler.Get)
			prefGroup.DELETE("/:session_id", preferencesHandler.Delete)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Int64("max_image_size", cfg.Image.MaxSizeBytes),
		zap.Strings("allow_origins", cfg.Server.AllowOrigins),
	)

	return router
}
