package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ingredient-analyzer/internal/api"
	"ingredient-analyzer/internal/api/handlers/health"
	"ingredient-analyzer/internal/core/ai/cache"
	"ingredient-analyzer/internal/core/ai/openrouter"
	"ingredient-analyzer/internal/core/ai/provider"
	"ingredient-analyzer/internal/core/ai/queue"
	"ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/core/history"
	"ingredient-analyzer/internal/core/image"
	"ingredient-analyzer/internal/core/label"
	"ingredient-analyzer/internal/core/ocr"
	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/infrastructure/database"
	"ingredient-analyzer/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if err := run(cfg); err != nil {
		common.LogError("Server exited with error", zap.Error(err))
		common.Sync()
		os.Exit(1)
	}
}

// run 建立所有元件並服務到收到中斷信號；回傳前會依序關閉已建立的資源
func run(cfg *config.Config) error {
	// 使用 logger 記錄啟動信息
	common.LogInfo("載入設定",
		zap.String("reasoning_api_key", config.MaskAPIKey(cfg.Reasoning.APIKey)),
		zap.String("reasoning_model", cfg.Reasoning.Model),
		zap.Bool("reasoning_enabled", cfg.Reasoning.Enabled),
		zap.Bool("ocr_available", ocr.Available),
	)

	ctx := context.Background()

	// 初始化快取
	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	// 推理請求工作池
	queueManager := queue.NewManager(cfg)
	queueManager.Start()
	defer queueManager.Close()

	// 推理服務延遲初始化；停用時只使用關鍵字分析
	var reasoner *analysis.Reasoner
	var providers *provider.Lazy
	if cfg.Reasoning.Enabled {
		providers = provider.NewLazy(openrouter.NewFactory(openrouter.ConfigFrom(cfg)))
		defer providers.Close()

		if cfg.Reasoning.Required {
			if _, err := providers.Get(); err != nil {
				return fmt.Errorf("initialize reasoning provider: %w", err)
			}
		}

		var resultCache analysis.Cache
		if store != nil {
			resultCache = store
		}
		reasoner = analysis.NewReasoner(providers, resultCache, analysis.OptionsFromConfig(cfg))
	}
	analyzer := analysis.NewService(reasoner, queueManager, analysis.OptionsFromConfig(cfg))

	// 儲存層：未設定資料庫時使用記憶體
	records, preferences, pinger, db, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	images := image.NewService(cfg.Image.MaxSizeBytes)
	labels := label.NewService(images, ocr.NewTesseract(cfg.OCR), analyzer, records, preferences)

	healthDeps := health.Dependencies{
		Version:          cfg.App.Version,
		ReasoningEnabled: cfg.Reasoning.Enabled,
		Model:            cfg.Reasoning.Model,
		OCRAvailable:     ocr.Available,
		Queue:            queueManager,
		Store:            pinger,
	}
	if providers != nil {
		healthDeps.ReasoningReady = providers.Initialized
	}
	if store != nil {
		healthDeps.Cache = store
	}

	// 設置路由
	router := api.SetupRouter(cfg, api.Dependencies{
		Labels:      labels,
		Records:     records,
		Preferences: preferences,
		Images:      images,
		Health:      healthDeps,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	serveErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// 等待中斷信號或啟動失敗
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("start server: %w", err)
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
	return nil
}

// openStores 有 DATABASE_URL 時連線 Postgres，否則使用記憶體儲存
func openStores(ctx context.Context, cfg *config.Config) (history.Repository, history.PreferenceRepository, health.Pinger, *sql.DB, error) {
	if cfg.Database.URL == "" {
		common.LogWarn("DATABASE_URL not set, using in-memory store")
		mem := history.NewMemoryStore()
		return mem, mem, nil, nil, nil
	}

	db, err := database.Connect(ctx, cfg.Database.URL, database.OptionsFromConfig(cfg.Database))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pg := &history.PGStore{DB: db}
	return pg, pg, pg, db, nil
}
