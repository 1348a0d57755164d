package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"ingredient-analyzer/internal/core/ai/queue"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Reasoning ReasoningStatus        `json:"reasoning"`
	OCR       bool                   `json:"ocr_available"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// ReasoningStatus 推理服務狀態
type ReasoningStatus struct {
	Enabled     bool   `json:"enabled"`
	Initialized bool   `json:"initialized"`
	Model       string `json:"model,omitempty"`
}

// QueueReporter 回報工作池狀態
type QueueReporter interface {
	GetQueueStatus() *queue.Status
}

// CacheReporter 回報快取統計
type CacheReporter interface {
	Stats(ctx context.Context) map[string]interface{}
}

// Pinger 檢查外部依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies 健康檢查所需的元件，皆可為 nil
type Dependencies struct {
	Version          string
	ReasoningEnabled bool
	Model            string
	// ReasoningReady 回報推理提供者是否已建立
	ReasoningReady func() bool
	OCRAvailable   bool
	Queue          QueueReporter
	Cache          CacheReporter
	Store          Pinger
}

// Handler 健康檢查處理器
type Handler struct {
	deps Dependencies
}

// NewHandler 創建健康檢查處理器
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

// HealthCheck GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.deps.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Reasoning: ReasoningStatus{
			Enabled: h.deps.ReasoningEnabled,
			Model:   h.deps.Model,
		},
		OCR: h.deps.OCRAvailable,
	}
	if h.deps.ReasoningReady != nil {
		response.Reasoning.Initialized = h.deps.ReasoningReady()
	}
	if h.deps.Queue != nil {
		response.Queue = h.deps.Queue.GetQueueStatus()
	}
	if h.deps.Cache != nil {
		response.Cache = h.deps.Cache.Stats(c.Request.Context())
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck GET /ready，儲存層無法連線時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.deps.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Store.Ping(ctx); err != nil {
			common.LogWarn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "store unavailable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck GET /live
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
