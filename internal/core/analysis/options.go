package analysis

import "ingredient-analyzer/internal/infrastructure/config"

// Options 分析引擎的可調常數
type Options struct {
	// AIConfidence 推理服務成功時的整體信心值
	AIConfidence float64
	// FallbackConfidence 關鍵字分析的單項與整體信心值
	FallbackConfidence float64
	// DefaultItemConfidence 模型未提供單項信心值時的預設
	DefaultItemConfidence float64
	MaxTokens             int
	Temperature           float64
}

// DefaultOptions 預設常數
func DefaultOptions() Options {
	return Options{
		AIConfidence:          0.85,
		FallbackConfidence:    0.5,
		DefaultItemConfidence: 0.7,
		MaxTokens:             2000,
		Temperature:           0.3,
	}
}

// OptionsFromConfig 由應用設定建立 Options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AIConfidence:          cfg.Analysis.AIConfidence,
		FallbackConfidence:    cfg.Analysis.FallbackConfidence,
		DefaultItemConfidence: cfg.Analysis.DefaultItemConfidence,
		MaxTokens:             cfg.Reasoning.MaxTokens,
		Temperature:           cfg.Reasoning.Temperature,
	}
}
