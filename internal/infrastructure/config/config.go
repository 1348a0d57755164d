package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Reasoning   ReasoningConfig `mapstructure:"reasoning"`
	Analysis    AnalysisConfig  `mapstructure:"analysis"`
	OCR         OCRConfig       `mapstructure:"ocr"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Queue       QueueConfig     `mapstructure:"queue"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Image       ImageConfig     `mapstructure:"image"`
	Database    DatabaseConfig  `mapstructure:"database"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

// ReasoningConfig 推理服務（OpenAI 相容 chat completions）配置
type ReasoningConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Required    bool          `mapstructure:"required"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Referer     string        `mapstructure:"referer"`
	Title       string        `mapstructure:"title"`
}

// AnalysisConfig 分析信心值常數
type AnalysisConfig struct {
	AIConfidence          float64 `mapstructure:"ai_confidence"`
	FallbackConfidence    float64 `mapstructure:"fallback_confidence"`
	DefaultItemConfidence float64 `mapstructure:"default_item_confidence"`
}

// OCRConfig 文字辨識設定
type OCRConfig struct {
	Languages         []string `mapstructure:"languages"`
	MinWordConfidence float64  `mapstructure:"min_word_confidence"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// QueueConfig 推理請求工作池設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// DatabaseConfig 資料庫設定，URL 為空時使用記憶體儲存
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 可有可無，缺少時只依賴環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用的無前綴環境變量
	_ = v.BindEnv("reasoning.api_key", "REASONING_API_KEY", "OPENROUTER_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("reasoning.base_url", "REASONING_BASE_URL")
	_ = v.BindEnv("reasoning.model", "REASONING_MODEL")
	_ = v.BindEnv("reasoning.max_tokens", "MODEL_MAX_TOKENS")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("cache.backend", "CACHE_BACKEND")
	_ = v.BindEnv("cache.redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.port", "PORT")

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration", "reasoning_api_key:", MaskAPIKey(v.GetString("reasoning.api_key")), "reasoning_model:", v.GetString("reasoning.model"))

	return decode(v)
}

// decode 將 viper 內容解析為 Config 並驗證
func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "ingredient-analyzer")

	// 伺服器設定
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000"})

	// 推理服務設定
	v.SetDefault("reasoning.enabled", true)
	v.SetDefault("reasoning.required", false)
	v.SetDefault("reasoning.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("reasoning.model", "llama-3.3-70b-versatile")
	v.SetDefault("reasoning.max_tokens", 2000)
	v.SetDefault("reasoning.temperature", 0.3)
	v.SetDefault("reasoning.timeout", "60s")
	v.SetDefault("reasoning.referer", "https://ingredient-analyzer.local")
	v.SetDefault("reasoning.title", "Ingredient Analyzer")

	// 信心值常數
	v.SetDefault("analysis.ai_confidence", 0.85)
	v.SetDefault("analysis.fallback_confidence", 0.5)
	v.SetDefault("analysis.default_item_confidence", 0.7)

	// OCR 設定
	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("ocr.min_word_confidence", 0.0)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 工作池設定
	v.SetDefault("queue.workers", 5)
	v.SetDefault("queue.max_size", 100)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB

	// 資料庫設定
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ping_timeout", "5s")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Reasoning.Required && strings.TrimSpace(config.Reasoning.APIKey) == "" {
		return fmt.Errorf("reasoning api key is required when reasoning.required is set")
	}
	if config.Reasoning.MaxTokens <= 0 {
		return fmt.Errorf("invalid reasoning max tokens")
	}
	if config.Reasoning.Temperature < 0 || config.Reasoning.Temperature > 2 {
		return fmt.Errorf("invalid reasoning temperature")
	}

	for name, val := range map[string]float64{
		"ai_confidence":           config.Analysis.AIConfidence,
		"fallback_confidence":     config.Analysis.FallbackConfidence,
		"default_item_confidence": config.Analysis.DefaultItemConfidence,
	} {
		if val < 0 || val > 1 {
			return fmt.Errorf("analysis %s must be within [0,1]", name)
		}
	}

	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address is required for redis cache backend")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	return nil
}
