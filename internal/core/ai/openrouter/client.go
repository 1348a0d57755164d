package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ingredient-analyzer/internal/core/ai/provider"
	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 60 * time.Second
	// 日誌中保留的回應內容長度上限
	maxLoggedBody = 512
)

// Client OpenAI 相容 chat completions 客戶端（OpenRouter、Groq 等）
type Client struct {
	client *resty.Client
	config provider.Config
}

// chatRequest 表示 API 請求
type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []provider.Message `json:"messages"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    float64            `json:"temperature"`
	ResponseFormat *responseFormat    `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse 響應結構
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message provider.Message `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
	Error *apiError      `json:"error,omitempty"`
}

// apiError 表示 API 錯誤
type apiError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"`
}

// StatusError 非 200 回應
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reasoning service error (status %d): %s", e.StatusCode, e.Body)
}

// ConfigFrom 由應用設定組出提供者設定
func ConfigFrom(cfg *config.Config) provider.Config {
	return provider.Config{
		APIKey:  cfg.Reasoning.APIKey,
		Model:   cfg.Reasoning.Model,
		Timeout: cfg.Reasoning.Timeout,
		BaseURL: cfg.Reasoning.BaseURL,
		Referer: cfg.Reasoning.Referer,
		Title:   cfg.Reasoning.Title,
	}
}

// NewFactory 回傳供 provider.Lazy 使用的建構函式
func NewFactory(cfg provider.Config) provider.Factory {
	return func() (provider.Provider, error) {
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// NewClient 創建新的客戶端；缺少金鑰時回傳設定錯誤
func NewClient(cfg provider.Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.NewConfigurationError("REASONING_API_KEY")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, common.NewConfigurationError("REASONING_MODEL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	if cfg.Referer != "" {
		client.SetHeader("HTTP-Referer", cfg.Referer)
	}
	if cfg.Title != "" {
		client.SetHeader("X-Title", cfg.Title)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// Generate 發送 chat completion 請求並回傳第一個 choice 的內容
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := chatRequest{
		Model:       c.config.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONOnly {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	common.LogDebug("Sending request to reasoning service",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
		zap.Int("max_tokens", body.MaxTokens),
		zap.Bool("json_only", req.JSONOnly),
	)

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("reasoning request timeout: %w", err)
		} else {
			err = fmt.Errorf("failed to send request: %w", err)
		}
		common.LogAICall(body.Model, time.Since(start), err)
		return nil, err
	}

	if resp.StatusCode() != http.StatusOK {
		err := &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String())}
		common.LogAICall(body.Model, time.Since(start), err)
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w (response: %s)", err, truncate(resp.String()))
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("reasoning service error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content in response")
	}

	common.LogAICall(body.Model, time.Since(start), nil)
	common.LogDebug("Reasoning usage",
		zap.Int("prompt_tokens", parsed.Usage.PromptTokens),
		zap.Int("completion_tokens", parsed.Usage.CompletionTokens),
		zap.Int("total_tokens", parsed.Usage.TotalTokens),
	)

	model := parsed.Model
	if model == "" {
		model = c.config.Model
	}
	return &provider.Response{
		Content: content,
		Model:   model,
		Usage:   parsed.Usage,
	}, nil
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.config.Timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "..."
}
