package analysis

import (
	"context"
	"errors"
	"time"

	"ingredient-analyzer/internal/pkg/common"

	"go.uber.org/zap"
)

// StageQueue 推理工作無法排入工作池
const StageQueue Stage = "queue"

// Executor 限制同時進行的推理請求數量
type Executor interface {
	Do(ctx context.Context, job func(ctx context.Context)) error
}

// Service 成分分析服務：推理成功回傳 AI 結果，任何失敗都改用關鍵字分析
type Service struct {
	reasoner *Reasoner
	executor Executor
	opts     Options
}

// NewService 創建分析服務；reasoner 為 nil 時永遠使用關鍵字分析，executor 可為 nil
func NewService(reasoner *Reasoner, executor Executor, opts Options) *Service {
	return &Service{
		reasoner: reasoner,
		executor: executor,
		opts:     opts,
	}
}

// Analyze 分析成分清單；只有清單為空時回傳錯誤
func (s *Service) Analyze(ctx context.Context, ingredients []string, prefs *Preferences) (*Result, error) {
	if len(ingredients) == 0 {
		return nil, common.ErrNoIngredients
	}

	start := time.Now()
	result, err := s.reason(ctx, ingredients, prefs)
	if err != nil {
		logFallback(err, len(ingredients))
		result = BasicAnalysis(ingredients, s.opts.FallbackConfidence)
	}
	result = Normalize(result)

	common.LogInfo("分析完成",
		zap.String("source", string(result.Source)),
		zap.Int("ingredients", len(result.Ingredients)),
		zap.String("overall_rating", string(result.OverallRating)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// reason 在工作池中執行推理，並將 panic 轉成錯誤
func (s *Service) reason(ctx context.Context, ingredients []string, prefs *Preferences) (*Result, error) {
	if s.reasoner == nil {
		return nil, &ReasoningError{Stage: StageAcquire, Err: common.NewConfigurationError("reasoning")}
	}
	if s.executor == nil {
		return s.reasonSafely(ctx, ingredients, prefs)
	}

	var (
		result *Result
		err    error
	)
	if qErr := s.executor.Do(ctx, func(jobCtx context.Context) {
		result, err = s.reasonSafely(jobCtx, ingredients, prefs)
	}); qErr != nil {
		return nil, &ReasoningError{Stage: StageQueue, Err: qErr}
	}
	if result == nil && err == nil {
		return nil, &ReasoningError{Stage: StageQueue, Err: errors.New("job finished without result")}
	}
	return result, err
}

func (s *Service) reasonSafely(ctx context.Context, ingredients []string, prefs *Preferences) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &ReasoningError{Stage: StageValidate, Err: errors.New("panic during reasoning")}
			common.LogError("Panic recovered in reasoning", zap.Any("panic", rec))
		}
	}()
	return s.reasoner.Reason(ctx, ingredients, prefs)
}

func logFallback(err error, count int) {
	stage := Stage("unknown")
	var re *ReasoningError
	if errors.As(err, &re) {
		stage = re.Stage
	}
	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.Int("ingredients", count),
		zap.Error(err),
	}
	if common.IsConfigurationError(err) {
		common.LogDebug("Reasoning not configured, using keyword analysis", fields...)
		return
	}
	common.LogWarn("Reasoning failed, using keyword analysis", fields...)
}
