package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ingredient-analyzer/internal/core/ai/provider"
	"ingredient-analyzer/internal/pkg/common"

	"go.uber.org/zap"
)

// Stage 推理流程的階段，用於標記失敗位置
type Stage string

const (
	StageAcquire  Stage = "acquire"
	StageRequest  Stage = "request"
	StageParse    Stage = "parse"
	StageValidate Stage = "validate"
)

// ReasoningError 推理任一階段失敗；呼叫端一律改走關鍵字分析
type ReasoningError struct {
	Stage Stage
	Err   error
}

func (e *ReasoningError) Error() string {
	return fmt.Sprintf("reasoning %s failed: %v", e.Stage, e.Err)
}

func (e *ReasoningError) Unwrap() error {
	return e.Err
}

// Cache 推理結果快取，值為模型原始輸出
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Reasoner 呼叫推理服務並驗證輸出
type Reasoner struct {
	providers *provider.Lazy
	cache     Cache
	opts      Options
}

// NewReasoner 創建推理客戶端；cache 可為 nil
func NewReasoner(providers *provider.Lazy, cache Cache, opts Options) *Reasoner {
	return &Reasoner{
		providers: providers,
		cache:     cache,
		opts:      opts,
	}
}

// Reason 執行 acquire → request → parse → validate；失敗時回傳 *ReasoningError
func (r *Reasoner) Reason(ctx context.Context, ingredients []string, prefs *Preferences) (*Result, error) {
	p, err := r.providers.Get()
	if err != nil {
		return nil, &ReasoningError{Stage: StageAcquire, Err: err}
	}

	prompt := BuildPrompt(ingredients, prefs)
	key := cacheKey(p.GetModel(), prompt)

	content, cached := r.lookup(ctx, key)
	if !cached {
		resp, err := p.Generate(ctx, &provider.Request{
			Messages: []provider.Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: prompt},
			},
			MaxTokens:   r.opts.MaxTokens,
			Temperature: r.opts.Temperature,
			JSONOnly:    true,
		})
		if err != nil {
			return nil, &ReasoningError{Stage: StageRequest, Err: err}
		}
		content = resp.Content
	}

	doc, err := parseCompletion(content)
	if err != nil {
		return nil, &ReasoningError{Stage: StageParse, Err: err}
	}

	result, err := r.validate(doc)
	if err != nil {
		return nil, &ReasoningError{Stage: StageValidate, Err: err}
	}

	if !cached {
		r.store(ctx, key, content)
	}
	return result, nil
}

func (r *Reasoner) lookup(ctx context.Context, key string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	val, err := r.cache.Get(ctx, key)
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

func (r *Reasoner) store(ctx context.Context, key, content string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, content); err != nil {
		common.LogWarn("Failed to cache reasoning result", zap.Error(err))
	}
}

func cacheKey(model, prompt string) string {
	return "analysis:" + common.HashString(model+"\x00"+prompt)
}

// parseCompletion 解析模型輸出為 JSON 物件
func parseCompletion(content string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := common.ParseJSON(common.ExtractJSONObject(content), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON completion: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("completion is not a JSON object")
	}
	return doc, nil
}

// validate 依固定 schema 取出欄位；單一成分格式錯誤只跳過該項
func (r *Reasoner) validate(doc map[string]interface{}) (*Result, error) {
	rawItems, err := optionalArray(doc, "ingredients")
	if err != nil {
		return nil, err
	}
	overall, err := optionalString(doc, "overall_rating", string(OverallUnknown))
	if err != nil {
		return nil, err
	}
	recommendations, err := optionalStrings(doc, "recommendations")
	if err != nil {
		return nil, err
	}
	warnings, err := optionalStrings(doc, "warnings")
	if err != nil {
		return nil, err
	}

	assessments := make([]IngredientAssessment, 0, len(rawItems))
	for i, raw := range rawItems {
		item, err := r.coerceAssessment(raw)
		if err != nil {
			common.LogDebug("Skipping malformed ingredient",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		assessments = append(assessments, item)
	}

	return &Result{
		Ingredients:     assessments,
		OverallRating:   OverallRating(overall),
		Recommendations: recommendations,
		Warnings:        warnings,
		ConfidenceScore: r.opts.AIConfidence,
		Source:          SourceAI,
	}, nil
}

func (r *Reasoner) coerceAssessment(raw interface{}) (IngredientAssessment, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return IngredientAssessment{}, fmt.Errorf("ingredient is %T, not an object", raw)
	}

	var a IngredientAssessment
	var err error
	if a.Name, err = requiredString(obj, "name", unknownIngredientName); err != nil {
		return a, err
	}
	category, err := nullableString(obj, "category")
	if err != nil {
		return a, err
	}
	if category != nil {
		a.Category = categoryPtr(Category(*category))
	}
	if a.Description, err = nullableString(obj, "description"); err != nil {
		return a, err
	}
	rating, err := requiredString(obj, "safety_rating", string(SafetyUnknown))
	if err != nil {
		return a, err
	}
	a.SafetyRating = SafetyRating(rating)
	if a.HealthEffects, err = optionalStrings(obj, "health_effects"); err != nil {
		return a, err
	}
	if a.Allergen, err = optionalBool(obj, "allergen"); err != nil {
		return a, err
	}
	if a.Confidence, err = optionalNumber(obj, "confidence", r.opts.DefaultItemConfidence); err != nil {
		return a, err
	}
	return a, nil
}

// optionalArray 欄位缺少或為 null 時回傳空陣列
func optionalArray(obj map[string]interface{}, key string) ([]interface{}, error) {
	val, ok := obj[key]
	if !ok || val == nil {
		return []interface{}{}, nil
	}
	arr, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array, got %T", key, val)
	}
	return arr, nil
}

func optionalStrings(obj map[string]interface{}, key string) ([]string, error) {
	arr, err := optionalArray(obj, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string, got %T", key, i, v)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalString(obj map[string]interface{}, key, def string) (string, error) {
	val, ok := obj[key]
	if !ok || val == nil {
		return def, nil
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, val)
	}
	return s, nil
}

// requiredString 缺少時使用預設值，但明確的 null 視為格式錯誤
func requiredString(obj map[string]interface{}, key, def string) (string, error) {
	val, ok := obj[key]
	if !ok {
		return def, nil
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, val)
	}
	return s, nil
}

func nullableString(obj map[string]interface{}, key string) (*string, error) {
	val, ok := obj[key]
	if !ok || val == nil {
		return nil, nil
	}
	s, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string or null, got %T", key, val)
	}
	return &s, nil
}

func optionalBool(obj map[string]interface{}, key string) (bool, error) {
	val, ok := obj[key]
	if !ok {
		return false, nil
	}
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		}
	case json.Number:
		switch v.String() {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("%s must be a boolean, got %v", key, val)
}

// optionalNumber 只接受有限數值，NaN 與 Inf 視為格式錯誤
func optionalNumber(obj map[string]interface{}, key string, def float64) (float64, error) {
	val, ok := obj[key]
	if !ok {
		return def, nil
	}
	var (
		f   float64
		err error
	)
	switch v := val.(type) {
	case json.Number:
		f, err = v.Float64()
	case float64:
		f = v
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, val)
	}
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be finite, got %v", key, f)
	}
	return f, nil
}
