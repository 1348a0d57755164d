package label

import (
	"context"
	"errors"
	"strings"
	"time"

	"ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/core/history"
	"ingredient-analyzer/internal/core/image"
	"ingredient-analyzer/internal/core/ingredient"
	"ingredient-analyzer/internal/core/ocr"
	"ingredient-analyzer/internal/pkg/common"

	"go.uber.org/zap"
)

// Analyzer 成分分析
type Analyzer interface {
	Analyze(ctx context.Context, ingredients []string, prefs *analysis.Preferences) (*analysis.Result, error)
}

// Report 一次標籤分析回傳給呼叫端的內容
type Report struct {
	AnalysisID       string   `json:"analysis_id"`
	ExtractedText    string   `json:"extracted_text"`
	IngredientsFound []string `json:"ingredients_found"`
	analysis.Result
	OCRConfidence *float64  `json:"ocr_confidence,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Service 標籤分析流程：圖片 → OCR → 切分 → 分析 → 儲存
type Service struct {
	images      *image.Service
	extractor   ocr.Extractor
	analyzer    Analyzer
	records     history.Repository
	preferences history.PreferenceRepository
}

// NewService 創建標籤分析服務
func NewService(
	images *image.Service,
	extractor ocr.Extractor,
	analyzer Analyzer,
	records history.Repository,
	preferences history.PreferenceRepository,
) *Service {
	return &Service{
		images:      images,
		extractor:   extractor,
		analyzer:    analyzer,
		records:     records,
		preferences: preferences,
	}
}

// AnalyzeImage 分析上傳的標籤圖片
func (s *Service) AnalyzeImage(ctx context.Context, data []byte, sessionID string) (*Report, error) {
	img, err := s.images.Process(data)
	if err != nil {
		return nil, err
	}

	extracted, err := s.extract(ctx, img.Data)
	if err != nil {
		return nil, err
	}
	if extracted.IsEmpty() {
		return nil, common.ErrExtractionEmpty
	}

	ocrConfidence := extracted.AverageConfidence()
	common.LogDebug("文字辨識完成",
		zap.String("image_hash", img.Hash),
		zap.Int("detections", len(extracted.Detections)),
		zap.Float64("ocr_confidence", ocrConfidence),
	)

	return s.run(ctx, runInput{
		text:          extracted.Text,
		sessionID:     sessionID,
		imageHash:     img.Hash,
		ocrConfidence: &ocrConfidence,
	})
}

// AnalyzeText 分析已取得的標籤文字；prefs 為 nil 時依 sessionID 查詢偏好
func (s *Service) AnalyzeText(ctx context.Context, text, sessionID string, prefs *analysis.Preferences) (*Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.ErrExtractionEmpty
	}
	return s.run(ctx, runInput{
		text:      text,
		sessionID: sessionID,
		prefs:     prefs,
	})
}

type runInput struct {
	text          string
	sessionID     string
	imageHash     string
	prefs         *analysis.Preferences
	ocrConfidence *float64
}

func (s *Service) run(ctx context.Context, in runInput) (*Report, error) {
	ingredients := ingredient.Segment(in.text)
	if len(ingredients) == 0 {
		return nil, common.ErrNoIngredients
	}

	prefs := in.prefs
	if prefs == nil {
		prefs = s.lookupPreferences(ctx, in.sessionID)
	}

	result, err := s.analyzer.Analyze(ctx, ingredients, prefs)
	if err != nil {
		return nil, err
	}
	if in.ocrConfidence != nil {
		result = result.WithConfidence(*in.ocrConfidence)
	}

	record := &history.AnalysisRecord{
		ID:              common.GenerateUUID(),
		SessionID:       in.sessionID,
		ImageHash:       in.imageHash,
		ExtractedText:   in.text,
		Ingredients:     ingredients,
		Result:          result,
		ConfidenceScore: result.ConfidenceScore,
	}
	if s.records != nil {
		if err := s.records.Save(ctx, record); err != nil {
			common.LogError("Failed to save analysis", zap.Error(err))
			return nil, common.Wrap(common.ErrStoreUnavailable, err)
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	return &Report{
		AnalysisID:       record.ID,
		ExtractedText:    in.text,
		IngredientsFound: ingredients,
		Result:           *result,
		OCRConfidence:    in.ocrConfidence,
		CreatedAt:        record.CreatedAt,
	}, nil
}

// extract 呼叫 OCR；一般辨識錯誤視為沒有文字，服務不可用與逾時則直接回傳
func (s *Service) extract(ctx context.Context, data []byte) (*ocr.Result, error) {
	if s.extractor == nil {
		return nil, common.ErrOCRUnavailable
	}
	result, err := s.extractor.Extract(ctx, data)
	if err == nil {
		return result, nil
	}

	var ce *common.CustomError
	switch {
	case errors.As(err, &ce):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return nil, common.Wrap(common.ErrRequestTimeout, err)
	default:
		common.LogWarn("OCR failed, treating as empty extraction", zap.Error(err))
		return &ocr.Result{}, nil
	}
}

func (s *Service) lookupPreferences(ctx context.Context, sessionID string) *analysis.Preferences {
	if sessionID == "" || s.preferences == nil {
		return nil
	}
	record, err := s.preferences.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, history.ErrNotFound) {
			common.LogWarn("Failed to load preferences, continuing without",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		return nil
	}
	prefs := record.Preferences
	return &prefs
}
