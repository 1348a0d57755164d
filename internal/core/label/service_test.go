package label

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	"image/color"
	"image/png"
	"testing"

	"ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/core/history"
	"ingredient-analyzer/internal/core/image"
	"ingredient-analyzer/internal/core/ocr"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labelText = "Ingredients: Water, Sodium Laureth Sulfate, Parfum (trace), Citric Acid 2%"

type recordingAnalyzer struct {
	result      *analysis.Result
	ingredients []string
	prefs       *analysis.Preferences
}

func (a *recordingAnalyzer) Analyze(ctx context.Context, ingredients []string, prefs *analysis.Preferences) (*analysis.Result, error) {
	a.ingredients = ingredients
	a.prefs = prefs
	return a.result, nil
}

type failingRepo struct{}

func (failingRepo) Save(ctx context.Context, record *history.AnalysisRecord) error {
	return errors.New("connection reset")
}

func (failingRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]history.AnalysisRecord, error) {
	return nil, errors.New("connection reset")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewGray(stdimage.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(extractor ocr.Extractor, analyzer Analyzer, store *history.MemoryStore) *Service {
	return NewService(image.NewService(1<<20), extractor, analyzer, store, store)
}

func TestAnalyzeImageFallbackExample(t *testing.T) {
	store := history.NewMemoryStore()
	analyzer := analysis.NewService(nil, nil, analysis.DefaultOptions())
	svc := newTestService(ocr.NewStatic(labelText, 0.9), analyzer, store)

	report, err := svc.AnalyzeImage(context.Background(), pngBytes(t), "session-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"Water", "Sodium Laureth Sulfate", "Parfum", "Citric Acid"}, report.IngredientsFound)
	assert.Equal(t, analysis.OverallModerate, report.OverallRating)
	assert.Contains(t, report.Warnings, "Sodium Laureth Sulfate may be potentially harmful")
	assert.Equal(t, 0.5, report.ConfidenceScore)
	require.NotNil(t, report.OCRConfidence)
	assert.Equal(t, 0.9, *report.OCRConfidence)

	records, err := store.ListBySession(context.Background(), "session-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, report.AnalysisID, records[0].ID)
	assert.Equal(t, common.HashBytes(pngBytes(t)), records[0].ImageHash)
	assert.Equal(t, 0.5, records[0].ConfidenceScore)
}

func TestAnalyzeImageComposesConfidence(t *testing.T) {
	analyzer := &recordingAnalyzer{result: &analysis.Result{
		Ingredients:     []analysis.IngredientAssessment{},
		OverallRating:   analysis.OverallGood,
		Recommendations: []string{},
		Warnings:        []string{},
		ConfidenceScore: 0.85,
		Source:          analysis.SourceAI,
	}}
	svc := newTestService(ocr.NewStatic(labelText, 0.6), analyzer, history.NewMemoryStore())

	report, err := svc.AnalyzeImage(context.Background(), pngBytes(t), "")
	require.NoError(t, err)

	assert.Equal(t, 0.6, report.ConfidenceScore)
	assert.Equal(t, 0.85, analyzer.result.ConfidenceScore)
	assert.Nil(t, analyzer.prefs)
}

func TestAnalyzeImageUsesSessionPreferences(t *testing.T) {
	store := history.NewMemoryStore()
	_, err := store.Upsert(context.Background(), &history.PreferenceRecord{
		SessionID:   "session-1",
		Preferences: analysis.Preferences{Allergens: []string{"peanut"}},
	})
	require.NoError(t, err)

	analyzer := &recordingAnalyzer{result: analysis.BasicAnalysis([]string{"Water"}, 0.5)}
	svc := newTestService(ocr.NewStatic(labelText, 0.9), analyzer, store)

	_, err = svc.AnalyzeImage(context.Background(), pngBytes(t), "session-1")
	require.NoError(t, err)
	require.NotNil(t, analyzer.prefs)
	assert.Equal(t, []string{"peanut"}, analyzer.prefs.Allergens)
}

func TestAnalyzeImageErrors(t *testing.T) {
	analyzer := analysis.NewService(nil, nil, analysis.DefaultOptions())

	tests := []struct {
		name      string
		extractor ocr.Extractor
		image     []byte
		expected  error
	}{
		{"invalid image", ocr.NewStatic(labelText, 0.9), []byte("nope"), common.ErrInvalidImage},
		{"no text", ocr.NewStatic("   ", 0.9), nil, common.ErrExtractionEmpty},
		{"ocr failure", &ocr.StaticExtractor{Err: errors.New("tesseract crashed")}, nil, common.ErrExtractionEmpty},
		{"ocr unavailable", &ocr.StaticExtractor{Err: common.ErrOCRUnavailable}, nil, common.ErrOCRUnavailable},
		{"no ingredients", ocr.NewStatic("Ingredients: a, bb", 0.9), nil, common.ErrNoIngredients},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.image
			if data == nil {
				data = pngBytes(t)
			}
			svc := newTestService(tt.extractor, analyzer, history.NewMemoryStore())
			_, err := svc.AnalyzeImage(context.Background(), data, "")
			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
		})
	}
}

func TestAnalyzeTextWithExplicitPreferences(t *testing.T) {
	analyzer := &recordingAnalyzer{result: analysis.BasicAnalysis([]string{"Water"}, 0.5)}
	svc := newTestService(nil, analyzer, history.NewMemoryStore())
	prefs := &analysis.Preferences{DietaryRestrictions: []string{"vegan"}}

	report, err := svc.AnalyzeText(context.Background(), "Water, Sugar, Salt", "", prefs)
	require.NoError(t, err)

	assert.Same(t, prefs, analyzer.prefs)
	assert.Nil(t, report.OCRConfidence)
	assert.Equal(t, "Water, Sugar, Salt", report.ExtractedText)
	assert.NotEmpty(t, report.AnalysisID)

	_, err = svc.AnalyzeText(context.Background(), "  ", "", nil)
	assert.True(t, errors.Is(err, common.ErrExtractionEmpty))
}

func TestAnalyzeSaveFailure(t *testing.T) {
	analyzer := analysis.NewService(nil, nil, analysis.DefaultOptions())
	svc := NewService(image.NewService(1<<20), nil, analyzer, failingRepo{}, nil)

	_, err := svc.AnalyzeText(context.Background(), "Water, Sugar", "s1", nil)
	assert.True(t, errors.Is(err, common.ErrStoreUnavailable))
}
