package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	core "ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/core/history"
	"ingredient-analyzer/internal/core/image"
	"ingredient-analyzer/internal/core/label"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLabels struct {
	report *label.Report
	err    error

	gotData    []byte
	gotText    string
	gotSession string
	gotPrefs   *core.Preferences
	imageCalls int
	textCalls  int
}

func (f *fakeLabels) AnalyzeImage(ctx context.Context, data []byte, sessionID string) (*label.Report, error) {
	f.imageCalls++
	f.gotData = data
	f.gotSession = sessionID
	return f.report, f.err
}

func (f *fakeLabels) AnalyzeText(ctx context.Context, text, sessionID string, prefs *core.Preferences) (*label.Report, error) {
	f.textCalls++
	f.gotText = text
	f.gotSession = sessionID
	f.gotPrefs = prefs
	return f.report, f.err
}

func sampleReport() *label.Report {
	return &label.Report{
		AnalysisID:       "a-1",
		ExtractedText:    "Ingredients: Water, Sugar",
		IngredientsFound: []string{"Water", "Sugar"},
		Result: core.Result{
			Ingredients:     []core.IngredientAssessment{},
			OverallRating:   core.OverallGood,
			Recommendations: []string{},
			Warnings:        []string{},
			ConfidenceScore: 0.85,
			Source:          core.SourceAI,
		},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newRouter(labels LabelAnalyzer, records history.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(labels, records, image.NewService(1024), false)
	r := gin.New()
	r.POST("/api/v1/analyze", h.AnalyzeImage)
	r.POST("/api/v1/analyze/text", h.AnalyzeText)
	r.GET("/api/v1/history/:session_id", h.History)
	return r
}

func TestAnalyzeImageMultipart(t *testing.T) {
	labels := &fakeLabels{report: sampleReport()}
	r := newRouter(labels, history.NewMemoryStore())

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "label.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("image-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("session_id", " s1 "))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("image-bytes"), labels.gotData)
	assert.Equal(t, "s1", labels.gotSession)
	assert.Contains(t, w.Body.String(), `"analysis_id":"a-1"`)
	assert.Contains(t, w.Body.String(), `"overall_rating":"good"`)
}

func TestAnalyzeImageMultipartMissingFile(t *testing.T) {
	labels := &fakeLabels{report: sampleReport()}
	r := newRouter(labels, history.NewMemoryStore())

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("session_id", "s1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeInvalidRequest)
	assert.Zero(t, labels.imageCalls)
}

func TestAnalyzeImageDataURI(t *testing.T) {
	labels := &fakeLabels{report: sampleReport()}
	r := newRouter(labels, history.NewMemoryStore())

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"image":"`+uri+`","session_id":"s2"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("png"), labels.gotData)
	assert.Equal(t, "s2", labels.gotSession)
}

func TestAnalyzeImageBadDataURI(t *testing.T) {
	labels := &fakeLabels{report: sampleReport()}
	r := newRouter(labels, history.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"image":"not-an-image"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeInvalidImage)
	assert.Zero(t, labels.imageCalls)
}

func TestAnalyzeImageMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"extraction empty", common.ErrExtractionEmpty, http.StatusBadRequest, common.ErrCodeExtractionEmpty},
		{"no ingredients", common.ErrNoIngredients, http.StatusBadRequest, common.ErrCodeNoIngredients},
		{"ocr unavailable", common.ErrOCRUnavailable, http.StatusServiceUnavailable, common.ErrCodeOCRUnavailable},
		{"store unavailable", common.ErrStoreUnavailable, http.StatusServiceUnavailable, common.ErrCodeStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&fakeLabels{err: tt.err}, history.NewMemoryStore())
			uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
				strings.NewReader(`{"image":"`+uri+`"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestAnalyzeText(t *testing.T) {
	labels := &fakeLabels{report: sampleReport()}
	r := newRouter(labels, history.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/text", strings.NewReader(
		`{"text":"Ingredients: Water, Sugar","session_id":"s3","user_preferences":{"allergens":["peanut"]}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ingredients: Water, Sugar", labels.gotText)
	assert.Equal(t, "s3", labels.gotSession)
	require.NotNil(t, labels.gotPrefs)
	assert.Equal(t, []string{"peanut"}, labels.gotPrefs.Allergens)
}

func TestAnalyzeTextRequiresText(t *testing.T) {
	labels := &fakeLabels{report: sampleReport()}
	r := newRouter(labels, history.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/text", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, labels.textCalls)
}

func TestHistory(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.Save(ctx, &history.AnalysisRecord{ID: id, SessionID: "s1"}))
	}
	require.NoError(t, store.Save(ctx, &history.AnalysisRecord{ID: "other", SessionID: "s2"}))
	r := newRouter(&fakeLabels{}, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history/s1?limit=2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp HistoryResponse
	require.NoError(t, common.ParseJSON(w.Body.String(), &resp))
	assert.Len(t, resp.History, 2)
	for _, rec := range resp.History {
		assert.Equal(t, "s1", rec.SessionID)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	r := newRouter(&fakeLabels{}, history.NewMemoryStore())
	for _, limit := range []string{"0", "101", "abc"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history/s1?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
}
