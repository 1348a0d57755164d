package history

import (
	"context"
	"errors"
	"time"

	"ingredient-analyzer/internal/core/analysis"
)

// DefaultListLimit 查詢歷史紀錄的預設筆數
const DefaultListLimit = 10

// ErrNotFound 查無資料
var ErrNotFound = errors.New("not found")

// AnalysisRecord 一次標籤分析的持久化紀錄
type AnalysisRecord struct {
	ID              string           `json:"id"`
	SessionID       string           `json:"session_id,omitempty"`
	ImageHash       string           `json:"image_hash,omitempty"`
	ExtractedText   string           `json:"extracted_text"`
	Ingredients     []string         `json:"ingredients_found"`
	Result          *analysis.Result `json:"analysis_result"`
	ConfidenceScore float64          `json:"confidence_score"`
	CreatedAt       time.Time        `json:"created_at"`
}

// PreferenceRecord 以 session 為單位儲存的使用者偏好
type PreferenceRecord struct {
	SessionID string `json:"session_id"`
	analysis.Preferences
	Extra     map[string]interface{} `json:"preferences"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt *time.Time             `json:"updated_at"`
}

// Repository 分析紀錄儲存
type Repository interface {
	Save(ctx context.Context, record *AnalysisRecord) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]AnalysisRecord, error)
}

// PreferenceRepository 使用者偏好儲存
type PreferenceRepository interface {
	Upsert(ctx context.Context, record *PreferenceRecord) (*PreferenceRecord, error)
	Get(ctx context.Context, sessionID string) (*PreferenceRecord, error)
	Delete(ctx context.Context, sessionID string) error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func normalizePreference(record *PreferenceRecord) {
	if record.HealthConcerns == nil {
		record.HealthConcerns = []string{}
	}
	if record.DietaryRestrictions == nil {
		record.DietaryRestrictions = []string{}
	}
	if record.Allergens == nil {
		record.Allergens = []string{}
	}
	if record.Extra == nil {
		record.Extra = map[string]interface{}{}
	}
}
