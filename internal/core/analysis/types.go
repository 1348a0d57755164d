package analysis

import "math"

// Category 成分分類
type Category string

const (
	CategoryPreservative Category = "preservative"
	CategorySweetener    Category = "sweetener"
	CategoryAdditive     Category = "additive"
	CategoryFlavor       Category = "flavor"
	CategoryColorant     Category = "colorant"
	CategoryNutrient     Category = "nutrient"
	CategoryOther        Category = "other"
	CategoryUnknown      Category = "unknown"
)

// SafetyRating 單一成分安全評級
type SafetyRating string

const (
	SafetySafe       SafetyRating = "safe"
	SafetyModerate   SafetyRating = "moderate"
	SafetyConcerning SafetyRating = "concerning"
	SafetyHarmful    SafetyRating = "harmful"
	SafetyUnknown    SafetyRating = "unknown"
)

// OverallRating 整體評級
type OverallRating string

const (
	OverallExcellent OverallRating = "excellent"
	OverallGood      OverallRating = "good"
	OverallModerate  OverallRating = "moderate"
	OverallPoor      OverallRating = "poor"
	OverallHarmful   OverallRating = "harmful"
	OverallUnknown   OverallRating = "unknown"
)

// Source 結果來源
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Preferences 使用者健康、過敏原與飲食限制；nil 表示未提供
type Preferences struct {
	HealthConcerns      []string `json:"health_concerns"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Allergens           []string `json:"allergens"`
}

// IsEmpty 三個欄位皆為空
func (p *Preferences) IsEmpty() bool {
	return p == nil || (len(p.HealthConcerns) == 0 && len(p.DietaryRestrictions) == 0 && len(p.Allergens) == 0)
}

// IngredientAssessment 單一成分評估
type IngredientAssessment struct {
	Name          string       `json:"name"`
	Category      *Category    `json:"category"`
	Description   *string      `json:"description"`
	SafetyRating  SafetyRating `json:"safety_rating"`
	HealthEffects []string     `json:"health_effects"`
	Allergen      bool         `json:"allergen"`
	Confidence    float64      `json:"confidence"`
}

// Result 一次分析的統一結果，建立後不再修改
type Result struct {
	Ingredients     []IngredientAssessment `json:"ingredients"`
	OverallRating   OverallRating          `json:"overall_rating"`
	Recommendations []string               `json:"recommendations"`
	Warnings        []string               `json:"warnings"`
	ConfidenceScore float64                `json:"confidence_score"`
	Source          Source                 `json:"source"`
}

// WithConfidence 回傳信心值被上限截斷後的副本，原結果不變
func (r *Result) WithConfidence(ceiling float64) *Result {
	out := *r
	out.ConfidenceScore = ComposeConfidence(ceiling, r.ConfidenceScore)
	return &out
}

// ComposeConfidence 整體信心值取各階段最小值，並限制在 [0,1]
func ComposeConfidence(stages ...float64) float64 {
	if len(stages) == 0 {
		return 0
	}
	lowest := stages[0]
	for _, s := range stages[1:] {
		if s < lowest {
			lowest = s
		}
	}
	return clamp01(lowest)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func categoryPtr(c Category) *Category { return &c }

func stringPtr(s string) *string { return &s }
