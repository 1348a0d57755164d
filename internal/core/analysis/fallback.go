package analysis

import "strings"

const (
	fallbackDescription    = "Analysis unavailable"
	fallbackRecommendation = "AI analysis unavailable. Please consult a nutritionist or dietitian."
)

var (
	concerningKeywords = []string{"paraben", "sulfate", "phthalate", "formaldehyde", "petroleum"}
	moderateKeywords   = []string{"alcohol", "fragrance", "parfum", "dye"}
)

// BasicAnalysis 推理服務不可用時的關鍵字分析，純函式且不會失敗
func BasicAnalysis(ingredients []string, confidence float64) *Result {
	assessments := make([]IngredientAssessment, 0, len(ingredients))
	warnings := make([]string, 0)

	for _, name := range ingredients {
		rating := keywordRating(name)
		if rating == SafetyConcerning {
			warnings = append(warnings, name+" may be potentially harmful")
		}
		assessments = append(assessments, IngredientAssessment{
			Name:          name,
			Category:      categoryPtr(CategoryUnknown),
			Description:   stringPtr(fallbackDescription),
			SafetyRating:  rating,
			HealthEffects: []string{},
			Allergen:      false,
			Confidence:    confidence,
		})
	}

	return &Result{
		Ingredients:     assessments,
		OverallRating:   OverallModerate,
		Recommendations: []string{fallbackRecommendation},
		Warnings:        warnings,
		ConfidenceScore: confidence,
		Source:          SourceFallback,
	}
}

// keywordRating concerning 關鍵字優先於 moderate
func keywordRating(name string) SafetyRating {
	lower := strings.ToLower(name)
	if containsAny(lower, concerningKeywords) {
		return SafetyConcerning
	}
	if containsAny(lower, moderateKeywords) {
		return SafetyModerate
	}
	return SafetySafe
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
