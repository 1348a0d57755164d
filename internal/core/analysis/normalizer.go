package analysis

import "strings"

const unknownIngredientName = "Unknown"

var (
	knownCategories = map[Category]bool{
		CategoryPreservative: true,
		CategorySweetener:    true,
		CategoryAdditive:     true,
		CategoryFlavor:       true,
		CategoryColorant:     true,
		CategoryNutrient:     true,
		CategoryOther:        true,
		CategoryUnknown:      true,
	}
	knownSafety = map[SafetyRating]bool{
		SafetySafe:       true,
		SafetyModerate:   true,
		SafetyConcerning: true,
		SafetyHarmful:    true,
		SafetyUnknown:    true,
	}
	knownOverall = map[OverallRating]bool{
		OverallExcellent: true,
		OverallGood:      true,
		OverallModerate:  true,
		OverallPoor:      true,
		OverallHarmful:   true,
		OverallUnknown:   true,
	}
)

// Normalize 讓 AI 與關鍵字分析的結果具有相同形狀：
// 不含 nil 切片、列舉值合法、信心值在 [0,1]，順序保持不變。
func Normalize(r *Result) *Result {
	if r == nil {
		return &Result{
			Ingredients:     []IngredientAssessment{},
			OverallRating:   OverallUnknown,
			Recommendations: []string{},
			Warnings:        []string{},
		}
	}

	out := &Result{
		Ingredients:     make([]IngredientAssessment, 0, len(r.Ingredients)),
		OverallRating:   normalizeOverall(r.OverallRating),
		Recommendations: nonNil(r.Recommendations),
		Warnings:        nonNil(r.Warnings),
		ConfidenceScore: clamp01(r.ConfidenceScore),
		Source:          r.Source,
	}
	for _, item := range r.Ingredients {
		out.Ingredients = append(out.Ingredients, normalizeAssessment(item))
	}
	return out
}

func normalizeAssessment(a IngredientAssessment) IngredientAssessment {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		a.Name = unknownIngredientName
	}
	if a.Category != nil {
		c := Category(strings.ToLower(strings.TrimSpace(string(*a.Category))))
		switch {
		case c == "":
			a.Category = nil
		case knownCategories[c]:
			a.Category = categoryPtr(c)
		default:
			a.Category = categoryPtr(CategoryOther)
		}
	}
	if a.Description != nil {
		a.Description = stringPtr(*a.Description)
	}
	a.SafetyRating = normalizeSafety(a.SafetyRating)
	a.HealthEffects = nonNil(a.HealthEffects)
	a.Confidence = clamp01(a.Confidence)
	return a
}

func normalizeSafety(s SafetyRating) SafetyRating {
	s = SafetyRating(strings.ToLower(strings.TrimSpace(string(s))))
	if knownSafety[s] {
		return s
	}
	return SafetyUnknown
}

func normalizeOverall(o OverallRating) OverallRating {
	o = OverallRating(strings.ToLower(strings.TrimSpace(string(o))))
	if knownOverall[o] {
		return o
	}
	return OverallUnknown
}

// nonNil 複製切片，nil 轉成空切片
func nonNil(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}
