package analysis

import (
	"strings"

	"ingredient-analyzer/internal/pkg/common"
)

// BuildPromptFragment 將使用者偏好轉成 prompt 中的條列文字。
// 只輸出非空欄位，順序固定：健康顧慮、過敏原、飲食限制。
func BuildPromptFragment(prefs *Preferences) string {
	if prefs == nil {
		return ""
	}

	var lines []string
	if items := common.CleanList(prefs.HealthConcerns); len(items) > 0 {
		lines = append(lines, "- Health Concerns: "+common.JoinList(items))
	}
	if items := common.CleanList(prefs.Allergens); len(items) > 0 {
		lines = append(lines, "- Known Allergens: "+common.JoinList(items))
	}
	if items := common.CleanList(prefs.DietaryRestrictions); len(items) > 0 {
		lines = append(lines, "- Dietary Restrictions: "+common.JoinList(items))
	}
	return strings.Join(lines, "\n")
}
