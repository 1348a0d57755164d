package analysis

import (
	"strings"

	"ingredient-analyzer/internal/pkg/common"
)

const systemPrompt = "You are an expert food scientist and nutritionist. Analyze food product ingredients, " +
	"providing safety ratings, health effects, and personalized dietary recommendations. " +
	"Always respond in valid JSON format."

const schemaInstructions = `Provide a comprehensive analysis in the following JSON format:
{
  "ingredients": [
    {
      "name": "ingredient name",
      "category": "preservative|sweetener|additive|flavor|colorant|nutrient|other",
      "description": "brief description of function",
      "safety_rating": "safe|moderate|concerning|harmful",
      "health_effects": ["effect1", "effect2"],
      "allergen": true/false,
      "confidence": 0.0-1.0
    }
  ],
  "overall_rating": "excellent|good|moderate|poor|harmful",
  "recommendations": ["recommendation1", "recommendation2"],
  "warnings": ["warning1", "warning2"]
}

Respond with the JSON object only.

Consider:
1. Nutritional value and health impact
2. Potential allergens
3. Known health risks
4. Additives and processing
5. User's dietary restrictions and health concerns
6. Scientific evidence for each ingredient`

// BuildPrompt 組合成分清單、偏好片段與輸出格式要求
func BuildPrompt(ingredients []string, prefs *Preferences) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following food product ingredients:\n\n")
	sb.WriteString("Ingredients: ")
	sb.WriteString(common.JoinList(ingredients))
	sb.WriteString("\n")

	if fragment := BuildPromptFragment(prefs); fragment != "" {
		sb.WriteString("\nUser Profile:\n")
		sb.WriteString(fragment)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(schemaInstructions)
	sb.WriteString("\n")
	return sb.String()
}
