package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNil(t *testing.T) {
	result := Normalize(nil)
	assert.Equal(t, OverallUnknown, result.OverallRating)
	assert.NotNil(t, result.Ingredients)
	assert.NotNil(t, result.Recommendations)
	assert.NotNil(t, result.Warnings)
}

func TestNormalizeCoercesValues(t *testing.T) {
	in := &Result{
		Ingredients: []IngredientAssessment{
			{Name: "  Sugar ", Category: categoryPtr("Sweetener"), SafetyRating: "MODERATE", Confidence: 1.4},
			{Name: "", Category: categoryPtr("emulsifier"), SafetyRating: "risky", Confidence: -0.2},
			{Name: "Salt", Category: categoryPtr(" "), SafetyRating: "safe", Confidence: 0.9},
		},
		OverallRating:   "Good",
		ConfidenceScore: 2,
		Source:          SourceAI,
	}

	out := Normalize(in)

	require.Len(t, out.Ingredients, 3)
	assert.Equal(t, OverallGood, out.OverallRating)
	assert.Equal(t, 1.0, out.ConfidenceScore)
	assert.Equal(t, SourceAI, out.Source)
	assert.NotNil(t, out.Recommendations)
	assert.NotNil(t, out.Warnings)

	first := out.Ingredients[0]
	assert.Equal(t, "Sugar", first.Name)
	require.NotNil(t, first.Category)
	assert.Equal(t, CategorySweetener, *first.Category)
	assert.Equal(t, SafetyModerate, first.SafetyRating)
	assert.Equal(t, 1.0, first.Confidence)
	assert.NotNil(t, first.HealthEffects)

	second := out.Ingredients[1]
	assert.Equal(t, unknownIngredientName, second.Name)
	require.NotNil(t, second.Category)
	assert.Equal(t, CategoryOther, *second.Category)
	assert.Equal(t, SafetyUnknown, second.SafetyRating)
	assert.Equal(t, 0.0, second.Confidence)

	assert.Nil(t, out.Ingredients[2].Category)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := &Result{
		Ingredients:   []IngredientAssessment{{Name: " Water ", SafetyRating: "SAFE"}},
		OverallRating: "excellent",
		Warnings:      []string{"w"},
	}

	out := Normalize(in)
	out.Warnings[0] = "changed"

	assert.Equal(t, " Water ", in.Ingredients[0].Name)
	assert.Equal(t, SafetyRating("SAFE"), in.Ingredients[0].SafetyRating)
	assert.Equal(t, "w", in.Warnings[0])
}

func TestComposeConfidence(t *testing.T) {
	assert.Equal(t, 0.6, ComposeConfidence(0.6, 0.85))
	assert.Equal(t, 0.5, ComposeConfidence(0.9, 0.5))
	assert.Equal(t, 0.0, ComposeConfidence(-1, 0.5))
	assert.Equal(t, 0.0, ComposeConfidence())

	r := &Result{ConfidenceScore: 0.85}
	capped := r.WithConfidence(0.6)
	assert.Equal(t, 0.6, capped.ConfidenceScore)
	assert.Equal(t, 0.85, r.ConfidenceScore)
}

func TestNormalizeMapsNaNToZero(t *testing.T) {
	out := Normalize(&Result{
		Ingredients:     []IngredientAssessment{{Name: "Salt", SafetyRating: SafetySafe, Confidence: math.NaN()}},
		ConfidenceScore: math.NaN(),
	})

	assert.Equal(t, 0.0, out.ConfidenceScore)
	assert.Equal(t, 0.0, out.Ingredients[0].Confidence)
	assert.Equal(t, 0.0, ComposeConfidence(math.NaN(), 0.85))
}
