package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"ingredient-analyzer/internal/core/ai/provider"
	"ingredient-analyzer/internal/core/ai/queue"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inlineExecutor struct {
	err   error
	calls int
}

func (e *inlineExecutor) Do(ctx context.Context, job func(ctx context.Context)) error {
	e.calls++
	if e.err != nil {
		return e.err
	}
	job(ctx)
	return nil
}

func TestAnalyzeEmptyIngredients(t *testing.T) {
	svc := NewService(nil, nil, DefaultOptions())

	_, err := svc.Analyze(context.Background(), []string{}, nil)
	assert.True(t, errors.Is(err, common.ErrNoIngredients))
}

func TestAnalyzeWithoutReasonerFallsBack(t *testing.T) {
	svc := NewService(nil, nil, DefaultOptions())

	result, err := svc.Analyze(context.Background(),
		[]string{"Water", "Sodium Laureth Sulfate", "Parfum", "Citric Acid"}, nil)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, OverallModerate, result.OverallRating)
	assert.Contains(t, result.Warnings, "Sodium Laureth Sulfate may be potentially harmful")
	assert.Equal(t, 0.5, result.ConfidenceScore)
}

func TestAnalyzeUnreachableServiceFallsBack(t *testing.T) {
	fake := &provider.FakeProvider{Error: errors.New("dial tcp: connection refused")}
	svc := NewService(newTestReasoner(fake, nil), nil, DefaultOptions())

	result, err := svc.Analyze(context.Background(), []string{"Methylparaben", "Water"}, nil)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, OverallModerate, result.OverallRating)
	assert.Equal(t, SafetyConcerning, result.Ingredients[0].SafetyRating)
}

func TestAnalyzeAIResultThroughExecutor(t *testing.T) {
	exec := &inlineExecutor{}
	svc := NewService(newTestReasoner(provider.NewFake(completeResponse), nil), exec, DefaultOptions())

	result, err := svc.Analyze(context.Background(), []string{"Water", "Sugar"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, SourceAI, result.Source)
	assert.Equal(t, 0.85, result.ConfidenceScore)
	assert.Equal(t, 0.6, result.WithConfidence(0.6).ConfidenceScore)
}

func TestAnalyzeQueueRejectionFallsBack(t *testing.T) {
	exec := &inlineExecutor{err: errors.New("queue is full")}
	fake := provider.NewFake(completeResponse)
	svc := NewService(newTestReasoner(fake, nil), exec, DefaultOptions())

	result, err := svc.Analyze(context.Background(), []string{"Water"}, nil)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, result.Source)
	assert.Empty(t, fake.Requests())
}

func TestAnalyzeNormalizesAIOutput(t *testing.T) {
	fake := provider.NewFake(`{"ingredients": [{"name": " Sugar ", "category": "carb", "safety_rating": "Bad"}],
		"overall_rating": "terrible"}`)
	svc := NewService(newTestReasoner(fake, nil), nil, DefaultOptions())

	result, err := svc.Analyze(context.Background(), []string{"Sugar"}, nil)
	require.NoError(t, err)

	require.Len(t, result.Ingredients, 1)
	assert.Equal(t, "Sugar", result.Ingredients[0].Name)
	assert.Equal(t, CategoryOther, *result.Ingredients[0].Category)
	assert.Equal(t, SafetyUnknown, result.Ingredients[0].SafetyRating)
	assert.Equal(t, OverallUnknown, result.OverallRating)
	assert.NotNil(t, result.Warnings)
}

func TestAnalyzeReasoningTimeoutFallsBack(t *testing.T) {
	fake := &provider.FakeProvider{ResponseText: completeResponse, Delay: 2 * time.Second}
	q := queue.New(1, 1)
	q.Start()
	defer q.Close()
	svc := NewService(newTestReasoner(fake, nil), q, DefaultOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := svc.Analyze(ctx, []string{"Water", "Sodium Laureth Sulfate"}, nil)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, OverallModerate, result.OverallRating)
	assert.Equal(t, SafetyConcerning, result.Ingredients[1].SafetyRating)
	assert.Len(t, fake.Requests(), 1)
}
