package history

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ingredient-analyzer/internal/core/analysis"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &PGStore{DB: db}, mock
}

func TestPGStoreSave(t *testing.T) {
	store, mock := newMockStore(t)
	record := &AnalysisRecord{
		ID:            "0b5c8f0e-0000-4000-8000-000000000001",
		ImageHash:     "abc",
		ExtractedText: "Ingredients: Water",
		Ingredients:   []string{"Water"},
		Result: &analysis.Result{
			Ingredients:     []analysis.IngredientAssessment{},
			OverallRating:   analysis.OverallGood,
			Recommendations: []string{},
			Warnings:        []string{},
			ConfidenceScore: 0.6,
		},
		ConfidenceScore: 0.6,
	}

	mock.ExpectExec("INSERT INTO analysis_history").
		WithArgs(
			record.ID,
			sql.NullString{},
			sql.NullString{String: "abc", Valid: true},
			record.ExtractedText,
			[]byte(`["Water"]`),
			sqlmock.AnyArg(),
			0.6,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Save(context.Background(), record))
	assert.False(t, record.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreListBySession(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "session_id", "image_hash", "extracted_text", "ingredients_found",
		"analysis_result", "confidence_score", "created_at",
	}).AddRow(
		"id-1", "session-1", "hash", "Water, Sugar", []byte(`["Water","Sugar"]`),
		[]byte(`{"ingredients":[],"overall_rating":"moderate","recommendations":[],"warnings":[],"confidence_score":0.5,"source":"fallback"}`),
		0.5, created,
	)
	mock.ExpectQuery("SELECT id, session_id").
		WithArgs("session-1", DefaultListLimit).
		WillReturnRows(rows)

	records, err := store.ListBySession(context.Background(), "session-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Water", "Sugar"}, records[0].Ingredients)
	assert.Equal(t, analysis.OverallModerate, records[0].Result.OverallRating)
	assert.Equal(t, analysis.SourceFallback, records[0].Result.Source)
	assert.Equal(t, created, records[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreUpsertPreferences(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO user_preferences").
		WithArgs("session-1", []byte(`["diabetes"]`), []byte(`[]`), []byte(`["peanut"]`), []byte(`{}`), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, nil))

	out, err := store.Upsert(context.Background(), &PreferenceRecord{
		SessionID: "session-1",
		Preferences: analysis.Preferences{
			HealthConcerns: []string{"diabetes"},
			Allergens:      []string{"peanut"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, created, out.CreatedAt)
	assert.Nil(t, out.UpdatedAt)
	assert.Equal(t, []string{}, out.DietaryRestrictions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGetPreferences(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectQuery("SELECT session_id, health_concerns").
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"session_id", "health_concerns", "dietary_restrictions", "allergens", "preferences", "created_at", "updated_at",
		}).AddRow("session-1", []byte(`[]`), []byte(`["vegan"]`), []byte(`["soy"]`), []byte(`{"lang":"en"}`), created, updated))

	out, err := store.Get(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vegan"}, out.DietaryRestrictions)
	assert.Equal(t, []string{"soy"}, out.Allergens)
	assert.Equal(t, "en", out.Extra["lang"])
	require.NotNil(t, out.UpdatedAt)
	assert.Equal(t, updated, *out.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGetPreferencesNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT session_id, health_concerns").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPGStoreDeletePreferences(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM user_preferences").
		WithArgs("session-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM user_preferences").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), "session-1"))
	assert.True(t, errors.Is(store.Delete(context.Background(), "missing"), ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
