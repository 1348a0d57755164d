package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ingredient-analyzer/internal/core/analysis"
)

// PGStore 以 Postgres 實作兩種 repository
type PGStore struct {
	DB *sql.DB
}

// Save 實現 Repository
func (r *PGStore) Save(ctx context.Context, record *AnalysisRecord) error {
	const query = `
INSERT INTO analysis_history (
	id, session_id, image_hash, extracted_text, ingredients_found, analysis_result, confidence_score, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	ingredients, err := marshalJSONB(record.Ingredients, "[]")
	if err != nil {
		return err
	}
	result, err := marshalJSONB(record.Result, "{}")
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		record.ID,
		nullString(record.SessionID),
		nullString(record.ImageHash),
		record.ExtractedText,
		ingredients,
		result,
		record.ConfidenceScore,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis history: %w", err)
	}
	return nil
}

// ListBySession 實現 Repository，新的在前
func (r *PGStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]AnalysisRecord, error) {
	const query = `
SELECT id, session_id, image_hash, extracted_text, ingredients_found, analysis_result, confidence_score, created_at
FROM analysis_history
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, sessionID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query analysis history: %w", err)
	}
	defer rows.Close()

	out := make([]AnalysisRecord, 0)
	for rows.Next() {
		var rec AnalysisRecord
		var session, imageHash sql.NullString
		var ingredients, result []byte
		if err := rows.Scan(
			&rec.ID,
			&session,
			&imageHash,
			&rec.ExtractedText,
			&ingredients,
			&result,
			&rec.ConfidenceScore,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.SessionID = session.String
		rec.ImageHash = imageHash.String
		if err := unmarshalJSONB(ingredients, &rec.Ingredients); err != nil {
			return nil, fmt.Errorf("decode ingredients_found: %w", err)
		}
		var decoded analysis.Result
		if err := unmarshalJSONB(result, &decoded); err != nil {
			return nil, fmt.Errorf("decode analysis_result: %w", err)
		}
		rec.Result = &decoded
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Upsert 實現 PreferenceRepository
func (r *PGStore) Upsert(ctx context.Context, record *PreferenceRecord) (*PreferenceRecord, error) {
	const query = `
INSERT INTO user_preferences (session_id, health_concerns, dietary_restrictions, allergens, preferences, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id) DO UPDATE SET
	health_concerns = EXCLUDED.health_concerns,
	dietary_restrictions = EXCLUDED.dietary_restrictions,
	allergens = EXCLUDED.allergens,
	preferences = EXCLUDED.preferences,
	updated_at = EXCLUDED.created_at
RETURNING created_at, updated_at`

	out := *record
	normalizePreference(&out)

	health, err := marshalJSONB(out.HealthConcerns, "[]")
	if err != nil {
		return nil, err
	}
	dietary, err := marshalJSONB(out.DietaryRestrictions, "[]")
	if err != nil {
		return nil, err
	}
	allergens, err := marshalJSONB(out.Allergens, "[]")
	if err != nil {
		return nil, err
	}
	extra, err := marshalJSONB(out.Extra, "{}")
	if err != nil {
		return nil, err
	}

	var updatedAt sql.NullTime
	if err := r.DB.QueryRowContext(ctx, query,
		out.SessionID, health, dietary, allergens, extra, time.Now().UTC(),
	).Scan(&out.CreatedAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}
	if updatedAt.Valid {
		out.UpdatedAt = &updatedAt.Time
	}
	return &out, nil
}

// Get 實現 PreferenceRepository
func (r *PGStore) Get(ctx context.Context, sessionID string) (*PreferenceRecord, error) {
	const query = `
SELECT session_id, health_concerns, dietary_restrictions, allergens, preferences, created_at, updated_at
FROM user_preferences
WHERE session_id = $1`

	var out PreferenceRecord
	var health, dietary, allergens, extra []byte
	var updatedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, sessionID).Scan(
		&out.SessionID, &health, &dietary, &allergens, &extra, &out.CreatedAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	for _, field := range []struct {
		raw  []byte
		dest interface{}
	}{
		{health, &out.HealthConcerns},
		{dietary, &out.DietaryRestrictions},
		{allergens, &out.Allergens},
		{extra, &out.Extra},
	} {
		if err := unmarshalJSONB(field.raw, field.dest); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	if updatedAt.Valid {
		out.UpdatedAt = &updatedAt.Time
	}
	normalizePreference(&out)
	return &out, nil
}

// Delete 實現 PreferenceRepository
func (r *PGStore) Delete(ctx context.Context, sessionID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM user_preferences WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping 檢查資料庫連線
func (r *PGStore) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func marshalJSONB(value interface{}, empty string) ([]byte, error) {
	if value == nil {
		return []byte(empty), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte(empty), nil
	}
	return data, nil
}

func unmarshalJSONB(raw []byte, dest interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
