package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore 未設定資料庫時使用的記憶體儲存，同時實作兩種 repository
type MemoryStore struct {
	mu          sync.RWMutex
	records     []AnalysisRecord
	preferences map[string]PreferenceRecord
	now         func() time.Time
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		preferences: make(map[string]PreferenceRecord),
		now:         time.Now,
	}
}

// Save 實現 Repository
func (s *MemoryStore) Save(ctx context.Context, record *AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	stored := *record
	stored.Ingredients = append([]string(nil), record.Ingredients...)
	s.records = append(s.records, stored)
	return nil
}

// ListBySession 實現 Repository，新的在前
func (s *MemoryStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AnalysisRecord, 0)
	for _, r := range s.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Upsert 實現 PreferenceRepository
func (s *MemoryStore) Upsert(ctx context.Context, record *PreferenceRecord) (*PreferenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	normalizePreference(&stored)
	now := s.now().UTC()
	if existing, ok := s.preferences[record.SessionID]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.UpdatedAt = &now
	} else {
		stored.CreatedAt = now
		stored.UpdatedAt = nil
	}
	s.preferences[record.SessionID] = stored

	out := stored
	return &out, nil
}

// Get 實現 PreferenceRepository
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*PreferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.preferences[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Delete 實現 PreferenceRepository
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.preferences[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.preferences, sessionID)
	return nil
}
