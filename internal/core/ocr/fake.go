package ocr

import (
	"context"
	"sync"
)

// StaticExtractor 回傳固定辨識結果
type StaticExtractor struct {
	Detections []RawDetection
	Err        error

	mu    sync.Mutex
	calls int
}

// NewStatic 以單一文字區塊建立固定結果
func NewStatic(text string, confidence float64) *StaticExtractor {
	return &StaticExtractor{Detections: []RawDetection{{Text: text, Confidence: confidence}}}
}

// Extract 實現 Extractor
func (s *StaticExtractor) Extract(ctx context.Context, image []byte) (*Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return NewResult(s.Detections), nil
}

// Calls 回傳 Extract 被呼叫的次數
func (s *StaticExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
