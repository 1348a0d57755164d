package ocr

import (
	"context"
	"strings"
)

// RawDetection 單一辨識區塊的文字與信心值（0~1）
type RawDetection struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Result 一張圖片的辨識結果
type Result struct {
	Text       string         `json:"text"`
	Detections []RawDetection `json:"detections"`
}

// Extractor 將圖片位元組轉為文字
type Extractor interface {
	Extract(ctx context.Context, image []byte) (*Result, error)
}

// NewResult 以空白串接非空的辨識文字
func NewResult(detections []RawDetection) *Result {
	texts := make([]string, 0, len(detections))
	kept := make([]RawDetection, 0, len(detections))
	for _, d := range detections {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
		kept = append(kept, RawDetection{Text: text, Confidence: d.Confidence})
	}
	return &Result{
		Text:       strings.Join(texts, " "),
		Detections: kept,
	}
}

// AverageConfidence 所有區塊信心值的平均，沒有區塊時為 0
func (r *Result) AverageConfidence() float64 {
	if r == nil || len(r.Detections) == 0 {
		return 0
	}
	var sum float64
	for _, d := range r.Detections {
		sum += d.Confidence
	}
	return sum / float64(len(r.Detections))
}

// IsEmpty 沒有辨識出任何文字
func (r *Result) IsEmpty() bool {
	return r == nil || strings.TrimSpace(r.Text) == ""
}
