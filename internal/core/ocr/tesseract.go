//go:build tesseract
// +build tesseract

package ocr

import (
	"context"
	"fmt"

	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// Available 此建置是否包含 Tesseract
const Available = true

// TesseractExtractor 以 Tesseract 逐字辨識
type TesseractExtractor struct {
	languages         []string
	minWordConfidence float64
}

// NewTesseract 創建 Tesseract 辨識器
func NewTesseract(cfg config.OCRConfig) *TesseractExtractor {
	return &TesseractExtractor{
		languages:         cfg.Languages,
		minWordConfidence: cfg.MinWordConfidence,
	}
}

type extractOutcome struct {
	result *Result
	err    error
}

// Extract 實現 Extractor；Tesseract 呼叫本身不可中斷，ctx 取消時直接返回
func (t *TesseractExtractor) Extract(ctx context.Context, image []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan extractOutcome, 1)
	go func() {
		result, err := t.extract(image)
		done <- extractOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *TesseractExtractor) extract(image []byte) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return nil, fmt.Errorf("failed to set OCR languages: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to load image for OCR: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	detections := make([]RawDetection, 0, len(boxes))
	dropped := 0
	for _, box := range boxes {
		conf := box.Confidence / 100
		if conf < t.minWordConfidence {
			dropped++
			continue
		}
		detections = append(detections, RawDetection{Text: box.Word, Confidence: conf})
	}

	result := NewResult(detections)
	common.LogDebug("OCR 完成",
		zap.Int("words", len(result.Detections)),
		zap.Int("dropped", dropped),
		zap.Float64("avg_confidence", result.AverageConfidence()),
	)
	return result, nil
}
