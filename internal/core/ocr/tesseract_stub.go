//go:build !tesseract
// +build !tesseract

package ocr

import (
	"context"
	"errors"

	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"
)

// Available 此建置是否包含 Tesseract
const Available = false

// TesseractExtractor 未使用 tesseract 建置標籤時的替身
type TesseractExtractor struct{}

// NewTesseract 創建替身辨識器
func NewTesseract(cfg config.OCRConfig) *TesseractExtractor {
	return &TesseractExtractor{}
}

// Extract 一律回傳 OCR 不可用
func (t *TesseractExtractor) Extract(ctx context.Context, image []byte) (*Result, error) {
	return nil, common.Wrap(common.ErrOCRUnavailable, errors.New("tesseract build tag is not enabled"))
}
