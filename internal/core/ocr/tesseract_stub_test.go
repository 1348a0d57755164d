//go:build !tesseract
// +build !tesseract

package ocr

import (
	"context"
	"errors"
	"testing"

	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
)

func TestTesseractStubUnavailable(t *testing.T) {
	assert.False(t, Available)

	_, err := NewTesseract(config.OCRConfig{}).Extract(context.Background(), []byte("img"))
	assert.True(t, errors.Is(err, common.ErrOCRUnavailable))
}
