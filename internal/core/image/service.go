package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	_ "image/gif"  // 支援 GIF
	_ "image/jpeg" // 支援 JPEG

	"ingredient-analyzer/internal/pkg/common"

	_ "golang.org/x/image/webp" // 支援 WebP
)

// Image 經過驗證的圖片
type Image struct {
	// Data 交給 OCR 的位元組；JPEG 與 PNG 保留原檔，其他格式轉為 PNG
	Data   []byte
	Format string
	Width  int
	Height int
	// Hash 原始上傳內容的 SHA-256
	Hash string
}

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64) *Service {
	return &Service{maxSizeBytes: maxSizeBytes}
}

// Process 檢查大小與格式，必要時轉檔
func (s *Service) Process(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, common.Wrap(common.ErrInvalidImage, fmt.Errorf("empty image"))
	}
	// 檢查文件大小
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return nil, common.Wrap(common.ErrImageTooLarge,
			fmt.Errorf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.Wrap(common.ErrInvalidImage, fmt.Errorf("failed to decode image: %w", err))
	}
	if !isSupportedFormat(format) {
		return nil, common.Wrap(common.ErrInvalidImage, fmt.Errorf("unsupported image format: %s", format))
	}

	out := &Image{
		Data:   data,
		Format: format,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Hash:   common.HashBytes(data),
	}
	if format != "jpeg" && format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
		}
		out.Data = buf.Bytes()
	}
	return out, nil
}

// DecodeDataURI 解析 data:image/...;base64,... 格式
func (s *Service) DecodeDataURI(imageData string) ([]byte, error) {
	if !strings.HasPrefix(imageData, "data:image/") {
		return nil, common.Wrap(common.ErrInvalidImage, fmt.Errorf("invalid image data format"))
	}

	parts := strings.SplitN(imageData, ",", 2)
	if len(parts) != 2 || !strings.HasSuffix(parts[0], ";base64") {
		return nil, common.Wrap(common.ErrInvalidImage, fmt.Errorf("invalid base64 data format"))
	}

	// base64 長度約為原始資料的 4/3
	if s.maxSizeBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(parts[1]))) > s.maxSizeBytes+2 {
		return nil, common.Wrap(common.ErrImageTooLarge,
			fmt.Errorf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes))
	}

	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, common.Wrap(common.ErrInvalidImage, fmt.Errorf("failed to decode base64 data: %w", err))
	}
	return decoded, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
