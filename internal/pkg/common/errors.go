package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 讓 errors.Is / errors.As 能穿透到原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 Wrap 後的錯誤仍可與預定義錯誤比較
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap 以預定義錯誤為模板附加原始錯誤
func Wrap(base *CustomError, err error) *CustomError {
	return NewError(base.Code, base.Message, base.Status, err)
}

// ToResponse 將錯誤轉為 API 錯誤響應與狀態碼，debug 模式下附帶細節
func ToResponse(err error, debug bool) (int, ErrorResponse) {
	var ce *CustomError
	switch {
	case errors.As(err, &ce):
	case IsConfigurationError(err):
		ce = Wrap(ErrConfiguration, err)
	default:
		ce = Wrap(ErrInternalError, err)
	}
	resp := ErrorResponse{
		Code:    ce.Code,
		Message: ce.Message,
	}
	if debug && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}
	return ce.Status, resp
}

// ConfigurationError 表示必要設定缺失（例如推理服務金鑰）
type ConfigurationError struct {
	Key string
}

// Error 實現 error 介面
func (e *ConfigurationError) Error() string {
	return e.Key + " is not configured"
}

// NewConfigurationError 創建設定錯誤
func NewConfigurationError(key string) error {
	return &ConfigurationError{Key: key}
}

// IsConfigurationError 檢查是否為設定錯誤
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"   // 400
	ErrCodeNotFound         = "NOT_FOUND"         // 404
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"   // 408
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS" // 429
	ErrCodeExtractionEmpty  = "EXTRACTION_EMPTY"  // 400
	ErrCodeNoIngredients    = "NO_INGREDIENTS"    // 400
	ErrCodeInvalidImage     = "INVALID_IMAGE"     // 400
	ErrCodeImageTooLarge    = "IMAGE_TOO_LARGE"   // 413
	ErrCodeInternalError    = "INTERNAL_ERROR"    // 500
	ErrCodeConfiguration    = "CONFIGURATION"     // 500
	ErrCodeOCRUnavailable   = "OCR_UNAVAILABLE"   // 503
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE" // 503
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "請求超時", http.StatusRequestTimeout, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 業務錯誤
	ErrExtractionEmpty = NewError(ErrCodeExtractionEmpty,
		"No text could be extracted from the image. Please ensure the image is clear and contains readable text.",
		http.StatusBadRequest, nil)
	ErrNoIngredients = NewError(ErrCodeNoIngredients,
		"No ingredients could be identified in the text. Please ensure the image contains an ingredient list.",
		http.StatusBadRequest, nil)
	ErrInvalidImage  = NewError(ErrCodeInvalidImage, "無效的圖片格式", http.StatusBadRequest, nil)
	ErrImageTooLarge = NewError(ErrCodeImageTooLarge, "圖片大小超出限制", http.StatusRequestEntityTooLarge, nil)

	// 服務器錯誤
	ErrInternalError    = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrConfiguration    = NewError(ErrCodeConfiguration, "服務設定錯誤", http.StatusInternalServerError, nil)
	ErrOCRUnavailable   = NewError(ErrCodeOCRUnavailable, "文字辨識服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrStoreUnavailable = NewError(ErrCodeStoreUnavailable, "儲存服務暫時不可用", http.StatusServiceUnavailable, nil)
)
