package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ingredient-analyzer/internal/api/handlers"
	core "ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/core/history"
	"ingredient-analyzer/internal/core/image"
	"ingredient-analyzer/internal/core/label"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LabelAnalyzer 標籤分析流程
type LabelAnalyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, sessionID string) (*label.Report, error)
	AnalyzeText(ctx context.Context, text, sessionID string, prefs *core.Preferences) (*label.Report, error)
}

// ImageRequest 以 JSON 傳送 data URI 圖片
type ImageRequest struct {
	Image     string `json:"image" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// TextRequest 直接分析標籤文字
type TextRequest struct {
	Text        string            `json:"text" binding:"required"`
	SessionID   string            `json:"session_id,omitempty"`
	Preferences *core.Preferences `json:"user_preferences,omitempty"`
}

// HistoryResponse 歷史紀錄
type HistoryResponse struct {
	History []history.AnalysisRecord `json:"history"`
}

// Handler 分析相關路由
type Handler struct {
	labels  LabelAnalyzer
	records history.Repository
	images  *image.Service
	debug   bool
}

// NewHandler 創建分析處理器
func NewHandler(labels LabelAnalyzer, records history.Repository, images *image.Service, debug bool) *Handler {
	return &Handler{
		labels:  labels,
		records: records,
		images:  images,
		debug:   debug,
	}
}

// AnalyzeImage POST /api/v1/analyze，接受 multipart `file` 或 JSON data URI
func (h *Handler) AnalyzeImage(c *gin.Context) {
	data, sessionID, err := h.readImage(c)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	common.LogInfo("開始分析標籤圖片",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("image_bytes", len(data)),
		zap.Bool("has_session", sessionID != ""),
	)

	report, err := h.labels.AnalyzeImage(c.Request.Context(), data, sessionID)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, report)
}

// AnalyzeText POST /api/v1/analyze/text
func (h *Handler) AnalyzeText(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.InvalidRequest(c, err, h.debug)
		return
	}

	report, err := h.labels.AnalyzeText(c.Request.Context(), req.Text, strings.TrimSpace(req.SessionID), req.Preferences)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, report)
}

// History GET /api/v1/history/:session_id?limit=10
func (h *Handler) History(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		handlers.InvalidRequest(c, errors.New("session_id is required"), h.debug)
		return
	}

	limit := history.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			handlers.InvalidRequest(c, errors.New("limit must be between 1 and 100"), h.debug)
			return
		}
		limit = n
	}

	records, err := h.records.ListBySession(c.Request.Context(), sessionID, limit)
	if err != nil {
		handlers.RespondError(c, common.Wrap(common.ErrStoreUnavailable, err), h.debug)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{History: records})
}

// readImage 取出圖片位元組與 session id
func (h *Handler) readImage(c *gin.Context) ([]byte, string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", common.Wrap(common.ErrImageTooLarge, err)
			}
			return nil, "", common.Wrap(common.ErrInvalidRequest, err)
		}
		f, err := file.Open()
		if err != nil {
			return nil, "", common.Wrap(common.ErrInvalidImage, err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", common.Wrap(common.ErrInvalidImage, err)
		}
		sessionID := c.PostForm("session_id")
		if sessionID == "" {
			sessionID = c.Query("session_id")
		}
		return data, strings.TrimSpace(sessionID), nil
	}

	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, "", common.Wrap(common.ErrInvalidRequest, err)
	}
	data, err := h.images.DecodeDataURI(req.Image)
	if err != nil {
		return nil, "", err
	}
	return data, strings.TrimSpace(req.SessionID), nil
}
