package preferences

import (
	"errors"
	"net/http"
	"strings"

	"ingredient-analyzer/internal/api/handlers"
	"ingredient-analyzer/internal/core/analysis"
	"ingredient-analyzer/internal/core/history"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Request 建立或更新偏好
type Request struct {
	SessionID           string                 `json:"session_id" binding:"required"`
	HealthConcerns      []string               `json:"health_concerns"`
	DietaryRestrictions []string               `json:"dietary_restrictions"`
	Allergens           []string               `json:"allergens"`
	Preferences         map[string]interface{} `json:"preferences"`
}

// Handler 使用者偏好路由
type Handler struct {
	repo  history.PreferenceRepository
	debug bool
}

// NewHandler 創建偏好處理器
func NewHandler(repo history.PreferenceRepository, debug bool) *Handler {
	return &Handler{repo: repo, debug: debug}
}

// Upsert POST /api/v1/preferences
func (h *Handler) Upsert(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.InvalidRequest(c, err, h.debug)
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		handlers.InvalidRequest(c, errors.New("session_id is required"), h.debug)
		return
	}

	record, err := h.repo.Upsert(c.Request.Context(), &history.PreferenceRecord{
		SessionID: sessionID,
		Preferences: analysis.Preferences{
			HealthConcerns:      common.CleanList(req.HealthConcerns),
			DietaryRestrictions: common.CleanList(req.DietaryRestrictions),
			Allergens:           common.CleanList(req.Allergens),
		},
		Extra: req.Preferences,
	})
	if err != nil {
		handlers.RespondError(c, common.Wrap(common.ErrStoreUnavailable, err), h.debug)
		return
	}

	common.LogInfo("偏好設定已儲存", zap.String("session_id", sessionID))
	c.JSON(http.StatusOK, record)
}

// Get GET /api/v1/preferences/:session_id
func (h *Handler) Get(c *gin.Context) {
	record, err := h.repo.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Delete DELETE /api/v1/preferences/:session_id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("session_id")); err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Preferences deleted successfully"})
}

func (h *Handler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, history.ErrNotFound) {
		handlers.RespondError(c, common.NewError(common.ErrCodeNotFound, "Preferences not found", http.StatusNotFound, nil), h.debug)
		return
	}
	handlers.RespondError(c, common.Wrap(common.ErrStoreUnavailable, err), h.debug)
}
