package handlers

import (
	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError 將錯誤轉為統一的錯誤響應；debug 時附上原始錯誤
func RespondError(c *gin.Context, err error, debug bool) {
	status, resp := common.ToResponse(err, debug)
	_ = c.Error(err)

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("code", resp.Code),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= 500 {
		common.LogError("Request failed", fields...)
	} else {
		common.LogDebug("Request rejected", fields...)
	}
	c.AbortWithStatusJSON(status, resp)
}

// InvalidRequest 請求格式錯誤
func InvalidRequest(c *gin.Context, err error, debug bool) {
	RespondError(c, common.Wrap(common.ErrInvalidRequest, err), debug)
}
