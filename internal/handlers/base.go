package handlers

import (
	"net/http"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/logger"
	"pinboard/internal/middleware"
	"pinboard/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError renders err as {"error": {...}}. Unknown and internal errors
// are logged and reported without detail.
func RespondError(c *gin.Context, err error) {
	apiErr, ok := apperrors.As(err)
	if !ok || apiErr.Code == apperrors.ErrInternalError {
		logger.ErrorWithFields("request failed", err,
			zap.String("path", c.FullPath()),
			logger.WithRequestID(c.GetString(middleware.RequestIDKey)),
			logger.WithUserID(middleware.ViewerID(c)),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
			"code":    apperrors.ErrInternalError,
			"message": "internal server error",
		}})
		return
	}
	c.JSON(apiErr.Status, gin.H{"error": apiErr})
}

// paramID 解析路径中的 ID，失败时直接写 400
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		RespondError(c, apperrors.BadRequest("invalid "+name))
		return 0, false
	}
	return id, true
}

// currentUser 受保护路由中使用，AuthRequired 已保证存在
func currentUser(c *gin.Context) (uint, bool) {
	u := middleware.CurrentUser(c)
	if u == nil {
		RespondError(c, apperrors.Unauthorized("login required"))
		return 0, false
	}
	return u.ID, true
}
