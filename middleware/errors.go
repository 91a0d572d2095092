package middleware

import (
	"carmarket/logger"
	"carmarket/models"

	"github.com/gin-gonic/gin"
)

// AbortWithError writes the API error body for err and stops the chain.
// Unclassified errors are logged and surface as 500s with their message.
func AbortWithError(c *gin.Context, err error) {
	appErr := models.AsAppError(err)
	if appErr.Kind == models.KindInternal {
		logger.Logger(c.Request.Context()).WithError(err).Error("request failed")
	}
	c.AbortWithStatusJSON(appErr.Status(), models.ErrorResponse{
		Message: appErr.Message,
		Code:    appErr.Kind,
	})
}
