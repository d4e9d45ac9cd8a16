package middleware

import (
	"errors"
	"net/http"

	"heartbeat-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last handler error as a BaseError JSON body.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var base errutil.BaseError
		if !errors.As(last.Err, &base) {
			zap.L().Error("unhandled request error", zap.String("path", c.FullPath()), zap.Error(last.Err))
			base = errutil.From(last.Err)
		}

		c.JSON(base.Code.HTTPStatus(), base.JSON())
	}
}

// Recovery converts panics into a generic 500 without leaking details.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		zap.L().Error("panic recovered",
			zap.String("path", c.FullPath()),
			zap.Any("panic", recovered),
			zap.Stack("stacktrace"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errutil.BaseError{
			Code:    errutil.StatusInternal,
			Message: "Internal server error",
		}.JSON())
	})
}
