package middleware

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"smart-audio/internal/api/errors"
)

// ErrorHandler recovers handler panics and answers with a masked 500. A
// panic carrying an *errors.APIError is answered with that error instead.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if apiErr, ok := recovered.(*errors.APIError); ok {
			writeError(c, apiErr)
			return
		}

		logger.Error("handler panic",
			"panic", fmt.Sprint(recovered),
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		writeError(c, errors.New(errors.KindInternal, "Internal server error"))
	})
}

// HandleError aborts the request with err rendered as an APIError.
// Internal errors are attached to the context so the request log shows the
// detail the response body hides.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	apiErr := errors.FromDomain(err)
	if apiErr.Kind == errors.KindInternal {
		_ = c.Error(err)
	}
	writeError(c, apiErr)
}

func writeError(c *gin.Context, apiErr *errors.APIError) {
	apiErr.RequestID = GetRequestID(c)
	c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
}
