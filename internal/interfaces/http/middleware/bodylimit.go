package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/catalogsite/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects bodies larger than maxBytes with 413. A declared Content-Length is
// checked up front; streamed bodies fail when the handler reads past the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			AbortTooLarge(c)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from reading past a BodyLimit
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// AbortTooLarge writes the 413 envelope
func AbortTooLarge(c *gin.Context) {
	resp := dto.NewErrorResponseWithRequestID(
		dto.ErrCodePayloadTooLarge,
		"Request body exceeds maximum allowed size",
		c.GetString("request_id"),
	)
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp)
}
