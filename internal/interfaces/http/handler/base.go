package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/logger"
	"github.com/catalogsite/backend/internal/interfaces/http/dto"
	"github.com/catalogsite/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts domain errors to HTTP responses. Validation errors carry their
// field violations; anything that is not a DomainError is logged and reported as 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal,
			"An unexpected error occurred",
			requestID,
		))
		return
	}

	code := dto.NormalizeErrorCode(domainErr.Code)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Request failed", zap.String("code", code), zap.Error(err))
	}

	if violations := site.Violations(err); len(violations) > 0 {
		details := make([]dto.ValidationDetail, len(violations))
		for i, v := range violations {
			details[i] = dto.ValidationDetail{Field: v.Field, Message: v.Message}
		}
		c.JSON(status, dto.NewValidationErrorResponse(domainErr.Message, requestID, details))
		return
	}
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
}

// readBody reads the raw request body, answering 413 or 400 itself on failure
func (h *BaseHandler) readBody(c *gin.Context) (json.RawMessage, bool) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.bodyError(c, err)
		return nil, false
	}
	if !json.Valid(data) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
		return nil, false
	}
	return data, true
}

// bindJSON decodes the request body into v, answering 413 or 400 itself on failure
func (h *BaseHandler) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.bodyError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bodyError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		middleware.AbortTooLarge(c)
		return
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, err.Error())
		return
	}
	h.BadRequest(c, err.Error())
}
