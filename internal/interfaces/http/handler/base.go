// Package handler holds the gin handlers of the campaign API.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/auth"
	"github.com/cnec/backend/internal/infrastructure/logger"
	"github.com/cnec/backend/internal/interfaces/http/dto"
	"github.com/cnec/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Message sends a success response with a message
func (h *BaseHandler) Message(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, dto.NewMessageResponse(message, data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, shared.CodeForbidden, message)
}

// HandleError maps a domain error to its status code. Errors without a
// domain code are logged and answered with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			logger.L(c.Request.Context(), logger.GetGinLogger(c)).Error("request failed",
				zap.String("code", domainErr.Code), zap.Error(err))
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context(), logger.GetGinLogger(c)).Error("unexpected error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// bindJSON decodes and validates the request body. It answers the request
// and returns false when the body is unusable.
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			middleware.HandleValidationError(c, err)
			return false
		}
		h.BadRequest(c, "Invalid request body")
		return false
	}
	return true
}

// parseID parses a UUID field, answering 400 when it is malformed
func (h *BaseHandler) parseID(c *gin.Context, field, value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		h.Error(c, http.StatusBadRequest, shared.CodeInvalidInput, "Invalid "+field)
		return uuid.Nil, false
	}
	return id, true
}

// principal returns the authenticated caller
func (h *BaseHandler) principal(c *gin.Context) auth.Principal {
	p, _ := middleware.GetPrincipal(c)
	return p
}

// ownsCompany reports whether the caller may act for companyID. Admins may
// act for any company.
func (h *BaseHandler) ownsCompany(c *gin.Context, companyID uuid.UUID) bool {
	p := h.principal(c)
	if p.Role == auth.RoleAdmin {
		return true
	}
	return p.CompanyID != nil && *p.CompanyID == companyID
}

// withRegion records the request region on the gin context and on the
// request logger
func withRegion(c *gin.Context, name string) {
	if key, err := region.Parse(name); err == nil {
		name = key.String()
	}
	c.Set(middleware.RegionKey, name)
	c.Request = c.Request.WithContext(logger.WithRegion(c.Request.Context(), name))
}
