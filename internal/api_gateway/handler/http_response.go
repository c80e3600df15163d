package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pawsitter-settlement/internal/api_gateway/middleware"
	"github.com/pawsitter-settlement/internal/domain/shared"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		Data: data,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, page, perPage, totalItems int) *Response {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}

	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithErrorDetails sends a JSON error response carrying machine-readable details
func RespondWithErrorDetails(c *gin.Context, statusCode int, code, message string, details map[string]interface{}) {
	response := NewErrorResponse(code, message)
	response.Error.Details = details
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithPaginatedData sends a JSON response with paginated data
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	response := NewPaginatedResponse(data, page, perPage, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondUnauthorized sends a 401 Unauthorized response with an error
func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// RespondForbidden sends a 403 Forbidden response with an error
func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Forbidden"
	}
	RespondWithError(c, http.StatusForbidden, "FORBIDDEN", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondWithDomainError maps a service error to its status and code. Unknown errors are logged and hidden.
func RespondWithDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		validationErr   shared.ErrValidation
		notFoundErr     shared.ErrNotFound
		forbiddenErr    shared.ErrForbidden
		completedErr    shared.ErrAlreadyCompleted
		insufficientErr shared.ErrInsufficientBalance
		signatureErr    shared.ErrSignatureInvalid
		conflictErr     shared.ErrConflict
	)

	switch {
	case errors.As(err, &validationErr):
		var details map[string]interface{}
		if validationErr.Field != "" {
			details = map[string]interface{}{"field": validationErr.Field}
		}
		RespondWithErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Error(), details)
	case errors.As(err, &notFoundErr):
		RespondNotFound(c, notFoundErr.Error())
	case errors.As(err, &forbiddenErr):
		RespondForbidden(c, forbiddenErr.Error())
	case errors.As(err, &completedErr):
		RespondWithError(c, http.StatusBadRequest, "ALREADY_COMPLETED", completedErr.Error())
	case errors.As(err, &insufficientErr):
		RespondWithErrorDetails(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", insufficientErr.Error(), map[string]interface{}{
			"balance":   insufficientErr.Balance,
			"requested": insufficientErr.Requested,
		})
	case errors.As(err, &signatureErr):
		RespondWithError(c, http.StatusBadRequest, "SIGNATURE_INVALID", signatureErr.Error())
	case errors.As(err, &conflictErr):
		logger.Error("Unit of work gave up on lock conflicts", "error", err, "correlation_id", middleware.GetCorrelationID(c))
		RespondWithError(c, http.StatusInternalServerError, "CONFLICT", "The request conflicted with concurrent updates, please retry")
	default:
		logger.Error("Request failed", "error", err, "path", c.FullPath(), "correlation_id", middleware.GetCorrelationID(c))
		RespondInternalError(c)
	}
}
