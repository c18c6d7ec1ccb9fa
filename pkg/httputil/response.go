package httputil

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"page_size"`
	Total     int `json:"total"`
	TotalPage int `json:"total_pages"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

// RespondWithCreated sends a 201 success response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, NewSuccessResponse(data))
}

// RespondWithMessage sends a success response carrying only a message
func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, &Response{Status: "success", Message: message})
}

// RespondWithError sends an error response, mapping AppError codes onto HTTP statuses.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	if appErr, ok := errors.As(err); ok {
		statusCode = StatusFor(appErr.Code)
		message = appErr.Message
	} else if stderrors.Is(err, context.DeadlineExceeded) {
		statusCode = http.StatusGatewayTimeout
		message = "Request timeout"
	}

	if statusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.AbortWithStatusJSON(statusCode, NewErrorResponse(message))
}

// StatusFor maps an application error code onto an HTTP status.
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest:
		return http.StatusBadRequest
	case errors.ErrUnauthorized, errors.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case errors.ErrForbidden, errors.ErrCodePermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithPagination sends a paginated response
func RespondWithPagination(c *gin.Context, data interface{}, page, pageSize, total int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	c.JSON(http.StatusOK, NewSuccessResponse(PaginatedResponse{
		Items: data,
		Pagination: Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: totalPages,
		},
	}))
}
