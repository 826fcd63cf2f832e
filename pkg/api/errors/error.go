package errors

import (
	"tickcast/pkg/enum"

	"github.com/gin-gonic/gin"
)

// Represents a standardized error response for the API
type ApiError struct {
	// Code represents the HTTP status code
	Code int `json:"code"`

	// Error represents a predefined error code from the enum package
	Error enum.ErrorCode `json:"error"`

	// Details contains additional error information (optional)
	Details interface{} `json:"details,omitempty"`
}

// Abort writes the error envelope with the given status and stops the handler chain.
func Abort(c *gin.Context, code int, errorCode enum.ErrorCode, details interface{}) {
	c.AbortWithStatusJSON(code, ApiError{
		Code:    code,
		Error:   errorCode,
		Details: details,
	})
}
