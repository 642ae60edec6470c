package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stayonboard-server-go/internal/platform/errors"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess writes a success envelope.
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}
	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondError writes a failure envelope.
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondDomainError maps a domain error to its HTTP status and writes the
// failure envelope.
func RespondDomainError(c *gin.Context, err error) {
	RespondError(c, StatusForKind(errors.KindOf(err)), err.Error(), nil)
}

// StatusForKind maps the error taxonomy to HTTP status codes.
func StatusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindInvalidParameters:
		return http.StatusBadRequest
	case errors.KindImageDecode, errors.KindUnsupportedImage:
		return http.StatusUnprocessableEntity
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindImageUnavailable:
		return http.StatusGone
	case errors.KindComputationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
