package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/pageza/foodgram/backend/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ErrorHandler writes the response for the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, verr.Fields)
			return
		}

		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Msg("Unhandled error")
			c.JSON(status, ErrorResponse{Detail: "internal server error"})
			return
		}
		c.JSON(status, ErrorResponse{Detail: err.Error()})
	}
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrRelationNotFound),
		errors.Is(err, service.ErrSelfSubscription),
		errors.Is(err, service.ErrEmptyShoppingCart),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrNoAvatar),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrBadRequest marks malformed input rejected before reaching a service.
var ErrBadRequest = errors.New("bad request")

// BadRequest wraps msg so ErrorHandler answers 400 with it as the detail.
func BadRequest(msg string) error {
	return &service.DetailError{Kind: ErrBadRequest, Detail: msg}
}
