package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kocrou/internal/domain"
	"kocrou/internal/http/middleware"
	"kocrou/internal/utils"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error())
	case domain.IsUnauthorized(err):
		var ue domain.UnauthorizedError
		errors.As(err, &ue)
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:     err.Error(),
			Code:      "unauthorized",
			ErrorCode: ue.Code,
			Message:   err.Error(),
			RequestID: middleware.GetRequestID(c),
		})
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error())
	default:
		utils.LogEvent(middleware.GetRequestID(c), "http", "internal_error", err.Error())
		respondError(c, http.StatusInternalServerError, "internal_error", "erreur interne du serveur")
	}
}
