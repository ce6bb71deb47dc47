package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/obfuscate"
	"github.com/petasbytes/theraia/internal/session"
)

// ErrorCode is the machine-readable part of an error response.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"    // 400
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"      // 404
	ErrCodeBusy          ErrorCode = "BUSY"           // 409
	ErrCodeTooLarge      ErrorCode = "TOO_LARGE"      // 413
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"  // 422
	ErrCodeInvalidRecord ErrorCode = "INVALID_RECORD" // 422
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR" // 500
	ErrCodeUpstream      ErrorCode = "UPSTREAM_ERROR" // 502
)

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// DataResponse wraps a successful payload.
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// RespondData sends 200 with data.
func RespondData[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, DataResponse[T]{Data: data})
}

// RespondCreated sends 201 with data and sets Location when given.
func RespondCreated[T any](c *gin.Context, data T, location string) {
	if location != "" {
		c.Header("Location", location)
	}
	c.JSON(http.StatusCreated, DataResponse[T]{Data: data})
}

// RespondNoContent sends 204.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func respondError(c *gin.Context, status int, code ErrorCode, message string) {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	c.AbortWithStatusJSON(status, resp)
}

// RespondBadRequest sends 400.
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// RespondNotFound sends 404.
func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// RespondSessionError maps an error from a session operation to a status.
// The message is always the user-facing text; details go to the request log.
func RespondSessionError(c *gin.Context, err error) {
	_ = c.Error(err)
	msg := session.UserMessage(err)

	var (
		ve *session.ValidationError
		de *obfuscate.DecodeError
		cf *flows.CollaboratorFailure
		mb *http.MaxBytesError
	)
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, msg)
	case errors.Is(err, session.ErrBusy):
		respondError(c, http.StatusConflict, ErrCodeBusy, msg)
	case errors.As(err, &mb):
		respondError(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "The record file is too large.")
	case errors.As(err, &de):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeInvalidRecord, msg)
	case errors.As(err, &ve):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeInvalidState, msg)
	case errors.As(err, &cf):
		respondError(c, http.StatusBadGateway, ErrCodeUpstream, msg)
	default:
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, msg)
	}
}
