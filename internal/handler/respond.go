// Package handler exposes the REST surface over the chat services.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/model"
)

// respondErr maps service errors onto HTTP statuses. The mapping is the
// inverse of what the client library applies to responses.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chaterrors.ErrValidation):
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, chaterrors.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(err.Error(), "UNAUTHORIZED"))
	case errors.Is(err, chaterrors.ErrNotFound):
		c.JSON(http.StatusNotFound, model.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, chaterrors.ErrRejected),
		errors.Is(err, chaterrors.ErrChatFull),
		errors.Is(err, chaterrors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, model.NewErrorResponse(err.Error(), "REJECTED"))
	case errors.Is(err, chaterrors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, model.NewErrorResponse(err.Error(), "RATE_LIMITED"))
	default:
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
	}
}
