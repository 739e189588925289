package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradejournal/journal"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// fail maps engine and store errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	var fe *journal.FieldError
	switch {
	case errors.As(err, &fe):
		Error(c, http.StatusUnprocessableEntity, err.Error(), map[string]any{
			"tradeId": fe.TradeID,
			"field":   fe.Field,
		})
	case errors.Is(err, journal.ErrMalformedTrade):
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, journal.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}
