package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/seedbank/internal/service/ledger"
)

// failure is the body of every rejected mutation.
type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// statusFor maps service errors onto HTTP statuses. Anything unrecognised,
// sheets.ErrColumnNotFound included, is a failure of the backing store.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrUnknownField),
		errors.Is(err, ledger.ErrFieldNotEditable):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrLotNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientVolume),
		errors.Is(err, ledger.ErrDuplicateCode):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func messageFor(err error) string {
	switch statusFor(err) {
	case http.StatusServiceUnavailable:
		return "inventory is busy, try again"
	case http.StatusBadGateway:
		return "record store unavailable, nothing was changed"
	default:
		return err.Error()
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), failure{Success: false, Message: messageFor(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, failure{Success: false, Message: message})
}
