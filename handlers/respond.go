package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/middleware"
)

// statusFor maps ledger errors to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, ledger.ErrNotInitialized):
		return http.StatusNotFound, "NotInitialized"
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden, "Unauthorized"
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest, "InvalidArgument"
	case errors.Is(err, ledger.ErrAlreadyInitialized):
		return http.StatusConflict, "AlreadyInitialized"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict, "InsufficientBalance"
	case errors.Is(err, ledger.ErrInsufficientAvailability):
		return http.StatusConflict, "InsufficientAvailability"
	case errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict, "InvalidState"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidArgument"})
}

// callerAddress returns the authenticated caller or answers 401.
func callerAddress(c *gin.Context) (ledger.Address, bool) {
	addr, ok := middleware.Caller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return addr, true
}

// contractParam parses a contract address from the named path parameter or
// answers 400.
func contractParam(c *gin.Context, name string) (ledger.Address, bool) {
	addr, err := ledger.ParseAddress(c.Param(name))
	if err == nil && !addr.IsContract() {
		err = fmt.Errorf("%w: %s is not a contract address", ledger.ErrInvalidArgument, addr)
	}
	if err != nil {
		badRequest(c, err)
		return "", false
	}
	return addr, true
}

// parseAddress parses an optional request field; empty input stays empty.
func parseAddress(field, s string) (ledger.Address, error) {
	if s == "" {
		return "", nil
	}
	addr, err := ledger.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

// parseAccount parses a field that must hold a G... account address.
func parseAccount(field, s string) (ledger.Address, error) {
	addr, err := ledger.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	if addr.IsContract() {
		return "", fmt.Errorf("%w: %s must be an account address", ledger.ErrInvalidArgument, field)
	}
	return addr, nil
}
