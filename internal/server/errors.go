package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	competitiondomain "github.com/stablehq/paddock/internal/competition/domain"
	horsecaredomain "github.com/stablehq/paddock/internal/horsecare/domain"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
	ratecarddomain "github.com/stablehq/paddock/internal/ratecard/domain"
	sessiondomain "github.com/stablehq/paddock/internal/session/domain"
	statementdomain "github.com/stablehq/paddock/internal/statement/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not_found")
	ErrRateLimited  = errors.New("rate_limited")
)

type validationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *validationError) Error() string { return e.Message }

func newValidationError(field, code, message string) error {
	return &validationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("body", "invalid_request", "invalid request body")
}

// AbortWithError translates domain sentinel errors into HTTP responses. Errors
// without an explicit mapping surface as 500 with an opaque body.
func AbortWithError(c *gin.Context, err error) {
	var validation *validationError
	if errors.As(err, &validation) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validation})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrForbidden),
		errors.Is(err, sessiondomain.ErrNotSessionRider),
		errors.Is(err, sessiondomain.ErrNotSessionTrainer),
		errors.Is(err, competitiondomain.ErrNotCompetitionTrainer),
		errors.Is(err, statementdomain.ErrNotStatementTrainer),
		errors.Is(err, horsecaredomain.ErrNotHorseOwner):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound),
		errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, ratecarddomain.ErrRateNotFound),
		errors.Is(err, sessiondomain.ErrSessionNotFound),
		errors.Is(err, competitiondomain.ErrCompetitionNotFound),
		errors.Is(err, competitiondomain.ErrRiderEntryNotFound),
		errors.Is(err, statementdomain.ErrStatementNotFound),
		errors.Is(err, horsecaredomain.ErrHorseNotFound),
		errors.Is(err, horsecaredomain.ErrEventNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sessiondomain.ErrAlreadyVerified),
		errors.Is(err, sessiondomain.ErrSessionCancelled),
		errors.Is(err, competitiondomain.ErrPaymentStatusBackwards),
		errors.Is(err, statementdomain.ErrPeriodNotClosed),
		errors.Is(err, horsecaredomain.ErrEventNotScheduled):
		status = http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, ratecarddomain.ErrInvalidServiceType),
		errors.Is(err, ratecarddomain.ErrInvalidCurrency),
		errors.Is(err, ratecarddomain.ErrInvalidAmount),
		errors.Is(err, identitydomain.ErrInvalidEmail),
		errors.Is(err, sessiondomain.ErrInvalidRider),
		errors.Is(err, sessiondomain.ErrInvalidSessionType),
		errors.Is(err, sessiondomain.ErrInvalidSessionDate),
		errors.Is(err, competitiondomain.ErrInvalidCompetitionDate),
		errors.Is(err, competitiondomain.ErrInvalidRider),
		errors.Is(err, competitiondomain.ErrInvalidServices),
		errors.Is(err, competitiondomain.ErrInvalidPaymentStatus),
		errors.Is(err, statementdomain.ErrInvalidPaymentStatus),
		errors.Is(err, horsecaredomain.ErrInvalidHorseName),
		errors.Is(err, horsecaredomain.ErrInvalidEventType),
		errors.Is(err, horsecaredomain.ErrInvalidEventDate),
		errors.Is(err, horsecaredomain.ErrInvalidRecurrence):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": "internal_error"}})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": err.Error()}})
}
