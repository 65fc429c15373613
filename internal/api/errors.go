package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/export"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var invalid validator.ValidationErrors

	switch {
	case errors.Is(err, insights.ErrInvalidInput),
		errors.Is(err, errBadRequest),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrHistoryDisabled):
		// a configuration choice, not an outage: clients must not retry it
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// errorDetails lists per-field or per-payload problems when err carries any.
func errorDetails(err error) []string {
	var invalidInput *insights.InvalidInputError
	if errors.As(err, &invalidInput) {
		return invalidInput.Errors
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
		return details
	}
	return nil
}
