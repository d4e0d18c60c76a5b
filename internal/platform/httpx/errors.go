// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/commissiondesk/internal/shared"
)

// StatusNotConfiguredMessage is shown when a transition's target status is missing from the directory.
const StatusNotConfiguredMessage = "Status ID not found - refresh the page"

// RespondError maps domain errors to a JSON notification. Callers log before responding.
func RespondError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	JSON(w, status, body)
}

// RespondFormError is RespondError with the submitted form echoed back for retry.
func RespondFormError(w http.ResponseWriter, err error, form any) {
	status, body := errorBody(err)
	body.Form = form
	JSON(w, status, body)
}

func errorBody(err error) (int, ErrorBody) {
	var validationErr *shared.ValidationError
	var actionErr *shared.ActionError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, ErrorBody{
			Notification: shared.Failure("Please correct the highlighted fields"),
			Fields:       validationErr.Fields,
		}
	case errors.Is(err, shared.ErrStatusNotConfigured):
		return http.StatusConflict, ErrorBody{Notification: shared.Failure(StatusNotConfiguredMessage)}
	case errors.Is(err, shared.ErrActionNotPermitted):
		return http.StatusConflict, ErrorBody{Notification: shared.Failure("This action is not available for the deal's current status")}
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict, ErrorBody{Notification: shared.Failure("This submission is already being processed")}
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Notification: shared.Failure("You are not allowed to perform this action")}
	case errors.As(err, &actionErr):
		status := http.StatusBadGateway
		if errors.Is(err, shared.ErrNotFound) {
			status = http.StatusNotFound
		}
		return status, ErrorBody{Notification: shared.Failure(actionErr.UserMessage())}
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, ErrorBody{
			Notification: shared.Failure("Deal not found"),
			Back:         "/deals",
		}
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity, ErrorBody{Notification: shared.Failure(err.Error())}
	default:
		return http.StatusInternalServerError, ErrorBody{Notification: shared.Failure("Something went wrong")}
	}
}
