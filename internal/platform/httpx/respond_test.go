package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/commissiondesk/internal/shared"
)

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"status not configured", fmt.Errorf("approve: %w", shared.ErrStatusNotConfigured), http.StatusConflict, StatusNotConfiguredMessage},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, "You are not allowed to perform this action"},
		{"not found", fmt.Errorf("load: %w", shared.ErrNotFound), http.StatusNotFound, "Deal not found"},
		{"server message verbatim", &shared.ActionError{Action: "approve deal", Fallback: "Failed to approve deal", Message: "Deal is locked", Err: errors.New("boom")}, http.StatusBadGateway, "Deal is locked"},
		{"generic fallback", &shared.ActionError{Action: "approve deal", Fallback: "Failed to approve deal", Err: errors.New("boom")}, http.StatusBadGateway, "Failed to approve deal"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Something went wrong"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			assert.Equal(t, tc.status, rr.Code)
			body := decodeBody(t, rr)
			require.NotNil(t, body.Notification)
			assert.Equal(t, shared.NotifyError, body.Notification.Kind)
			assert.Equal(t, tc.message, body.Notification.Message)
		})
	}
}

func TestRespondErrorValidationCarriesFields(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, &shared.ValidationError{Fields: shared.FieldErrors{"amount": "amount must be greater than zero"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "amount must be greater than zero", body.Fields["amount"])
}

func TestRespondErrorNotFoundOffersWayBack(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, shared.ErrNotFound)
	assert.Equal(t, "/deals", decodeBody(t, rr).Back)
}

func TestRespondFormErrorEchoesForm(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondFormError(rr, shared.NewValidationError("amount", "required"), map[string]string{"amount": "", "notes": "keep me"})
	body := decodeBody(t, rr)
	form, ok := body.Form.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "keep me", form["notes"])
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, DecodeJSON(req, &target))
	assert.Empty(t, target.Name)
}
