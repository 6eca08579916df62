package models

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateLedgerRejection(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"AlreadyClaimed", "MoveAbort in dropnew: E_ALREADY_CLAIMED, code 1", "You have already claimed from this droplet"},
		{"Expired", "abort E_DROPLET_EXPIRED", "This droplet has expired"},
		{"Closed", "abort E_DROPLET_CLOSED", "This droplet is closed"},
		{"LimitReached", "abort E_RECEIVER_LIMIT_REACHED", "Droplet has reached its recipient limit"},
		{"NotFound", "abort E_DROPLET_NOT_FOUND", "Droplet not found. Please check the ID"},
		{"UnknownPassesThrough", "InsufficientGas", "InsufficientGas"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TranslateLedgerRejection(tc.raw))
		})
	}
}

func TestAppErrorConstructors(t *testing.T) {
	t.Run("ValidationErrorCarriesField", func(t *testing.T) {
		err := NewValidationError("amount", "Amount must be greater than 0")
		assert.Equal(t, ErrorCodeValidationFailed, err.Code)
		assert.Equal(t, http.StatusBadRequest, err.StatusCode)
		assert.Equal(t, "amount", err.Field)
	})

	t.Run("NotFoundNamesIdentifier", func(t *testing.T) {
		err := NewNotFoundError("A1B2C3")
		assert.Equal(t, ErrorCodeNotFound, err.Code)
		assert.Equal(t, http.StatusNotFound, err.StatusCode)
		assert.Contains(t, err.Details, "A1B2C3")
	})

	t.Run("LedgerRejectedKeepsRawInDetails", func(t *testing.T) {
		err := NewLedgerRejectedError("abort E_DROPLET_EXPIRED in command 0")
		assert.Equal(t, ErrorCodeLedgerRejected, err.Code)
		assert.Equal(t, "This droplet has expired", err.Message)
		assert.Equal(t, "abort E_DROPLET_EXPIRED in command 0", err.Details)
	})

	t.Run("TransportWrapsCause", func(t *testing.T) {
		cause := assert.AnError
		err := NewTransportError("lookup failed", cause)
		require.NotNil(t, err.Cause)
		assert.Equal(t, ErrorCodeTransportFailure, err.Code)
		assert.Equal(t, http.StatusBadGateway, err.StatusCode)
	})
}
