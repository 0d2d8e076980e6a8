package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/connect"
	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	httperrors "github.com/dropDatabas3/socialconnect/internal/http/v2/errors"
	"github.com/dropDatabas3/socialconnect/internal/social"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"app error", httperrors.ErrForbidden, "FORBIDDEN", http.StatusForbidden},
		{"not authenticated", social.ErrNotAuthenticated, "UNAUTHORIZED", http.StatusUnauthorized},
		{"unknown service", fmt.Errorf("get: %w", social.ErrUnknownService), "PROVIDER_NOT_FOUND", http.StatusNotFound},
		{"unknown provider", connect.ErrUnknownProvider, "PROVIDER_NOT_FOUND", http.StatusNotFound},
		{"not connected", &repository.NotConnectedError{ProviderID: "github"}, "CONNECTION_NOT_FOUND", http.StatusNotFound},
		{"no such connection", repository.ErrNoSuchConnection, "CONNECTION_NOT_FOUND", http.StatusNotFound},
		{"duplicate", repository.ErrDuplicateConnection, "CONNECTION_EXISTS", http.StatusConflict},
		{"invalid input", repository.ErrInvalidInput, "BAD_REQUEST", http.StatusBadRequest},
		{"expired token", &connect.APIError{ProviderID: "github", Kind: connect.KindExpiredAuthorization}, "PROVIDER_AUTHORIZATION", http.StatusBadGateway},
		{"rate limited", &connect.APIError{ProviderID: "github", Kind: connect.KindRateLimited}, "PROVIDER_RATE_LIMITED", http.StatusServiceUnavailable},
		{"provider down", &connect.APIError{ProviderID: "github", Kind: connect.KindProviderDown}, "PROVIDER_UNAVAILABLE", http.StatusServiceUnavailable},
		{"duplicate post", &connect.APIError{ProviderID: "twitter", Kind: connect.KindDuplicate}, "CONFLICT", http.StatusConflict},
		{"other api error", &connect.APIError{ProviderID: "github", Kind: connect.KindOther}, "PROVIDER_ERROR", http.StatusBadGateway},
		{"unknown", errors.New("boom"), "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := httperrors.FromError(tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}
}

func TestFromError_KeepsCauseWithoutMutatingBase(t *testing.T) {
	cause := errors.New("db timeout")
	got := httperrors.FromError(cause)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, httperrors.ErrInternalServerError.Err)

	apiErr := &connect.APIError{ProviderID: "github", Kind: connect.KindUnauthorized}
	got = httperrors.FromError(fmt.Errorf("fetch profile: %w", apiErr))
	assert.Equal(t, "github", got.Detail)
	assert.Empty(t, httperrors.ErrProviderAuthorization.Detail)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	httperrors.WriteError(rec, httperrors.ErrProviderNotFound.WithDetail("myspace"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PROVIDER_NOT_FOUND", body["code"])
	assert.Equal(t, "myspace", body["detail"])
	assert.NotEmpty(t, body["message"])
}

func TestWrite_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/connect", nil)
	httperrors.Write(rec, req, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}
