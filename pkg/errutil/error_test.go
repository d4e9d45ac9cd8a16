package errutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseErrorWrapsCause(t *testing.T) {
	cause := errors.New("redis: connection refused")
	err := Internal("store unavailable", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "[INTERNAL] store unavailable: redis: connection refused", err.Error())

	base := From(err)
	require.Equal(t, StatusInternal, base.Status())
	require.Equal(t, http.StatusInternalServerError, base.Code.HTTPStatus())

	body := base.JSON().(map[string]interface{})["error"].(map[string]interface{})
	require.Equal(t, "store unavailable", body["message"])
}

func TestFromUnknownError(t *testing.T) {
	base := From(errors.New("boom"))
	require.Equal(t, StatusInternal, base.Code)
	require.Equal(t, "Internal server error", base.Message)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusBadRequest:         http.StatusBadRequest,
		StatusValidationFailed:   http.StatusBadRequest,
		StatusNotFound:           http.StatusNotFound,
		StatusForbidden:          http.StatusForbidden,
		StatusTooManyRequests:    http.StatusTooManyRequests,
		StatusServiceUnavailable: http.StatusServiceUnavailable,
		StatusUnknown:            http.StatusInternalServerError,
	}
	for status, want := range cases {
		require.Equal(t, want, status.HTTPStatus(), status)
	}
}
