package apiresponse

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteData_EnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, "tx-1", map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, `"tx-1"`, string(body["id"]))
	assert.Contains(t, body, "data")
	assert.NotContains(t, body, "apiError", "success envelope must omit apiError")
}

func TestWriteError_EnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "tx-2", CodeNotFound, "no such thing")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var env ApiResponse[struct{}]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "tx-2", env.ID)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.ApiError)
	assert.Equal(t, "tx-2", env.ApiError.ID)
	assert.Equal(t, CodeNotFound, env.ApiError.Code)
	assert.Equal(t, "no such thing", env.ApiError.Message)
	assert.Empty(t, env.ApiError.Stack, "stack must never reach the wire")
}

func TestStatusFor(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeValidation:     http.StatusBadRequest,
		CodeConflict:       http.StatusBadRequest,
		CodeCredential:     http.StatusUnauthorized,
		CodeLoginLocked:    http.StatusUnauthorized,
		CodeUsernameLookup: http.StatusNotFound,
		CodeNotFound:       http.StatusNotFound,
		CodeRateLimited:    http.StatusTooManyRequests,
		CodeStore:          http.StatusInternalServerError,
		CodeInternal:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), "code %s", code)
	}
}
