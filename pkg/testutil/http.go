// Package testutil holds helpers shared by handler and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelforge/pkg/platform/middleware/admin"
)

// JSONRequest builds a request whose body is body encoded as JSON. A string
// body is sent as-is so tests can post malformed payloads.
func JSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err, "encode request body")
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AdminRequest is JSONRequest carrying the operator token.
func AdminRequest(t *testing.T, token, method, path string, body any) *http.Request {
	t.Helper()
	req := JSONRequest(t, method, path, body)
	req.Header.Set(admin.HeaderToken, token)
	return req
}

// Serve runs req through h and returns the recorded response.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// Decode unmarshals the response body into a T.
func Decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "decode response body %q", rr.Body.String())
	return out
}

// AssertError checks the status and the "error" code of an error body.
func AssertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rr.Code, "status")
	body := Decode[map[string]string](t, rr)
	assert.Equal(t, code, body["error"], "error code")
}
