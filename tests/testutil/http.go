package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HandlerCase drives one gin handler call without a router. A zero
// TenantID leaves the request unauthenticated.
type HandlerCase struct {
	Name        string
	Method      string
	Path        string
	Params      gin.Params
	Body        any    // encoded as JSON
	RawBody     string // sent as-is with ContentType
	ContentType string
	TenantID    uuid.UUID

	ExpectedStatus int
	ExpectedCode   string // error code in the envelope, checked when set
	Validate       func(t *testing.T, tc *TestContext)
}

// Envelope mirrors the API response wrapper
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
		Details   []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

// RunHandlerCases runs each case as a subtest
func RunHandlerCases(t *testing.T, handler gin.HandlerFunc, cases []HandlerCase) {
	t.Helper()
	for _, hc := range cases {
		t.Run(hc.Name, func(t *testing.T) {
			RunHandlerCase(t, handler, hc)
		})
	}
}

// RunHandlerCase builds the request, calls handler and checks the outcome
func RunHandlerCase(t *testing.T, handler gin.HandlerFunc, hc HandlerCase) *TestContext {
	t.Helper()

	var body io.Reader
	contentType := hc.ContentType
	switch {
	case hc.RawBody != "":
		body = strings.NewReader(hc.RawBody)
	case hc.Body != nil:
		body = ToJSONReader(t, hc.Body)
		contentType = "application/json"
	}
	method := hc.Method
	if method == "" {
		method = http.MethodGet
	}
	path := hc.Path
	if path == "" {
		path = "/"
	}

	tc := NewTestContext(t)
	tc.Context.Request = httptest.NewRequest(method, path, body)
	if contentType != "" {
		tc.SetHeader("Content-Type", contentType)
	}
	tc.Context.Params = hc.Params
	tc.SetRequestID("test-request")
	if hc.TenantID != uuid.Nil {
		tc.SetTenantID(hc.TenantID)
		tc.SetUserID(TestUserID())
	}

	handler(tc.Context)

	if hc.ExpectedStatus != 0 {
		assert.Equal(t, hc.ExpectedStatus, tc.ResponseCode(), tc.Recorder.Body.String())
	}
	if hc.ExpectedCode != "" {
		AssertErrorResponse(t, tc, hc.ExpectedCode)
	}
	if hc.Validate != nil {
		hc.Validate(t, tc)
	}
	return tc
}

// DecodeEnvelope parses the response wrapper
func DecodeEnvelope(t *testing.T, tc *TestContext) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &env), "Failed to parse JSON response")
	return env
}

// DataAs decodes the data member of a successful response
func DataAs[T any](t *testing.T, tc *TestContext) T {
	t.Helper()
	env := DecodeEnvelope(t, tc)
	require.True(t, env.Success, string(tc.ResponseBody()))
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// AssertErrorResponse checks the envelope carries expectedCode
func AssertErrorResponse(t *testing.T, tc *TestContext, expectedCode string) {
	t.Helper()
	env := DecodeEnvelope(t, tc)
	assert.False(t, env.Success, "Expected success to be false")
	require.NotNil(t, env.Error, "Expected error object in response")
	assert.Equal(t, expectedCode, env.Error.Code, "Unexpected error code")
}

// ToJSONReader encodes v as JSON
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
