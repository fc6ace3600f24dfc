package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/verbdrill/internal/platform/logger"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	assert.Len(t, GetTraceID(traced), 32)
	assert.NotEqual(t, GetTraceID(traced), GetTraceID(SetTraceID(ctx)))

	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)))
}

func TestValidTraceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{NewTraceID(), true},
		{"0123456789abcdef0123456789abcdef", true},
		{"0123456789ABCDEF0123456789ABCDEF", false},
		{"0123456789abcdef", false},
		{"0123456789abcdef0123456789abcdeg", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidTraceID(tt.id), tt.id)
	}
}

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		data         interface{}
		expectedBody string
	}{
		{name: "object", status: http.StatusOK, data: map[string]int{"imported": 2}, expectedBody: `{"imported":2}`},
		{name: "empty list", status: http.StatusOK, data: map[string][]int{"items": {}}, expectedBody: `{"items":[]}`},
		{name: "nil", status: http.StatusOK, data: nil, expectedBody: `null`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			RespondWithJSON(w, req, tc.status, tc.data)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tc.expectedBody, w.Body.String())
		})
	}
}

func TestRespondWithError(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	req = req.WithContext(SetTraceID(req.Context()))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusBadRequest, "bad postgres://u:p@db/x")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bad [REDACTED_DSN]", body.Error)
	assert.Equal(t, GetTraceID(req.Context()), body.TraceID)
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	log, buf := logger.GetTestLogger(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/items/go/reviews", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	w := httptest.NewRecorder()

	cause := errors.New("dial postgres://admin:hunter2@db:5432/verbdrill: refused")
	RespondWithErrorAndLog(w, req, http.StatusServiceUnavailable, "Store unavailable", cause)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"Store unavailable"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "hunter2")

	logged := buf.String()
	assert.Contains(t, logged, "API error response")
	assert.Contains(t, logged, `"level":"WARN"`)
	assert.NotContains(t, logged, "hunter2")
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr error
		errText string
	}{
		{name: "valid", body: `{"name":"go"}`},
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
		{name: "syntax error", body: `{"name":`, errText: "invalid JSON body"},
		{name: "unknown field", body: `{"nom":"go"}`, errText: "unknown field"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var got payload
			err := DecodeJSON(httptest.NewRecorder(), req, &got)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, "go", got.Name)
			}
		})
	}
}

func TestReadBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"go":{}}`)))
	data, err := ReadBody(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"go":{}}`, string(data))

	_, err = ReadBody(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.ErrorIs(t, err, ErrEmptyBody)
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if !s.ok {
		return errors.New("not ok")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	type tagged struct {
		Quality *int `validate:"required,min=0,max=5"`
	}
	five, six := 5, 6

	assert.NoError(t, ValidateRequest(&tagged{Quality: &five}))
	assert.Error(t, ValidateRequest(&tagged{Quality: &six}))
	assert.Error(t, ValidateRequest(&tagged{}))

	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.Error(t, ValidateRequest(selfValidating{}))
}
