package validation

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuncerburak97/securecall/internal/model"
)

const testKey = "secret-key-123"

func headers(kv ...string) model.Headers {
	h := model.Headers{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestValidate(t *testing.T) {
	valid := headers(HeaderAPIKey, testKey, HeaderRequestID, "req-1")

	tests := []struct {
		name       string
		headers    model.Headers
		body       string
		wantReason Reason
		wantStatus int
	}{
		{"missing api key", headers(HeaderRequestID, "req-1"), `{"name":"Usman"}`, ReasonMissingAPIKey, http.StatusBadRequest},
		{"empty api key", headers(HeaderAPIKey, "", HeaderRequestID, "req-1"), `{"name":"Usman"}`, ReasonMissingAPIKey, http.StatusBadRequest},
		{"wrong api key", headers(HeaderAPIKey, "nope", HeaderRequestID, "req-1"), `{"name":"Usman"}`, ReasonInvalidAPIKey, http.StatusUnauthorized},
		{"key is case sensitive", headers(HeaderAPIKey, "SECRET-KEY-123", HeaderRequestID, "req-1"), `{"name":"Usman"}`, ReasonInvalidAPIKey, http.StatusUnauthorized},
		{"missing request id", headers(HeaderAPIKey, testKey), `{"name":"Usman"}`, ReasonMissingRequestID, http.StatusBadRequest},
		{"empty body", valid, ``, ReasonInvalidBody, http.StatusBadRequest},
		{"unparseable body", valid, `{"name":`, ReasonInvalidBody, http.StatusBadRequest},
		{"array body", valid, `["Usman"]`, ReasonInvalidBody, http.StatusBadRequest},
		{"string body", valid, `"Usman"`, ReasonInvalidBody, http.StatusBadRequest},
		{"null body", valid, `null`, ReasonInvalidBody, http.StatusBadRequest},
		{"name absent", valid, `{}`, ReasonInvalidName, http.StatusBadRequest},
		{"name not string", valid, `{"name":42}`, ReasonInvalidName, http.StatusBadRequest},
		{"name null", valid, `{"name":null}`, ReasonInvalidName, http.StatusBadRequest},
		{"name too short after trim", valid, `{"name":" a "}`, ReasonInvalidName, http.StatusBadRequest},
		{"name whitespace only", valid, `{"name":"    "}`, ReasonInvalidName, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.headers, []byte(tt.body), testKey)
			assert.False(t, v.Accepted())
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantStatus, v.StatusCode())
		})
	}
}

func TestValidate_FirstFailureWins(t *testing.T) {
	// Every check fails; the API key check must be the one reported.
	v := Validate(model.Headers{}, []byte(`nope`), testKey)
	assert.Equal(t, ReasonMissingAPIKey, v.Reason)

	// Wrong key beats a missing request id and a bad body.
	v = Validate(headers(HeaderAPIKey, "wrong"), nil, testKey)
	assert.Equal(t, ReasonInvalidAPIKey, v.Reason)

	// Missing request id beats a bad body.
	v = Validate(headers(HeaderAPIKey, testKey), []byte(`[]`), testKey)
	assert.Equal(t, ReasonMissingRequestID, v.Reason)
}

func TestValidate_Accepted(t *testing.T) {
	h := model.Headers{"x-api-key": testKey, "x-request-id": "req-1"}

	v := Validate(h, []byte(`{"name": "  Usman  ", "extra": true}`), testKey)
	require.True(t, v.Accepted())
	assert.Equal(t, "Usman", v.Name)
	assert.Equal(t, "req-1", v.RequestID)
	assert.Equal(t, http.StatusOK, v.StatusCode())
}

func TestValidate_NameLengthCountsCharacters(t *testing.T) {
	h := headers(HeaderAPIKey, testKey, HeaderRequestID, "r")

	assert.True(t, Validate(h, []byte(`{"name":"Jo"}`), testKey).Accepted())
	assert.True(t, Validate(h, []byte(`{"name":"éé"}`), testKey).Accepted())
	// A single multi-byte character is still one character.
	assert.Equal(t, ReasonInvalidName, Validate(h, []byte(`{"name":"é"}`), testKey).Reason)
}

func TestParseObject(t *testing.T) {
	obj, err := ParseObject([]byte(` {"a": 1} `))
	require.NoError(t, err)
	assert.Equal(t, float64(1), obj["a"])

	for _, raw := range []string{"", "   ", "[1]", "1", "true", "{bad"} {
		_, err := ParseObject([]byte(raw))
		assert.True(t, errors.Is(err, ErrMalformedPayload), "input %q", raw)
	}
}

func TestReasonMessages(t *testing.T) {
	assert.Equal(t, "Missing header X-Api-Key", ReasonMissingAPIKey.Message())
	assert.Equal(t, "Invalid API key", ReasonInvalidAPIKey.Message())
	assert.Equal(t, "Missing header X-Request-Id", ReasonMissingRequestID.Message())
	assert.Equal(t, "Invalid or missing JSON body", ReasonInvalidBody.Message())
	assert.Equal(t, "Invalid 'name' field; must be string length >= 2", ReasonInvalidName.Message())
}
