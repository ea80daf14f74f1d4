// Package validation implements the ordered request checks guarding
// POST /api/secure.
//
// Checks run in a fixed order and the first failure decides both the HTTP
// status and the reason recorded in the audit log:
//
//	MissingApiKey -> InvalidApiKey -> MissingRequestId -> InvalidBody -> InvalidName
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tuncerburak97/securecall/internal/model"
)

const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderRequestID = "X-Request-Id"
)

// ErrMalformedPayload marks a body that is not a JSON object.
var ErrMalformedPayload = errors.New("malformed payload")

type Reason string

const (
	ReasonMissingAPIKey    Reason = "MissingApiKey"
	ReasonInvalidAPIKey    Reason = "InvalidApiKey"
	ReasonMissingRequestID Reason = "MissingRequestId"
	ReasonInvalidBody      Reason = "InvalidBody"
	ReasonInvalidName      Reason = "InvalidName"
)

var reasonInfo = map[Reason]struct {
	status  int
	message string
}{
	ReasonMissingAPIKey:    {http.StatusBadRequest, "Missing header X-Api-Key"},
	ReasonInvalidAPIKey:    {http.StatusUnauthorized, "Invalid API key"},
	ReasonMissingRequestID: {http.StatusBadRequest, "Missing header X-Request-Id"},
	ReasonInvalidBody:      {http.StatusBadRequest, "Invalid or missing JSON body"},
	ReasonInvalidName:      {http.StatusBadRequest, "Invalid 'name' field; must be string length >= 2"},
}

// StatusCode is the HTTP status returned to the caller for r.
func (r Reason) StatusCode() int {
	if info, ok := reasonInfo[r]; ok {
		return info.status
	}
	return http.StatusBadRequest
}

// Message is the client-facing error text for r.
func (r Reason) Message() string {
	if info, ok := reasonInfo[r]; ok {
		return info.message
	}
	return string(r)
}

// Verdict is either accepted (Reason empty, Name and RequestID set) or
// rejected with a Reason.
type Verdict struct {
	Reason    Reason
	Name      string
	RequestID string
}

func Accept(name, requestID string) Verdict {
	return Verdict{Name: name, RequestID: requestID}
}

func Reject(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

func (v Verdict) Accepted() bool {
	return v.Reason == ""
}

func (v Verdict) StatusCode() int {
	if v.Accepted() {
		return http.StatusOK
	}
	return v.Reason.StatusCode()
}

// Context holds what the checks need from a single request.
type Context struct {
	APIKey    string
	RequestID string
	Body      map[string]any
	BodyErr   error
}

// NewContext extracts the validation inputs from headers and the raw body.
func NewContext(headers model.Headers, rawBody []byte) *Context {
	body, err := ParseObject(rawBody)
	return &Context{
		APIKey:    headers.Get(HeaderAPIKey),
		RequestID: headers.Get(HeaderRequestID),
		Body:      body,
		BodyErr:   err,
	}
}

// Name returns the raw "name" field and whether it is a string.
func (c *Context) Name() (string, bool) {
	v, ok := c.Body["name"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ParseObject decodes raw as a JSON object. Anything else, including an
// empty body, yields ErrMalformedPayload.
func ParseObject(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedPayload)
	}
	return obj, nil
}

var validate = validator.New()

type greeting struct {
	Name string `validate:"min=2"`
}

// Validate runs the checks against headers and rawBody.
func Validate(headers model.Headers, rawBody []byte, expectedAPIKey string) Verdict {
	return NewContext(headers, rawBody).Validate(expectedAPIKey)
}

func (c *Context) Validate(expectedAPIKey string) Verdict {
	if c.APIKey == "" {
		return Reject(ReasonMissingAPIKey)
	}
	if c.APIKey != expectedAPIKey {
		return Reject(ReasonInvalidAPIKey)
	}
	if c.RequestID == "" {
		return Reject(ReasonMissingRequestID)
	}
	if c.BodyErr != nil {
		return Reject(ReasonInvalidBody)
	}

	name, ok := c.Name()
	if !ok {
		return Reject(ReasonInvalidName)
	}
	g := greeting{Name: strings.TrimSpace(name)}
	if err := validate.Struct(g); err != nil {
		return Reject(ReasonInvalidName)
	}

	return Accept(g.Name, c.RequestID)
}
