package model

import (
	"net/textproto"
	"strings"
)

// Headers maps canonical header names to their first value.
type Headers map[string]string

// NewHeaders builds Headers from a multi-value header map, keeping the first value.
func NewHeaders(src map[string][]string) Headers {
	h := make(Headers, len(src))
	for k, v := range src {
		if len(v) > 0 {
			h[textproto.CanonicalMIMEHeaderKey(k)] = v[0]
		}
	}
	return h
}

// Get looks a header up case-insensitively.
func (h Headers) Get(name string) string {
	if v, ok := h[textproto.CanonicalMIMEHeaderKey(name)]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Set stores value under the canonical form of name.
func (h Headers) Set(name, value string) {
	h[textproto.CanonicalMIMEHeaderKey(name)] = value
}

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
