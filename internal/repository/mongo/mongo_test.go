package mongo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuncerburak97/securecall/internal/model"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDocument_BSONRoundTrip(t *testing.T) {
	tests := []model.LogEntry{
		{
			Seq:       1,
			ID:        "7d1c4a52-0c8e-4a8e-9e43-8f5b3f1a2c11",
			Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 123*int(time.Millisecond), time.UTC),
			Source:    model.SourceSecure,
			ClientIP:  "10.0.0.1",
			Headers:   model.Headers{"X-Request-Id": "req-1", "X-Api-Key": "[REDACTED]"},
			Body:      json.RawMessage(`{"body":1,"name":"Usman","nested":{"a":[1,2]}}`),
			Path:      "/api/secure",
			Result:    model.Result{Outcome: model.OutcomeAccepted, Detail: "Hello, Usman!", StatusCode: 200},
		},
		{
			Seq:       2,
			ID:        "b2",
			Timestamp: time.Date(2024, 5, 1, 12, 30, 1, 0, time.UTC),
			Source:    model.SourceSecure,
			Headers:   model.Headers{},
			Path:      "/api/secure",
			Result:    model.Result{Outcome: model.OutcomeRejected, Reason: "InvalidBody", Detail: "Invalid or missing JSON body", StatusCode: 400},
		},
	}

	for _, want := range tests {
		data, err := bson.Marshal(toDocument(&want))
		require.NoError(t, err)

		var doc document
		require.NoError(t, bson.Unmarshal(data, &doc))
		assert.Equal(t, want, doc.entry())
	}
}
