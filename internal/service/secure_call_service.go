package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/tuncerburak97/securecall/internal/logstore"
	"github.com/tuncerburak97/securecall/internal/metrics"
	"github.com/tuncerburak97/securecall/internal/model"
	"github.com/tuncerburak97/securecall/internal/validation"
)

const (
	PathSecure   = "/api/secure"
	PathFrontend = "/frontend-log"

	redacted = "[REDACTED]"
)

// LogStore is the subset of *logstore.Store used by the service.
type LogStore interface {
	Append(ctx context.Context, entry model.LogEntry) (model.LogEntry, error)
	ReadRecent(n int) []model.LogEntry
	Raw(ctx context.Context) ([]byte, error)
	Len() int
}

// EntryTransformer rewrites an entry before it is stored.
type EntryTransformer interface {
	TransformEntry(entry *model.LogEntry) error
}

// Response is what a handler writes back: a status and a JSON-encodable body.
type Response struct {
	Status int
	Body   any
}

type SuccessResponse struct {
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
	ServerTime int64  `json:"server_time"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type FrontendLogResponse struct {
	Message string         `json:"message"`
	Entry   model.LogEntry `json:"entry"`
}

type SecureCallService struct {
	store       LogStore
	apiKey      string
	recentLimit int
	transformer EntryTransformer
	metrics     *metrics.MetricsCollector
	logger      *zerolog.Logger
	now         func() time.Time
}

func NewSecureCallService(store LogStore, apiKey string, recentLimit int, transformer EntryTransformer, logger *zerolog.Logger) *SecureCallService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SecureCallService{
		store:       store,
		apiKey:      apiKey,
		recentLimit: recentLimit,
		transformer: transformer,
		metrics:     metrics.GetMetricsCollector("securecall", "securecall_api"),
		logger:      logger,
		now:         time.Now,
	}
}

// HandleSecureCall validates a POST /api/secure request and records the
// outcome. The entry is appended whatever the verdict; a failed append is
// reported on the logger and never changes the response.
func (s *SecureCallService) HandleSecureCall(ctx context.Context, headers map[string][]string, rawBody []byte, clientIP string) Response {
	h := model.NewHeaders(headers)
	verdict := validation.Validate(h, rawBody, s.apiKey)

	var resp Response
	result := model.Result{StatusCode: verdict.StatusCode()}
	if verdict.Accepted() {
		message := fmt.Sprintf("Hello, %s!", verdict.Name)
		resp = Response{
			Status: http.StatusOK,
			Body: SuccessResponse{
				Message:    message,
				RequestID:  verdict.RequestID,
				ServerTime: s.now().Unix(),
			},
		}
		result.Outcome = model.OutcomeAccepted
		result.Detail = message
	} else {
		resp = Response{
			Status: verdict.StatusCode(),
			Body:   ErrorResponse{Error: verdict.Reason.Message()},
		}
		result.Outcome = model.OutcomeRejected
		result.Reason = string(verdict.Reason)
		result.Detail = verdict.Reason.Message()
	}
	s.metrics.ObserveVerdict(model.SourceSecure, result.Outcome, result.Reason)

	entry := s.newEntry(model.SourceSecure, PathSecure, h, rawBody, clientIP, result)
	if _, err := s.append(ctx, entry); err != nil {
		s.logger.Error().
			Err(err).
			Str("request_id", h.Get(validation.HeaderRequestID)).
			Str("outcome", result.Outcome).
			Msg("Failed to record secure call")
	}

	return resp
}

// LogFrontendEvent records an arbitrary JSON object sent by the demo page.
func (s *SecureCallService) LogFrontendEvent(ctx context.Context, headers map[string][]string, rawBody []byte, clientIP string) Response {
	if _, err := validation.ParseObject(rawBody); err != nil {
		s.metrics.ObserveVerdict(model.SourceFrontend, model.OutcomeRejected, string(validation.ReasonInvalidBody))
		return Response{
			Status: http.StatusBadRequest,
			Body:   ErrorResponse{Error: validation.ReasonInvalidBody.Message()},
		}
	}
	s.metrics.ObserveVerdict(model.SourceFrontend, model.OutcomeReceived, "")

	result := model.Result{Outcome: model.OutcomeReceived, StatusCode: http.StatusOK}
	entry := s.newEntry(model.SourceFrontend, PathFrontend, model.NewHeaders(headers), rawBody, clientIP, result)

	stored, err := s.append(ctx, entry)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to record frontend event")
		return Response{
			Status: http.StatusInternalServerError,
			Body:   ErrorResponse{Error: "Failed to record log entry"},
		}
	}

	return Response{
		Status: http.StatusOK,
		Body:   FrontendLogResponse{Message: "frontend log recorded", Entry: stored},
	}
}

// RecentLogs returns up to n of the newest entries, oldest first. A
// non-positive n means the configured recent limit.
func (s *SecureCallService) RecentLogs(n int) []model.LogEntry {
	if n <= 0 {
		n = s.recentLimit
	}
	return s.store.ReadRecent(n)
}

// FullLog returns the persisted log as stored. model.ErrLogNotFound means
// nothing has been written yet.
func (s *SecureCallService) FullLog(ctx context.Context) ([]byte, error) {
	data, err := s.store.Raw(ctx)
	if err != nil && !errors.Is(err, model.ErrLogNotFound) {
		s.logger.Error().Err(err).Msg("Failed to export log")
	}
	return data, err
}

func (s *SecureCallService) newEntry(source, path string, headers model.Headers, rawBody []byte, clientIP string, result model.Result) model.LogEntry {
	headers = headers.Clone()
	if headers.Get(validation.HeaderAPIKey) != "" {
		headers.Set(validation.HeaderAPIKey, redacted)
	}

	return model.LogEntry{
		Source:   source,
		Path:     path,
		ClientIP: clientIP,
		Headers:  headers,
		Body:     compactBody(rawBody),
		Result:   result,
	}
}

func (s *SecureCallService) append(ctx context.Context, entry model.LogEntry) (model.LogEntry, error) {
	if s.transformer != nil {
		transformed := entry.Clone()
		if err := s.transformer.TransformEntry(&transformed); err != nil {
			s.logger.Warn().Err(err).Str("source", entry.Source).Msg("Entry transform failed, storing original")
			s.metrics.LogError("transform", entry.Source)
		} else {
			entry = transformed
		}
	}

	start := time.Now()
	stored, err := s.store.Append(ctx, entry)
	s.metrics.ObserveAppend(time.Since(start), err)
	if err != nil {
		kind := "other"
		if errors.Is(err, logstore.ErrPersistenceFailure) {
			kind = "persistence_failure"
		}
		s.metrics.LogError("log_append", kind)
		return model.LogEntry{}, err
	}
	s.metrics.SetStoredEntries(s.store.Len())
	return stored, nil
}

// compactBody keeps the body only when it is valid JSON.
func compactBody(raw []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, bytes.TrimSpace(raw)); err != nil || buf.Len() == 0 {
		return nil
	}
	return json.RawMessage(buf.Bytes())
}
