package metrics

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	defaultCollector *MetricsCollector
	once             sync.Once
)

// GetMetricsCollector returns the singleton metrics collector instance
func GetMetricsCollector(namespace, appName string) *MetricsCollector {
	once.Do(func() {
		defaultCollector = NewMetricsCollector(namespace, appName)
	})
	return defaultCollector
}

type MetricsCollector struct {
	AppName         string
	RequestDuration *prometheus.HistogramVec
	RequestCounter  *prometheus.CounterVec
	ResponseSize    *prometheus.HistogramVec
	ErrorCounter    *prometheus.CounterVec
	ActiveRequests  prometheus.Gauge
	VerdictCounter  *prometheus.CounterVec
	AppendDuration  *prometheus.HistogramVec
	StoredEntries   prometheus.Gauge
	bufferChan      chan metricEvent
	done            chan struct{}
	stopped         chan struct{}
	closeOnce       sync.Once
}

type metricEvent struct {
	labels   prometheus.Labels
	duration time.Duration
	size     int64
}

type MetricsResponse struct {
	AppName   string                 `json:"app_name"`
	Timestamp time.Time              `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics"`
}

// NewMetricsCollector registers the collectors with the default registry.
// Use GetMetricsCollector unless a second registration is intended.
func NewMetricsCollector(namespace, appName string) *MetricsCollector {
	m := &MetricsCollector{
		AppName: appName,
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"app", "method", "path", "status"},
		),

		RequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests",
			},
			[]string{"app", "method", "path", "status"},
		),

		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_size_bytes",
				Help:      "Response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"app", "method", "path", "status"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"app", "type", "kind"},
		),

		ActiveRequests: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_requests",
				Help:      "Number of active requests",
				ConstLabels: prometheus.Labels{
					"app": appName,
				},
			},
		),

		VerdictCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdicts_total",
				Help:      "Validation verdicts by outcome and reason",
			},
			[]string{"app", "source", "outcome", "reason"},
		),

		AppendDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "log_append_duration_seconds",
				Help:      "Time spent persisting one audit log entry",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"app", "result"},
		),

		StoredEntries: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "log_entries",
				Help:      "Number of entries in the audit log",
				ConstLabels: prometheus.Labels{
					"app": appName,
				},
			},
		),
		bufferChan: make(chan metricEvent, 100),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	m.startCollector()
	return m
}

// startCollector runs until Close is called.
func (m *MetricsCollector) startCollector() {
	go func() {
		defer close(m.stopped)
		batch := make([]metricEvent, 0, 100)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-m.done:
				for {
					select {
					case event := <-m.bufferChan:
						batch = append(batch, event)
					default:
						m.processBatch(batch)
						return
					}
				}
			case event := <-m.bufferChan:
				batch = append(batch, event)
				if len(batch) >= 100 {
					m.processBatch(batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				if len(batch) > 0 {
					m.processBatch(batch)
					batch = batch[:0]
				}
			}
		}
	}()
}

func (m *MetricsCollector) processBatch(batch []metricEvent) {
	for _, event := range batch {
		m.RequestCounter.With(event.labels).Inc()
		m.RequestDuration.With(event.labels).Observe(event.duration.Seconds())
		m.ResponseSize.With(event.labels).Observe(float64(event.size))
	}
}

// ObserveRequest queues one finished HTTP request for the batch collector.
func (m *MetricsCollector) ObserveRequest(method, path, status string, duration time.Duration, size int64) {
	labels := prometheus.Labels{
		"app":    m.AppName,
		"method": method,
		"path":   path,
		"status": status,
	}

	select {
	case m.bufferChan <- metricEvent{
		labels:   labels,
		duration: duration,
		size:     size,
	}:
	case <-m.done:
	}
}

// Close flushes queued request observations and stops the batch goroutine.
// Observations made after Close are dropped.
func (m *MetricsCollector) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	<-m.stopped
}

func (m *MetricsCollector) IncActiveRequests() {
	m.ActiveRequests.Inc()
}

func (m *MetricsCollector) DecActiveRequests() {
	m.ActiveRequests.Dec()
}

func (m *MetricsCollector) LogError(errorType, kind string) {
	m.ErrorCounter.With(prometheus.Labels{
		"app":  m.AppName,
		"type": errorType,
		"kind": kind,
	}).Inc()
}

func (m *MetricsCollector) ObserveVerdict(source, outcome, reason string) {
	m.VerdictCounter.With(prometheus.Labels{
		"app":     m.AppName,
		"source":  source,
		"outcome": outcome,
		"reason":  reason,
	}).Inc()
}

func (m *MetricsCollector) ObserveAppend(duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AppendDuration.With(prometheus.Labels{
		"app":    m.AppName,
		"result": result,
	}).Observe(duration.Seconds())
}

func (m *MetricsCollector) SetStoredEntries(n int) {
	m.StoredEntries.Set(float64(n))
}

// GetMetricsJSON returns metrics in JSON format
func (m *MetricsCollector) GetMetricsJSON() ([]byte, error) {
	metrics := MetricsResponse{
		AppName:   m.AppName,
		Timestamp: time.Now(),
		Metrics: map[string]interface{}{
			"request_duration":    m.getHistogramMetrics(m.RequestDuration),
			"requests_total":      m.getCounterMetrics(m.RequestCounter),
			"response_size":       m.getHistogramMetrics(m.ResponseSize),
			"errors_total":        m.getCounterMetrics(m.ErrorCounter),
			"active_requests":     m.getGaugeValue(m.ActiveRequests),
			"verdicts_total":      m.getCounterMetrics(m.VerdictCounter),
			"log_append_duration": m.getHistogramMetrics(m.AppendDuration),
			"log_entries":         m.getGaugeValue(m.StoredEntries),
		},
	}

	return json.Marshal(metrics)
}

func (m *MetricsCollector) getHistogramMetrics(vec *prometheus.HistogramVec) map[string]float64 {
	metrics := make(map[string]float64)
	ch := make(chan prometheus.Metric, 1000)
	vec.Collect(ch)
	close(ch)

	for metric := range ch {
		dtoMetric := &dto.Metric{}
		metric.Write(dtoMetric)
		hist := dtoMetric.GetHistogram()
		name := getMetricName(metric)

		for _, bucket := range hist.GetBucket() {
			metrics[fmt.Sprintf("%s,bucket_%.3f", name, bucket.GetUpperBound())] = float64(bucket.GetCumulativeCount())
		}
		metrics[name+",sum"] = hist.GetSampleSum()
		metrics[name+",count"] = float64(hist.GetSampleCount())
	}

	return metrics
}

func (m *MetricsCollector) getCounterMetrics(vec *prometheus.CounterVec) map[string]float64 {
	metrics := make(map[string]float64)
	ch := make(chan prometheus.Metric, 1000)
	vec.Collect(ch)
	close(ch)

	for metric := range ch {
		dtoMetric := &dto.Metric{}
		metric.Write(dtoMetric)
		counter := dtoMetric.GetCounter()
		metrics[getMetricName(metric)] = counter.GetValue()
	}

	return metrics
}

func (m *MetricsCollector) getGaugeValue(gauge prometheus.Gauge) float64 {
	ch := make(chan prometheus.Metric, 1)
	gauge.Collect(ch)
	close(ch)

	metric := <-ch
	dtoMetric := &dto.Metric{}
	metric.Write(dtoMetric)
	return dtoMetric.GetGauge().GetValue()
}

func getMetricName(metric prometheus.Metric) string {
	dtoMetric := &dto.Metric{}
	metric.Write(dtoMetric)

	var labels []string
	for _, label := range dtoMetric.GetLabel() {
		labels = append(labels, fmt.Sprintf("%s=%s", label.GetName(), label.GetValue()))
	}

	return strings.Join(labels, ",")
}
