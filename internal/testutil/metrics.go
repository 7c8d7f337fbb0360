package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeMetrics renders the default Prometheus registry in text format.
func ScrapeMetrics(t *testing.T) string {
	t.Helper()
	return ScrapeHandler(t, promhttp.Handler(), "/metrics")
}

// ScrapeHandler issues GET path against h and returns the body.
func ScrapeHandler(t *testing.T, h http.Handler, path string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned status %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}
	return string(body)
}

// ParseMetricValue returns the value of the first sample named metricName
// whose labels include every pair in want. A nil want matches any sample.
func ParseMetricValue(metrics, metricName string, want map[string]string) (float64, error) {
	for _, line := range strings.Split(metrics, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rest, ok := strings.CutPrefix(line, metricName)
		if !ok || rest == "" || (rest[0] != '{' && rest[0] != ' ') {
			continue
		}

		// Format: metric_name{label1="value1",label2="value2"} value
		labels := make(map[string]string)
		if rest[0] == '{' {
			end := strings.Index(rest, "}")
			if end == -1 {
				return 0, fmt.Errorf("invalid metric format: missing closing brace")
			}
			for _, pair := range strings.Split(rest[1:end], ",") {
				k, v, ok := strings.Cut(pair, "=")
				if ok {
					labels[strings.TrimSpace(k)] = strings.Trim(v, `"`)
				}
			}
			rest = rest[end+1:]
		}
		if !labelsMatch(labels, want) {
			continue
		}
		return strconv.ParseFloat(strings.TrimSpace(rest), 64)
	}
	return 0, fmt.Errorf("metric %q with labels %v not found", metricName, want)
}

func labelsMatch(got, want map[string]string) bool {
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// MetricValueOrZero is ParseMetricValue treating a missing sample as 0,
// which is what an untouched counter looks like.
func MetricValueOrZero(metrics, metricName string, labels map[string]string) float64 {
	v, err := ParseMetricValue(metrics, metricName, labels)
	if err != nil {
		return 0
	}
	return v
}

// AssertMetricExists asserts that a metric exists in the metrics output.
func AssertMetricExists(t *testing.T, metrics, metricName string) {
	t.Helper()
	if _, err := ParseMetricValue(metrics, metricName, nil); err != nil {
		t.Fatalf("metric %q does not exist: %v", metricName, err)
	}
}

// AssertMetricIncremented asserts that a sample grew by exactly delta
// between two scrapes.
func AssertMetricIncremented(t *testing.T, before, after, metricName string, labels map[string]string, delta float64) {
	t.Helper()
	b := MetricValueOrZero(before, metricName, labels)
	a := MetricValueOrZero(after, metricName, labels)
	if a-b != delta {
		t.Errorf("metric %q%v changed by %v, want %v (before=%v, after=%v)", metricName, labels, a-b, delta, b, a)
	}
}
