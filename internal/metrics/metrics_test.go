package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ExposesCollectors(t *testing.T) {
	SessionOperations.WithLabelValues("save", ResultOK).Inc()
	EventsPublished.WithLabelValues("session.created", ResultError).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"billiard_session_operations_total",
		"billiard_events_published_total",
		"billiard_summary_cache_hits_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestResult(t *testing.T) {
	if Result(nil) != ResultOK || Result(errors.New("x")) != ResultError {
		t.Fatal("unexpected result labels")
	}
}
