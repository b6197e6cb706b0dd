package runtime

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/mohammad-safakhou/documind/config"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestTelemetryExposesOTelMetrics(t *testing.T) {
	ctx := context.Background()
	tel, err := SetupTelemetry(ctx, config.TelemetryConfig{Enabled: true, ServiceName: "documind-test"}, TelemetryOptions{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer tel.Shutdown(ctx)

	counter, err := otel.Meter("test").Int64Counter("documind_test_events")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(ctx, 3)

	body := scrape(t, tel.MetricsHandler())
	if !strings.Contains(body, "documind_test_events") {
		t.Fatalf("metric missing from scrape:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("runtime collectors missing from scrape")
	}
}

func TestTelemetryDisabled(t *testing.T) {
	tel, err := SetupTelemetry(context.Background(), config.TelemetryConfig{}, TelemetryOptions{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	_ = scrape(t, tel.MetricsHandler())
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
