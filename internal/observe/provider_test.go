package observe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/mverran/scrivano/internal/observe"
)

func TestSetup_MetricsReachScrapeEndpoint(t *testing.T) {
	// Setup mutates the global OTel providers; no t.Parallel.
	ctx := context.Background()
	tel, err := observe.Setup(ctx, observe.WithServiceVersion("test"))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() {
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}()

	m, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.FramesCaptured.Add(ctx, 3)
	m.RecognitionDuration.Record(ctx, 0.05)

	rec := httptest.NewRecorder()
	tel.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "scrivano_audio_frames") {
		t.Errorf("scrape output missing frames counter:\n%s", body)
	}
	if !strings.Contains(body, "scrivano_recognition_duration") {
		t.Errorf("scrape output missing recognition histogram:\n%s", body)
	}
}
