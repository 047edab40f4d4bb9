package imaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestVerdictFromProbability(t *testing.T) {
	tests := []struct {
		p    float64
		want domain.Verdict
	}{
		{0.0, domain.NEGATIVE},
		{0.5, domain.NEGATIVE},
		{0.5000001, domain.POSITIVE},
		{0.97, domain.POSITIVE},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerdictFromProbability(tt.p), "p=%v", tt.p)
	}
}

func TestHTTPClassifier_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/classify", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		switch req.ImageRef {
		case "positive.png":
			w.Write([]byte(`{"probability": 0.87}`))
		case "negative.png":
			w.Write([]byte(`{"probability": 0.12}`))
		case "broken.png":
			w.Write([]byte(`{"probability": 3.5}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	classifier := NewHTTPClassifier(HTTPConfig{BaseURL: server.URL + "/", APIKey: "secret", RateLimit: 100}, quietLogger())
	ctx := context.Background()

	got, err := classifier.Classify(ctx, "positive.png")
	require.NoError(t, err)
	assert.Equal(t, domain.ImagingEvidence{Verdict: domain.POSITIVE, Confidence: 0.87}, got)

	got, err = classifier.Classify(ctx, "negative.png")
	require.NoError(t, err)
	assert.Equal(t, domain.NEGATIVE, got.Verdict)

	_, err = classifier.Classify(ctx, "broken.png")
	assert.Error(t, err)

	_, err = classifier.Classify(ctx, "missing.png")
	assert.Error(t, err)

	_, err = classifier.Classify(ctx, " ")
	assert.Error(t, err)
}

func TestHTTPClassifier_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	classifier := NewHTTPClassifier(HTTPConfig{
		BaseURL:          server.URL,
		RateLimit:        100,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	}, quietLogger())

	for i := 0; i < 4; i++ {
		_, err := classifier.Classify(context.Background(), "xray.png")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), calls.Load(), "breaker stops calling after the threshold")
	assert.Equal(t, "open", classifier.State())
}

func TestHTTPClassifier_ContextCancelled(t *testing.T) {
	classifier := NewHTTPClassifier(HTTPConfig{BaseURL: "http://127.0.0.1:1", RateLimit: 1}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := classifier.Classify(ctx, "xray.png")
	assert.Error(t, err)
}

type fakeClassifier struct {
	evidence domain.ImagingEvidence
	err      error
}

func (f fakeClassifier) Classify(context.Context, string) (domain.ImagingEvidence, error) {
	return f.evidence, f.err
}

func TestSafeClassifier(t *testing.T) {
	ctx := context.Background()
	logger := quietLogger()

	tests := []struct {
		name  string
		inner domain.ImagingClassifier
		ref   string
		want  domain.ImagingEvidence
	}{
		{"nil inner", nil, "xray.png", domain.NeutralImaging()},
		{"no image", fakeClassifier{evidence: domain.ImagingFromProbability(0.9)}, "", domain.NeutralImaging()},
		{"error", fakeClassifier{err: errors.New("timeout")}, "xray.png", domain.NeutralImaging()},
		{"out of range", fakeClassifier{evidence: domain.ImagingEvidence{Verdict: domain.POSITIVE, Confidence: 1.3}}, "xray.png", domain.NeutralImaging()},
		{"bad verdict", fakeClassifier{evidence: domain.ImagingEvidence{Verdict: "UNSURE", Confidence: 0.4}}, "xray.png", domain.NeutralImaging()},
		{"passes through", fakeClassifier{evidence: domain.ImagingFromProbability(0.9)}, "xray.png", domain.ImagingFromProbability(0.9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSafeClassifier(tt.inner, logger).Classify(ctx, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
