// Package imaging adapts remote chest X-ray classifiers into imaging
// evidence for the risk calculator.
package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// VerdictFromProbability returns POSITIVE for p > 0.5, NEGATIVE otherwise.
func VerdictFromProbability(p float64) domain.Verdict {
	return domain.ImagingFromProbability(p).Verdict
}

// HTTPConfig configures an HTTPClassifier.
type HTTPConfig struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	RateLimit        int
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// HTTPConfigFrom maps domain configuration onto an HTTPConfig.
func HTTPConfigFrom(cfg domain.ImagingConfig) HTTPConfig {
	return HTTPConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
	}
}

type classifyRequest struct {
	ImageRef string `json:"image_ref"`
}

type classifyResponse struct {
	Probability *float64 `json:"probability"`
}

// HTTPClassifier posts image references to a remote model service and
// reads back the probability of pneumonia.
type HTTPClassifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewHTTPClassifier creates a rate limited classifier behind a circuit breaker.
func NewHTTPClassifier(config HTTPConfig, logger *logrus.Logger) *HTTPClassifier {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.OpenTimeout == 0 {
		config.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "ImagingClassifier",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &HTTPClassifier{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   gobreaker.NewCircuitBreaker(settings),
		logger:    logger,
	}
}

// Classify returns the remote model's evidence for imageRef. Errors are
// returned as-is; wrap the classifier in a SafeClassifier for the neutral
// fallback.
func (c *HTTPClassifier) Classify(ctx context.Context, imageRef string) (domain.ImagingEvidence, error) {
	if strings.TrimSpace(imageRef) == "" {
		return domain.ImagingEvidence{}, fmt.Errorf("image reference cannot be empty")
	}
	if err := c.rateLimit.Wait(ctx); err != nil {
		return domain.ImagingEvidence{}, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, imageRef)
	})
	if err != nil {
		return domain.ImagingEvidence{}, fmt.Errorf("imaging classification failed: %w", err)
	}

	p := result.(float64)
	if !domain.IsProbability(p) {
		return domain.ImagingEvidence{}, fmt.Errorf("imaging classifier returned probability %v outside [0,1]", p)
	}
	return domain.ImagingFromProbability(p), nil
}

// State reports the circuit breaker state.
func (c *HTTPClassifier) State() string {
	return c.breaker.State().String()
}

func (c *HTTPClassifier) post(ctx context.Context, imageRef string) (float64, error) {
	body, err := json.Marshal(classifyRequest{ImageRef: imageRef})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if decoded.Probability == nil {
		return 0, fmt.Errorf("response has no probability")
	}
	return *decoded.Probability, nil
}
