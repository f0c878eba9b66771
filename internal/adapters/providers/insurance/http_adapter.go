package insurance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/medhaus/clinicflow/internal/domain/providers"
	apperrors "github.com/medhaus/clinicflow/pkg/errors"
)

const defaultHTTPTimeout = 8 * time.Second

// HTTPAdapter calls a payer eligibility gateway over HTTP. A circuit
// breaker shields the clinic flow from a flapping payer: once the payer
// starts failing consistently the breaker opens and checks fail fast
// until it recovers.
type HTTPAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPAdapter creates an HTTP insurance adapter.
func NewHTTPAdapter(baseURL, apiKey string) providers.InsuranceProvider {
	return NewHTTPAdapterWithOptions(baseURL, apiKey, nil)
}

// NewHTTPAdapterWithOptions allows overriding the HTTP client (used for tests).
func NewHTTPAdapterWithOptions(baseURL, apiKey string, httpClient *http.Client) providers.InsuranceProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "insurance-eligibility",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &HTTPAdapter{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		breaker:    breaker,
	}
}

// CheckEligibility submits an eligibility check to the gateway.
func (a *HTTPAdapter) CheckEligibility(ctx context.Context, req providers.EligibilityRequest) (*providers.EligibilityResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal eligibility request", err)
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.doCheck(ctx, body)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.NewExternalError("insurance gateway unavailable", err)
		}
		return nil, err
	}
	return result.(*providers.EligibilityResult), nil
}

func (a *HTTPAdapter) doCheck(ctx context.Context, body []byte) (*providers.EligibilityResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/eligibility", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build eligibility request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewExternalError("eligibility request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalError(fmt.Sprintf("eligibility request returned status %d", resp.StatusCode), nil)
	}

	var result providers.EligibilityResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewExternalError("failed to decode eligibility response", err)
	}
	if result.Adapter == "" {
		result.Adapter = "http"
	}
	return &result, nil
}
