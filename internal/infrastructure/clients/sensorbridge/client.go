package sensorbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/medhaus/clinicflow/pkg/config"
	"github.com/medhaus/clinicflow/pkg/retry"
)

const defaultTimeout = 5 * time.Second

// Client notifies the bedside sensor bridge when a patient checks in so
// devices can bind their readings to the encounter token. Notification
// is best effort; check-in never fails because the bridge is down.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a sensor bridge client, or nil when no bridge URL is
// configured.
func NewClient(cfg *config.SensorBridgeConfig) *Client {
	if cfg == nil || cfg.URL == "" {
		return nil
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NotifyCheckIn pushes the encounter binding to the bridge with retry.
func (c *Client) NotifyCheckIn(ctx context.Context, pid, token string) error {
	payload, err := json.Marshal(map[string]string{
		"pid":   pid,
		"token": token,
	})
	if err != nil {
		return err
	}

	return retry.Do(ctx, retry.DefaultConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checked-in", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("sensor bridge returned status %d", resp.StatusCode)
		}
		return nil
	})
}
