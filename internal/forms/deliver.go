package forms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/queue"
)

// HTTPDeliverer posts submissions as JSON to an endpoint. Any non-2xx
// answer counts as a failed delivery.
type HTTPDeliverer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPDeliverer(endpoint string, timeout time.Duration) *HTTPDeliverer {
	return &HTTPDeliverer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, s queue.Submission) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("forms endpoint status %d", resp.StatusCode)
	}
	return nil
}

// LogDeliverer records submissions in the log and reports them delivered.
// It is used when no forms endpoint is configured.
type LogDeliverer struct{}

func (LogDeliverer) Deliver(_ context.Context, s queue.Submission) error {
	b, err := json.Marshal(s.Fields)
	if err != nil {
		return err
	}
	logger.Infof("Syncing %s form %d: %s", s.Queue, s.ID, b)
	return nil
}

// NewDeliverer picks the HTTP deliverer when an endpoint is set.
func NewDeliverer(endpoint string, timeout time.Duration) queue.Deliverer {
	if endpoint == "" {
		return LogDeliverer{}
	}
	return NewHTTPDeliverer(endpoint, timeout)
}
