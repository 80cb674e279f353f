// Package relay calls the prediction service on behalf of the chat bot.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"fetal-health/api/internal/fetal"
)

// StatusError is returned when the service answers with anything but 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %d", e.Code)
}

type Client struct {
	url   string
	httpc *http.Client
}

// New returns a client posting to url (the full /predict URL). A zero
// timeout leaves the call unbounded.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:   url,
		httpc: &http.Client{Timeout: timeout},
	}
}

// Predict sends one request and decodes the result. It never retries.
func (c *Client) Predict(ctx context.Context, in fetal.PredictionInput) (fetal.PredictionOutput, error) {
	var out fetal.PredictionOutput

	payload, err := json.Marshal(in)
	if err != nil {
		return out, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, &StatusError{Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, errors.Wrap(err, "decode response")
	}
	return out, nil
}
