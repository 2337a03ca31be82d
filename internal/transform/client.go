// Package transform calls the external image-transformation services. Each
// operation is a single blocking HTTP call with a bounded timeout and no
// retry; the caller owns any compensation.
package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/your-org/toonface/internal/config"
	"github.com/your-org/toonface/internal/observability"
)

// ErrEmptyResult is returned when the upstream call succeeds but carries no
// image bytes.
var ErrEmptyResult = errors.New("AI server returned empty image")

// UpstreamError carries the upstream's status and the best available
// diagnostic message. Status 0 means the call never reached the service.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return "AI server error: " + e.Message
}

type Client struct {
	cartoonifyURL  string
	segmentHeadURL string
	httpClient     *http.Client
}

func NewClient(cfg config.TransformConfig) *Client {
	return &Client{
		cartoonifyURL:  strings.TrimRight(cfg.CartoonifyURL, "/"),
		segmentHeadURL: strings.TrimRight(cfg.SegmentHeadURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Cartoonize sends the image as a data URI and returns the cartoon PNG bytes.
func (c *Client) Cartoonize(ctx context.Context, image []byte, mimeType string) ([]byte, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	body := map[string]string{"input_image": dataURI}
	return c.post(ctx, "cartoonize", c.cartoonifyURL, body)
}

// SegmentHead sends a fully-qualified cartoon URL for the upstream to fetch
// and returns the face-crop JPEG bytes.
func (c *Client) SegmentHead(ctx context.Context, imageURL string) ([]byte, error) {
	body := map[string]string{"image_url": imageURL}
	return c.post(ctx, "segment_head", c.segmentHeadURL, body)
}

func (c *Client) post(ctx context.Context, operation, url string, body map[string]string) ([]byte, error) {
	start := time.Now()
	defer func() {
		observability.TransformDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Status:  resp.StatusCode,
			Message: extractMessage(resp, data),
		}
	}

	if len(data) == 0 {
		return nil, ErrEmptyResult
	}
	return data, nil
}

// extractMessage recovers the most specific diagnostic the upstream offered:
// a structured detail/error/message field from a JSON body, else the raw
// body text, else the HTTP status text. The text is surfaced verbatim to the
// client, so every fallback level matters.
func extractMessage(resp *http.Response, body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, msg := range []string{parsed.Detail, parsed.Error, parsed.Message} {
			if msg != "" {
				return msg
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	if resp.Status != "" {
		return resp.Status
	}
	return http.StatusText(resp.StatusCode)
}
