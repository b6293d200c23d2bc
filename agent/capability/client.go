// Package capability holds the typed request/response adapters to the
// specialist services. Clients are stateless; every call is one bounded
// synchronous request, and every transport or non-2xx failure surfaces as
// contract.ErrCapabilityUnavailable so the orchestrator can degrade the
// turn instead of crashing the session.
package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

const maxResponseSizeBytes = 16 << 20

// Config locates the specialist HTTP services. Endpoints are injected at
// startup; there is no process-wide endpoint registry.
type Config struct {
	IdentifyURL string        `envconfig:"IDENTIFY_URL" split_words:"true" required:"true"`
	AnnotateURL string        `envconfig:"ANNOTATE_URL" split_words:"true" required:"true"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

type httpClient struct {
	endpoint string
	client   *http.Client
}

func newHTTPClient(endpoint string, timeout time.Duration) (*httpClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("capability endpoint is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid capability endpoint: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *httpClient) post(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal capability request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build capability request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrCapabilityUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", contractx.ErrCapabilityUnavailable, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status=%d body=%s", contractx.ErrCapabilityUnavailable, resp.StatusCode, truncate(raw, 256))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", contractx.ErrSchemaViolation, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// dataURL encodes an image the way the visual agents expect it: a
// browser-style data URL with the real content type.
func dataURL(image contractx.ImagePayload) string {
	contentType := strings.TrimSpace(image.ContentType)
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image.Data))
}

// decodeDataURL reverses dataURL, tolerating bare base64 without a header.
func decodeDataURL(s string) (contractx.ImagePayload, error) {
	contentType := "image/jpeg"
	if idx := strings.Index(s, ","); idx >= 0 {
		header := s[:idx]
		s = s[idx+1:]
		header = strings.TrimPrefix(header, "data:")
		if semi := strings.Index(header, ";"); semi >= 0 {
			header = header[:semi]
		}
		if header != "" {
			contentType = header
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return contractx.ImagePayload{}, fmt.Errorf("%w: decode image payload: %v", contractx.ErrSchemaViolation, err)
	}
	return contractx.ImagePayload{Data: data, ContentType: contentType}, nil
}
