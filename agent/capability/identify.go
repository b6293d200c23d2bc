package capability

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// Identifier calls the object-detection service.
type Identifier struct {
	http *httpClient
}

type identifyRequest struct {
	ImageBase64 string `json:"image_base64"`
}

type identifyResponse struct {
	DetectedObjects []struct {
		Box        []int   `json:"box"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"detected_objects"`
	AgentName string `json:"agent_name"`
}

func NewIdentifier(cfg Config) (*Identifier, error) {
	client, err := newHTTPClient(cfg.IdentifyURL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("identifier: %w", err)
	}
	return &Identifier{http: client}, nil
}

var _ contractx.IdentifyClient = (*Identifier)(nil)

func (c *Identifier) Identify(ctx context.Context, image contractx.ImagePayload) ([]contractx.Detection, error) {
	if image.Empty() {
		return nil, fmt.Errorf("%w: image is empty", contractx.ErrValidation)
	}

	var resp identifyResponse
	err := c.http.post(ctx, identifyRequest{ImageBase64: dataURL(image)}, &resp)
	if err != nil {
		return nil, err
	}

	detections := make([]contractx.Detection, 0, len(resp.DetectedObjects))
	for _, obj := range resp.DetectedObjects {
		d := contractx.Detection{
			Label:      obj.Label,
			Confidence: obj.Confidence,
		}
		if len(obj.Box) == 4 {
			copy(d.Box[:], obj.Box)
		}
		detections = append(detections, d)
	}
	return detections, nil
}
