package capability

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// Annotator calls the box-drawing service.
type Annotator struct {
	http *httpClient
}

type annotateBox struct {
	Box        [4]int  `json:"box"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type annotateRequest struct {
	ImageBase64 string        `json:"image_base64"`
	Boxes       []annotateBox `json:"boxes"`
}

type annotateResponse struct {
	AnnotatedImageBase64 string `json:"annotated_image_base64"`
	AgentName            string `json:"agent_name"`
}

func NewAnnotator(cfg Config) (*Annotator, error) {
	client, err := newHTTPClient(cfg.AnnotateURL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("annotator: %w", err)
	}
	return &Annotator{http: client}, nil
}

var _ contractx.AnnotateClient = (*Annotator)(nil)

func (c *Annotator) Annotate(ctx context.Context, image contractx.ImagePayload, boxes []contractx.Detection) (contractx.ImagePayload, error) {
	if image.Empty() {
		return contractx.ImagePayload{}, fmt.Errorf("%w: image is empty", contractx.ErrValidation)
	}
	if len(boxes) == 0 {
		return contractx.ImagePayload{}, fmt.Errorf("%w: at least one box is required", contractx.ErrValidation)
	}

	req := annotateRequest{
		ImageBase64: dataURL(image),
		Boxes:       make([]annotateBox, 0, len(boxes)),
	}
	for _, b := range boxes {
		req.Boxes = append(req.Boxes, annotateBox{
			Box:        b.Box,
			Label:      b.Label,
			Confidence: b.Confidence,
		})
	}

	var resp annotateResponse
	if err := c.http.post(ctx, req, &resp); err != nil {
		return contractx.ImagePayload{}, err
	}
	return decodeDataURL(resp.AnnotatedImageBase64)
}
