package capability

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

func testImage() contractx.ImagePayload {
	return contractx.ImagePayload{Data: []byte("jpeg-bytes"), ContentType: "image/jpeg"}
}

func TestIdentifySuccess(t *testing.T) {
	t.Parallel()

	var gotBody identifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"detected_objects": []map[string]any{
				{"label": "GPU", "box": []int{10, 20, 110, 220}, "confidence": 0.9},
				{"label": "Power Supply", "box": []int{0, 0, 50, 50}, "confidence": 0.7},
			},
			"agent_name": "identifier",
		})
	}))
	defer srv.Close()

	c, err := NewIdentifier(Config{IdentifyURL: srv.URL, AnnotateURL: srv.URL})
	if err != nil {
		t.Fatalf("NewIdentifier() error = %v", err)
	}

	detections, err := c.Identify(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if len(detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(detections))
	}
	if detections[0].Label != "GPU" || detections[0].Box != [4]int{10, 20, 110, 220} {
		t.Fatalf("unexpected detection: %#v", detections[0])
	}
	if !strings.HasPrefix(gotBody.ImageBase64, "data:image/jpeg;base64,") {
		t.Fatalf("expected data URL wire format, got %q", gotBody.ImageBase64[:32])
	}
}

func TestIdentifyEmptyImageRejectedLocally(t *testing.T) {
	t.Parallel()

	c, err := NewIdentifier(Config{IdentifyURL: "http://localhost:1", AnnotateURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("NewIdentifier() error = %v", err)
	}

	_, err = c.Identify(context.Background(), contractx.ImagePayload{})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestIdentifyNon2xxIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewIdentifier(Config{IdentifyURL: srv.URL, AnnotateURL: srv.URL})
	if err != nil {
		t.Fatalf("NewIdentifier() error = %v", err)
	}

	_, err = c.Identify(context.Background(), testImage())
	if !errors.Is(err, contractx.ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
}

func TestIdentifyConnectionRefusedIsUnavailable(t *testing.T) {
	t.Parallel()

	c, err := NewIdentifier(Config{IdentifyURL: "http://127.0.0.1:1", AnnotateURL: "http://127.0.0.1:1", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewIdentifier() error = %v", err)
	}

	_, err = c.Identify(context.Background(), testImage())
	if !errors.Is(err, contractx.ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
}

func TestIdentifyMalformedResponseIsSchemaViolation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, err := NewIdentifier(Config{IdentifyURL: srv.URL, AnnotateURL: srv.URL})
	if err != nil {
		t.Fatalf("NewIdentifier() error = %v", err)
	}

	_, err = c.Identify(context.Background(), testImage())
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestAnnotateRoundTrip(t *testing.T) {
	t.Parallel()

	annotated := []byte("annotated-png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req annotateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Boxes) != 1 || req.Boxes[0].Label != "GPU" {
			t.Errorf("unexpected boxes: %#v", req.Boxes)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"annotated_image_base64": "data:image/png;base64," + base64.StdEncoding.EncodeToString(annotated),
			"agent_name":             "annotator",
		})
	}))
	defer srv.Close()

	c, err := NewAnnotator(Config{IdentifyURL: srv.URL, AnnotateURL: srv.URL})
	if err != nil {
		t.Fatalf("NewAnnotator() error = %v", err)
	}

	out, err := c.Annotate(context.Background(), testImage(), []contractx.Detection{
		{Label: "GPU", Box: [4]int{10, 20, 110, 220}, Confidence: 0.9},
	})
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	if string(out.Data) != string(annotated) {
		t.Fatalf("unexpected annotated bytes: %q", out.Data)
	}
	if out.ContentType != "image/png" {
		t.Fatalf("content type = %q", out.ContentType)
	}
}

func TestAnnotateRequiresBoxes(t *testing.T) {
	t.Parallel()

	c, err := NewAnnotator(Config{IdentifyURL: "http://localhost:1", AnnotateURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("NewAnnotator() error = %v", err)
	}

	_, err = c.Annotate(context.Background(), testImage(), nil)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewIdentifierRejectsBadEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := NewIdentifier(Config{IdentifyURL: "", AnnotateURL: "http://localhost:1"}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewIdentifier(Config{IdentifyURL: "not a url", AnnotateURL: "http://localhost:1"}); err == nil {
		t.Fatal("expected error for malformed endpoint")
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	t.Parallel()

	img := contractx.ImagePayload{Data: []byte{0x89, 0x50, 0x4e, 0x47}, ContentType: "image/png"}
	encoded := dataURL(img)
	if !strings.HasPrefix(encoded, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %q", encoded)
	}

	decoded, err := decodeDataURL(encoded)
	if err != nil {
		t.Fatalf("decodeDataURL() error = %v", err)
	}
	if string(decoded.Data) != string(img.Data) || decoded.ContentType != "image/png" {
		t.Fatalf("round trip mismatch: %#v", decoded)
	}
}

func TestDecodeDataURLBareBase64(t *testing.T) {
	t.Parallel()

	decoded, err := decodeDataURL(base64.StdEncoding.EncodeToString([]byte("raw")))
	if err != nil {
		t.Fatalf("decodeDataURL() error = %v", err)
	}
	if decoded.ContentType != "image/jpeg" {
		t.Fatalf("expected jpeg default, got %q", decoded.ContentType)
	}
}
