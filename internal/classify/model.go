package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gayunlee/letter-post-weekly-report/internal/httpx"
)

// Prediction is one axis model's output: the chosen label and the model's own
// posterior probability for it.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Model is the classification-model collaborator for a single axis.
type Model interface {
	Predict(ctx context.Context, text string) (Prediction, error)
}

// HTTPModel calls a fine-tuned model served over HTTP. One instance per axis;
// the topic and sentiment models are independent services.
type HTTPModel struct {
	Endpoint string
	Axis     string // "topic" or "sentiment", for logging only
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

func (m *HTTPModel) Predict(ctx context.Context, text string) (Prediction, error) {
	body, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return Prediction{}, fmt.Errorf("marshaling predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("creating predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpx.ExternalHTTPClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("%s model error: %w", m.Axis, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Prediction{}, fmt.Errorf("reading %s model response: %w", m.Axis, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("%s model status %d: %s", m.Axis, resp.StatusCode, respBody)
	}

	var parsed predictResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Prediction{}, fmt.Errorf("parsing %s model response: %w", m.Axis, err)
	}
	if parsed.Error != "" {
		return Prediction{}, fmt.Errorf("%s model error: %s", m.Axis, parsed.Error)
	}
	return Prediction{Label: parsed.Label, Confidence: parsed.Confidence}, nil
}
