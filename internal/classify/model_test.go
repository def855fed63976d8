package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPModelPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Text != "some text" {
			t.Errorf("text = %q", req.Text)
		}
		json.NewEncoder(w).Encode(predictResponse{Label: "service_issue", Confidence: 0.87})
	}))
	defer srv.Close()

	m := &HTTPModel{Endpoint: srv.URL, Axis: "topic"}
	pred, err := m.Predict(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Label != "service_issue" || pred.Confidence != 0.87 {
		t.Fatalf("pred = %+v", pred)
	}
}

func TestHTTPModelServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := &HTTPModel{Endpoint: srv.URL, Axis: "topic"}
	if _, err := m.Predict(context.Background(), "text"); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestHTTPModelApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Error: "tokenizer failure"})
	}))
	defer srv.Close()

	m := &HTTPModel{Endpoint: srv.URL, Axis: "sentiment"}
	if _, err := m.Predict(context.Background(), "text"); err == nil {
		t.Fatal("expected error from error field")
	}
}
