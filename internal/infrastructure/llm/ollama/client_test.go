package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/infrastructure/resilience"
)

func newTestClient(serverURL string) *Client {
	executor := resilience.NewExecutor(resilience.Policy{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1,
	})
	return New(serverURL, "gen", "embed-model", executor, 0)
}

func TestEmbedderIdentityNamesModel(t *testing.T) {
	embedder := NewEmbedder(newTestClient("http://localhost"))
	if embedder.Identity() != "ollama:embed-model" {
		t.Fatalf("unexpected identity: %s", embedder.Identity())
	}
}

func TestEmbedReturnsVectorPerInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	vectors, err := NewEmbedder(newTestClient(server.URL)).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedCountMismatchIsExternalServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(newTestClient(server.URL)).Embed(context.Background(), []string{"a", "b"})
	if !domain.IsKind(err, domain.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestClassifyConstrainedToLabelSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		prompt, _ := payload["prompt"].(string)
		if !strings.Contains(prompt, "Firewalls") {
			t.Errorf("labels missing from prompt: %s", prompt)
		}
		_, _ = w.Write([]byte(`{"response":"{\"sub_topic\":\"firewalls\",\"confidence\":0.92}"}`))
	}))
	defer server.Close()

	guess, err := NewClassifier(newTestClient(server.URL)).Classify(context.Background(),
		"What does a packet filter inspect?", []string{"Firewalls", "Cryptography"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if guess.Label != "Firewalls" {
		t.Fatalf("expected canonical label Firewalls, got %q", guess.Label)
	}
	if guess.Confidence != 0.92 {
		t.Fatalf("unexpected confidence: %f", guess.Confidence)
	}
}

func TestClassifyUnknownLabelFallsBackToUnclassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"sub_topic\":\"Quantum Entanglement\",\"confidence\":0.99}"}`))
	}))
	defer server.Close()

	guess, err := NewClassifier(newTestClient(server.URL)).Classify(context.Background(),
		"What does a packet filter inspect?", []string{"Firewalls", "Cryptography"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if guess.Label != domain.SubTopicUnclassified {
		t.Fatalf("expected Unclassified, got %q", guess.Label)
	}
}

func TestClassifyEmptyLabelSetSkipsModelCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	guess, err := NewClassifier(newTestClient(server.URL)).Classify(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if guess.Label != domain.SubTopicUnclassified || called {
		t.Fatalf("expected Unclassified without a model call, got %+v called=%v", guess, called)
	}
}

func TestExtractAnswerParsesSpan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"answer\":\"A firewall filters traffic.\",\"confidence\":0.8}"}`))
	}))
	defer server.Close()

	span, err := NewExtractor(newTestClient(server.URL)).ExtractAnswer(context.Background(),
		"What is a firewall?", "Some study material.")
	if err != nil {
		t.Fatalf("ExtractAnswer() error = %v", err)
	}
	if span.Text != "A firewall filters traffic." || span.Confidence != 0.8 {
		t.Fatalf("unexpected span: %+v", span)
	}
}

func TestExtractAnswerEmptyMeansNoPassage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"answer\":\"\",\"confidence\":0}"}`))
	}))
	defer server.Close()

	span, err := NewExtractor(newTestClient(server.URL)).ExtractAnswer(context.Background(), "q", "doc")
	if err != nil {
		t.Fatalf("ExtractAnswer() error = %v", err)
	}
	if span.Text != "" {
		t.Fatalf("expected empty span, got %q", span.Text)
	}
}

func TestServerErrorSurfacesBodyAndKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewEmbedder(newTestClient(server.URL)).Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrExternalService) {
		t.Fatalf("expected external service kind, got %v", err)
	}
}

func TestRetryableStatusIsRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer server.Close()

	vector, err := NewEmbedder(newTestClient(server.URL)).EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected a retry, got %d attempts", attempts)
	}
	if len(vector) != 1 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestBadRequestIsNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewEmbedder(newTestClient(server.URL)).Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt for 400, got %d", attempts)
	}
}
