// Package ollama adapts a local Ollama server to the pipeline's inference
// ports: question/chunk embedding, sub-topic classification, and answer
// extraction. All calls go through the shared rate limiter and the
// retry/breaker executor.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

// New builds a client for the given Ollama base URL. requestsPerSecond <= 0
// disables rate limiting.
func New(baseURL, genModel, embedModel string, executor *resilience.Executor, requestsPerSecond float64) *Client {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		if requestsPerSecond > 1 {
			burst = int(requestsPerSecond)
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		executor:   executor,
	}
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.executor.Execute(ctx, operation, func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}, classifyError)
	return wrapExternal(operation, err)
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Identity tags vectors with provider and model, so indexes built under a
// different embedding function are refused at query time.
func (e *Embedder) Identity() string {
	return "ollama:" + e.client.embedModel
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "embed", "/api/embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrExternalService, "embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Embeddings)))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrExternalService, "embed", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify infers a sub-topic for the question, constrained to the closed
// label set. A label outside the set collapses to Unclassified rather than
// inventing a new topic.
func (c *Classifier) Classify(ctx context.Context, question string, labels []string) (domain.SubTopicGuess, error) {
	if len(labels) == 0 {
		return domain.SubTopicGuess{Label: domain.SubTopicUnclassified}, nil
	}

	respText, err := c.client.generateJSON(ctx, "classify_subtopic", buildSubTopicPrompt(question, labels))
	if err != nil {
		return domain.SubTopicGuess{}, err
	}

	var result struct {
		SubTopic   string  `json:"sub_topic"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.SubTopicGuess{}, domain.WrapError(domain.ErrExternalService, "classify_subtopic",
			fmt.Errorf("parse classification json: %w", err))
	}

	guess := strings.TrimSpace(result.SubTopic)
	for _, label := range labels {
		if strings.EqualFold(guess, label) {
			return domain.SubTopicGuess{Label: label, Confidence: clampUnit(result.Confidence)}, nil
		}
	}
	return domain.SubTopicGuess{Label: domain.SubTopicUnclassified}, nil
}

type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

// ExtractAnswer pulls the passage of documentText that answers the question.
// An empty span means the model judged the document silent on it.
func (x *Extractor) ExtractAnswer(ctx context.Context, question, documentText string) (domain.AnswerSpan, error) {
	respText, err := x.client.generateJSON(ctx, "extract_answer", buildAnswerExtractionPrompt(question, documentText))
	if err != nil {
		return domain.AnswerSpan{}, err
	}

	var result struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.AnswerSpan{}, domain.WrapError(domain.ErrExternalService, "extract_answer",
			fmt.Errorf("parse extraction json: %w", err))
	}
	return domain.AnswerSpan{
		Text:       strings.TrimSpace(result.Answer),
		Confidence: clampUnit(result.Confidence),
	}, nil
}

func (c *Client) generateJSON(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.call(ctx, operation, "/api/generate", reqBody, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
