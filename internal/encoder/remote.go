package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/config"
	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/metrics"
)

// Remote encodes queries through an OpenAI-compatible embedding API.
// Without a configured credential every call fails softly; the provider
// cascade then skips this backend.
type Remote struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	hasKey     bool
	logger     *zap.Logger
}

var _ domain.Encoder = (*Remote)(nil)

// NewRemote creates the remote encoding backend.
func NewRemote(cfg config.RemoteEncoderConfig, logger *zap.Logger) *Remote {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Remote{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		hasKey:     cfg.APIKey != "",
		logger:     logger,
	}
}

// Encode implements domain.Encoder. Returns the API vector with
// transport-level metrics recorded.
func (e *Remote) Encode(ctx context.Context, text string) ([]float32, error) {
	if !e.hasKey {
		return nil, fmt.Errorf("remote encoder has no credential: %w", domain.ErrEncoderUnavailable)
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		return nil, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrEncodingProviderError)
	}

	metrics.EncodeRequestDuration.WithLabelValues("remote").Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EncodeTokensTotal.WithLabelValues(string(e.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.EncodeTokensTotal.WithLabelValues(string(e.model), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Data[0].Embedding, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Remote) HealthCheck(ctx context.Context) error {
	if !e.hasKey {
		return fmt.Errorf("remote encoder has no credential: %w", domain.ErrEncoderUnavailable)
	}
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors wrap domain.ErrEncodingProviderError for uniform handling.
func parseAPIError(err error) error {
	wrap := domain.ErrEncodingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
