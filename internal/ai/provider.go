package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("embedding provider not configured")

// Config selects and parameterizes one embedding provider at startup.
type Config struct {
	APIKey    string
	Model     string
	Dimension int
	BaseURL   string
}

// Provider converts batches of text into fixed-dimension vectors.
//
// WithAPIKey returns a provider bound to a caller-supplied key; the receiver
// is left untouched so the configured key keeps serving other requests.
type Provider interface {
	Name() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ValidateKey(ctx context.Context) error
	WithAPIKey(key string) Provider
}

// EmbedOne embeds a single text through the batch call.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

type ProviderFactory func(cfg Config) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, cfg Config) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("ai.dimension is required")
	}
	return factory(cfg)
}

// checkVectors rejects provider responses that do not pair one vector of the
// configured dimension with each input text.
func checkVectors(vecs [][]float32, want int, dimension int) error {
	if len(vecs) != want {
		return fmt.Errorf("expected %d embeddings, got %d", want, len(vecs))
	}
	for i, vec := range vecs {
		if len(vec) != dimension {
			return fmt.Errorf("embedding %d has dimension %d, want %d", i, len(vec), dimension)
		}
	}
	return nil
}
