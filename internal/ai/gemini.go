package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiProvider struct {
	apiKey    string
	model     string
	dimension int
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) WithAPIKey(key string) Provider {
	clone := *p
	clone.apiKey = strings.TrimSpace(key)
	return &clone
}

func (p *geminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	dim := int32(p.dimension)
	resp, err := client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	vecs := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		vecs = append(vecs, emb.Values)
	}
	if err := checkVectors(vecs, len(texts), p.dimension); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (p *geminiProvider) ValidateKey(ctx context.Context) error {
	if p.apiKey == "" {
		return ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return err
	}
	// A minimal single-content call; cheaper than a real batch and fails fast
	// on a bad key.
	_, err = client.Models.EmbedContent(ctx, p.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: "test"}}}}, nil)
	return err
}

func createGeminiProvider(cfg Config) (Provider, error) {
	return &geminiProvider{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

func init() {
	Register("gemini", createGeminiProvider)
}
