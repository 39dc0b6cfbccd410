package embedder

import (
	"context"
	"fmt"

	"github.com/crimson-sun/archlens/internal/llm"
	"github.com/sashabaranov/go-openai"
)

const defaultEmbedModel = "text-embedding-3-small"

var knownEmbedDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIConfig selects a remote embedding model on an OpenAI-compatible API.
type OpenAIConfig struct {
	LLM   llm.Config
	Model string // default text-embedding-3-small
	// Dim requests a reduced output size from models that support it. Zero
	// keeps the model's native size.
	Dim int
}

// OpenAIEmbedder calls the embeddings endpoint. Transient failures are
// retried through llm.Do.
type OpenAIEmbedder struct {
	client *openai.Client
	cfg    OpenAIConfig
	dim    int
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = defaultEmbedModel
	}
	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	dim := cfg.Dim
	if dim == 0 {
		dim = knownEmbedDims[cfg.Model]
	}
	return &OpenAIEmbedder{client: client, cfg: cfg, dim: dim}, nil
}

// Dim is 0 for unknown models until the first response arrives.
func (e *OpenAIEmbedder) Dim() int { return e.dim }

func (e *OpenAIEmbedder) Close() error { return nil }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in one request and reorders the response by
// its index field.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.cfg.Model),
	}
	if e.cfg.Dim > 0 {
		req.Dimensions = e.cfg.Dim
	}

	var resp openai.EmbeddingResponse
	err := llm.Do(ctx, e.cfg.LLM, func(ctx context.Context) error {
		var err error
		resp, err = e.client.CreateEmbeddings(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedder: openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || out[d.Index] != nil {
			return nil, fmt.Errorf("embedder: openai returned bad index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	if e.dim == 0 {
		e.dim = len(out[0])
	}
	return out, nil
}
