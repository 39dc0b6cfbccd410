package archlens

import (
	"path/filepath"

	"github.com/crimson-sun/archlens/internal/engine/classifier"
	"github.com/crimson-sun/archlens/internal/engine/embedder"
	"github.com/crimson-sun/archlens/internal/llm"
)

type options struct {
	provider       string
	modelDir       string
	modelPath      string
	vocabPath      string
	projectionPath string
	hashDim        int
	openAIKey      string
	openAIModel    string
	cacheDir       string
	batchSize      int
	workers        int
	topK           int
	classifier     classifier.Options
}

// Option configures an Archlens instance.
type Option func(*options)

// WithModelDir sets the directory holding model.onnx and vocab.txt.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.provider = "onnx"
		o.modelDir = dir
	}
}

// WithModelPaths sets explicit model files. projection may be empty.
func WithModelPaths(model, vocab, projection string) Option {
	return func(o *options) {
		o.provider = "onnx"
		o.modelPath = model
		o.vocabPath = vocab
		o.projectionPath = projection
	}
}

// WithHashingEmbedder uses the model-free feature-hashing embedder. Useful
// for tests and smoke runs; predictions are only as good as word overlap.
func WithHashingEmbedder(dim int) Option {
	return func(o *options) {
		o.provider = "hashing"
		o.hashDim = dim
	}
}

// WithOpenAIEmbeddings embeds through the OpenAI embeddings API.
func WithOpenAIEmbeddings(apiKey, model string) Option {
	return func(o *options) {
		o.provider = "openai"
		o.openAIKey = apiKey
		o.openAIModel = model
	}
}

// WithCacheDir persists embeddings in a BadgerDB directory.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithBatching sets the embedding batch size and concurrent batches.
func WithBatching(size, workers int) Option {
	return func(o *options) {
		o.batchSize = size
		o.workers = workers
	}
}

// WithTopK sets how many features an explanation keeps. Default: 10.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithRegularization sets the inverse L2 strength C. Default: 1.
func WithRegularization(c float64) Option {
	return func(o *options) {
		o.classifier.C = c
	}
}

func defaultOptions() options {
	return options{
		provider:   "onnx",
		hashDim:    embedder.DefaultHashDim,
		classifier: classifier.DefaultOptions(),
	}
}

func (o options) embedderConfig() embedder.Config {
	model, vocab := o.modelPath, o.vocabPath
	if model == "" {
		dir := o.modelDir
		if dir == "" {
			dir = "models"
		}
		model = filepath.Join(dir, "model.onnx")
		vocab = filepath.Join(dir, "vocab.txt")
	}
	return embedder.Config{
		Provider: o.provider,
		ONNX: embedder.ONNXConfig{
			ModelPath:      model,
			VocabPath:      vocab,
			ProjectionPath: o.projectionPath,
			Normalize:      true,
		},
		HashDim: o.hashDim,
		OpenAI: embedder.OpenAIConfig{
			LLM:   llm.Config{APIKey: o.openAIKey},
			Model: o.openAIModel,
		},
		BatchSize: o.batchSize,
		Workers:   o.workers,
		CacheDir:  o.cacheDir,
	}
}
