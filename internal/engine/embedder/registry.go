package embedder

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
)

// Config selects and configures an embedding provider plus the optional
// batching and cache layers around it.
type Config struct {
	Provider  string // "onnx", "hashing" or "openai"
	ONNX      ONNXConfig
	HashDim   int
	OpenAI    OpenAIConfig
	BatchSize int
	Workers   int
	CacheDir  string
}

// Constructor creates a provider from its configuration.
type Constructor func(cfg Config) (Embedder, error)

var registry = map[string]Constructor{}

func init() {
	Register("onnx", func(cfg Config) (Embedder, error) { return NewONNX(cfg.ONNX) })
	Register("hashing", func(cfg Config) (Embedder, error) { return NewHashing(cfg.HashDim), nil })
	Register("openai", func(cfg Config) (Embedder, error) { return NewOpenAI(cfg.OpenAI) })
}

// Register adds a provider constructor under the given name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the constructor for the given provider name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
	return ctor, nil
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the configured provider, wrapped in Batched and, when
// CacheDir is set, in Cached.
func Open(cfg Config) (Embedder, error) {
	ctor, err := Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	base, err := ctor(cfg)
	if err != nil {
		return nil, err
	}

	var e Embedder = NewBatched(base, cfg.BatchSize, cfg.Workers)
	if cfg.CacheDir != "" {
		cached, err := NewCached(e, CacheOptions{
			Dir:       cfg.CacheDir,
			Namespace: cacheNamespace(cfg),
			Logger:    slog.Default().With("component", "badger"),
		})
		if err != nil {
			e.Close()
			return nil, err
		}
		e = cached
	}
	slog.Debug("embedder ready", "provider", cfg.Provider, "dim", e.Dim(), "cache", cfg.CacheDir != "")
	return e, nil
}

// cacheNamespace identifies the model that produced a vector.
func cacheNamespace(cfg Config) string {
	switch cfg.Provider {
	case "onnx":
		ns := "onnx/" + filepath.Base(cfg.ONNX.ModelPath)
		if cfg.ONNX.ProjectionPath != "" {
			ns += "+" + filepath.Base(cfg.ONNX.ProjectionPath)
		}
		if cfg.ONNX.Normalize {
			ns += "/norm"
		}
		return ns
	case "hashing":
		return fmt.Sprintf("hashing/%d", NewHashing(cfg.HashDim).Dim())
	case "openai":
		model := cfg.OpenAI.Model
		if model == "" {
			model = defaultEmbedModel
		}
		return fmt.Sprintf("openai/%s/%d", model, cfg.OpenAI.Dim)
	}
	return cfg.Provider
}
