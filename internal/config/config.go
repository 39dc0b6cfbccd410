package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/archlens/internal/engine"
	"github.com/crimson-sun/archlens/internal/engine/classifier"
	"github.com/crimson-sun/archlens/internal/engine/embedder"
	"github.com/crimson-sun/archlens/internal/llm"
	"gopkg.in/yaml.v3"
)

// Version is the archlens release, overridden at build time with -ldflags.
var Version = "dev"

// Config holds all archlens configuration.
type Config struct {
	Corpus     string           `yaml:"corpus"`
	Target     string           `yaml:"target"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Classifier ClassifierConfig `yaml:"classifier"`
	LLM        LLMConfig        `yaml:"llm"`
	Output     OutputConfig     `yaml:"output"`
	LogLevel   string           `yaml:"log_level"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	Provider       string `yaml:"provider"` // onnx, hashing, openai
	ModelPath      string `yaml:"model_path"`
	VocabPath      string `yaml:"vocab_path"`
	ProjectionPath string `yaml:"projection_path"`
	ORTLibrary     string `yaml:"ort_library"`
	MaxSeqLen      int    `yaml:"max_seq_len"`
	Normalize      bool   `yaml:"normalize"`
	BatchSize      int    `yaml:"batch_size"`
	Workers        int    `yaml:"workers"`
	CacheDir       string `yaml:"cache_dir"`
	HashDim        int    `yaml:"hash_dim"`
	Model          string `yaml:"model"` // remote embedding model
}

// ClassifierConfig holds training and ranking settings.
type ClassifierConfig struct {
	C        float64 `yaml:"c"`
	MaxIter  int     `yaml:"max_iter"`
	Tol      float64 `yaml:"tol"`
	TopK     int     `yaml:"top_k"`
	JustifyK int     `yaml:"justify_k"`
}

// LLMConfig holds the chat endpoint used by the collaborators.
type LLMConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// OutputConfig holds artifact destinations.
type OutputConfig struct {
	Path          string `yaml:"path"` // "-" or "stdout" prints the artifact
	Pretty        bool   `yaml:"pretty"`
	WebhookURL    string `yaml:"webhook_url"`
	Justification string `yaml:"justification"`
	Report        string `yaml:"report"` // keyword scorer output
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	cls := classifier.DefaultOptions()
	return Config{
		Corpus: "labeled_case_studies.json",
		Target: "ai_generated_requirements_clean.json",
		Embedder: EmbedderConfig{
			Provider:  "onnx",
			ModelPath: "models/model.onnx",
			VocabPath: "models/vocab.txt",
			Normalize: true,
			BatchSize: 32,
			Workers:   1,
			HashDim:   embedder.DefaultHashDim,
			Model:     "text-embedding-3-small",
		},
		Classifier: ClassifierConfig{
			C:        cls.C,
			MaxIter:  cls.MaxIter,
			Tol:      cls.Tol,
			TopK:     engine.DefaultTopK,
			JustifyK: 5,
		},
		LLM: LLMConfig{
			Model:      "gpt-4o-mini",
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Output: OutputConfig{
			Path:          "shap_explanation.json",
			Pretty:        true,
			Justification: "nlg_justification.txt",
			Report:        "predicted_architecture.json",
		},
		LogLevel: "info",
	}
}

// Load starts from Defaults, applies the YAML file named by ARCHLENS_CONFIG
// if set, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("ARCHLENS_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Corpus = getenv("ARCHLENS_CORPUS", c.Corpus)
	c.Target = getenv("ARCHLENS_TARGET", c.Target)

	e := &c.Embedder
	e.Provider = getenv("ARCHLENS_EMBEDDER", e.Provider)
	e.ModelPath = getenv("ARCHLENS_MODEL_PATH", e.ModelPath)
	e.VocabPath = getenv("ARCHLENS_VOCAB_PATH", e.VocabPath)
	e.ProjectionPath = getenv("ARCHLENS_PROJECTION_PATH", e.ProjectionPath)
	e.ORTLibrary = getenv("ARCHLENS_ORT_LIB", e.ORTLibrary)
	e.MaxSeqLen = getenvInt("ARCHLENS_MAX_SEQ_LEN", e.MaxSeqLen)
	e.Normalize = getenvBool("ARCHLENS_NORMALIZE", e.Normalize)
	e.BatchSize = getenvInt("ARCHLENS_BATCH_SIZE", e.BatchSize)
	e.Workers = getenvInt("ARCHLENS_EMBED_WORKERS", e.Workers)
	e.CacheDir = getenv("ARCHLENS_CACHE_DIR", e.CacheDir)
	e.HashDim = getenvInt("ARCHLENS_HASH_DIM", e.HashDim)
	e.Model = getenv("ARCHLENS_EMBED_MODEL", e.Model)

	k := &c.Classifier
	k.C = getenvFloat("ARCHLENS_C", k.C)
	k.MaxIter = getenvInt("ARCHLENS_MAX_ITER", k.MaxIter)
	k.Tol = getenvFloat("ARCHLENS_TOL", k.Tol)
	k.TopK = getenvInt("ARCHLENS_TOP_K", k.TopK)
	k.JustifyK = getenvInt("ARCHLENS_JUSTIFY_K", k.JustifyK)

	l := &c.LLM
	l.APIKey = getenv("ARCHLENS_LLM_API_KEY", l.APIKey)
	l.BaseURL = getenv("ARCHLENS_LLM_BASE_URL", l.BaseURL)
	l.Model = getenv("ARCHLENS_LLM_MODEL", l.Model)
	l.Timeout = getenvDuration("ARCHLENS_LLM_TIMEOUT", l.Timeout)
	l.MaxRetries = getenvInt("ARCHLENS_LLM_MAX_RETRIES", l.MaxRetries)

	o := &c.Output
	o.Path = getenv("ARCHLENS_OUTPUT", o.Path)
	o.Pretty = getenvBool("ARCHLENS_OUTPUT_PRETTY", o.Pretty)
	o.WebhookURL = getenv("ARCHLENS_WEBHOOK_URL", o.WebhookURL)
	o.Justification = getenv("ARCHLENS_JUSTIFICATION", o.Justification)
	o.Report = getenv("ARCHLENS_REPORT", o.Report)

	c.LogLevel = getenv("ARCHLENS_LOG_LEVEL", c.LogLevel)
}

// Validate checks the configuration for invalid values. Returns an error
// describing every problem found, or nil.
func (c Config) Validate() error {
	var errs []error

	e := c.Embedder
	if !slices.Contains(embedder.Providers(), e.Provider) {
		errs = append(errs, fmt.Errorf("unknown embedder provider %q (want one of %s)",
			e.Provider, strings.Join(embedder.Providers(), ", ")))
	}
	switch e.Provider {
	case "onnx":
		if _, err := os.Stat(e.ModelPath); err != nil {
			errs = append(errs, fmt.Errorf("model file: %w", err))
		}
		if _, err := os.Stat(e.VocabPath); err != nil {
			errs = append(errs, fmt.Errorf("vocab file: %w", err))
		}
		if e.ProjectionPath != "" {
			if _, err := os.Stat(e.ProjectionPath); err != nil {
				errs = append(errs, fmt.Errorf("projection file: %w", err))
			}
		}
	case "hashing":
		if e.HashDim <= 0 {
			errs = append(errs, fmt.Errorf("hash dim must be positive, got %d", e.HashDim))
		}
	case "openai":
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			errs = append(errs, errors.New("openai embedder needs ARCHLENS_LLM_API_KEY or ARCHLENS_LLM_BASE_URL"))
		}
	}
	if e.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", e.BatchSize))
	}
	if e.Workers <= 0 {
		errs = append(errs, fmt.Errorf("embed workers must be positive, got %d", e.Workers))
	}

	k := c.Classifier
	if k.C <= 0 {
		errs = append(errs, fmt.Errorf("classifier C must be positive, got %g", k.C))
	}
	if k.MaxIter <= 0 {
		errs = append(errs, fmt.Errorf("classifier max iter must be positive, got %d", k.MaxIter))
	}
	if k.Tol <= 0 {
		errs = append(errs, fmt.Errorf("classifier tol must be positive, got %g", k.Tol))
	}
	if k.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive, got %d", k.TopK))
	}
	if k.JustifyK <= 0 {
		errs = append(errs, fmt.Errorf("justify-k must be positive, got %d", k.JustifyK))
	}

	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("llm max retries must not be negative, got %d", c.LLM.MaxRetries))
	}

	return errors.Join(errs...)
}

// StdoutArtifact reports whether the artifact is printed instead of saved.
func (c Config) StdoutArtifact() bool {
	return c.Output.Path == "-" || c.Output.Path == "stdout"
}

// EmbedderOptions converts to the embedder package's configuration.
func (c Config) EmbedderOptions() embedder.Config {
	e := c.Embedder
	return embedder.Config{
		Provider: e.Provider,
		ONNX: embedder.ONNXConfig{
			ModelPath:      e.ModelPath,
			VocabPath:      e.VocabPath,
			ProjectionPath: e.ProjectionPath,
			LibraryPath:    e.ORTLibrary,
			MaxSeqLen:      e.MaxSeqLen,
			Normalize:      e.Normalize,
		},
		HashDim:   e.HashDim,
		OpenAI:    embedder.OpenAIConfig{LLM: c.LLMOptions(), Model: e.Model},
		BatchSize: e.BatchSize,
		Workers:   e.Workers,
		CacheDir:  e.CacheDir,
	}
}

// LLMOptions converts to the llm package's configuration.
func (c Config) LLMOptions() llm.Config {
	return llm.Config{
		APIKey:     c.LLM.APIKey,
		BaseURL:    c.LLM.BaseURL,
		Model:      c.LLM.Model,
		Timeout:    c.LLM.Timeout,
		MaxRetries: uint64(c.LLM.MaxRetries),
	}
}

// EngineOptions converts to the engine's run options.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		TopK: c.Classifier.TopK,
		Classifier: classifier.Options{
			C:       c.Classifier.C,
			MaxIter: c.Classifier.MaxIter,
			Tol:     c.Classifier.Tol,
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
