package embedder

import (
	"context"
	"fmt"
)

// Embedder maps text to fixed-length vectors. Implementations must be
// deterministic for a fixed model, and EmbedBatch must return one vector per
// input, in input order, each equal to what Embed returns for that text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dim returns the output dimensionality, or 0 if not known until the
	// first call.
	Dim() int
	Close() error
}

// ONNXConfig locates the files of a sentence-transformer exported to ONNX.
type ONNXConfig struct {
	ModelPath      string
	VocabPath      string
	ProjectionPath string // optional dense layer applied after pooling
	LibraryPath    string // onnxruntime shared library; default next to the model
	MaxSeqLen      int    // token limit including [CLS]/[SEP]; default 256
	Normalize      bool   // L2-normalize the final vector
	Threads        int    // intra-op threads; default 4
}

// ONNXEmbedder runs a BERT-style sentence-transformer locally:
// tokenize → ONNX inference → mean pool → optional projection → optional
// L2 normalization.
type ONNXEmbedder struct {
	session   *onnxSession
	tok       *tokenizer
	proj      *projection
	normalize bool
}

// NewONNX loads the model, vocabulary and optional projection weights.
func NewONNX(cfg ONNXConfig) (*ONNXEmbedder, error) {
	sess, err := newONNXSession(cfg.ModelPath, cfg.LibraryPath, cfg.Threads)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	tok, err := newTokenizer(cfg.VocabPath, cfg.MaxSeqLen)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	e := &ONNXEmbedder{session: sess, tok: tok, normalize: cfg.Normalize}
	if cfg.ProjectionPath != "" {
		proj, err := loadProjection(cfg.ProjectionPath)
		if err != nil {
			sess.close()
			return nil, fmt.Errorf("embedder: %w", err)
		}
		if int(sess.hiddenDim) != proj.inDim {
			sess.close()
			return nil, fmt.Errorf("embedder: ONNX hidden dim %d != projection input dim %d",
				sess.hiddenDim, proj.inDim)
		}
		e.proj = proj
	}
	return e, nil
}

// Dim returns the final embedding dimensionality.
func (e *ONNXEmbedder) Dim() int {
	if e.proj != nil {
		return e.proj.outDim
	}
	return int(e.session.hiddenDim)
}

// Embed produces the embedding of a single text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch runs one inference call over all texts, padded to the longest
// sequence. Padding positions are masked out of attention and pooling.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := e.tok.encodeBatch(texts)
	hidden, err := e.session.infer(batch)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	pooled := meanPool(hidden, batch.attentionMask, batch.batchSize, batch.seqLen, e.session.hiddenDim)
	out := make([][]float32, len(texts))
	for i, vec := range pooled {
		if e.proj != nil {
			vec = e.proj.apply(vec)
		}
		if e.normalize {
			l2Normalize(vec)
		}
		out[i] = vec
	}
	return out, nil
}

// Close releases ONNX Runtime resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
