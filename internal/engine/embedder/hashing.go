package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDim matches the output size of all-MiniLM-L6-v2 so the hashing
// provider is a drop-in stand-in.
const DefaultHashDim = 384

// HashingEmbedder is a model-free embedder using signed feature hashing over
// lowercased word unigrams and bigrams. Every text maps to the same vector
// on every call and in every batch, which makes it the reference provider
// for tests and offline runs.
type HashingEmbedder struct {
	dim int
}

// NewHashing returns a hashing embedder of the given dimension
// (DefaultHashDim if dim <= 0).
func NewHashing(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultHashDim
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Dim() int { return h.dim }

func (h *HashingEmbedder) Close() error { return nil }

func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.vector(text), nil
}

func (h *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashingEmbedder) vector(text string) []float32 {
	vec := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		h.add(vec, w)
		if i > 0 {
			h.add(vec, words[i-1]+" "+w)
		}
	}
	l2Normalize(vec)
	return vec
}

// add hashes a feature to a bucket; the top bit of the hash picks the sign
// so collisions tend to cancel rather than accumulate.
func (h *HashingEmbedder) add(vec []float32, feature string) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		vec[idx]--
	} else {
		vec[idx]++
	}
}
