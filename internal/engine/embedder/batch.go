package embedder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Batched splits large EmbedBatch calls into fixed-size chunks and embeds up
// to workers chunks at once. result[i] always belongs to texts[i].
type Batched struct {
	inner   Embedder
	size    int
	workers int
}

// NewBatched wraps inner. size <= 0 means 32; workers <= 0 means 1.
func NewBatched(inner Embedder, size, workers int) *Batched {
	if size <= 0 {
		size = 32
	}
	if workers <= 0 {
		workers = 1
	}
	return &Batched{inner: inner, size: size, workers: workers}
}

func (b *Batched) Dim() int { return b.inner.Dim() }

func (b *Batched) Close() error { return b.inner.Close() }

func (b *Batched) Embed(ctx context.Context, text string) ([]float32, error) {
	return b.inner.Embed(ctx, text)
}

func (b *Batched) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for start := 0; start < len(texts); start += b.size {
		end := min(start+b.size, len(texts))
		g.Go(func() error {
			vecs, err := b.inner.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedder: chunk [%d:%d] returned %d vectors", start, end, len(vecs))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
