package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// CacheOptions configures the on-disk embedding cache.
type CacheOptions struct {
	Dir      string
	InMemory bool // for tests; Dir is ignored
	// Namespace separates vectors of different providers and models sharing
	// one directory.
	Namespace string
	Logger    *slog.Logger // nil silences badger
}

// Cached stores vectors in BadgerDB keyed by namespace and the SHA-256 of
// the text. Only cache misses reach the wrapped embedder.
type Cached struct {
	inner Embedder
	db    *badger.DB
	ns    string
}

func NewCached(inner Embedder, opts CacheOptions) (*Cached, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("embedder: cache directory is required")
	}

	var bo badger.Options
	if opts.InMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("embedder: create cache dir: %w", err)
		}
		bo = badger.DefaultOptions(opts.Dir)
	}
	bo = bo.WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bo = bo.WithLogger(badgerLogger{opts.Logger})
	} else {
		bo = bo.WithLogger(nil)
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("embedder: open cache: %w", err)
	}
	return &Cached{inner: inner, db: db, ns: opts.Namespace}, nil
}

func (c *Cached) Dim() int { return c.inner.Dim() }

// Close closes the wrapped embedder and the database.
func (c *Cached) Close() error {
	return errors.Join(c.inner.Close(), c.db.Close())
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	err := c.db.View(func(txn *badger.Txn) error {
		for i, text := range texts {
			item, err := txn.Get(c.key(text))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				out[i] = decodeVector(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: read cache: %w", err)
	}

	var missIdx []int
	var missTexts []string
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	slog.Debug("embedding cache lookup", "texts", len(texts), "misses", len(missTexts))
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder: got %d vectors for %d texts", len(fresh), len(missTexts))
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for j, i := range missIdx {
		out[i] = fresh[j]
		if err := wb.Set(c.key(missTexts[j]), encodeVector(fresh[j])); err != nil {
			return nil, fmt.Errorf("embedder: write cache: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("embedder: write cache: %w", err)
	}
	return out, nil
}

func (c *Cached) key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	k := make([]byte, 0, len(c.ns)+1+len(sum))
	k = append(k, c.ns...)
	k = append(k, ':')
	return append(k, sum[:]...)
}

// Vectors are stored as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 0, 4*len(v))
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(format string, args ...any) { b.l.Error(fmt.Sprintf(format, args...)) }

func (b badgerLogger) Warningf(format string, args ...any) { b.l.Warn(fmt.Sprintf(format, args...)) }

func (b badgerLogger) Infof(format string, args ...any) { b.l.Debug(fmt.Sprintf(format, args...)) }

func (b badgerLogger) Debugf(format string, args ...any) { b.l.Debug(fmt.Sprintf(format, args...)) }
