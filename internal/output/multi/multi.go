package multi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crimson-sun/archlens/internal/model"
	"github.com/crimson-sun/archlens/internal/output"
)

// Multi hands one artifact to several sinks at once, so a slow webhook
// does not hold up the file write. Every sink sees the artifact even when
// another one fails.
type Multi struct {
	sinks []output.Output
}

// New creates a Multi over sinks.
func New(sinks ...output.Output) *Multi {
	return &Multi{sinks: sinks}
}

// Write delivers exp to every sink concurrently and returns their errors
// joined in sink order.
func (m *Multi) Write(ctx context.Context, exp model.Explanation) error {
	errs := make([]error, len(m.sinks))
	var wg sync.WaitGroup
	for i, s := range m.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Write(ctx, exp); err != nil {
				errs[i] = fmt.Errorf("sink %d: %w", i, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
