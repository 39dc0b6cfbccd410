package stdout

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/archlens/internal/model"
	"github.com/crimson-sun/archlens/internal/output"
)

// Output writes the JSON artifact to stdout.
type Output struct {
	w      io.Writer
	pretty bool
}

// New creates a stdout Output with optional pretty-printed JSON.
func New(pretty bool) *Output {
	return NewWriter(os.Stdout, pretty)
}

// NewWriter is New for an arbitrary writer, such as a command's output.
func NewWriter(w io.Writer, pretty bool) *Output {
	return &Output{w: w, pretty: pretty}
}

func (o *Output) Write(_ context.Context, exp model.Explanation) error {
	data, err := output.Marshal(exp, o.pretty)
	if err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	if _, err := o.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
