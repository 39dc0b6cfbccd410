package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crimson-sun/archlens/internal/model"
	"github.com/crimson-sun/archlens/internal/output"
)

// Option configures a file Output.
type Option func(*Output)

// WithPretty indents the JSON. Default: true.
func WithPretty(pretty bool) Option {
	return func(o *Output) { o.pretty = pretty }
}

// WithPerm sets the file mode of the artifact. Default: 0644.
func WithPerm(perm os.FileMode) Option {
	return func(o *Output) { o.perm = perm }
}

// Output writes the artifact to a JSON file. Each Write replaces the file
// atomically: readers see the previous artifact or the new one, never a
// partial write.
type Output struct {
	path   string
	pretty bool
	perm   os.FileMode
}

// New creates a file output for path. The file is not touched until Write.
func New(path string, opts ...Option) *Output {
	o := &Output{path: path, pretty: true, perm: 0o644}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Path returns the artifact location.
func (o *Output) Path() string { return o.path }

func (o *Output) Write(_ context.Context, exp model.Explanation) error {
	data, err := output.Marshal(exp, o.pretty)
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := WriteAtomic(o.path, data, o.perm); err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	return nil
}

func (o *Output) Close() error { return nil }

// WriteAtomic writes data to a temporary file next to path and renames it
// into place.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
