// Package corpus decodes and validates the labeled case corpus and the
// target case. Every required field is checked here, so flattening never
// sees a partial record.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/crimson-sun/archlens/internal/model"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names so field paths match the input document.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Pointer fields distinguish an absent key from an empty string.
type wireRequirement struct {
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description" validate:"required"`
}

type wireCase struct {
	FunctionalRequirements    []wireRequirement `json:"functional_requirements" validate:"required,dive"`
	NonFunctionalRequirements []wireRequirement `json:"non_functional_requirements" validate:"required,dive"`
	ArchitectureLabel         *string           `json:"architecture_label"`
}

// ParseCorpus decodes a JSON array of labeled cases. source names the input
// in error messages.
func ParseCorpus(source string, data []byte) ([]model.Case, error) {
	var raw []wireCase
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("corpus: %s: %w", source, err)
	}
	cases := make([]model.Case, len(raw))
	for i, w := range raw {
		prefix := fmt.Sprintf("[%d]", i)
		if err := check(source, prefix, &w); err != nil {
			return nil, err
		}
		if w.ArchitectureLabel == nil || *w.ArchitectureLabel == "" {
			return nil, &model.MissingFieldError{Source: source, Field: prefix + ".architecture_label"}
		}
		cases[i] = w.toModel()
	}
	return cases, nil
}

// ParseTarget decodes a single case. Any label present is dropped.
func ParseTarget(source string, data []byte) (model.Case, error) {
	var w wireCase
	if err := json.Unmarshal(data, &w); err != nil {
		return model.Case{}, fmt.Errorf("corpus: %s: %w", source, err)
	}
	if err := check(source, "", &w); err != nil {
		return model.Case{}, err
	}
	c := w.toModel()
	c.ArchitectureLabel = ""
	return c, nil
}

// LoadCorpus reads and parses a corpus file.
func LoadCorpus(path string) ([]model.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	return ParseCorpus(path, data)
}

// LoadTarget reads and parses a target case file.
func LoadTarget(path string) (model.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Case{}, fmt.Errorf("corpus: %w", err)
	}
	return ParseTarget(path, data)
}

// check validates w and converts the first failure into a
// MissingFieldError whose path is rooted at prefix.
func check(source, prefix string, w *wireCase) error {
	err := validate.Struct(w)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("corpus: %s: %w", source, err)
	}
	// Namespace is "wireCase.functional_requirements[0].title"; drop the
	// struct name.
	_, path, _ := strings.Cut(verrs[0].Namespace(), ".")
	if prefix != "" {
		path = prefix + "." + path
	}
	return &model.MissingFieldError{Source: source, Field: path}
}

func (w wireCase) toModel() model.Case {
	c := model.Case{
		FunctionalRequirements:    convert(w.FunctionalRequirements),
		NonFunctionalRequirements: convert(w.NonFunctionalRequirements),
	}
	if w.ArchitectureLabel != nil {
		c.ArchitectureLabel = *w.ArchitectureLabel
	}
	return c
}

func convert(ws []wireRequirement) []model.Requirement {
	out := make([]model.Requirement, len(ws))
	for i, r := range ws {
		out[i] = model.Requirement{Title: *r.Title, Description: *r.Description}
	}
	return out
}

// Source supplies the corpus and target for one run.
type Source interface {
	Corpus(ctx context.Context) ([]model.Case, error)
	Target(ctx context.Context) (model.Case, error)
}

// Files reads both inputs from JSON files.
type Files struct {
	CorpusPath string
	TargetPath string
}

func (f Files) Corpus(context.Context) ([]model.Case, error) { return LoadCorpus(f.CorpusPath) }

func (f Files) Target(context.Context) (model.Case, error) { return LoadTarget(f.TargetPath) }

// Static serves already-decoded cases. The target is passed through
// unvalidated and its label cleared.
type Static struct {
	Cases []model.Case
	Case  model.Case
}

func (s Static) Corpus(context.Context) ([]model.Case, error) { return s.Cases, nil }

func (s Static) Target(context.Context) (model.Case, error) {
	c := s.Case
	c.ArchitectureLabel = ""
	return c, nil
}
