package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/crimson-sun/archlens/internal/model"
	"github.com/google/go-cmp/cmp"
)

const twoCases = `[
  {
    "functional_requirements": [{"title": "Sessions", "description": "supports concurrent sessions"}],
    "non_functional_requirements": [{"title": "Scale", "description": "must scale horizontally"}],
    "architecture_label": "Microservices"
  },
  {
    "functional_requirements": [{"title": "Forms", "description": "renders forms"}],
    "non_functional_requirements": [],
    "architecture_label": "MVC"
  }
]`

func TestParseCorpus(t *testing.T) {
	got, err := ParseCorpus("test", []byte(twoCases))
	if err != nil {
		t.Fatalf("ParseCorpus error: %v", err)
	}
	want := []model.Case{
		{
			FunctionalRequirements:    []model.Requirement{{Title: "Sessions", Description: "supports concurrent sessions"}},
			NonFunctionalRequirements: []model.Requirement{{Title: "Scale", Description: "must scale horizontally"}},
			ArchitectureLabel:         "Microservices",
		},
		{
			FunctionalRequirements:    []model.Requirement{{Title: "Forms", Description: "renders forms"}},
			NonFunctionalRequirements: []model.Requirement{},
			ArchitectureLabel:         "MVC",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCorpus mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCorpusEmptyArray(t *testing.T) {
	got, err := ParseCorpus("test", []byte(`[]`))
	if err != nil {
		t.Fatalf("empty corpus should parse; size is checked at training: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d cases, want 0", len(got))
	}
}

func TestParseMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{
			name:  "missing description",
			input: `[{"functional_requirements":[{"title":"A"}],"non_functional_requirements":[],"architecture_label":"MVC"}]`,
			field: "[0].functional_requirements[0].description",
		},
		{
			name:  "missing nfr title",
			input: `[{"functional_requirements":[],"non_functional_requirements":[{"title":"a","description":"b"},{"description":"c"}],"architecture_label":"MVC"}]`,
			field: "[0].non_functional_requirements[1].title",
		},
		{
			name:  "missing list",
			input: `[{"functional_requirements":[],"architecture_label":"MVC"}]`,
			field: "[0].non_functional_requirements",
		},
		{
			name:  "missing label",
			input: `[{"functional_requirements":[],"non_functional_requirements":[]}]`,
			field: "[0].architecture_label",
		},
		{
			name:  "empty label",
			input: `[{"functional_requirements":[],"non_functional_requirements":[],"architecture_label":""}]`,
			field: "[0].architecture_label",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCorpus("corpus.json", []byte(tt.input))
			var mf *model.MissingFieldError
			if !errors.As(err, &mf) {
				t.Fatalf("expected MissingFieldError, got %v", err)
			}
			if mf.Field != tt.field || mf.Source != "corpus.json" {
				t.Errorf("got field %q source %q, want %q", mf.Field, mf.Source, tt.field)
			}
		})
	}
}

func TestEmptyStringsAreNotMissing(t *testing.T) {
	_, err := ParseTarget("t", []byte(`{"functional_requirements":[{"title":"","description":""}],"non_functional_requirements":[]}`))
	if err != nil {
		t.Errorf("empty strings are present values: %v", err)
	}
}

func TestParseTarget(t *testing.T) {
	got, err := ParseTarget("target.json", []byte(`{
		"functional_requirements": [{"title": "Feed", "description": "processes stock price events in real time"}],
		"non_functional_requirements": [{"title": "Push", "description": "must notify subscribers instantly"}],
		"architecture_label": "Event-Driven"
	}`))
	if err != nil {
		t.Fatalf("ParseTarget error: %v", err)
	}
	if got.Labeled() {
		t.Error("target label should be dropped")
	}
	if len(got.FunctionalRequirements) != 1 || got.NonFunctionalRequirements[0].Title != "Push" {
		t.Errorf("unexpected target: %+v", got)
	}

	_, err = ParseTarget("target.json", []byte(`{"functional_requirements":[{"title":"x"}],"non_functional_requirements":[]}`))
	var mf *model.MissingFieldError
	if !errors.As(err, &mf) || mf.Field != "functional_requirements[0].description" {
		t.Errorf("expected MissingFieldError at functional_requirements[0].description, got %v", err)
	}
}

func TestMalformedJSON(t *testing.T) {
	for _, in := range []string{`{`, `[{"functional_requirements": "nope"}]`, `not json`} {
		_, err := ParseCorpus("c", []byte(in))
		if err == nil {
			t.Errorf("ParseCorpus(%q) should fail", in)
		}
		var mf *model.MissingFieldError
		if errors.As(err, &mf) {
			t.Errorf("malformed JSON should not be reported as a missing field: %v", err)
		}
	}
	if _, err := ParseTarget("t", []byte(`[1,2]`)); err == nil {
		t.Error("array target should fail")
	}
}

func TestFilesSource(t *testing.T) {
	dir := t.TempDir()
	cp := filepath.Join(dir, "corpus.json")
	tp := filepath.Join(dir, "target.json")
	os.WriteFile(cp, []byte(twoCases), 0o644)
	os.WriteFile(tp, []byte(`{"functional_requirements":[],"non_functional_requirements":[]}`), 0o644)

	src := Files{CorpusPath: cp, TargetPath: tp}
	cases, err := src.Corpus(context.Background())
	if err != nil || len(cases) != 2 {
		t.Fatalf("Corpus = %d cases, %v", len(cases), err)
	}
	if _, err := src.Target(context.Background()); err != nil {
		t.Fatalf("Target error: %v", err)
	}

	if _, err := LoadCorpus(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStaticSourceClearsLabel(t *testing.T) {
	s := Static{Case: model.Case{ArchitectureLabel: "MVC"}}
	c, _ := s.Target(context.Background())
	if c.Labeled() {
		t.Error("Static target should not carry a label")
	}
}
