package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/engine"
	"github.com/crimson-sun/archlens/internal/engine/embedder"
	"github.com/crimson-sun/archlens/internal/model"
	"github.com/crimson-sun/archlens/internal/output/file"
	"github.com/crimson-sun/archlens/internal/output/multi"
	"github.com/crimson-sun/archlens/internal/output/webhook"
)

// Model paths relative to internal/pipeline/.
const (
	integrationModelPath = "../../models/model.onnx"
	integrationVocabPath = "../../models/vocab.txt"
)

const scenarioCorpus = `[
  {"functional_requirements":[{"title":"Sessions","description":"supports concurrent sessions"}],
   "non_functional_requirements":[{"title":"Scale","description":"must scale horizontally"}],
   "architecture_label":"Microservices"},
  {"functional_requirements":[{"title":"Forms","description":"renders forms"}],
   "non_functional_requirements":[{"title":"Navigation","description":"simple navigation"}],
   "architecture_label":"MVC"}
]`

const scenarioTarget = `{
  "system_description": "A trading dashboard",
  "functional_requirements":[{"title":"Feed","description":"processes stock price events in real time"}],
  "non_functional_requirements":[{"title":"Push","description":"must notify subscribers instantly"}]
}`

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(integrationModelPath); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

// writeInputs writes corpus and target files and returns a Files source.
func writeInputs(t *testing.T, corpusJSON, targetJSON string) corpus.Files {
	t.Helper()
	dir := t.TempDir()
	src := corpus.Files{
		CorpusPath: filepath.Join(dir, "labeled_case_studies.json"),
		TargetPath: filepath.Join(dir, "ai_generated_requirements_clean.json"),
	}
	if err := os.WriteFile(src.CorpusPath, []byte(corpusJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src.TargetPath, []byte(targetJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return src
}

func readArtifact(t *testing.T, path string) model.Explanation {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var exp model.Explanation
	if err := json.Unmarshal(data, &exp); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	return exp
}

func TestIntegration_FilesToArtifact(t *testing.T) {
	src := writeInputs(t, scenarioCorpus, scenarioTarget)
	artifact := filepath.Join(t.TempDir(), "shap_explanation.json")

	var hooked model.Explanation
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&hooked)
	}))
	defer srv.Close()

	out := multi.New(file.New(artifact), webhook.New(srv.URL))
	p := New(src, engine.New(embedder.NewHashing(0), engine.DefaultOptions()), out)
	defer p.Close()

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	exp := readArtifact(t, artifact)
	if exp.PredictedArchitecture != "Microservices" && exp.PredictedArchitecture != "MVC" {
		t.Errorf("predicted unseen label %q", exp.PredictedArchitecture)
	}
	if len(exp.TopContributingFeatures) != 10 {
		t.Errorf("got %d features, want 10", len(exp.TopContributingFeatures))
	}
	for _, f := range exp.TopContributingFeatures {
		if math.IsNaN(f.SHAPValue) || math.IsInf(f.SHAPValue, 0) {
			t.Errorf("non-finite value for dimension %d", f.Dimension)
		}
	}
	if hooked.PredictedArchitecture != exp.PredictedArchitecture {
		t.Errorf("webhook saw %q, file has %q", hooked.PredictedArchitecture, exp.PredictedArchitecture)
	}
}

func TestIntegration_FailuresLeaveNoArtifact(t *testing.T) {
	singleLabel := `[
	  {"functional_requirements":[],"non_functional_requirements":[{"title":"a","description":"b"}],"architecture_label":"MVC"},
	  {"functional_requirements":[],"non_functional_requirements":[{"title":"c","description":"d"}],"architecture_label":"MVC"}
	]`
	missingTitle := `{"functional_requirements":[{"description":"no title"}],"non_functional_requirements":[]}`

	tests := []struct {
		name   string
		corpus string
		target string
		check  func(error) bool
	}{
		{"empty corpus", `[]`, scenarioTarget, func(err error) bool {
			var e *model.InsufficientDataError
			return errors.As(err, &e)
		}},
		{"single label", singleLabel, scenarioTarget, func(err error) bool {
			var e *model.InsufficientDataError
			return errors.As(err, &e)
		}},
		{"missing field", scenarioCorpus, missingTitle, func(err error) bool {
			var e *model.MissingFieldError
			return errors.As(err, &e)
		}},
		{"malformed target", scenarioCorpus, `{"functional_requirements": [`, func(err error) bool { return err != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeInputs(t, tt.corpus, tt.target)
			artifact := filepath.Join(t.TempDir(), "shap_explanation.json")

			p := New(src, engine.New(embedder.NewHashing(16), engine.DefaultOptions()), file.New(artifact))
			_, err := p.Run(context.Background())
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, statErr := os.Stat(artifact); !os.IsNotExist(statErr) {
				t.Error("artifact must not exist after a failed run")
			}
		})
	}
}

func TestIntegration_ONNXPipeline(t *testing.T) {
	skipWithoutModel(t)
	emb, err := embedder.NewONNX(embedder.ONNXConfig{
		ModelPath: integrationModelPath,
		VocabPath: integrationVocabPath,
		Normalize: true,
	})
	if err != nil {
		t.Fatalf("NewONNX: %v", err)
	}
	defer emb.Close()

	src := writeInputs(t, scenarioCorpus, scenarioTarget)
	artifact := filepath.Join(t.TempDir(), "shap_explanation.json")
	if _, err := New(src, engine.New(emb, engine.DefaultOptions()), file.New(artifact)).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	exp := readArtifact(t, artifact)
	t.Logf("predicted %s with %d features", exp.PredictedArchitecture, len(exp.TopContributingFeatures))
}
