// Package testdata embeds a small labeled corpus of architecture case
// studies for model-free end-to-end tests.
package testdata

import (
	_ "embed"

	"github.com/crimson-sun/archlens/internal/corpus"
	"github.com/crimson-sun/archlens/internal/model"
)

//go:embed corpus.json
var corpusJSON []byte

// LoadCorpus parses the embedded corpus.json through the regular corpus
// validation.
func LoadCorpus() ([]model.Case, error) {
	return corpus.ParseCorpus("testdata/corpus.json", corpusJSON)
}
