package embedder

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// defaultMaxSeqLen matches the sentence-transformers limit for MiniLM
// models. Requirement sets are long; anything past the limit is truncated.
const defaultMaxSeqLen = 256

// encoded is a batch of token sequences packed for inference. All slices
// are flat [batchSize*seqLen], right-padded with zeros.
type encoded struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	batchSize     int64
	seqLen        int64
}

// tokenizer is an uncased BERT WordPiece tokenizer.
type tokenizer struct {
	vocab  *vocab
	maxLen int
}

func newTokenizer(vocabPath string, maxLen int) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	if maxLen <= 2 {
		maxLen = defaultMaxSeqLen
	}
	return &tokenizer{vocab: v, maxLen: maxLen}, nil
}

// encode returns [CLS] wordpieces... [SEP] as token IDs, truncated so the
// whole sequence fits in maxLen.
func (t *tokenizer) encode(text string) []int64 {
	pieces := t.wordpieces(basicTokens(text))
	if limit := t.maxLen - 2; len(pieces) > limit {
		pieces = pieces[:limit]
	}
	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, t.vocab.clsID)
	for _, p := range pieces {
		ids = append(ids, t.vocab.lookup(p))
	}
	return append(ids, t.vocab.sepID)
}

// encodeBatch encodes every text and pads to the longest sequence in the
// batch.
func (t *tokenizer) encodeBatch(texts []string) encoded {
	seqs := make([][]int64, len(texts))
	longest := 0
	for i, text := range texts {
		seqs[i] = t.encode(text)
		if len(seqs[i]) > longest {
			longest = len(seqs[i])
		}
	}

	n, l := int64(len(texts)), int64(longest)
	b := encoded{
		inputIDs:      make([]int64, n*l),
		attentionMask: make([]int64, n*l),
		tokenTypeIDs:  make([]int64, n*l),
		batchSize:     n,
		seqLen:        l,
	}
	for i, seq := range seqs {
		row := int64(i) * l
		copy(b.inputIDs[row:], seq)
		for j := range seq {
			b.attentionMask[row+int64(j)] = 1
		}
	}
	return b
}

// wordpieces splits each basic token into the longest vocabulary pieces,
// greedy left to right. A token that cannot be fully covered becomes [UNK].
func (t *tokenizer) wordpieces(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		out = append(out, t.splitWord(tok)...)
	}
	return out
}

func (t *tokenizer) splitWord(word string) []string {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) > 200 {
		return []string{"[UNK]"}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		piece := ""
		for ; end > start; end-- {
			cand := string(runes[start:end])
			if start > 0 {
				cand = "##" + cand
			}
			if t.vocab.contains(cand) {
				piece = cand
				break
			}
		}
		if piece == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}

// basicTokens applies BERT's basic tokenization: drop control characters,
// isolate CJK ideographs, lowercase, strip accents, then split on
// whitespace and punctuation.
func basicTokens(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isWhitespace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	cleaned := stripAccents(strings.ToLower(b.String()))

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		tokens = append(tokens, splitPunct(word)...)
	}
	return tokens
}

// stripAccents drops nonspacing marks after NFD decomposition.
func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitPunct emits every punctuation rune as its own token.
func splitPunct(word string) []string {
	var tokens []string
	start := -1
	for i, r := range word {
		if isPunct(r) {
			if start >= 0 {
				tokens = append(tokens, word[start:i])
				start = -1
			}
			tokens = append(tokens, string(r))
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, word[start:])
	}
	return tokens
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.IsControl(r)
}

// isPunct treats all non-alphanumeric printable ASCII as punctuation, as
// BERT does, plus Unicode punctuation.
func isPunct(r rune) bool {
	if r < 128 {
		return r > 32 && r < 127 && !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z')
	}
	return unicode.IsPunct(r)
}

var cjkRanges = [][2]rune{
	{0x4E00, 0x9FFF},
	{0x3400, 0x4DBF},
	{0x20000, 0x2A6DF},
	{0x2A700, 0x2B73F},
	{0x2B740, 0x2B81F},
	{0x2B820, 0x2CEAF},
	{0xF900, 0xFAFF},
	{0x2F800, 0x2FA1F},
}

func isCJK(r rune) bool {
	for _, rg := range cjkRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}
