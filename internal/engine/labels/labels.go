package labels

import (
	"fmt"
	"sort"
)

// Space maps architecture labels to contiguous class indices. Indices follow
// lexicographic label order, so the mapping depends only on the set of labels
// observed, not on corpus order.
type Space struct {
	names []string
	index map[string]int
}

// New builds a label space from the observed labels. Duplicates collapse.
func New(observed []string) *Space {
	index := make(map[string]int, len(observed))
	names := make([]string, 0, len(observed))
	for _, l := range observed {
		if _, ok := index[l]; ok {
			continue
		}
		index[l] = -1
		names = append(names, l)
	}
	sort.Strings(names)
	for i, n := range names {
		index[n] = i
	}
	return &Space{names: names, index: index}
}

// Len returns the number of distinct labels.
func (s *Space) Len() int {
	return len(s.names)
}

// Encode returns the class index for a label.
func (s *Space) Encode(label string) (int, error) {
	i, ok := s.index[label]
	if !ok {
		return 0, fmt.Errorf("labels: unknown label %q", label)
	}
	return i, nil
}

// EncodeAll encodes every label, preserving order.
func (s *Space) EncodeAll(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, err := s.Encode(l)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Decode returns the label for a class index.
func (s *Space) Decode(i int) (string, error) {
	if i < 0 || i >= len(s.names) {
		return "", fmt.Errorf("labels: class index %d out of range [0, %d)", i, len(s.names))
	}
	return s.names[i], nil
}

// Names returns the labels in index order.
func (s *Space) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
