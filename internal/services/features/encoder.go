package features

import "sort"

// CategoryEncoder maps category names to dense integer ids. The vocabulary is
// fixed once fitted; unseen names are reported as unknown, never re-encoded.
type CategoryEncoder struct {
	ids   map[string]int
	names []string
}

// FitEncoder builds an encoder over the distinct names, ids assigned in sorted order.
func FitEncoder(categories []string) *CategoryEncoder {
	uniq := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		uniq[c] = struct{}{}
	}
	names := make([]string, 0, len(uniq))
	for c := range uniq {
		names = append(names, c)
	}
	sort.Strings(names)

	ids := make(map[string]int, len(names))
	for i, c := range names {
		ids[c] = i
	}
	return &CategoryEncoder{ids: ids, names: names}
}

// Encode returns the id of a known category.
func (e *CategoryEncoder) Encode(category string) (int, bool) {
	id, ok := e.ids[category]
	return id, ok
}

// Known reports whether the category was part of the fitted vocabulary.
func (e *CategoryEncoder) Known(category string) bool {
	_, ok := e.ids[category]
	return ok
}

func (e *CategoryEncoder) Categories() []string {
	return append([]string(nil), e.names...)
}

func (e *CategoryEncoder) Len() int { return len(e.names) }
