package worldgraph

import "sort"

// Edge is a directed, labeled link from one Binding to another, expressing
// weak episode causality ("then") rather than logical necessity.
type Edge struct {
	To    string                 `json:"to"`
	Label string                 `json:"label"`
	Meta  map[string]interface{} `json:"meta"`
}

// Binding is one node in the episode graph: a set of tags (predicates,
// cues, anchors, or actions), outgoing edges, provenance metadata, and
// pointers into the engram store. A binding without any tags or edges is
// allowed but discouraged — add at least one tag, even as a placeholder.
type Binding struct {
	ID      string
	Tags    map[string]bool
	Edges   []Edge
	Meta    map[string]interface{}
	Engrams map[string]interface{}
}

func newBinding(id string, tags []string) *Binding {
	b := &Binding{
		ID:      id,
		Tags:    map[string]bool{},
		Edges:   nil,
		Meta:    map[string]interface{}{},
		Engrams: map[string]interface{}{},
	}
	for _, t := range tags {
		b.Tags[t] = true
	}
	return b
}

func (b *Binding) sortedTags() []string {
	out := make([]string, 0, len(b.Tags))
	for t := range b.Tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (b *Binding) hasTagPrefix(prefix string) string {
	for t := range b.Tags {
		if len(t) > len(prefix) && t[:len(prefix)] == prefix {
			return t[len(prefix):]
		}
	}
	return ""
}

// bindingDTO is the JSON-safe persisted form of a Binding.
type bindingDTO struct {
	ID      string                 `json:"id"`
	Tags    []string               `json:"tags"`
	Edges   []Edge                 `json:"edges"`
	Meta    map[string]interface{} `json:"meta"`
	Engrams map[string]interface{} `json:"engrams"`
}

func (b *Binding) toDTO() bindingDTO {
	edges := make([]Edge, len(b.Edges))
	copy(edges, b.Edges)
	return bindingDTO{
		ID:      b.ID,
		Tags:    b.sortedTags(),
		Edges:   edges,
		Meta:    copyMap(b.Meta),
		Engrams: copyMap(b.Engrams),
	}
}

func bindingFromDTO(d bindingDTO) *Binding {
	b := newBinding(d.ID, d.Tags)
	b.Edges = append([]Edge(nil), d.Edges...)
	if d.Meta != nil {
		b.Meta = d.Meta
	}
	if d.Engrams != nil {
		b.Engrams = d.Engrams
	}
	return b
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
