package domain

// RetrievalHints carries documents the caller already believes are relevant.
// Matching candidates receive a small score boost.
type RetrievalHints struct {
	DocKeys []string `json:"doc_keys,omitempty"`
	URLs    []string `json:"urls,omitempty"`
}

// Retrieval is grounded context plus its document-level sources.
// Context is empty when nothing qualified.
type Retrieval struct {
	Context string      `json:"context"`
	Sources []SourceRef `json:"sources"`
}

// Empty reports whether retrieval produced no usable context.
func (r *Retrieval) Empty() bool {
	return r == nil || r.Context == ""
}

// Answer is the final response to a question.
type Answer struct {
	Question string      `json:"question"`
	Text     string      `json:"answer"`
	Sources  []SourceRef `json:"sources"`

	// Cached is true when the answer was served from the answer cache.
	Cached bool `json:"cached"`

	// Fallback is true when no context qualified and the fallback text was used.
	Fallback bool `json:"fallback"`
}
