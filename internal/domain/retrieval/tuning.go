package retrieval

// Tuning holds optional retrieval parameters passed through to the index.
// nil fields are left to the index defaults.
type Tuning struct {
	DenseTopK       *int     `json:"dense_similarity_top_k,omitempty" yaml:"dense_similarity_top_k"`
	SparseTopK      *int     `json:"sparse_similarity_top_k,omitempty" yaml:"sparse_similarity_top_k"`
	EnableReranking *bool    `json:"enable_reranking,omitempty" yaml:"enable_reranking"`
	RerankTopN      *int     `json:"rerank_top_n,omitempty" yaml:"rerank_top_n"`
	Alpha           *float64 `json:"alpha,omitempty" yaml:"alpha"`
}

// Merge returns t with every field set in override replaced.
func (t Tuning) Merge(override Tuning) Tuning {
	out := t
	if override.DenseTopK != nil {
		out.DenseTopK = override.DenseTopK
	}
	if override.SparseTopK != nil {
		out.SparseTopK = override.SparseTopK
	}
	if override.EnableReranking != nil {
		out.EnableReranking = override.EnableReranking
	}
	if override.RerankTopN != nil {
		out.RerankTopN = override.RerankTopN
	}
	if override.Alpha != nil {
		out.Alpha = override.Alpha
	}
	return out
}

// IsZero reports whether no parameter is set.
func (t Tuning) IsZero() bool {
	return t.DenseTopK == nil && t.SparseTopK == nil && t.EnableReranking == nil &&
		t.RerankTopN == nil && t.Alpha == nil
}
