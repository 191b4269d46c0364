package llamacloud

import (
	"strings"

	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
)

type retrieveRequest struct {
	Query                string         `json:"query"`
	DenseSimilarityTopK  *int           `json:"dense_similarity_top_k,omitempty"`
	SparseSimilarityTopK *int           `json:"sparse_similarity_top_k,omitempty"`
	EnableReranking      *bool          `json:"enable_reranking,omitempty"`
	RerankTopN           *int           `json:"rerank_top_n,omitempty"`
	Alpha                *float64       `json:"alpha,omitempty"`
	SearchFilters        *searchFilters `json:"search_filters,omitempty"`
}

type searchFilters struct {
	Filters   []metadataFilter `json:"filters"`
	Condition string           `json:"condition"`
}

type metadataFilter struct {
	Key      string `json:"key"`
	Value    any    `json:"value"`
	Operator string `json:"operator"`
}

type retrieveResponse struct {
	RetrievalNodes []scoredNode `json:"retrieval_nodes"`
}

type scoredNode struct {
	Node struct {
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
	} `json:"node"`
	Score *float64 `json:"score"`
}

type pipeline struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newRetrieveRequest(query string, expr filter.Expression, tuning retrieval.Tuning) retrieveRequest {
	req := retrieveRequest{
		Query:                query,
		DenseSimilarityTopK:  tuning.DenseTopK,
		SparseSimilarityTopK: tuning.SparseTopK,
		EnableReranking:      tuning.EnableReranking,
		RerankTopN:           tuning.RerankTopN,
		Alpha:                tuning.Alpha,
	}
	if expr.IsEmpty() {
		return req
	}

	preds := expr.Predicates()
	filters := make([]metadataFilter, 0, len(preds))
	for _, p := range preds {
		var value any = p.Value()
		if p.Operator() == filter.In {
			value = splitList(p.Value())
		}
		filters = append(filters, metadataFilter{
			Key:      p.Field(),
			Value:    value,
			Operator: string(p.Operator()),
		})
	}
	req.SearchFilters = &searchFilters{Filters: filters, Condition: string(expr.Condition())}
	return req
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *retrieveResponse) passages() []retrieval.Passage {
	out := make([]retrieval.Passage, 0, len(r.RetrievalNodes))
	for _, n := range r.RetrievalNodes {
		var score float64
		if n.Score != nil {
			score = *n.Score
		}
		out = append(out, retrieval.NewPassage(n.Node.Text, n.Node.Metadata, score))
	}
	return out
}
