package chi

import (
	"github.com/thebeast/llamarouter/internal/domain/answer"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
	queryuc "github.com/thebeast/llamarouter/internal/usecase/query"
)

type queryRequest struct {
	Query      string           `json:"query"`
	Filters    any              `json:"filters"`
	PreFilters any              `json:"preFilters"`
	Tuning     retrieval.Tuning `json:"tuning"`
}

// toDomain picks "filters", falling back to "preFilters" when the former is absent or empty.
func (r *queryRequest) toDomain() queryuc.Request {
	filters := r.Filters
	if isEmptyPayload(filters) {
		filters = r.PreFilters
	}
	return queryuc.Request{Query: r.Query, Filters: filters, Tuning: r.Tuning}
}

func isEmptyPayload(v any) bool {
	switch p := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(p) == 0
	case []any:
		return len(p) == 0
	case string:
		return p == ""
	case bool:
		return !p
	case float64:
		return p == 0
	}
	return false
}

type queryResponse struct {
	Text          string            `json:"text"`
	Citations     []answer.Citation `json:"citations"`
	SelectedIndex string            `json:"selected_index,omitempty"`
}

func queryResponseFromDomain(res queryuc.Result) queryResponse {
	citations := res.Citations
	if citations == nil {
		citations = []answer.Citation{}
	}
	return queryResponse{Text: res.Text, Citations: citations, SelectedIndex: res.SelectedIndex}
}

type errorResponse struct {
	Error string `json:"error"`
}

type targetItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type targetsResponse struct {
	Targets []targetItem `json:"targets"`
	Routed  bool         `json:"routed"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
