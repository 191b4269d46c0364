package retrieval

import "testing"

func intPtr(i int) *int { return &i }

func TestPassage_MetadataString(t *testing.T) {
	p := NewPassage("text", map[string]any{
		"file_name": "deal.pdf",
		"page":      float64(3),
		"empty":     "",
		"missing":   nil,
	}, 0.5)

	if s, ok := p.MetadataString("file_name"); !ok || s != "deal.pdf" {
		t.Errorf("file_name = %q, %v", s, ok)
	}
	if s, ok := p.MetadataString("page"); !ok || s != "3" {
		t.Errorf("page = %q, %v", s, ok)
	}
	for _, k := range []string{"empty", "missing", "absent"} {
		if _, ok := p.MetadataString(k); ok {
			t.Errorf("%s should not be present", k)
		}
	}
	if p.Text() != "text" || p.Score() != 0.5 {
		t.Errorf("accessors: %q %f", p.Text(), p.Score())
	}
}

func TestPassage_NilMetadata(t *testing.T) {
	p := NewPassage("x", nil, 0)
	if _, ok := p.MetadataString("file_name"); ok {
		t.Error("nil metadata should have no keys")
	}
}

func TestTuning_Merge(t *testing.T) {
	base := Tuning{DenseTopK: intPtr(5), RerankTopN: intPtr(3)}
	alpha := 0.7
	got := base.Merge(Tuning{DenseTopK: intPtr(10), Alpha: &alpha})

	if *got.DenseTopK != 10 {
		t.Errorf("DenseTopK = %d", *got.DenseTopK)
	}
	if *got.RerankTopN != 3 {
		t.Errorf("RerankTopN = %d", *got.RerankTopN)
	}
	if got.Alpha == nil || *got.Alpha != 0.7 {
		t.Error("Alpha not merged")
	}
	if *base.DenseTopK != 5 {
		t.Error("Merge mutated receiver")
	}
}

func TestTuning_IsZero(t *testing.T) {
	if !(Tuning{}).IsZero() {
		t.Error("empty tuning should be zero")
	}
	if (Tuning{SparseTopK: intPtr(1)}).IsZero() {
		t.Error("tuning with SparseTopK should not be zero")
	}
}
