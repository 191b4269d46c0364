package answer

import (
	"reflect"
	"testing"

	"github.com/thebeast/llamarouter/internal/domain/retrieval"
)

func str(s string) *string { return &s }

func passage(text string, meta map[string]any) retrieval.Passage {
	return retrieval.NewPassage(text, meta, 0)
}

func TestAssemble_Empty(t *testing.T) {
	a := Assemble(nil)
	if a.Text != "" {
		t.Errorf("Text = %q", a.Text)
	}
	if a.Citations == nil || len(a.Citations) != 0 {
		t.Errorf("Citations = %#v, want empty non-nil", a.Citations)
	}
}

func TestAssemble_SinglePassage(t *testing.T) {
	a := Assemble([]retrieval.Passage{
		passage("Deal is $5M.", map[string]any{"file_name": "deal.pdf"}),
	})
	if a.Text != "Deal is $5M." {
		t.Errorf("Text = %q", a.Text)
	}
	want := []Citation{{FileName: str("deal.pdf")}}
	if !reflect.DeepEqual(a.Citations, want) {
		t.Errorf("Citations = %+v, want %+v", a.Citations, want)
	}
}

func TestAssemble_SkipsEmptyText(t *testing.T) {
	a := Assemble([]retrieval.Passage{
		passage("", nil),
		passage("first", nil),
		passage("", nil),
		passage("second", nil),
		passage("", nil),
	})
	if a.Text != "first\n\nsecond" {
		t.Errorf("Text = %q", a.Text)
	}
}

func TestAssemble_AllEmptyText(t *testing.T) {
	a := Assemble([]retrieval.Passage{passage("", nil), passage("", nil)})
	if a.Text != "" {
		t.Errorf("Text = %q, want empty", a.Text)
	}
}

func TestAssemble_FileNamePriority(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want string
	}{
		{"file_name wins", map[string]any{"file_name": "a", "filename": "b", "document_title": "c"}, "a"},
		{"filename second", map[string]any{"filename": "b", "document_title": "c"}, "b"},
		{"document_title last", map[string]any{"document_title": "c"}, "c"},
		{"empty file_name falls through", map[string]any{"file_name": "", "filename": "b"}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assemble([]retrieval.Passage{passage("x", tt.meta)})
			if len(a.Citations) != 1 || a.Citations[0].FileName == nil {
				t.Fatalf("Citations = %+v", a.Citations)
			}
			if got := *a.Citations[0].FileName; got != tt.want {
				t.Errorf("FileName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssemble_CitationRequiresOneField(t *testing.T) {
	a := Assemble([]retrieval.Passage{
		passage("a", map[string]any{"author": "someone"}),
		passage("b", map[string]any{"web_url": "https://x/y"}),
	})
	want := []Citation{{WebURL: str("https://x/y")}}
	if !reflect.DeepEqual(a.Citations, want) {
		t.Errorf("Citations = %+v, want %+v", a.Citations, want)
	}
}

func TestAssemble_DedupePreservesFirstOccurrence(t *testing.T) {
	a := Assemble([]retrieval.Passage{
		passage("1", map[string]any{"file_name": "b.pdf", "web_url": "u1"}),
		passage("2", map[string]any{"file_name": "a.pdf"}),
		passage("3", map[string]any{"file_name": "b.pdf", "web_url": "u1"}),
		passage("4", map[string]any{"file_name": "b.pdf"}),
		passage("5", map[string]any{"filename": "a.pdf"}),
		passage("6", map[string]any{"file_name": "b.pdf", "web_url": "u2"}),
	})
	want := []Citation{
		{FileName: str("b.pdf"), WebURL: str("u1")},
		{FileName: str("a.pdf")},
		{FileName: str("b.pdf")},
		{FileName: str("b.pdf"), WebURL: str("u2")},
	}
	if !reflect.DeepEqual(a.Citations, want) {
		t.Errorf("Citations = %+v, want %+v", a.Citations, want)
	}
	if a.Text != "1\n\n2\n\n3\n\n4\n\n5\n\n6" {
		t.Errorf("Text = %q", a.Text)
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	in := []retrieval.Passage{
		passage("x", map[string]any{"file_name": "a"}),
		passage("", map[string]any{"web_url": "u"}),
		passage("y", map[string]any{"file_name": "a"}),
	}
	first := Assemble(in)
	second := Assemble(in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("not idempotent: %+v vs %+v", first, second)
	}
}
