package domain

import "testing"

func TestCanonicalMethod(t *testing.T) {
	tests := []struct {
		label      string
		want       Method
		recognized bool
	}{
		{"neural", MethodNeural, true},
		{"huggingface", MethodNeural, true},
		{"sentence-transformers", MethodNeural, true},
		{"  SBERT  ", MethodNeural, true}, // case and whitespace insensitive
		{"openai", MethodRemote, true},
		{"text-embedding-3-small", MethodRemote, true},
		{"hash", MethodLexical, true},
		{"tfidf", MethodLexical, true},
		{"", MethodNeural, false},
		{"word2vec-custom", MethodNeural, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := CanonicalMethod(tt.label)
			if got != tt.want || ok != tt.recognized {
				t.Errorf("CanonicalMethod(%q) = (%v, %v), want (%v, %v)",
					tt.label, got, ok, tt.want, tt.recognized)
			}
		})
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range []Method{MethodNeural, MethodRemote, MethodLexical} {
		if !m.Valid() {
			t.Errorf("%v must be valid", m)
		}
	}
	if MethodAuto.Valid() {
		t.Error("auto is a dispatch mode, not a concrete method")
	}
	if Method("bogus").Valid() {
		t.Error("unknown methods must be invalid")
	}
}
