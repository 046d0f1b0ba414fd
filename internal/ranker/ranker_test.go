package ranker

import (
	"math"
	"testing"

	"github.com/farmsense/poultryqa/internal/config"
	"github.com/farmsense/poultryqa/internal/domain"
)

func testConfig() config.RankerConfig {
	return config.RankerConfig{
		DecayRate:           1.5,
		StructuredBonus:     0.2,
		TableMetaBonus:      0.15,
		DomainMetaBonus:     0.1,
		NumericPatternBonus: 0.05,
		OverlapBonusCap:     0.15,
	}
}

func TestBaseScore(t *testing.T) {
	r := New(testConfig())

	tests := []struct {
		name string
		raw  float64
		want float64
	}{
		{"zero distance", 0, 1},
		{"negative distance clamps", -3, 1},
		{"unit distance", 1, math.Exp(-1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.baseScore(tt.raw); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("baseScore(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}

	if a, b := r.baseScore(0.5), r.baseScore(2); a <= b {
		t.Errorf("score must decrease with distance: %v <= %v", a, b)
	}
	if got := r.baseScore(1000); got < 0 || got > 1e-9 {
		t.Errorf("huge distance must score ~0, got %v", got)
	}
}

func TestRank_NonTechnicalKeepsOrder(t *testing.T) {
	r := New(testConfig())

	// Deliberately worst-first: pass-through must not re-sort.
	candidates := []Candidate{
		{Document: domain.DocumentRecord{Content: "far doc"}, RawScore: 2.0},
		{Document: domain.DocumentRecord{Content: "near doc"}, RawScore: 0.1},
	}

	results := r.Rank("how do chickens sleep", candidates)
	if results[0].Document.Content != "far doc" {
		t.Error("non-technical query must preserve candidate order")
	}
	if results[0].FinalScore >= results[1].FinalScore {
		t.Error("base scores must still reflect distance")
	}
}

func TestRank_StructuredContentOutranksCloserPlain(t *testing.T) {
	r := New(testConfig())

	candidates := []Candidate{
		{Document: domain.DocumentRecord{Content: "general husbandry advice"}, RawScore: 0.1},
		{Document: domain.DocumentRecord{Content: "crude protein: 21\nlysine: 1.2"}, RawScore: 0.2},
	}

	results := r.Rank("crude protein % for broiler starter", candidates)
	if results[0].Document.Content == "general husbandry advice" {
		t.Errorf("structured doc must be boosted past the closer plain doc, scores %v vs %v",
			results[0].FinalScore, results[1].FinalScore)
	}
}

func TestRank_MetadataBonuses(t *testing.T) {
	r := New(testConfig())

	plain := domain.DocumentRecord{Content: "x"}
	tagged := domain.DocumentRecord{
		Content: "x",
		Metadata: map[string]any{
			domain.MetaContentType: domain.ContentTypeTable,
			domain.MetaDomain:      "Nutrition",
		},
	}

	results := r.Rank("feed intake at 21 days", []Candidate{
		{Document: plain, RawScore: 0.5},
		{Document: tagged, RawScore: 0.5},
	})
	if results[0].Document.MetaString(domain.MetaDomain) != "Nutrition" {
		t.Error("table + domain metadata must win at equal distance")
	}
	// Same raw score, same content: the gap is exactly the two metadata
	// bonuses.
	gap := results[0].FinalScore - results[1].FinalScore
	if math.Abs(gap-0.25) > 1e-9 {
		t.Errorf("metadata bonus gap %v, want 0.25", gap)
	}
}

func TestRank_ScoreCappedAtOne(t *testing.T) {
	r := New(testConfig())

	doc := domain.DocumentRecord{
		Content: "crude protein: 21, 3100 kcal/kg, feed intake per day",
		Metadata: map[string]any{
			domain.MetaContentType: domain.ContentTypeTable,
			domain.MetaDomain:      "nutrition",
		},
	}
	results := r.Rank("crude protein kcal feed intake day", []Candidate{{Document: doc, RawScore: 0}})
	if results[0].FinalScore != 1 {
		t.Errorf("score %v, want capped at 1", results[0].FinalScore)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	r := New(testConfig())

	candidates := []Candidate{
		{Document: domain.DocumentRecord{Content: "first"}, RawScore: 0.3},
		{Document: domain.DocumentRecord{Content: "second"}, RawScore: 0.3},
		{Document: domain.DocumentRecord{Content: "third"}, RawScore: 0.3},
	}
	results := r.Rank("weight at 35 days", candidates)
	for i, want := range []string{"first", "second", "third"} {
		if results[i].Document.Content != want {
			t.Fatalf("tie order broken at %d: got %q, want %q", i, results[i].Document.Content, want)
		}
	}
}

func TestIsTechnicalQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"FCR for Ross 308", true},               // digit + performance word
		{"target weight", true},                  // performance word
		{"how many kg of feed", true},            // unit token
		{"protein % in starter", true},           // percent sign
		{"why do my hens stop laying", false},    // narrative
		{"best bedding material for chicks", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := IsTechnicalQuery(tt.query); got != tt.want {
				t.Errorf("IsTechnicalQuery(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestHasStructuredContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"markdown table", "| age | weight |\n| 7 | 180 |", true},
		{"labeled value", "crude protein: 21", true},
		{"age range", "brood at 32C for 0-7 days", true},
		{"plain narrative", "keep the litter dry and watch the flock closely", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasStructuredContent(tt.content); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
