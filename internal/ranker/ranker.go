// Package ranker converts raw index distances into bounded relevance scores
// and re-ranks candidates with non-vector signals when the query looks
// technical. All bonus magnitudes are policy, injected via config.
package ranker

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/farmsense/poultryqa/internal/config"
	"github.com/farmsense/poultryqa/internal/domain"
)

// Candidate pairs a retrieved document with its raw index distance.
type Candidate struct {
	Document domain.DocumentRecord
	RawScore float64
}

// Ranker scores and reorders retrieval candidates.
type Ranker struct {
	cfg config.RankerConfig
}

// New creates a ranker with the given bonus policy.
func New(cfg config.RankerConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank converts distances into [0,1] scores and, for technical queries,
// applies additive bonuses and sorts descending (stable: ties keep their
// input order). Non-technical queries pass through in original order.
func (r *Ranker) Rank(query string, candidates []Candidate) []domain.RankedResult {
	results := make([]domain.RankedResult, len(candidates))
	for i, c := range candidates {
		results[i] = domain.RankedResult{
			Document:   c.Document,
			RawScore:   c.RawScore,
			FinalScore: r.baseScore(c.RawScore),
		}
	}

	if !IsTechnicalQuery(query) {
		return results
	}

	queryTokens := tokenSet(query)
	for i := range results {
		bonus := r.contentBonus(results[i].Document.Content)
		bonus += r.metadataBonus(results[i].Document)
		bonus += r.overlapBonus(queryTokens, results[i].Document.Content)

		score := results[i].FinalScore + bonus
		if score > 1 {
			score = 1
		}
		results[i].FinalScore = score
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].FinalScore > results[b].FinalScore
	})
	return results
}

// baseScore maps a distance onto [0,1], monotonically decreasing.
func (r *Ranker) baseScore(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	s := math.Exp(-raw * r.cfg.DecayRate)
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}

// contentBonus awards the structured-content bonus plus at most one
// domain-numeric-pattern bonus (first match only, not cumulative).
func (r *Ranker) contentBonus(content string) float64 {
	var bonus float64
	if HasStructuredContent(content) {
		bonus += r.cfg.StructuredBonus
	}
	for _, re := range domainNumericPatterns {
		if re.MatchString(content) {
			bonus += r.cfg.NumericPatternBonus
			break
		}
	}
	return bonus
}

// technicalDomains are metadata domain tags that mark numeric reference
// material.
var technicalDomains = map[string]struct{}{
	"nutrition":   {},
	"performance": {},
	"environment": {},
	"genetics":    {},
	"processing":  {},
}

func (r *Ranker) metadataBonus(doc domain.DocumentRecord) float64 {
	var bonus float64
	if doc.MetaString(domain.MetaContentType) == domain.ContentTypeTable {
		bonus += r.cfg.TableMetaBonus
	}
	if _, ok := technicalDomains[strings.ToLower(doc.MetaString(domain.MetaDomain))]; ok {
		bonus += r.cfg.DomainMetaBonus
	}
	return bonus
}

// overlapBonus rewards lexical overlap between query and content, capped.
func (r *Ranker) overlapBonus(queryTokens map[string]struct{}, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := tokenSet(content)
	var shared int
	for tok := range queryTokens {
		if _, ok := contentTokens[tok]; ok {
			shared++
		}
	}
	bonus := float64(shared) / float64(len(queryTokens)) * r.cfg.OverlapBonusCap
	if bonus > r.cfg.OverlapBonusCap {
		return r.cfg.OverlapBonusCap
	}
	return bonus
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
