// Package answer composes the final formatted answer from ranked results.
package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/ranker"
)

// maxPassageLen is the per-passage character limit before ellipsis truncation.
const maxPassageLen = 600

// sourceSeparator visually splits passages in the synthesized answer.
const sourceSeparator = "\n\n---\n\n"

// sourceFallbackKeys is the metadata preference order for the source label.
var sourceFallbackKeys = []string{
	domain.MetaSource,
	domain.MetaFileName,
	domain.MetaTitle,
	domain.MetaDocID,
}

// Synthesizer formats top ranked results into a single answer string.
type Synthesizer struct {
	logger *zap.Logger
}

// New creates a synthesizer.
func New(logger *zap.Logger) *Synthesizer {
	return &Synthesizer{logger: logger}
}

// Synthesize selects and formats passages from the ranked results. Technical
// queries prefer tabular passages (up to 2 tabular + 1 narrative); others
// take the top 3 in rank order. Any internal failure degrades to a generic
// message instead of propagating.
func (s *Synthesizer) Synthesize(query string, results []domain.RankedResult) (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Answer synthesis panicked", zap.Any("panic", r))
			out = fmt.Sprintf("%d relevant documents found but synthesis failed", len(results))
		}
	}()

	if len(results) == 0 {
		return ""
	}

	selected := selectPassages(query, results)

	parts := make([]string, 0, len(selected))
	for _, res := range selected {
		parts = append(parts, formatPassage(res.Document))
	}
	return strings.Join(parts, sourceSeparator)
}

// selectPassages splits the top results into tabular and narrative buckets
// using the same structured-content heuristic the ranker applies.
func selectPassages(query string, results []domain.RankedResult) []domain.RankedResult {
	const window = 5 // look only at the strongest few
	top := results
	if len(top) > window {
		top = top[:window]
	}

	if !ranker.IsTechnicalQuery(query) {
		if len(top) > 3 {
			return top[:3]
		}
		return top
	}

	var tabular, narrative []domain.RankedResult
	for _, res := range top {
		if ranker.HasStructuredContent(res.Document.Content) {
			tabular = append(tabular, res)
		} else {
			narrative = append(narrative, res)
		}
	}

	// Tabular-first selection only makes sense when tabular passages exist;
	// otherwise take the top results in rank order like the non-technical path.
	if len(tabular) == 0 {
		if len(top) > 3 {
			return top[:3]
		}
		return top
	}

	selected := make([]domain.RankedResult, 0, 3)
	for i := 0; i < len(tabular) && i < 2; i++ {
		selected = append(selected, tabular[i])
	}
	if len(narrative) > 0 {
		selected = append(selected, narrative[0])
	}
	return selected
}

// formatPassage renders one document: source label, context tags, truncated
// content.
func formatPassage(doc domain.DocumentRecord) string {
	var b strings.Builder

	b.WriteString("[")
	b.WriteString(sourceLabel(doc))
	b.WriteString("]")

	if age := doc.MetaString(domain.MetaAgeRange); age != "" {
		fmt.Fprintf(&b, " [ages %s]", age)
	}
	if strings.EqualFold(doc.MetaString(domain.MetaLevel), "advanced") {
		b.WriteString(" [advanced]")
	}

	b.WriteString("\n")
	b.WriteString(truncate(doc.Content, maxPassageLen))
	return b.String()
}

func sourceLabel(doc domain.DocumentRecord) string {
	for _, key := range sourceFallbackKeys {
		if v := doc.MetaString(key); v != "" {
			return v
		}
	}
	return "unknown source"
}

// truncate cuts text after limit characters (runes, not bytes).
func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
