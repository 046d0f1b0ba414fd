package ranker

import (
	"regexp"
	"strings"
	"unicode"
)

// unitTokens are measurement tokens that mark a query as technical.
var unitTokens = map[string]struct{}{
	"kg": {}, "g": {}, "mg": {}, "kcal": {}, "mj": {}, "ppm": {},
	"cm": {}, "mm": {}, "ml": {}, "l": {}, "lux": {},
	"celsius": {}, "c": {}, "week": {}, "weeks": {}, "day": {}, "days": {},
	"hour": {}, "hours": {},
}

// performanceWords are production indicators that mark a query as technical.
var performanceWords = map[string]struct{}{
	"fcr": {}, "adg": {}, "gain": {}, "yield": {}, "mortality": {},
	"production": {}, "intake": {}, "conversion": {}, "density": {},
	"uniformity": {}, "hatchability": {}, "efficiency": {}, "weight": {},
}

// IsTechnicalQuery reports whether re-ranking should trigger: the query
// contains a digit, a unit token, or a performance-indicator word.
func IsTechnicalQuery(query string) bool {
	if strings.ContainsFunc(query, unicode.IsDigit) {
		return true
	}
	if strings.Contains(strings.ToLower(query), "%") {
		return true
	}
	for tok := range tokenSet(query) {
		if _, ok := unitTokens[tok]; ok {
			return true
		}
		if _, ok := performanceWords[tok]; ok {
			return true
		}
	}
	return false
}

// Structured-content heuristics. Any single match marks the content as
// tabular/structured.
var structuredPatterns = []*regexp.Regexp{
	// Markdown-table pipe density: two or more lines with two or more pipes.
	regexp.MustCompile(`(?m)^.*\|.*\|.*$\n^.*\|.*\|.*$`),
	// Comma-dense multi-line content.
	regexp.MustCompile(`(?m)^[^,\n]+,[^,\n]+,[^,\n]+,.*$\n(?:^[^,\n]+,[^,\n]+,[^,\n]+,.*$\n?){2,}`),
	// Fixed-width column spacing on consecutive lines.
	regexp.MustCompile(`(?m)^\S[^\n]*\S {3,}\S[^\n]*$\n^\S[^\n]*\S {3,}\S[^\n]*$`),
	// Header line followed by a numbers-only line.
	regexp.MustCompile(`(?mi)^[a-z][a-z ()/%-]+$\n^[\d .,%:-]+$`),
	// Numeric range with a time unit, e.g. "0-10 days".
	regexp.MustCompile(`(?i)\d+\s*[-–]\s*\d+\s*(?:day|week|wk|hour|hr)s?\b`),
	// Labeled numeric value, e.g. "protein: 21".
	regexp.MustCompile(`(?i)\b[a-z][a-z _/-]{1,30}:\s*\d`),
}

// HasStructuredContent applies the structured-content heuristic shared by
// ranking and answer synthesis.
func HasStructuredContent(content string) bool {
	for _, re := range structuredPatterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// domainNumericPatterns recognize poultry-specific numeric notations.
// Only the first match earns the bonus.
var domainNumericPatterns = []*regexp.Regexp{
	// Energy density, e.g. "3100 kcal/kg", "12.9 MJ/kg".
	regexp.MustCompile(`(?i)\d[\d.,]*\s*(?:kcal|mj)\s*/\s*kg`),
	// Nutrient percentage, e.g. "21% crude protein", "1.2 % lysine".
	regexp.MustCompile(`(?i)\d[\d.]*\s*%\s*(?:cp|crude protein|protein|lysine|methionine|calcium)`),
	// Temperature, e.g. "32°C", "37.8 C".
	regexp.MustCompile(`(?i)\d[\d.]*\s*°?\s*c\b`),
	// Stocking density, e.g. "10 birds/m2", "33 kg/m2".
	regexp.MustCompile(`(?i)\d[\d.]*\s*(?:birds?|kg)\s*/\s*m2`),
	// Weight at age, e.g. "2200 g at 35 days".
	regexp.MustCompile(`(?i)\d[\d.,]*\s*(?:g|kg)\s*(?:at|@)\s*\d+\s*(?:day|week)s?`),
}
