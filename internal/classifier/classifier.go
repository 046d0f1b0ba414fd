// Package classifier scores queries against per-domain keyword tables to
// pick the knowledge partition most likely to hold the answer.
package classifier

import (
	"sort"
	"strings"

	"github.com/farmsense/poultryqa/internal/config"
)

// Keyword weight tiers. High-tier keywords are strong domain indicators
// (breed names, disease names), low-tier ones only nudge the score.
const (
	weightHigh   = 3.0
	weightMedium = 2.0
	weightLow    = 1.0
)

type weightedKeyword struct {
	keyword string
	weight  float64
}

// Classifier assigns a domain label and a confidence in [0,1] to a query.
type Classifier struct {
	labels   []string
	keywords map[string][]weightedKeyword
	cfg      config.ClassifierConfig
}

// New creates a classifier with the built-in poultry keyword tables.
func New(cfg config.ClassifierConfig) *Classifier {
	return newWithKeywords(cfg, defaultKeywords())
}

func newWithKeywords(cfg config.ClassifierConfig, keywords map[string][]weightedKeyword) *Classifier {
	labels := make([]string, 0, len(keywords))
	for label := range keywords {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return &Classifier{labels: labels, keywords: keywords, cfg: cfg}
}

// Labels returns the recognized domain labels in stable order.
func (c *Classifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Classify scores the query against every label's keyword table and returns
// the best label with a normalized confidence. An empty label means no
// keyword matched at all.
//
// When the top two label scores are closer than the configured ambiguity gap
// the confidence is dampened but the label is kept: ambiguous queries still
// get a best guess, downstream ordering just treats it conservatively.
func (c *Classifier) Classify(query string) (string, float64) {
	q := strings.ToLower(query)

	var best, second float64
	var bestLabel string
	for _, label := range c.labels {
		var score float64
		for _, wk := range c.keywords[label] {
			if strings.Contains(q, wk.keyword) {
				score += wk.weight
			}
		}
		if score > best {
			second = best
			best = score
			bestLabel = label
		} else if score > second {
			second = score
		}
	}

	if best == 0 {
		return "", 0
	}

	confidence := best / c.cfg.ScoreDivisor
	if confidence > 1 {
		confidence = 1
	}
	if best-second < c.cfg.AmbiguityGap {
		confidence *= c.cfg.AmbiguityDamp
	}
	return bestLabel, confidence
}

// defaultKeywords is the built-in poultry domain vocabulary, three weight
// tiers per label. Matching is case-insensitive substring over the query.
func defaultKeywords() map[string][]weightedKeyword {
	return map[string][]weightedKeyword{
		"broilers": {
			{"broiler", weightHigh},
			{"ross 308", weightHigh},
			{"ross", weightHigh},
			{"cobb 500", weightHigh},
			{"cobb", weightHigh},
			{"grow-out", weightHigh},
			{"fcr", weightMedium},
			{"feed conversion", weightMedium},
			{"body weight", weightMedium},
			{"adg", weightMedium},
			{"stocking density", weightMedium},
			{"carcass", weightMedium},
			{"breast yield", weightMedium},
			{"days", weightLow},
			{"slaughter", weightLow},
			{"finisher", weightLow},
		},
		"layers": {
			{"laying hen", weightHigh},
			{"layer", weightHigh},
			{"lohmann", weightHigh},
			{"hy-line", weightHigh},
			{"isa brown", weightHigh},
			{"egg production", weightHigh},
			{"hen-day", weightMedium},
			{"egg weight", weightMedium},
			{"shell quality", weightMedium},
			{"point of lay", weightMedium},
			{"molt", weightMedium},
			{"eggs", weightLow},
			{"cage", weightLow},
			{"nest", weightLow},
		},
		"health": {
			{"coccidiosis", weightHigh},
			{"newcastle", weightHigh},
			{"gumboro", weightHigh},
			{"marek", weightHigh},
			{"avian influenza", weightHigh},
			{"vaccination", weightHigh},
			{"vaccine", weightMedium},
			{"mortality", weightMedium},
			{"disease", weightMedium},
			{"biosecurity", weightMedium},
			{"antibiotic", weightMedium},
			{"symptoms", weightLow},
			{"treatment", weightLow},
			{"lesion", weightLow},
		},
		"incubation": {
			{"hatchery", weightHigh},
			{"incubation", weightHigh},
			{"hatchability", weightHigh},
			{"candling", weightHigh},
			{"setter", weightHigh},
			{"hatcher", weightHigh},
			{"egg storage", weightMedium},
			{"embryo", weightMedium},
			{"chick quality", weightMedium},
			{"day-old", weightMedium},
			{"humidity", weightLow},
			{"turning", weightLow},
		},
		"nutrition": {
			{"lysine", weightHigh},
			{"methionine", weightHigh},
			{"premix", weightHigh},
			{"soybean meal", weightHigh},
			{"amino acid", weightHigh},
			{"crude protein", weightMedium},
			{"metabolizable energy", weightMedium},
			{"kcal/kg", weightMedium},
			{"ration", weightMedium},
			{"diet formulation", weightMedium},
			{"feed", weightLow},
			{"protein", weightLow},
			{"calcium", weightLow},
		},
	}
}
