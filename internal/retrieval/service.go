// Package retrieval drives the query-to-answer flow: partition candidate
// ordering, per-candidate search with best-effort fallback, and synthesis.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/config"
	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/logger"
	"github.com/farmsense/poultryqa/internal/metrics"
	"github.com/farmsense/poultryqa/internal/ranker"
)

// defaultTopK applies when the caller passes a non-positive k.
const defaultTopK = 5

// Service orchestrates retrieval across partitions.
type Service struct {
	classifier Classifier
	parts      PartitionStore
	encoder    Encoder
	searcher   Searcher
	ranker     Ranker
	synth      Synthesizer
	cfg        config.RetrievalConfig
}

// New creates the retrieval orchestrator.
func New(
	classifier Classifier,
	parts PartitionStore,
	encoder Encoder,
	searcher Searcher,
	rank Ranker,
	synth Synthesizer,
	cfg config.RetrievalConfig,
) *Service {
	return &Service{
		classifier: classifier,
		parts:      parts,
		encoder:    encoder,
		searcher:   searcher,
		ranker:     rank,
		synth:      synth,
		cfg:        cfg,
	}
}

// candidateResult accumulates the best result set seen across candidates,
// used as fallback when no candidate passes the acceptance rule.
type candidateResult struct {
	partition string
	method    domain.Method
	ranked    []domain.RankedResult
}

// Retrieve answers a query with the top-k documents of the best candidate
// partition. It returns an ErrNoAnswer-wrapped error, never a panic, when
// every candidate fails; partial failures fall back to the next candidate.
func (s *Service) Retrieve(ctx context.Context, query string, k int) (*domain.RetrievalResult, error) {
	if k <= 0 {
		k = defaultTopK
	}
	queryID := uuid.NewString()
	log := logger.FromContext(ctx).With(zap.String("query_id", queryID))
	ctx = logger.ContextWithLogger(ctx, log)

	label, confidence := s.classifier.Classify(query)

	// With no label the generic partition plays the classified role, both
	// for ordering and for the acceptance rule below.
	classified := label
	if classified == "" {
		classified = s.parts.Generic()
	}

	qc := domain.QueryContext{
		RawQuery:   query,
		DomainHint: label,
		Confidence: confidence,
	}

	candidates := s.candidateOrder(classified, confidence)
	log.Debug("Query classified",
		zap.String("label", label),
		zap.Float64("confidence", confidence),
		zap.Strings("candidates", candidates),
	)

	width := s.searchWidth(k, confidence)

	var best *candidateResult

	for _, cand := range candidates {
		// The caller's deadline bounds the candidate walk; on expiry we
		// settle for the best result seen so far.
		if ctx.Err() != nil {
			log.Warn("Request deadline hit, stopping candidate walk", zap.Error(ctx.Err()))
			break
		}

		qc.PartitionsTried = append(qc.PartitionsTried, cand)

		if !s.parts.EnsureLoaded(ctx, cand) {
			continue
		}
		p, ok := s.parts.Get(cand)
		if !ok {
			continue
		}

		vec := s.encoder.Encode(ctx, query, p.Method, p.Dimensions)
		if vec == nil {
			log.Warn("No encoding backend produced a vector",
				zap.String("partition", cand), zap.String("method", p.Method.String()))
			continue
		}

		dists, idxs, ok := s.searcher.Search(ctx, cand, vec, width)
		if !ok {
			continue
		}

		ranked := s.rankHits(query, p.Documents, dists, idxs)
		if len(ranked) > k {
			ranked = ranked[:k]
		}
		if len(ranked) == 0 {
			continue
		}

		// Good-enough-stop-early: a healthy result count, or the partition
		// classification pointed at, ends the walk.
		if len(ranked) >= k/2 || cand == classified {
			metrics.RetrievalsTotal.WithLabelValues("accepted").Inc()
			metrics.PartitionsTried.Observe(float64(len(qc.PartitionsTried)))
			return s.buildResult(queryID, qc, &candidateResult{
				partition: cand, method: p.Method, ranked: ranked,
			}), nil
		}

		if best == nil || len(ranked) > len(best.ranked) {
			best = &candidateResult{partition: cand, method: p.Method, ranked: ranked}
		}
	}

	metrics.PartitionsTried.Observe(float64(len(qc.PartitionsTried)))

	if best != nil {
		metrics.RetrievalsTotal.WithLabelValues("fallback").Inc()
		return s.buildResult(queryID, qc, best), nil
	}

	metrics.RetrievalsTotal.WithLabelValues("none").Inc()
	log.Info("No candidate partition yielded results",
		zap.Strings("partitions_tried", qc.PartitionsTried))
	return nil, fmt.Errorf("partitions tried [%s]: %w",
		strings.Join(qc.PartitionsTried, ", "), domain.ErrNoAnswer)
}

// candidateOrder builds the partition visit order from the confidence tier.
// classified is the partition the classifier pointed at, already defaulted
// to the generic partition when no label matched.
func (s *Service) candidateOrder(classified string, confidence float64) []string {
	all := s.parts.IDs()
	generic := s.parts.Generic()

	var order []string
	switch {
	case confidence > s.cfg.HighConfidence:
		order = append(order, classified)
	case confidence > s.cfg.LowConfidence:
		order = append(order, classified, generic)
	default:
		order = append(order, generic)
	}

	seen := make(map[string]struct{}, len(all))
	deduped := make([]string, 0, len(all)+len(order))
	for _, id := range append(order, all...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped
}

// searchWidth over-fetches candidates for the ranker to reorder.
func (s *Service) searchWidth(k int, confidence float64) int {
	mult := s.cfg.NarrowMultiplier
	if confidence > s.cfg.WideConfidence {
		mult = s.cfg.WideMultiplier
	}
	width := k * mult
	if width < s.cfg.MinSearchWidth {
		width = s.cfg.MinSearchWidth
	}
	return width
}

// rankHits resolves index rows to documents and re-ranks them.
func (s *Service) rankHits(query string, docs []domain.DocumentRecord, dists []float32, idxs []int) []domain.RankedResult {
	cands := make([]ranker.Candidate, 0, len(idxs))
	for i, idx := range idxs {
		if idx < 0 || idx >= len(docs) {
			continue
		}
		cands = append(cands, ranker.Candidate{
			Document: docs[idx],
			RawScore: float64(dists[i]),
		})
	}
	return s.ranker.Rank(query, cands)
}

func (s *Service) buildResult(queryID string, qc domain.QueryContext, res *candidateResult) *domain.RetrievalResult {
	sources := make([]domain.DocumentRecord, len(res.ranked))
	for i, r := range res.ranked {
		sources[i] = r.Document
	}
	return &domain.RetrievalResult{
		Answer:          s.synth.Synthesize(qc.RawQuery, res.ranked),
		SourceDocuments: sources,
		Meta: domain.Diagnostics{
			QueryID:         queryID,
			Partition:       res.partition,
			DetectedLabel:   qc.DomainHint,
			Confidence:      qc.Confidence,
			PartitionsTried: qc.PartitionsTried,
			EmbeddingMethod: res.method.String(),
			ResultCount:     len(res.ranked),
		},
	}
}
