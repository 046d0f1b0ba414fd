// Package encoder hosts the three query-encoding backends and the provider
// that dispatches between them with fallback semantics.
package encoder

import (
	"context"

	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/logger"
	"github.com/farmsense/poultryqa/internal/metrics"
)

// Provider dispatches a query to the encoding backend matching the target
// partition's method. For MethodAuto or an unrecognized method it cascades
// neural -> remote (when a credential is configured) -> lexical and returns
// the first vector produced. Backend failures, panics included, are isolated:
// they log and count as "no vector from this path", never propagate.
type Provider struct {
	neural        domain.Encoder
	remote        domain.Encoder
	hasCredential bool
	lexical       *Lexical
	logger        *zap.Logger
}

// NewProvider wires the three backends together.
func NewProvider(
	neural domain.Encoder,
	remote domain.Encoder,
	hasCredential bool,
	lexical *Lexical,
	log *zap.Logger,
) *Provider {
	return &Provider{
		neural:        neural,
		remote:        remote,
		hasCredential: hasCredential,
		lexical:       lexical,
		logger:        log,
	}
}

// Encode turns the query into a vector for a partition built with the given
// method. dims is the target partition's dimensionality, needed by the
// lexical backend. Returns nil when no backend produced a vector.
func (p *Provider) Encode(ctx context.Context, query string, method domain.Method, dims int) []float32 {
	switch method {
	case domain.MethodNeural:
		return p.try(ctx, "neural", p.neural, query)
	case domain.MethodRemote:
		return p.try(ctx, "remote", p.remote, query)
	case domain.MethodLexical:
		return p.encodeLexical(query, dims)
	}

	// Auto or unrecognized: cascade in fixed order.
	if vec := p.try(ctx, "neural", p.neural, query); vec != nil {
		return vec
	}
	if p.hasCredential {
		if vec := p.try(ctx, "remote", p.remote, query); vec != nil {
			return vec
		}
	}
	return p.encodeLexical(query, dims)
}

func (p *Provider) encodeLexical(query string, dims int) []float32 {
	vec := p.lexical.EncodeDim(query, dims)
	metrics.EncodeRequestsTotal.WithLabelValues("lexical", "success").Inc()
	return vec
}

// try runs one backend with full failure isolation.
func (p *Provider) try(ctx context.Context, name string, enc domain.Encoder, query string) (vec []float32) {
	if enc == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Encoding backend panicked",
				zap.String("backend", name), zap.Any("panic", r))
			metrics.EncodeRequestsTotal.WithLabelValues(name, "panic").Inc()
			vec = nil
		}
	}()

	out, err := enc.Encode(ctx, query)
	if err != nil {
		log.Warn("Encoding backend failed",
			zap.String("backend", name), zap.Error(err))
		metrics.EncodeRequestsTotal.WithLabelValues(name, "error").Inc()
		return nil
	}
	if len(out) == 0 {
		metrics.EncodeRequestsTotal.WithLabelValues(name, "empty").Inc()
		return nil
	}
	metrics.EncodeRequestsTotal.WithLabelValues(name, "success").Inc()
	return out
}
