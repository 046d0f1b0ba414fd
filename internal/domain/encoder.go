package domain

import "context"

// Encoder is the shared text vectorization contract between layers.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// HealthChecker verifies encoding backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
