package ai

import (
	"fmt"

	"resumelift/internal/config"
	"resumelift/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// OperationBreaker wraps a typed gobreaker instance for one AI operation.
// A nil breaker means protection is disabled and calls pass straight through.
type OperationBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// newBreakerSettings builds gobreaker settings from operation configuration.
func newBreakerSettings(name, operation string, cfg *config.OperationAIConfig, logger *errors.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.CircuitBreaker.MinRequests &&
				failureRatio >= cfg.CircuitBreaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation", operation,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.CircuitBreaker.MaxRequests,
				"failure_threshold", cfg.CircuitBreaker.FailureThreshold)
		},
	}
}

// NewGenerationBreaker creates a circuit breaker for content generation calls
func NewGenerationBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *OperationBreaker[*genai.GenerateContentResponse] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}
	settings := newBreakerSettings(fmt.Sprintf("AI-%s", operation), operation, cfg, logger)
	return &OperationBreaker[*genai.GenerateContentResponse]{
		cb: gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](settings),
	}
}

// NewModelBreaker creates a circuit breaker for model metadata calls.
// Model info is less critical, so it trips on a more lenient threshold.
func NewModelBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *OperationBreaker[*genai.Model] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}
	settings := newBreakerSettings(fmt.Sprintf("AI-Model-%s", operation), operation, cfg, logger)
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && failureRatio >= 0.8
	}
	return &OperationBreaker[*genai.Model]{
		cb: gobreaker.NewCircuitBreaker[*genai.Model](settings),
	}
}

// Execute executes the provided function with circuit breaker protection
func (b *OperationBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats returns circuit breaker statistics
func (b *OperationBreaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *OperationBreaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
