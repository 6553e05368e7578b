package ai

import (
	"testing"
	"time"

	"resumelift/internal/config"

	"google.golang.org/genai"
)

func TestIndependentCircuitBreakerConfigurations(t *testing.T) {
	// Each operation gets its own circuit breaker with its own settings.

	analyzeConfig := &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}

	optimizeConfig := &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.5-pro",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          45 * time.Second,
			MinRequests:      2,
			FailureThreshold: 0.7,
		},
	}

	coverLetterConfig := &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash-lite",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      4,
			Interval:         90 * time.Second,
			Timeout:          75 * time.Second,
			MinRequests:      5,
			FailureThreshold: 0.5,
		},
	}

	analyzeCB := NewGenerationBreaker("Analyze", analyzeConfig, nil)
	optimizeCB := NewGenerationBreaker("Optimize", optimizeConfig, nil)
	coverLetterCB := NewGenerationBreaker("CoverLetter", coverLetterConfig, nil)

	for _, tc := range []struct {
		opName   string
		cb       interface{ Stats() map[string]any }
		expected string
	}{
		{"Analyze", analyzeCB, "AI-Analyze"},
		{"Optimize", optimizeCB, "AI-Optimize"},
		{"CoverLetter", coverLetterCB, "AI-CoverLetter"},
	} {
		t.Run(tc.opName, func(t *testing.T) {
			stats := tc.cb.Stats()

			name, ok := stats["name"].(string)
			if !ok {
				t.Fatal("Circuit breaker name not found")
			}
			if name != tc.expected {
				t.Errorf("Expected circuit breaker name '%s', got '%s'", tc.expected, name)
			}

			state, ok := stats["state"].(string)
			if !ok {
				t.Fatal("Circuit breaker state not found")
			}
			if state != "closed" {
				t.Errorf("Expected initial state 'closed', got '%s'", state)
			}

			enabled, ok := stats["enabled"].(bool)
			if !ok {
				t.Fatal("Circuit breaker enabled status not found")
			}
			if !enabled {
				t.Error("Circuit breaker should be enabled")
			}
		})
	}

	t.Run("IndependentInstances", func(t *testing.T) {
		if analyzeCB == optimizeCB || analyzeCB == coverLetterCB || optimizeCB == coverLetterCB {
			t.Error("Each operation should get its own circuit breaker instance")
		}
	})

	t.Run("IndependentHealthStates", func(t *testing.T) {
		if !analyzeCB.IsHealthy() || !optimizeCB.IsHealthy() || !coverLetterCB.IsHealthy() {
			t.Error("All circuit breakers should be healthy initially")
		}
	})
}

func TestModelBreakerName(t *testing.T) {
	cfg := &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "test-model",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      10,
			Interval:         120 * time.Second,
			Timeout:          90 * time.Second,
			MinRequests:      5,
			FailureThreshold: 0.8,
		},
	}

	cb := NewModelBreaker("Test", cfg, nil)
	if cb == nil {
		t.Fatal("Circuit breaker should not be nil")
	}

	stats := cb.Stats()
	name, ok := stats["name"].(string)
	if !ok {
		t.Fatal("Circuit breaker name not found")
	}
	if name != "AI-Model-Test" {
		t.Errorf("Expected circuit breaker name 'AI-Model-Test', got '%s'", name)
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	disabledConfig := &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "test-model",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled: false,
		},
	}

	cb := NewGenerationBreaker("Disabled", disabledConfig, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker passes calls through and reports disabled stats.
	if _, err := cb.Execute(func() (*genai.GenerateContentResponse, error) { return nil, nil }); err != nil {
		t.Errorf("Execute() through nil breaker error = %v", err)
	}
	if enabled := cb.Stats()["enabled"].(bool); enabled {
		t.Error("Disabled breaker stats should report enabled=false")
	}
	if !cb.IsHealthy() {
		t.Error("Nil breaker should report healthy")
	}
}
