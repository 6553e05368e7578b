package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumelift/internal/config"
	liftErrors "resumelift/internal/errors"
	"resumelift/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements Generator for Google Gemini
type GeminiProvider struct {
	client            *genai.Client
	config            *config.OperationAIConfig
	operation         string
	generationBreaker *OperationBreaker[*genai.GenerateContentResponse]
	modelBreaker      *OperationBreaker[*genai.Model]
	logger            *liftErrors.Logger
}

// Ensure GeminiProvider implements Generator
var _ Generator = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operation string, logger *liftErrors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, liftErrors.NewAIError(liftErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:            client,
		config:            cfg,
		operation:         operation,
		generationBreaker: NewGenerationBreaker(operation, cfg, logger),
		modelBreaker:      NewModelBreaker(operation, cfg, logger),
		logger:            logger,
	}, nil
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"provider", g.config.Provider,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= *g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", *g.config.MaxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			jitter := time.Duration(jitterBig.Int64())
			// Cap maximum backoff at 30 seconds
			backoff := min(baseDelay+jitter, 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", *g.config.MaxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, *g.config.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Network errors (timeouts, connection issues) are retryable
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Google API errors with transient HTTP status codes
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// isTimeoutError reports whether err is a deadline or network timeout.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// executeAIOperation runs one generation call with tracing, circuit breaker,
// retry, schema validation, and typed parsing.
func executeAIOperation[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	userPrompt string,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	tracer := otel.Tracer("resumelift.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	callCtx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	result, err := g.generationBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(callCtx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(callCtx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		if isTimeoutError(err) {
			return output, nil, liftErrors.NewAIError(liftErrors.ErrCodeAITimeout,
				"AI generation timed out for "+operationName, err)
		}
		return output, nil, liftErrors.NewAIError(liftErrors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+operationName, err)
	}

	raw := result.Text()
	if err := validateAgainstSchema([]byte(raw), genaiConfig.ResponseSchema); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, liftErrors.NewAIError(liftErrors.ErrCodeSchemaViolation,
			"AI response violates schema for "+operationName, err).
			WithContext("raw_response", raw)
	}

	if err := json.Unmarshal([]byte(raw), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, liftErrors.NewAIError(liftErrors.ErrCodeSchemaViolation,
			"AI response violates schema for "+operationName, err).
			WithContext("raw_response", raw)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// validateAgainstSchema verifies the raw response satisfies the required
// fields of the response schema, recursing into nested objects. Value
// type mismatches surface later during typed unmarshalling.
func validateAgainstSchema(raw []byte, schema *genai.Schema) error {
	if schema == nil || schema.Type != genai.TypeObject || len(schema.Required) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}

	for _, required := range schema.Required {
		value, ok := fields[required]
		if !ok {
			return fmt.Errorf("required field %q is missing", required)
		}
		if string(value) == "null" {
			return fmt.Errorf("required field %q is null", required)
		}
		if nested, ok := schema.Properties[required]; ok && nested.Type == genai.TypeObject && len(nested.Properties) > 0 {
			if err := validateAgainstSchema(value, nested); err != nil {
				return fmt.Errorf("field %q: %w", required, err)
			}
		}
	}

	return nil
}

// AnalyzeResume implements Generator for ATS compatibility analysis
func (g *GeminiProvider) AnalyzeResume(ctx context.Context, resumeText, jobDescription string) (types.ATSAnalysis, *TokenUsage, error) {
	userPrompt := renderTemplate(config.OperationAnalyze, resolveTemplate(config.OperationAnalyze), map[string]string{
		placeholderResumeText:         resumeText,
		placeholderJobDescription:     jobDescription,
		placeholderFormatInstructions: formatInstructions,
	})

	output, tokenUsage, err := executeAIOperation[types.ATSAnalysis](
		g,
		ctx,
		"analyze_resume",
		userPrompt,
		resolveSystemPrompt(config.OperationAnalyze),
		g.buildAnalyzeSchema(),
		attribute.Int("input.resume_length", len(resumeText)),
		attribute.Int("input.job_length", len(jobDescription)),
	)
	if err != nil {
		return types.ATSAnalysis{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Float64("ats.total_score", output.TotalATSScore),
			attribute.Int("ats.missing_keywords", len(output.MissingKeywords)),
		)
	}

	return output, tokenUsage, nil
}

// OptimizeResume implements Generator for resume optimization
func (g *GeminiProvider) OptimizeResume(ctx context.Context, resumeText, jobDescription string, analysis types.ATSAnalysis) (types.OptimizationResult, *TokenUsage, error) {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return types.OptimizationResult{}, nil, liftErrors.NewInternalError("ANALYSIS_MARSHAL_FAILED",
			"Cannot marshal ATS analysis for prompt", err)
	}

	userPrompt := renderTemplate(config.OperationOptimize, resolveTemplate(config.OperationOptimize), map[string]string{
		placeholderResumeText:         resumeText,
		placeholderJobDescription:     jobDescription,
		placeholderATSAnalysis:        string(analysisJSON),
		placeholderFormatInstructions: formatInstructions,
	})

	output, tokenUsage, err := executeAIOperation[types.OptimizationResult](
		g,
		ctx,
		"optimize_resume",
		userPrompt,
		resolveSystemPrompt(config.OperationOptimize),
		g.buildOptimizeSchema(),
		attribute.Int("input.resume_length", len(resumeText)),
		attribute.Int("input.job_length", len(jobDescription)),
	)
	if err != nil {
		return types.OptimizationResult{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int("output.improved_resume_length", len(output.ImprovedResumeText)),
			attribute.Int("output.suggested_skills", len(output.SuggestedSkills)),
		)
	}

	return output, tokenUsage, nil
}

// GenerateCoverLetter implements Generator for cover letter generation
func (g *GeminiProvider) GenerateCoverLetter(ctx context.Context, resumeText, jobDescription string) (types.CoverLetterResult, *TokenUsage, error) {
	userPrompt := renderTemplate(config.OperationCoverLetter, resolveTemplate(config.OperationCoverLetter), map[string]string{
		placeholderResumeText:         resumeText,
		placeholderJobDescription:     jobDescription,
		placeholderCurrentDate:        time.Now().Format("January 2, 2006"),
		placeholderFormatInstructions: formatInstructions,
	})

	output, tokenUsage, err := executeAIOperation[types.CoverLetterResult](
		g,
		ctx,
		"generate_cover_letter",
		userPrompt,
		resolveSystemPrompt(config.OperationCoverLetter),
		g.buildCoverLetterSchema(),
		attribute.Int("input.resume_length", len(resumeText)),
		attribute.Int("input.job_length", len(jobDescription)),
	)
	if err != nil {
		return types.CoverLetterResult{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int("output.cover_letter_length", len(output.CoverLetterText)),
		)
	}

	return output, tokenUsage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"ai_operations":    g.generationBreaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
	}
	stats["overall_healthy"] = g.generationBreaker.IsHealthy() && g.modelBreaker.IsHealthy()
	return stats
}

// Close implements Generator
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	return nil
}

// extractTokenUsage extracts token usage information from a Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
