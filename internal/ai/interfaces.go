package ai

import (
	"context"

	"resumelift/internal/types"
)

// Generator is the single-call generation surface for one AI provider.
// All methods return token usage information - callers can ignore it if not needed.
type Generator interface {
	AnalyzeResume(ctx context.Context, resumeText, jobDescription string) (types.ATSAnalysis, *TokenUsage, error)
	OptimizeResume(ctx context.Context, resumeText, jobDescription string, analysis types.ATSAnalysis) (types.OptimizationResult, *TokenUsage, error)
	GenerateCoverLetter(ctx context.Context, resumeText, jobDescription string) (types.CoverLetterResult, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}
