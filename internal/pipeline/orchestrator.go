package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resumelift/internal/ai"
	liftErrors "resumelift/internal/errors"
	"resumelift/internal/observability"
	"resumelift/internal/session"
	"resumelift/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "resumelift.pipeline"

// Providers bundles the per-operation generation providers. Each operation
// carries its own provider so that model, temperature and circuit breaker
// settings stay independent.
type Providers struct {
	Analyze     ai.Generator
	Optimize    ai.Generator
	CoverLetter ai.Generator
}

// Orchestrator runs the resume workflows: ATS analysis plus optimization,
// cover letter generation, session-backed previews and downloads. All
// session persistence goes through the configured store; a workflow that
// fails mid-flight persists nothing.
type Orchestrator struct {
	providers Providers
	store     session.Store
	metrics   *observability.Metrics
	logger    *liftErrors.Logger
	newID     func() string
}

// New creates an orchestrator. metrics may be nil, in which case AI calls
// run untracked.
func New(providers Providers, store session.Store, metrics *observability.Metrics, logger *liftErrors.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// RunATS analyzes the resume against the job description, optimizes it based
// on the analysis, and persists the session bundle. The session id is only
// allocated once both generation stages have succeeded.
func (o *Orchestrator) RunATS(ctx context.Context, resumeText, jobDescription string) (*types.ATSWorkflowResult, error) {
	if err := validateInputs(resumeText, jobDescription); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run_ats")
	defer span.End()

	analysis, optimization, err := o.analyzeAndOptimize(ctx, resumeText, jobDescription)
	if err != nil {
		return nil, spanError(span, err)
	}

	id := o.newID()
	record := types.ATSRecord{
		ResumeText:          resumeText,
		JobDescription:      jobDescription,
		OriginalATSAnalysis: analysis,
		OptimizationResult:  optimization,
	}
	if err := o.store.Create(ctx, session.NamespaceATS, id, record); err != nil {
		return nil, spanError(span, err)
	}

	span.SetAttributes(
		attribute.String("session.id", id),
		attribute.Float64("ats.total_score", analysis.TotalATSScore),
	)
	o.logger.Info("ATS workflow completed", "session_id", id, "total_score", analysis.TotalATSScore)

	return &types.ATSWorkflowResult{
		SessionID:          id,
		ATSAnalysis:        analysis,
		OptimizationResult: optimization,
	}, nil
}

// RegenerateATS re-runs both generation stages against the stored inputs and
// replaces the session bundle. Any lazily computed optimized-resume score is
// discarded because it scored the previous optimization.
func (o *Orchestrator) RegenerateATS(ctx context.Context, id string) (*types.ATSWorkflowResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.regenerate_ats",
		oteltrace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var record types.ATSRecord
	if err := o.store.Read(ctx, session.NamespaceATS, id, &record); err != nil {
		return nil, spanError(span, err)
	}

	analysis, optimization, err := o.analyzeAndOptimize(ctx, record.ResumeText, record.JobDescription)
	if err != nil {
		return nil, spanError(span, err)
	}

	updated := types.ATSRecord{
		ResumeText:          record.ResumeText,
		JobDescription:      record.JobDescription,
		OriginalATSAnalysis: analysis,
		OptimizationResult:  optimization,
	}
	if err := o.store.Replace(ctx, session.NamespaceATS, id, updated); err != nil {
		return nil, spanError(span, err)
	}

	o.logger.Info("ATS session regenerated", "session_id", id)

	return &types.ATSWorkflowResult{
		SessionID:          id,
		ATSAnalysis:        analysis,
		OptimizationResult: optimization,
	}, nil
}

// PreviewResume returns the optimized resume text together with the original
// and optimized ATS scores. The optimized score is computed on first access
// and cached on the session record; subsequent previews make no provider
// calls.
func (o *Orchestrator) PreviewResume(ctx context.Context, id string) (*types.ResumePreview, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.preview_resume",
		oteltrace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var record types.ATSRecord
	if err := o.store.Read(ctx, session.NamespaceATS, id, &record); err != nil {
		return nil, spanError(span, err)
	}

	cacheHit := record.OptimizedATSAnalysis != nil
	span.SetAttributes(attribute.Bool("preview.cache_hit", cacheHit))

	if !cacheHit {
		scoredText := record.OptimizationResult.ImprovedResumeText

		var analysis types.ATSAnalysis
		err := o.trackAI(ctx, "analyze_optimized", func(ctx context.Context) (*ai.TokenUsage, error) {
			var usage *ai.TokenUsage
			var err error
			analysis, usage, err = o.providers.Analyze.AnalyzeResume(ctx,
				scoredText, record.JobDescription)
			return usage, err
		})
		if err != nil {
			return nil, spanError(span, err)
		}

		// The provider call runs outside the session lock, so a concurrent
		// regenerate may have replaced the record since the read above. The
		// score only attaches when it still matches the stored optimization;
		// a stale score is served once for this request and never cached.
		cached := false
		err = o.store.Update(ctx, session.NamespaceATS, id, func(raw []byte) ([]byte, error) {
			var current types.ATSRecord
			if err := json.Unmarshal(raw, &current); err != nil {
				return nil, liftErrors.NewInternalError("SESSION_UNMARSHAL_FAILED",
					fmt.Sprintf("Corrupt session record %s/%s", session.NamespaceATS, id), err)
			}
			if current.OptimizationResult.ImprovedResumeText != scoredText {
				return raw, nil
			}
			current.OptimizedATSAnalysis = &analysis
			cached = true
			return json.Marshal(current)
		})
		if err != nil {
			return nil, spanError(span, err)
		}

		record.OptimizedATSAnalysis = &analysis
		span.SetAttributes(attribute.Bool("preview.score_cached", cached))
		if cached {
			o.logger.Debug("Optimized resume scored", "session_id", id,
				"optimized_score", analysis.TotalATSScore)
		} else {
			o.logger.Warn("Session regenerated while scoring preview, score not cached",
				"session_id", id)
		}
	}

	return &types.ResumePreview{
		Content: record.OptimizationResult.ImprovedResumeText,
		ScoreComparison: types.ScoreComparison{
			OriginalScore:  record.OriginalATSAnalysis.TotalATSScore,
			OptimizedScore: record.OptimizedATSAnalysis.TotalATSScore,
		},
	}, nil
}

// RunCoverLetter generates a cover letter and persists the session bundle.
func (o *Orchestrator) RunCoverLetter(ctx context.Context, resumeText, jobDescription string) (*types.CoverLetterWorkflowResult, error) {
	if err := validateInputs(resumeText, jobDescription); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run_cover_letter")
	defer span.End()

	letter, err := o.generateCoverLetter(ctx, resumeText, jobDescription)
	if err != nil {
		return nil, spanError(span, err)
	}

	id := o.newID()
	record := types.CoverLetterRecord{
		ResumeText:     resumeText,
		JobDescription: jobDescription,
		CoverLetter:    letter,
	}
	if err := o.store.Create(ctx, session.NamespaceCoverLetter, id, record); err != nil {
		return nil, spanError(span, err)
	}

	span.SetAttributes(attribute.String("session.id", id))
	o.logger.Info("Cover letter workflow completed", "session_id", id)

	return &types.CoverLetterWorkflowResult{
		SessionID:   id,
		CoverLetter: letter.CoverLetterText,
	}, nil
}

// RegenerateCoverLetter re-generates the letter from the stored inputs and
// replaces the session bundle.
func (o *Orchestrator) RegenerateCoverLetter(ctx context.Context, id string) (*types.CoverLetterWorkflowResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.regenerate_cover_letter",
		oteltrace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var record types.CoverLetterRecord
	if err := o.store.Read(ctx, session.NamespaceCoverLetter, id, &record); err != nil {
		return nil, spanError(span, err)
	}

	letter, err := o.generateCoverLetter(ctx, record.ResumeText, record.JobDescription)
	if err != nil {
		return nil, spanError(span, err)
	}

	updated := types.CoverLetterRecord{
		ResumeText:     record.ResumeText,
		JobDescription: record.JobDescription,
		CoverLetter:    letter,
	}
	if err := o.store.Replace(ctx, session.NamespaceCoverLetter, id, updated); err != nil {
		return nil, spanError(span, err)
	}

	o.logger.Info("Cover letter regenerated", "session_id", id)

	return &types.CoverLetterWorkflowResult{
		SessionID:   id,
		CoverLetter: letter.CoverLetterText,
	}, nil
}

// PreviewCoverLetter returns the stored cover letter text.
func (o *Orchestrator) PreviewCoverLetter(ctx context.Context, id string) (*types.CoverLetterPreview, error) {
	var record types.CoverLetterRecord
	if err := o.store.Read(ctx, session.NamespaceCoverLetter, id, &record); err != nil {
		return nil, err
	}
	return &types.CoverLetterPreview{Content: record.CoverLetter.CoverLetterText}, nil
}

// DownloadContent returns the final text artifact for a session, ready for
// document rendering.
func (o *Orchestrator) DownloadContent(ctx context.Context, kind types.DocumentKind, id string) (string, error) {
	switch kind {
	case types.DocumentResume:
		var record types.ATSRecord
		if err := o.store.Read(ctx, session.NamespaceATS, id, &record); err != nil {
			return "", err
		}
		return record.OptimizationResult.ImprovedResumeText, nil
	case types.DocumentCoverLetter:
		var record types.CoverLetterRecord
		if err := o.store.Read(ctx, session.NamespaceCoverLetter, id, &record); err != nil {
			return "", err
		}
		return record.CoverLetter.CoverLetterText, nil
	default:
		return "", liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("Unknown document kind: %s", kind), nil).
			WithContext("kind", string(kind))
	}
}

func (o *Orchestrator) analyzeAndOptimize(ctx context.Context, resumeText, jobDescription string) (types.ATSAnalysis, types.OptimizationResult, error) {
	var analysis types.ATSAnalysis
	err := o.trackAI(ctx, "analyze", func(ctx context.Context) (*ai.TokenUsage, error) {
		var usage *ai.TokenUsage
		var err error
		analysis, usage, err = o.providers.Analyze.AnalyzeResume(ctx, resumeText, jobDescription)
		return usage, err
	})
	if err != nil {
		return types.ATSAnalysis{}, types.OptimizationResult{}, err
	}

	var optimization types.OptimizationResult
	err = o.trackAI(ctx, "optimize", func(ctx context.Context) (*ai.TokenUsage, error) {
		var usage *ai.TokenUsage
		var err error
		optimization, usage, err = o.providers.Optimize.OptimizeResume(ctx, resumeText, jobDescription, analysis)
		return usage, err
	})
	if err != nil {
		return types.ATSAnalysis{}, types.OptimizationResult{}, err
	}

	return analysis, optimization, nil
}

func (o *Orchestrator) generateCoverLetter(ctx context.Context, resumeText, jobDescription string) (types.CoverLetterResult, error) {
	var letter types.CoverLetterResult
	err := o.trackAI(ctx, "cover_letter", func(ctx context.Context) (*ai.TokenUsage, error) {
		var usage *ai.TokenUsage
		var err error
		letter, usage, err = o.providers.CoverLetter.GenerateCoverLetter(ctx, resumeText, jobDescription)
		return usage, err
	})
	if err != nil {
		return types.CoverLetterResult{}, err
	}
	return letter, nil
}

// trackAI wraps a provider call with AI operation metrics when metrics are
// configured.
func (o *Orchestrator) trackAI(ctx context.Context, operation string, fn func(context.Context) (*ai.TokenUsage, error)) error {
	if o.metrics == nil {
		_, err := fn(ctx)
		return err
	}
	return o.metrics.TrackAIOperationWithTokens(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
		usage, err := fn(ctx)
		return &observability.AIOperationResult{
			Error:      err,
			TokenUsage: convertTokenUsage(usage),
		}
	})
}

func convertTokenUsage(usage *ai.TokenUsage) *observability.TokenUsage {
	if usage == nil {
		return nil
	}
	return &observability.TokenUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
	}
}

func validateInputs(resumeText, jobDescription string) error {
	if strings.TrimSpace(resumeText) == "" {
		return liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"Resume text is required", nil)
	}
	if strings.TrimSpace(jobDescription) == "" {
		return liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"Job description is required", nil)
	}
	return nil
}

func spanError(span oteltrace.Span, err error) error {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("error", true))
	return err
}
