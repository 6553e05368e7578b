package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"resumelift/internal/ai"
	"resumelift/internal/config"
	liftErrors "resumelift/internal/errors"
	"resumelift/internal/extract"
	"resumelift/internal/observability"
	"resumelift/internal/pipeline"
	"resumelift/internal/render"
	"resumelift/internal/types"
	"resumelift/internal/utils"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
)

// newOrchestrator builds a workflow orchestrator with per-request AI services
// so that each request picks up the current operation configuration.
func (s *Server) newOrchestrator(om *observability.ObservabilityManager) (*pipeline.Orchestrator, error) {
	analyzeCfg := s.AppConfig.GetAnalyzeConfig()
	analyzeService, err := ai.NewService(&analyzeCfg, config.OperationAnalyze, s.Logger)
	if err != nil {
		return nil, err
	}

	optimizeCfg := s.AppConfig.GetOptimizeConfig()
	optimizeService, err := ai.NewService(&optimizeCfg, config.OperationOptimize, s.Logger)
	if err != nil {
		return nil, err
	}

	coverLetterCfg := s.AppConfig.GetCoverLetterConfig()
	coverLetterService, err := ai.NewService(&coverLetterCfg, config.OperationCoverLetter, s.Logger)
	if err != nil {
		return nil, err
	}

	providers := pipeline.Providers{
		Analyze:     analyzeService.Provider,
		Optimize:    optimizeService.Provider,
		CoverLetter: coverLetterService.Provider,
	}
	return pipeline.New(providers, s.Store, om.GetMetrics(), s.Logger), nil
}

// parseUploadRequest extracts the resume text and job description from a
// multipart upload.
func (s *Server) parseUploadRequest(r *http.Request) (string, string, error) {
	if err := r.ParseMultipartForm(s.MaxRequestSize); err != nil {
		return "", "", liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"Invalid multipart form data", err)
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		return "", "", liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"No resume file uploaded", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.Logger.Warn("Failed to close uploaded file", "error", err)
		}
	}()

	if header.Filename == "" {
		return "", "", liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"No resume file selected", nil)
	}

	jobDescription := r.FormValue("job_description")
	if strings.TrimSpace(jobDescription) == "" {
		return "", "", liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"Job description is required", nil)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", liftErrors.NewIOError(liftErrors.ErrCodeFileNotReadable,
			"Failed to read uploaded resume", err)
	}

	resumeText, err := s.Extractor.Extract(r.Context(), data, extract.FormatFromFilename(header.Filename))
	if err != nil {
		return "", "", err
	}

	s.Logger.Debug("Resume upload parsed",
		"filename", header.Filename,
		"upload_size", utils.FormatFileSize(int64(len(data))),
		"extracted_chars", len(resumeText))

	return resumeText, jobDescription, nil
}

// createAnalyzeATSHandler wraps the ATS analysis workflow with observability
func (s *Server) createAnalyzeATSHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumelift.api")
		ctx, span := tracer.Start(ctx, "api.analyze_ats")
		defer span.End()

		resumeText, jobDescription, err := s.parseUploadRequest(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(resumeText)),
			attribute.Int("request.job_length", len(jobDescription)),
			attribute.String("operation", "analyze_ats"),
		)

		orchestrator, err := s.newOrchestrator(om)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "service_creation"))
			writeAppError(w, err)
			return
		}

		metrics := om.GetMetrics()
		result, err := orchestrator.RunATS(ctx, resumeText, jobDescription)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ai_processing"))
			metrics.RecordBusinessMetric(ctx, "ats_session_created", false,
				attribute.String("error", err.Error()))
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "ats_session_created", true,
			attribute.Float64("ats.total_score", result.ATSAnalysis.TotalATSScore))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("session.id", result.SessionID),
			attribute.Float64("ats.total_score", result.ATSAnalysis.TotalATSScore),
		)

		writeJSONResponse(w, result)
	}
}

// createCoverLetterHandler wraps the cover letter workflow with observability
func (s *Server) createCoverLetterHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumelift.api")
		ctx, span := tracer.Start(ctx, "api.generate_cover_letter")
		defer span.End()

		resumeText, jobDescription, err := s.parseUploadRequest(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeAppError(w, err)
			return
		}

		orchestrator, err := s.newOrchestrator(om)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "service_creation"))
			writeAppError(w, err)
			return
		}

		metrics := om.GetMetrics()
		result, err := orchestrator.RunCoverLetter(ctx, resumeText, jobDescription)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ai_processing"))
			metrics.RecordBusinessMetric(ctx, "cover_letter_generated", false,
				attribute.String("error", err.Error()))
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "cover_letter_generated", true,
			attribute.Int("output.letter_length", len(result.CoverLetter)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("session.id", result.SessionID),
		)

		writeJSONResponse(w, result)
	}
}

// createRegenerateATSHandler re-runs the ATS workflow for an existing session
func (s *Server) createRegenerateATSHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumelift.api")
		ctx, span := tracer.Start(ctx, "api.regenerate_ats")
		defer span.End()

		id := r.PathValue("id")
		span.SetAttributes(attribute.String("session.id", id))

		orchestrator, err := s.newOrchestrator(om)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		result, err := orchestrator.RegenerateATS(ctx, id)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		span.SetAttributes(attribute.Bool("success", true))
		writeJSONResponse(w, result)
	}
}

// createRegenerateCoverLetterHandler re-generates the letter for a session
func (s *Server) createRegenerateCoverLetterHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumelift.api")
		ctx, span := tracer.Start(ctx, "api.regenerate_cover_letter")
		defer span.End()

		id := r.PathValue("id")
		span.SetAttributes(attribute.String("session.id", id))

		orchestrator, err := s.newOrchestrator(om)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		result, err := orchestrator.RegenerateCoverLetter(ctx, id)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		span.SetAttributes(attribute.Bool("success", true))
		writeJSONResponse(w, result)
	}
}

// createPreviewHandler serves the resume or cover letter preview payload
func (s *Server) createPreviewHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumelift.api")
		ctx, span := tracer.Start(ctx, "api.preview")
		defer span.End()

		kind, err := parseDocumentKind(r.PathValue("doctype"))
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}
		id := r.PathValue("id")
		span.SetAttributes(
			attribute.String("session.id", id),
			attribute.String("document.kind", string(kind)),
		)

		orchestrator, err := s.newOrchestrator(om)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		metrics := om.GetMetrics()
		var payload any
		if kind == types.DocumentResume {
			payload, err = orchestrator.PreviewResume(ctx, id)
		} else {
			payload, err = orchestrator.PreviewCoverLetter(ctx, id)
		}
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "preview_served", false,
				attribute.String("document.kind", string(kind)))
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "preview_served", true,
			attribute.String("document.kind", string(kind)))
		span.SetAttributes(attribute.Bool("success", true))
		writeJSONResponse(w, payload)
	}
}

// createDownloadHandler renders a session artifact as a PDF or DOCX attachment
func (s *Server) createDownloadHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumelift.api")
		ctx, span := tracer.Start(ctx, "api.download")
		defer span.End()

		format, err := render.ParseFormat(r.PathValue("filetype"))
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}
		kind, err := parseDocumentKind(r.PathValue("doctype"))
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}
		id := r.PathValue("id")
		span.SetAttributes(
			attribute.String("session.id", id),
			attribute.String("document.kind", string(kind)),
			attribute.String("document.format", string(format)),
		)

		orchestrator, err := s.newOrchestrator(om)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		content, err := orchestrator.DownloadContent(ctx, kind, id)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		metrics := om.GetMetrics()
		data, err := render.Document(content, format)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "document_rendered", false,
				attribute.String("document.format", string(format)))
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "document_rendered", true,
			attribute.String("document.kind", string(kind)),
			attribute.String("document.format", string(format)))
		span.SetAttributes(attribute.Bool("success", true))

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", format.Filename(kind)))
		if _, err := w.Write(data); err != nil {
			s.Logger.Warn("Failed to write download response", "error", err)
		}
	}
}

func parseDocumentKind(s string) (types.DocumentKind, error) {
	switch types.DocumentKind(s) {
	case types.DocumentResume, types.DocumentCoverLetter:
		return types.DocumentKind(s), nil
	default:
		return "", liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"Invalid document type: must be resume or cover_letter", nil).
			WithContext("document_type", s)
	}
}

// writeAppError maps an AppError code to an HTTP status and writes the
// standard error body.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *liftErrors.AppError
	if !errors.As(err, &appErr) {
		writeErrorResponse(w, "Internal server error", err.Error(), http.StatusInternalServerError)
		return
	}
	writeErrorResponse(w, appErr.Message, "", statusForCode(appErr, err))
}

func statusForCode(appErr *liftErrors.AppError, err error) int {
	switch appErr.Code {
	case liftErrors.ErrCodeInvalidRequest,
		liftErrors.ErrCodeUnsupportedFormat,
		liftErrors.ErrCodeExtractionFailed,
		liftErrors.ErrCodeFileNotReadable:
		return http.StatusBadRequest
	case liftErrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case liftErrors.ErrCodeSessionExists:
		return http.StatusConflict
	case liftErrors.ErrCodeAITimeout:
		return http.StatusGatewayTimeout
	case liftErrors.ErrCodeAIServiceFailed, liftErrors.ErrCodeSchemaViolation:
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			// If rate limited, record metric
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSONResponse(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
