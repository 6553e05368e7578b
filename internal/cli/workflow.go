package cli

import (
	"fmt"

	"resumelift/internal/ai"
	"resumelift/internal/config"
	"resumelift/internal/errors"
	"resumelift/internal/pipeline"
	"resumelift/internal/session"
)

// workflowInput carries the two extracted documents every workflow needs.
type workflowInput struct {
	ResumeText     string
	JobDescription string
}

// newOrchestrator wires the three AI providers into a pipeline orchestrator
// backed by an in-memory store. CLI runs are one-shot; sessions do not
// outlive the process, so nothing is written to disk.
func newOrchestrator(cfg *config.Config, logger *errors.Logger) (*pipeline.Orchestrator, error) {
	analyzeCfg := cfg.GetAnalyzeConfig()
	analyzeSvc, err := ai.NewService(&analyzeCfg, config.OperationAnalyze, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze AI service: %w", err)
	}

	optimizeCfg := cfg.GetOptimizeConfig()
	optimizeSvc, err := ai.NewService(&optimizeCfg, config.OperationOptimize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create optimize AI service: %w", err)
	}

	letterCfg := cfg.GetCoverLetterConfig()
	letterSvc, err := ai.NewService(&letterCfg, config.OperationCoverLetter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover letter AI service: %w", err)
	}

	providers := pipeline.Providers{
		Analyze:     analyzeSvc.Provider,
		Optimize:    optimizeSvc.Provider,
		CoverLetter: letterSvc.Provider,
	}

	return pipeline.New(providers, session.NewMemoryStore(), nil, logger), nil
}

func newWorkflowInput(contents []string) (workflowInput, error) {
	if len(contents) != 2 {
		return workflowInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
	}
	return workflowInput{
		ResumeText:     contents[0],
		JobDescription: contents[1],
	}, nil
}
