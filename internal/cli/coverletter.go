package cli

import (
	"context"
	"fmt"

	"resumelift/internal/common"
	"resumelift/internal/types"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:     "coverletter [resume-file] [job-description-file]",
	Aliases: []string{"cover-letter"},
	Short:   "Generate a tailored cover letter for a job description",
	Long: `Generate a professional cover letter tailored to a job description,
drawing on the experience in the supplied resume. The resume file may be plain
text, PDF, or DOCX; the job description file should be plain text.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if coverLetterConfig.OutputFormat == "" {
			coverLetterConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(coverLetterConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runCoverLetter,
}

var coverLetterConfig common.CommandConfig

func init() {
	coverLetterCmd.Flags().StringVarP(&coverLetterConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	coverLetterCmd.Flags().StringVar(&coverLetterConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = coverLetterCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	orchestrator, err := newOrchestrator(cfg, logger)
	if err != nil {
		return err
	}

	logDetails := func(input workflowInput, cfg common.CommandConfig) {
		logger.Info("Starting cover letter generation",
			"resume_chars", len(input.ResumeText),
			"job_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	letterWorkflow := func(ctx context.Context, input workflowInput) (*types.CoverLetterWorkflowResult, error) {
		return orchestrator.RunCoverLetter(ctx, input.ResumeText, input.JobDescription)
	}

	err = common.RunWorkflowCommand(
		cmd.Context(),
		logger,
		coverLetterConfig,
		args,
		newWorkflowInput,
		letterWorkflow,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to generate cover letter: %w", err)
	}
	logger.Info("Cover letter generation completed successfully")
	return nil
}
