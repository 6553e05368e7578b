package common

import (
	"context"
	"fmt"

	"resumelift/internal/errors"
)

// CreateInputFunc defines how to create the specific workflow input from file contents.
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// WorkflowFunc is a generic function signature for any workflow operation.
// Token accounting happens inside the pipeline, not here.
type WorkflowFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunWorkflowCommand encapsulates the common logic for file-based CLI commands:
// read and extract the input documents, run the workflow, format the result.
func RunWorkflowCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	workflow WorkflowFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	contents, err := fileProcessor.ValidateAndReadDocuments(ctx, args...)
	if err != nil {
		return err
	}

	input, err := createInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	logDetails(input, cmdConfig)

	result, err := workflow(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
