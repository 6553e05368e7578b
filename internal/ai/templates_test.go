package ai

import (
	"strings"
	"testing"

	"resumelift/internal/config"
)

func TestRenderTemplateSubstitutesAllPlaceholders(t *testing.T) {
	template := "Resume:\n{resume_text}\n\nJob:\n{job_description}\n\n{format_instructions}"

	got := renderTemplate(config.OperationAnalyze, template, map[string]string{
		placeholderResumeText:         "ten years of Go",
		placeholderJobDescription:     "backend engineer",
		placeholderFormatInstructions: "respond with JSON",
	})

	if strings.Contains(got, "{") {
		t.Errorf("rendered template still contains a placeholder: %q", got)
	}
	for _, want := range []string{"ten years of Go", "backend engineer", "respond with JSON"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered template missing %q", want)
		}
	}
}

func TestRenderTemplatePanicsOnMissingPlaceholder(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("renderTemplate should panic when the template lacks a placeholder for a provided input")
		}
	}()

	renderTemplate(config.OperationCoverLetter, "no placeholders here", map[string]string{
		placeholderResumeText: "ignored",
	})
}

func TestDefaultTemplatesCarryRequiredPlaceholders(t *testing.T) {
	tests := []struct {
		operation    string
		placeholders []string
	}{
		{config.OperationAnalyze, []string{placeholderResumeText, placeholderJobDescription, placeholderFormatInstructions}},
		{config.OperationOptimize, []string{placeholderResumeText, placeholderJobDescription, placeholderATSAnalysis, placeholderFormatInstructions}},
		{config.OperationCoverLetter, []string{placeholderResumeText, placeholderJobDescription, placeholderCurrentDate, placeholderFormatInstructions}},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			template, ok := DefaultTemplates[tt.operation]
			if !ok {
				t.Fatalf("no default template for %s", tt.operation)
			}
			for _, name := range tt.placeholders {
				if !strings.Contains(template, "{"+name+"}") {
					t.Errorf("default %s template missing placeholder {%s}", tt.operation, name)
				}
			}
		})
	}
}

func TestResolveTemplatePrefersOverride(t *testing.T) {
	// No override configured: defaults apply.
	if got := resolveTemplate(config.OperationAnalyze); got != DefaultTemplates[config.OperationAnalyze] {
		t.Error("resolveTemplate should return the default when no override is set")
	}

	if got := resolveSystemPrompt(config.OperationOptimize); got != DefaultSystemPrompts[config.OperationOptimize] {
		t.Error("resolveSystemPrompt should return the default when no override is set")
	}
}
