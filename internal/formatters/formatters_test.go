package formatters

import (
	"strings"
	"testing"

	"resumelift/internal/types"
)

func sampleATSResult() types.ATSWorkflowResult {
	return types.ATSWorkflowResult{
		SessionID: "abc-123",
		ATSAnalysis: types.ATSAnalysis{
			TotalATSScore:          62.5,
			KeywordMatchPercentage: 40,
			MissingKeywords:        []string{"kubernetes", "terraform"},
			SkillsSuggestions:      []string{"Add cloud platform experience"},
			SkillsIssuesCount:      1,
		},
		OptimizationResult: types.OptimizationResult{
			ImprovedSummary: "Platform engineer with cloud focus.",
			ImprovedBullets: map[string][]string{
				"Experience": {"Automated deployments with Terraform"},
			},
			SuggestedSkills:    []string{"Kubernetes"},
			ImprovedResumeText: "JANE DOE\n\nPlatform engineer.",
		},
	}
}

func TestFormatterRegistryDispatch(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		data     any
		contains string
	}{
		{"ats text", "text", sampleATSResult(), "=== ATS ANALYSIS ==="},
		{"ats markdown", "markdown", sampleATSResult(), "# ATS Analysis"},
		{"ats text pointer", "text", func() any { r := sampleATSResult(); return &r }(), "Session: abc-123"},
		{"cover letter text", "text", types.CoverLetterWorkflowResult{SessionID: "cl-1", CoverLetter: "Dear team,"}, "=== COVER LETTER ==="},
		{"cover letter markdown", "markdown", types.CoverLetterWorkflowResult{SessionID: "cl-1", CoverLetter: "Dear team,"}, "# Cover Letter"},
		{"json fallback", "json", map[string]string{"k": "v"}, `"k": "v"`},
		{"json workflow result", "json", sampleATSResult(), `"session_id": "abc-123"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := GlobalRegistry.Format(tt.data, tt.format)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output missing %q:\n%s", tt.contains, out)
			}
		})
	}
}

func TestFormatUnknownFormat(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleATSResult(), "yaml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestATSTextIncludesSuggestionCounts(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleATSResult(), "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "Skills (1 issues):") {
		t.Errorf("expected skills issue count in output:\n%s", out)
	}
	if !strings.Contains(out, "- kubernetes") {
		t.Errorf("expected missing keyword in output:\n%s", out)
	}
}
