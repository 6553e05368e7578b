package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumelift/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ATSWorkflowResult", &ATSTextFormatter{})
	registry.RegisterFormatter("markdown", "ATSWorkflowResult", &ATSMarkdownFormatter{})
	registry.RegisterFormatter("text", "CoverLetterWorkflowResult", &CoverLetterTextFormatter{})
	registry.RegisterFormatter("markdown", "CoverLetterWorkflowResult", &CoverLetterMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ATSWorkflowResult, *types.ATSWorkflowResult:
		return "ATSWorkflowResult"
	case types.CoverLetterWorkflowResult, *types.CoverLetterWorkflowResult:
		return "CoverLetterWorkflowResult"
	default:
		return "any"
	}
}

func asATSResult(data any) (types.ATSWorkflowResult, bool) {
	switch v := data.(type) {
	case types.ATSWorkflowResult:
		return v, true
	case *types.ATSWorkflowResult:
		return *v, true
	default:
		return types.ATSWorkflowResult{}, false
	}
}

func asCoverLetterResult(data any) (types.CoverLetterWorkflowResult, bool) {
	switch v := data.(type) {
	case types.CoverLetterWorkflowResult:
		return v, true
	case *types.CoverLetterWorkflowResult:
		return *v, true
	default:
		return types.CoverLetterWorkflowResult{}, false
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ATSTextFormatter handles text formatting for ATS workflow results
type ATSTextFormatter struct{}

func (atf *ATSTextFormatter) Format(data any) (string, error) {
	result, ok := asATSResult(data)
	if !ok {
		return "", fmt.Errorf("expected ATSWorkflowResult, got %T", data)
	}

	analysis := result.ATSAnalysis
	var output strings.Builder

	output.WriteString("=== ATS ANALYSIS ===\n\n")
	output.WriteString(fmt.Sprintf("Session: %s\n", result.SessionID))
	output.WriteString(fmt.Sprintf("Total ATS Score: %.1f/100\n\n", analysis.TotalATSScore))

	output.WriteString("Score Breakdown:\n")
	output.WriteString(fmt.Sprintf("  Keyword Match:        %.1f\n", analysis.KeywordMatchPercentage))
	output.WriteString(fmt.Sprintf("  Keyword Frequency:    %.1f\n", analysis.KeywordFrequencyScore))
	output.WriteString(fmt.Sprintf("  Section Completion:   %.1f\n", analysis.SectionCompletionPercentage))
	output.WriteString(fmt.Sprintf("  Formatting:           %.1f\n", analysis.FormattingReadabilityScore))
	output.WriteString(fmt.Sprintf("  Skills Balance:       %.1f\n", analysis.HardSoftSkillsBalance))
	output.WriteString(fmt.Sprintf("  Keyword Proximity:    %.1f\n", analysis.ProximityScore))
	output.WriteString("\n")

	if len(analysis.MissingKeywords) > 0 {
		output.WriteString("Missing Keywords:\n")
		for _, keyword := range analysis.MissingKeywords {
			output.WriteString(fmt.Sprintf("- %s\n", keyword))
		}
		output.WriteString("\n")
	}

	writeSuggestionSection(&output, "Searchability", analysis.SearchabilitySuggestions, analysis.SearchabilityIssuesCount)
	writeSuggestionSection(&output, "Skills", analysis.SkillsSuggestions, analysis.SkillsIssuesCount)
	writeSuggestionSection(&output, "Formatting", analysis.FormattingSuggestions, analysis.FormattingIssuesCount)
	writeSuggestionSection(&output, "Sections", analysis.SectionSuggestions, analysis.SectionIssuesCount)
	writeSuggestionSection(&output, "Synonyms", analysis.SynonymSuggestions, analysis.SynonymIssuesCount)

	if len(analysis.ImprovementSuggestions) > 0 {
		output.WriteString("General Improvements:\n")
		for _, suggestion := range analysis.ImprovementSuggestions {
			output.WriteString(fmt.Sprintf("- %s\n", suggestion))
		}
		output.WriteString("\n")
	}

	opt := result.OptimizationResult

	output.WriteString("=== OPTIMIZATION ===\n\n")
	if opt.ImprovedSummary != "" {
		output.WriteString("Improved Summary:\n")
		output.WriteString(opt.ImprovedSummary)
		output.WriteString("\n\n")
	}

	if len(opt.ImprovedBullets) > 0 {
		output.WriteString("Improved Bullets:\n")
		for _, section := range sortedKeys(opt.ImprovedBullets) {
			output.WriteString(fmt.Sprintf("  %s:\n", section))
			for _, bullet := range opt.ImprovedBullets[section] {
				output.WriteString(fmt.Sprintf("  - %s\n", bullet))
			}
		}
		output.WriteString("\n")
	}

	if len(opt.SuggestedSkills) > 0 {
		output.WriteString("Suggested Skills:\n")
		for _, skill := range opt.SuggestedSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}

	output.WriteString("=== OPTIMIZED RESUME ===\n\n")
	output.WriteString(opt.ImprovedResumeText)
	output.WriteString("\n")

	return output.String(), nil
}

func (atf *ATSTextFormatter) SupportedType() string {
	return "ATSWorkflowResult"
}

// ATSMarkdownFormatter handles markdown formatting for ATS workflow results
type ATSMarkdownFormatter struct{}

func (amf *ATSMarkdownFormatter) Format(data any) (string, error) {
	result, ok := asATSResult(data)
	if !ok {
		return "", fmt.Errorf("expected ATSWorkflowResult, got %T", data)
	}

	analysis := result.ATSAnalysis
	var output strings.Builder

	output.WriteString("# ATS Analysis\n\n")
	output.WriteString(fmt.Sprintf("**Session:** %s\n\n", result.SessionID))
	output.WriteString(fmt.Sprintf("**Total ATS Score:** %.1f/100\n\n", analysis.TotalATSScore))

	output.WriteString("## Score Breakdown\n\n")
	output.WriteString("| Category | Score |\n")
	output.WriteString("|----------|-------|\n")
	output.WriteString(fmt.Sprintf("| Keyword Match | %.1f |\n", analysis.KeywordMatchPercentage))
	output.WriteString(fmt.Sprintf("| Keyword Frequency | %.1f |\n", analysis.KeywordFrequencyScore))
	output.WriteString(fmt.Sprintf("| Section Completion | %.1f |\n", analysis.SectionCompletionPercentage))
	output.WriteString(fmt.Sprintf("| Formatting | %.1f |\n", analysis.FormattingReadabilityScore))
	output.WriteString(fmt.Sprintf("| Skills Balance | %.1f |\n", analysis.HardSoftSkillsBalance))
	output.WriteString(fmt.Sprintf("| Keyword Proximity | %.1f |\n", analysis.ProximityScore))
	output.WriteString("\n")

	if len(analysis.MissingKeywords) > 0 {
		output.WriteString("## Missing Keywords\n\n")
		for _, keyword := range analysis.MissingKeywords {
			output.WriteString(fmt.Sprintf("- %s\n", keyword))
		}
		output.WriteString("\n")
	}

	writeMarkdownSuggestions(&output, "Searchability", analysis.SearchabilitySuggestions, analysis.SearchabilityIssuesCount)
	writeMarkdownSuggestions(&output, "Skills", analysis.SkillsSuggestions, analysis.SkillsIssuesCount)
	writeMarkdownSuggestions(&output, "Formatting", analysis.FormattingSuggestions, analysis.FormattingIssuesCount)
	writeMarkdownSuggestions(&output, "Sections", analysis.SectionSuggestions, analysis.SectionIssuesCount)
	writeMarkdownSuggestions(&output, "Synonyms", analysis.SynonymSuggestions, analysis.SynonymIssuesCount)

	if len(analysis.ImprovementSuggestions) > 0 {
		output.WriteString("## General Improvements\n\n")
		for _, suggestion := range analysis.ImprovementSuggestions {
			output.WriteString(fmt.Sprintf("- %s\n", suggestion))
		}
		output.WriteString("\n")
	}

	opt := result.OptimizationResult

	output.WriteString("# Optimization\n\n")
	if opt.ImprovedSummary != "" {
		output.WriteString("## Improved Summary\n\n")
		output.WriteString(opt.ImprovedSummary)
		output.WriteString("\n\n")
	}

	if len(opt.ImprovedBullets) > 0 {
		output.WriteString("## Improved Bullets\n\n")
		for _, section := range sortedKeys(opt.ImprovedBullets) {
			output.WriteString(fmt.Sprintf("### %s\n\n", section))
			for _, bullet := range opt.ImprovedBullets[section] {
				output.WriteString(fmt.Sprintf("- %s\n", bullet))
			}
			output.WriteString("\n")
		}
	}

	if len(opt.SuggestedSkills) > 0 {
		output.WriteString("## Suggested Skills\n\n")
		for _, skill := range opt.SuggestedSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}

	output.WriteString("# Optimized Resume\n\n")
	output.WriteString(opt.ImprovedResumeText)
	output.WriteString("\n")

	return output.String(), nil
}

func (amf *ATSMarkdownFormatter) SupportedType() string {
	return "ATSWorkflowResult"
}

// CoverLetterTextFormatter handles text formatting for cover letter results
type CoverLetterTextFormatter struct{}

func (clf *CoverLetterTextFormatter) Format(data any) (string, error) {
	result, ok := asCoverLetterResult(data)
	if !ok {
		return "", fmt.Errorf("expected CoverLetterWorkflowResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== COVER LETTER ===\n\n")
	output.WriteString(fmt.Sprintf("Session: %s\n\n", result.SessionID))
	output.WriteString(result.CoverLetter)
	output.WriteString("\n")

	return output.String(), nil
}

func (clf *CoverLetterTextFormatter) SupportedType() string {
	return "CoverLetterWorkflowResult"
}

// CoverLetterMarkdownFormatter handles markdown formatting for cover letter results
type CoverLetterMarkdownFormatter struct{}

func (cmf *CoverLetterMarkdownFormatter) Format(data any) (string, error) {
	result, ok := asCoverLetterResult(data)
	if !ok {
		return "", fmt.Errorf("expected CoverLetterWorkflowResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Cover Letter\n\n")
	output.WriteString(fmt.Sprintf("**Session:** %s\n\n", result.SessionID))
	output.WriteString(result.CoverLetter)
	output.WriteString("\n")

	return output.String(), nil
}

func (cmf *CoverLetterMarkdownFormatter) SupportedType() string {
	return "CoverLetterWorkflowResult"
}

func writeSuggestionSection(output *strings.Builder, label string, suggestions []string, issueCount int) {
	if len(suggestions) == 0 {
		return
	}
	output.WriteString(fmt.Sprintf("%s (%d issues):\n", label, issueCount))
	for _, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("- %s\n", suggestion))
	}
	output.WriteString("\n")
}

func writeMarkdownSuggestions(output *strings.Builder, label string, suggestions []string, issueCount int) {
	if len(suggestions) == 0 {
		return
	}
	output.WriteString(fmt.Sprintf("## %s (%d issues)\n\n", label, issueCount))
	for _, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("- %s\n", suggestion))
	}
	output.WriteString("\n")
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
