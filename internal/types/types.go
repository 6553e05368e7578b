package types

// ATSAnalysis represents the ATS compatibility report for one resume against
// one job description. All numeric fields are produced by the generation
// provider and are stored as provided; the total is not recomputed locally.
type ATSAnalysis struct {
	KeywordMatchPercentage      float64 `json:"keyword_match_percentage"`
	KeywordFrequencyScore       float64 `json:"keyword_frequency_score"`
	SectionCompletionPercentage float64 `json:"section_completion_percentage"`
	FormattingReadabilityScore  float64 `json:"formatting_readability_score"`
	HardSoftSkillsBalance       float64 `json:"hard_soft_skills_balance"`
	ProximityScore              float64 `json:"proximity_score"`
	TotalATSScore               float64 `json:"total_ats_score"`

	MissingKeywords        []string `json:"missing_keywords"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`

	// Category suggestion lists. Each issues count is self-reported by the
	// provider and may disagree with the paired list length; consumers must
	// tolerate the mismatch.
	SearchabilitySuggestions []string `json:"searchability_suggestions"`
	SkillsSuggestions        []string `json:"skills_suggestions"`
	FormattingSuggestions    []string `json:"formatting_suggestions"`
	SectionSuggestions       []string `json:"section_suggestions"`
	SynonymSuggestions       []string `json:"synonym_suggestions"`

	SearchabilityIssuesCount int `json:"searchability_issues_count"`
	SkillsIssuesCount        int `json:"skills_issues_count"`
	FormattingIssuesCount    int `json:"formatting_issues_count"`
	SectionIssuesCount       int `json:"section_issues_count"`
	SynonymIssuesCount       int `json:"synonym_issues_count"`
}

// OptimizationResult represents the rewritten resume. ImprovedResumeText is
// the canonical artifact consumed by preview, download and the optimized
// re-scoring pass.
type OptimizationResult struct {
	ImprovedSummary       string              `json:"improved_summary"`
	ImprovedBullets       map[string][]string `json:"improved_bullets"`
	SuggestedSkills       []string            `json:"suggested_skills"`
	FormattingSuggestions []string            `json:"formatting_suggestions"`
	ImprovedResumeText    string              `json:"improved_resume_text"`
}

// CoverLetterResult represents a generated cover letter.
type CoverLetterResult struct {
	CoverLetterText string `json:"cover_letter_text"`
}

// ATSRecord is the persisted bundle for one ATS workflow session.
// OptimizedATSAnalysis is computed lazily on the first preview and cleared
// by regeneration.
type ATSRecord struct {
	ResumeText           string             `json:"resume_text"`
	JobDescription       string             `json:"job_description"`
	OriginalATSAnalysis  ATSAnalysis        `json:"original_ats_analysis"`
	OptimizationResult   OptimizationResult `json:"optimization_result"`
	OptimizedATSAnalysis *ATSAnalysis       `json:"optimized_ats_analysis,omitempty"`
}

// CoverLetterRecord is the persisted bundle for one cover-letter session.
type CoverLetterRecord struct {
	ResumeText     string            `json:"resume_text"`
	JobDescription string            `json:"job_description"`
	CoverLetter    CoverLetterResult `json:"cover_letter"`
}

// ATSWorkflowResult is returned to the caller after a successful ATS run.
type ATSWorkflowResult struct {
	SessionID          string             `json:"session_id"`
	ATSAnalysis        ATSAnalysis        `json:"ats_analysis"`
	OptimizationResult OptimizationResult `json:"optimization_result"`
}

// CoverLetterWorkflowResult is returned after a successful cover-letter run.
type CoverLetterWorkflowResult struct {
	SessionID   string `json:"session_id"`
	CoverLetter string `json:"cover_letter"`
}

// ScoreComparison pairs the original ATS score with the score of the
// optimized resume text.
type ScoreComparison struct {
	OriginalScore  float64 `json:"original_score"`
	OptimizedScore float64 `json:"optimized_score"`
}

// ResumePreview is the preview payload for an optimized resume.
type ResumePreview struct {
	Content         string          `json:"content"`
	ScoreComparison ScoreComparison `json:"score_comparison"`
}

// CoverLetterPreview is the preview payload for a cover letter.
type CoverLetterPreview struct {
	Content string `json:"content"`
}

// DocumentKind identifies which final artifact a download or preview refers to.
type DocumentKind string

const (
	DocumentResume      DocumentKind = "resume"
	DocumentCoverLetter DocumentKind = "cover_letter"
)
