package ai

import (
	"google.golang.org/genai"
)

// buildAnalyzeSchema creates the response schema for ATS analysis requests
func (g *GeminiProvider) buildAnalyzeSchema() *genai.GenerateContentConfig {
	stringArray := func(desc string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: desc,
		}
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"keyword_match_percentage":      {Type: genai.TypeNumber, Description: "Percentage of job description keywords found in resume"},
				"keyword_frequency_score":       {Type: genai.TypeNumber, Description: "Score based on how often keywords appear in the resume"},
				"section_completion_percentage": {Type: genai.TypeNumber, Description: "Percentage of key sections present in the resume"},
				"formatting_readability_score":  {Type: genai.TypeNumber, Description: "Score for overall formatting and readability"},
				"hard_soft_skills_balance":      {Type: genai.TypeNumber, Description: "Score for balance between hard technical and soft interpersonal skills"},
				"proximity_score":               {Type: genai.TypeNumber, Description: "Score for phrases appearing in the right order/context"},
				"total_ats_score":               {Type: genai.TypeNumber, Description: "Final weighted ATS compatibility score out of 100"},
				"missing_keywords":              stringArray("Important keywords from job description missing in resume"),
				"improvement_suggestions":       stringArray("Specific suggestions to improve ATS compatibility"),
				"searchability_suggestions":     stringArray("Suggestions to improve keyword searchability"),
				"skills_suggestions":            stringArray("Suggestions to improve skills presentation"),
				"formatting_suggestions":        stringArray("Suggestions to improve formatting and readability"),
				"section_suggestions":           stringArray("Suggestions to improve section completeness"),
				"synonym_suggestions":           stringArray("Suggestions to improve keyword variation coverage"),
				"searchability_issues_count":    {Type: genai.TypeInteger, Description: "Number of searchability issues to fix"},
				"skills_issues_count":           {Type: genai.TypeInteger, Description: "Number of skills-presentation issues to fix"},
				"formatting_issues_count":       {Type: genai.TypeInteger, Description: "Number of formatting/readability issues to fix"},
				"section_issues_count":          {Type: genai.TypeInteger, Description: "Number of section completeness issues to fix"},
				"synonym_issues_count":          {Type: genai.TypeInteger, Description: "Number of keyword-variation issues to fix"},
			},
			Required: []string{
				"keyword_match_percentage",
				"keyword_frequency_score",
				"section_completion_percentage",
				"formatting_readability_score",
				"hard_soft_skills_balance",
				"proximity_score",
				"total_ats_score",
				"missing_keywords",
				"improvement_suggestions",
				"searchability_suggestions",
				"skills_suggestions",
				"formatting_suggestions",
				"section_suggestions",
				"synonym_suggestions",
				"searchability_issues_count",
				"skills_issues_count",
				"formatting_issues_count",
				"section_issues_count",
				"synonym_issues_count",
			},
		},
	}

	g.applyTemperature(config)
	return config
}

// buildOptimizeSchema creates the response schema for resume optimization requests
func (g *GeminiProvider) buildOptimizeSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"improved_summary": {Type: genai.TypeString, Description: "AI-enhanced professional summary"},
				// Keys are experience section names, values are rewritten bullets.
				"improved_bullets": {Type: genai.TypeObject, Description: "Improved bullet points for each experience section, keyed by section name"},
				"suggested_skills": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Additional skills to highlight based on job description",
				},
				"formatting_suggestions": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Suggestions for better formatting",
				},
				"improved_resume_text": {Type: genai.TypeString, Description: "Full improved resume text"},
			},
			Required: []string{
				"improved_summary",
				"improved_bullets",
				"suggested_skills",
				"formatting_suggestions",
				"improved_resume_text",
			},
		},
	}

	g.applyTemperature(config)
	return config
}

// buildCoverLetterSchema creates the response schema for cover letter requests
func (g *GeminiProvider) buildCoverLetterSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"cover_letter_text": {Type: genai.TypeString, Description: "Complete cover letter text"},
			},
			Required: []string{"cover_letter_text"},
		},
	}

	g.applyTemperature(config)
	return config
}

func (g *GeminiProvider) applyTemperature(config *genai.GenerateContentConfig) {
	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}
}
