package ai

import (
	"fmt"
	"strings"

	"resumelift/internal/config"
)

// Placeholder names recognized in user prompt templates.
const (
	placeholderResumeText         = "resume_text"
	placeholderJobDescription     = "job_description"
	placeholderATSAnalysis        = "ats_analysis"
	placeholderCurrentDate        = "current_date"
	placeholderFormatInstructions = "format_instructions"
)

// formatInstructions is substituted for {format_instructions}. Structural
// enforcement comes from the response schema, so the prompt only carries a
// short reminder.
const formatInstructions = `Respond with a single JSON object matching the required schema. Do not wrap the JSON in markdown fences or add any text outside the object.`

// DefaultSystemPrompts provides the default system instructions per operation.
var DefaultSystemPrompts = map[string]string{
	config.OperationAnalyze: `You are an expert ATS (Applicant Tracking System) analyzer and resume optimization specialist. Your analysis must be:

- Data-driven, with every score justified by the resume and job description content
- Consistent: identical inputs should produce near-identical scores
- Actionable: every suggestion must name a concrete change the candidate can make`,

	config.OperationOptimize: `You are an expert resume writer, career coach, and Applicant Tracking System (ATS) specialist. Your core principles are:

- Preserve every original section of the resume
- Never invent skills, experience, or achievements the candidate does not have
- Mirror the job description's language only where the underlying skill genuinely exists`,

	config.OperationCoverLetter: `You are an expert cover letter writer with deep knowledge of professional communication and hiring practices. You write letters that are personal, specific to the role, and free of generic filler.`,
}

// DefaultTemplates provides the default user prompt templates per operation.
var DefaultTemplates = map[string]string{
	config.OperationAnalyze: `I need you to analyze a resume against a specific job description and provide a detailed ATS compatibility score.

RESUME TEXT:
{resume_text}

JOB DESCRIPTION:
{job_description}

Analyze the resume against the provided job description and generate a detailed ATS compatibility report including:

1. Keyword Match %:
- Extract ALL critical keywords and key phrases (skills, certifications, tools, industry jargon, job titles).
- Assess exact and semantic keyword matches, including synonyms and relevant variations.
- Evaluate keyword placement priority: prioritize headline, professional summary, skills section, and work experience.
- Score keyword density ensuring natural language flow (avoid stuffing).
- Identify missing high-impact keywords critical to the job role and recommend optimal placement.

2. Section Completion %:
- Verify presence of core ATS sections with professional formatting.
- Score based on alignment with job requirements and ATS parsing ease.
- Recommend missing or reordered sections for maximum ATS compatibility.

3. Formatting and Readability Score:
Assess resume formatting and readability for ATS systems, including:
- Use of standard fonts (e.g., Arial, Calibri)
- Consistent date formats (e.g., MM/YYYY)
- Absence of graphics, tables, columns, headers, or footers
- Clear section headings and logical structure

4. Hard vs Soft Skills Balance:
Evaluate the balance between technical (hard) and interpersonal (soft) skills aligned to the job description.

5. Proximity Score:
Analyze whether related keywords and phrases appear close together and in the correct context.

6. Final ATS Score:
Calculate a weighted ATS score out of 100 using the formula:
(Keyword Match * 0.35) + (Section Completion * 0.25) + (Formatting * 0.20) + (Skills Balance * 0.10) + (Proximity * 0.10)

7. List important keywords from the job description missing in the resume.

Additionally, organize your suggestions into the following categories:
1. Searchability suggestions - how to improve keyword match and searchability
2. Skills suggestions - how to improve hard/soft skills balance and presentation
3. Formatting suggestions - how to improve layout and ATS readability
4. Section suggestions - how to improve section completeness
5. Synonym suggestions - how to improve keyword variation coverage

For each category:
1. List all individual issues that need fixing.
2. Provide 2-3 specific, actionable suggestions.
3. Emit the corresponding issues count integer, exactly equal to the number of issues you listed above.

{format_instructions}`,

	config.OperationOptimize: `Transform the candidate's existing resume into a highly optimized, keyword-rich document that aligns with the given job description while preserving every original section of the resume.

RESUME TEXT:
{resume_text}

JOB DESCRIPTION:
{job_description}

ATS ANALYSIS:
{ats_analysis}

Instructions:

1. Section Preservation and Enhancement
- Retain every section from the original resume (Professional Summary, Experience, Projects, Education, Skills, Certifications, Volunteer, etc.).
- For each section, refine content to mirror the job description's language and keywords.

2. Skill Extraction and Mapping
- Parse the job description for all required and preferred skills, technologies, and methodologies.
- Ensure each skill the candidate legitimately holds appears in the resume, either in the Skills section or embedded within relevant bullets. Do not invent.

3. Professional Summary (1-3 sentences)
- Incorporate the top 4-6 job description keywords and phrases.
- Highlight years of experience, core qualifications, and career goal.

4. Experience Section Optimization
- Maintain reverse-chronological order; present tense for current roles, past tense for prior roles.
- Rewrite each bullet to use strong action verbs, embed exact job description keywords, and quantify achievements.
- Retain all original positions and headers.

5. Skills Section Enhancement
- List every core job description skill the candidate holds as individual bullets, ordered by relevance.
- If a required skill is absent from the original, note the gap and suggest a related, transferable skill.

6. Education and Certifications
- Preserve all original entries with standardized formatting.

7. Formatting for Optimal ATS Parsing
- Single-column, reverse-chronological layout with standard headings.
- Simple bullets; no tables, graphics, or columns.

8. Full Resume Rewrite
- Provide a polished 1-2 page document covering every original section, improved and job-aligned.
- Ensure every job description keyword the candidate can honestly claim appears at least once, without unnatural repetition.

{format_instructions}`,

	config.OperationCoverLetter: `Create a compelling, personalized cover letter based on the resume and job description provided.

RESUME TEXT:
{resume_text}

JOB DESCRIPTION:
{job_description}

CURRENT DATE: {current_date}

Please write a professional cover letter that:
1. Has a proper business letter format with date and contact information
2. Opens with a compelling introduction that shows enthusiasm for the position
3. Highlights 2-3 key qualifications from the resume that directly match the job requirements
4. Incorporates important keywords from the job description naturally
5. Explains why the applicant is a good fit for the company and role specifically
6. Closes with a strong call to action and thank you
7. Maintains a professional yet personable tone
8. Is approximately 250-350 words in total

{format_instructions}`,
}

// resolveSystemPrompt returns the system prompt for an operation, preferring
// configured overrides over built-in defaults.
func resolveSystemPrompt(operation string) string {
	if override := config.GetPromptOverrides(operation).SystemPrompt; override != "" {
		return override
	}
	return DefaultSystemPrompts[operation]
}

// resolveTemplate returns the user prompt template for an operation,
// preferring configured overrides over built-in defaults.
func resolveTemplate(operation string) string {
	if override := config.GetPromptOverrides(operation).Template; override != "" {
		return override
	}
	return DefaultTemplates[operation]
}

// renderTemplate substitutes placeholder values into a prompt template.
// Every variable passed must have a matching {name} placeholder in the
// template; a missing placeholder is a programming or configuration defect
// that would silently drop an input, so it panics.
func renderTemplate(operation, template string, vars map[string]string) string {
	for name, value := range vars {
		placeholder := "{" + name + "}"
		if !strings.Contains(template, placeholder) {
			panic(fmt.Sprintf("prompt template for %s is missing placeholder %s", operation, placeholder))
		}
		template = strings.ReplaceAll(template, placeholder, value)
	}
	return template
}
