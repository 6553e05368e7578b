package pipeline

import (
	"context"
	"sync"
	"testing"

	"resumelift/internal/ai"
	liftErrors "resumelift/internal/errors"
	"resumelift/internal/session"
	"resumelift/internal/types"
)

// fakeGenerator implements ai.Generator with canned responses. Analysis
// scores are consumed from a queue so tests can distinguish the initial
// analysis from the optimized re-scoring pass. analyzeHook, when set, runs
// after the score is drawn and outside the mutex so a test can stall one
// analysis call while others proceed.
type fakeGenerator struct {
	mu           sync.Mutex
	scores       []float64
	optimization types.OptimizationResult
	letter       types.CoverLetterResult
	err          error
	analyzeHook  func(call int)

	analyzeCalls  int
	optimizeCalls int
	letterCalls   int
}

func (f *fakeGenerator) AnalyzeResume(ctx context.Context, resumeText, jobDescription string) (types.ATSAnalysis, *ai.TokenUsage, error) {
	f.mu.Lock()
	f.analyzeCalls++
	call := f.analyzeCalls
	err := f.err
	score := 50.0
	if len(f.scores) > 0 {
		score = f.scores[0]
		f.scores = f.scores[1:]
	}
	f.mu.Unlock()

	if f.analyzeHook != nil {
		f.analyzeHook(call)
	}
	if err != nil {
		return types.ATSAnalysis{}, nil, err
	}
	return types.ATSAnalysis{TotalATSScore: score}, &ai.TokenUsage{TotalTokens: 10}, nil
}

func (f *fakeGenerator) OptimizeResume(ctx context.Context, resumeText, jobDescription string, analysis types.ATSAnalysis) (types.OptimizationResult, *ai.TokenUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optimizeCalls++
	if f.err != nil {
		return types.OptimizationResult{}, nil, f.err
	}
	return f.optimization, &ai.TokenUsage{TotalTokens: 20}, nil
}

func (f *fakeGenerator) GenerateCoverLetter(ctx context.Context, resumeText, jobDescription string) (types.CoverLetterResult, *ai.TokenUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.letterCalls++
	if f.err != nil {
		return types.CoverLetterResult{}, nil, f.err
	}
	return f.letter, &ai.TokenUsage{TotalTokens: 15}, nil
}

func (f *fakeGenerator) setOptimization(opt types.OptimizationResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optimization = opt
}

func (f *fakeGenerator) GetModelInfo(ctx context.Context) *ai.ModelInfo { return nil }

func (f *fakeGenerator) Close() error { return nil }

func newTestOrchestrator(t *testing.T, providers Providers) (*Orchestrator, session.Store) {
	t.Helper()
	logger, err := liftErrors.New("error")
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	store := session.NewMemoryStore()
	o := New(providers, store, nil, logger)
	return o, store
}

func TestRunATSPersistsSession(t *testing.T) {
	analyze := &fakeGenerator{scores: []float64{62}}
	optimize := &fakeGenerator{optimization: types.OptimizationResult{ImprovedResumeText: "improved"}}
	o, store := newTestOrchestrator(t, Providers{Analyze: analyze, Optimize: optimize})

	result, err := o.RunATS(context.Background(), "resume", "job")
	if err != nil {
		t.Fatalf("RunATS() error = %v", err)
	}
	if result.SessionID == "" {
		t.Fatal("RunATS() returned empty session id")
	}
	if result.ATSAnalysis.TotalATSScore != 62 {
		t.Errorf("TotalATSScore = %v, want 62", result.ATSAnalysis.TotalATSScore)
	}

	var record types.ATSRecord
	if err := store.Read(context.Background(), session.NamespaceATS, result.SessionID, &record); err != nil {
		t.Fatalf("reading persisted record: %v", err)
	}
	if record.ResumeText != "resume" || record.JobDescription != "job" {
		t.Errorf("persisted inputs = (%q, %q), want (resume, job)", record.ResumeText, record.JobDescription)
	}
	if record.OptimizationResult.ImprovedResumeText != "improved" {
		t.Errorf("persisted ImprovedResumeText = %q, want improved", record.OptimizationResult.ImprovedResumeText)
	}
	if record.OptimizedATSAnalysis != nil {
		t.Error("OptimizedATSAnalysis should not be set by RunATS")
	}
}

func TestRunATSFailurePersistsNothing(t *testing.T) {
	failure := liftErrors.NewAIError(liftErrors.ErrCodeAIServiceFailed, "boom", nil)
	analyze := &fakeGenerator{}
	optimize := &fakeGenerator{err: failure}
	o, store := newTestOrchestrator(t, Providers{Analyze: analyze, Optimize: optimize})
	o.newID = func() string { return "fixed-id" }

	_, err := o.RunATS(context.Background(), "resume", "job")
	if !liftErrors.IsCode(err, liftErrors.ErrCodeAIServiceFailed) {
		t.Fatalf("RunATS() error = %v, want AI_SERVICE_FAILED", err)
	}

	var record types.ATSRecord
	err = store.Read(context.Background(), session.NamespaceATS, "fixed-id", &record)
	if !liftErrors.IsCode(err, liftErrors.ErrCodeSessionNotFound) {
		t.Errorf("aborted workflow left a record behind: %v", err)
	}
}

func TestRunATSRejectsEmptyInputs(t *testing.T) {
	o, _ := newTestOrchestrator(t, Providers{Analyze: &fakeGenerator{}, Optimize: &fakeGenerator{}})

	if _, err := o.RunATS(context.Background(), "  ", "job"); !liftErrors.IsCode(err, liftErrors.ErrCodeInvalidRequest) {
		t.Errorf("empty resume: error = %v, want INVALID_REQUEST", err)
	}
	if _, err := o.RunATS(context.Background(), "resume", ""); !liftErrors.IsCode(err, liftErrors.ErrCodeInvalidRequest) {
		t.Errorf("empty job description: error = %v, want INVALID_REQUEST", err)
	}
}

func TestPreviewResumeScoresLazilyAndCaches(t *testing.T) {
	// First score is the original analysis, second scores the optimized text.
	analyze := &fakeGenerator{scores: []float64{55, 80}}
	optimize := &fakeGenerator{optimization: types.OptimizationResult{ImprovedResumeText: "improved"}}
	o, store := newTestOrchestrator(t, Providers{Analyze: analyze, Optimize: optimize})

	result, err := o.RunATS(context.Background(), "resume", "job")
	if err != nil {
		t.Fatalf("RunATS() error = %v", err)
	}

	preview, err := o.PreviewResume(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("PreviewResume() error = %v", err)
	}
	if preview.Content != "improved" {
		t.Errorf("preview content = %q, want improved", preview.Content)
	}
	if preview.ScoreComparison.OriginalScore != 55 || preview.ScoreComparison.OptimizedScore != 80 {
		t.Errorf("score comparison = %+v, want 55/80", preview.ScoreComparison)
	}
	if analyze.analyzeCalls != 2 {
		t.Fatalf("analyze calls after first preview = %d, want 2", analyze.analyzeCalls)
	}

	// Second preview must hit the cached score without a provider call.
	again, err := o.PreviewResume(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("second PreviewResume() error = %v", err)
	}
	if analyze.analyzeCalls != 2 {
		t.Errorf("analyze calls after cached preview = %d, want 2", analyze.analyzeCalls)
	}
	if again.ScoreComparison != preview.ScoreComparison {
		t.Errorf("cached preview scores = %+v, want %+v", again.ScoreComparison, preview.ScoreComparison)
	}

	var record types.ATSRecord
	if err := store.Read(context.Background(), session.NamespaceATS, result.SessionID, &record); err != nil {
		t.Fatalf("reading record: %v", err)
	}
	if record.OptimizedATSAnalysis == nil || record.OptimizedATSAnalysis.TotalATSScore != 80 {
		t.Errorf("cached optimized analysis = %+v, want score 80", record.OptimizedATSAnalysis)
	}
}

func TestRegenerateATSClearsOptimizedScore(t *testing.T) {
	analyze := &fakeGenerator{scores: []float64{50, 75, 60, 90}}
	optimize := &fakeGenerator{optimization: types.OptimizationResult{ImprovedResumeText: "improved"}}
	o, store := newTestOrchestrator(t, Providers{Analyze: analyze, Optimize: optimize})

	result, err := o.RunATS(context.Background(), "resume", "job")
	if err != nil {
		t.Fatalf("RunATS() error = %v", err)
	}
	if _, err := o.PreviewResume(context.Background(), result.SessionID); err != nil {
		t.Fatalf("PreviewResume() error = %v", err)
	}

	regen, err := o.RegenerateATS(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("RegenerateATS() error = %v", err)
	}
	if regen.SessionID != result.SessionID {
		t.Errorf("regenerated session id = %q, want %q", regen.SessionID, result.SessionID)
	}
	if regen.ATSAnalysis.TotalATSScore != 60 {
		t.Errorf("regenerated score = %v, want 60", regen.ATSAnalysis.TotalATSScore)
	}

	var record types.ATSRecord
	if err := store.Read(context.Background(), session.NamespaceATS, result.SessionID, &record); err != nil {
		t.Fatalf("reading record: %v", err)
	}
	if record.OptimizedATSAnalysis != nil {
		t.Error("regeneration must clear the cached optimized analysis")
	}

	// The next preview re-scores the fresh optimization.
	preview, err := o.PreviewResume(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("PreviewResume() after regenerate error = %v", err)
	}
	if preview.ScoreComparison.OriginalScore != 60 || preview.ScoreComparison.OptimizedScore != 90 {
		t.Errorf("post-regenerate scores = %+v, want 60/90", preview.ScoreComparison)
	}
}

func TestRegenerateATSUnknownSession(t *testing.T) {
	o, _ := newTestOrchestrator(t, Providers{Analyze: &fakeGenerator{}, Optimize: &fakeGenerator{}})

	_, err := o.RegenerateATS(context.Background(), "missing")
	if !liftErrors.IsCode(err, liftErrors.ErrCodeSessionNotFound) {
		t.Errorf("RegenerateATS(missing) error = %v, want SESSION_NOT_FOUND", err)
	}
}

func TestCoverLetterWorkflow(t *testing.T) {
	coverLetter := &fakeGenerator{letter: types.CoverLetterResult{CoverLetterText: "Dear Hiring Manager,"}}
	o, _ := newTestOrchestrator(t, Providers{CoverLetter: coverLetter})

	result, err := o.RunCoverLetter(context.Background(), "resume", "job")
	if err != nil {
		t.Fatalf("RunCoverLetter() error = %v", err)
	}
	if result.CoverLetter != "Dear Hiring Manager," {
		t.Errorf("cover letter = %q", result.CoverLetter)
	}

	preview, err := o.PreviewCoverLetter(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("PreviewCoverLetter() error = %v", err)
	}
	if preview.Content != "Dear Hiring Manager," {
		t.Errorf("preview content = %q", preview.Content)
	}

	coverLetter.letter = types.CoverLetterResult{CoverLetterText: "Dear Team,"}
	regen, err := o.RegenerateCoverLetter(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("RegenerateCoverLetter() error = %v", err)
	}
	if regen.CoverLetter != "Dear Team," {
		t.Errorf("regenerated letter = %q, want Dear Team,", regen.CoverLetter)
	}

	preview, err = o.PreviewCoverLetter(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("PreviewCoverLetter() after regenerate error = %v", err)
	}
	if preview.Content != "Dear Team," {
		t.Errorf("preview after regenerate = %q, want Dear Team,", preview.Content)
	}
}

func TestNamespacesShareSessionIDSpace(t *testing.T) {
	analyze := &fakeGenerator{}
	optimize := &fakeGenerator{optimization: types.OptimizationResult{ImprovedResumeText: "improved"}}
	coverLetter := &fakeGenerator{letter: types.CoverLetterResult{CoverLetterText: "letter"}}
	o, _ := newTestOrchestrator(t, Providers{Analyze: analyze, Optimize: optimize, CoverLetter: coverLetter})
	o.newID = func() string { return "shared-id" }

	if _, err := o.RunATS(context.Background(), "resume", "job"); err != nil {
		t.Fatalf("RunATS() error = %v", err)
	}
	if _, err := o.RunCoverLetter(context.Background(), "resume", "job"); err != nil {
		t.Fatalf("RunCoverLetter() with same id error = %v", err)
	}

	resume, err := o.DownloadContent(context.Background(), types.DocumentResume, "shared-id")
	if err != nil || resume != "improved" {
		t.Errorf("DownloadContent(resume) = (%q, %v), want improved", resume, err)
	}
	letter, err := o.DownloadContent(context.Background(), types.DocumentCoverLetter, "shared-id")
	if err != nil || letter != "letter" {
		t.Errorf("DownloadContent(cover_letter) = (%q, %v), want letter", letter, err)
	}
}

func TestDownloadContentErrors(t *testing.T) {
	o, _ := newTestOrchestrator(t, Providers{})

	if _, err := o.DownloadContent(context.Background(), types.DocumentResume, "missing"); !liftErrors.IsCode(err, liftErrors.ErrCodeSessionNotFound) {
		t.Errorf("missing session: error = %v, want SESSION_NOT_FOUND", err)
	}
	if _, err := o.DownloadContent(context.Background(), types.DocumentKind("letterhead"), "any"); !liftErrors.IsCode(err, liftErrors.ErrCodeInvalidRequest) {
		t.Errorf("unknown kind: error = %v, want INVALID_REQUEST", err)
	}
}

// A regenerate that lands while a preview is still scoring must win: the
// in-flight score was computed from the replaced optimization and may not
// survive on the new record.
func TestRegenerateDuringPreviewDoesNotCacheStaleScore(t *testing.T) {
	scoringStarted := make(chan struct{})
	releaseScoring := make(chan struct{})

	analyze := &fakeGenerator{scores: []float64{55, 80, 60, 90}}
	analyze.analyzeHook = func(call int) {
		if call == 2 { // the first preview's re-scoring pass
			close(scoringStarted)
			<-releaseScoring
		}
	}
	optimize := &fakeGenerator{optimization: types.OptimizationResult{ImprovedResumeText: "first draft"}}
	o, store := newTestOrchestrator(t, Providers{Analyze: analyze, Optimize: optimize})

	result, err := o.RunATS(context.Background(), "resume", "job")
	if err != nil {
		t.Fatalf("RunATS() error = %v", err)
	}

	type previewResult struct {
		preview *types.ResumePreview
		err     error
	}
	previewDone := make(chan previewResult, 1)
	go func() {
		p, err := o.PreviewResume(context.Background(), result.SessionID)
		previewDone <- previewResult{p, err}
	}()

	// Replace the optimization while the preview's provider call is stalled.
	<-scoringStarted
	optimize.setOptimization(types.OptimizationResult{ImprovedResumeText: "second draft"})
	if _, err := o.RegenerateATS(context.Background(), result.SessionID); err != nil {
		t.Fatalf("RegenerateATS() error = %v", err)
	}
	close(releaseScoring)

	got := <-previewDone
	if got.err != nil {
		t.Fatalf("concurrent PreviewResume() error = %v", got.err)
	}
	// The stalled preview still answers for the text it scored.
	if got.preview.Content != "first draft" || got.preview.ScoreComparison.OptimizedScore != 80 {
		t.Errorf("in-flight preview = %q/%v, want first draft/80",
			got.preview.Content, got.preview.ScoreComparison.OptimizedScore)
	}

	// The regenerated record must not carry the superseded score.
	var record types.ATSRecord
	if err := store.Read(context.Background(), session.NamespaceATS, result.SessionID, &record); err != nil {
		t.Fatalf("reading record: %v", err)
	}
	if record.OptimizedATSAnalysis != nil {
		t.Fatalf("stale optimized analysis cached onto regenerated record: %+v", record.OptimizedATSAnalysis)
	}

	// The next preview re-scores the regenerated text and caches that.
	preview, err := o.PreviewResume(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("PreviewResume() after regenerate error = %v", err)
	}
	if preview.Content != "second draft" {
		t.Errorf("post-regenerate content = %q, want second draft", preview.Content)
	}
	if preview.ScoreComparison.OriginalScore != 60 || preview.ScoreComparison.OptimizedScore != 90 {
		t.Errorf("post-regenerate scores = %+v, want 60/90", preview.ScoreComparison)
	}
	if analyze.analyzeCalls != 4 {
		t.Errorf("analyze calls = %d, want 4", analyze.analyzeCalls)
	}
}
