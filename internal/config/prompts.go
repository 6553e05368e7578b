package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"resumelift/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// Operation names used to key prompt overrides.
const (
	OperationAnalyze     = "analyze"
	OperationOptimize    = "optimize"
	OperationCoverLetter = "cover_letter"
)

// PromptOverrides holds prompt content resolved for one operation.
// Empty fields mean the built-in defaults apply.
type PromptOverrides struct {
	SystemPrompt string
	Template     string
}

var (
	promptStoreMu sync.RWMutex
	promptStore   = map[string]PromptOverrides{}
)

// templatePlaceholders lists the exact placeholder set each operation's
// template must carry. The request path substitutes all of these and
// nothing else, so an override template with an unknown {name} would go
// to the model unrendered, and one missing a name would fail at request
// time.
var templatePlaceholders = map[string][]string{
	OperationAnalyze:     {"format_instructions", "job_description", "resume_text"},
	OperationOptimize:    {"ats_analysis", "format_instructions", "job_description", "resume_text"},
	OperationCoverLetter: {"current_date", "format_instructions", "job_description", "resume_text"},
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// validateTemplate checks an override template's placeholder set against
// the one the operation substitutes.
func validateTemplate(operation, template string) error {
	required, ok := templatePlaceholders[operation]
	if !ok {
		return fmt.Errorf("unknown prompt operation %q", operation)
	}

	found := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		found[m[1]] = true
	}

	var missing, unknown []string
	for _, name := range required {
		if found[name] {
			delete(found, name)
			continue
		}
		missing = append(missing, name)
	}
	for name := range found {
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)

	if len(missing) > 0 {
		return fmt.Errorf("template for %s is missing placeholder(s) {%s}",
			operation, strings.Join(missing, "}, {"))
	}
	if len(unknown) > 0 {
		return fmt.Errorf("template for %s uses unknown placeholder(s) {%s}",
			operation, strings.Join(unknown, "}, {"))
	}
	return nil
}

// GetPromptOverrides returns a copy of the loaded prompt overrides for an
// operation. Safe for concurrent use with the prompt watcher.
func GetPromptOverrides(operation string) PromptOverrides {
	promptStoreMu.RLock()
	defer promptStoreMu.RUnlock()
	return promptStore[operation]
}

func setPromptOverrides(operation string, overrides PromptOverrides) {
	promptStoreMu.Lock()
	defer promptStoreMu.Unlock()
	promptStore[operation] = overrides
}

// promptFileRef ties a watched file path to the override field it feeds.
type promptFileRef struct {
	operation string
	kind      string // "system" or "template"
	path      string
}

// LoadPromptOverrides resolves prompt overrides for all operations from
// inline config values and override files, populating the prompt store.
// Inline values win over file content.
func (c *Config) LoadPromptOverrides() error {
	for op, pc := range c.promptConfigs() {
		overrides, err := resolvePromptOverrides(op, pc)
		if err != nil {
			return fmt.Errorf("loading prompts for %s: %w", op, err)
		}
		setPromptOverrides(op, overrides)
	}
	return nil
}

func (c *Config) promptConfigs() map[string]PromptConfig {
	return map[string]PromptConfig{
		OperationAnalyze:     c.AI.Analyze.Prompts,
		OperationOptimize:    c.AI.Optimize.Prompts,
		OperationCoverLetter: c.AI.CoverLetter.Prompts,
	}
}

func resolvePromptOverrides(operation string, pc PromptConfig) (PromptOverrides, error) {
	var overrides PromptOverrides

	switch {
	case pc.SystemPrompt != "":
		overrides.SystemPrompt = pc.SystemPrompt
	case pc.SystemPromptFile != "":
		content, err := readPromptFile(pc.SystemPromptFile)
		if err != nil {
			return overrides, err
		}
		overrides.SystemPrompt = content
	}

	switch {
	case pc.Template != "":
		overrides.Template = pc.Template
	case pc.TemplateFile != "":
		content, err := readPromptFile(pc.TemplateFile)
		if err != nil {
			return overrides, err
		}
		overrides.Template = content
	}

	if overrides.Template != "" {
		if err := validateTemplate(operation, overrides.Template); err != nil {
			return overrides, err
		}
	}
	return overrides, nil
}

func readPromptFile(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving prompt file path %q: %w", path, err)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("reading prompt file %q: %w", absPath, err)
	}
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("prompt file %q is empty", absPath)
	}
	return trimmed, nil
}

// PromptWatcher reloads prompt override files when they change on disk, so
// operators can tune prompts without restarting the service.
type PromptWatcher struct {
	watcher *fsnotify.Watcher
	refs    map[string][]promptFileRef // keyed by cleaned file path
	logger  *errors.Logger
	done    chan struct{}
	once    sync.Once
}

// NewPromptWatcher starts watching all configured prompt override files.
// Returns nil (and no error) when no files are configured.
func NewPromptWatcher(cfg *Config, logger *errors.Logger) (*PromptWatcher, error) {
	refs := make(map[string][]promptFileRef)
	for op, pc := range cfg.promptConfigs() {
		// Inline values shadow files, so only watch files actually in use.
		if pc.SystemPrompt == "" && pc.SystemPromptFile != "" {
			p := filepath.Clean(pc.SystemPromptFile)
			refs[p] = append(refs[p], promptFileRef{operation: op, kind: "system", path: p})
		}
		if pc.Template == "" && pc.TemplateFile != "" {
			p := filepath.Clean(pc.TemplateFile)
			refs[p] = append(refs[p], promptFileRef{operation: op, kind: "template", path: p})
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating prompt file watcher: %w", err)
	}

	// Watch parent directories so atomic rename-style saves are seen.
	dirs := make(map[string]struct{})
	for path := range refs {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watching prompt directory %q: %w", dir, err)
		}
	}

	pw := &PromptWatcher{
		watcher: watcher,
		refs:    refs,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go pw.run()

	logger.Info("Prompt file watcher started", "files", len(refs))
	return pw, nil
}

func (pw *PromptWatcher) run() {
	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			refs, watched := pw.refs[filepath.Clean(event.Name)]
			if !watched {
				continue
			}
			pw.reload(refs)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warn("Prompt file watcher error", "error", err.Error())
		case <-pw.done:
			return
		}
	}
}

func (pw *PromptWatcher) reload(refs []promptFileRef) {
	for _, ref := range refs {
		content, err := readPromptFile(ref.path)
		if err == nil && ref.kind == "template" {
			err = validateTemplate(ref.operation, content)
		}
		if err != nil {
			// Keep serving the previous content on a bad reload.
			pw.logger.LogError(err, "Prompt file reload failed",
				"operation", ref.operation,
				"kind", ref.kind,
				"path", ref.path)
			continue
		}

		current := GetPromptOverrides(ref.operation)
		switch ref.kind {
		case "system":
			current.SystemPrompt = content
		case "template":
			current.Template = content
		}
		setPromptOverrides(ref.operation, current)

		pw.logger.Info("Prompt file reloaded",
			"operation", ref.operation,
			"kind", ref.kind,
			"path", ref.path,
			"characters", len(content))
	}
}

// Close stops the watcher.
func (pw *PromptWatcher) Close() error {
	if pw == nil {
		return nil
	}
	var err error
	pw.once.Do(func() {
		close(pw.done)
		err = pw.watcher.Close()
	})
	return err
}
