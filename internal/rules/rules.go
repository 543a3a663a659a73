// Package rules decides which analysis rules are excluded from remediation.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"

	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
)

// DefaultCheckInterval bounds how often a FileProvider stats its file.
const DefaultCheckInterval = 30 * time.Second

// Provider reports whether a rule is excluded.
type Provider interface {
	IsExcluded(ruleID string) bool
	// Rules returns a snapshot of the excluded rule set.
	Rules() mapset.Set[string]
}

// ConfigurationError reports an exclusion file that could not be used.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("exclusion rules %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type staticProvider struct {
	set mapset.Set[string]
}

// Static returns a provider with a fixed rule set.
func Static(ruleIDs ...string) Provider {
	return staticProvider{set: mapset.NewSet(ruleIDs...)}
}

// Nop returns a provider that excludes nothing.
func Nop() Provider {
	return Static()
}

func (p staticProvider) IsExcluded(ruleID string) bool { return p.set.Contains(ruleID) }
func (p staticProvider) Rules() mapset.Set[string]     { return p.set.Clone() }

// file is the on-disk layout of the exclusion file.
type file struct {
	ExcludedRules []string `yaml:"excluded_rules"`
}

// FileProvider serves the rule set stored in a YAML file and reloads it when
// the file's modification time changes. A missing file yields an empty set;
// an unparsable one is logged and also yields an empty set, so no rule is
// skipped because of a broken file.
type FileProvider struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	set         mapset.Set[string]
	modTime     time.Time
	present     bool
	lastCheck   time.Time
	checkedOnce bool
}

// FileOption configures a FileProvider.
type FileOption func(*FileProvider)

// WithCheckInterval sets the minimum gap between file stats. Zero stats the
// file on every lookup.
func WithCheckInterval(d time.Duration) FileOption {
	return func(p *FileProvider) { p.interval = d }
}

// WithLogger sets the logger used for reload and parse messages.
func WithLogger(l *slog.Logger) FileOption {
	return func(p *FileProvider) { p.logger = logging.OrDiscard(l) }
}

// WithClock replaces the clock used to rate-limit file checks.
func WithClock(now func() time.Time) FileOption {
	return func(p *FileProvider) { p.now = now }
}

// NewFileProvider returns a provider backed by path. The file is read
// immediately.
func NewFileProvider(path string, opts ...FileOption) *FileProvider {
	p := &FileProvider{
		path:     path,
		interval: DefaultCheckInterval,
		logger:   logging.Discard(),
		now:      time.Now,
		set:      mapset.NewSet[string](),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "rules")

	p.mu.Lock()
	p.reloadIfChanged()
	p.mu.Unlock()
	return p
}

// IsExcluded reports whether ruleID is in the current rule set.
func (p *FileProvider) IsExcluded(ruleID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reloadIfChanged()
	return p.set.Contains(ruleID)
}

// Rules returns a snapshot of the current rule set.
func (p *FileProvider) Rules() mapset.Set[string] {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reloadIfChanged()
	return p.set.Clone()
}

// Path returns the backing file path.
func (p *FileProvider) Path() string { return p.path }

// reloadIfChanged must be called with p.mu held.
func (p *FileProvider) reloadIfChanged() {
	now := p.now()
	if p.checkedOnce && p.interval > 0 && now.Sub(p.lastCheck) < p.interval {
		return
	}
	p.lastCheck = now
	p.checkedOnce = true

	info, err := os.Stat(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if p.present {
				p.logger.Info("exclusion file removed, no rules excluded", "path", p.path)
			}
			p.present = false
			p.modTime = time.Time{}
			p.set = mapset.NewSet[string]()
			return
		}
		p.logger.Warn("exclusion file unreadable", "err", &ConfigurationError{Path: p.path, Err: err})
		return
	}

	if p.present && info.ModTime().Equal(p.modTime) {
		return
	}

	set, err := load(p.path)
	p.present = true
	p.modTime = info.ModTime()
	if err != nil {
		p.logger.Warn("exclusion file invalid, no rules excluded", "err", &ConfigurationError{Path: p.path, Err: err})
		p.set = mapset.NewSet[string]()
		return
	}
	p.set = set
	p.logger.Info("exclusion rules loaded", "path", p.path, "count", set.Cardinality())
}

func load(path string) (mapset.Set[string], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	set := mapset.NewSet[string]()
	for _, r := range f.ExcludedRules {
		if r != "" {
			set.Add(r)
		}
	}
	return set, nil
}

// Save writes ruleIDs to path in the layout FileProvider reads.
func Save(path string, ruleIDs mapset.Set[string]) error {
	out := file{ExcludedRules: ruleIDs.ToSlice()}
	slices.Sort(out.ExcludedRules)

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding exclusion rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing exclusion rules: %w", err)
	}
	return nil
}
