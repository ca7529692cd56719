// Package architecture runs the full analysis pipeline: project descriptor,
// analyzer extraction, rule evaluation, classification and identity resolution.
package architecture

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"archlens/internal/config"
	archerrors "archlens/internal/errors"
	"archlens/internal/extractor"
	"archlens/internal/identity"
	"archlens/internal/project"
	"archlens/internal/rules"
	"archlens/internal/slogutil"
	"archlens/internal/violations"
)

// Analyzer produces architecture warnings for a project. It keeps no
// per-run state; one Analyzer may serve concurrent runs.
type Analyzer struct {
	Config    *config.Config
	Extractor *extractor.Extractor
	Cache     *DescriptorCache
	Logger    *slog.Logger
}

// NewAnalyzer creates an analyzer from configuration.
func NewAnalyzer(cfg *config.Config, logger *slog.Logger) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger = slogutil.OrDiscard(logger)
	return &Analyzer{
		Config:    cfg,
		Extractor: extractor.New(cfg.Analyzer, logger),
		Logger:    logger,
	}
}

// Analyze returns the warnings for root, keeping only modules present in ids.
// On error no warnings are returned.
func (a *Analyzer) Analyze(ctx context.Context, root string, ids map[string]string) ([]violations.Warning, error) {
	if ids == nil {
		ids = map[string]string{}
	}
	report, err := a.Run(ctx, Request{Root: root, IDs: ids})
	if err != nil {
		return nil, err
	}
	return report.Warnings, nil
}

// Run executes one analysis and returns its report.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Report, error) {
	logger := slogutil.OrDiscard(a.Logger)
	started := time.Now()
	runID := uuid.NewString()
	logger = logger.With("run", runID)

	desc, err := a.descriptor(req, logger)
	if err != nil {
		return nil, err
	}

	rs, err := a.ruleSet(desc)
	if err != nil {
		return nil, err
	}
	engine, err := rules.NewEngine(rs)
	if err != nil {
		return nil, archerrors.New(archerrors.AnalysisFailed, "invalid rule set", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.Config.Timeout()
	}

	g, doc, err := a.Extractor.Extract(ctx, desc.Root, desc, timeout)
	if err != nil {
		logger.Warn("Architecture analysis unavailable", "root", desc.Root, "code", string(archerrors.CodeOf(err)), "error", err.Error())
		return nil, err
	}
	g.TrustAnnotations(rs.Options.TrustToolCycles)

	findings := engine.Evaluate(g)
	classified := violations.Classify(findings, violations.Options{
		DefaultSeverity:    rules.SeverityError,
		EntryBloatSeverity: rs.Options.EntryBloat.Severity,
	})

	ids := req.IDs
	if ids == nil {
		ids = identity.PathIdentity(desc.Root, g)
	}
	warnings := identity.NewResolver(desc.Root, ids).Resolve(classified)

	report := &Report{
		RunID:     runID,
		Root:      desc.Root,
		Project:   desc,
		StartedAt: started,
		Duration:  time.Since(started),
		Warnings:  warnings,
		Entries:   DetectEntrypoints(desc, g),
		RuleSet:   rs,
		Document:  doc,
		Analyzer:  doc.Analyzer,
		Stats: Stats{
			Modules:      g.ModuleCount(),
			Edges:        g.EdgeCount(),
			CycleMembers: len(g.CycleMembers()),
			Findings:     len(findings),
			Classified:   len(classified),
			Dropped:      len(classified) - len(warnings),
			ByType:       violations.Counts(warnings),
		},
	}

	logger.Info("Architecture analysis complete",
		"root", desc.Root,
		"modules", report.Stats.Modules,
		"edges", report.Stats.Edges,
		"warnings", len(warnings),
		"dropped", report.Stats.Dropped,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (a *Analyzer) descriptor(req Request, logger *slog.Logger) (*project.Descriptor, error) {
	ruleConfig := req.RuleConfig
	if ruleConfig == "" {
		ruleConfig = a.Config.Rules.ConfigFile
	}

	if a.Cache != nil && ruleConfig == "" {
		if desc, ok := a.Cache.Get(req.Root); ok {
			logger.Debug("Using cached project descriptor", "root", desc.Root)
			return desc, nil
		}
	}

	desc, err := project.LoadDescriptorWith(req.Root, project.LoadOptions{RuleConfig: ruleConfig, Logger: logger})
	if err != nil {
		return nil, err
	}
	if a.Cache != nil && ruleConfig == "" {
		a.Cache.Set(desc)
	}
	return desc, nil
}

// ruleSet merges the built-in rules with the project's rule document.
func (a *Analyzer) ruleSet(desc *project.Descriptor) (rules.RuleSet, error) {
	base := rules.DefaultOptions()
	base.EntryBloat.Threshold = a.Config.Rules.EntryBloatThreshold

	user := rules.RuleSet{Options: base}
	if desc.HasRuleConfig() {
		loaded, err := rules.LoadWith(desc.RuleConfig, base)
		if err != nil {
			return rules.RuleSet{}, err
		}
		user = loaded
	}
	return rules.Merge(rules.Defaults(), user), nil
}

// EffectiveRuleSet returns the merged rule set that Run would use for root.
func (a *Analyzer) EffectiveRuleSet(root, ruleConfig string) (rules.RuleSet, *project.Descriptor, error) {
	desc, err := a.descriptor(Request{Root: root, RuleConfig: ruleConfig}, slogutil.OrDiscard(a.Logger))
	if err != nil {
		return rules.RuleSet{}, nil, err
	}
	rs, err := a.ruleSet(desc)
	return rs, desc, err
}
