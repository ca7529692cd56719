// Package extractor runs the external dependency analyzer and turns its
// JSON report into a dependency graph.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"archlens/internal/config"
	"archlens/internal/depgraph"
	archerrors "archlens/internal/errors"
	"archlens/internal/project"
	"archlens/internal/slogutil"
)

// DefaultTimeout applies when Extract is called without a timeout.
const DefaultTimeout = 60 * time.Second

// violationExitFix is suggested when an analyzer signals violations through its exit code.
var violationExitFix = archerrors.FixAction{
	Type:        archerrors.EditConfig,
	Description: "Analyzer reports violations through its exit code; use the bundled analyzer (--builtin or analyzer.builtin) or configure it to exit 0 after writing JSON",
	Command:     "archlens analyze --builtin",
	Safe:        true,
}

// maxStderrDetail caps the stderr kept in error details.
const maxStderrDetail = 4096

// Extractor runs an analyzer binary and decodes its report.
type Extractor struct {
	Runner            ExecRunner
	Command           string
	Args              []string
	ConfigArgs        []string
	VersionConstraint string
	Env               []string
	Logger            *slog.Logger
}

// New creates an Extractor from analyzer configuration. When cfg.Builtin is
// set the running archlens binary is used through its scan command.
func New(cfg config.AnalyzerConfig, logger *slog.Logger) *Extractor {
	e := &Extractor{
		Runner:            NewRealRunner(),
		Command:           cfg.Command,
		Args:              cfg.Args,
		ConfigArgs:        cfg.ConfigArgs,
		VersionConstraint: cfg.VersionConstraint,
		Logger:            slogutil.OrDiscard(logger),
	}
	if cfg.Builtin {
		e.Command, e.Args, e.ConfigArgs = BuiltinCommand()
	}
	return e
}

// BuiltinCommand returns the invocation of the bundled scan command.
func BuiltinCommand() (string, []string, []string) {
	self, err := os.Executable()
	if err != nil {
		self = "archlens"
	}
	return self, []string{"scan"}, []string{"--config", config.ConfigPlaceholder}
}

// Invocation returns the argument list used for root.
// Config args are only included when the project has a rule document.
func (e *Extractor) Invocation(root string, desc *project.Descriptor) []string {
	args := append([]string{}, e.Args...)
	if desc != nil && desc.HasRuleConfig() {
		for _, a := range e.ConfigArgs {
			args = append(args, strings.ReplaceAll(a, config.ConfigPlaceholder, desc.RuleConfig))
		}
	}
	return append(args, root)
}

// Extract runs the analyzer against root and builds the dependency graph.
//
// Errors carry one of the analysis codes: TOOL_UNAVAILABLE when the binary
// cannot be started, ANALYSIS_TIMEOUT when timeout elapses, ANALYSIS_FAILED
// on a non-zero exit and MALFORMED_OUTPUT when stdout is not a report.
func (e *Extractor) Extract(ctx context.Context, root string, desc *project.Descriptor, timeout time.Duration) (*depgraph.Graph, *Document, error) {
	logger := slogutil.OrDiscard(e.Logger)
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	constraint, err := parseConstraint(e.VersionConstraint)
	if err != nil {
		return nil, nil, archerrors.New(archerrors.AnalysisFailed, "invalid analyzer.versionConstraint", err)
	}

	runner := e.Runner
	if runner == nil {
		runner = NewRealRunner()
	}

	bin, err := runner.LookPath(e.Command)
	if err != nil {
		return nil, nil, archerrors.New(archerrors.ToolUnavailable,
			fmt.Sprintf("analyzer %q not found", e.Command), err).
			WithDetails(map[string]any{"command": e.Command})
	}

	args := e.Invocation(root, desc)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Debug("Running analyzer", "command", bin, "args", strings.Join(args, " "), "dir", root, "timeout", timeout)
	start := time.Now()
	res, runErr := runner.Run(runCtx, Command{Name: bin, Args: args, Dir: root, Env: e.Env})
	elapsed := time.Since(start)

	if runErr != nil {
		return nil, nil, e.classifyRunError(runCtx, runErr, res, timeout)
	}

	doc, err := DecodeDocument(res.Stdout)
	if err != nil {
		logger.Warn("Analyzer produced malformed output", "command", e.Command, "bytes", len(res.Stdout), "error", err.Error())
		return nil, nil, archerrors.New(archerrors.MalformedOutput, "analyzer output is not a dependency report", err).
			WithDetails(map[string]any{"stdout_bytes": len(res.Stdout), "stderr": tail(res.Stderr)})
	}

	if err := checkVersion(doc.Analyzer, constraint); err != nil {
		return nil, nil, archerrors.New(archerrors.ToolUnavailable, "analyzer version not supported", err)
	}

	g := doc.Graph(root)
	logger.Debug("Analyzer finished",
		"duration_ms", elapsed.Milliseconds(),
		"modules", g.ModuleCount(),
		"edges", g.EdgeCount(),
	)
	return g, doc, nil
}

func (e *Extractor) classifyRunError(ctx context.Context, err error, res Result, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return archerrors.New(archerrors.AnalysisTimeout,
			fmt.Sprintf("analyzer did not finish within %s", timeout), err).
			WithDetails(map[string]any{"timeout_ms": timeout.Milliseconds()})
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return archerrors.New(archerrors.AnalysisFailed, "analysis cancelled", ctx.Err())
	}

	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if _, decodeErr := DecodeDocument(res.Stdout); decodeErr == nil {
			// a complete report plus a non-zero exit: the analyzer counts violations in its exit code
			failed := archerrors.New(archerrors.AnalysisFailed,
				fmt.Sprintf("analyzer exited with code %d after writing a report", code), err).
				WithDetails(map[string]any{"exit_code": code, "report_on_stdout": true, "stderr": tail(res.Stderr)})
			failed.SuggestedFixes = append(failed.SuggestedFixes, violationExitFix)
			return failed
		}
		return archerrors.New(archerrors.AnalysisFailed,
			fmt.Sprintf("analyzer exited with code %d", code), err).
			WithDetails(map[string]any{"exit_code": code, "stderr": tail(res.Stderr)})
	}

	return archerrors.New(archerrors.ToolUnavailable,
		fmt.Sprintf("analyzer %q could not be started", e.Command), err)
}

// tail returns the last maxStderrDetail bytes of b as trimmed text.
func tail(b []byte) string {
	if len(b) > maxStderrDetail {
		b = b[len(b)-maxStderrDetail:]
	}
	return strings.TrimSpace(string(b))
}
