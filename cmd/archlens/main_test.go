package main

import (
	"bytes"
	"strings"
	"testing"
)

// execute runs the root command with args and returns everything written to
// stdout and stderr along with the resulting exit code.
func execute(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		analyzeFormat = "human"
	})

	code := exitOK
	if err := rootCmd.Execute(); err != nil {
		code = reportError(&out, err)
	}
	return out.String(), code
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{"unknown flag", []string{"analyze", "--bogus"}, exitUsage, "unknown flag: --bogus"},
		{"unknown command", []string{"analyse"}, exitUsage, `unknown command "analyse"`},
		{"bad format", []string{"analyze", "--format=xml"}, exitUsage, `unsupported format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, code := execute(t, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(out, "Error: ") || !strings.Contains(out, tt.wantMsg) {
				t.Errorf("output %q does not report %q", out, tt.wantMsg)
			}
			if strings.Contains(out, "Usage:") {
				t.Errorf("output should not include usage text:\n%s", out)
			}
		})
	}
}

func TestReportErrorExitError(t *testing.T) {
	var buf bytes.Buffer
	if code := reportError(&buf, &exitError{code: exitViolations}); code != exitViolations {
		t.Errorf("code = %d, want %d", code, exitViolations)
	}
	if buf.Len() != 0 {
		t.Errorf("an exitError without cause printed %q", buf.String())
	}
}
