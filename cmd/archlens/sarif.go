package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"runtime"

	"archlens/internal/rules"
	"archlens/internal/violations"
)

// SARIF 2.1.0 schema types
// See: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

// SARIFReport is the top-level SARIF document.
type SARIFReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single analysis run.
type SARIFRun struct {
	Tool        SARIFTool         `json:"tool"`
	Results     []SARIFResult     `json:"results"`
	Invocations []SARIFInvocation `json:"invocations,omitempty"`
}

// SARIFTool describes the analysis tool.
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver describes the primary analysis component.
type SARIFDriver struct {
	Name            string      `json:"name"`
	Version         string      `json:"version,omitempty"`
	Rules           []SARIFRule `json:"rules,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
}

// SARIFRule describes a rule that detected an issue.
type SARIFRule struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	ShortDescription     *SARIFMessage           `json:"shortDescription,omitempty"`
	DefaultConfiguration *SARIFRuleConfiguration `json:"defaultConfiguration,omitempty"`
	Properties           map[string]interface{}  `json:"properties,omitempty"`
}

// SARIFRuleConfiguration describes the default configuration for a rule.
type SARIFRuleConfiguration struct {
	Level string `json:"level,omitempty"` // error, warning, note, none
}

// SARIFResult represents a single finding.
type SARIFResult struct {
	RuleID       string                 `json:"ruleId"`
	RuleIndex    int                    `json:"ruleIndex"`
	Level        string                 `json:"level,omitempty"`
	Message      SARIFMessage           `json:"message"`
	Locations    []SARIFLocation        `json:"locations,omitempty"`
	Fingerprints map[string]string      `json:"fingerprints,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// SARIFMessage contains text in various formats.
type SARIFMessage struct {
	Text string `json:"text,omitempty"`
}

// SARIFLocation describes where a result was found.
type SARIFLocation struct {
	PhysicalLocation *SARIFPhysicalLocation `json:"physicalLocation,omitempty"`
}

// SARIFPhysicalLocation identifies a file.
type SARIFPhysicalLocation struct {
	ArtifactLocation *SARIFArtifactLocation `json:"artifactLocation,omitempty"`
}

// SARIFArtifactLocation identifies a file.
type SARIFArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SARIFInvocation describes a single invocation of the tool.
type SARIFInvocation struct {
	ExecutionSuccessful        bool                   `json:"executionSuccessful"`
	WorkingDirectory           *SARIFArtifactLocation `json:"workingDirectory,omitempty"`
	Machine                    string                 `json:"machine,omitempty"`
	ToolExecutionNotifications []SARIFNotification    `json:"toolExecutionNotifications,omitempty"`
}

// SARIFNotification reports a tool failure.
type SARIFNotification struct {
	Level   string       `json:"level"`
	Message SARIFMessage `json:"message"`
}

var typeDescriptions = map[violations.Type]string{
	violations.TypeCircular:   "Module is part of an import cycle",
	violations.TypeLayer:      "Module imports across a forbidden layer boundary",
	violations.TypeEntryBloat: "Module has too many direct dependencies",
}

// formatWarningsAsSARIF converts analyze results to SARIF, one run per root.
func formatWarningsAsSARIF(results []analyzeResult, version string) (string, error) {
	report := SARIFReport{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs:    make([]SARIFRun, 0, len(results)),
	}

	for _, r := range results {
		run := SARIFRun{
			Tool: SARIFTool{Driver: SARIFDriver{
				Name:            "archlens",
				Version:         version,
				SemanticVersion: version,
			}},
			Results: []SARIFResult{},
		}
		invocation := SARIFInvocation{
			ExecutionSuccessful: r.Err == nil,
			WorkingDirectory:    &SARIFArtifactLocation{URI: r.Root},
			Machine:             runtime.GOOS + "/" + runtime.GOARCH,
		}

		if r.Err != nil {
			invocation.ToolExecutionNotifications = []SARIFNotification{
				{Level: "error", Message: SARIFMessage{Text: r.Err.Error()}},
			}
		} else {
			ruleIndex := make(map[string]int)
			for _, w := range r.Report.Warnings {
				ruleID := sarifRuleID(w)
				if _, ok := ruleIndex[ruleID]; !ok {
					ruleIndex[ruleID] = len(run.Tool.Driver.Rules)
					run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, SARIFRule{
						ID:                   ruleID,
						Name:                 w.Rule,
						ShortDescription:     &SARIFMessage{Text: typeDescriptions[w.Type]},
						DefaultConfiguration: &SARIFRuleConfiguration{Level: severityToSARIFLevel(w.Severity)},
						Properties: map[string]interface{}{
							"tags": []string{"architecture", string(w.Type)},
						},
					})
				}
				run.Results = append(run.Results, SARIFResult{
					RuleID:    ruleID,
					RuleIndex: ruleIndex[ruleID],
					Level:     severityToSARIFLevel(w.Severity),
					Message:   SARIFMessage{Text: w.Message},
					Locations: []SARIFLocation{{
						PhysicalLocation: &SARIFPhysicalLocation{
							ArtifactLocation: &SARIFArtifactLocation{URI: w.Path, URIBaseID: "%SRCROOT%"},
						},
					}},
					Fingerprints: map[string]string{"archlens/v1": generateFingerprint(w)},
					Properties:   map[string]interface{}{"fileId": w.FileID},
				})
			}
		}
		run.Invocations = []SARIFInvocation{invocation}
		report.Runs = append(report.Runs, run)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal SARIF: %w", err)
	}
	return string(data), nil
}

func sarifRuleID(w violations.Warning) string {
	name := w.Rule
	if name == "" {
		name = string(w.Type)
	}
	return "archlens/" + name
}

// severityToSARIFLevel converts a rule severity to a SARIF level.
func severityToSARIFLevel(s rules.Severity) string {
	switch s {
	case rules.SeverityError:
		return "error"
	case rules.SeverityWarn:
		return "warning"
	case rules.SeverityInfo:
		return "note"
	default:
		return "warning"
	}
}

// generateFingerprint creates a stable fingerprint for deduplication.
func generateFingerprint(w violations.Warning) string {
	data := fmt.Sprintf("%s:%s:%s", w.Type, w.Path, w.Rule)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}
