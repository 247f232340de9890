package prompt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RiskEntry is one predefined risk the model may select.
type RiskEntry struct {
	Name         string `yaml:"name"`
	BaseSeverity int    `yaml:"baseSeverity"`
	Mitigation   string `yaml:"mitigation"`
	TargetDate   string `yaml:"targetDate"`
}

// ControlEntry is one control of the official control list.
type ControlEntry struct {
	Code         string `yaml:"code"`
	Section      string `yaml:"section"`
	Control      string `yaml:"control"`
	Requirements string `yaml:"requirements"`
}

// Library holds the risks and controls the prompts are built from.
type Library struct {
	Risks    []RiskEntry    `yaml:"risks"`
	Controls []ControlEntry `yaml:"controls"`
}

// DefaultLibrary is used when no library file is configured.
func DefaultLibrary() Library {
	return Library{
		Risks: []RiskEntry{
			{Name: "Data privacy breach", BaseSeverity: 4, Mitigation: "Encrypt personal data and restrict access", TargetDate: "30 days"},
			{Name: "Training data bias", BaseSeverity: 3, Mitigation: "Audit datasets and monitor fairness metrics", TargetDate: "60 days"},
			{Name: "Model drift", BaseSeverity: 3, Mitigation: "Monitor performance and schedule retraining", TargetDate: "90 days"},
			{Name: "Unauthorised access", BaseSeverity: 4, Mitigation: "Enforce multi-factor authentication", TargetDate: "30 days"},
			{Name: "Regulatory non-compliance", BaseSeverity: 4, Mitigation: "Run a regulatory gap assessment", TargetDate: "60 days"},
			{Name: "Lack of human oversight", BaseSeverity: 3, Mitigation: "Define human review checkpoints", TargetDate: "45 days"},
			{Name: "Vulnerable dependencies", BaseSeverity: 2, Mitigation: "Run regular vulnerability scans", TargetDate: "30 days"},
		},
		Controls: []ControlEntry{
			{Code: "AC-001", Section: "Access Control", Control: "User Authentication", Requirements: "Implement multi-factor authentication for all users"},
			{Code: "DM-001", Section: "Data Management", Control: "Data Encryption", Requirements: "Encrypt sensitive data at rest and in transit"},
			{Code: "AI-001", Section: "AI Governance", Control: "Model Validation", Requirements: "Validate AI models before deployment"},
			{Code: "SC-001", Section: "Security", Control: "Vulnerability Assessment", Requirements: "Conduct regular security assessments"},
			{Code: "CM-001", Section: "Compliance", Control: "Regulatory Compliance", Requirements: "Ensure compliance with relevant regulations"},
		},
	}
}

// LoadLibrary reads a YAML library. Sections missing from the file keep
// their defaults; an empty path returns DefaultLibrary.
func LoadLibrary(path string) (Library, error) {
	lib := DefaultLibrary()
	if path == "" {
		return lib, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Library{}, fmt.Errorf("read library: %w", err)
	}
	var file Library
	if err := yaml.Unmarshal(b, &file); err != nil {
		return Library{}, fmt.Errorf("parse library: %w", err)
	}
	if len(file.Risks) > 0 {
		lib.Risks = file.Risks
	}
	if len(file.Controls) > 0 {
		lib.Controls = file.Controls
	}
	return lib, nil
}
