package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

// RiskMatrixSystemPrompt instructs the model to select and rate risks from lib.
func RiskMatrixSystemPrompt(lib Library) string {
	var names, mitigations, targets []string
	for _, r := range lib.Risks {
		names = append(names, fmt.Sprintf("- %s (base severity %d)", r.Name, r.BaseSeverity))
		mitigations = append(mitigations, fmt.Sprintf("- %s: %s", r.Name, r.Mitigation))
		targets = append(targets, fmt.Sprintf("- %s: %s", r.Name, r.TargetDate))
	}
	return fmt.Sprintf(`You are a risk analysis expert. Here are the risks and metadata:
%s

For each risk that applies:
- Assign OWNER (%q for data risks; %q for security risks; %q for compliance risks).
- Rate SEVERITY as a single digit 1-5 with a one-sentence justification.
- Reference MITIGATION from this map:
%s
- Reference TARGET_DATE from this map:
%s

Output only a Markdown table with columns:
| Risk | Owner | Severity | Justification | Mitigation | Target Date |
Do not include any prefix or explanation text.`,
		strings.Join(names, "\n"),
		assessment.OwnerDataEngineering, assessment.OwnerSecurity, assessment.OwnerCompliance,
		strings.Join(mitigations, "\n"),
		strings.Join(targets, "\n"),
	)
}

// ControlMatrixSystemPrompt instructs the model to map risks onto lib's controls.
func ControlMatrixSystemPrompt(lib Library) string {
	var sb strings.Builder
	sb.WriteString("| CODE | SECTION | CONTROL | REQUIREMENTS |\n|------|---------|---------|--------------|\n")
	for _, c := range lib.Controls {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", c.Code, c.Section, c.Control, c.Requirements)
	}
	return fmt.Sprintf(`You are an expert Control Assessment Agent for AI systems.
Analyze the incoming risk matrix and map appropriate controls to each identified risk.

You MUST select controls from the official list below. Do not invent controls.

Official Control List:
%s
For each risk create an entry in a control matrix:
- Select the most appropriate control(s) from the official list.
- Set STATUS to "Compliant", "In Progress" or "Not Implemented".
- For "In Progress" or "Not Implemented" create a placeholder TICKET (e.g. TICK-123), otherwise "None".

Return a single markdown table with the columns:
| CODE | SECTION | CONTROL | REQUIREMENTS | STATUS | TICKETS |
Do not include any prefix or explanation text.`, sb.String())
}

// RiskMatrixUserPrompt wraps the questionnaire summary.
func RiskMatrixUserPrompt(summary string) string {
	return summary
}

// ControlMatrixUserPrompt wraps the generated risk matrix.
func ControlMatrixUserPrompt(riskMatrix string) string {
	return "Please perform a control assessment based on the following risk matrix:\n\n" + riskMatrix
}
