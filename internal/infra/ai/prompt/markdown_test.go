package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

const riskMatrix = `| Risk | Owner | Severity | Justification | Mitigation | Target Date |
|------|-------|----------|---------------|------------|-------------|
| Data privacy breach | Security Team | 4 | Personal data is processed | Encrypt personal data | 30 days |
| Training data bias | Data Engineering Team | high | Skewed samples | Audit datasets | 60 days |
| Too short | row |`

const controlMatrix = `| CODE | SECTION | CONTROL | REQUIREMENTS | STATUS | TICKETS |
|------|---------|---------|--------------|--------|---------|
| DM-001 | Data Management | Data Encryption | Encrypt sensitive data at rest and in transit | Not Implemented | TICK-101 |
| SC-001 | Security | Vulnerability Assessment | Conduct regular security assessments | Compliant | None |`

func TestParseRiskTable(t *testing.T) {
	risks := ParseRiskTable(riskMatrix, "RC-ABCDEF12")
	require.Len(t, risks, 2)

	assert.Equal(t, "RISK-RC-ABCDEF12-001", risks[0].RiskID)
	assert.Equal(t, "Data privacy breach", risks[0].RiskName)
	assert.Equal(t, assessment.OwnerSecurity, risks[0].RiskOwner)
	assert.Equal(t, 4, risks[0].Severity)
	assert.Equal(t, "30 days", risks[0].TargetDate)

	assert.Equal(t, 3, risks[1].Severity, "non-numeric severity defaults to 3")
	assert.Equal(t, "RISK-RC-ABCDEF12-002", risks[1].RiskID)
}

func TestParseControlTable(t *testing.T) {
	risks := ParseRiskTable(riskMatrix, "RC-1")
	controls := ParseControlTable(controlMatrix, "RC-1", risks)
	require.Len(t, controls, 3)

	assert.Equal(t, "CODE", controls[0].Code, "header row is kept as the first element")

	rows := assessment.DropHeaderRow(controls)
	require.Len(t, rows, 2)
	assert.Equal(t, "CTRL-RC-1-001", rows[0].ControlID)
	assert.Equal(t, "DM-001", rows[0].Code)
	assert.Equal(t, "Data privacy breach", rows[0].RelatedRisk)
	assert.Equal(t, "General", rows[1].RelatedRisk)
	assert.Equal(t, "None", rows[1].Tickets)
}

func TestParseControlTable_Empty(t *testing.T) {
	assert.Nil(t, ParseControlTable("no table here", "RC-1", nil))
}

func TestLoadLibrary(t *testing.T) {
	lib, err := LoadLibrary("")
	require.NoError(t, err)
	assert.Len(t, lib.Controls, 5)

	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risks:\n  - name: Hallucination\n    baseSeverity: 4\n"), 0o600))
	lib, err = LoadLibrary(path)
	require.NoError(t, err)
	require.Len(t, lib.Risks, 1)
	assert.Equal(t, "Hallucination", lib.Risks[0].Name)
	assert.Len(t, lib.Controls, 5, "controls keep their defaults")

	assert.Contains(t, RiskMatrixSystemPrompt(lib), "Hallucination (base severity 4)")
	assert.Contains(t, ControlMatrixSystemPrompt(lib), "| AC-001 | Access Control |")
}
