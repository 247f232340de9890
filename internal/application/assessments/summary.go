package assessments

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

// Answers maps a question key to its decoded JSON answer.
type Answers map[string]any

// QuestionLabel binds an answer key to the label used in the summary.
type QuestionLabel struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// DefaultCatalog is the questionnaire shipped with the web client, keyed "1".."11".
var DefaultCatalog = []QuestionLabel{
	{Key: "1", Label: "Name and country"},
	{Key: "2", Label: "Project type (in-house vs third-party)"},
	{Key: "3", Label: "Geographic regions"},
	{Key: "4", Label: "AI system objective"},
	{Key: "5", Label: "General-purpose model"},
	{Key: "6", Label: "Learning model"},
	{Key: "7", Label: "Regulatory review"},
	{Key: "8", Label: "Human oversight"},
	{Key: "9", Label: "Affected groups"},
	{Key: "10", Label: "Project timeline"},
	{Key: "11", Label: "Potential delays"},
}

// Compose renders the narrative summary sent to the analysis service.
// Answers are emitted in catalog order, then any uncatalogued keys sorted.
func Compose(useCase assessment.UseCaseType, catalog []QuestionLabel, answers Answers) string {
	var b strings.Builder
	b.WriteString("AI System Type: ")
	if useCase == assessment.UseCaseBot {
		b.WriteString("Automated AI Bot")
	} else {
		b.WriteString("Human-operated")
	}
	b.WriteString("\n\n")

	seen := make(map[string]bool, len(catalog))
	for _, q := range catalog {
		seen[q.Key] = true
		if v, ok := answers[q.Key]; ok {
			writeAnswer(&b, q.Label, v)
		}
	}

	var extra []string
	for k := range answers {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		writeAnswer(&b, "Question "+k, answers[k])
	}
	return b.String()
}

func writeAnswer(b *strings.Builder, label string, v any) {
	text, ok := renderAnswer(v)
	if !ok {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(text)
	b.WriteString("\n")
}

// renderAnswer returns false for absent or falsy answers.
func renderAnswer(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case bool:
		return "true", x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), x != 0
	case int:
		return strconv.Itoa(x), x != 0
	case []string:
		return strings.Join(x, ", "), len(x) > 0
	case []any:
		if len(x) == 0 {
			return "", false
		}
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, textOf(item))
		}
		return strings.Join(parts, ", "), true
	case map[string]any:
		if len(x) == 0 {
			return "", false
		}
		name, _ := x["name"].(string)
		country, _ := x["country"].(string)
		if name != "" && country != "" {
			return name + " from " + country, true
		}
		return textOf(x), true
	default:
		return textOf(x), true
	}
}

func textOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
