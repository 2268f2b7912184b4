package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed instructions.txt
var instructions string

//go:embed feedback.tmpl
var feedbackTemplate string

var tmpl = template.Must(template.New("feedback").Option("missingkey=error").Parse(feedbackTemplate))

// sections are the headers the model is asked to produce, in order.
var sections = []string{
	"Overall Level Assessment (A1, A2, B1, B2, C1, C2)",
	"Detected Errors (with examples and explanations)",
	"Personalized Suggestions to Improve Your English Study",
	"Recommended Resources and Practice",
}

// Instructions returns the fixed role, rubric and tone text.
func Instructions() string { return strings.TrimSpace(instructions) }

// Sections returns a copy of the required output section headers.
func Sections() []string {
	out := make([]string, len(sections))
	copy(out, sections)
	return out
}

// Build renders the feedback prompt for one transcript. It has no side
// effects and the same input always yields the same prompt.
func Build(transcript string) (string, error) {
	var b strings.Builder
	err := tmpl.Execute(&b, struct {
		Instructions string
		Transcript   string
	}{
		Instructions: Instructions(),
		Transcript:   strings.TrimSpace(transcript),
	})
	if err != nil {
		return "", fmt.Errorf("render feedback prompt: %w", err)
	}
	return b.String(), nil
}
