package generation

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"
)

//go:embed prompt.tmpl
var defaultPromptTemplate string

var defaultPrompts = template.Must(template.New("artifact").Parse(defaultPromptTemplate))

// promptData is the data passed to the prompt template.
type promptData struct {
	Title string
}

// PromptBuilder renders generation prompts from a template.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder returns a PromptBuilder using the template at path, or
// the embedded template when path is empty.
func NewPromptBuilder(path string) (*PromptBuilder, error) {
	if path == "" {
		return &PromptBuilder{tmpl: defaultPrompts}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v", ErrInvalidConfig, path, err)
	}

	tmpl, err := template.New("artifact").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt for title.
func (b *PromptBuilder) Build(title string) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, promptData{Title: title}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// BuildPrompt renders the embedded prompt template for title.
func BuildPrompt(title string) (string, error) {
	return (&PromptBuilder{tmpl: defaultPrompts}).Build(title)
}
