package generation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/codeforge-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptNamesTitleAndKeys(t *testing.T) {
	t.Parallel()

	prompt, err := generation.BuildPrompt("Two Sum")
	require.NoError(t, err)

	assert.Contains(t, prompt, "Title: Two Sum")
	for _, key := range []string{
		`"title"`, `"difficulty"`, `"topics"`, `"description"`, `"example"`,
		`"solution"`, `"step_by_step_explanation"`, `"pseudocode"`,
	} {
		assert.Contains(t, prompt, key)
	}
}

func TestBuildPromptDoesNotEscapeTitle(t *testing.T) {
	t.Parallel()

	prompt, err := generation.BuildPrompt(`Parse "quoted" <tags> & more`)
	require.NoError(t, err)
	assert.Contains(t, prompt, `Parse "quoted" <tags> & more`)
}

func TestNewPromptBuilderFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Write {{.Title}} as JSON"), 0o600))

	builder, err := generation.NewPromptBuilder(path)
	require.NoError(t, err)

	prompt, err := builder.Build("Binary Search")
	require.NoError(t, err)
	assert.Equal(t, "Write Binary Search as JSON", prompt)
}

func TestNewPromptBuilderErrors(t *testing.T) {
	t.Parallel()

	_, err := generation.NewPromptBuilder(filepath.Join(t.TempDir(), "missing.tmpl"))
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	path := filepath.Join(t.TempDir(), "broken.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{.Title"), 0o600))
	_, err = generation.NewPromptBuilder(path)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
