package common

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"resumatch/internal/errors"
	"resumatch/internal/formatters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleOutputToWriter(t *testing.T) {
	var buf bytes.Buffer
	oh := NewOutputHandler(formatters.NewFormatterRegistry(formatters.Options{}), &buf, nil)

	require.NoError(t, oh.HandleOutput(map[string]int{"a": 1}, CommandConfig{OutputFormat: "json"}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestHandleOutputToFile(t *testing.T) {
	oh := NewOutputHandler(formatters.NewFormatterRegistry(formatters.Options{}), &bytes.Buffer{}, nil)
	path := filepath.Join(t.TempDir(), "out", "report.json")

	require.NoError(t, oh.HandleOutput([]string{"x"}, CommandConfig{OutputFormat: "json", OutputFile: path}))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"x\"\n]\n", string(got))
}

func TestHandleOutputUnknownFormat(t *testing.T) {
	oh := NewOutputHandler(formatters.NewFormatterRegistry(formatters.Options{}), &bytes.Buffer{}, nil)

	err := oh.HandleOutput(map[string]int{}, CommandConfig{OutputFormat: "text"})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidFormat, appErr.Code)
	assert.Equal(t, []string{"json", "markdown", "text"}, oh.GetSupportedFormats())
}
