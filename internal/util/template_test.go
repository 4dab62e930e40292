package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateNoEscaping(t *testing.T) {
	tmpl := MustParseTemplate("query", "Q: {{.Query}}")

	out, err := tmpl.Render(map[string]any{"Query": "a < b && \"c\""})
	require.NoError(t, err)
	assert.Equal(t, `Q: a < b && "c"`, out)
}

func TestTemplateMissingFieldFails(t *testing.T) {
	tmpl := MustParseTemplate("query", "{{.Query.Text}}")

	_, err := tmpl.Render(map[string]any{"Query": 1})
	assert.Error(t, err)
}

func TestTemplateRange(t *testing.T) {
	tmpl := MustParseTemplate("list", "{{range $i, $c := .Items}}[{{inc $i}}:{{$c}}]{{end}}")

	out, err := tmpl.Render(map[string]any{"Items": []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, "[1:x][2:y]", out)
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
	assert.Len(t, NewID(), 36)
}
