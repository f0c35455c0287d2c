package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("Hello {{.company_name}}", map[string]string{"company_name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Acme", out)
}

func TestRenderer_Deterministic(t *testing.T) {
	r := NewRenderer()
	content := `<p>Dear {{.company_name}},</p><p>{{.message}}</p><img src="cid:{{.header}}">`
	ctx := map[string]string{
		"company_name": "Acme",
		"message":      "Quarterly update attached.",
		"header":       "header",
	}

	first, err := r.Render(content, ctx)
	require.NoError(t, err)
	second, err := r.Render(content, ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderer_UnresolvedVariableRendersEmpty(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("Hello {{.missing}}!", map[string]string{"company_name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Hello !", out)
}

func TestRenderer_ValidateRejectsMalformedContent(t *testing.T) {
	r := NewRenderer()

	err := r.Validate("Hello {{.company_name")
	require.Error(t, err)

	var syntaxErr *SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestRenderer_ValidateAcceptsPlainText(t *testing.T) {
	r := NewRenderer()
	assert.NoError(t, r.Validate("No variables here."))
}

func TestRenderer_EscapesHTMLInContext(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("<p>{{.message}}</p>", map[string]string{"message": "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}
