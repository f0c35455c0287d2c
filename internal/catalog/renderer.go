package catalog

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
)

// Renderer renders template content against a variable context. Rendering is
// pure: identical content and context always produce identical output.
// Context keys absent from the template are ignored; template variables
// absent from the context render as empty strings.
type Renderer struct {
	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewRenderer creates a renderer with an empty parse cache.
func NewRenderer() *Renderer {
	return &Renderer{
		cache: make(map[string]*template.Template),
	}
}

// Validate parses the content and reports a *SyntaxError if it is malformed.
// Called at template create/update time so bad content is rejected before it
// can reach a dispatch job.
func (r *Renderer) Validate(content string) error {
	_, err := r.parse(content)
	return err
}

// Render executes the template content against the context.
func (r *Renderer) Render(content string, context map[string]string) (string, error) {
	tmpl, err := r.parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("catalog: execute template: %w", err)
	}

	return buf.String(), nil
}

// parse returns a cached parsed template for the content, parsing on first
// use. Cache keys are the full content string; versions are immutable so the
// cache never needs invalidation.
func (r *Renderer) parse(content string) (*template.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.cache[content]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New("body").Parse(content)
	if err != nil {
		return nil, &SyntaxError{Err: err}
	}

	r.mu.Lock()
	r.cache[content] = tmpl
	r.mu.Unlock()

	return tmpl, nil
}
