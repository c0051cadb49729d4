package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrTemplateNotFound is returned when no mount serves a template path
var ErrTemplateNotFound = errors.New("template not found")

// Localizer resolves translation keys for templates
type Localizer interface {
	Localize(key string) string
}

// Renderer renders module templates addressed by module-relative paths such
// as "modules/<name>/templates/<file>". Parsed templates are cached.
type Renderer struct {
	mu     sync.RWMutex
	mounts map[string]fs.FS
	cache  map[string]*template.Template
	funcs  template.FuncMap
	logger *slog.Logger
}

// New creates a renderer whose templates can call localize and titleCase
func New(localizer Localizer, logger *slog.Logger) *Renderer {
	titleCaser := cases.Title(language.English)
	return &Renderer{
		mounts: make(map[string]fs.FS),
		cache:  make(map[string]*template.Template),
		funcs: template.FuncMap{
			"localize":  localizer.Localize,
			"titleCase": titleCaser.String,
		},
		logger: logger,
	}
}

// Mount serves files from fsys under prefix
func (r *Renderer) Mount(prefix string, fsys fs.FS) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mounts[strings.Trim(prefix, "/")] = fsys
}

// Render executes the template at path with data
func (r *Renderer) Render(ctx context.Context, path string, data any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmpl, err := r.template(path)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", path, err)
	}
	return buf.String(), nil
}

func (r *Renderer) template(p string) (*template.Template, error) {
	p = path.Clean(strings.TrimPrefix(p, "/"))

	r.mu.RLock()
	tmpl, ok := r.cache[p]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	fsys, name, err := r.resolve(p)
	if err != nil {
		return nil, err
	}

	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, p)
		}
		return nil, fmt.Errorf("failed to read template %s: %w", p, err)
	}

	tmpl, err = template.New(path.Base(p)).Funcs(r.funcs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", p, err)
	}

	r.mu.Lock()
	r.cache[p] = tmpl
	r.mu.Unlock()

	r.logger.Debug("Template compiled", "path", p)
	return tmpl, nil
}

// resolve finds the longest mount prefix serving p
func (r *Renderer) resolve(p string) (fs.FS, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best   string
		bestFS fs.FS
	)
	for prefix, fsys := range r.mounts {
		if (p == prefix || strings.HasPrefix(p, prefix+"/")) && len(prefix) > len(best) {
			best, bestFS = prefix, fsys
		}
	}
	if bestFS == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrTemplateNotFound, p)
	}
	return bestFS, strings.TrimPrefix(strings.TrimPrefix(p, best), "/"), nil
}
