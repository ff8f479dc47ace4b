// Package report renders harness runs for humans and CI systems.
package report

import (
	"fmt"
	"os"
	"sort"

	"github.com/flosch/pongo2/v6"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
)

// Built-in formats.
const (
	FormatText  = "text"
	FormatJUnit = "junit"
)

// Renderer maps format names to compiled templates.
type Renderer struct {
	templates map[string]*pongo2.Template
}

// NewRenderer creates a renderer with the built-in formats.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*pongo2.Template)}
	for name, source := range map[string]string{
		FormatText:  textTemplate,
		FormatJUnit: junitTemplate,
	} {
		if err := r.Register(name, source); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register compiles source under name, replacing any existing format.
// Templates see `run` (per-phase checks) and `summary` (attempt totals).
func (r *Renderer) Register(name, source string) error {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return fmt.Errorf("failed to compile report template %q: %w", name, err)
	}
	r.templates[name] = tpl
	return nil
}

// RegisterFile registers the template stored at path.
func (r *Renderer) RegisterFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report template: %w", err)
	}
	return r.Register(name, string(data))
}

// Formats lists the registered format names.
func (r *Renderer) Formats() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render renders run in the given format.
func (r *Renderer) Render(format string, run journal.Run) ([]byte, error) {
	tpl, ok := r.templates[format]
	if !ok {
		return nil, fmt.Errorf("unknown report format %q (supported: %v)", format, r.Formats())
	}

	out, err := tpl.ExecuteBytes(pongo2.Context{
		"run":     newRunView(run),
		"summary": journal.Summarize(run.Attempts),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s report: %w", format, err)
	}
	return out, nil
}

// WriteFile renders run and writes it to path.
func (r *Renderer) WriteFile(path, format string, run journal.Run) error {
	out, err := r.Render(format, run)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
