// Package build assembles SOP markdown documents from the component library
// (atoms, molecules and organisms) following the composition recorded in the
// graph.
package build

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/sopforge/core/internal/parser"
)

// Kinds are the library subdirectories, leaves first.
var Kinds = []string{"atoms", "molecules", "organisms"}

var (
	includePattern   = regexp.MustCompile(`(?i)\{\{include:\s*([a-z0-9-]+)\}\}`)
	referencePattern = regexp.MustCompile(`(?i)\{\{reference:\s*([a-z0-9-]+)\}\}`)
)

type Component struct {
	ID          string
	Kind        string
	Path        string
	Body        string
	Frontmatter *parser.Frontmatter
}

// Library is the set of components loaded from disk, keyed by frontmatter id.
type Library struct {
	components map[string]*Component
	// Warnings lists files that were skipped or could not be read.
	Warnings []string
}

func NewLibrary(components ...*Component) *Library {
	l := &Library{components: make(map[string]*Component)}
	for _, c := range components {
		l.components[c.ID] = c
	}
	return l
}

// LoadLibrary reads root/{atoms,molecules,organisms}/*.md. A missing kind
// directory or a file without usable frontmatter is a warning, not an error.
func LoadLibrary(fsys fs.FS, root string) (*Library, error) {
	l := NewLibrary()

	for _, kind := range Kinds {
		dir := path.Join(root, kind)
		entries, err := fs.ReadDir(fsys, dir)
		if errors.Is(err, fs.ErrNotExist) {
			l.Warnings = append(l.Warnings, fmt.Sprintf("could not load %s: directory %s does not exist", kind, dir))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			file := path.Join(dir, entry.Name())
			data, err := fs.ReadFile(fsys, file)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", file, err)
			}
			l.add(kind, file, string(data))
		}
	}

	return l, nil
}

func (l *Library) add(kind, file, content string) {
	fm, body, err := parser.ParseFrontmatter(content)
	switch {
	case err != nil:
		l.Warnings = append(l.Warnings, fmt.Sprintf("component file %s: %v", file, err))
		return
	case fm == nil:
		l.Warnings = append(l.Warnings, fmt.Sprintf("component file missing frontmatter: %s", file))
		return
	case fm.ID == "":
		l.Warnings = append(l.Warnings, fmt.Sprintf("component file missing 'id' in frontmatter: %s", file))
		return
	}

	if prev, ok := l.components[fm.ID]; ok {
		l.Warnings = append(l.Warnings, fmt.Sprintf("duplicate component id %s in %s (already loaded from %s)", fm.ID, file, prev.Path))
		return
	}

	l.components[fm.ID] = &Component{
		ID:          fm.ID,
		Kind:        kind,
		Path:        file,
		Body:        body,
		Frontmatter: fm,
	}
}

func (l *Library) Get(id string) (*Component, bool) {
	if l == nil {
		return nil, false
	}
	c, ok := l.components[id]
	return c, ok
}

func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.components)
}

// All returns every component sorted by id.
func (l *Library) All() []*Component {
	if l == nil {
		return nil
	}
	out := make([]*Component, 0, len(l.components))
	for _, c := range l.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Expand resolves {{include: id}} directives recursively and turns
// {{reference: id}} into links. An include that would re-enter a component
// already on the include chain is replaced by a marker comment. The returned
// warnings name every missing or circular include.
func (l *Library) Expand(content string) (string, []string) {
	var warnings []string
	return l.expand(content, nil, &warnings), warnings
}

// ExpandComponent expands the body of component id with id itself already on
// the include chain. ok is false when the component is not in the library.
func (l *Library) ExpandComponent(id string) (content string, warnings []string, ok bool) {
	c, ok := l.Get(id)
	if !ok {
		return notFound(id), []string{fmt.Sprintf("component '%s' not found", id)}, false
	}
	return l.expand(c.Body, []string{id}, &warnings), warnings, true
}

func (l *Library) expand(content string, chain []string, warnings *[]string) string {
	out := includePattern.ReplaceAllStringFunc(content, func(match string) string {
		id := includePattern.FindStringSubmatch(match)[1]

		if slices.Contains(chain, id) {
			*warnings = append(*warnings, fmt.Sprintf("circular reference detected: %s", id))
			return fmt.Sprintf("\n<!-- Circular reference: %s -->\n", id)
		}

		c, ok := l.Get(id)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("component '%s' not found", id))
			return notFound(id)
		}

		return l.expand(c.Body, append(slices.Clip(chain), id), warnings)
	})

	return referencePattern.ReplaceAllStringFunc(out, func(match string) string {
		id := referencePattern.FindStringSubmatch(match)[1]
		return fmt.Sprintf("\n**→ See component**: [%s](../sop-components/%s.md)\n", id, id)
	})
}

func notFound(id string) string {
	return fmt.Sprintf("\n<!-- Component %s not found -->\n", id)
}
