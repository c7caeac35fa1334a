package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"

	"gopkg.in/yaml.v3"
)

// Template is a registered prompt template plus its parsed form and the slot
// names it references.
type Template struct {
	Name        string
	Description string
	Content     string

	tmpl  *template.Template
	slots []string
}

// Registry manages prompt templates: dynamic registration, loading from YAML
// files, and hot reload. Templates loaded from files are replaced on reload;
// dynamically registered ones survive it.
type Registry struct {
	mu            sync.RWMutex
	templates     map[string]*Template
	fileTemplates map[string]struct{}
	sourcePath    string
}

func NewRegistry() *Registry {
	return &Registry{
		templates:     make(map[string]*Template),
		fileTemplates: make(map[string]struct{}),
	}
}

// Register adds or replaces a template. The content is parsed eagerly so a
// bad template fails here, not at build time.
func (r *Registry) Register(name, content string) error {
	return r.register(name, content, "", false)
}

func (r *Registry) register(name, content, description string, fromFile bool) error {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return fmt.Errorf("parse template %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = &Template{
		Name:        name,
		Description: description,
		Content:     content,
		tmpl:        tmpl,
		slots:       extractSlots(tmpl),
	}
	if fromFile {
		r.fileTemplates[name] = struct{}{}
	} else {
		delete(r.fileTemplates, name)
	}
	return nil
}

// Get returns a template by name.
func (r *Registry) Get(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// Slots returns the slot names a template references.
func (r *Registry) Slots(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.templates[name]; ok {
		return append([]string(nil), t.slots...)
	}
	return nil
}

// List returns all registered template names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFromPath loads templates from a YAML file, or from every .yaml/.yml
// file in a directory. File templates that vanished from the source are
// dropped; dynamically registered templates are kept.
func (r *Registry) LoadFromPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("template path %q: %w", path, err)
	}

	loaded := make(map[string]struct{})
	if info.IsDir() {
		files, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("read template dir %q: %w", path, err)
		}
		for _, f := range files {
			ext := strings.ToLower(filepath.Ext(f.Name()))
			if f.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			if err := r.loadYAMLFile(filepath.Join(path, f.Name()), loaded); err != nil {
				return err
			}
		}
	} else {
		if err := r.loadYAMLFile(path, loaded); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.sourcePath = path
	for name := range r.fileTemplates {
		if _, ok := loaded[name]; !ok {
			delete(r.templates, name)
			delete(r.fileTemplates, name)
		}
	}
	r.mu.Unlock()
	return nil
}

// HotReload re-reads the last loaded source path.
func (r *Registry) HotReload() error {
	r.mu.RLock()
	path := r.sourcePath
	r.mu.RUnlock()
	if path == "" {
		return nil
	}
	return r.LoadFromPath(path)
}

type templateEntry struct {
	Name        string `yaml:"name"`
	Content     string `yaml:"content"`
	Description string `yaml:"description"`
}

type templateFile struct {
	Templates []templateEntry `yaml:"templates"`
}

func (r *Registry) loadYAMLFile(path string, loaded map[string]struct{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template file %q: %w", path, err)
	}

	entries, err := parseTemplateYAML(data)
	if err != nil {
		return fmt.Errorf("parse template file %q: %w", path, err)
	}
	for _, entry := range entries {
		if entry.Name == "" || entry.Content == "" {
			continue
		}
		if err := r.register(entry.Name, entry.Content, entry.Description, true); err != nil {
			return err
		}
		loaded[entry.Name] = struct{}{}
	}
	return nil
}

// parseTemplateYAML accepts either {templates: [{name, content}, ...]} or a
// plain mapping of name to content (string or {content, description}).
func parseTemplateYAML(data []byte) ([]templateEntry, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err == nil && len(file.Templates) > 0 {
		return file.Templates, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var entries []templateEntry
	for name, value := range raw {
		if name == "templates" {
			continue
		}
		switch v := value.(type) {
		case string:
			entries = append(entries, templateEntry{Name: name, Content: v})
		case map[string]any:
			entry := templateEntry{Name: name}
			if content, ok := v["content"].(string); ok {
				entry.Content = content
			}
			if desc, ok := v["description"].(string); ok {
				entry.Description = desc
			}
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// extractSlots walks the parse tree collecting the field names the template
// dereferences, in first-use order.
func extractSlots(tmpl *template.Template) []string {
	var slots []string
	seen := make(map[string]struct{})

	var walk func(node parse.Node)
	addPipe := func(pipe *parse.PipeNode) {
		if pipe == nil {
			return
		}
		for _, cmd := range pipe.Cmds {
			for _, arg := range cmd.Args {
				field, ok := arg.(*parse.FieldNode)
				if !ok || len(field.Ident) == 0 {
					continue
				}
				name := field.Ident[0]
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					slots = append(slots, name)
				}
			}
		}
	}
	walk = func(node parse.Node) {
		switch n := node.(type) {
		case *parse.ListNode:
			if n == nil {
				return
			}
			for _, child := range n.Nodes {
				walk(child)
			}
		case *parse.ActionNode:
			addPipe(n.Pipe)
		case *parse.IfNode:
			addPipe(n.Pipe)
			walk(n.List)
			walk(n.ElseList)
		case *parse.RangeNode:
			addPipe(n.Pipe)
			walk(n.List)
			walk(n.ElseList)
		case *parse.WithNode:
			addPipe(n.Pipe)
			walk(n.List)
			walk(n.ElseList)
		}
	}

	if tmpl.Tree != nil {
		walk(tmpl.Tree.Root)
	}
	return slots
}
