package tabletmpl

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultFiles embed.FS

// Template names a table preset: blinds, buy-in stack, player cap and
// variant. Table rows reference templates by name.
type Template struct {
	Name       string `yaml:"name"`
	SmallBlind int    `yaml:"small_blind"`
	BigBlind   int    `yaml:"big_blind"`
	Stack      int    `yaml:"stack"`
	MaxPlayers int    `yaml:"max_players"`
	Variant    string `yaml:"variant"`
}

func (t Template) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template without name")
	}
	if t.SmallBlind <= 0 || t.BigBlind < t.SmallBlind {
		return fmt.Errorf("template %s: bad blinds %d/%d", t.Name, t.SmallBlind, t.BigBlind)
	}
	if t.Stack < t.BigBlind {
		return fmt.Errorf("template %s: stack %d below big blind", t.Name, t.Stack)
	}
	if t.MaxPlayers < 2 {
		return fmt.Errorf("template %s: max players %d", t.Name, t.MaxPlayers)
	}
	return nil
}

// Catalog loads table templates from embedded defaults plus an
// optional override directory, later files winning by name.
type Catalog struct {
	mu   sync.RWMutex
	data map[string]Template
}

// New loads the embedded defaults and then applies overrides from dir
// if provided.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]Template)}
	raw, err := fs.ReadFile(defaultFiles, "templates.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read template dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" { files = append(files, e.Name()) }
	}
	sort.Strings(files)
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := c.applyYAML(raw); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (c *Catalog) applyYAML(raw []byte) error {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse templates yaml: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range doc.Templates {
		if err := t.validate(); err != nil {
			return err
		}
		c.data[t.Name] = t
	}
	return nil
}

// Get resolves a template by name.
func (c *Catalog) Get(name string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.data[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown table template %q", name)
	}
	return t, nil
}

// Names lists known template names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.data))
	for n := range c.data {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
