package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nexthire/server/internal/llm"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Template names
const (
	Question = "question"
	Evaluate = "evaluate"
	Report   = "report"
	Resume   = "resume"
)

// Template is one prompt pair loaded from YAML
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Manager holds the embedded prompt templates
type Manager struct {
	templates map[string]Template
}

// NewManager loads every embedded template
func NewManager() (*Manager, error) {
	m := &Manager{templates: make(map[string]Template)}
	if err := m.load(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}
	return m, nil
}

// Build renders a template into chat messages. Placeholders look like {{.Name}};
// unknown placeholders are left untouched.
func (m *Manager) Build(name string, vars map[string]string) ([]llm.Message, error) {
	tpl, ok := m.templates[name]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}

	var msgs []llm.Message
	if s := strings.TrimSpace(fill(tpl.System, vars)); s != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: s})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: strings.TrimSpace(fill(tpl.User, vars))})
	return msgs, nil
}

// Names lists the loaded templates in sorted order
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.templates))
	for n := range m.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) load() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}
		var tpl Template
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(tpl.User) == "" {
			return fmt.Errorf("template %s has no user prompt", entry.Name())
		}
		m.templates[strings.TrimSuffix(entry.Name(), ".yaml")] = tpl
	}
	return nil
}

func fill(text string, vars map[string]string) string {
	for k, v := range vars {
		text = strings.ReplaceAll(text, "{{."+k+"}}", v)
	}
	return text
}
