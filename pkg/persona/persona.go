// Package persona loads YAML-defined chat personalities.
//
// A persona sets the system prompt and optionally the model and token
// limit of the chat backend without touching the rest of the
// configuration. Directories searched (in order):
//  1. the configured persona directory (default ./personas)
//  2. ~/.cinebot/personas/
//
// A later file with the same name replaces an earlier one.
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sipeed/cinebot/pkg/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Persona schema
// ─────────────────────────────────────────────────────────────────────────────

// Persona is the YAML schema for a chat personality.
type Persona struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`

	// Prompt is the system prompt. {{param}} placeholders are filled from
	// the configured persona params.
	Prompt    string `yaml:"prompt"`
	Model     string `yaml:"model,omitempty"`
	MaxTokens int64  `yaml:"max_tokens,omitempty"`

	Params []Param `yaml:"params"`

	SourceFile string `yaml:"-" json:"source_file,omitempty"`
}

// Param describes a placeholder used by the prompt.
type Param struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

// Registry is a thread-safe store of loaded personas.
type Registry struct {
	mu       sync.RWMutex
	personas map[string]*Persona
}

func NewRegistry() *Registry {
	return &Registry{personas: make(map[string]*Persona)}
}

// Load reads all *.yaml and *.yml files from dir and registers them. A bad
// file is reported and skipped.
func (r *Registry) Load(dir string) (int, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, []error{fmt.Errorf("cannot read persona dir %s: %w", dir, err)}
	}

	loaded := 0
	var errs []error
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		p, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", e.Name(), err))
			continue
		}
		r.Register(p)
		loaded++
	}
	return loaded, errs
}

// LoadDirs loads every existing directory in order. Missing directories
// are skipped silently.
func (r *Registry) LoadDirs(dirs ...string) (int, []error) {
	total := 0
	var errs []error
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		n, e := r.Load(dir)
		total += n
		errs = append(errs, e...)
	}
	return total, errs
}

// LoadFile parses a single persona file.
func LoadFile(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("persona at %s has no 'name' field", path)
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return nil, fmt.Errorf("persona '%s' has no 'prompt' field", p.Name)
	}
	p.SourceFile = path
	return &p, nil
}

func (r *Registry) Register(p *Persona) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.personas[p.Name] = p
}

func (r *Registry) Get(name string) (*Persona, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[name]
	return p, ok
}

// Names returns the registered persona names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.personas))
	for name := range r.personas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Rendering
// ─────────────────────────────────────────────────────────────────────────────

// Missing returns the required params absent from provided.
func (p *Persona) Missing(provided map[string]string) []string {
	var missing []string
	for _, param := range p.Params {
		if !param.Required || param.Default != "" {
			continue
		}
		if v, ok := provided[param.Name]; !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, param.Name)
		}
	}
	return missing
}

// Render fills the prompt placeholders. Provided values win over defaults.
func (p *Persona) Render(provided map[string]string) (string, error) {
	if missing := p.Missing(provided); len(missing) > 0 {
		return "", fmt.Errorf("persona '%s' is missing params: %s", p.Name, strings.Join(missing, ", "))
	}
	values := make(map[string]string, len(p.Params))
	for _, param := range p.Params {
		values[param.Name] = param.Default
	}
	for k, v := range provided {
		values[k] = v
	}

	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(p.Prompt)), nil
}

// Apply returns cfg with the persona's prompt and, when set, its model and
// token limit.
func (p *Persona) Apply(cfg config.ChatConfig) (config.ChatConfig, error) {
	prompt, err := p.Render(cfg.PersonaParams)
	if err != nil {
		return cfg, err
	}
	cfg.SystemPrompt = prompt
	if p.Model != "" {
		cfg.Model = p.Model
	}
	if p.MaxTokens > 0 {
		cfg.MaxTokens = p.MaxTokens
	}
	return cfg, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

// DefaultDirs lists the search path for dir.
func DefaultDirs(dir string) []string {
	dirs := []string{dir}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".cinebot", "personas"))
	}
	return dirs
}

// Resolve applies the persona named by cfg.Persona. An empty name returns
// cfg unchanged. Load problems with other files are returned as warnings.
func Resolve(cfg config.ChatConfig) (config.ChatConfig, []error, error) {
	if cfg.Persona == "" {
		return cfg, nil, nil
	}
	reg := NewRegistry()
	_, warnings := reg.LoadDirs(DefaultDirs(cfg.PersonaDir)...)
	p, ok := reg.Get(cfg.Persona)
	if !ok {
		return cfg, warnings, fmt.Errorf("persona %q not found (available: %s)", cfg.Persona, strings.Join(reg.Names(), ", "))
	}
	out, err := p.Apply(cfg)
	return out, warnings, err
}
