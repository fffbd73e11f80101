package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"apex/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Template 描述单个 prompt 模板。
type Template struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     int    `yaml:"version"`
	Text        string `yaml:"template"`

	parsed *template.Template
}

// FileConfig 映射覆盖文件的 prompts 段。
type FileConfig struct {
	Prompts map[string]Template `yaml:"prompts"`
}

type Snapshot struct {
	Version   int64
	LoadedAt  time.Time
	Source    string
	Templates map[string]Template
}

type ChangeListener func(Snapshot)

// Registry holds the active prompt templates. Built-ins are always present;
// an optional YAML file overrides them by name and is watched for changes.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// NewRegistry 加载内置模板；path 非空时叠加文件并监听更新。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	if r.path == "" {
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read prompt templates failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.Reload(); err != nil {
			logger.Errorf("prompt reload failed, keeping version %d: %v", r.Snapshot().Version, err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	r.v = v
	return r, nil
}

// Reload rebuilds the template set. A file that fails to parse leaves the
// previous set in place.
func (r *Registry) Reload() error {
	templates := make(map[string]Template)
	for name, tpl := range builtinTemplates() {
		compiled, err := compile(tpl)
		if err != nil {
			return err
		}
		templates[name] = compiled
	}
	source := "builtin"
	if r.path != "" {
		cfg, err := readTemplateFile(r.path)
		if err != nil {
			return err
		}
		for name, tpl := range cfg.Prompts {
			tpl = normalizeTemplate(name, tpl)
			if strings.TrimSpace(tpl.Text) == "" {
				return fmt.Errorf("prompt %s: empty template", tpl.Name)
			}
			compiled, err := compile(tpl)
			if err != nil {
				return err
			}
			templates[compiled.Name] = compiled
		}
		source = filepath.Base(r.path)
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:   r.snapshot.Version + 1,
		LoadedAt:  time.Now(),
		Source:    source,
		Templates: templates,
	}
	r.mu.Unlock()
	logger.Infof("Prompt registry loaded %d templates from %s", len(templates), source)
	return nil
}

// Render executes the named template with data.
func (r *Registry) Render(name string, data any) (string, error) {
	r.mu.RLock()
	tpl, ok := r.snapshot.Templates[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown prompt template: %s", name)
	}
	var buf bytes.Buffer
	if err := tpl.parsed.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Names lists loaded template names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.snapshot.Templates))
	for name := range r.snapshot.Templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OnChange registers a listener invoked after every successful file reload.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("prompt listener")
			cb(snap)
		}(fn)
	}
}

func normalizeTemplate(name string, tpl Template) Template {
	tpl.Name = strings.ToLower(strings.TrimSpace(tpl.Name))
	if tpl.Name == "" {
		tpl.Name = strings.ToLower(strings.TrimSpace(name))
	}
	if tpl.Version <= 0 {
		tpl.Version = 1
	}
	tpl.Description = strings.TrimSpace(tpl.Description)
	return tpl
}

func compile(tpl Template) (Template, error) {
	parsed, err := template.New(tpl.Name).Funcs(funcs).Option("missingkey=zero").Parse(tpl.Text)
	if err != nil {
		return Template{}, fmt.Errorf("parse prompt %s failed: %w", tpl.Name, err)
	}
	tpl.parsed = parsed
	return tpl, nil
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := src
	dst.Templates = make(map[string]Template, len(src.Templates))
	for name, tpl := range src.Templates {
		dst.Templates[name] = tpl
	}
	return dst
}

func readTemplateFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read prompt templates failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, fmt.Errorf("parse prompt templates failed: %w", err)
	}
	return cfg, nil
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}
