package limits

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule caps request volume for one endpoint: at most MaxRequests per Window,
// with a block for the remainder of the window on overflow.
type Rule struct {
	Endpoint    string        `yaml:"endpoint"`
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// DefaultRule matches the production limit for the AI search endpoint:
// 10 requests per minute.
var DefaultRule = Rule{MaxRequests: 10, Window: time.Minute}

// Registry holds the active rule set and supports live replacement.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Lookup returns the rule for endpoint, falling back to DefaultRule so an
// unconfigured endpoint is still capped.
func (r *Registry) Lookup(endpoint string) Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rule, ok := r.rules[endpoint]; ok {
		return rule
	}
	rule := DefaultRule
	rule.Endpoint = endpoint
	return rule
}

// Load replaces the current rule set.
func (r *Registry) Load(rules []Rule) error {
	next := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		if err := validate(rule); err != nil {
			return err
		}
		next[rule.Endpoint] = rule
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = next
	return nil
}

// Rules returns a snapshot of the active rule set.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out
}

func validate(rule Rule) error {
	if rule.Endpoint == "" {
		return fmt.Errorf("limits: rule missing endpoint")
	}
	if rule.MaxRequests <= 0 {
		return fmt.Errorf("limits: rule %q: max_requests must be positive", rule.Endpoint)
	}
	if rule.Window <= 0 {
		return fmt.Errorf("limits: rule %q: window must be positive", rule.Endpoint)
	}
	return nil
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// UnmarshalYAML accepts window values in time.ParseDuration form ("60s",
// "1m30s").
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Endpoint    string `yaml:"endpoint"`
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.Endpoint = raw.Endpoint
	r.MaxRequests = raw.MaxRequests
	if raw.Window != "" {
		window, err := time.ParseDuration(raw.Window)
		if err != nil {
			return fmt.Errorf("limits: rule %q: bad window: %w", raw.Endpoint, err)
		}
		r.Window = window
	}
	return nil
}

// LoadFile reads a YAML rules file and replaces the active set.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("limits: read %s: %w", path, err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("limits: parse %s: %w", path, err)
	}
	return r.Load(f.Rules)
}
