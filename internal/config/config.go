// Package config handles YAML configuration parsing for a test run:
// variables, combination groups, scenario scripts and the stage table.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cadence/internal/collector"
	"cadence/internal/executor"
	"cadence/internal/scenario"
	"cadence/internal/vars"
)

// Config is the root configuration structure.
type Config struct {
	Variables  map[string]VariableConfig `yaml:"variables"`
	Groups     map[string][]string       `yaml:"groups"`
	DataFiles  []DataFileConfig          `yaml:"dataFiles"`
	Scenarios  []ScenarioConfig          `yaml:"scenarios"`
	Stages     []scenario.Stage          `yaml:"stages"`
	Thresholds *collector.Thresholds     `yaml:"thresholds,omitempty"`
	Execution  ExecutionConfig           `yaml:"execution,omitempty"`
}

// VariableConfig declares one named test-data variable. Recycle defaults to
// true when omitted.
type VariableConfig struct {
	Kind    string   `yaml:"kind"`
	Values  []string `yaml:"values"`
	Recycle *bool    `yaml:"recycle"`
	Group   string   `yaml:"group"`
}

// DataFileConfig loads a CSV/JSON file as a combination group, one variable
// per column.
type DataFileConfig struct {
	Group   string `yaml:"group"`
	Path    string `yaml:"path"`
	Kind    string `yaml:"kind"`
	Recycle *bool  `yaml:"recycle"`
}

// ScenarioConfig is one logical scenario: an id, a display name and its
// ordered transaction script.
type ScenarioConfig struct {
	ID           string                 `yaml:"id"`
	Name         string                 `yaml:"name"`
	Transactions []executor.Transaction `yaml:"transactions"`
}

// ExecutionConfig controls iteration-level execution behavior.
type ExecutionConfig struct {
	MaxIterations    int `yaml:"max_iterations"`
	WarmupIterations int `yaml:"warmup_iterations"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		if sc.ID == "" {
			return fmt.Errorf("scenario with empty id")
		}
		if seen[sc.ID] {
			return fmt.Errorf("duplicate scenario id %q", sc.ID)
		}
		seen[sc.ID] = true
	}
	for _, st := range c.Stages {
		if !seen[st.Scenario] {
			return fmt.Errorf("stage references unknown scenario %q", st.Scenario)
		}
	}
	for group, members := range c.Groups {
		for _, member := range members {
			v, ok := c.Variables[member]
			if !ok {
				return fmt.Errorf("group %q lists unknown variable %q", group, member)
			}
			if v.Group != group {
				return fmt.Errorf("variable %q is listed in group %q but declares group %q", member, group, v.Group)
			}
		}
	}
	return nil
}

// RegisterData registers all configured variables, combination groups and
// data files into the store. Relative data file paths resolve against baseDir.
func (c *Config) RegisterData(store *vars.Store, baseDir string) error {
	for name, vc := range c.Variables {
		store.Register(vars.Variable{
			Name:    name,
			Kind:    vars.Kind(vc.Kind),
			Values:  vc.Values,
			Recycle: recycleDefault(vc.Recycle),
			Group:   vc.Group,
		})
	}
	for name, members := range c.Groups {
		store.RegisterGroup(name, members)
	}
	for _, df := range c.DataFiles {
		kind := vars.Kind(df.Kind)
		if kind == "" {
			kind = vars.KindSequential
		}
		if err := store.LoadFile(df.Group, df.Path, kind, recycleDefault(df.Recycle), baseDir); err != nil {
			return err
		}
	}
	return nil
}

// Scripts builds the per-scenario transaction scripts.
func (c *Config) Scripts() []executor.Script {
	scripts := make([]executor.Script, 0, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		scripts = append(scripts, executor.Script{
			Scenario:     sc.ID,
			Name:         sc.Name,
			Transactions: sc.Transactions,
		})
	}
	return scripts
}

func recycleDefault(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}
