package chain

import (
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/runkit/resilience"
)

// Definition is a named chain of steps.
type Definition struct {
	// Name is the chain identifier.
	Name string `yaml:"name" json:"name" validate:"required"`
	// Description is free text shown by listings.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Steps run in order. A single step is the chain itself.
	Steps []Node `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
	// Cache, when set, memoizes whole-chain results.
	Cache *CacheDef `yaml:"cache,omitempty" json:"cache,omitempty"`
}

// CacheDef configures result caching for a chain.
type CacheDef struct {
	// TTL is the entry lifetime. 0 uses the catalog default.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// Node is one composition element.
type Node struct {
	// Name overrides the runnable name reported in errors and metrics.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// Key is the output key when the node is a parallel entry.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	Unit        string      `yaml:"unit,omitempty" json:"unit,omitempty"`
	Ref         string      `yaml:"ref,omitempty" json:"ref,omitempty"`
	Sequence    []Node      `yaml:"sequence,omitempty" json:"sequence,omitempty" validate:"omitempty,dive"`
	Parallel    []Node      `yaml:"parallel,omitempty" json:"parallel,omitempty" validate:"omitempty,dive"`
	Branch      *BranchNode `yaml:"branch,omitempty" json:"branch,omitempty"`
	Template    string      `yaml:"template,omitempty" json:"template,omitempty"`
	Select      string      `yaml:"select,omitempty" json:"select,omitempty"`
	Passthrough bool        `yaml:"passthrough,omitempty" json:"passthrough,omitempty"`

	// MaxConcurrency bounds a parallel node. 0 runs every entry at once.
	MaxConcurrency int `yaml:"max_concurrency,omitempty" json:"max_concurrency,omitempty" validate:"gte=0"`
	// Timeout bounds each invocation of the node.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"gte=0"`
	// Retry retries failed invocations of the node.
	Retry *resilience.RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// BranchNode routes to the first case whose condition holds.
type BranchNode struct {
	Cases   []Case `yaml:"cases" json:"cases" validate:"required,min=1,dive"`
	Default *Node  `yaml:"default" json:"default" validate:"required"`
}

// Case pairs a Lua condition with the node it selects.
type Case struct {
	When string `yaml:"when" json:"when" validate:"required"`
	Node `yaml:",inline"`
}

// kinds lists the node kinds that are set.
func (n *Node) kinds() []string {
	var out []string
	if n.Unit != "" {
		out = append(out, "unit")
	}
	if n.Ref != "" {
		out = append(out, "ref")
	}
	if len(n.Sequence) > 0 {
		out = append(out, "sequence")
	}
	if len(n.Parallel) > 0 {
		out = append(out, "parallel")
	}
	if n.Branch != nil {
		out = append(out, "branch")
	}
	if n.Template != "" {
		out = append(out, "template")
	}
	if n.Select != "" {
		out = append(out, "select")
	}
	if n.Passthrough {
		out = append(out, "passthrough")
	}
	return out
}

// Parse decodes a YAML definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("chain: parsing definition: %w", err)
	}
	return &def, nil
}
