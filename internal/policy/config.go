package policy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/jsonsql/internal/ir"
)

// Config is the serializable form of a Policy.
//
// Example YAML:
//
//	queries: [SELECT]
//	items: ["*"]
//	tables:
//	  - images
//	  - users: [id, name]
//	connections: [WHERE]
//	columns:
//	  creature: string
//	  userID: integer
type Config struct {
	Queries     []string             `yaml:"queries" json:"queries"`
	Items       []string             `yaml:"items" json:"items"`
	Tables      []TableEntry         `yaml:"tables" json:"tables"`
	Connections []string             `yaml:"connections" json:"connections"`
	Columns     map[string]ValueKind `yaml:"columns" json:"columns"`

	// MaxDepth bounds logic-tree nesting. Zero means DefaultMaxDepth.
	MaxDepth int `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
}

// TableEntry is one allowed table. An empty Columns list means any column
// declared in Config.Columns may be selected from it.
//
// In YAML a table is either a bare name or a single-key mapping from the
// name to its column list.
type TableEntry struct {
	Name    string
	Columns []string
}

// UnmarshalYAML accepts `name` or `{name: [col, ...]}`.
func (e *TableEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Name = node.Value
		e.Columns = nil
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: table entry must have exactly one key, got %d", node.Line, len(node.Content)/2)
		}
		key, val := node.Content[0], node.Content[1]
		if val.Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: table %s columns must be a list", val.Line, key.Value)
		}
		var cols []string
		if err := val.Decode(&cols); err != nil {
			return fmt.Errorf("line %d: table %s columns: %w", val.Line, key.Value, err)
		}
		e.Name = key.Value
		e.Columns = cols
		return nil
	default:
		return fmt.Errorf("line %d: table entry must be a name or a single-key mapping", node.Line)
	}
}

// MarshalYAML emits the bare name when no columns are restricted.
func (e TableEntry) MarshalYAML() (any, error) {
	if len(e.Columns) == 0 {
		return e.Name, nil
	}
	return map[string][]string{e.Name: e.Columns}, nil
}

// ConfigError reports a problem in a policy source, with a position when
// the source is CUE.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Parse decodes a YAML or JSON policy document. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, &ConfigError{Field: "policy", Message: err.Error()}
	}
	return cfg, nil
}

// LoadFile reads a policy from disk, choosing the format by extension:
// .cue is evaluated with CUE, .yaml/.yml/.json are decoded as YAML.
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading policy: %w", err)
		}
		cfg, err := Parse(data)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	default:
		return Config{}, fmt.Errorf("unsupported policy format %q: use .yaml, .yml, .json or .cue", filepath.Ext(path))
	}
}

// Load reads a policy file and builds the Policy in one step.
func Load(path string) (*Policy, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Encode renders a Config as YAML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fingerprint identifies the configuration by content, independent of list
// formatting and map ordering in the source file.
func (c Config) Fingerprint() (string, error) {
	tables := make(ir.IRArray, len(c.Tables))
	for i, t := range c.Tables {
		tables[i] = ir.IRObject{"name": ir.IRString(t.Name), "columns": stringArray(t.Columns)}
	}
	columns := make(ir.IRObject, len(c.Columns))
	for name, kind := range c.Columns {
		columns[name] = ir.IRString(kind)
	}
	return ir.PolicyFingerprint(ir.IRObject{
		"queries":     stringArray(c.Queries),
		"items":       stringArray(c.Items),
		"tables":      tables,
		"connections": stringArray(c.Connections),
		"columns":     columns,
		"max_depth":   ir.IRInt(c.MaxDepth),
	})
}

func stringArray(ss []string) ir.IRArray {
	arr := make(ir.IRArray, len(ss))
	for i, s := range ss {
		arr[i] = ir.IRString(s)
	}
	return arr
}
