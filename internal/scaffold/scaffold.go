package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"text/template"

	"gopkg.in/yaml.v3"
)

// RootVar is the template variable naming the project root folder.
const RootVar = "root"

var (
	ErrNoRoot          = errors.New("template does not define a root")
	ErrPathEscapesRoot = errors.New("path escapes project root")
)

// Template is a declarative scaffold: variables plus ordered groups of steps.
// Steps listed at the top level run before any group.
type Template struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Vars is a mapping of name to value template. Kept as a node so values
	// render in document order and may refer to the vars above them.
	Vars   yaml.Node `yaml:"vars"`
	Steps  []Step    `yaml:"steps"`
	Groups []Group   `yaml:"groups"`

	// Files resolves write_file sources. Nil when the template was fetched
	// over the network.
	Files fs.FS `yaml:"-"`
}

type Group struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

type Step struct {
	Mkdir     string      `yaml:"mkdir,omitempty"`
	WriteFile *WriteFile  `yaml:"write_file,omitempty"`
	WriteJSON *WriteJSON  `yaml:"write_json,omitempty"`
	Run       *RunCommand `yaml:"run,omitempty"`
	When      string      `yaml:"when,omitempty"`
}

// WriteFile writes either Content (rendered) or the file named by Source
// (verbatim).
type WriteFile struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
	Source  string `yaml:"source,omitempty"`
}

// WriteJSON serializes Data as indented JSON, keeping mapping key order.
type WriteJSON struct {
	Path string    `yaml:"path"`
	Data yaml.Node `yaml:"data"`
}

type RunCommand struct {
	Cmd string `yaml:"cmd"`
	Dir string `yaml:"dir,omitempty"`
}

type Data struct {
	Args []string
	Vars map[string]string
}

func (d Data) Arg(i int) string {
	if i < len(d.Args) {
		return d.Args[i]
	}
	return ""
}

func Render(tmplStr string, data Data) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"arg": data.Arg,
	}).Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	context := map[string]interface{}{
		"Var": data.Vars,
		"Arg": data.Arg,
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, context); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Parse decodes a template document. files resolves write_file sources and
// may be nil.
func Parse(content []byte, files fs.FS) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(content, &t); err != nil {
		return nil, fmt.Errorf("failed to parse DSL yaml: %w", err)
	}
	t.Files = files
	return &t, nil
}

// renderVars renders template vars in document order. Overrides are set
// first and replace the template value of the same name, so later vars see
// them.
func (t *Template) renderVars(args []string, overrides map[string]string) (Data, error) {
	data := Data{
		Args: args,
		Vars: make(map[string]string, len(overrides)),
	}
	for k, v := range overrides {
		data.Vars[k] = v
	}

	vars := &t.Vars
	if vars.Kind == yaml.DocumentNode && len(vars.Content) > 0 {
		vars = vars.Content[0]
	}
	switch {
	case vars.Kind == 0, vars.ShortTag() == "!!null":
		return data, nil
	case vars.Kind == yaml.MappingNode:
	default:
		return Data{}, fmt.Errorf("line %d: vars must be a mapping", vars.Line)
	}

	for i := 0; i+1 < len(vars.Content); i += 2 {
		key, val := vars.Content[i], vars.Content[i+1]
		if _, ok := overrides[key.Value]; ok {
			continue
		}
		if val.Kind != yaml.ScalarNode {
			return Data{}, fmt.Errorf("line %d: var %s must be a scalar", val.Line, key.Value)
		}
		if val.ShortTag() == "!!null" {
			data.Vars[key.Value] = ""
			continue
		}
		rendered, err := Render(val.Value, data)
		if err != nil {
			return Data{}, fmt.Errorf("render var %s: %w", key.Value, err)
		}
		data.Vars[key.Value] = rendered
	}
	return data, nil
}

// Paths lists the destination paths a template declares, rendered with its
// own vars, in execution order. Steps guarded by when are included.
func (t *Template) Paths() ([]string, error) {
	data, err := t.renderVars(nil, nil)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, g := range t.groups() {
		for i, s := range g.Steps {
			raw := s.path()
			if raw == "" {
				continue
			}
			p, err := Render(raw, data)
			if err != nil {
				return nil, fmt.Errorf("%s step %d: %w", g.label(), i+1, err)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *Template) groups() []Group {
	if len(t.Steps) == 0 {
		return t.Groups
	}
	return append([]Group{{Steps: t.Steps}}, t.Groups...)
}

func (g Group) label() string {
	if g.Name == "" {
		return "steps"
	}
	return "group " + g.Name
}

func (s Step) path() string {
	switch {
	case s.Mkdir != "":
		return s.Mkdir
	case s.WriteFile != nil:
		return s.WriteFile.Path
	case s.WriteJSON != nil:
		return s.WriteJSON.Path
	}
	return ""
}
