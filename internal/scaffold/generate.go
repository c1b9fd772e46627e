package scaffold

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/toshsan/ragscaffold/internal/emitter"
)

// Options configures a Generate call.
type Options struct {
	// OutputDir is where the project root is created. Defaults to ".".
	OutputDir string
	// Root overrides the template's root var when set.
	Root string
	Vars map[string]string
	Args []string

	Emitter *emitter.Emitter
	Log     logrus.FieldLogger
	Stdout  io.Writer
	Stderr  io.Writer
}

type FileResult struct {
	Path    string
	Outcome emitter.Outcome
}

// Result summarizes one generation run.
type Result struct {
	Root  string
	Dirs  []string
	Files []FileResult
}

// Count returns how many files ended with the given outcome.
func (r *Result) Count(o emitter.Outcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}

type generator struct {
	tmpl    *Template
	opts    Options
	data    Data
	root    string
	em      *emitter.Emitter
	log     logrus.FieldLogger
	ensured map[string]bool
	result  *Result
}

// Generate materializes tmpl under opts.OutputDir. Steps run in order and
// the first failure stops the run; anything already written stays on disk.
// The returned Result describes the work done up to that point.
func Generate(ctx context.Context, tmpl *Template, opts Options) (*Result, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	overrides := make(map[string]string, len(opts.Vars)+1)
	for k, v := range opts.Vars {
		overrides[k] = v
	}
	if opts.Root != "" {
		overrides[RootVar] = opts.Root
	}

	data, err := tmpl.renderVars(opts.Args, overrides)
	if err != nil {
		return nil, err
	}
	rootName := strings.TrimSpace(data.Vars[RootVar])
	if rootName == "" {
		return nil, ErrNoRoot
	}
	if !localRoot(rootName) {
		return nil, fmt.Errorf("%w: root %s", ErrPathEscapesRoot, rootName)
	}

	g := &generator{
		tmpl:    tmpl,
		opts:    opts,
		data:    data,
		root:    filepath.Join(opts.OutputDir, rootName),
		em:      opts.Emitter,
		log:     opts.Log,
		ensured: make(map[string]bool),
	}
	if g.em == nil {
		g.em = &emitter.Emitter{Log: opts.Log}
	}
	if g.log == nil {
		g.log = logrus.StandardLogger()
	}
	g.result = &Result{Root: g.root}

	if err := g.ensure(g.root); err != nil {
		return g.result, err
	}

	for _, group := range tmpl.groups() {
		if group.Name != "" {
			g.log.WithField("group", group.Name).Debug("generating group")
		}
		for i, step := range group.Steps {
			if err := ctx.Err(); err != nil {
				return g.result, err
			}
			if err := g.step(ctx, step); err != nil {
				return g.result, fmt.Errorf("%s step %d: %w", group.label(), i+1, err)
			}
		}
	}
	return g.result, nil
}

func (g *generator) step(ctx context.Context, step Step) error {
	if step.When != "" {
		cond, err := Render(step.When, g.data)
		if err != nil {
			return fmt.Errorf("render when: %w", err)
		}
		if strings.TrimSpace(cond) != "true" {
			return nil
		}
	}

	if step.Mkdir != "" {
		path, err := g.resolve(step.Mkdir)
		if err != nil {
			return err
		}
		if err := g.ensure(path); err != nil {
			return err
		}
	}

	if step.WriteFile != nil {
		path, err := g.resolve(step.WriteFile.Path)
		if err != nil {
			return err
		}
		content, err := g.content(step.WriteFile)
		if err != nil {
			return err
		}
		if err := g.write(path, content); err != nil {
			return err
		}
	}

	if step.WriteJSON != nil {
		path, err := g.resolve(step.WriteJSON.Path)
		if err != nil {
			return err
		}
		content, err := EncodeJSON(&step.WriteJSON.Data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		if err := g.write(path, string(content)); err != nil {
			return err
		}
	}

	if step.Run != nil {
		return g.run(ctx, step.Run)
	}
	return nil
}

// resolve renders a template path and places it under the output dir. The
// result must stay inside the project root.
func (g *generator) resolve(raw string) (string, error) {
	rendered, err := Render(raw, g.data)
	if err != nil {
		return "", fmt.Errorf("render path %q: %w", raw, err)
	}
	if strings.TrimSpace(rendered) == "" {
		return "", fmt.Errorf("path %q renders empty", raw)
	}
	if filepath.IsAbs(rendered) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, rendered)
	}
	path := filepath.Join(g.opts.OutputDir, filepath.FromSlash(rendered))
	rel, err := filepath.Rel(g.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, rendered)
	}
	return path, nil
}

// localRoot reports whether name stays inside the output dir once joined to
// it.
func localRoot(name string) bool {
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return false
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	return clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

func (g *generator) content(w *WriteFile) (string, error) {
	if w.Source == "" {
		rendered, err := Render(w.Content, g.data)
		if err != nil {
			return "", fmt.Errorf("render content: %w", err)
		}
		return rendered, nil
	}
	if g.tmpl.Files == nil {
		return "", fmt.Errorf("source %s: template has no file set", w.Source)
	}
	b, err := fs.ReadFile(g.tmpl.Files, w.Source)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(b), nil
}

func (g *generator) ensure(path string) error {
	path = filepath.Clean(path)
	if g.ensured[path] {
		return nil
	}
	if err := g.em.EnsureDirectory(path); err != nil {
		return err
	}
	g.ensured[path] = true
	g.result.Dirs = append(g.result.Dirs, path)
	return nil
}

func (g *generator) write(path, content string) error {
	if err := g.ensure(filepath.Dir(path)); err != nil {
		return err
	}
	outcome, err := g.em.WriteFile(path, content)
	if err != nil {
		return err
	}
	g.result.Files = append(g.result.Files, FileResult{Path: path, Outcome: outcome})
	return nil
}

func (g *generator) run(ctx context.Context, rc *RunCommand) error {
	cmdStr, err := Render(rc.Cmd, g.data)
	if err != nil {
		return fmt.Errorf("render run cmd: %w", err)
	}
	dir := g.opts.OutputDir
	if rc.Dir != "" {
		rendered, err := Render(rc.Dir, g.data)
		if err != nil {
			return fmt.Errorf("render run dir: %w", err)
		}
		dir = filepath.Join(g.opts.OutputDir, rendered)
	}

	entry := g.log.WithFields(logrus.Fields{"cmd": cmdStr, "dir": dir})
	if g.em.DryRun {
		entry.Info("run (dry run)")
		return nil
	}
	entry.Info("run")

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = dir
	cmd.Stdout = g.opts.Stdout
	cmd.Stderr = g.opts.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %q failed: %w", cmdStr, err)
	}
	return nil
}
