// Package templates holds the built-in scaffold templates and resolves
// template references given on the command line.
//
// Each template is a directory holding a manifest.yaml plus the payload files
// it references through write_file sources. Built-in templates are compiled
// into the binary; extra templates can live in a directory on disk laid out
// the same way.
package templates

import (
	"context"
	"embed"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adnsv/go-utils/fs"
	"github.com/toshsan/ragscaffold/internal/scaffold"
)

// Default is the template generated when none is named.
const Default = "rag-knowledge-tracker"

const manifestName = "manifest.yaml"

var ErrNotFound = errors.New("template not found")

//go:embed rag-knowledge-tracker
var builtin embed.FS

var builtInNames = []string{Default}

type Info struct {
	Name        string
	Description string
	// Location is "built-in" or the directory the template was found in.
	Location string
}

// Registry looks templates up among the built-ins and, when Dir is set, in
// subdirectories of Dir. Built-ins shadow directory templates of the same name.
type Registry struct {
	Dir string
}

func (r Registry) Lookup(name string) (*scaffold.Template, error) {
	for _, n := range builtInNames {
		if n == name {
			sub, err := iofs.Sub(builtin, name)
			if err != nil {
				return nil, err
			}
			return parseManifest(sub, name)
		}
	}

	if r.Dir != "" && name != "" && filepath.Base(name) == name {
		dir := filepath.Join(r.Dir, name)
		if fs.FileExists(filepath.Join(dir, manifestName)) {
			return parseManifest(os.DirFS(dir), name)
		}
	}

	return nil, fmt.Errorf("template %q: %w", name, ErrNotFound)
}

// Resolve accepts a template name, a local manifest path, an http(s) URL or
// a github.com/owner/repo/path reference.
func (r Registry) Resolve(ctx context.Context, ref string) (*scaffold.Template, error) {
	t, err := r.Lookup(ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if !looksLikeReference(ref) {
		return nil, err
	}
	return scaffold.Load(ctx, ref)
}

// List returns all known templates sorted by name.
func (r Registry) List() ([]Info, error) {
	seen := make(map[string]bool)
	var infos []Info

	for _, name := range builtInNames {
		t, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		seen[name] = true
		infos = append(infos, Info{Name: name, Description: t.Description, Location: "built-in"})
	}

	if r.Dir != "" {
		entries, err := os.ReadDir(r.Dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read template dir: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() || seen[entry.Name()] {
				continue
			}
			dir := filepath.Join(r.Dir, entry.Name())
			if !fs.FileExists(filepath.Join(dir, manifestName)) {
				continue
			}
			t, err := parseManifest(os.DirFS(dir), entry.Name())
			if err != nil {
				return nil, err
			}
			infos = append(infos, Info{Name: entry.Name(), Description: t.Description, Location: dir})
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func parseManifest(fsys iofs.FS, name string) (*scaffold.Template, error) {
	data, err := iofs.ReadFile(fsys, manifestName)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	t, err := scaffold.Parse(data, fsys)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	if t.Name == "" {
		t.Name = name
	}
	return t, nil
}

func looksLikeReference(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "github.com/") || fs.FileExists(ref)
}
