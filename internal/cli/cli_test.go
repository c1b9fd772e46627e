package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshsan/ragscaffold/internal/history"
)

type testEnv struct {
	out     string
	cfgPath string
	dbPath  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		out:     filepath.Join(dir, "out"),
		cfgPath: filepath.Join(dir, "config.yaml"),
		dbPath:  filepath.Join(dir, "history.db"),
	}
	cfg := "output_dir: " + env.out + "\n" +
		"template_dir: " + filepath.Join(dir, "templates") + "\n" +
		"history:\n  enabled: true\n  path: " + env.dbPath + "\n"
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(cfg), 0644))
	return env
}

func run(t *testing.T, env testEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.cfgPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_NoArgsGeneratesDefault(t *testing.T) {
	env := newTestEnv(t)

	stdout, stderr, err := run(t, env)
	require.NoError(t, err)

	root := filepath.Join(env.out, "rag-knowledge-tracker")
	assert.Equal(t, "Project structure created in directory: "+root+"\n", stdout)
	assert.FileExists(t, filepath.Join(root, "README.md"))
	assert.FileExists(t, filepath.Join(root, "snowflake", "init", "01_create_tables.sql"))
	assert.Contains(t, stderr, "write_file")
}

func TestRoot_DefaultRunLeavesHomeUntouched(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	out := t.TempDir()

	cmd := NewRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--out", out})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "Project structure created in directory: "+filepath.Join(out, "rag-knowledge-tracker")+"\n", stdout.String())
	entries, err := os.ReadDir(home)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfigInit_EnablesHistory(t *testing.T) {
	dir := t.TempDir()
	env := testEnv{cfgPath: filepath.Join(dir, "config.yaml"), out: filepath.Join(dir, "out")}
	_, _, err := run(t, env, "config", "init")
	require.NoError(t, err)

	stdout, _, err := run(t, env, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "enabled: true")
}

func TestGenerate_Flags(t *testing.T) {
	env := newTestEnv(t)
	out := t.TempDir()

	stdout, _, err := run(t, env, "generate", "rag-knowledge-tracker", "--out", out, "--root", "tracker", "-q")
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(out, "tracker"))
	assert.FileExists(t, filepath.Join(out, "tracker", "frontend", "package.json"))
}

func TestGenerate_QuietSuppressesProgress(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, err := run(t, env, "-q")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestGenerate_DryRun(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := run(t, env, "generate", "--dry-run")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Dry run: "), stdout)
	assert.Contains(t, stdout, "13 files planned")
	assert.NoDirExists(t, env.out)
}

func TestGenerate_SkipModeKeepsEdits(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := run(t, env)
	require.NoError(t, err)

	readme := filepath.Join(env.out, "rag-knowledge-tracker", "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("mine"), 0644))

	_, _, err = run(t, env, "--mode", "skip")
	require.NoError(t, err)
	got, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(got))
}

func TestGenerate_InvalidMode(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := run(t, env, "generate", "--mode", "merge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown write mode")
}

func TestGenerate_UnknownTemplate(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := run(t, env, "generate", "no-such-template")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not found")
}

func TestGenerate_ManifestFileWithArgsAndVars(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	manifest := filepath.Join(dir, "tmpl.yaml")
	doc := `name: greeting
vars:
  root: greet
  who: nobody
steps:
  - write_file:
      path: "{{ .Var.root }}/hello.txt"
      content: "{{ arg 0 }} {{ .Var.who }}"
`
	require.NoError(t, os.WriteFile(manifest, []byte(doc), 0644))

	_, _, err := run(t, env, "generate", manifest, "hello", "--var", "who=world")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(env.out, "greet", "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestGenerate_RecordsHistory(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := run(t, env)
	require.NoError(t, err)
	_, _, err = run(t, env, "generate", "--dry-run")
	require.NoError(t, err)
	_, _, err = run(t, env, "--no-history")
	require.NoError(t, err)

	store, err := history.Open(env.dbPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].DryRun)
	assert.False(t, runs[1].DryRun)
	assert.Equal(t, "rag-knowledge-tracker", runs[1].Template)
	assert.Equal(t, 13, runs[1].FilesWritten)

	stdout, _, err := run(t, env, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "TEMPLATE")
	assert.Contains(t, stdout, "dry-run")
	assert.Contains(t, stdout, "ok")
}

func TestGenerate_RecordsFailedRun(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.out, 0755))
	// A file where the project root should go makes the first mkdir fail.
	require.NoError(t, os.WriteFile(filepath.Join(env.out, "rag-knowledge-tracker"), nil, 0644))

	_, _, err := run(t, env)
	require.Error(t, err)

	store, err := history.Open(env.dbPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Success)
	assert.NotEmpty(t, runs[0].Error)
}

func TestHistory_Empty(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := run(t, env, "history")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded\n", stdout)
}

func TestList(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := run(t, env, "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "rag-knowledge-tracker")
	assert.Contains(t, stdout, "built-in")
}

func TestConfigInitAndShow(t *testing.T) {
	env := newTestEnv(t)
	fresh := testEnv{cfgPath: filepath.Join(t.TempDir(), "cfg", "config.yaml")}

	stdout, _, err := run(t, fresh, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, fresh.cfgPath)
	assert.FileExists(t, fresh.cfgPath)

	stdout, _, err = run(t, env, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "output_dir: "+env.out)
	assert.Contains(t, stdout, "mode: overwrite")
}

func TestVersion(t *testing.T) {
	original := version
	t.Cleanup(func() { version = original })
	version = "1.2.3"

	stdout, _, err := run(t, newTestEnv(t), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "scaffold "))
}

func TestRoot_RejectsArgs(t *testing.T) {
	_, _, err := run(t, newTestEnv(t), "unexpected")
	assert.Error(t, err)
}
