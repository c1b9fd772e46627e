package cli

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/toshsan/ragscaffold/internal/emitter"
	"github.com/toshsan/ragscaffold/internal/history"
	"github.com/toshsan/ragscaffold/internal/scaffold"
	"github.com/toshsan/ragscaffold/internal/templates"
)

type generateOptions struct {
	root      string
	out       string
	mode      string
	dryRun    bool
	noHistory bool
	vars      map[string]string
}

func addGenerateFlags(cmd *cobra.Command, o *generateOptions) {
	cmd.Flags().StringVar(&o.root, "root", "", "Project root folder name (overrides the template's root var)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Directory to create the project root in (default from config, else .)")
	cmd.Flags().StringVar(&o.mode, "mode", "", "Existing file handling: overwrite, skip or if-changed")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Print planned actions without touching the filesystem")
	cmd.Flags().BoolVar(&o.noHistory, "no-history", false, "Do not record this run in the history database")
	cmd.Flags().StringToStringVar(&o.vars, "var", nil, "Template variable override as key=value (repeatable)")
}

func newGenerateCmd(a *app) *cobra.Command {
	o := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [template] [args...]",
		Short: "Generate a project from a template",
		Long: `Generate a project from a built-in template name, a template directory name
under the configured template_dir, a local manifest file, an http(s) URL or a
github.com/owner/repo/path reference. Extra args are available to the
template as {{ arg N }}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			var extra []string
			if len(args) > 0 {
				ref = args[0]
				extra = args[1:]
			}
			return a.generate(cmd, ref, extra, o)
		},
	}
	addGenerateFlags(cmd, o)
	return cmd
}

func (a *app) generate(cmd *cobra.Command, ref string, args []string, o *generateOptions) error {
	if ref == "" {
		ref = templates.Default
	}

	modeStr := o.mode
	if modeStr == "" {
		modeStr = a.cfg.Mode
	}
	mode, err := emitter.ParseMode(modeStr)
	if err != nil {
		return err
	}

	out := o.out
	if out == "" {
		out = a.cfg.OutputDir
	}

	ctx := cmd.Context()
	reg := templates.Registry{Dir: a.cfg.TemplateDir}
	tmpl, err := reg.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	started := time.Now()
	res, genErr := scaffold.Generate(ctx, tmpl, scaffold.Options{
		OutputDir: out,
		Root:      o.root,
		Vars:      o.vars,
		Args:      args,
		Emitter:   &emitter.Emitter{Mode: mode, DryRun: o.dryRun, Log: a.log},
		Log:       a.log,
		Stdout:    cmd.OutOrStdout(),
		Stderr:    cmd.ErrOrStderr(),
	})

	if !o.noHistory {
		a.recordRun(history.Run{
			Template:  templateName(tmpl, ref),
			OutputDir: out,
			Mode:      string(mode),
			DryRun:    o.dryRun,
			StartedAt: started,
			Duration:  time.Since(started),
		}, res, genErr)
	}

	if genErr != nil {
		return genErr
	}

	a.log.WithFields(logrus.Fields{
		"dirs":      len(res.Dirs),
		"written":   res.Count(emitter.Written),
		"skipped":   res.Count(emitter.Skipped),
		"unchanged": res.Count(emitter.Unchanged),
	}).Debug("generation finished")

	if o.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d directories and %d files planned in directory: %s\n",
			len(res.Dirs), res.Count(emitter.Planned), res.Root)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Project structure created in directory: %s\n", res.Root)
	return nil
}

// recordRun stores the run in the history database. Failures only warn.
func (a *app) recordRun(run history.Run, res *scaffold.Result, genErr error) {
	if !a.cfg.History.Enabled {
		return
	}
	if res != nil {
		run.Root = res.Root
		run.Dirs = len(res.Dirs)
		run.FilesWritten = res.Count(emitter.Written)
		run.FilesSkipped = res.Count(emitter.Skipped) + res.Count(emitter.Unchanged)
	}
	run.Success = genErr == nil
	if genErr != nil {
		run.Error = genErr.Error()
	}

	store, err := history.Open(a.cfg.History.Path)
	if err != nil {
		a.log.WithError(err).Warn("history unavailable")
		return
	}
	defer store.Close()

	if _, err := store.Record(run); err != nil {
		a.log.WithError(err).Warn("failed to record run")
	}
}

func templateName(t *scaffold.Template, ref string) string {
	if t.Name != "" {
		return t.Name
	}
	return ref
}
