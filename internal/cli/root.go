package cli

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/toshsan/ragscaffold/internal/config"
)

type app struct {
	cfgFile string
	verbose bool
	quiet   bool

	log *logrus.Logger
	cfg *config.Config
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the scaffold command tree. Run without a subcommand it
// generates the default template.
func NewRootCmd() *cobra.Command {
	a := &app{}
	gen := &generateOptions{}

	rootCmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Generate project scaffolds",
		Long: `Scaffold writes a starter directory tree for a project from a template.

With no arguments it generates the built-in rag-knowledge-tracker layout in the
current directory.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = newLogger(cmd.ErrOrStderr(), a.verbose, a.quiet)
			cfg, err := config.LoadConfig(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd, "", nil, gen)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file path (default: ~/.scaffold/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-essential output")
	addGenerateFlags(rootCmd, gen)

	rootCmd.AddCommand(
		newGenerateCmd(a),
		newListCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func newLogger(w io.Writer, verbose, quiet bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case verbose:
		l.SetLevel(logrus.DebugLevel)
	case quiet:
		l.SetLevel(logrus.WarnLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}
