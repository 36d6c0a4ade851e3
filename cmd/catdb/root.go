package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/document"
	"github.com/hupe1980/catdb/workerpool"
)

const envPrefix = "CATDB"

// globalFlags are shared by all subcommands. Their values come from the
// command line, then CATDB_* environment variables, then the config file.
type globalFlags struct {
	root        string
	concurrency int
	logLevel    string
	config      string
}

// NewRootCommand returns the catdb command tree.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	rc := &cobra.Command{
		Use:   "catdb",
		Short: "catdb is an embedded hash-addressed store of named entries.",
		Long: `catdb is an embedded hash-addressed store of named entries.

Entries live in files sharded by the hash of their name. Categories
form a forest and every entry is listed in the index files of the
categories it belongs to.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setAllConfig(viper.New(), cmd.Flags())
		},
	}
	flags := rc.PersistentFlags()
	flags.StringVarP(&g.root, "root", "r", ".", "Store root directory.")
	flags.IntVar(&g.concurrency, "concurrency", 0,
		fmt.Sprintf("Maximum outstanding store operations (0 selects the default of %d).", workerpool.DefaultMaxOutstanding))
	flags.StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error.")
	flags.StringVarP(&g.config, "config", "c", "", "Configuration file to read from.")

	rc.AddCommand(newCreateCommand(g, stdout))
	rc.AddCommand(newGetCommand(g, stdout))
	rc.AddCommand(newIndexCommand(g, stdout))
	rc.AddCommand(newLoadCommand(g, stdout, stderr))
	rc.AddCommand(newBootstrapCommand(g, stdout, stderr))
	rc.AddCommand(newWatchCommand(g, stderr))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig binds the flags into v, layers the environment and an
// optional config file below them, and writes the resolved values back
// into the flags.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}
		valid := make(map[string]bool)
		flags.VisitAll(func(f *pflag.Flag) { valid[f.Name] = true })
		for _, key := range v.AllKeys() {
			if !valid[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		if v.IsSet(f.Name) {
			if err := f.Value.Set(v.GetString(f.Name)); err != nil {
				flagErr = fmt.Errorf("invalid value for %s: %w", f.Name, err)
			}
		}
	})
	return flagErr
}

// newLogger returns a tint logger on w. Colors are only used on terminals.
func newLogger(w io.Writer, level string) (*catdb.Logger, error) {
	var ll slog.Level
	if err := ll.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return catdb.NewLogger(tint.NewHandler(w, &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	})), nil
}

// openDB opens the store at --root with the document engine.
func (g *globalFlags) openDB(stderr io.Writer, optFns ...catdb.Option) (*catdb.DB, error) {
	logger, err := newLogger(stderr, g.logLevel)
	if err != nil {
		return nil, err
	}
	opts := append([]catdb.Option{
		catdb.WithLogger(logger),
		catdb.WithConcurrency(g.concurrency),
	}, optFns...)
	return catdb.Open(g.root, document.NewEngine(), opts...), nil
}
