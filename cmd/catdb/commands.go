package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/catdb"
	"github.com/hupe1980/catdb/codec"
	"github.com/hupe1980/catdb/loader"
)

func newCreateCommand(g *globalFlags, stdout io.Writer) *cobra.Command {
	cfg := catdb.DefaultConfig()
	var compression string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty store at --root.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Compression = codec.Compression(compression)
			if err := catdb.Create(g.root, cfg); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "created %s (shard depth %d)\n", g.root, cfg.ShardDepth())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Int64Var(&cfg.Sizing, "sizing", cfg.Sizing, "Expected number of entries; selects the shard depth.")
	flags.BoolVar(&cfg.PrettyPrint, "pretty", false, "Indent stored entries.")
	flags.BoolVar(&cfg.ValidateEntries, "validate", false, "Validate entries before they are written.")
	flags.StringVar(&compression, "compression", "", "Entry compression: lz4 or zstd.")
	return cmd
}

func newGetCommand(g *globalFlags, stdout io.Writer) *cobra.Command {
	var byHash bool
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Print a stored entry.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.openDB(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var e catdb.Entry
			if byHash {
				e, err = db.GetByHash(cmd.Context(), catdb.Hash(args[0]))
			} else {
				e, err = db.Get(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			data, err := db.Engine().Serialize(e, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s\n", data)
			return nil
		},
	}
	cmd.Flags().BoolVar(&byHash, "hash", false, "Treat the argument as a hash.")
	return cmd
}

func newIndexCommand(g *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "index <category> <index>",
		Short: "List the entries of a category index.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.openDB(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			entries, err := db.NewSession().GetByIndex(cmd.Context(), catdb.NewRef(args[0]), args[1], nil)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(stdout, e.DistinctName())
			}
			return nil
		},
	}
}

func newLoadCommand(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var (
		recursive bool
		rounds    bool
	)
	cmd := &cobra.Command{
		Use:   "load <dir>",
		Short: "Load a source tree into the store.",
		Long: `Loads every source file below <dir>. Categories are loaded first and
resolve their super-categories on demand. With --rounds the categories
are instead written in rounds, each round writing the categories whose
super-category is already stored.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.openDB(stderr, catdb.WithExclusiveLock())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var n int
			if rounds {
				n, err = db.LoadDir(cmd.Context(), args[0], recursive)
			} else {
				n, err = loader.LoadDir(cmd.Context(), db, nil, args[0], recursive, loader.WithConcurrency(g.concurrency))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "loaded %d objects\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&recursive, "recursive", true, "Descend into subdirectories.")
	cmd.Flags().BoolVar(&rounds, "rounds", false, "Write categories in rounds instead of resolving on demand.")
	return cmd
}

func newBootstrapCommand(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap <dir>",
		Short: "Load every subdirectory of <dir> in alphabetical order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.openDB(stderr, catdb.WithExclusiveLock())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			_, err = loader.BootstrapDatabaseObjects(cmd.Context(), db, nil, args[0], func(msg string) {
				fmt.Fprintln(stdout, msg)
			}, loader.WithConcurrency(g.concurrency))
			return err
		},
	}
}

func newWatchCommand(g *globalFlags, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Re-ingest source files as they change until interrupted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.openDB(stderr, catdb.WithExclusiveLock())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			eg, ctx := errgroup.WithContext(cmd.Context())
			for _, dir := range args {
				eg.Go(func() error {
					return loader.Watch(ctx, db, nil, dir, loader.WithReadyHook(func() {
						db.Logger().InfoContext(ctx, "watching", "dir", dir)
					}))
				})
			}
			return eg.Wait()
		},
	}
}
