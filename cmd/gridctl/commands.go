package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gridedit/internal/codec"
	"github.com/JonMunkholm/gridedit/internal/config"
	"github.com/JonMunkholm/gridedit/internal/core"
	"github.com/JonMunkholm/gridedit/internal/storage"
)

func newRootCmd() *cobra.Command {
	var maxBytes int64

	root := &cobra.Command{
		Use:           "gridctl",
		Short:         "Inspect, search and convert spreadsheet documents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().Int64Var(&maxBytes, "max-bytes", 0, "reject input files larger than this (0 = no limit)")

	files := func() *codec.Files { return codec.NewFiles(codec.WithMaxBytes(maxBytes)) }

	root.AddCommand(
		newInfoCmd(files),
		newSearchCmd(files),
		newDumpCmd(files),
		newConvertCmd(files),
		newSnapshotsCmd(files),
	)
	return root
}

func load(ctx context.Context, files *codec.Files, path string) (*core.Document, error) {
	doc, err := files.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s", core.FormatUserError(&core.IOError{Op: "load", Path: path, Err: err}))
	}
	return doc, nil
}

func newInfoCmd(files func() *codec.Files) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "List the sheets in a document with their sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := load(cmd.Context(), files(), args[0])
			if err != nil {
				return err
			}
			writeInfo(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}

func writeInfo(out io.Writer, doc *core.Document) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tROWS\tCOLUMNS")
	for i, s := range doc.Sheets {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i, s.Name, s.RowCount(), s.ColumnCount())
	}
	tw.Flush()
}

func newSearchCmd(files func() *codec.Files) *cobra.Command {
	var (
		all   bool
		sheet int
	)
	cmd := &cobra.Command{
		Use:   "search <file> <query>",
		Short: "Find cells whose text equals query, ignoring case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := load(cmd.Context(), files(), args[0])
			if err != nil {
				return err
			}
			doc.RebuildIndexes()

			scope := core.ScopeCurrentSheet
			if all {
				scope = core.ScopeAllSheets
			}
			results := core.SearchDocument(doc, args[1], scope, sheet)

			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s!%s\t%s\n", r.SheetName, r.Label, r.Value)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d match(es)\n", len(results))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "search every sheet")
	cmd.Flags().IntVar(&sheet, "sheet", 0, "sheet index to search without --all")
	return cmd
}

func newDumpCmd(files func() *codec.Files) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print a document's content as JSON, or as Go values with --raw",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := load(cmd.Context(), files(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				sq := litter.Options{StripPackageNames: true}
				fmt.Fprintln(out, sq.Sdump(doc.Content()))
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "dump Go values instead of JSON")
	return cmd
}

func newConvertCmd(files func() *codec.Files) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert between formats; the extension picks the format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := files()
			doc, err := load(cmd.Context(), f, args[0])
			if err != nil {
				return err
			}
			if err := f.Store(cmd.Context(), args[1], doc); err != nil {
				return fmt.Errorf("%s", core.FormatUserError(&core.IOError{Op: "store", Path: args[1], Err: err}))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", args[1])
			return nil
		},
	}
}

// newSnapshotsCmd reads the snapshot store configured by the server's
// SNAPSHOT_* environment.
func newSnapshotsCmd(files func() *codec.Files) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List or export autosave snapshots",
	}

	open := func(ctx context.Context) (storage.Snapshots, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		s, err := storage.Open(ctx, cfg.Snapshot)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, core.ErrNoSnapshotStore
		}
		return s, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshot keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.Keys(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <key> <out>",
		Short: "Write a snapshot to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", core.FormatUserError(&core.IOError{Op: "load", Path: args[0], Err: err}))
			}
			return files().Store(cmd.Context(), args[1], doc)
		},
	})
	return cmd
}
