package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/threadwatch/internal/store"
)

func newStateCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or edit the processed set",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List processed posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			f, err := g.stateFile(cfg)
			if err != nil {
				return err
			}
			st, err := f.Load()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROCESSED\tFETCHED\tREPLIES\tURL")
			for _, id := range st.IDs() {
				rec := st.Processed[id]
				replies := "?"
				if rec.ReplyCount != nil {
					replies = fmt.Sprint(*rec.ReplyCount)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					id, rec.ProcessedAt.UTC().Format(time.RFC3339), rec.Fetched, replies, rec.URL)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if st.LastRunAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nlast run: %s\n", st.LastRunAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	forget := &cobra.Command{
		Use:   "forget ID...",
		Short: "Remove posts from the processed set so they are reported again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			f, err := g.stateFile(cfg)
			if err != nil {
				return err
			}
			st, err := f.Load()
			if err != nil {
				return err
			}

			removed := 0
			for _, id := range args {
				if st.Forget(id) {
					removed++
					fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was not processed\n", id)
				}
			}
			if removed == 0 {
				return nil
			}
			return f.Put(st)
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the state file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			f, err := g.stateFile(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.Path())
			return nil
		},
	}

	open := &cobra.Command{
		Use:   "open",
		Short: "Open the state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			f, err := g.stateFile(cfg)
			if err != nil {
				return err
			}
			return openExisting(f.Path())
		},
	}

	cmd.AddCommand(list, forget, path, open)
	return cmd
}

func newHistoryCmd(g *globals) *cobra.Command {
	var limit int
	var full bool

	cmd := &cobra.Command{
		Use:   "history [POST_ID]",
		Short: "Show archived reports",
		Long: `Lists the newest archived reports, or prints the archived report for one
post. Requires archive.path (X_MONITOR_ARCHIVE).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Archive.Path == "" {
				return store.ErrNoArchive
			}
			archive, err := store.OpenArchive(cfg.Archive.Path)
			if err != nil {
				return err
			}
			defer archive.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				entry, err := archive.GetReport(args[0])
				if err != nil {
					return err
				}
				if entry == nil {
					return errors.New("no archived report for " + args[0])
				}
				_, err = fmt.Fprintln(out, entry.Report)
				return err
			}

			entries, err := archive.RecentReports(limit)
			if err != nil {
				return err
			}
			if full {
				for i, e := range entries {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintln(out, e.Report)
				}
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROCESSED\tFETCHED\tSUP/SKEP/NEU\tRUN")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d/%d/%d\t%s\n",
					e.PostID, e.ProcessedAt.UTC().Format(time.RFC3339), e.Fetched,
					e.Supportive, e.Skeptical, e.Neutral, e.RunID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of reports to list")
	cmd.Flags().BoolVar(&full, "full", false, "print full report text")
	return cmd
}
