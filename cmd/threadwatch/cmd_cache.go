package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/threadwatch/internal/analyzer"
	"github.com/ibeckermayer/threadwatch/internal/store"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

func newCacheCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect step snapshots written with cache.steps",
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the step cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := stepCache()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Root())
			return nil
		},
	}

	shortNames := make([]string, len(store.Steps))
	for i, s := range store.Steps {
		shortNames[i] = s.Short()
	}

	show := &cobra.Command{
		Use:       "show " + strings.Join(shortNames, "|"),
		Short:     "Show the newest snapshot of a step",
		Args:      cobra.ExactArgs(1),
		ValidArgs: shortNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := store.ParseStep(args[0])
			if err != nil {
				return err
			}
			c, err := stepCache()
			if err != nil {
				return err
			}
			return showStep(cmd, c, step)
		},
	}

	cmd.AddCommand(path, show)
	return cmd
}

func showStep(cmd *cobra.Command, c *store.StepCache, step store.StepName) error {
	out := cmd.OutOrStdout()

	switch step {
	case store.StepTimeline:
		posts, from, err := store.LoadLatestStepOutput[[]types.Post](c, step)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s\n", from)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tTEXT")
		for _, p := range posts {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.CreatedAtRaw, analyzer.Truncate(oneLine(p.Text), 60))
		}
		return w.Flush()

	case store.StepHarvest:
		h, from, err := store.LoadLatestStepOutput[types.Harvest](c, step)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s\n", from)
		fmt.Fprintf(out, "post %s: %d replies over %d page(s)\n", h.PostID, h.Fetched(), h.Pages)
		if h.RateLimitNote != "" {
			fmt.Fprintf(out, "note: %s\n", h.RateLimitNote)
		}
		for _, r := range h.Replies {
			fmt.Fprintf(out, "- @%s: %s\n", r.Author.Username, analyzer.Truncate(oneLine(r.Text), 100))
		}
		return nil

	default:
		from, err := c.LatestStepFile(step)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(from)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s\n", from)
		return writeOutput(out, string(raw))
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
