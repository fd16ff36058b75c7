package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bft-labs/signtype/internal/cliconfig"
	"github.com/bft-labs/signtype/internal/journal"
)

const sinceLayout = "2006-01-02"

func newStatsCmd() *cobra.Command {
	var (
		path  string
		since string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the commit journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--journal is required")
			}
			if !cliconfig.FileExists(path) {
				return fmt.Errorf("journal %s not found", path)
			}
			var from time.Time
			if since != "" {
				t, err := time.ParseInLocation(sinceLayout, since, time.UTC)
				if err != nil {
					return fmt.Errorf("parse --since: %w", err)
				}
				from = t
			}

			store, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			return runStats(cmd.Context(), cmd.OutOrStdout(), store, from, time.Now())
		},
	}
	cmd.Flags().StringVar(&path, "journal", "", "SQLite commit journal path")
	cmd.Flags().StringVar(&since, "since", "", "only count accepts on or after this date (YYYY-MM-DD)")
	return cmd
}

func runStats(ctx context.Context, w io.Writer, store *journal.Store, since, now time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stats, err := store.LetterStats(ctx, since)
	if err != nil {
		return fmt.Errorf("letter stats: %w", err)
	}
	sum, err := store.Summary(ctx)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return printStats(w, stats, sum, now)
}

func printStats(w io.Writer, stats []journal.LetterStat, sum journal.Summary, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "sessions\t%s\n", humanize.Comma(int64(sum.Sessions)))
	fmt.Fprintf(tw, "accepts\t%s\n", humanize.Comma(int64(sum.Accepts)))
	fmt.Fprintf(tw, "deletes\t%s\n", humanize.Comma(int64(sum.Deletes)))
	if !sum.First.IsZero() {
		fmt.Fprintf(tw, "first commit\t%s\n", humanize.RelTime(sum.First, now, "ago", "from now"))
		fmt.Fprintf(tw, "last commit\t%s\n", humanize.RelTime(sum.Last, now, "ago", "from now"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "\nno accepted letters")
		return err
	}

	total := 0
	for _, st := range stats {
		total += st.Count
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LETTER\tCOUNT\tSHARE\t")
	for _, st := range stats {
		share := float64(st.Count) * 100 / float64(total)
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t%s\n",
			st.Letter, humanize.Comma(int64(st.Count)),
			humanize.FtoaWithDigits(share, 1), bar(share))
	}
	return tw.Flush()
}

func bar(share float64) string {
	return strings.Repeat("#", int(share/5+0.5))
}
